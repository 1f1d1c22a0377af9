package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Dosada05/game-booking-system/services"
	"github.com/Dosada05/game-booking-system/slots"

	"github.com/go-chi/chi/v5"
)

type VenueHandler struct {
	venueService   services.VenueService
	bookingService services.BookingService
}

func NewVenueHandler(vs services.VenueService, bs services.BookingService) *VenueHandler {
	return &VenueHandler{
		venueService:   vs,
		bookingService: bs,
	}
}

// AddVenues загружает каталог площадок пачкой; уже существующие по имени
// пропускаются без ошибки.
func (h *VenueHandler) AddVenues(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Venues []services.VenueInput `json:"venues"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if len(input.Venues) == 0 {
		badRequestResponse(w, r, errors.New("venues list must not be empty"))
		return
	}

	result, err := h.venueService.AddVenues(r.Context(), input.Venues)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"result": result,
	}

	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *VenueHandler) ListVenues(w http.ResponseWriter, r *http.Request) {
	venues, err := h.venueService.ListVenues(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"venues": venues,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *VenueHandler) GetVenueByID(w http.ResponseWriter, r *http.Request) {
	venueID, err := getVenueIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	venue, err := h.venueService.GetVenueByID(r.Context(), venueID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"venue": venue,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SlotGrid отдаёт дневную сетку доступности кортов площадки.
// Параметры: sport, date ("5th June"), duration в минутах (кратно 30).
func (h *VenueHandler) SlotGrid(w http.ResponseWriter, r *http.Request) {
	venueID, err := getVenueIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	sport := r.URL.Query().Get("sport")
	dateLabel := r.URL.Query().Get("date")
	if sport == "" || dateLabel == "" {
		badRequestResponse(w, r, errors.New("sport and date query parameters are required"))
		return
	}

	duration := slots.SlotStep * 2 // Час по умолчанию
	if raw := r.URL.Query().Get("duration"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			badRequestResponse(w, r, errors.New("invalid duration query parameter"))
			return
		}
		duration = time.Duration(minutes) * time.Minute
	}

	grid, err := h.bookingService.SlotGrid(r.Context(), venueID, sport, dateLabel, duration)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"grid": grid,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func getVenueIDFromURL(r *http.Request) (int, error) {
	idStr := chi.URLParam(r, "venueID")
	if idStr == "" {
		return 0, errors.New("missing venue ID in URL path")
	}

	venueID, err := strconv.Atoi(idStr)
	if err != nil || venueID <= 0 {
		return 0, errors.New("invalid venue ID in URL path")
	}

	return venueID, nil
}
