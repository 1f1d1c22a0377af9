package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Dosada05/game-booking-system/middleware"
	"github.com/Dosada05/game-booking-system/services"

	"github.com/go-chi/chi/v5"
)

type GameHandler struct {
	gameService    services.GameService
	bookingService services.BookingService
}

func NewGameHandler(gs services.GameService, bs services.BookingService) *GameHandler {
	return &GameHandler{
		gameService:    gs,
		bookingService: bs,
	}
}

// CreateGame создаёт игру; создатель становится организатором и первым игроком.
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input services.CreateGameInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	game, err := h.gameService.CreateGame(r.Context(), currentUserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"game": game,
	}

	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	games, err := h.gameService.ListUpcoming(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"games": games,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameHandler) ListCurrent(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	games, err := h.gameService.ListCurrent(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"games": games,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameHandler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	gameID, err := getGameIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	players, err := h.gameService.ListPlayers(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"players": players,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	gameID, err := getGameIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	requests, err := h.gameService.ListRequests(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"requests": requests,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RequestJoin создаёт заявку на вступление с обязательным комментарием.
func (h *GameHandler) RequestJoin(w http.ResponseWriter, r *http.Request) {
	gameID, err := getGameIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input struct {
		Comment string `json:"comment"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.gameService.RequestJoin(r.Context(), gameID, currentUserID, input.Comment); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"message": "join request created",
	}

	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	gameID, err := getGameIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	if err := h.gameService.CancelRequest(r.Context(), gameID, currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"message": "join request cancelled",
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AcceptRequest принимает заявку; доступно только организатору игры.
func (h *GameHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	gameID, err := getGameIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input struct {
		UserID int `json:"user_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.UserID <= 0 {
		badRequestResponse(w, r, errors.New("user_id is required"))
		return
	}

	if err := h.gameService.AcceptRequest(r.Context(), gameID, input.UserID, currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"message": "request accepted",
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameHandler) ToggleMatchFull(w http.ResponseWriter, r *http.Request) {
	gameID, err := getGameIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	matchFull, err := h.gameService.ToggleMatchFull(r.Context(), gameID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"match_full": matchFull,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameHandler) SubmitQuery(w http.ResponseWriter, r *http.Request) {
	gameID, err := getGameIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input struct {
		Question string `json:"question"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.gameService.SubmitQuery(r.Context(), gameID, currentUserID, input.Question); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"message": "query submitted",
	}

	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Book бронирует корт для игры; доступно только организатору.
func (h *GameHandler) Book(w http.ResponseWriter, r *http.Request) {
	gameID, err := getGameIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input services.BookInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.GameID = gameID

	result, err := h.bookingService.Book(r.Context(), currentUserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"booking": result,
	}

	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func getGameIDFromURL(r *http.Request) (int, error) {
	idStr := chi.URLParam(r, "gameID")
	if idStr == "" {
		return 0, errors.New("missing game ID in URL path")
	}

	gameID, err := strconv.Atoi(idStr)
	if err != nil || gameID <= 0 {
		return 0, errors.New("invalid game ID in URL path")
	}

	return gameID, nil
}
