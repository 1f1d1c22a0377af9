package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/Dosada05/game-booking-system/live"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене здесь должна быть проверка Origin.
		return true
	},
}

type WebSocketHandler struct {
	hub *live.Hub
}

func NewWebSocketHandler(hub *live.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
	}
}

// ServeWs подключает клиента к комнате игры: /ws/games/{gameID}.
// Все события жизненного цикла игры рассылаются в её комнату.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	gameIDStr := chi.URLParam(r, "gameID")
	gameID, err := strconv.Atoi(gameIDStr)
	if err != nil || gameID <= 0 {
		http.Error(w, "Invalid gameID", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection for game %d: %v", gameID, err)
		return
	}

	client := &live.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: live.GameRoom(gameID),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
