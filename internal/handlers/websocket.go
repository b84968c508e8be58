package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cosmic-chicken-backend/internal/models"
	"cosmic-chicken-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler owns the client hub and implements services.Broadcaster:
// display ticks, game-over payloads and round updates flow through it to
// every connected UI.
type WebSocketHandler struct {
	session *services.GameSession
	hub     *WebSocketHub
}

type WebSocketHub struct {
	clients    map[string]*websocket.Conn
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

type Client struct {
	ID   string
	Conn *websocket.Conn
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewWebSocketHandler() *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[string]*websocket.Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
	}

	go hub.run()

	return &WebSocketHandler{hub: hub}
}

// AttachSession wires the game session after construction; the hub is needed
// as a Broadcaster before the session exists.
func (h *WebSocketHandler) AttachSession(session *services.GameSession) {
	h.session = session
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &Client{
		ID:   uuid.New().String(),
		Conn: conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	h.sendInitialState(client)

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case "PING":
		h.sendPong(client)
	case "REFRESH":
		h.sendInitialState(client)
	}
}

func (h *WebSocketHandler) sendInitialState(client *Client) {
	if h.session == nil {
		return
	}

	msg := Message{
		Type: "STATE",
		Data: botStateJSON(h.session.State(), h.session.Display()),
	}
	client.Conn.WriteJSON(msg)
}

func (h *WebSocketHandler) sendPong(client *Client) {
	msg := Message{
		Type: "PONG",
		Data: gin.H{
			"timestamp": time.Now().Unix(),
		},
	}
	client.Conn.WriteJSON(msg)
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client.ID] = client.Conn
			log.Printf("Client registered: %s", client.ID)

		case client := <-hub.unregister:
			if _, ok := hub.clients[client.ID]; ok {
				delete(hub.clients, client.ID)
				log.Printf("Client unregistered: %s", client.ID)
			}

		case message := <-hub.broadcast:
			for _, conn := range hub.clients {
				conn.WriteJSON(message)
			}
		}
	}
}

// send drops messages instead of blocking: the interpolator ticks 10x per
// second and must never stall behind a slow consumer.
func (h *WebSocketHandler) send(msg *Message) {
	select {
	case h.hub.broadcast <- msg:
	default:
	}
}

func (h *WebSocketHandler) BroadcastDisplayUpdate(display models.DisplayState) {
	h.send(&Message{
		Type: "DISPLAY_UPDATE",
		Data: display,
	})
}

func (h *WebSocketHandler) BroadcastGameOver(result models.GameResult) {
	h.send(&Message{
		Type: "GAME_OVER",
		Data: resultJSON(result),
	})
}

func (h *WebSocketHandler) BroadcastRoundUpdate(state models.RoundState) {
	h.send(&Message{
		Type: "ROUND_UPDATE",
		Data: roundJSON(state),
	})
}

func (h *WebSocketHandler) BroadcastSyncLost() {
	h.send(&Message{
		Type: "SYNC_LOST",
		Data: gin.H{
			"message": "Game state could not be synced. Use force reset to recover.",
		},
	})
}
