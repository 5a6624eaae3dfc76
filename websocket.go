package bme280

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// writeWait bounds a single message write to one client.
const writeWait = 10 * time.Second

// Hub fans JSON messages out to every connected websocket client.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan interface{}
	upgrader   websocket.Upgrader
	clientsMux sync.Mutex
	writeWait  time.Duration
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan interface{}, 16),
		writeWait: writeWait,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocket upgrade error: %v", err)
		return
	}
	defer ws.Close()

	h.clientsMux.Lock()
	h.clients[ws] = true
	h.clientsMux.Unlock()

	log.Debugf("WebSocket client connected from %s", r.RemoteAddr)
	defer func() {
		h.clientsMux.Lock()
		delete(h.clients, ws)
		h.clientsMux.Unlock()
		log.Debugf("WebSocket client %s disconnected", r.RemoteAddr)
	}()

	for {
		// Clients never send anything; reading detects the close.
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

// Run delivers broadcast messages until done is closed.
func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case msg := <-h.broadcast:
			h.send(msg)
		case <-done:
			return
		}
	}
}

func (h *Hub) send(msg interface{}) {
	message, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error marshaling message: %v", err)
		return
	}
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for client := range h.clients {
		// Clients that stopped reading are dropped once the deadline passes.
		client.SetWriteDeadline(time.Now().Add(h.writeWait))
		if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Warnf("WebSocket error: %v", err)
			client.Close()
			delete(h.clients, client)
		}
	}
}

// Broadcast queues msg for delivery. It blocks while the queue is full.
func (h *Hub) Broadcast(msg interface{}) {
	h.broadcast <- msg
}

func (h *Hub) clientCount() int {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	return len(h.clients)
}
