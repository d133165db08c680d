package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/pokedexai/pokedex-agents/internal/bus"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin for development
		return true
	},
}

// Client represents a WebSocket monitor connection
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	clientID string
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// MonitorGateway bridges the EventBus to WebSocket monitor clients. Every
// bus event is serialized as a JSON frame and fanned out to all connected
// clients. The stream is one-way: client input is read only to keep the
// connection alive.
type MonitorGateway struct {
	hub         *Hub
	eventBus    *bus.EventBus
	logger      *logrus.Logger
	port        int
	server      *http.Server
	broadcastMu sync.Mutex
}

// NewMonitorGateway creates a new monitor gateway
func NewMonitorGateway(port int, eventBus *bus.EventBus, logger *logrus.Logger) *MonitorGateway {
	hub := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}

	gateway := &MonitorGateway{
		hub:      hub,
		eventBus: eventBus,
		logger:   logger,
		port:     port,
	}

	// Subscribe to all events from EventBus
	eventBus.SubscribeAll(gateway.handleEvent)

	return gateway
}

// Run starts the monitor gateway and blocks until the server stops.
func (gw *MonitorGateway) Run() error {
	go gw.hub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/monitor", gw.handleWebSocket)

	addr := fmt.Sprintf(":%d", gw.port)
	gw.server = &http.Server{Addr: addr, Handler: mux}

	gw.logger.Infof("Monitor gateway starting on %s", addr)

	return gw.server.ListenAndServe()
}

// Close shuts down the gateway's HTTP server.
func (gw *MonitorGateway) Close() error {
	if gw.server == nil {
		return nil
	}
	return gw.server.Close()
}

// handleWebSocket handles WebSocket upgrade and client connection
func (gw *MonitorGateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		gw.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	clientID := fmt.Sprintf("monitor-%d", time.Now().UnixNano())
	client := &Client{
		hub:      gw.hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		clientID: clientID,
	}

	gw.hub.register <- client
	gw.logger.Infof("Monitor client connected: %s", clientID)

	go client.writePump()
	go gw.readPump(client)
}

// readPump drains the connection so control frames are processed. Monitor
// clients have nothing to say; any text frames are discarded.
func (gw *MonitorGateway) readPump(client *Client) {
	defer func() {
		client.hub.unregister <- client
		_ = client.conn.Close()
		gw.logger.Infof("Monitor client disconnected: %s", client.clientID)
	}()

	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				gw.logger.Errorf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Send any additional queued messages separately
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					return
				}
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// hub.run handles client registration, unregistration and message broadcasting
func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// handleEvent serializes a bus event and broadcasts it to all clients
func (gw *MonitorGateway) handleEvent(event bus.Event) {
	// Serialize access to preserve event ordering on the wire
	gw.broadcastMu.Lock()
	defer gw.broadcastMu.Unlock()

	wsMessage := map[string]interface{}{
		"type":    string(event.Type),
		"payload": event.Payload,
	}

	messageBytes, err := json.Marshal(wsMessage)
	if err != nil {
		gw.logger.Errorf("Failed to marshal event: %v", err)
		return
	}

	gw.hub.broadcast <- messageBytes
}
