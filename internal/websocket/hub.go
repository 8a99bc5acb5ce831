package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"focustrack-backend/internal/middleware"
	"focustrack-backend/internal/tracker"
)

const eventsChannel = "focustrack:events"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub carries the extension's signal stream into the tracker and fans
// tracking-state transitions back out. With Redis configured, transitions
// travel over pub/sub so every server instance reaches its clients; without
// it the hub delivers locally.
type Hub struct {
	mu          sync.RWMutex
	connections map[string][]*websocket.Conn
	redisClient *redis.Client
	auth        *middleware.JWTAuth
	trk         *tracker.Tracker
	cancelSub   context.CancelFunc
}

func NewHub(redisClient *redis.Client, auth *middleware.JWTAuth, trk *tracker.Tracker) *Hub {
	return &Hub{
		connections: make(map[string][]*websocket.Conn),
		redisClient: redisClient,
		auth:        auth,
		trk:         trk,
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	uid, ok := h.auth.ParseToken(tokenStr)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.registerConnection(uid, conn)

	go func() {
		defer h.unregisterConnection(uid, conn)
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				break
			}
			h.handleSignal(payload)
		}
	}()
}

// handleSignal parses one inbound frame and feeds it to the tracker. Bad
// frames are logged and dropped; the stream stays up.
func (h *Hub) handleSignal(payload []byte) {
	var msg struct {
		Type      string `json:"type"`
		Domain    string `json:"domain"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Printf("WebSocket: dropping malformed signal: %v", err)
		return
	}

	ev := tracker.Event{Type: tracker.EventType(msg.Type), Domain: msg.Domain}
	switch ev.Type {
	case tracker.EventTabActivated, tracker.EventIdle, tracker.EventActive, tracker.EventShutdown:
	default:
		log.Printf("WebSocket: dropping signal with unknown type %q", msg.Type)
		return
	}
	if msg.Timestamp > 0 {
		ev.At = time.UnixMilli(msg.Timestamp)
	}
	h.trk.Deliver(ev)
}

// Broadcast pushes a tracker transition to connected clients, through
// Redis pub/sub when available.
func (h *Hub) Broadcast(tr tracker.Transition) {
	payload, err := json.Marshal(tr)
	if err != nil {
		log.Printf("WebSocket: failed to encode transition: %v", err)
		return
	}

	if h.redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.redisClient.Publish(ctx, eventsChannel, payload).Err(); err != nil {
			log.Printf("WebSocket: failed to publish transition: %v", err)
		}
		return
	}

	h.deliverLocal(payload)
}

func (h *Hub) deliverLocal(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conns := range h.connections {
		for _, conn := range conns {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("WebSocket: write failed: %v", err)
			}
		}
	}
}

func (h *Hub) registerConnection(uid string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[uid] = append(h.connections[uid], conn)

	// Start the pub/sub relay with the first connection.
	if h.redisClient != nil && h.cancelSub == nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelSub = cancel
		go h.subscribeToPubSub(ctx)
	}

	log.Printf("WebSocket connected: user %s (total: %d)", uid, len(h.connections[uid]))
}

func (h *Hub) unregisterConnection(uid string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[uid]
	for i, c := range conns {
		if c == conn {
			h.connections[uid] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[uid]) == 0 {
		delete(h.connections, uid)
	}

	// Last connection gone: stop relaying.
	if len(h.connections) == 0 && h.cancelSub != nil {
		h.cancelSub()
		h.cancelSub = nil
	}
}

func (h *Hub) subscribeToPubSub(ctx context.Context) {
	pubsub := h.redisClient.Subscribe(ctx, eventsChannel)
	defer pubsub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			h.deliverLocal([]byte(msg.Payload))
		}
	}
}
