// Package gateway pushes chat events to connected clients over socket.io.
// Clients join per-chat rooms; broadcasts fan out through Redis so every
// server instance delivers to its own sockets.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/famedu/core/internal/models"
	pkgredis "github.com/famedu/core/internal/pkg/redis"
	"github.com/gin-gonic/gin"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

const (
	namespaceChat = "/chat"
	redisChanChat = "fe:gateway:chat"

	EventMessageCreate    = "message_create"
	EventReplyCreate      = "reply_create"
	EventChatStatusUpdate = "chat_status_update"
)

// Message is the envelope used by hub broadcasts and Redis fan-out. Room is
// the chat ID; an empty room broadcasts to every connected client.
type Message struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
	Room    string      `json:"room,omitempty"`
}

type gatewayPayload struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub manages the chat namespace and cluster fan-out.
type Hub struct {
	mu        sync.RWMutex
	roomCount map[string]int

	broadcast chan Message

	rc     *pkgredis.Client
	logger *zap.Logger
	sio    *socketio.Server
}

func NewHub(rc *pkgredis.Client, logger *zap.Logger) *Hub {
	h := &Hub{
		roomCount: make(map[string]int),
		broadcast: make(chan Message, 256),
		rc:        rc,
		logger:    logger,
		sio:       socketio.NewServer(nil, nil),
	}
	h.registerNamespace()
	return h
}

func (h *Hub) registerNamespace() {
	ns := h.sio.Of(namespaceChat, nil)
	_ = ns.On("connection", func(args ...any) {
		client, ok := args[0].(*socketio.Socket)
		if !ok {
			return
		}
		_ = client.Emit("message", gatewayPayload{Type: "GATEWAY_CONNECT", Data: "WebSocket connected"})

		joined := make(map[string]struct{})
		var joinedMu sync.Mutex

		_ = client.On("join", func(joinArgs ...any) {
			chatID := firstStringArg(joinArgs)
			if chatID == "" {
				return
			}
			client.Join(socketio.Room(chatID))
			joinedMu.Lock()
			if _, ok := joined[chatID]; !ok {
				joined[chatID] = struct{}{}
				h.addRoomMember(chatID, 1)
			}
			joinedMu.Unlock()
		})

		_ = client.On("leave", func(leaveArgs ...any) {
			chatID := firstStringArg(leaveArgs)
			if chatID == "" {
				return
			}
			client.Leave(socketio.Room(chatID))
			joinedMu.Lock()
			if _, ok := joined[chatID]; ok {
				delete(joined, chatID)
				h.addRoomMember(chatID, -1)
			}
			joinedMu.Unlock()
		})

		_ = client.On("disconnect", func(_ ...any) {
			joinedMu.Lock()
			for chatID := range joined {
				h.addRoomMember(chatID, -1)
			}
			joined = make(map[string]struct{})
			joinedMu.Unlock()
		})
	})
}

func firstStringArg(args []any) string {
	if len(args) == 0 {
		return ""
	}
	s, _ := args[0].(string)
	return strings.TrimSpace(s)
}

func (h *Hub) addRoomMember(room string, delta int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.roomCount[room] += delta
	if h.roomCount[room] <= 0 {
		delete(h.roomCount, room)
	}
}

// Run starts the hub loop and Redis subscriber.
func (h *Hub) Run(ctx context.Context) {
	if h.rc != nil {
		go h.subscribeRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.sio.Close(nil)
			return

		case msg := <-h.broadcast:
			h.deliver(msg)

			if h.rc != nil {
				data, err := json.Marshal(msg)
				if err != nil {
					continue
				}
				if err := h.rc.Publish(ctx, redisChanChat, string(data)); err != nil && h.logger != nil {
					h.logger.Warn("gateway publish failed", zap.Error(err))
				}
			}
		}
	}
}

func (h *Hub) deliver(msg Message) {
	ns := h.sio.Of(namespaceChat, nil)
	payload := gatewayPayload{Type: msg.Event, Data: msg.Payload}
	if msg.Room == "" {
		ns.Emit("message", payload)
		return
	}
	ns.To(socketio.Room(msg.Room)).Emit("message", payload)
}

// subscribeRedis delivers broadcasts published by other server instances.
func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rc.Subscribe(ctx, redisChanChat)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return

		case redisMsg, ok := <-ch:
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(redisMsg.Payload), &msg); err != nil {
				continue
			}
			h.deliver(msg)
		}
	}
}

// Broadcast sends an event to the chat's room, or to everyone when chatID
// is empty.
func (h *Hub) Broadcast(event string, payload interface{}, chatID string) {
	h.broadcast <- Message{Event: event, Payload: payload, Room: chatID}
}

// ClientCount returns joined members of a room, or all room memberships.
func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room == "" {
		total := 0
		for _, n := range h.roomCount {
			total += n
		}
		return total
	}
	return h.roomCount[room]
}

// MessageCreated implements the message module's Notifier.
func (h *Hub) MessageCreated(chatID string, msg *models.MessageModel) {
	h.Broadcast(EventMessageCreate, msg, chatID)
}

// ChatStatusChanged implements the chat module's Notifier.
func (h *Hub) ChatStatusChanged(chatID string, status models.ChatStatus) {
	h.Broadcast(EventChatStatusUpdate, gin.H{"chat_id": chatID, "status": status}, chatID)
}

// ReplyCommitted implements the responder's Events.
func (h *Hub) ReplyCommitted(chatID string, segments []string, machineScore float64) {
	h.Broadcast(EventReplyCreate, gin.H{
		"chat_id":       chatID,
		"segments":      segments,
		"machine_score": machineScore,
	}, chatID)
}

// ChatSuspended implements the responder's Events.
func (h *Hub) ChatSuspended(chatID string) {
	h.Broadcast(EventChatStatusUpdate, gin.H{"chat_id": chatID, "status": models.ChatSuspended}, chatID)
}

// Handler returns the socket.io HTTP handler mounted at /socket.io.
func (h *Hub) Handler() http.Handler {
	return h.sio.ServeHandler(nil)
}

// RegisterRoutes mounts socket.io and the stats endpoint.
func RegisterRoutes(rg *gin.RouterGroup, hub *Hub) {
	handler := gin.WrapH(hub.Handler())
	rg.Any("/socket.io", handler)
	rg.Any("/socket.io/*any", handler)

	rg.GET("/gateway/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"memberships": hub.ClientCount(""),
		})
	})
}
