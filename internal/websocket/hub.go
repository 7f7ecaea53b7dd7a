package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dropmail/backend/internal/domain"
	"dropmail/backend/internal/service"
)

// MessageType 定义WebSocket消息类型
type MessageType string

const (
	MessageTypeNewMail MessageType = "new_mail"
	MessageTypePing    MessageType = "ping"
	MessageTypePong    MessageType = "pong"
)

// Message 定义WebSocket消息结构
type Message struct {
	Type      MessageType     `json:"type"`
	LocalPart string          `json:"localPart,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Client 代表一个已通过邮箱凭证认证的WebSocket连接
type Client struct {
	id        string
	localPart string
	conn      *websocket.Conn
	send      chan []byte
}

// Hub 管理所有WebSocket连接。
// 每个连接在建立时用邮箱凭证认证，只会收到自己邮箱的新邮件通知。
type Hub struct {
	clients    map[string]map[string]*Client // localPart -> clientID -> Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	mu         sync.RWMutex
	inboxes    *service.InboxService
	upgrader   websocket.Upgrader
	log        *zap.Logger
}

// NewHub 创建WebSocket Hub
func NewHub(inboxes *service.InboxService, allowedOrigins []string, log *zap.Logger) *Hub {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	return &Hub{
		clients:    make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		inboxes:    inboxes,
		upgrader:   newUpgrader(allowedOrigins),
		log:        log,
	}
}

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			requestOrigin := r.Header.Get("Origin")
			if requestOrigin == "" {
				return true
			}
			for _, origin := range allowedOrigins {
				if origin == "*" || origin == requestOrigin {
					return true
				}
			}
			return false
		},
	}
}

// Run 运行 Hub 的事件循环，直到 ctx 被取消。
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.localPart] == nil {
				h.clients[client.localPart] = make(map[string]*Client)
			}
			h.clients[client.localPart][client.id] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if peers, ok := h.clients[client.localPart]; ok {
				if _, ok := peers[client.id]; ok {
					delete(peers, client.id)
					close(client.send)
					if len(peers) == 0 {
						delete(h.clients, client.localPart)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			h.mu.RLock()
			for _, client := range h.clients[msg.LocalPart] {
				select {
				case client.send <- payload:
				default:
					// 发送缓冲已满的连接直接放弃本条通知
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NotifyNewMail 向邮箱的所有在线连接推送新邮件摘要。
// 实现 service.Notifier。
func (h *Hub) NotifyNewMail(localPart string, summary domain.MessageSummary) {
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	msg := &Message{
		Type:      MessageTypeNewMail,
		LocalPart: localPart,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("websocket broadcast queue full, notification dropped",
			zap.String("local_part", localPart),
		)
	}
}

// HandleConnection 处理 WebSocket 升级请求。
// 凭证通过查询参数传入，验证失败时不升级连接。
func (h *Hub) HandleConnection(c *gin.Context) {
	localPart := c.Query("localPart")
	password := c.Query("password")

	if err := h.inboxes.Verify(localPart, password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "认证失败"})
		return
	}
	normalized, err := domain.NormalizeLocalPart(localPart)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "认证失败"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		id:        uuid.NewString(),
		localPart: normalized,
		conn:      conn,
		send:      make(chan []byte, 64),
	}
	h.register <- client

	go client.writePump()
	go client.readPump(h)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, peers := range h.clients {
		for _, client := range peers {
			close(client.send)
			_ = client.conn.Close()
		}
	}
	h.clients = make(map[string]map[string]*Client)
}

// writePump 将通知写入连接，并定期发送 ping 保活
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 消费客户端消息，连接断开时注销客户端
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
