package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"fraudcheck/fraud"
)

// MessageType 消息类型
type MessageType string

const (
	VerdictMessage         MessageType = "verdict"
	PredictionErrorMessage MessageType = "prediction_error"
)

// VerdictEvent 推送给客户端的单次检测结果
type VerdictEvent struct {
	Type            MessageType `json:"type"`
	ID              string      `json:"id"`
	Timestamp       time.Time   `json:"timestamp"`
	TransactionType string      `json:"transaction_type"`
	Features        []float64   `json:"features"`
	Verdict         string      `json:"verdict,omitempty"`
	Label           *int        `json:"label,omitempty"`
	Message         string      `json:"message"`
	Cached          bool        `json:"cached,omitempty"`
}

// ClientMessage 客户端发来的订阅消息
type ClientMessage struct {
	Type  string      `json:"type"`
	Topic MessageType `json:"topic"`
}

// Client WebSocket客户端
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	clientID string

	mu            sync.RWMutex
	subscriptions map[MessageType]bool // 为空时接收全部消息
}

type broadcastMessage struct {
	topic   MessageType
	payload []byte
}

// VerdictHub WebSocket中心，把检测结果广播给所有订阅者
type VerdictHub struct {
	clients    map[*Client]bool
	broadcast  chan broadcastMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewVerdictHub 创建WebSocket中心
func NewVerdictHub(logger *zap.Logger) *VerdictHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &VerdictHub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan broadcastMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动WebSocket中心，阻塞直到Stop
func (h *VerdictHub) Start() {
	defer h.logger.Info("verdict hub stopped")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client connected", zap.String("client", client.clientID), zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client disconnected", zap.String("client", client.clientID), zap.Int("total", total))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.subscribed(message.topic) {
					continue
				}
				select {
				case client.send <- message.payload:
				default:
					// 慢客户端直接断开
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			// 关闭所有连接
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop 停止WebSocket中心
func (h *VerdictHub) Stop() {
	h.cancel()
}

// ClientCount 当前连接数
func (h *VerdictHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket 处理WebSocket连接
func (h *VerdictHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:          conn,
		send:          make(chan []byte, 64),
		clientID:      uuid.NewString(),
		subscriptions: make(map[MessageType]bool),
	}

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		conn.Close()
		return
	}

	// 启动客户端协程
	go client.writePump(h.logger)
	go client.readPump(h)
}

// Record 实现 fraud.Sink，把结果推送给客户端
func (h *VerdictHub) Record(_ context.Context, outcome fraud.Outcome) error {
	event := NewVerdictEvent(outcome)
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	h.Broadcast(event.Type, payload)
	return nil
}

// Broadcast 广播消息，队列满时丢弃
func (h *VerdictHub) Broadcast(topic MessageType, payload []byte) {
	select {
	case h.broadcast <- broadcastMessage{topic: topic, payload: payload}:
	default:
		h.logger.Warn("verdict broadcast queue is full, dropping message", zap.String("topic", string(topic)))
	}
}

// NewVerdictEvent 把检测结果转换为推送消息
func NewVerdictEvent(outcome fraud.Outcome) VerdictEvent {
	event := VerdictEvent{
		Type:            VerdictMessage,
		ID:              outcome.ID,
		Timestamp:       outcome.CheckedAt,
		TransactionType: outcome.Type.String(),
		Features:        outcome.Vector.Values(),
		Message:         outcome.Message(),
		Cached:          outcome.Cached,
	}
	if outcome.OK() {
		label := outcome.Verdict.Label()
		event.Label = &label
		event.Verdict = outcome.Verdict.String()
	} else {
		event.Type = PredictionErrorMessage
	}
	return event
}

func (c *Client) subscribed(topic MessageType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscriptions) == 0 || c.subscriptions[topic]
}

// writePump WebSocket写入泵
func (c *Client) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("websocket write failed", zap.String("client", c.clientID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump WebSocket读取泵，只处理订阅消息
func (c *Client) readPump(h *VerdictHub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.ctx.Done():
		}
		c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket read failed", zap.String("client", c.clientID), zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		c.handleClientMessage(msg)
	}
}

// handleClientMessage 处理客户端消息
func (c *Client) handleClientMessage(msg ClientMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Type {
	case "subscribe":
		c.subscriptions[msg.Topic] = true
	case "unsubscribe":
		delete(c.subscriptions, msg.Topic)
	}
}
