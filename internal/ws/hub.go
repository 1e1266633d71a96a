package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
)

// Константы
const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxSendChannelSize = 256
)

// Типы событий
const (
	EventTypeDocumentCreated = "document_created"
	EventTypeDocumentUpdated = "document_updated"
	EventTypeDocumentDeleted = "document_deleted"
	EventTypeSyncCompleted   = "sync_completed"
)

// Event исходящее событие для UI
type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Metrics метрики хаба
type Metrics struct {
	EventsSent  atomic.Int64
	Connections atomic.Int64
	Errors      atomic.Int64
}

// Hub рассылает события документов всем подключенным клиентам.
// Комнат нет: все слушают один поток событий.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]bool
	shutdown chan struct{}
	closed   bool
	metrics  *Metrics
}

// NewHub создает новый хаб
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[*Client]bool),
		shutdown: make(chan struct{}),
		metrics:  &Metrics{},
	}
}

// PublishDocumentEvent отправляет событие всем клиентам
func (h *Hub) PublishDocumentEvent(eventType string, payload any) {
	ev := Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("hub: failed to marshal event: %v", err)
		h.metrics.Errors.Inc()
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		client.SendRaw(data)
	}

	h.metrics.EventsSent.Inc()
}

// HandleEvents апгрейдит соединение и подключает клиента к хабу
func (h *Hub) HandleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("hub: upgrade failed: %v", err)
		return
	}

	client := NewClient(conn)
	h.register(client)
	h.metrics.Connections.Inc()

	go func() {
		defer h.unregister(client)
		client.WritePump()
	}()
	go client.ReadPump()
}

// GetMetrics возвращает метрики хаба
func (h *Hub) GetMetrics() (eventsSent, connections int64) {
	return h.metrics.EventsSent.Load(), h.metrics.Connections.Load()
}

// ClientCount возвращает число подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown останавливает хаб и закрывает все соединения
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	close(h.shutdown)

	for client := range h.clients {
		client.Close()
	}
	h.clients = make(map[*Client]bool)
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		client.Close()
		return
	}
	h.clients[client] = true
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.Close()
	}
}

// Client представляет WebSocket соединение
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	mu       sync.RWMutex
	isClosed bool
}

// NewClient создает нового клиента
func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, maxSendChannelSize),
	}
}

// ReadPump вычитывает входящие фреймы. Клиенты ничего не присылают,
// но pump нужен для обработки pong и закрытия.
func (c *Client) ReadPump() {
	defer c.Close()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				log.Printf("client read error: %v", err)
			}
			return
		}
	}
}

// WritePump отправляет события клиенту
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				// Канал закрыт
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendRaw отправляет сырые данные
func (c *Client) SendRaw(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.isClosed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		// Перегруз - пропускаем сообщение
		return false
	}
}

// Close закрывает соединение
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isClosed {
		return
	}

	c.isClosed = true
	close(c.send)
	c.conn.Close()
}
