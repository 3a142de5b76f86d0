package hub

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/cafe-pos/utils"
)

// Event types pushed to POS screens.
const (
	EventTableUpdate = "table_update"
	EventTableCreate = "table_create"
	EventTableDelete = "table_delete"
	EventBillUpdate  = "bill_update"
	EventBillPaid    = "bill_paid"
	EventMenuUpdate  = "menu_update"
	EventStockLow    = "stock_low"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Hub keeps every connected client together with the account that opened it.
type Hub struct {
	clients map[Conn]string
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[Conn]string)}
}

var defaultHub = NewHub()

func Default() *Hub {
	return defaultHub
}

func (h *Hub) Register(conn Conn, userName string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = userName
}

func (h *Hub) Unregister(conn Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Broadcast sends msg to all clients; a client that fails the write is dropped.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Errorf("Error marshaling %s message: %v", msg.Event, err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn, userName := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.Warnf("Dropping websocket client %s: %v", userName, err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

func BroadcastMessage(msg Message) {
	defaultHub.Broadcast(msg)
}

func BroadcastTableUpdate(data interface{}) {
	defaultHub.Broadcast(Message{Event: EventTableUpdate, Data: data})
}

func BroadcastBillUpdate(data interface{}) {
	defaultHub.Broadcast(Message{Event: EventBillUpdate, Data: data})
}

func BroadcastBillPaid(data interface{}) {
	defaultHub.Broadcast(Message{Event: EventBillPaid, Data: data})
}

func (h *Hub) BroadcastStockLow(data interface{}) {
	h.Broadcast(Message{Event: EventStockLow, Data: data})
}
