package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/escrowbid-backend/internal/goroutine"
	"github.com/ignatzorin/escrowbid-backend/internal/logger"
)

// Hub управляет всеми WebSocket клиентами. Клиенты индексируются по пользователю и роли.
type Hub struct {
	clients    map[uuid.UUID]map[*Client]struct{}
	roles      map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	ctx        context.Context
	log        logrus.FieldLogger
}

type message struct {
	userID  uuid.UUID
	role    string
	payload []byte
}

// NewHub создаёт новый хаб. Хаб работает до отмены ctx.
func NewHub(ctx context.Context) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		roles:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 32),
		ctx:        ctx,
		log:        logger.Component("ws"),
	}
}

// Run запускает главный цикл хаба. Все изменения карт клиентов выполняются только здесь.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg)
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// PublishToUser отправляет событие всем подключениям пользователя.
func (h *Hub) PublishToUser(userID uuid.UUID, event string, data any) error {
	return h.publish(message{userID: userID}, event, data)
}

// PublishToRole отправляет событие всем подключённым участникам с ролью.
func (h *Hub) PublishToRole(role string, event string, data any) error {
	return h.publish(message{role: role}, event, data)
}

func (h *Hub) publish(msg message, event string, data any) error {
	// Сообщение для клиента: "type" содержит имя события, "data" полезную нагрузку.
	raw, err := json.Marshal(map[string]any{
		"type": event,
		"data": data,
	})
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}
	msg.payload = raw

	select {
	case h.broadcast <- msg:
		return nil
	case <-h.ctx.Done():
		return h.ctx.Err()
	}
}

func (h *Hub) addClient(client *Client) {
	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}

	if _, ok := h.roles[client.role]; !ok {
		h.roles[client.role] = make(map[*Client]struct{})
	}
	h.roles[client.role][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	if clients, ok := h.clients[client.userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.userID)
		}
	}
	if clients, ok := h.roles[client.role]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.roles, client.role)
		}
	}
}

func (h *Hub) send(msg message) {
	targets := h.clients[msg.userID]
	if msg.role != "" {
		targets = h.roles[msg.role]
	}

	for client := range targets {
		select {
		case client.send <- msg.payload:
		default:
			// медленный клиент отключается, Close вызывает Unregister и не должен блокировать цикл
			goroutine.SafeGo(client.Close)
		}
	}
}
