// websocket/client.go
package websocket

import (
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func newClient(conn *websocket.Conn, filter models.FilterParams) *Client {
	now := time.Now()
	return &Client{
		ID:          uuid.NewString(),
		Socket:      conn,
		Send:        make(chan []byte, sendBufferSize),
		ConnectedAt: now,
		filter:      filter,
		lastSeen:    now,
	}
}

// Filter возвращает текущий фильтр клиента
func (c *Client) Filter() models.FilterParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// SetFilter заменяет фильтр клиента
func (c *Client) SetFilter(filter models.FilterParams) {
	c.mu.Lock()
	c.filter = filter
	c.mu.Unlock()
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

func (c *Client) status() ClientStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ClientStatus{
		ID:          c.ID,
		Filter:      c.filter,
		ConnectedAt: c.ConnectedAt,
		LastSeen:    c.lastSeen,
	}
}

// enqueue кладет сообщение в очередь отправки.
// Возвращает false, если клиент уже закрыт или не успевает читать.
func (c *Client) enqueue(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- message:
		return true
	default:
		return false
	}
}

// close закрывает очередь отправки, writePump после этого завершает соединение
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}
