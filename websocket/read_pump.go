// websocket/read_pump.go
package websocket

import (
	"encoding/json"
	"log"
	"net/url"
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/gorilla/websocket"
)

// readPump обрабатывает чтение сообщений от клиента
func (c *Client) readPump(manager *Manager) {
	defer func() {
		select {
		case manager.Unregister <- c:
		case <-manager.done:
		}
		c.Socket.Close()
		log.Printf("Завершение readPump для клиента %s", c.ID)
	}()

	c.Socket.SetReadLimit(maxMessageSize)
	c.Socket.SetReadDeadline(time.Now().Add(pongWait))
	c.Socket.SetPongHandler(func(string) error {
		c.touch()
		c.Socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Ошибка: %v", err)
			}
			break
		}
		c.touch()

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Println("Ошибка декодирования сообщения:", err)
			c.enqueue(errorReply("неверный формат сообщения"))
			continue
		}

		switch msg.Type {
		case TypePing:
			pong, _ := json.Marshal(Reply{Type: TypePong})
			c.enqueue(pong)

		case TypeFilter:
			filter, err := msg.filter()
			if err != nil {
				c.enqueue(errorReply(err.Error()))
				continue
			}
			c.SetFilter(filter)
			manager.renderFor(c)

		case TypeRefresh:
			manager.renderFor(c)

		default:
			log.Printf("Неизвестный тип сообщения %q от клиента %s", msg.Type, c.ID)
		}
	}
}

// filter разбирает поля сообщения теми же правилами, что и query-параметры
func (m Message) filter() (models.FilterParams, error) {
	values := url.Values{}
	values.Set("zone", m.Zone)
	values.Set("country", m.Country)
	values.Set("start", m.Start)
	values.Set("end", m.End)
	return models.ParseFilter(values)
}
