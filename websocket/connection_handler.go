// websocket/connection_handler.go
package websocket

import (
	"log"
	"net/http"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
)

// HandleConnections обрабатывает WebSocket-соединения.
// Начальный фильтр берется из query-параметров (zone, country, start, end).
func (manager *Manager) HandleConnections(w http.ResponseWriter, r *http.Request) {
	filter, err := models.ParseFilter(r.URL.Query())
	if err != nil {
		log.Printf("Неверные параметры фильтра %s: %v", r.URL.RawQuery, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Ошибка при установке WebSocket-соединения:", err)
		return
	}

	client := newClient(conn, filter)

	select {
	case manager.Register <- client:
	case <-manager.done:
		conn.Close()
		return
	}
	log.Printf("✅ Клиент %s подключился с адреса %s", client.ID, r.RemoteAddr)

	go client.writePump()
	go client.readPump(manager)

	// Первый дашборд отправляется сразу после подключения
	go manager.renderFor(client)
}
