// websocket/manager.go
package websocket

import (
	"context"
	"encoding/json"
	"log"

	"github.com/LilVoxy/wash_dashboard/ETL/metrics"
)

// NewManager создает менеджер WebSocket-соединений
func NewManager(renderer Renderer) *Manager {
	return &Manager{
		Clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		renderer:   renderer,
		refresh:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Run обслуживает регистрацию клиентов и запросы на обновление до отмены ctx
func (manager *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for id, client := range manager.Clients {
				client.close()
				delete(manager.Clients, id)
			}
			manager.publish()
			close(manager.done)
			return

		case client := <-manager.Register:
			manager.Clients[client.ID] = client
			manager.publish()
			log.Printf("👤 Клиент %s подключился", client.ID)

		case client := <-manager.Unregister:
			if _, ok := manager.Clients[client.ID]; ok {
				delete(manager.Clients, client.ID)
				client.close()
				manager.publish()
				log.Printf("👤 Клиент %s отключился", client.ID)
			}

		case <-manager.refresh:
			clients := manager.List()
			log.Printf("🔄 Обновление дашборда для %d клиентов", len(clients))
			for _, client := range clients {
				go manager.renderFor(client)
			}
		}
	}
}

// Refresh просит перерисовать дашборд всем клиентам, каждому со своим фильтром.
// Повторные запросы до начала обработки объединяются.
func (manager *Manager) Refresh() {
	select {
	case manager.refresh <- struct{}{}:
	default:
	}
}

// List возвращает подключенных клиентов
func (manager *Manager) List() []*Client {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return append([]*Client(nil), manager.snapshot...)
}

// ClientCount возвращает число подключенных клиентов
func (manager *Manager) ClientCount() int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return len(manager.snapshot)
}

func (manager *Manager) publish() {
	clients := make([]*Client, 0, len(manager.Clients))
	for _, client := range manager.Clients {
		clients = append(clients, client)
	}

	manager.mu.Lock()
	manager.snapshot = clients
	manager.mu.Unlock()

	metrics.SetWebsocketClients(len(clients))
}

// renderFor строит дашборд с фильтром клиента и ставит его в очередь отправки
func (manager *Manager) renderFor(client *Client) {
	dashboard, err := manager.renderer.Render(client.Filter())
	if err != nil {
		log.Printf("❌ Ошибка рендера для клиента %s: %v", client.ID, err)
		client.enqueue(errorReply(err.Error()))
		return
	}

	data, err := json.Marshal(dashboard)
	if err != nil {
		log.Printf("❌ Ошибка сериализации дашборда: %v", err)
		return
	}

	reply, _ := json.Marshal(Reply{Type: TypeDashboard, Data: data})
	if !client.enqueue(reply) {
		log.Printf("⚠️ Клиент %s не принял обновление дашборда", client.ID)
	}
}

func errorReply(message string) []byte {
	reply, _ := json.Marshal(Reply{Type: TypeError, Error: message})
	return reply
}
