// websocket/types.go
package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/LilVoxy/wash_dashboard/presentation"
	"github.com/gorilla/websocket"
)

// Renderer строит дашборд для набора фильтров
type Renderer interface {
	Render(filter models.FilterParams) (*presentation.Dashboard, error)
}

// Message - входящее сообщение клиента.
// Поля фильтра имеют тот же смысл, что и query-параметры HTTP API.
type Message struct {
	Type    string `json:"type"`
	Zone    string `json:"zone,omitempty"`
	Country string `json:"country,omitempty"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
}

// Reply - исходящее сообщение сервера
type Reply struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Клиент WebSocket
type Client struct {
	ID          string
	Socket      *websocket.Conn
	Send        chan []byte
	ConnectedAt time.Time

	mu       sync.Mutex
	filter   models.FilterParams
	lastSeen time.Time
	closed   bool
}

// ClientStatus - сведения о подключенном клиенте для HTTP
type ClientStatus struct {
	ID          string              `json:"id"`
	Filter      models.FilterParams `json:"filter"`
	ConnectedAt time.Time           `json:"connected_at"`
	LastSeen    time.Time           `json:"last_seen"`
}

// Менеджер WebSocket-соединений
type Manager struct {
	Clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client

	renderer Renderer
	refresh  chan struct{}
	done     chan struct{}

	// Копия списка клиентов для чтения вне цикла Run
	mu       sync.RWMutex
	snapshot []*Client
}

// Конфигурация WebSocket-соединения
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Дашборд открывается с любого источника
	},
}
