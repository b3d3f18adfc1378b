// websocket/status.go
package websocket

import (
	"encoding/json"
	"net/http"
	"sort"
)

// Statuses возвращает сведения о подключенных клиентах, упорядоченные по времени подключения
func (manager *Manager) Statuses() []ClientStatus {
	clients := manager.List()
	statuses := make([]ClientStatus, 0, len(clients))
	for _, c := range clients {
		statuses = append(statuses, c.status())
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].ConnectedAt.Before(statuses[j].ConnectedAt)
	})
	return statuses
}

// HandleStatus отдает список подключенных клиентов и их фильтров
func (manager *Manager) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	json.NewEncoder(w).Encode(map[string]interface{}{
		"clients": manager.Statuses(),
		"count":   manager.ClientCount(),
	})
}
