// routes/api_routes.go
package routes

import (
	"net/http"

	"github.com/LilVoxy/wash_dashboard/ETL/metrics"
	"github.com/LilVoxy/wash_dashboard/websocket"
	"github.com/gorilla/mux"
)

// SetupRoutes настраивает все маршруты API, WebSocket и статики
func SetupRoutes(router *mux.Router, api *API, wsManager *websocket.Manager, staticDir string) {
	handle := func(path string, h http.HandlerFunc, methods ...string) {
		router.Handle(path, metrics.Instrument(path, h)).Methods(append(methods, http.MethodOptions)...)
	}

	// Данные дашборда
	handle("/api/dashboard", api.GetDashboardHandler, http.MethodGet)
	handle("/api/zones", api.GetZonesHandler, http.MethodGet)
	handle("/api/map", api.GetMapHandler, http.MethodGet)
	handle("/api/periods", api.GetPeriodsHandler, http.MethodGet)
	handle("/api/rankings", api.GetRankingsHandler, http.MethodGet)

	// Графики и выгрузки
	handle("/api/charts/{chart:[A-Za-z0-9_-]+}.png", api.GetChartHandler, http.MethodGet)
	handle("/api/export.xlsx", api.ExportXLSXHandler, http.MethodGet)
	handle("/api/export.csv", api.ExportCSVHandler, http.MethodGet)

	// Служебные
	handle("/api/refresh", api.RefreshHandler, http.MethodPost)
	handle("/api/health", api.HealthHandler, http.MethodGet)
	router.Handle("/metrics", metrics.Handler())

	if wsManager != nil {
		// Статусы WebSocket-клиентов
		handle("/api/clients", wsManager.HandleStatus, http.MethodGet)

		// WebSocket не оборачивается метриками: статусу ответа нужен http.Hijacker
		router.HandleFunc("/ws", wsManager.HandleConnections)
	}

	// Статические файлы
	if staticDir != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	}
}
