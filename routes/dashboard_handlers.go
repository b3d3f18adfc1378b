// routes/dashboard_handlers.go
package routes

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/extractors"
	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/LilVoxy/wash_dashboard/ETL/ranking"
	"github.com/LilVoxy/wash_dashboard/presentation"
	"github.com/gorilla/mux"
)

// Renderer строит дашборд и возвращает результат преобразования, из которого он собран
type Renderer interface {
	RenderData(filter models.FilterParams) (*presentation.Dashboard, *models.TransformedData, error)
}

// Refresher сбрасывает закэшированные файлы и перерисовывает дашборды подключенных клиентов
type Refresher interface {
	Refresh()
}

// API обработчики HTTP API дашборда
type API struct {
	renderer  Renderer
	refresher Refresher
}

// NewAPI создает обработчики API. refresher может быть nil.
func NewAPI(renderer Renderer, refresher Refresher) *API {
	return &API{
		renderer:  renderer,
		refresher: refresher,
	}
}

// ZonesResponse ответ API для списка зон
type ZonesResponse struct {
	State    string                 `json:"state"`
	Zones    []presentation.ZoneRow `json:"zones"`
	Warnings []string               `json:"warnings"`
}

// PeriodsResponse ответ API для помесячных рядов
type PeriodsResponse struct {
	State    string                `json:"state"`
	Series   []presentation.Series `json:"series"`
	Forecast *presentation.Series  `json:"forecast"`
	Warnings []string              `json:"warnings"`
}

// RankingsResponse ответ API для рейтинга зон
type RankingsResponse struct {
	Metric string             `json:"metric"`
	Best   *ranking.ZoneRank  `json:"best"`
	Worst  *ranking.ZoneRank  `json:"worst"`
	Ranks  []ranking.ZoneRank `json:"ranks"`
}

// ErrorResponse ответ API при ошибке рендера
type ErrorResponse struct {
	State string `json:"state"`
	Error string `json:"error"`
}

// GetDashboardHandler отдает полный дашборд для фильтра из query-параметров
func (a *API) GetDashboardHandler(w http.ResponseWriter, r *http.Request) {
	d, _, ok := a.render(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GetZonesHandler отдает строки зон
func (a *API) GetZonesHandler(w http.ResponseWriter, r *http.Request) {
	d, _, ok := a.render(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ZonesResponse{State: d.State, Zones: d.Zones, Warnings: d.Warnings})
}

// GetMapHandler отдает слой карты. Показатель задается параметром metric (по умолчанию safeAccess).
func (a *API) GetMapHandler(w http.ResponseWriter, r *http.Request) {
	_, data, ok := a.render(w, r)
	if !ok {
		return
	}

	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = presentation.MetricSafeAccess
	}
	writeJSON(w, http.StatusOK, presentation.DefaultAdapter{}.MapLayer(metric, data.Zones))
}

// GetPeriodsHandler отдает помесячные ряды и прогноз
func (a *API) GetPeriodsHandler(w http.ResponseWriter, r *http.Request) {
	d, _, ok := a.render(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, PeriodsResponse{State: d.State, Series: d.Series, Forecast: d.Forecast, Warnings: d.Warnings})
}

// GetRankingsHandler отдает рейтинг зон по показателю metric (по умолчанию safeAccess).
// limit ограничивает число позиций в ranks, лучшая и худшая зоны считаются по всему рейтингу.
func (a *API) GetRankingsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{State: presentation.StateError, Error: "неверный параметр limit: " + raw})
			return
		}
		limit = n
	}

	_, data, ok := a.render(w, r)
	if !ok {
		return
	}

	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = presentation.MetricSafeAccess
	}

	ranks := ranking.RankZones(data.Zones, metric, false, ranking.DefaultConfig())
	resp := RankingsResponse{Metric: metric, Ranks: ranking.Top(ranks, limit)}
	if len(ranks) > 0 {
		resp.Best = &ranks[0]
		resp.Worst = &ranks[len(ranks)-1]
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetChartHandler рисует график в PNG
func (a *API) GetChartHandler(w http.ResponseWriter, r *http.Request) {
	d, _, ok := a.render(w, r)
	if !ok {
		return
	}

	chart := mux.Vars(r)["chart"]
	var buf bytes.Buffer
	err := presentation.RenderChart(chart, d, &buf)
	switch {
	case errors.Is(err, presentation.ErrUnknownChart):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, presentation.ErrNoData):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		log.Printf("❌ Ошибка построения графика %s: %v", chart, err)
		http.Error(w, "Ошибка построения графика", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

// ExportXLSXHandler выгружает дашборд в XLSX
func (a *API) ExportXLSXHandler(w http.ResponseWriter, r *http.Request) {
	d, _, ok := a.render(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := presentation.WriteWorkbook(d, &buf); err != nil {
		log.Printf("❌ Ошибка выгрузки XLSX: %v", err)
		http.Error(w, "Ошибка выгрузки XLSX", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportName(d.Filter)+`.xlsx"`)
	w.Write(buf.Bytes())
}

// ExportCSVHandler выгружает строки зон в CSV
func (a *API) ExportCSVHandler(w http.ResponseWriter, r *http.Request) {
	d, _, ok := a.render(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := presentation.WriteZonesCSV(d.Zones, &buf); err != nil {
		log.Printf("❌ Ошибка выгрузки CSV: %v", err)
		http.Error(w, "Ошибка выгрузки CSV", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportName(d.Filter)+`.csv"`)
	w.Write(buf.Bytes())
}

// RefreshHandler сбрасывает кэш файлов и перерисовывает дашборды клиентов
func (a *API) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	if a.refresher != nil {
		a.refresher.Refresh()
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh scheduled"})
}

// HealthHandler сообщает, что сервер работает
func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// render разбирает фильтр и строит дашборд. При ошибке ответ уже записан.
func (a *API) render(w http.ResponseWriter, r *http.Request) (*presentation.Dashboard, *models.TransformedData, bool) {
	filter, err := models.ParseFilter(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{State: presentation.StateError, Error: err.Error()})
		return nil, nil, false
	}

	d, data, err := a.renderer.RenderData(filter)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, extractors.ErrFileNotFound) {
			status = http.StatusServiceUnavailable
		}
		log.Printf("❌ Ошибка рендера дашборда: %v", err)
		writeJSON(w, status, ErrorResponse{State: presentation.StateError, Error: err.Error()})
		return nil, nil, false
	}

	return d, data, true
}

func exportName(filter models.FilterParams) string {
	label := "wash dashboard"
	if filter.Country != "" {
		label += " " + filter.Country
	}
	if filter.Zone != "" {
		label += " " + filter.Zone
	}
	return presentation.ExportFileName(label)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("❌ Ошибка при кодировании JSON: %v", err)
	}
}
