package models

import (
	"fmt"
	"net/url"
	"strings"
)

// FilterParams - явные параметры фильтрации одного рендера дашборда.
// Пустые значения и "All" означают отсутствие фильтра.
type FilterParams struct {
	Zone       string `json:"zone,omitempty"`
	Country    string `json:"country,omitempty"`
	StartMonth Period `json:"start_month"`
	EndMonth   Period `json:"end_month"`
}

// HasMonthRange сообщает, задана ли хотя бы одна граница диапазона месяцев
func (f FilterParams) HasMonthRange() bool {
	return !f.StartMonth.IsZero() || !f.EndMonth.IsZero()
}

// InRange проверяет, попадает ли период в диапазон фильтра (границы включительно)
func (f FilterParams) InRange(p Period) bool {
	if !f.StartMonth.IsZero() && p.Before(f.StartMonth) {
		return false
	}
	if !f.EndMonth.IsZero() && f.EndMonth.Before(p) {
		return false
	}
	return true
}

// ParseFilter собирает параметры фильтра из query-параметров запроса
func ParseFilter(values url.Values) (FilterParams, error) {
	filter := FilterParams{
		Zone:    normalizeSelection(values.Get("zone")),
		Country: normalizeSelection(values.Get("country")),
	}

	if s := strings.TrimSpace(values.Get("start")); s != "" {
		p, err := ParsePeriod(s)
		if err != nil {
			return FilterParams{}, fmt.Errorf("параметр start: %w", err)
		}
		filter.StartMonth = p
	}

	if s := strings.TrimSpace(values.Get("end")); s != "" {
		p, err := ParsePeriod(s)
		if err != nil {
			return FilterParams{}, fmt.Errorf("параметр end: %w", err)
		}
		filter.EndMonth = p
	}

	if filter.HasMonthRange() && !filter.StartMonth.IsZero() && !filter.EndMonth.IsZero() &&
		filter.EndMonth.Before(filter.StartMonth) {
		return FilterParams{}, fmt.Errorf("конец диапазона %s раньше начала %s", filter.EndMonth, filter.StartMonth)
	}

	return filter, nil
}

func normalizeSelection(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") || strings.EqualFold(s, "all zones") {
		return ""
	}
	return s
}
