package models

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Period - календарный месяц, ключ периодных агрегатов
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// IsZero сообщает, что период не задан
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Index возвращает порядковый номер месяца (для сравнения и регрессии)
func (p Period) Index() int {
	return p.Year*12 + (p.Month - 1)
}

// Before сообщает, что период p раньше o
func (p Period) Before(o Period) bool {
	return p.Index() < o.Index()
}

// AddMonths сдвигает период на n месяцев
func (p Period) AddMonths(n int) Period {
	idx := p.Index() + n
	return Period{Year: idx / 12, Month: idx%12 + 1}
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// ParsePeriod разбирает период в формате YYYY-MM (допускается YYYY-M и YYYY-MM-DD)
func ParsePeriod(s string) (Period, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) < 2 || len(parts) > 3 {
		return Period{}, fmt.Errorf("неверный формат периода %q, ожидается YYYY-MM", s)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil || year <= 0 {
		return Period{}, fmt.Errorf("неверный год в периоде %q", s)
	}

	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return Period{}, fmt.Errorf("неверный месяц в периоде %q", s)
	}

	return Period{Year: year, Month: month}, nil
}

// Aggregation - функция агрегации по периоду
type Aggregation string

const (
	AggSum  Aggregation = "sum"
	AggMean Aggregation = "mean"
)

// MetricSpec описывает выходную метрику периодного агрегата:
// либо исходную колонку, либо отношение (numerator - subtract) / denominator * scale.
type MetricSpec struct {
	Name        string      `yaml:"name" json:"name"`
	Agg         Aggregation `yaml:"agg" json:"agg"`
	Column      string      `yaml:"column,omitempty" json:"column,omitempty"`
	Numerator   string      `yaml:"numerator,omitempty" json:"numerator,omitempty"`
	Subtract    string      `yaml:"subtract,omitempty" json:"subtract,omitempty"`
	Denominator string      `yaml:"denominator,omitempty" json:"denominator,omitempty"`
	Scale       float64     `yaml:"scale,omitempty" json:"scale,omitempty"`
}

// IsRatio сообщает, что метрика вычисляется как отношение двух колонок
func (s MetricSpec) IsRatio() bool {
	return s.Denominator != ""
}

// TimePeriodAggregate - одна строка агрегата за период
type TimePeriodAggregate struct {
	Period  Period
	Rows    int
	Metrics map[string]sql.NullFloat64
}

// Metric возвращает значение метрики (невалидное, если её нет)
func (a TimePeriodAggregate) Metric(name string) sql.NullFloat64 {
	return a.Metrics[name]
}

// YearlyAggregate - среднее значение колонки источника за год
type YearlyAggregate struct {
	Source string
	Metric string
	Year   int
	Rows   int
	Value  sql.NullFloat64
}
