package linear_regression

import (
	"database/sql"
	"fmt"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
)

// DataService сервис для получения помесячных показателей из OLAP базы
type DataService struct {
	db *sql.DB
}

// NewDataService создает новый сервис для работы с данными
func NewDataService(db *sql.DB) *DataService {
	return &DataService{
		db: db,
	}
}

// GetPeriodMetricData получает последние periodsBack месяцев ряда показателя
// из таблицы period_metric_facts
func (s *DataService) GetPeriodMetricData(metric string, periodsBack int) ([]DataPoint, error) {
	query := `
	SELECT
		period_year,
		period_month,
		metric_value
	FROM
		period_metric_facts
	WHERE
		metric = ?
		AND metric_value IS NOT NULL
	ORDER BY
		period_year DESC, period_month DESC
	LIMIT ?;`

	rows, err := s.db.Query(query, metric, periodsBack)
	if err != nil {
		return nil, fmt.Errorf("ошибка при выполнении запроса к OLAP: %w", err)
	}
	defer rows.Close()

	var aggs []models.TimePeriodAggregate
	for rows.Next() {
		var (
			period models.Period
			value  sql.NullFloat64
		)
		if err := rows.Scan(&period.Year, &period.Month, &value); err != nil {
			return nil, fmt.Errorf("ошибка при чтении данных: %w", err)
		}
		aggs = append(aggs, models.TimePeriodAggregate{
			Period:  period,
			Metrics: map[string]sql.NullFloat64{metric: value},
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при итерации по результатам: %w", err)
	}

	if len(aggs) == 0 {
		return nil, fmt.Errorf("%w: нет значений показателя %s в OLAP базе", ErrNotEnoughData, metric)
	}

	// Запрос вернул месяцы в обратном порядке
	for i, j := 0, len(aggs)-1; i < j; i, j = i+1, j-1 {
		aggs[i], aggs[j] = aggs[j], aggs[i]
	}

	return PointsFromAggregates(aggs, metric), nil
}
