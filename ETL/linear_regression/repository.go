package linear_regression

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
)

// SQLPredictionRepository реализация PredictionRepository поверх database/sql
// (MySQL в продуктиве, SQLite локально)
type SQLPredictionRepository struct {
	db *sql.DB
}

// NewSQLPredictionRepository создает новый репозиторий для работы с прогнозами
func NewSQLPredictionRepository(db *sql.DB) *SQLPredictionRepository {
	return &SQLPredictionRepository{
		db: db,
	}
}

// EnsureTableExists проверяет наличие таблицы и создает ее при необходимости
func (r *SQLPredictionRepository) EnsureTableExists() error {
	query := `
	CREATE TABLE IF NOT EXISTS kpi_forecasts (
		metric VARCHAR(64) NOT NULL,
		forecast_period CHAR(7) NOT NULL,
		period_start CHAR(7) NOT NULL,
		period_end CHAR(7) NOT NULL,
		a DOUBLE NOT NULL,
		b DOUBLE NOT NULL,
		r DOUBLE NOT NULL,
		r2 DOUBLE NOT NULL,
		forecast_value DOUBLE NOT NULL,
		ci_lower DOUBLE NOT NULL,
		ci_upper DOUBLE NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (metric, forecast_period)
	);`

	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("ошибка создания таблицы kpi_forecasts: %w", err)
	}
	return nil
}

// SaveMultiplePredictions заменяет прогнозы показателя в одной транзакции
func (r *SQLPredictionRepository) SaveMultiplePredictions(result RegressionResult, forecasts []ForecastPoint) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM kpi_forecasts WHERE metric = ?;`, result.Metric); err != nil {
		tx.Rollback()
		return fmt.Errorf("не удалось удалить прежние прогнозы: %w", err)
	}

	query := `
	INSERT INTO kpi_forecasts
		(metric, forecast_period, period_start, period_end, a, b, r, r2, forecast_value, ci_lower, ci_upper, created_at)
	VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

	stmt, err := tx.Prepare(query)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("не удалось подготовить запрос: %w", err)
	}
	defer stmt.Close()

	createdAt := time.Now().UTC()
	for _, forecast := range forecasts {
		_, err := stmt.Exec(
			result.Metric,
			forecast.Period.String(),
			result.PeriodStart.String(),
			result.PeriodEnd.String(),
			result.A,
			result.B,
			result.R,
			result.R2,
			forecast.ForecastValue,
			forecast.CILower,
			forecast.CIUpper,
			createdAt,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("не удалось выполнить запрос: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("не удалось зафиксировать транзакцию: %w", err)
	}

	return nil
}

// GetForecasts получает прогнозы показателя в порядке месяцев
func (r *SQLPredictionRepository) GetForecasts(metric string) ([]ForecastPoint, error) {
	query := `
	SELECT forecast_period, forecast_value, ci_lower, ci_upper
	FROM kpi_forecasts
	WHERE metric = ?
	ORDER BY forecast_period;`

	rows, err := r.db.Query(query, metric)
	if err != nil {
		return nil, fmt.Errorf("ошибка при выполнении запроса: %w", err)
	}
	defer rows.Close()

	var forecasts []ForecastPoint
	for rows.Next() {
		var (
			f      ForecastPoint
			period string
		)
		if err := rows.Scan(&period, &f.ForecastValue, &f.CILower, &f.CIUpper); err != nil {
			return nil, fmt.Errorf("ошибка при чтении данных: %w", err)
		}
		if f.Period, err = models.ParsePeriod(period); err != nil {
			return nil, err
		}
		forecasts = append(forecasts, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при итерации по результатам: %w", err)
	}

	return forecasts, nil
}

// GetLastRegressionResult получает последний результат регрессии показателя
func (r *SQLPredictionRepository) GetLastRegressionResult(metric string) (*RegressionResult, error) {
	query := `
	SELECT a, b, r, r2, period_start, period_end
	FROM kpi_forecasts
	WHERE metric = ?
	ORDER BY created_at DESC
	LIMIT 1;`

	result := RegressionResult{Metric: metric}
	var start, end string
	err := r.db.QueryRow(query, metric).Scan(
		&result.A,
		&result.B,
		&result.R,
		&result.R2,
		&start,
		&end,
	)

	if err == sql.ErrNoRows {
		return nil, nil // Нет данных - возвращаем nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении последнего результата регрессии: %w", err)
	}

	if result.PeriodStart, err = models.ParsePeriod(start); err != nil {
		return nil, err
	}
	if result.PeriodEnd, err = models.ParsePeriod(end); err != nil {
		return nil, err
	}

	return &result, nil
}

// DeleteOldPredictions удаляет устаревшие прогнозы
func (r *SQLPredictionRepository) DeleteOldPredictions(olderThan time.Time) error {
	query := `
	DELETE FROM kpi_forecasts
	WHERE created_at < ?;`

	_, err := r.db.Exec(query, olderThan.UTC())
	if err != nil {
		return fmt.Errorf("ошибка при удалении устаревших прогнозов: %w", err)
	}

	return nil
}
