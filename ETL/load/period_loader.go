package load

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/LilVoxy/wash_dashboard/ETL/utils"
)

// Таблица в формате "период, метрика, значение", из неё читает linear_regression.DataService
const periodMetricDDL = `
CREATE TABLE IF NOT EXISTS period_metric_facts (
	period_year INT NOT NULL,
	period_month INT NOT NULL,
	metric VARCHAR(64) NOT NULL,
	metric_value DOUBLE NULL,
	row_count INT NOT NULL DEFAULT 0,
	PRIMARY KEY (period_year, period_month, metric)
)`

var (
	periodMetricColumns = []string{"period_year", "period_month", "metric", "metric_value", "row_count"}
	periodMetricKeys    = []string{"period_year", "period_month", "metric"}
)

// PeriodLoader отвечает за загрузку помесячных агрегатов
type PeriodLoader struct {
	db     *sql.DB
	driver string
	logger *utils.ETLLogger
}

// NewPeriodLoader создает новый экземпляр PeriodLoader
func NewPeriodLoader(db *sql.DB, driver string, logger *utils.ETLLogger) *PeriodLoader {
	return &PeriodLoader{
		db:     db,
		driver: driver,
		logger: logger,
	}
}

// Load раскладывает агрегаты по строкам (период, метрика) и загружает их в period_metric_facts
func (l *PeriodLoader) Load(periods []models.TimePeriodAggregate) error {
	if len(periods) == 0 {
		l.logger.Debug("Нет помесячных данных для загрузки")
		return nil
	}

	startTime := time.Now()
	l.logger.Info("Начало загрузки помесячных агрегатов (периодов: %d)", len(periods))

	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("ошибка при начале транзакции: %w", err)
	}

	stmt, err := tx.Prepare(upsertQuery(l.driver, "period_metric_facts", periodMetricColumns, periodMetricKeys))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("ошибка при подготовке запроса: %w", err)
	}
	defer stmt.Close()

	processed := 0
	errors := 0

	for _, agg := range periods {
		names := make([]string, 0, len(agg.Metrics))
		for name := range agg.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			_, err := stmt.Exec(agg.Period.Year, agg.Period.Month, name, agg.Metrics[name], agg.Rows)
			if err != nil {
				l.logger.Error("Ошибка при обновлении period_metric_facts для %s/%s: %v", agg.Period, name, err)
				errors++
				continue
			}
			processed++
		}
	}

	if errors > 0 {
		tx.Rollback()
		return fmt.Errorf("произошло %d ошибок при загрузке помесячных агрегатов", errors)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}

	l.logger.Info("Загрузка помесячных агрегатов завершена. Загружено записей: %d. Длительность: %v", processed, time.Since(startTime))
	return nil
}
