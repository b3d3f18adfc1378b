package load

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/LilVoxy/wash_dashboard/ETL/utils"
)

const zoneSummaryDDL = `
CREATE TABLE IF NOT EXISTS zone_summary_facts (
	id VARCHAR(191) NOT NULL PRIMARY KEY,
	zone VARCHAR(255) NOT NULL,
	country VARCHAR(255) NULL,
	water_safely_pct DOUBLE NULL,
	sewer_safely_pct DOUBLE NULL,
	safe_access DOUBLE NULL,
	water_year INT NULL,
	sewer_year INT NULL,
	updated_at TIMESTAMP NOT NULL
)`

var (
	zoneSummaryColumns = []string{
		"id", "zone", "country",
		"water_safely_pct", "sewer_safely_pct", "safe_access",
		"water_year", "sewer_year", "updated_at",
	}
	zoneSummaryKeys = []string{"id"}
)

// ZoneLoader отвечает за загрузку сводки по зонам
type ZoneLoader struct {
	db     *sql.DB
	driver string
	logger *utils.ETLLogger
}

// NewZoneLoader создает новый экземпляр ZoneLoader
func NewZoneLoader(db *sql.DB, driver string, logger *utils.ETLLogger) *ZoneLoader {
	return &ZoneLoader{
		db:     db,
		driver: driver,
		logger: logger,
	}
}

// Load загружает сводку по зонам в zone_summary_facts.
// Пропуски записываются как NULL.
func (l *ZoneLoader) Load(zones []models.ZoneSummary) error {
	if len(zones) == 0 {
		l.logger.Debug("Нет данных зон для загрузки")
		return nil
	}

	startTime := time.Now()
	l.logger.Info("Начало загрузки сводки по зонам (всего: %d)", len(zones))

	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("ошибка при начале транзакции: %w", err)
	}

	stmt, err := tx.Prepare(upsertQuery(l.driver, "zone_summary_facts", zoneSummaryColumns, zoneSummaryKeys))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("ошибка при подготовке запроса: %w", err)
	}
	defer stmt.Close()

	processed := 0
	errors := 0
	updatedAt := time.Now().UTC()

	for _, zone := range zones {
		_, err := stmt.Exec(
			zone.ID,
			zone.Zone,
			zone.Country,
			zone.WaterSafelyPct,
			zone.SewerSafelyPct,
			zone.SafeAccess,
			zone.WaterYear,
			zone.SewerYear,
			updatedAt,
		)
		if err != nil {
			l.logger.Error("Ошибка при обновлении zone_summary_facts для зоны %s: %v", zone.ID, err)
			errors++
			continue
		}
		processed++
	}

	if errors > 0 {
		tx.Rollback()
		return fmt.Errorf("произошло %d ошибок при загрузке сводки по зонам", errors)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}

	l.logger.Info("Загрузка сводки по зонам завершена. Загружено записей: %d. Длительность: %v", processed, time.Since(startTime))
	return nil
}
