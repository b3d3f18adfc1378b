package load

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/LilVoxy/wash_dashboard/ETL/config"
	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/LilVoxy/wash_dashboard/ETL/utils"
)

// Loader интерфейс для загрузки данных в OLAP
type Loader interface {
	// EnsureSchema создает таблицы фактов, если их нет
	EnsureSchema() error

	// LoadZoneSummaries загружает сводку по зонам
	LoadZoneSummaries(zones []models.ZoneSummary) error

	// LoadPeriodFacts загружает помесячные агрегаты
	LoadPeriodFacts(periods []models.TimePeriodAggregate) error

	// SaveSnapshot сохраняет сжатый снимок дашборда
	SaveSnapshot(runID, state string, payload []byte) error
}

// OLAPLoader реализация Loader для OLAP базы данных
type OLAPLoader struct {
	db     *sql.DB
	driver string
	logger *utils.ETLLogger

	// Загрузчики для отдельных типов данных
	zoneLoader     *ZoneLoader
	periodLoader   *PeriodLoader
	snapshotLoader *SnapshotLoader
}

// NewOLAPLoader создает новый экземпляр OLAPLoader
func NewOLAPLoader(db *sql.DB, driver string, logger *utils.ETLLogger) *OLAPLoader {
	loader := &OLAPLoader{
		db:     db,
		driver: driver,
		logger: logger,
	}

	loader.zoneLoader = NewZoneLoader(db, driver, logger)
	loader.periodLoader = NewPeriodLoader(db, driver, logger)
	loader.snapshotLoader = NewSnapshotLoader(db, logger)

	return loader
}

// EnsureSchema создает все таблицы фактов
func (l *OLAPLoader) EnsureSchema() error {
	for _, ddl := range []string{zoneSummaryDDL, periodMetricDDL, snapshotDDL} {
		if _, err := l.db.Exec(ddl); err != nil {
			return fmt.Errorf("ошибка при создании таблиц OLAP: %w", err)
		}
	}
	return nil
}

// LoadZoneSummaries загружает сводку по зонам
func (l *OLAPLoader) LoadZoneSummaries(zones []models.ZoneSummary) error {
	return l.zoneLoader.Load(zones)
}

// LoadPeriodFacts загружает помесячные агрегаты
func (l *OLAPLoader) LoadPeriodFacts(periods []models.TimePeriodAggregate) error {
	return l.periodLoader.Load(periods)
}

// SaveSnapshot сохраняет снимок дашборда
func (l *OLAPLoader) SaveSnapshot(runID, state string, payload []byte) error {
	return l.snapshotLoader.Save(runID, state, payload)
}

// upsertQuery строит INSERT с обновлением при конфликте ключа.
// MySQL использует ON DUPLICATE KEY UPDATE, SQLite - ON CONFLICT ... DO UPDATE.
func upsertQuery(driver, table string, columns, keys []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")

	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}

	var updates []string
	for _, c := range columns {
		if isKey[c] {
			continue
		}
		if driver == config.DriverMySQL {
			updates = append(updates, fmt.Sprintf("%s = VALUES(%s)", c, c))
		} else {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders)
	if driver == config.DriverMySQL {
		return query + " ON DUPLICATE KEY UPDATE " + strings.Join(updates, ", ")
	}
	return query + fmt.Sprintf(" ON CONFLICT(%s) DO UPDATE SET %s", strings.Join(keys, ", "), strings.Join(updates, ", "))
}
