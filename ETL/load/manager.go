package load

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/LilVoxy/wash_dashboard/ETL/utils"
	"github.com/LilVoxy/wash_dashboard/presentation"
	"github.com/LilVoxy/wash_dashboard/processor"
)

// LoadManager отвечает за управление процессом загрузки данных в OLAP
type LoadManager struct {
	db        *sql.DB
	logger    *utils.ETLLogger
	loader    Loader
	snapshots *SnapshotLoader
}

// NewLoadManager создает новый экземпляр LoadManager для драйвера driver (mysql или sqlite)
func NewLoadManager(db *sql.DB, driver string, logger *utils.ETLLogger) *LoadManager {
	return &LoadManager{
		db:        db,
		logger:    logger,
		loader:    NewOLAPLoader(db, driver, logger),
		snapshots: NewSnapshotLoader(db, logger),
	}
}

// EnsureSchema создает таблицы фактов
func (m *LoadManager) EnsureSchema() error {
	return m.loader.EnsureSchema()
}

// Load выполняет фазу загрузки данных ETL-процесса.
// Принимает обработанные данные из фазы Transform и собранный по ним дашборд.
func (m *LoadManager) Load(transformedData *models.TransformedData, dashboard *presentation.Dashboard, runID string) error {
	startTime := time.Now()
	m.logger.Info("Начало фазы Load (Загрузка данных)")

	// 1. Сводка по зонам
	if len(transformedData.Zones) > 0 {
		m.logger.Info("Загрузка сводки по зонам...")
		if err := m.loader.LoadZoneSummaries(transformedData.Zones); err != nil {
			m.logger.Error("Ошибка при загрузке сводки по зонам: %v", err)
			return fmt.Errorf("ошибка при загрузке сводки по зонам: %w", err)
		}
	}

	// 2. Помесячные агрегаты
	if len(transformedData.Periods) > 0 {
		m.logger.Info("Загрузка помесячных агрегатов...")
		if err := m.loader.LoadPeriodFacts(transformedData.Periods); err != nil {
			m.logger.Error("Ошибка при загрузке помесячных агрегатов: %v", err)
			return fmt.Errorf("ошибка при загрузке помесячных агрегатов: %w", err)
		}
	}

	// 3. Снимок дашборда
	if dashboard != nil {
		payload, err := processor.EncodeSnapshot(dashboard)
		if err != nil {
			return err
		}
		if err := m.loader.SaveSnapshot(runID, dashboard.State, payload); err != nil {
			m.logger.Error("Ошибка при сохранении снимка дашборда: %v", err)
			return err
		}
	}

	m.logger.Info("Фаза Load завершена. Длительность: %v", time.Since(startTime))
	return nil
}

// LatestDashboard читает и распаковывает последний сохранённый снимок дашборда.
// Возвращает nil без ошибки, если снимков ещё нет.
func (m *LoadManager) LatestDashboard() (*presentation.Dashboard, string, error) {
	runID, payload, err := m.snapshots.Latest()
	if err != nil || runID == "" {
		return nil, "", err
	}

	var dashboard presentation.Dashboard
	if err := processor.DecodeSnapshot(payload, &dashboard); err != nil {
		return nil, "", fmt.Errorf("снимок %s повреждён: %w", runID, err)
	}
	return &dashboard, runID, nil
}
