package transform

import (
	"errors"
	"fmt"
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/config"
	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/LilVoxy/wash_dashboard/ETL/utils"
)

// Transformer координирует нормализацию, фильтрацию, выбор срезов, сверку и агрегацию
type Transformer struct {
	cfg    config.DashboardConfig
	logger *utils.ETLLogger
}

// NewTransformer создает новый экземпляр Transformer
func NewTransformer(cfg config.DashboardConfig, logger *utils.ETLLogger) *Transformer {
	return &Transformer{
		cfg:    cfg,
		logger: logger,
	}
}

// Transform превращает сырые таблицы в данные дашборда для заданного фильтра.
// Проблемы с данными попадают в Warnings, ошибка возвращается только при ошибке конфигурации.
func (t *Transformer) Transform(extracted *models.ExtractedData, filter models.FilterParams) (*models.TransformedData, error) {
	startTime := time.Now()
	t.logger.Info("Начало фазы Transform (Преобразование данных)")

	for _, snap := range []config.SnapshotConfig{t.cfg.WaterSnapshot, t.cfg.SewerSnapshot} {
		if _, ok := t.cfg.Source(snap.Source); !ok {
			return nil, fmt.Errorf("срез ссылается на неизвестный источник %q", snap.Source)
		}
	}

	data := &models.TransformedData{
		Filter: filter,
		Tables: make(map[string]models.NormalizedTable, len(t.cfg.Sources)),
	}

	opts := NormalizeOptions{
		PercentSuffix:       t.cfg.PercentSuffix,
		ExtraPercentColumns: t.cfg.ExtraPercentColumns,
		NumericColumns:      t.cfg.CountColumns,
	}

	// 1. Нормализация и фильтрация каждого источника
	rows, invalid := 0, 0
	for _, src := range t.cfg.Sources {
		raw, ok := extracted.Tables[src.Name]
		if !ok {
			if err, missing := extracted.Missing[src.Name]; missing {
				data.Warnings = append(data.Warnings, fmt.Sprintf("источник %s недоступен: %v", src.Name, err))
			}
			continue
		}

		table, err := NormalizeRecords(raw, src.Prefix, opts)
		if err != nil {
			if !errors.Is(err, ErrMissingColumns) {
				return nil, fmt.Errorf("ошибка нормализации источника %s: %w", src.Name, err)
			}
			t.logger.Warn("Источник %s пропущен: %v", src.Name, err)
			data.Warnings = append(data.Warnings, err.Error())
		}

		if table.InvalidValues > 0 {
			data.Warnings = append(data.Warnings,
				fmt.Sprintf("источник %s: %d значений не распознаны и считаются пропусками", src.Name, table.InvalidValues))
		}

		rows += table.Len()
		invalid += table.InvalidValues
		data.Tables[src.Name] = ApplyFilter(table, filter)
		t.logger.Debug("Источник %s: %d записей, после фильтра %d", src.Name, table.Len(), data.Tables[src.Name].Len())
	}

	for _, name := range extracted.SampleSources {
		data.Warnings = append(data.Warnings, fmt.Sprintf("источник %s: используются демонстрационные данные", name))
	}

	// 2. Последние срезы воды и канализации
	data.WaterSnapshot = t.snapshot(data, t.cfg.WaterSnapshot)
	data.SewerSnapshot = t.snapshot(data, t.cfg.SewerSnapshot)

	// 3. Сверка источников
	data.Zones = Reconcile(data.WaterSnapshot, data.SewerSnapshot, ReconcileOptions{
		LeftPct:  t.cfg.WaterSnapshot.SafelyColumn,
		RightPct: t.cfg.SewerSnapshot.SafelyColumn,
	})

	// 4. Помесячные агрегаты эксплуатационных показателей
	if t.cfg.OperationsSource != "" {
		if table, ok := data.Tables[t.cfg.OperationsSource]; ok {
			if !table.HasYear || !table.HasMonth {
				data.Warnings = append(data.Warnings,
					fmt.Sprintf("источник %s: нет колонок year и month, помесячные показатели не рассчитаны", t.cfg.OperationsSource))
			}
			data.Periods = AggregatePeriods(table, t.cfg.PeriodMetrics)
		}
	}

	// 5. Средние по годам
	for _, m := range t.cfg.YearlyMetrics {
		for _, src := range m.Sources {
			if table, ok := data.Tables[src]; ok {
				data.Yearly = append(data.Yearly, AggregateYears(table, m.Name, m.Column)...)
			}
		}
	}

	data.Metadata = models.ETLMetadata{
		LastRunTimestamp:  extracted.LastRunTS,
		FilesRead:         len(extracted.Tables),
		RowsNormalized:    rows,
		InvalidValues:     invalid,
		ZonesReconciled:   len(data.Zones),
		PeriodsAggregated: len(data.Periods),
	}

	t.logger.LogTransformComplete(rows, invalid, time.Since(startTime))
	return data, nil
}

func (t *Transformer) snapshot(data *models.TransformedData, snap config.SnapshotConfig) models.SnapshotTable {
	table, ok := data.Tables[snap.Source]
	if !ok {
		return models.SnapshotTable{Source: snap.Source}
	}

	if table.Len() > 0 && !table.IsMetric(safelySourceColumn(snap)) {
		data.Warnings = append(data.Warnings,
			fmt.Sprintf("источник %s: нет колонки безопасного доступа для %s", snap.Source, snap.SafelyColumn))
	}

	return SelectLatest(table, SnapshotOptions{
		Keys:   snap.Keys,
		Rename: snap.Rename,
		Extras: snap.Extras,
	})
}

// safelySourceColumn находит исходную колонку, которая переименовывается в SafelyColumn
func safelySourceColumn(snap config.SnapshotConfig) string {
	for from, to := range snap.Rename {
		if to == snap.SafelyColumn {
			return from
		}
	}
	return snap.SafelyColumn
}
