// Package pipeline связывает фазы Extract и Transform с прогнозом и сборкой дашборда.
package pipeline

import (
	"errors"
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/cache"
	"github.com/LilVoxy/wash_dashboard/ETL/config"
	"github.com/LilVoxy/wash_dashboard/ETL/extractors"
	"github.com/LilVoxy/wash_dashboard/ETL/linear_regression"
	"github.com/LilVoxy/wash_dashboard/ETL/metrics"
	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/LilVoxy/wash_dashboard/ETL/transform"
	"github.com/LilVoxy/wash_dashboard/ETL/utils"
	"github.com/LilVoxy/wash_dashboard/presentation"
)

// Pipeline выполняет полный рендер дашборда для набора фильтров.
// Результат зависит только от содержимого файлов и фильтра.
type Pipeline struct {
	cfg         config.DashboardConfig
	logger      *utils.ETLLogger
	extractor   *extractors.Extractor
	transformer *transform.Transformer
}

// New создает конвейер. fileCache может быть nil, тогда файлы читаются при каждом рендере.
func New(cfg config.DashboardConfig, fileCache *cache.FileCache, logger *utils.ETLLogger) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		logger:      logger,
		extractor:   extractors.NewExtractor(cfg, fileCache, logger),
		transformer: transform.NewTransformer(cfg, logger),
	}
}

// Config возвращает конфигурацию конвейера
func (p *Pipeline) Config() config.DashboardConfig {
	return p.cfg
}

// Run выполняет Extract и Transform
func (p *Pipeline) Run(filter models.FilterParams) (*models.TransformedData, error) {
	extracted, err := p.extractor.Extract()
	if err != nil {
		return nil, err
	}

	data, err := p.transformer.Transform(extracted, filter)
	if err != nil {
		return nil, err
	}

	for name, table := range data.Tables {
		metrics.AddInvalidValues(name, table.InvalidValues)
	}
	return data, nil
}

// Render выполняет Run, строит прогноз тренда и собирает дашборд.
// Неудачный прогноз не является ошибкой рендера и попадает в предупреждения.
func (p *Pipeline) Render(filter models.FilterParams) (*presentation.Dashboard, error) {
	d, _, err := p.RenderData(filter)
	return d, err
}

// RenderData работает как Render, но дополнительно возвращает результат преобразования
func (p *Pipeline) RenderData(filter models.FilterParams) (*presentation.Dashboard, *models.TransformedData, error) {
	startTime := time.Now()

	data, err := p.Run(filter)
	if err != nil {
		metrics.ObservePipelineRun(presentation.StateError, time.Since(startTime))
		return nil, nil, err
	}

	forecast := p.forecast(data)
	adapter := presentation.DefaultAdapter{Ladders: p.cfg.Ladders}
	dashboard := presentation.BuildWith(adapter, data, p.cfg.Targets, forecast)

	metrics.ObservePipelineRun(dashboard.State, time.Since(startTime))
	p.logger.LogPipelineComplete(startTime, len(data.Zones), len(data.Periods))
	return dashboard, data, nil
}

func (p *Pipeline) forecast(data *models.TransformedData) *presentation.Series {
	fc := p.cfg.Forecast
	if fc.Metric == "" || fc.Periods <= 0 || len(data.Periods) == 0 {
		return nil
	}

	result, points, err := linear_regression.Forecast(data.Periods, fc.Metric, fc.Periods, fc.ConfidenceLevel)
	if err != nil {
		if !errors.Is(err, linear_regression.ErrNotEnoughData) {
			data.Warnings = append(data.Warnings, "прогноз "+fc.Metric+": "+err.Error())
		}
		p.logger.Debug("Прогноз %s не построен: %v", fc.Metric, err)
		return nil
	}

	if result.R2 < fc.MinR2Threshold {
		p.logger.Debug("Прогноз %s отброшен: R² = %.3f ниже порога %.2f", fc.Metric, result.R2, fc.MinR2Threshold)
		return nil
	}

	series := presentation.ForecastSeries(fc.Metric, points)
	return &series
}
