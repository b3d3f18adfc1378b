package ranking

import (
	"fmt"
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/LilVoxy/wash_dashboard/ETL/utils"
	"github.com/samber/lo"
)

// Processor строит и сохраняет рейтинги зон
type Processor struct {
	repo   Repository
	logger *utils.ETLLogger
	config Config
}

// NewProcessor создает новый процессор рейтингов
func NewProcessor(repo Repository, logger *utils.ETLLogger, config Config) *Processor {
	return &Processor{
		repo:   repo,
		logger: logger,
		config: config,
	}
}

// Process строит рейтинг по каждому показателю конфигурации и сохраняет его.
// Возвращает построенные рейтинги по имени показателя.
func (p *Processor) Process(zones []models.ZoneSummary) (map[string][]ZoneRank, error) {
	startTime := time.Now()
	p.logger.Info("Начало расчета рейтингов зон (зон: %d, показателей: %d)", len(zones), len(p.config.Metrics))

	if err := p.repo.EnsureTableExists(); err != nil {
		return nil, err
	}

	result := make(map[string][]ZoneRank, len(p.config.Metrics))
	for _, metric := range p.config.Metrics {
		ranks := RankZones(zones, metric, lo.Contains(p.config.LowerIsBetter, metric), p.config)
		if err := p.repo.SaveZoneRanks(metric, ranks); err != nil {
			return nil, fmt.Errorf("ошибка при сохранении рейтинга %s: %w", metric, err)
		}
		result[metric] = ranks

		if len(ranks) > 0 {
			p.logger.Debug("Рейтинг %s: лучшая зона %s (%.2f), худшая %s (%.2f)",
				metric, ranks[0].Zone, ranks[0].Value, ranks[len(ranks)-1].Zone, ranks[len(ranks)-1].Value)
		}
	}

	p.logger.Info("Расчет рейтингов завершен за %v", time.Since(startTime))
	return result, nil
}

// GetTopZones возвращает лучшие зоны по показателю
func (p *Processor) GetTopZones(metric string, limit int) ([]ZoneRank, error) {
	return p.repo.GetTopZones(metric, limit)
}
