package ranking

import (
	"database/sql"
	"time"
)

// Категории зон по процентилю
const (
	CategoryHigh   = "high"
	CategoryMedium = "medium"
	CategoryLow    = "low"
)

// ZoneRank - место зоны в рейтинге по одному показателю
type ZoneRank struct {
	Metric          string         `json:"metric"`
	ZoneID          string         `json:"id"`
	Zone            string         `json:"name"`
	Country         sql.NullString `json:"-"`
	Value           float64        `json:"value"`
	Position        int            `json:"position"`   // 1 - лучшее значение, равные значения делят место
	Percentile      float64        `json:"percentile"` // 0..1, 1 - лучшее значение
	Category        string         `json:"category"`
	CalculationDate time.Time      `json:"calculation_date"`
}

// Config содержит параметры рейтинга
type Config struct {
	// Показатели, по которым строятся рейтинги
	Metrics []string
	// Показатели, для которых меньшее значение лучше
	LowerIsBetter []string
	// Граница процентиля для категории high
	HighPercentile float64
	// Граница процентиля для категории medium
	MediumPercentile float64
}

// DefaultConfig возвращает конфигурацию рейтинга по умолчанию
func DefaultConfig() Config {
	return Config{
		Metrics:          []string{"safeAccess", "water_safely_pct", "sewer_safely_pct"},
		HighPercentile:   0.9,
		MediumPercentile: 0.5,
	}
}

// Repository интерфейс для работы с хранилищем рейтингов
type Repository interface {
	// EnsureTableExists создает таблицу рейтингов, если её нет
	EnsureTableExists() error

	// SaveZoneRanks заменяет рейтинг показателя
	SaveZoneRanks(metric string, ranks []ZoneRank) error

	// GetTopZones возвращает первые limit зон рейтинга показателя
	GetTopZones(metric string, limit int) ([]ZoneRank, error)
}
