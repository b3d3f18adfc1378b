package ranking

import (
	"database/sql"
	"fmt"

	"github.com/LilVoxy/wash_dashboard/ETL/utils"
)

const zoneRankingsDDL = `
CREATE TABLE IF NOT EXISTS zone_rankings (
	metric VARCHAR(64) NOT NULL,
	zone_id VARCHAR(191) NOT NULL,
	zone VARCHAR(255) NOT NULL,
	country VARCHAR(255) NULL,
	metric_value DOUBLE NOT NULL,
	rank_position INT NOT NULL,
	percentile DOUBLE NOT NULL,
	category VARCHAR(16) NOT NULL,
	calculation_date TIMESTAMP NOT NULL,
	PRIMARY KEY (metric, zone_id)
)`

// SQLRepository реализация Repository поверх OLAP-базы (MySQL или SQLite)
type SQLRepository struct {
	db     *sql.DB
	logger *utils.ETLLogger
}

// NewSQLRepository создает новый экземпляр SQLRepository
func NewSQLRepository(db *sql.DB, logger *utils.ETLLogger) *SQLRepository {
	return &SQLRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureTableExists создает таблицу zone_rankings, если её нет
func (r *SQLRepository) EnsureTableExists() error {
	if _, err := r.db.Exec(zoneRankingsDDL); err != nil {
		return fmt.Errorf("ошибка при создании таблицы zone_rankings: %w", err)
	}
	return nil
}

// SaveZoneRanks заменяет рейтинг показателя в одной транзакции
func (r *SQLRepository) SaveZoneRanks(metric string, ranks []ZoneRank) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("ошибка при начале транзакции: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM zone_rankings WHERE metric = ?`, metric); err != nil {
		tx.Rollback()
		return fmt.Errorf("ошибка при очистке рейтинга %s: %w", metric, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO zone_rankings
			(metric, zone_id, zone, country, metric_value, rank_position, percentile, category, calculation_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("ошибка при подготовке запроса: %w", err)
	}
	defer stmt.Close()

	errors := 0
	for _, rank := range ranks {
		_, err := stmt.Exec(
			metric,
			rank.ZoneID,
			rank.Zone,
			rank.Country,
			rank.Value,
			rank.Position,
			rank.Percentile,
			rank.Category,
			rank.CalculationDate,
		)
		if err != nil {
			r.logger.Error("Ошибка при сохранении рейтинга %s для зоны %s: %v", metric, rank.ZoneID, err)
			errors++
		}
	}

	if errors > 0 {
		tx.Rollback()
		return fmt.Errorf("произошло %d ошибок при сохранении рейтинга %s", errors, metric)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}

	r.logger.Debug("Рейтинг %s сохранён (%d зон)", metric, len(ranks))
	return nil
}

// GetTopZones возвращает первые limit зон рейтинга показателя
func (r *SQLRepository) GetTopZones(metric string, limit int) ([]ZoneRank, error) {
	rows, err := r.db.Query(`
		SELECT metric, zone_id, zone, country, metric_value, rank_position, percentile, category, calculation_date
		FROM zone_rankings
		WHERE metric = ?
		ORDER BY rank_position ASC, zone_id ASC
		LIMIT ?
	`, metric, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении рейтинга %s: %w", metric, err)
	}
	defer rows.Close()

	var ranks []ZoneRank
	for rows.Next() {
		var rank ZoneRank
		if err := rows.Scan(
			&rank.Metric,
			&rank.ZoneID,
			&rank.Zone,
			&rank.Country,
			&rank.Value,
			&rank.Position,
			&rank.Percentile,
			&rank.Category,
			&rank.CalculationDate,
		); err != nil {
			return nil, fmt.Errorf("ошибка при чтении строки рейтинга: %w", err)
		}
		ranks = append(ranks, rank)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при переборе строк рейтинга: %w", err)
	}
	return ranks, nil
}
