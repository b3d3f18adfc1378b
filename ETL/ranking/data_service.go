package ranking

import (
	"database/sql"
	"fmt"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
)

// DataService читает загруженную сводку по зонам из OLAP-базы
type DataService struct {
	db *sql.DB
}

// NewDataService создает новый экземпляр DataService
func NewDataService(db *sql.DB) *DataService {
	return &DataService{db: db}
}

// GetZoneSummaries возвращает все строки zone_summary_facts
func (s *DataService) GetZoneSummaries() ([]models.ZoneSummary, error) {
	rows, err := s.db.Query(`
		SELECT id, zone, country, water_safely_pct, sewer_safely_pct, safe_access, water_year, sewer_year
		FROM zone_summary_facts
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении сводки по зонам: %w", err)
	}
	defer rows.Close()

	var zones []models.ZoneSummary
	for rows.Next() {
		var z models.ZoneSummary
		if err := rows.Scan(
			&z.ID, &z.Zone, &z.Country,
			&z.WaterSafelyPct, &z.SewerSafelyPct, &z.SafeAccess,
			&z.WaterYear, &z.SewerYear,
		); err != nil {
			return nil, fmt.Errorf("ошибка при чтении строки сводки: %w", err)
		}
		zones = append(zones, z)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при переборе строк сводки: %w", err)
	}
	return zones, nil
}
