package models

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SQLETLLogRepository реализация ETLLogRepository поверх database/sql.
// Запросы совместимы и с MySQL, и с SQLite.
type SQLETLLogRepository struct {
	db *sql.DB
}

// NewSQLETLLogRepository создает новый экземпляр SQLETLLogRepository
func NewSQLETLLogRepository(db *sql.DB) *SQLETLLogRepository {
	return &SQLETLLogRepository{
		db: db,
	}
}

const runLogColumns = `
	id, start_time, end_time, status,
	files_read, rows_normalized, zones_loaded, periods_loaded,
	COALESCE(error_message, ''), COALESCE(execution_time_seconds, 0)`

// CreateETLLogTable создает таблицу для логирования ETL процесса, если она не существует
func (r *SQLETLLogRepository) CreateETLLogTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS etl_run_log (
		id VARCHAR(36) PRIMARY KEY,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'in_progress',
		files_read INT DEFAULT 0,
		rows_normalized INT DEFAULT 0,
		zones_loaded INT DEFAULT 0,
		periods_loaded INT DEFAULT 0,
		error_message TEXT,
		execution_time_seconds DOUBLE
	)`

	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("ошибка при создании таблицы etl_run_log: %w", err)
	}

	return nil
}

// CreateLogEntry создает новую запись о запуске ETL
func (r *SQLETLLogRepository) CreateLogEntry(startTime time.Time) (string, error) {
	id := uuid.NewString()

	_, err := r.db.Exec(
		`INSERT INTO etl_run_log (id, start_time, status) VALUES (?, ?, ?)`,
		id, startTime.UTC(), RunStatusInProgress,
	)
	if err != nil {
		return "", fmt.Errorf("ошибка при создании записи о запуске ETL: %w", err)
	}

	return id, nil
}

// UpdateLogEntrySuccess обновляет запись при успешном завершении ETL
func (r *SQLETLLogRepository) UpdateLogEntrySuccess(run *ETLRunLog) error {
	run.Status = RunStatusSuccess
	run.ExecutionTimeSeconds = run.EndTime.Sub(run.StartTime).Seconds()

	query := `
	UPDATE etl_run_log
	SET
		end_time = ?,
		status = ?,
		files_read = ?,
		rows_normalized = ?,
		zones_loaded = ?,
		periods_loaded = ?,
		execution_time_seconds = ?
	WHERE id = ?`

	_, err := r.db.Exec(
		query,
		run.EndTime.UTC(),
		run.Status,
		run.FilesRead,
		run.RowsNormalized,
		run.ZonesLoaded,
		run.PeriodsLoaded,
		run.ExecutionTimeSeconds,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении записи о запуске ETL: %w", err)
	}

	return nil
}

// UpdateLogEntryFailure обновляет запись при неудачном завершении ETL
func (r *SQLETLLogRepository) UpdateLogEntryFailure(run *ETLRunLog) error {
	run.Status = RunStatusFailed
	run.ExecutionTimeSeconds = run.EndTime.Sub(run.StartTime).Seconds()

	_, err := r.db.Exec(
		`UPDATE etl_run_log SET end_time = ?, status = ?, error_message = ?, execution_time_seconds = ? WHERE id = ?`,
		run.EndTime.UTC(), run.Status, run.ErrorMessage, run.ExecutionTimeSeconds, run.ID,
	)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении записи о запуске ETL: %w", err)
	}

	return nil
}

// GetLastSuccessfulRun получает информацию о последнем успешном запуске ETL.
// Возвращает nil без ошибки, если успешных запусков ещё не было.
func (r *SQLETLLogRepository) GetLastSuccessfulRun() (*ETLRunLog, error) {
	row := r.db.QueryRow(`SELECT`+runLogColumns+`
	FROM etl_run_log
	WHERE status = ?
	ORDER BY end_time DESC
	LIMIT 1`, RunStatusSuccess)

	run, err := scanRunLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении информации о последнем успешном запуске ETL: %w", err)
	}

	return run, nil
}

// GetRecentRuns получает последние запуски ETL
func (r *SQLETLLogRepository) GetRecentRuns(limit int) ([]ETLRunLog, error) {
	rows, err := r.db.Query(`SELECT`+runLogColumns+`
	FROM etl_run_log
	ORDER BY start_time DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении списка запусков ETL: %w", err)
	}
	defer rows.Close()

	var runs []ETLRunLog
	for rows.Next() {
		run, err := scanRunLog(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании записи о запуске ETL: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после итерации по записям о запусках ETL: %w", err)
	}

	return runs, nil
}

// GetETLStateMonitor получает сводку по всем запускам
func (r *SQLETLLogRepository) GetETLStateMonitor() (*ETLStateMonitor, error) {
	lastSuccessful, err := r.GetLastSuccessfulRun()
	if err != nil {
		return nil, err
	}

	var totalSuccess, totalFailed, totalZones sql.NullInt64
	var avgExecution sql.NullFloat64

	err = r.db.QueryRow(`
		SELECT
			SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
			AVG(CASE WHEN status = 'success' THEN execution_time_seconds ELSE NULL END),
			SUM(CASE WHEN status = 'success' THEN zones_loaded ELSE 0 END)
		FROM etl_run_log
	`).Scan(&totalSuccess, &totalFailed, &avgExecution, &totalZones)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении статистики запусков ETL: %w", err)
	}

	return &ETLStateMonitor{
		LastSuccessfulRun:       lastSuccessful,
		TotalSuccessfulRuns:     int(totalSuccess.Int64),
		TotalFailedRuns:         int(totalFailed.Int64),
		AvgExecutionTimeSeconds: avgExecution.Float64,
		TotalZonesLoaded:        int(totalZones.Int64),
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunLog(row rowScanner) (*ETLRunLog, error) {
	var run ETLRunLog
	var endTime sql.NullTime

	err := row.Scan(
		&run.ID, &run.StartTime, &endTime, &run.Status,
		&run.FilesRead, &run.RowsNormalized, &run.ZonesLoaded, &run.PeriodsLoaded,
		&run.ErrorMessage, &run.ExecutionTimeSeconds,
	)
	if err != nil {
		return nil, err
	}

	if endTime.Valid {
		run.EndTime = endTime.Time
	}

	return &run, nil
}
