package models

import (
	"time"
)

// Статусы запуска конвейера
const (
	RunStatusInProgress = "in_progress"
	RunStatusSuccess    = "success"
	RunStatusFailed     = "failed"
)

// ETLRunLog представляет запись о запуске ETL процесса
type ETLRunLog struct {
	ID                   string    `json:"id"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	Status               string    `json:"status"`
	FilesRead            int       `json:"files_read"`
	RowsNormalized       int       `json:"rows_normalized"`
	ZonesLoaded          int       `json:"zones_loaded"`
	PeriodsLoaded        int       `json:"periods_loaded"`
	ErrorMessage         string    `json:"error_message,omitempty"`
	ExecutionTimeSeconds float64   `json:"execution_time_seconds"`
}

// ETLLogRepository представляет репозиторий для работы с логами ETL
type ETLLogRepository interface {
	// CreateETLLogTable создает таблицу журнала, если её нет
	CreateETLLogTable() error

	// CreateLogEntry создает новую запись о запуске ETL и возвращает её ID
	CreateLogEntry(startTime time.Time) (string, error)

	// UpdateLogEntrySuccess отмечает запуск как успешный
	UpdateLogEntrySuccess(run *ETLRunLog) error

	// UpdateLogEntryFailure отмечает запуск как неудачный
	UpdateLogEntryFailure(run *ETLRunLog) error

	// GetLastSuccessfulRun получает информацию о последнем успешном запуске ETL
	GetLastSuccessfulRun() (*ETLRunLog, error)

	// GetRecentRuns возвращает последние запуски, начиная с самого нового
	GetRecentRuns(limit int) ([]ETLRunLog, error)
}

// ETLStateMonitor предоставляет сводную информацию о запусках ETL
type ETLStateMonitor struct {
	LastSuccessfulRun       *ETLRunLog `json:"last_successful_run"`
	TotalSuccessfulRuns     int        `json:"total_successful_runs"`
	TotalFailedRuns         int        `json:"total_failed_runs"`
	AvgExecutionTimeSeconds float64    `json:"avg_execution_time_seconds"`
	TotalZonesLoaded        int        `json:"total_zones_loaded"`
}
