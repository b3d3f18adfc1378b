package load

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/utils"
)

const snapshotDDL = `
CREATE TABLE IF NOT EXISTS dashboard_snapshots (
	run_id VARCHAR(36) NOT NULL PRIMARY KEY,
	created_at TIMESTAMP NOT NULL,
	state VARCHAR(16) NOT NULL,
	payload LONGBLOB NOT NULL
)`

// SnapshotLoader сохраняет и читает сжатые снимки дашборда
type SnapshotLoader struct {
	db     *sql.DB
	logger *utils.ETLLogger
}

// NewSnapshotLoader создает новый экземпляр SnapshotLoader
func NewSnapshotLoader(db *sql.DB, logger *utils.ETLLogger) *SnapshotLoader {
	return &SnapshotLoader{
		db:     db,
		logger: logger,
	}
}

// Save записывает снимок запуска. Повторная запись того же запуска запрещена.
func (l *SnapshotLoader) Save(runID, state string, payload []byte) error {
	_, err := l.db.Exec(
		`INSERT INTO dashboard_snapshots (run_id, created_at, state, payload) VALUES (?, ?, ?, ?)`,
		runID, time.Now().UTC(), state, payload,
	)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении снимка дашборда %s: %w", runID, err)
	}

	l.logger.Debug("Снимок дашборда %s сохранён (%d байт)", runID, len(payload))
	return nil
}

// Latest возвращает последний сохранённый снимок.
// Если снимков нет, возвращает пустой runID без ошибки.
func (l *SnapshotLoader) Latest() (runID string, payload []byte, err error) {
	err = l.db.QueryRow(
		`SELECT run_id, payload FROM dashboard_snapshots ORDER BY created_at DESC LIMIT 1`,
	).Scan(&runID, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("ошибка при чтении последнего снимка дашборда: %w", err)
	}
	return runID, payload, nil
}
