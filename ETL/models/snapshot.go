package models

import (
	"database/sql"
)

// SnapshotRow - последняя по году запись для одного ключа
type SnapshotRow struct {
	Country sql.NullString
	Zone    string
	Year    sql.NullInt64
	Values  map[string]sql.NullFloat64
}

// SnapshotTable - результат выбора последнего среза: ровно одна строка на ключ
type SnapshotTable struct {
	Source     string
	Keys       []string
	YearColumn string
	Columns    []string
	HasCountry bool
	Rows       []SnapshotRow
}

// KeyedByCountry сообщает, входит ли страна в ключ таблицы
func (t SnapshotTable) KeyedByCountry() bool {
	for _, k := range t.Keys {
		if k == ColumnCountry {
			return true
		}
	}
	return false
}

// ZoneSummary - сводка по зоне после сверки источников воды и канализации
type ZoneSummary struct {
	ID             string
	Zone           string
	Country        sql.NullString
	WaterSafelyPct sql.NullFloat64
	SewerSafelyPct sql.NullFloat64
	SafeAccess     sql.NullFloat64
	WaterYear      sql.NullInt64
	SewerYear      sql.NullInt64
	Values         map[string]sql.NullFloat64
}
