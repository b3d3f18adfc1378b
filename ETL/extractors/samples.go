package extractors

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
)

// Демонстрационные наборы данных по пяти зонам
//
//go:embed sample/*.csv
var samples embed.FS

// HasSample сообщает, есть ли демонстрационные данные для источника
func HasSample(source string) bool {
	_, err := samples.ReadFile(samplePath(source))
	return err == nil
}

// LoadSample возвращает демонстрационную таблицу источника
func LoadSample(source string) (models.RawTable, error) {
	data, err := samples.ReadFile(samplePath(source))
	if err != nil {
		return models.RawTable{}, fmt.Errorf("нет демонстрационных данных для источника %q: %w", source, err)
	}

	table, err := ReadCSV(bytes.NewReader(data))
	if err != nil {
		return models.RawTable{}, fmt.Errorf("ошибка чтения демонстрационных данных %q: %w", source, err)
	}

	table.Source = source
	table.Path = "sample:" + source
	return table, nil
}

func samplePath(source string) string {
	return "sample/" + source + ".csv"
}
