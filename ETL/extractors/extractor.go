package extractors

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/cache"
	"github.com/LilVoxy/wash_dashboard/ETL/config"
	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/LilVoxy/wash_dashboard/ETL/utils"
)

// Extractor координирует чтение входных файлов всех источников
type Extractor struct {
	cfg       config.DashboardConfig
	fileCache *cache.FileCache
	logger    *utils.ETLLogger
}

// NewExtractor создает новый экземпляр Extractor.
// fileCache может быть nil, тогда файлы читаются при каждом вызове.
func NewExtractor(cfg config.DashboardConfig, fileCache *cache.FileCache, logger *utils.ETLLogger) *Extractor {
	return &Extractor{
		cfg:       cfg,
		fileCache: fileCache,
		logger:    logger,
	}
}

// Extract читает файлы всех настроенных источников.
// Отсутствие обязательного файла возвращает *FileNotFoundError,
// если не разрешена подмена демонстрационными данными.
func (e *Extractor) Extract() (*models.ExtractedData, error) {
	startTime := time.Now()

	extracted := &models.ExtractedData{
		Tables:  make(map[string]models.RawTable, len(e.cfg.Sources)),
		Missing: make(map[string]error),
	}

	rows := 0
	for _, src := range e.cfg.Sources {
		path := e.SourcePath(src)

		table, err := e.load(path)
		switch {
		case err == nil:
			table.Source = src.Name
			extracted.Tables[src.Name] = table
			rows += len(table.Rows)
			e.logger.Debug("Источник %s: прочитано %d строк из %s", src.Name, len(table.Rows), path)

		case errors.Is(err, fs.ErrNotExist):
			notFound := &FileNotFoundError{Source: src.Name, Path: path}

			if e.cfg.UseSampleData && HasSample(src.Name) {
				sample, sampleErr := LoadSample(src.Name)
				if sampleErr != nil {
					return nil, sampleErr
				}
				e.logger.Warn("Файл %s не найден, используются демонстрационные данные источника %s", path, src.Name)
				extracted.Tables[src.Name] = sample
				extracted.SampleSources = append(extracted.SampleSources, src.Name)
				rows += len(sample.Rows)
				continue
			}

			if src.Required {
				e.logger.Error("Не найден файл обязательного источника %s: %s", src.Name, path)
				return nil, notFound
			}

			e.logger.Warn("Файл необязательного источника %s не найден: %s", src.Name, path)
			extracted.Missing[src.Name] = notFound

		default:
			e.logger.Error("Ошибка при чтении источника %s: %v", src.Name, err)
			return nil, fmt.Errorf("ошибка извлечения источника %s: %w", src.Name, err)
		}
	}

	extracted.LastRunTS = time.Now()
	e.logger.LogExtractComplete(len(extracted.Tables), rows, time.Since(startTime))

	return extracted, nil
}

// SourcePath возвращает путь к файлу источника
func (e *Extractor) SourcePath(src config.SourceConfig) string {
	if filepath.IsAbs(src.File) {
		return src.File
	}
	return filepath.Join(e.cfg.DataDir, src.File)
}

func (e *Extractor) load(path string) (models.RawTable, error) {
	if e.fileCache != nil {
		return e.fileCache.Load(path, ReadTable)
	}

	if _, err := os.Stat(path); err != nil {
		return models.RawTable{}, err
	}
	return ReadTable(path)
}
