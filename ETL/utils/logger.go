package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// ETLLogger представляет логгер для конвейера дашборда
type ETLLogger struct {
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
	debugLogger *log.Logger
	isVerbose   bool
	mirror      bool
}

// NewETLLogger создает логгер, пишущий в файл журнала в каталоге logDir
// и дублирующий сообщения в стандартный вывод
func NewETLLogger(verbose bool, logDir string) *ETLLogger {
	if logDir == "" {
		logDir = "."
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		log.Fatalf("Не удалось создать каталог для логов %s: %v", logDir, err)
	}

	currentTime := time.Now().Format("2006-01-02")
	logFileName := filepath.Join(logDir, fmt.Sprintf("dashboard_etl_%s.log", currentTime))

	file, err := os.OpenFile(logFileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
	if err != nil {
		log.Fatalf("Не удалось открыть или создать файл лога: %v", err)
	}

	logger := newLogger(file, verbose)
	logger.mirror = true
	return logger
}

// NewWriterLogger создает логгер, пишущий только в указанный writer (без дублирования в stdout)
func NewWriterLogger(w io.Writer, verbose bool) *ETLLogger {
	return newLogger(w, verbose)
}

func newLogger(w io.Writer, verbose bool) *ETLLogger {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	return &ETLLogger{
		infoLogger:  log.New(w, "INFO: ", flags),
		warnLogger:  log.New(w, "WARN: ", flags),
		errorLogger: log.New(w, "ERROR: ", flags),
		debugLogger: log.New(w, "DEBUG: ", flags),
		isVerbose:   verbose,
	}
}

// Info логирует информационное сообщение
func (l *ETLLogger) Info(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	l.infoLogger.Output(2, msg)

	if l.mirror {
		log.Println("INFO:", msg)
	}
}

// Warn логирует некритичную проблему с данными
func (l *ETLLogger) Warn(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	l.warnLogger.Output(2, msg)

	if l.mirror {
		log.Println("⚠️ WARN:", msg)
	}
}

// Error логирует сообщение об ошибке
func (l *ETLLogger) Error(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	l.errorLogger.Output(2, msg)

	if l.mirror {
		log.Println("❌ ERROR:", msg)
	}
}

// Debug логирует отладочное сообщение (только если включен verbose режим)
func (l *ETLLogger) Debug(format string, v ...interface{}) {
	if !l.isVerbose {
		return
	}

	msg := fmt.Sprintf(format, v...)
	l.debugLogger.Output(2, msg)

	if l.mirror {
		log.Println("DEBUG:", msg)
	}
}

// LogPipelineStart логирует начало прогона конвейера
func (l *ETLLogger) LogPipelineStart() {
	l.Info("Начало выполнения конвейера дашборда")
}

// LogPipelineComplete логирует завершение прогона конвейера
func (l *ETLLogger) LogPipelineComplete(startTime time.Time, zones int, periods int) {
	l.Info("Конвейер завершён. Длительность: %v", time.Since(startTime))
	l.Info("Получено: %d зон, %d периодов", zones, periods)
}

// LogExtractComplete логирует завершение фазы чтения файлов
func (l *ETLLogger) LogExtractComplete(files int, rows int, duration time.Duration) {
	l.Info("Фаза Extract завершена. Длительность: %v", duration)
	l.Info("Прочитано: %d файлов, %d строк", files, rows)
}

// LogTransformComplete логирует завершение фазы преобразования
func (l *ETLLogger) LogTransformComplete(rows int, invalid int, duration time.Duration) {
	l.Info("Фаза Transform завершена. Длительность: %v", duration)
	if invalid > 0 {
		l.Warn("Нормализовано %d строк, %d значений не распознаны и помечены как пропуски", rows, invalid)
		return
	}
	l.Info("Нормализовано %d строк", rows)
}
