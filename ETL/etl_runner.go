package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/config"
	"github.com/LilVoxy/wash_dashboard/ETL/linear_regression"
	"github.com/LilVoxy/wash_dashboard/ETL/load"
	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"github.com/LilVoxy/wash_dashboard/ETL/pipeline"
	"github.com/LilVoxy/wash_dashboard/ETL/ranking"
	"github.com/LilVoxy/wash_dashboard/ETL/utils"
	"github.com/LilVoxy/wash_dashboard/presentation"
	"github.com/go-co-op/gocron"
)

type ETLRunner struct {
	config      config.DashboardConfig
	olapDB      *sql.DB
	logger      *utils.ETLLogger
	pipeline    *pipeline.Pipeline
	loadManager *load.LoadManager
	etlLogRepo  *models.SQLETLLogRepository
}

// NewETLRunner создает новый экземпляр ETLRunner с подключением к OLAP базе
func NewETLRunner(cfg config.DashboardConfig) (*ETLRunner, error) {
	logger := utils.NewETLLogger(cfg.EnableDetailedLogging, cfg.LogDir)
	logger.Info("Инициализация ETL Runner")

	olapDB, err := config.ConnectDatabase(cfg.OLAPConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	etlLogRepo := models.NewSQLETLLogRepository(olapDB)
	if err := etlLogRepo.CreateETLLogTable(); err != nil {
		config.CloseDatabase(olapDB)
		return nil, fmt.Errorf("ошибка при создании таблицы логов ETL: %w", err)
	}

	loadManager := load.NewLoadManager(olapDB, cfg.OLAPConfig.Driver, logger)
	if err := loadManager.EnsureSchema(); err != nil {
		config.CloseDatabase(olapDB)
		return nil, err
	}

	return &ETLRunner{
		config:      cfg,
		olapDB:      olapDB,
		logger:      logger,
		pipeline:    pipeline.New(cfg, nil, logger),
		loadManager: loadManager,
		etlLogRepo:  etlLogRepo,
	}, nil
}

// Close закрывает соединение с базой данных
func (r *ETLRunner) Close() {
	r.logger.Info("Завершение работы ETL Runner")
	config.CloseDatabase(r.olapDB)
}

// ExecuteETL выполняет полный ETL процесс без фильтров
func (r *ETLRunner) ExecuteETL() error {
	r.logger.LogPipelineStart()
	startTime := time.Now()

	logID, err := r.etlLogRepo.CreateLogEntry(startTime)
	if err != nil {
		r.logger.Error("Ошибка при создании записи в журнале ETL: %v", err)
		return fmt.Errorf("ошибка при создании записи в журнале ETL: %w", err)
	}

	runLog := &models.ETLRunLog{
		ID:        logID,
		StartTime: startTime,
		Status:    models.RunStatusInProgress,
	}

	lastRun, err := r.etlLogRepo.GetLastSuccessfulRun()
	if err != nil {
		r.logger.Warn("Не удалось получить информацию о последнем успешном запуске: %v", err)
	}
	if lastRun != nil {
		r.logger.Info("Последний успешный запуск: %v, зон: %d", lastRun.EndTime, lastRun.ZonesLoaded)
	}

	// 1-2. Extract и Transform, прогноз и сборка дашборда
	dashboard, data, err := r.pipeline.RenderData(models.FilterParams{})
	if err != nil {
		errMsg := fmt.Sprintf("Ошибка в фазах Extract/Transform: %v", err)
		r.logger.Error(errMsg)
		r.updateETLRunLogFailure(runLog, errMsg)
		return fmt.Errorf("ошибка в фазах Extract/Transform: %w", err)
	}

	for _, warning := range data.Warnings {
		r.logger.Warn("%s", warning)
	}

	// 3. Фаза загрузки данных (Load)
	if err := r.loadManager.Load(data, dashboard, logID); err != nil {
		errMsg := fmt.Sprintf("Ошибка в фазе Load: %v", err)
		r.logger.Error(errMsg)
		r.updateETLRunLogFailure(runLog, errMsg)
		return fmt.Errorf("ошибка в фазе Load: %w", err)
	}

	// 4. Рейтинги зон по загруженной сводке
	if _, err := r.runRanking(data.Zones); err != nil {
		r.logger.Warn("Ошибка при расчете рейтингов зон: %v", err)
	}

	// 5. Прогноз по накопленным в OLAP помесячным фактам
	if err := r.runLinearRegression(linear_regression.ConfigFromForecast(r.config.Forecast)); err != nil {
		// Прогноз некритичен для ETL
		r.logger.Warn("Ошибка при выполнении линейной регрессии: %v", err)
	}

	runLog.FilesRead = data.Metadata.FilesRead
	runLog.RowsNormalized = data.Metadata.RowsNormalized
	runLog.ZonesLoaded = len(data.Zones)
	runLog.PeriodsLoaded = len(data.Periods)
	r.updateETLRunLogSuccess(runLog)

	r.logger.Info("ETL процесс успешно завершен. Длительность: %v", time.Since(startTime))
	return nil
}

func (r *ETLRunner) updateETLRunLogSuccess(runLog *models.ETLRunLog) {
	runLog.EndTime = time.Now()
	if err := r.etlLogRepo.UpdateLogEntrySuccess(runLog); err != nil {
		r.logger.Error("Ошибка при обновлении записи в журнале ETL: %v", err)
	}
}

func (r *ETLRunner) updateETLRunLogFailure(runLog *models.ETLRunLog, errorMessage string) {
	runLog.EndTime = time.Now()
	runLog.ErrorMessage = errorMessage
	if err := r.etlLogRepo.UpdateLogEntryFailure(runLog); err != nil {
		r.logger.Error("Ошибка при обновлении записи в журнале ETL: %v", err)
	}
}

// StartScheduler запускает планировщик для регулярного выполнения ETL
func (r *ETLRunner) StartScheduler(ctx context.Context) {
	scheduler := gocron.NewScheduler(time.UTC)

	r.logger.Info("Запуск планировщика ETL с интервалом %v", r.config.RunInterval)

	_, err := scheduler.Every(r.config.RunInterval).Do(func() {
		r.logger.Info("Запланированный запуск ETL процесса")
		if err := r.ExecuteETL(); err != nil {
			r.logger.Error("Ошибка при выполнении запланированного ETL: %v", err)
		}
	})
	if err != nil {
		r.logger.Error("Ошибка при настройке планировщика: %v", err)
		return
	}

	scheduler.StartAsync()

	<-ctx.Done()

	scheduler.Stop()
	r.logger.Info("Планировщик ETL остановлен")
}

func (r *ETLRunner) runLinearRegression(cfg linear_regression.Config) error {
	r.logger.Info("Запуск линейной регрессии: показатель=%s, месяцев=%d, прогноз=%d, доверие=%.2f, минR²=%.2f",
		cfg.Metric, cfg.AnalysisPeriods, cfg.ForecastPeriods, cfg.ConfidenceLevel, cfg.MinR2Threshold)
	return linear_regression.RunWithCustomConfig(r.olapDB, r.logger, cfg)
}

func (r *ETLRunner) runRanking(zones []models.ZoneSummary) (map[string][]ranking.ZoneRank, error) {
	processor := ranking.NewProcessor(ranking.NewSQLRepository(r.olapDB, r.logger), r.logger, ranking.DefaultConfig())
	return processor.Process(zones)
}

// RunOnce запускает ETL процесс один раз
func RunOnce(cfg config.DashboardConfig) {
	runner, err := NewETLRunner(cfg)
	if err != nil {
		log.Fatalf("Ошибка при создании ETL Runner: %v", err)
	}
	defer runner.Close()

	if err := runner.ExecuteETL(); err != nil {
		log.Fatalf("Ошибка при выполнении ETL: %v", err)
	}
}

// RunScheduled запускает ETL процесс по расписанию
func RunScheduled(cfg config.DashboardConfig) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalCh
		log.Println("Получен сигнал завершения. Останавливаем ETL Runner...")
		cancel()
	}()

	runner, err := NewETLRunner(cfg)
	if err != nil {
		log.Fatalf("Ошибка при создании ETL Runner: %v", err)
	}
	defer runner.Close()

	// Первый запуск не ждёт интервала
	if err := runner.ExecuteETL(); err != nil {
		log.Printf("Ошибка при выполнении ETL: %v", err)
	}
	runner.StartScheduler(ctx)
}

// RunLinearRegression запускает только линейную регрессию по фактам OLAP базы
func RunLinearRegression(cfg config.DashboardConfig, lrConfig linear_regression.Config) {
	log.Println("Запуск утилиты линейной регрессии")

	runner, err := NewETLRunner(cfg)
	if err != nil {
		log.Fatalf("Ошибка при создании ETL Runner: %v", err)
	}
	defer runner.Close()

	if err := runner.runLinearRegression(lrConfig); err != nil {
		log.Fatalf("Ошибка при выполнении линейной регрессии: %v", err)
	}

	log.Println("Линейная регрессия успешно завершена")
}

// RunRanking пересчитывает рейтинги зон по сводке, уже загруженной в OLAP базу
func RunRanking(cfg config.DashboardConfig, top int) {
	runner, err := NewETLRunner(cfg)
	if err != nil {
		log.Fatalf("Ошибка при создании ETL Runner: %v", err)
	}
	defer runner.Close()

	zones, err := ranking.NewDataService(runner.olapDB).GetZoneSummaries()
	if err != nil {
		log.Fatalf("Ошибка при чтении сводки по зонам: %v", err)
	}
	if len(zones) == 0 {
		log.Println("Сводка по зонам пуста, сначала выполните режим once")
		return
	}

	result, err := runner.runRanking(zones)
	if err != nil {
		log.Fatalf("Ошибка при расчете рейтингов: %v", err)
	}

	for _, metric := range ranking.DefaultConfig().Metrics {
		log.Printf("Топ зон по %s:", metric)
		for _, rank := range ranking.Top(result[metric], top) {
			log.Printf("  %d. %s: %.2f (%s)", rank.Position, rank.Zone, rank.Value, rank.Category)
		}
	}
}

// ETLStatus - состояние ETL для режима status
type ETLStatus struct {
	Monitor    *models.ETLStateMonitor
	RecentRuns []models.ETLRunLog
	// Последний сохранённый снимок дашборда, nil если снимков нет
	Snapshot      *presentation.Dashboard
	SnapshotRunID string
}

// Status собирает сводку по запускам, последние запуски и последний снимок дашборда
func (r *ETLRunner) Status(recent int) (*ETLStatus, error) {
	monitor, err := r.etlLogRepo.GetETLStateMonitor()
	if err != nil {
		return nil, err
	}

	runs, err := r.etlLogRepo.GetRecentRuns(recent)
	if err != nil {
		return nil, err
	}

	snapshot, runID, err := r.loadManager.LatestDashboard()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения снимка дашборда: %w", err)
	}

	return &ETLStatus{
		Monitor:       monitor,
		RecentRuns:    runs,
		Snapshot:      snapshot,
		SnapshotRunID: runID,
	}, nil
}

// RunStatus выводит состояние ETL: статистику запусков и последний снимок
func RunStatus(cfg config.DashboardConfig, recent int) {
	runner, err := NewETLRunner(cfg)
	if err != nil {
		log.Fatalf("Ошибка при создании ETL Runner: %v", err)
	}
	defer runner.Close()

	status, err := runner.Status(recent)
	if err != nil {
		log.Fatalf("Ошибка при получении состояния ETL: %v", err)
	}

	m := status.Monitor
	log.Printf("Успешных запусков: %d, неудачных: %d, среднее время: %.2f с, зон загружено: %d",
		m.TotalSuccessfulRuns, m.TotalFailedRuns, m.AvgExecutionTimeSeconds, m.TotalZonesLoaded)
	if m.LastSuccessfulRun != nil {
		log.Printf("Последний успешный запуск: %s, завершён %v", m.LastSuccessfulRun.ID, m.LastSuccessfulRun.EndTime)
	}

	for _, run := range status.RecentRuns {
		log.Printf("  %s %s %v зон=%d %s", run.ID, run.Status, run.StartTime, run.ZonesLoaded, run.ErrorMessage)
	}

	if status.Snapshot == nil {
		log.Println("Снимков дашборда ещё нет")
		return
	}
	d := status.Snapshot
	log.Printf("Снимок запуска %s: состояние %s, зон %d, рядов %d, сформирован %v",
		status.SnapshotRunID, d.State, len(d.Zones), len(d.Series), d.GeneratedAt)
}

// renderDashboard строит дашборд без подключения к базе (режимы charts и export)
func renderDashboard(cfg config.DashboardConfig, filter models.FilterParams) (*presentation.Dashboard, error) {
	logger := utils.NewETLLogger(cfg.EnableDetailedLogging, cfg.LogDir)
	return pipeline.New(cfg, nil, logger).Render(filter)
}

// WriteCharts сохраняет PNG-графики дашборда в каталог outDir
func WriteCharts(d *presentation.Dashboard, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога %s: %w", outDir, err)
	}

	var written []string
	for _, name := range presentation.ChartNames(d) {
		var buf bytes.Buffer
		err := presentation.RenderChart(name, d, &buf)
		if errors.Is(err, presentation.ErrNoData) {
			log.Printf("График %s пропущен: нет данных", name)
			continue
		}
		if err != nil {
			return written, err
		}

		path := filepath.Join(outDir, presentation.ExportFileName(name)+".png")
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return written, fmt.Errorf("ошибка записи графика %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// WriteExports сохраняет XLSX и CSV выгрузки дашборда в каталог outDir
func WriteExports(d *presentation.Dashboard, outDir, label string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога %s: %w", outDir, err)
	}
	base := filepath.Join(outDir, presentation.ExportFileName(label))

	var xlsx bytes.Buffer
	if err := presentation.WriteWorkbook(d, &xlsx); err != nil {
		return nil, err
	}
	if err := os.WriteFile(base+".xlsx", xlsx.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("ошибка записи XLSX: %w", err)
	}

	var csv bytes.Buffer
	if err := presentation.WriteZonesCSV(d.Zones, &csv); err != nil {
		return nil, err
	}
	if err := os.WriteFile(base+".csv", csv.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("ошибка записи CSV: %w", err)
	}

	return []string{base + ".xlsx", base + ".csv"}, nil
}

func main() {
	configPtr := flag.String("config", "", "Путь к YAML-файлу конфигурации")
	modePtr := flag.String("mode", "scheduled", "Режим работы: scheduled, once, lr, rank, status, charts или export")
	metricPtr := flag.String("metric", "", "Показатель для прогноза (только для режима lr)")
	periodsPtr := flag.Int("periods", 24, "Количество месяцев для анализа (только для режима lr)")
	forecastPtr := flag.Int("forecast", 6, "Количество месяцев для прогноза (только для режима lr)")
	confidencePtr := flag.Float64("confidence", 0.95, "Уровень доверия (только для режима lr)")
	minR2Ptr := flag.Float64("min-r2", 0.30, "Минимальный порог для R² (только для режима lr)")
	zonePtr := flag.String("zone", "", "Фильтр по зоне (режимы charts и export)")
	countryPtr := flag.String("country", "", "Фильтр по стране (режимы charts и export)")
	startPtr := flag.String("start", "", "Начальный месяц YYYY-MM (режимы charts и export)")
	endPtr := flag.String("end", "", "Конечный месяц YYYY-MM (режимы charts и export)")
	topPtr := flag.Int("top", 10, "Размер топа зон (только для режима rank)")
	recentPtr := flag.Int("recent", 5, "Сколько последних запусков показать (только для режима status)")
	outPtr := flag.String("out", "", "Каталог для графиков и выгрузок (по умолчанию output_dir)")

	flag.Parse()

	cfg, err := config.LoadConfig(*configPtr)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	outDir := cfg.OutputDir
	if *outPtr != "" {
		outDir = *outPtr
	}

	filterValues := url.Values{}
	filterValues.Set("zone", *zonePtr)
	filterValues.Set("country", *countryPtr)
	filterValues.Set("start", *startPtr)
	filterValues.Set("end", *endPtr)

	log.Println("Запуск ETL Runner в режиме:", *modePtr)

	switch *modePtr {
	case "once":
		RunOnce(cfg)
	case "scheduled":
		RunScheduled(cfg)
	case "lr":
		lrConfig := linear_regression.ConfigFromForecast(cfg.Forecast)
		if *metricPtr != "" {
			lrConfig.Metric = *metricPtr
		}
		lrConfig.AnalysisPeriods = *periodsPtr
		lrConfig.ForecastPeriods = *forecastPtr
		lrConfig.ConfidenceLevel = *confidencePtr
		lrConfig.MinR2Threshold = *minR2Ptr
		RunLinearRegression(cfg, lrConfig)
	case "rank":
		RunRanking(cfg, *topPtr)
	case "status":
		RunStatus(cfg, *recentPtr)
	case "charts", "export":
		filter, err := models.ParseFilter(filterValues)
		if err != nil {
			log.Fatalf("Неверные параметры фильтра: %v", err)
		}
		d, err := renderDashboard(cfg, filter)
		if err != nil {
			log.Fatalf("Ошибка построения дашборда: %v", err)
		}

		var written []string
		if *modePtr == "charts" {
			written, err = WriteCharts(d, outDir)
		} else {
			written, err = WriteExports(d, outDir, "wash dashboard "+filter.Country+" "+filter.Zone)
		}
		if err != nil {
			log.Fatalf("Ошибка записи файлов: %v", err)
		}
		for _, path := range written {
			log.Println("Записан файл", path)
		}
	default:
		log.Println("Неизвестный режим работы:", *modePtr)
		log.Println("Доступные режимы: scheduled, once, lr, rank, status, charts, export")
		os.Exit(1)
	}

	log.Println("ETL Runner завершил работу")
}
