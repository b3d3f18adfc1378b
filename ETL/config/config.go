package config

import (
	"fmt"
	"os"
	"time"

	"github.com/LilVoxy/wash_dashboard/ETL/models"
	"gopkg.in/yaml.v3"
)

// DashboardConfig содержит конфигурацию конвейера и сервера дашборда
type DashboardConfig struct {
	// Каталог с входными файлами
	DataDir string `yaml:"data_dir"`

	// Источники данных: имя, файл, префикс колонок
	Sources []SourceConfig `yaml:"sources"`

	// Суффикс процентных колонок
	PercentSuffix string `yaml:"percent_suffix"`

	// Дополнительные процентные колонки без суффикса
	ExtraPercentColumns []string `yaml:"extra_percent_columns"`

	// Числовые колонки со счётчиками (население, объёмы, деньги)
	CountColumns []string `yaml:"count_columns"`

	// Параметры выбора последнего среза для воды и канализации
	WaterSnapshot SnapshotConfig `yaml:"water_snapshot"`
	SewerSnapshot SnapshotConfig `yaml:"sewer_snapshot"`

	// Лестницы доступа по зонам (ступени от лучшей к худшей)
	Ladders []LadderConfig `yaml:"ladders"`

	// Средние по годам для источников срезов
	YearlyMetrics []YearlyMetricConfig `yaml:"yearly_metrics"`

	// Источник помесячных эксплуатационных данных
	OperationsSource string `yaml:"operations_source"`

	// Метрики периодного агрегата
	PeriodMetrics []models.MetricSpec `yaml:"period_metrics"`

	// Целевые значения KPI для карточек
	Targets []TargetConfig `yaml:"targets"`

	// Прогноз тренда
	Forecast ForecastConfig `yaml:"forecast"`

	// Использовать демонстрационные данные, если обязательного файла нет
	UseSampleData bool `yaml:"use_sample_data"`

	// Размер кэша загруженных файлов
	CacheSize int `yaml:"cache_size"`

	// Период проверки изменений файлов сервером
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// Параметры HTTP-сервера
	Server ServerConfig `yaml:"server"`

	// Каталог для графиков и выгрузок
	OutputDir string `yaml:"output_dir"`

	// Конфигурация для подключения к OLAP БД (целевой)
	OLAPConfig DatabaseConfig `yaml:"olap"`

	// Интервал запуска ETL по расписанию
	RunInterval time.Duration `yaml:"run_interval"`

	// Включение/отключение подробного логирования
	EnableDetailedLogging bool `yaml:"enable_detailed_logging"`

	// Каталог для файлов журнала
	LogDir string `yaml:"log_dir"`
}

// SourceConfig описывает один входной файл
type SourceConfig struct {
	Name     string `yaml:"name"`
	File     string `yaml:"file"`
	Prefix   string `yaml:"prefix"`
	Required bool   `yaml:"required"`
}

// SnapshotConfig описывает вызов выбора последнего среза
type SnapshotConfig struct {
	Source       string            `yaml:"source"`
	Keys         []string          `yaml:"keys"`
	Rename       map[string]string `yaml:"rename"`
	Extras       []string          `yaml:"extras"`
	SafelyColumn string            `yaml:"safely_column"`
}

// LadderLevel - ступень лестницы доступа: подпись и имя значения в сводке по зоне
type LadderLevel struct {
	Label  string `yaml:"label" json:"label"`
	Column string `yaml:"column" json:"column"`
}

// LadderConfig - лестница доступа одного вида услуг
type LadderConfig struct {
	Name   string        `yaml:"name" json:"name"`
	Levels []LadderLevel `yaml:"levels" json:"levels"`
}

// YearlyMetricConfig - среднее колонки по годам для каждого из источников
type YearlyMetricConfig struct {
	Name    string   `yaml:"name"`
	Column  string   `yaml:"column"`
	Sources []string `yaml:"sources"`
}

// TargetConfig - целевое значение KPI
type TargetConfig struct {
	Metric        string  `yaml:"metric" json:"metric"`
	Label         string  `yaml:"label" json:"label"`
	Target        float64 `yaml:"target" json:"target"`
	LowerIsBetter bool    `yaml:"lower_is_better" json:"lower_is_better"`
}

// ForecastConfig - параметры прогноза тренда по периодному ряду
type ForecastConfig struct {
	Metric          string  `yaml:"metric"`
	Periods         int     `yaml:"periods"`
	ConfidenceLevel float64 `yaml:"confidence_level"`
	MinR2Threshold  float64 `yaml:"min_r2"`
}

// ServerConfig - параметры HTTP-сервера
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// DatabaseConfig содержит настройки подключения к базе данных
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

// Значения конфигурации по умолчанию
var (
	DefaultSources = []SourceConfig{
		{Name: "water", File: "Water Access Data.csv", Prefix: "w_", Required: true},
		{Name: "sewer", File: "Sewer Access Data.csv", Prefix: "s_", Required: false},
		{Name: "operations", File: "Operations Data.csv", Prefix: "", Required: false},
	}

	DefaultPeriodMetrics = []models.MetricSpec{
		{Name: "quality_rate", Agg: models.AggMean, Numerator: "tests_passed", Denominator: "tests_conducted"},
		{Name: "nrw_pct", Agg: models.AggMean, Numerator: "produced_m3", Subtract: "billed_m3", Denominator: "produced_m3"},
		{Name: "collection_efficiency", Agg: models.AggMean, Numerator: "revenue_collected", Denominator: "billed_amount"},
		{Name: "om_coverage", Agg: models.AggMean, Numerator: "revenue_collected", Denominator: "opex"},
		{Name: "blockages", Agg: models.AggSum, Column: "blockages"},
		{Name: "hours_of_supply", Agg: models.AggMean, Column: "hours_of_supply"},
		{Name: "produced_m3", Agg: models.AggSum, Column: "produced_m3"},
	}

	// Пороговые значения из методики IBNET/AMCOW
	DefaultTargets = []TargetConfig{
		{Metric: "quality_rate", Label: "Drinking water quality compliance", Target: 95},
		{Metric: "nrw_pct", Label: "Non-revenue water", Target: 25, LowerIsBetter: true},
		{Metric: "collection_efficiency", Label: "Collection efficiency", Target: 95},
		{Metric: "om_coverage", Label: "O&M coverage", Target: 150},
		{Metric: "hours_of_supply", Label: "Hours of supply", Target: 22},
	}

	// Лестницы JMP: вода и санитария
	DefaultLadders = []LadderConfig{
		{Name: "water", Levels: []LadderLevel{
			{Label: "Safely managed", Column: "water_safely_pct"},
			{Label: "Basic", Column: "water_basic_pct"},
			{Label: "Limited", Column: "water_limited_pct"},
			{Label: "Unimproved", Column: "water_unimproved_pct"},
			{Label: "Surface water", Column: "water_surface_water_pct"},
		}},
		{Name: "sewer", Levels: []LadderLevel{
			{Label: "Safely managed", Column: "sewer_safely_pct"},
			{Label: "Basic", Column: "sewer_basic_pct"},
			{Label: "Limited", Column: "sewer_limited_pct"},
			{Label: "Unimproved", Column: "sewer_unimproved_pct"},
			{Label: "Open defecation", Column: "sewer_open_defecation_pct"},
		}},
	}

	DefaultYearlyMetrics = []YearlyMetricConfig{
		{Name: "municipal_coverage", Column: "municipal_coverage", Sources: []string{"water", "sewer"}},
	}

	DefaultOLAPConfig = DatabaseConfig{
		Driver: "sqlite",
		DBName: "wash_analytics.db",
	}

	DefaultDashboardConfig = DashboardConfig{
		DataDir:             "Data",
		PercentSuffix:       "_pct",
		ExtraPercentColumns: []string{"municipal_coverage"},
		CountColumns: []string{
			"population", "volume_m3",
			"tests_conducted", "tests_passed",
			"produced_m3", "billed_m3",
			"billed_amount", "revenue_collected", "opex",
			"blockages", "hours_of_supply",
		},
		OperationsSource:      "operations",
		UseSampleData:         false,
		CacheSize:             32,
		RefreshInterval:       30 * time.Second,
		Server:                ServerConfig{Addr: ":8080", StaticDir: "public"},
		OutputDir:             "Output",
		OLAPConfig:            DefaultOLAPConfig,
		RunInterval:           1 * time.Hour,
		EnableDetailedLogging: false,
		LogDir:                "logs",
	}
)

// GetConfig возвращает конфигурацию по умолчанию
func GetConfig() DashboardConfig {
	config := DefaultDashboardConfig

	config.Sources = append([]SourceConfig(nil), DefaultSources...)
	config.PeriodMetrics = append([]models.MetricSpec(nil), DefaultPeriodMetrics...)
	config.Targets = append([]TargetConfig(nil), DefaultTargets...)
	config.Ladders = append([]LadderConfig(nil), DefaultLadders...)
	config.YearlyMetrics = append([]YearlyMetricConfig(nil), DefaultYearlyMetrics...)

	// Последний срез воды: ключ (страна, зона), процент безопасного водоснабжения
	config.WaterSnapshot = SnapshotConfig{
		Source: "water",
		Keys:   []string{models.ColumnCountry, models.ColumnZone},
		Rename: map[string]string{
			"safely_managed_pct": "water_safely_pct",
			"basic_pct":          "water_basic_pct",
			"limited_pct":        "water_limited_pct",
			"unimproved_pct":     "water_unimproved_pct",
			"surface_water_pct":  "water_surface_water_pct",
			models.ColumnYear:    "water_year",
		},
		SafelyColumn: "water_safely_pct",
	}

	// Последний срез канализации
	config.SewerSnapshot = SnapshotConfig{
		Source: "sewer",
		Keys:   []string{models.ColumnCountry, models.ColumnZone},
		Rename: map[string]string{
			"safely_managed_pct": "sewer_safely_pct",
			"basic_pct":          "sewer_basic_pct",
			"limited_pct":        "sewer_limited_pct",
			"unimproved_pct":     "sewer_unimproved_pct",
			"open_def_pct":       "sewer_open_defecation_pct",
			models.ColumnYear:    "sewer_year",
		},
		SafelyColumn: "sewer_safely_pct",
	}

	config.Forecast = ForecastConfig{
		Metric:          "quality_rate",
		Periods:         6,
		ConfidenceLevel: 0.95,
		MinR2Threshold:  0.30,
	}

	return config
}

// LoadConfig возвращает конфигурацию по умолчанию, поверх которой применён YAML-файл.
// Пустой путь означает конфигурацию по умолчанию.
func LoadConfig(path string) (DashboardConfig, error) {
	config := GetConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return DashboardConfig{}, fmt.Errorf("ошибка чтения файла конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return DashboardConfig{}, fmt.Errorf("ошибка разбора файла конфигурации %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return DashboardConfig{}, err
	}

	return config, nil
}

// Validate проверяет согласованность конфигурации
func (c DashboardConfig) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("не задано ни одного источника данных")
	}

	seen := make(map[string]bool, len(c.Sources))
	for _, src := range c.Sources {
		if src.Name == "" || src.File == "" {
			return fmt.Errorf("у источника должны быть заданы name и file: %+v", src)
		}
		if seen[src.Name] {
			return fmt.Errorf("источник %q указан дважды", src.Name)
		}
		seen[src.Name] = true
	}

	for _, snap := range []SnapshotConfig{c.WaterSnapshot, c.SewerSnapshot} {
		if !seen[snap.Source] {
			return fmt.Errorf("срез ссылается на неизвестный источник %q", snap.Source)
		}
		if snap.SafelyColumn == "" {
			return fmt.Errorf("для среза %q не задана колонка safely_column", snap.Source)
		}
	}

	if c.OperationsSource != "" && !seen[c.OperationsSource] {
		return fmt.Errorf("неизвестный источник эксплуатационных данных %q", c.OperationsSource)
	}

	for _, m := range c.PeriodMetrics {
		if m.Name == "" {
			return fmt.Errorf("у метрики периода не задано имя")
		}
		if m.Agg != models.AggSum && m.Agg != models.AggMean {
			return fmt.Errorf("метрика %q: неизвестная агрегация %q", m.Name, m.Agg)
		}
		if m.Column == "" && (m.Numerator == "" || m.Denominator == "") {
			return fmt.Errorf("метрика %q: нужна колонка или пара numerator/denominator", m.Name)
		}
	}

	for _, ladder := range c.Ladders {
		if ladder.Name == "" || len(ladder.Levels) == 0 {
			return fmt.Errorf("у лестницы доступа должны быть заданы name и levels: %+v", ladder)
		}
		for _, level := range ladder.Levels {
			if level.Column == "" {
				return fmt.Errorf("лестница %q: у ступени %q не задана колонка", ladder.Name, level.Label)
			}
		}
	}

	for _, m := range c.YearlyMetrics {
		if m.Name == "" || m.Column == "" {
			return fmt.Errorf("у годовой метрики должны быть заданы name и column: %+v", m)
		}
		for _, src := range m.Sources {
			if !seen[src] {
				return fmt.Errorf("годовая метрика %q ссылается на неизвестный источник %q", m.Name, src)
			}
		}
	}

	if c.CacheSize <= 0 {
		return fmt.Errorf("размер кэша должен быть положительным, получено %d", c.CacheSize)
	}

	return nil
}

// Source возвращает описание источника по имени
func (c DashboardConfig) Source(name string) (SourceConfig, bool) {
	for _, src := range c.Sources {
		if src.Name == name {
			return src, true
		}
	}
	return SourceConfig{}, false
}
