package presentation

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNoData - после отбрасывания пропусков рисовать нечего
var ErrNoData = errors.New("нет данных для графика")

// ErrUnknownChart - запрошен неизвестный график
var ErrUnknownChart = errors.New("неизвестный график")

// Имена графиков
const (
	ChartSafeAccess = "safe-access"
	ChartWaterBox   = "water-distribution"

	// Префикс графиков лестниц доступа: ladder-water, ladder-sewer
	ChartLadderPrefix = "ladder-"
)

const (
	chartWidth  = 8 * vg.Inch
	chartHeight = 4 * vg.Inch
)

// ChartNames возвращает имена всех графиков, которые можно построить по дашборду
func ChartNames(d *Dashboard) []string {
	names := []string{ChartSafeAccess, ChartWaterBox}
	if len(d.Zones) > 0 {
		for _, ladder := range d.Zones[0].Ladders {
			names = append(names, ChartLadderPrefix+ladder.Name)
		}
	}
	seen := make(map[string]bool)
	for _, s := range d.Series {
		if !seen[s.Metric] {
			seen[s.Metric] = true
			names = append(names, s.Metric)
		}
	}
	for _, s := range d.Yearly {
		if !seen[s.Metric] {
			seen[s.Metric] = true
			names = append(names, s.Metric)
		}
	}
	return names
}

// RenderChart рисует график дашборда в PNG. Кроме фиксированных имён
// принимается ladder-<лестница> и имя показателя: помесячный ряд
// или, если такого нет, ряды средних по годам.
func RenderChart(name string, d *Dashboard, w io.Writer) error {
	switch {
	case name == ChartSafeAccess:
		return SafeAccessBarChart(d.Zones, w)
	case name == ChartWaterBox:
		return WaterSafelyBoxPlot(d.Zones, w)
	case strings.HasPrefix(name, ChartLadderPrefix):
		return AccessLadderChart(d.Zones, strings.TrimPrefix(name, ChartLadderPrefix), w)
	}

	for _, s := range d.Series {
		if s.Metric != name {
			continue
		}
		var forecast *Series
		if d.Forecast != nil && d.Forecast.Metric == name {
			forecast = d.Forecast
		}
		return SeriesLineChart(s, forecast, w)
	}

	var yearly []Series
	for _, s := range d.Yearly {
		if s.Metric == name {
			yearly = append(yearly, s)
		}
	}
	if len(yearly) > 0 {
		return YearlyLineChart(name, yearly, w)
	}

	return fmt.Errorf("%w: %s", ErrUnknownChart, name)
}

// SafeAccessBarChart рисует столбцы safeAccess по зонам от большего к меньшему.
// Зоны без значения не рисуются.
func SafeAccessBarChart(rows []ZoneRow, w io.Writer) error {
	values, names := safeAccessBars(rows)
	if len(values) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = "Safely managed access by zone"
	p.Y.Label.Text = "%"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return fmt.Errorf("ошибка построения столбчатой диаграммы: %w", err)
	}
	bars.LineStyle.Width = vg.Length(0)

	p.Add(plotter.NewGrid(), bars)
	p.NominalX(names...)

	return writePNG(p, w)
}

// safeAccessBars возвращает значения и подписи столбцов, отсортированные по убыванию
func safeAccessBars(rows []ZoneRow) (plotter.Values, []string) {
	type bar struct {
		name  string
		value float64
	}
	var bars []bar
	for _, row := range rows {
		if row.SafeAccess != nil {
			bars = append(bars, bar{name: row.Name, value: *row.SafeAccess})
		}
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].value > bars[j].value })

	values := make(plotter.Values, 0, len(bars))
	names := make([]string, 0, len(bars))
	for _, b := range bars {
		values = append(values, b.value)
		names = append(names, b.name)
	}
	return values, names
}

// AccessLadderChart рисует лестницу доступа по зонам столбцами с накоплением.
// Зона без единого значения ступени не рисуется, отсутствующая ступень
// в столбце имеет нулевую высоту.
func AccessLadderChart(rows []ZoneRow, ladder string, w io.Writer) error {
	var (
		labels []string
		levels []plotter.Values
		names  []string
		known  bool
	)

	for _, row := range rows {
		var found *Ladder
		for i := range row.Ladders {
			if row.Ladders[i].Name == ladder {
				found = &row.Ladders[i]
				break
			}
		}
		if found == nil {
			continue
		}
		if !known {
			known = true
			for _, step := range found.Steps {
				labels = append(labels, step.Label)
			}
			levels = make([]plotter.Values, len(labels))
		}

		present := false
		for _, step := range found.Steps {
			if step.Value != nil {
				present = true
				break
			}
		}
		if !present {
			continue
		}

		names = append(names, row.Name)
		for i := range levels {
			v := 0.0
			if i < len(found.Steps) && found.Steps[i].Value != nil {
				v = *found.Steps[i].Value
			}
			levels[i] = append(levels[i], v)
		}
	}

	if !known {
		return fmt.Errorf("%w: %s%s", ErrUnknownChart, ChartLadderPrefix, ladder)
	}
	if len(names) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = "Access ladder (" + ladder + ") by zone"
	p.Y.Label.Text = "%"
	p.Y.Min = 0
	p.Legend.Top = true

	var below *plotter.BarChart
	for i, values := range levels {
		bars, err := plotter.NewBarChart(values, vg.Points(20))
		if err != nil {
			return fmt.Errorf("ошибка построения ступени %s: %w", labels[i], err)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		if below != nil {
			bars.StackOn(below)
		}
		p.Add(bars)
		p.Legend.Add(labels[i], bars)
		below = bars
	}

	p.NominalX(names...)
	return writePNG(p, w)
}

// YearlyLineChart рисует средние по годам, по линии на источник.
// Годы без значения пропускаются.
func YearlyLineChart(metric string, series []Series, w io.Writer) error {
	years := make(map[string]bool)
	for _, s := range series {
		for _, pt := range s.Points {
			years[pt.Period] = true
		}
	}
	labels := make([]string, 0, len(years))
	for y := range years {
		labels = append(labels, y)
	}
	sort.Strings(labels)
	position := make(map[string]int, len(labels))
	for i, y := range labels {
		position[y] = i
	}

	p := plot.New()
	p.Title.Text = metric + " by year"
	p.Y.Label.Text = "%"
	p.Add(plotter.NewGrid())

	drawn := 0
	for i, s := range series {
		var xys plotter.XYs
		for _, pt := range s.Points {
			if pt.Value != nil {
				xys = append(xys, plotter.XY{X: float64(position[pt.Period]), Y: *pt.Value})
			}
		}
		if len(xys) == 0 {
			continue
		}

		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return fmt.Errorf("ошибка построения линии %s: %w", s.Label, err)
		}
		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		p.Add(line, points)
		p.Legend.Add(s.Label, line)
		drawn++
	}
	if drawn == 0 {
		return ErrNoData
	}

	p.NominalX(labels...)
	return writePNG(p, w)
}

// SeriesLineChart рисует помесячный ряд и, если задан, прогноз.
// Месяцы без значения пропускаются.
func SeriesLineChart(series Series, forecast *Series, w io.Writer) error {
	labels := make([]string, 0, len(series.Points))
	var history plotter.XYs
	for i, pt := range series.Points {
		labels = append(labels, pt.Period)
		if pt.Value != nil {
			history = append(history, plotter.XY{X: float64(i), Y: *pt.Value})
		}
	}

	var predicted plotter.XYs
	if forecast != nil {
		for _, pt := range forecast.Points {
			x := float64(len(labels))
			labels = append(labels, pt.Period)
			if pt.Value != nil {
				predicted = append(predicted, plotter.XY{X: x, Y: *pt.Value})
			}
		}
	}

	if len(history) == 0 && len(predicted) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = series.Metric
	p.Add(plotter.NewGrid())

	if len(history) > 0 {
		line, points, err := plotter.NewLinePoints(history)
		if err != nil {
			return fmt.Errorf("ошибка построения линии: %w", err)
		}
		line.Width = vg.Points(2)
		p.Add(line, points)
	}

	if len(predicted) > 0 {
		line, err := plotter.NewLine(predicted)
		if err != nil {
			return fmt.Errorf("ошибка построения прогноза: %w", err)
		}
		line.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		p.Add(line)
	}

	p.NominalX(labels...)
	return writePNG(p, w)
}

// WaterSafelyBoxPlot рисует распределение процента безопасного водоснабжения по зонам
func WaterSafelyBoxPlot(rows []ZoneRow, w io.Writer) error {
	var values plotter.Values
	for _, row := range rows {
		if row.WaterSafelyPct != nil {
			values = append(values, *row.WaterSafelyPct)
		}
	}
	if len(values) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = "Water safely managed, distribution across zones"
	p.Y.Label.Text = "%"

	box, err := plotter.NewBoxPlot(vg.Points(40), 0, values)
	if err != nil {
		return fmt.Errorf("ошибка построения диаграммы размаха: %w", err)
	}

	p.Add(plotter.NewGrid(), box)
	p.NominalX("water")

	return writePNG(p, w)
}

func writePNG(p *plot.Plot, w io.Writer) error {
	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return fmt.Errorf("ошибка подготовки PNG: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("ошибка записи PNG: %w", err)
	}
	return nil
}
