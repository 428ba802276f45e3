// Package charts renders metagame reports as interactive HTML.
package charts

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ramonehamilton/mtg-archetypes/internal/storage/models"
)

// OtherLabel groups the archetypes past ChartConfig.MaxSlices.
const OtherLabel = "Other"

// ChartConfig holds configuration for charts.
type ChartConfig struct {
	Title      string
	Subtitle   string
	Width      string // e.g. "900px"
	Height     string
	Theme      string
	ShowLegend bool
	MaxSlices  int // archetypes shown before the rest become OtherLabel; 0 shows all
	Colors     []string
}

// DefaultChartConfig returns default chart configuration.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:      "900px",
		Height:     "500px",
		Theme:      "light",
		ShowLegend: true,
		MaxSlices:  12,
		Colors:     []string{"#5470C6", "#91CC75", "#FAC858", "#EE6666", "#73C0DE", "#3BA272", "#FC8452", "#9A60B4", "#EA7CCC"},
	}
}

// DataPoint represents a single data point in a chart.
type DataPoint struct {
	Label string
	Value float64
}

// SharePoints converts archetype shares into chart points ordered as given,
// folding everything after maxSlices into a single OtherLabel point.
func SharePoints(shares []*models.ArchetypeShare, maxSlices int) []DataPoint {
	points := make([]DataPoint, 0, len(shares))
	var other float64
	for i, s := range shares {
		if maxSlices > 0 && i >= maxSlices {
			other += float64(s.Count)
			continue
		}
		points = append(points, DataPoint{Label: s.ArchetypeName, Value: float64(s.Count)})
	}
	if other > 0 {
		points = append(points, DataPoint{Label: OtherLabel, Value: other})
	}
	return points
}

func globalOptions(config ChartConfig, trigger string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Width:  config.Width,
			Height: config.Height,
			Theme:  config.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    config.Title,
			Subtitle: config.Subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: trigger,
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(config.ShowLegend),
		}),
		charts.WithColorsOpts(opts.Colors(config.Colors)),
	}
}

// NewSharePie builds a pie chart of deck counts per archetype.
func NewSharePie(points []DataPoint, config ChartConfig) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(globalOptions(config, "item")...)

	data := make([]opts.PieData, len(points))
	for i, p := range points {
		data[i] = opts.PieData{Name: p.Label, Value: p.Value}
	}

	pie.AddSeries("Decks", data).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show:      opts.Bool(true),
				Formatter: "{b}: {d}%",
			}),
			charts.WithPieChartOpts(opts.PieChart{
				Radius: []string{"35%", "70%"},
			}),
		)
	return pie
}

// NewShareBar builds a bar chart of deck counts per archetype.
func NewShareBar(points []DataPoint, config ChartConfig) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOptions(config, "axis")...)

	labels := make([]string, len(points))
	data := make([]opts.BarData, len(points))
	for i, p := range points {
		labels[i] = p.Label
		data[i] = opts.BarData{Name: p.Label, Value: p.Value}
	}

	bar.SetXAxis(labels).
		AddSeries("Decks", data).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show:     opts.Bool(true),
				Position: "top",
			}),
		)
	return bar
}

// RenderShareReport writes a page with a pie and a bar chart of shares.
func RenderShareReport(w io.Writer, format string, shares []*models.ArchetypeShare, config ChartConfig) error {
	if len(shares) == 0 {
		return fmt.Errorf("no classifications recorded for %s", format)
	}
	if config.Title == "" {
		config.Title = format + " metagame"
	}
	if config.Subtitle == "" {
		total := 0
		for _, s := range shares {
			total += s.Count
		}
		config.Subtitle = fmt.Sprintf("%d decks, %d archetypes", total, len(shares))
	}

	points := SharePoints(shares, config.MaxSlices)

	page := components.NewPage()
	page.PageTitle = config.Title
	page.AddCharts(NewSharePie(points, config), NewShareBar(points, config))

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// WriteShareReport renders the share report to an HTML file.
func WriteShareReport(outputPath, format string, shares []*models.ArchetypeShare, config ChartConfig) error {
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()

	return RenderShareReport(f, format, shares, config)
}

// OpenInBrowser opens the given file path in the default web browser.
func OpenInBrowser(filePath string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", absPath)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", absPath)
	case "linux":
		cmd = exec.Command("xdg-open", absPath)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
