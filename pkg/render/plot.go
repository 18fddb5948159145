package render

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/timemachine/pkg/history"
)

// Chart colours.
const (
	chartBar        = "#a16207"
	chartLine       = "#2563eb"
	chartText       = "#44403c"
	chartTextMuted  = "#78716c"
	chartAxis       = "#a8a29e"
	chartGrid       = "#e7e5e4"
	dataZoomEndPerc = 100
	dayLayout       = "2006-01-02"
)

// ActivityPoint is the number of commits on one UTC day.
type ActivityPoint struct {
	Day     string
	Commits int
}

// Activity buckets commits by UTC day, oldest first. Commits with
// unparseable timestamps are skipped.
func Activity(commits []history.CommitRecord) []ActivityPoint {
	counts := make(map[string]int)

	for _, commit := range commits {
		at, err := time.Parse(time.RFC3339, commit.Timestamp)
		if err != nil {
			continue
		}

		counts[at.UTC().Format(dayLayout)]++
	}

	points := make([]ActivityPoint, 0, len(counts))
	for day, n := range counts {
		points = append(points, ActivityPoint{Day: day, Commits: n})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Day < points[j].Day })

	return points
}

// ActivityChart writes an HTML page with a bar chart of commits per day and
// a cumulative line for the file in result.
func ActivityChart(w io.Writer, result *history.CommitsAffectingResult) error {
	points := Activity(result.Commits)

	labels := make([]string, len(points))
	bars := make([]opts.BarData, len(points))
	cumulative := make([]opts.LineData, len(points))
	total := 0

	for i, point := range points {
		total += point.Commits
		labels[i] = point.Day
		bars[i] = opts.BarData{Value: point.Commits}
		cumulative[i] = opts.LineData{Value: total}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "500px", PageTitle: "Commit activity"}),
		charts.WithTitleOpts(opts.Title{
			Title:         "Commit activity",
			Subtitle:      fmt.Sprintf("%s · %d commits", result.File, total),
			Left:          "center",
			TitleStyle:    &opts.TextStyle{Color: chartText},
			SubtitleStyle: &opts.TextStyle{Color: chartTextMuted},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "10%", Left: "center"}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "slider", Start: 0, End: dataZoomEndPerc},
			opts.DataZoom{Type: "inside"},
		),
		charts.WithXAxisOpts(opts.XAxis{
			AxisLabel: &opts.AxisLabel{Color: chartTextMuted},
			AxisLine:  &opts.AxisLine{LineStyle: &opts.LineStyle{Color: chartAxis}},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      "Commits",
			AxisLabel: &opts.AxisLabel{Color: chartTextMuted},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: chartGrid}},
		}),
	)

	bar.SetXAxis(labels).
		AddSeries("Commits per day", bars, charts.WithItemStyleOpts(opts.ItemStyle{Color: chartBar}))

	line := charts.NewLine()
	line.SetXAxis(labels).
		AddSeries("Cumulative", cumulative,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: chartLine}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: chartLine}),
		)

	bar.Overlap(line)

	page := components.NewPage()
	page.PageTitle = "Commit activity: " + result.File
	page.AddCharts(bar)

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render activity chart: %w", err)
	}

	return nil
}
