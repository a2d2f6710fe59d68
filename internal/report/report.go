package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	echartstypes "github.com/go-echarts/go-echarts/v2/types"

	"pictor/internal/config"
	"pictor/internal/logger"
	"pictor/internal/scoring"
	"pictor/internal/types"
)

// 中文说明：
// 单次运行的评分报表：每个候选的综合分柱状图 + 分维度对比柱状图，
// 输出 HTML；配置开启快照时再用无头浏览器补一张 PNG（失败只降级）。

const (
	colorBackground  = "#060c1b"
	colorTextPrimary = "#eceff4"
	colorBar         = "#3b82f6"
	colorBest        = "#34d399"

	chartWidthPx  = 1200
	chartHeightPx = 420
)

// Generator 报表生成器。
type Generator struct {
	dir      string
	snapshot bool
}

func NewGenerator(cfg config.StoreConfig) *Generator {
	return &Generator{dir: cfg.ReportDir, snapshot: cfg.Snapshot}
}

// Write 落盘 HTML 报表，返回文件路径。快照失败不影响 HTML 产出。
func (g *Generator) Write(ctx context.Context, result *types.RunResult) (string, error) {
	if g == nil || g.dir == "" {
		return "", fmt.Errorf("报表目录未配置")
	}
	if result == nil || len(result.Candidates) == 0 {
		return "", fmt.Errorf("没有候选可出报表")
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", err
	}
	html, err := buildReportHTML(result)
	if err != nil {
		return "", err
	}
	htmlPath := filepath.Join(g.dir, result.RunID+".html")
	if err := os.WriteFile(htmlPath, html, 0o644); err != nil {
		return "", err
	}
	if g.snapshot {
		if err := g.writeSnapshot(ctx, html, filepath.Join(g.dir, result.RunID+".png")); err != nil {
			logger.Warnf("[report] 运行 %s PNG 快照失败: %v", result.RunID, err)
		}
	}
	return htmlPath, nil
}

// HTMLPath 既有报表的路径；文件不存在时返回空串。
func (g *Generator) HTMLPath(runID string) string {
	if g == nil || g.dir == "" {
		return ""
	}
	path := filepath.Join(g.dir, runID+".html")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func buildReportHTML(result *types.RunResult) ([]byte, error) {
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(
		buildCompositeChart(result),
		buildDimensionChart(result),
	)
	var buf strings.Builder
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}

// candidateLabel 候选的展示名：提供方 + 提交序号（组图附带序列位）。
func candidateLabel(c *types.Candidate) string {
	if c.GroupSize > 0 {
		return fmt.Sprintf("%s#%d.%d", c.Provider, c.Submitted, c.SequenceIndex)
	}
	return fmt.Sprintf("%s#%d", c.Provider, c.Submitted)
}

func buildCompositeChart(result *types.RunResult) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           echartstypes.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      fmt.Sprintf("综合分 · 运行 %s", result.RunID),
			Left:       "left",
			TitleStyle: &opts.TextStyle{Color: colorTextPrimary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
	)
	labels := make([]string, 0, len(result.Candidates))
	values := make([]opts.BarData, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		labels = append(labels, candidateLabel(c))
		var composite float64
		if c.Scores != nil {
			composite = c.Scores.Composite
		}
		color := colorBar
		if c.Image == result.BestImage {
			color = colorBest
		}
		values = append(values, opts.BarData{
			Value:     composite * 10,
			ItemStyle: &opts.ItemStyle{Color: color},
		})
	}
	bar.SetXAxis(labels)
	bar.AddSeries("composite", values)
	return bar
}

func buildDimensionChart(result *types.RunResult) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           echartstypes.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      "分维度得分",
			Left:       "left",
			TitleStyle: &opts.TextStyle{Color: colorTextPrimary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
	)
	dims := presentDimensions(result.Candidates)
	bar.SetXAxis(dims)
	for _, c := range result.Candidates {
		if c.Scores == nil {
			continue
		}
		values := make([]opts.BarData, 0, len(dims))
		for _, d := range dims {
			values = append(values, opts.BarData{Value: c.Scores.Dimensions[d] * 10})
		}
		bar.AddSeries(candidateLabel(c), values)
	}
	return bar
}

// presentDimensions 候选集中出现过的维度，按固定维度顺序排列，未知维度排尾。
func presentDimensions(candidates []*types.Candidate) []string {
	seen := map[string]bool{}
	for _, c := range candidates {
		if c.Scores == nil {
			continue
		}
		for d := range c.Scores.Dimensions {
			seen[d] = true
		}
	}
	ordered := make([]string, 0, len(seen))
	for _, d := range scoring.BaseDimensions {
		if seen[d] {
			ordered = append(ordered, d)
			delete(seen, d)
		}
	}
	rest := make([]string, 0, len(seen))
	for d := range seen {
		rest = append(rest, d)
	}
	sort.Strings(rest)
	return append(ordered, rest...)
}

var (
	headlessOnce sync.Once
	headlessErr  error
)

func ensureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		targetCtx := ctx
		if targetCtx == nil {
			targetCtx = context.Background()
		}
		parent, cancel := chromedp.NewContext(targetCtx)
		if cancel != nil {
			defer cancel()
		}
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

func (g *Generator) writeSnapshot(ctx context.Context, html []byte, path string) error {
	if err := ensureHeadlessAvailable(ctx); err != nil {
		return err
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(chartWidthPx), int64(chartHeightPx*2)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 0),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return err
	}
	return os.WriteFile(path, screenshot, 0o644)
}
