package export

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"os"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/conductor-dashboard/pkg/analysis"
	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

// Chart geometry, in pixels.
const (
	chartMargin  = 16
	chartHeader  = 112
	chartRowH    = 28
	chartLabelW  = 260
	chartBarW    = 420
	chartBarH    = 16
	chartTrailW  = 150
	chartLegendW = 150
)

type chartRow struct {
	ID      string
	Title   string
	Status  model.Status
	New     bool
	Percent int
	Done    int
	Total   int
	Phase   string
}

type chartLayout struct {
	Width, Height int
	Title         string
	Summary       []string
	Rows          []chartRow
}

func buildChartLayout(opts Options) chartLayout {
	ps := analysis.Progress(opts.Tracks)
	stats := analysis.NewAnalyzer(opts.Tracks).Analyze()

	top := "none"
	if ids := stats.TopBlockers(1); len(ids) > 0 {
		top = fmt.Sprintf("%s (%d dependents)", ids[0], stats.InDegree[ids[0]])
	}

	l := chartLayout{
		Title: opts.Title,
		Summary: []string{
			fmt.Sprintf("generated %s", opts.Now.Format("2006-01-02 15:04")),
			fmt.Sprintf("tracks: %d  active: %d  blocked: %d  complete: %d", ps.Tracks, ps.Active, ps.Blocked, ps.Complete),
			fmt.Sprintf("tasks: %d/%d (%d%%)  top blocker: %s", ps.TasksCompleted, ps.TasksTotal, ps.OverallPercent, top),
		},
	}
	for _, t := range opts.Tracks {
		l.Rows = append(l.Rows, chartRow{
			ID:      string(t.ID),
			Title:   t.Title,
			Status:  t.Status,
			New:     t.Status == model.StatusActive && t.TasksCompleted == 0,
			Percent: t.ProgressPercent,
			Done:    t.TasksCompleted,
			Total:   t.TasksTotal,
			Phase:   t.CurrentPhase(),
		})
	}
	l.Width = 2*chartMargin + chartLabelW + chartBarW + chartTrailW
	l.Height = chartHeader + chartMargin + max(len(l.Rows), 1)*chartRowH + chartMargin
	return l
}

func (l chartLayout) rowY(i int) int { return chartHeader + chartMargin + i*chartRowH }

func (l chartLayout) barX() int { return chartMargin + chartLabelW }

// fillWidth is the filled part of a progress bar.
func fillWidth(pct int) int {
	pct = min(max(pct, 0), 100)
	return pct * chartBarW / 100
}

// SaveChart renders a horizontal progress bar per track as SVG or PNG.
func SaveChart(opts Options) error {
	layout := buildChartLayout(opts)
	switch opts.Format {
	case FormatPNG:
		return renderPNG(opts.Path, layout)
	case FormatSVG:
		var buf bytes.Buffer
		if err := renderSVGToWriter(&buf, layout); err != nil {
			return err
		}
		return os.WriteFile(opts.Path, buf.Bytes(), 0o644)
	default:
		return fmt.Errorf("unsupported chart format %q (want svg or png)", opts.Format)
	}
}

// --- rendering -------------------------------------------------------------

var (
	colorActive   = color.RGBA{0x8e, 0xc0, 0x7c, 0xff}
	colorNew      = color.RGBA{0x83, 0xa5, 0x98, 0xff}
	colorBlocked  = color.RGBA{0xfb, 0x49, 0x34, 0xff}
	colorComplete = color.RGBA{0xb8, 0xbb, 0x26, 0xff}
	colorUnknown  = color.RGBA{0xa8, 0x99, 0x84, 0xff}
	colorTrough   = color.RGBA{0xe5, 0xe7, 0xeb, 0xff}
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorLegendBG = color.RGBA{0xee, 0xee, 0xee, 0xff}
)

type legendEntry struct {
	c     color.RGBA
	label string
}

var legend = []legendEntry{
	{colorNew, "New"},
	{colorActive, "Active"},
	{colorBlocked, "Blocked"},
	{colorComplete, "Complete"},
}

func rowColor(r chartRow) color.RGBA {
	switch r.Status {
	case model.StatusActive:
		if r.New {
			return colorNew
		}
		return colorActive
	case model.StatusBlocked:
		return colorBlocked
	case model.StatusComplete:
		return colorComplete
	default:
		return colorUnknown
	}
}

func rowTrailer(r chartRow) string {
	if r.Total == 0 {
		return fmt.Sprintf("%3d%%  no tasks", r.Percent)
	}
	return fmt.Sprintf("%3d%%  %d/%d", r.Percent, r.Done, r.Total)
}

func rowLabel(r chartRow) string {
	return truncate(r.ID+"  "+r.Title, 34)
}

func renderPNG(path string, layout chartLayout) error {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(chartMargin, chartMargin, float64(layout.Width-2*chartMargin), chartHeader-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	drawSummaryBlock(dc, layout)
	drawLegend(dc, layout)

	if len(layout.Rows) == 0 {
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored("no tracks", chartMargin+16, float64(layout.rowY(0)+chartRowH/2), 0, 0.5)
	}
	for i, r := range layout.Rows {
		drawRow(dc, layout, i, r)
	}
	return dc.SavePNG(path)
}

func drawRow(dc *gg.Context, layout chartLayout, i int, r chartRow) {
	y := float64(layout.rowY(i))
	mid := y + chartRowH/2
	x := float64(layout.barX())

	dc.SetColor(colorText)
	dc.DrawStringAnchored(rowLabel(r), chartMargin+8, mid, 0, 0.5)

	dc.SetColor(colorTrough)
	dc.DrawRoundedRectangle(x, mid-chartBarH/2, chartBarW, chartBarH, 4)
	dc.Fill()
	if w := fillWidth(r.Percent); w > 0 {
		dc.SetColor(rowColor(r))
		dc.DrawRoundedRectangle(x, mid-chartBarH/2, float64(w), chartBarH, 4)
		dc.Fill()
	}
	dc.SetColor(colorStroke)
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x, mid-chartBarH/2, chartBarW, chartBarH, 4)
	dc.Stroke()

	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(rowTrailer(r), x+chartBarW+10, mid, 0, 0.5)
}

func drawSummaryBlock(dc *gg.Context, layout chartLayout) {
	dc.SetColor(colorText)
	dc.DrawStringAnchored(layout.Title, 32, 40, 0, 0.5)
	dc.SetColor(colorSubtle)
	for i, line := range layout.Summary {
		dc.DrawStringAnchored(line, 32, float64(60+i*16), 0, 0.5)
	}
}

func drawLegend(dc *gg.Context, layout chartLayout) {
	x := float64(layout.Width - chartMargin - chartLegendW)
	y := float64(chartMargin + 8)
	dc.SetColor(colorLegendBG)
	dc.DrawRoundedRectangle(x, y, chartLegendW-8, 72, 8)
	dc.Fill()
	for i, e := range legend {
		ry := y + 14 + float64(i)*15
		dc.SetColor(e.c)
		dc.DrawRoundedRectangle(x+10, ry-6, 12, 12, 3)
		dc.Fill()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(e.label, x+30, ry, 0, 0.5)
	}
}

func renderSVGToWriter(w io.Writer, layout chartLayout) error {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(chartMargin, chartMargin, layout.Width-2*chartMargin, chartHeader-24, 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	canvas.Text(32, 44, layout.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, line := range layout.Summary {
		canvas.Text(32, 64+i*16, line, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}

	lx := layout.Width - chartMargin - chartLegendW
	ly := chartMargin + 8
	canvas.Roundrect(lx, ly, chartLegendW-8, 72, 8, 8, fmt.Sprintf("fill:%s", css(colorLegendBG)))
	for i, e := range legend {
		ry := ly + 14 + i*15
		canvas.Roundrect(lx+10, ry-6, 12, 12, 3, 3, fmt.Sprintf("fill:%s", css(e.c)))
		canvas.Text(lx+30, ry+4, e.label, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}

	if len(layout.Rows) == 0 {
		canvas.Text(chartMargin+16, layout.rowY(0)+chartRowH/2+4, "no tracks", fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}
	x := layout.barX()
	for i, r := range layout.Rows {
		mid := layout.rowY(i) + chartRowH/2
		top := mid - chartBarH/2
		canvas.Group(fmt.Sprintf(`id="track-%s"`, sanitizeMermaidID(r.ID)))
		canvas.Text(chartMargin+8, mid+4, rowLabel(r), fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorText)))
		canvas.Roundrect(x, top, chartBarW, chartBarH, 4, 4, fmt.Sprintf("fill:%s", css(colorTrough)))
		if w := fillWidth(r.Percent); w > 0 {
			canvas.Roundrect(x, top, w, chartBarH, 4, 4, fmt.Sprintf("fill:%s", css(rowColor(r))))
		}
		canvas.Roundrect(x, top, chartBarW, chartBarH, 4, 4, fmt.Sprintf("fill:none;stroke:%s;stroke-width:1", css(colorStroke)))
		canvas.Text(x+chartBarW+10, mid+4, rowTrailer(r), fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
		canvas.Gend()
	}
	canvas.End()
	return nil
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
