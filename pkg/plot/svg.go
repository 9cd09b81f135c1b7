package plot

import (
	"bytes"
	"fmt"
	"html"
	"math"

	"github.com/matzehuels/goenrichr/pkg/table"
)

const (
	defaultWidth = 650.0
	barHeight    = 22.0
	barGap       = 8.0
	marginTop    = 48.0
	marginBottom = 44.0
	marginRight  = 24.0
	labelWidth   = 280.0
	fontSize     = 12.0
	maxLabel     = 45
)

type bar struct {
	label string
	value float64 // -log10(adjusted p)
}

// bars converts significant rows to bar values, most significant first.
func bars(t *table.Table) []bar {
	out := make([]bar, 0, t.Len())
	for i, row := range t.Rows {
		label := row[max(t.Index(table.ColTerm), 0)]
		p := t.Float(i, table.ColAdjPValue)
		v := 0.0
		if p > 0 {
			v = -math.Log10(p)
		} else if p == 0 {
			v = 300 // below float64 precision
		}
		out = append(out, bar{label: truncate(label, maxLabel), value: v})
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func renderBars(bs []bar, o Options) []byte {
	width := o.Width
	if width <= 0 {
		width = defaultWidth
	}
	color := o.Color
	if color == "" {
		color = DefaultColor
	}

	plotWidth := width - labelWidth - marginRight
	height := marginTop + float64(len(bs))*(barHeight+barGap) + marginBottom

	maxVal := 0.0
	for _, b := range bs {
		maxVal = math.Max(maxVal, b.value)
	}
	axisMax := math.Ceil(maxVal)
	if axisMax <= 0 {
		axisMax = 1
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		width, height, width, height)
	fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="white"/>`+"\n")
	fmt.Fprintf(&buf, `  <g font-family="Helvetica, Arial, sans-serif" font-size="%.0f">`+"\n", fontSize)

	if o.Title != "" {
		fmt.Fprintf(&buf, `    <text x="%.1f" y="%.1f" text-anchor="middle" font-size="%.0f" font-weight="bold">%s</text>`+"\n",
			width/2, marginTop/2+4, fontSize+2, html.EscapeString(o.Title))
	}

	for i, b := range bs {
		y := marginTop + float64(i)*(barHeight+barGap)
		w := plotWidth * b.value / axisMax
		fmt.Fprintf(&buf, `    <text x="%.1f" y="%.1f" text-anchor="end" dominant-baseline="middle">%s</text>`+"\n",
			labelWidth-8, y+barHeight/2, html.EscapeString(b.label))
		fmt.Fprintf(&buf, `    <rect class="bar" x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`+"\n",
			labelWidth, y, w, barHeight, html.EscapeString(color))
	}

	axisY := marginTop + float64(len(bs))*(barHeight+barGap)
	fmt.Fprintf(&buf, `    <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="black"/>`+"\n",
		labelWidth, axisY, labelWidth+plotWidth, axisY)
	for tick := 0.0; tick <= axisMax; tick += tickStep(axisMax) {
		x := labelWidth + plotWidth*tick/axisMax
		fmt.Fprintf(&buf, `    <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="black"/>`+"\n", x, axisY, x, axisY+4)
		fmt.Fprintf(&buf, `    <text x="%.1f" y="%.1f" text-anchor="middle">%g</text>`+"\n", x, axisY+16, tick)
	}
	fmt.Fprintf(&buf, `    <text x="%.1f" y="%.1f" text-anchor="middle">-log10(Adjusted P-value)</text>`+"\n",
		labelWidth+plotWidth/2, axisY+34)

	buf.WriteString("  </g>\n</svg>\n")
	return buf.Bytes()
}

// tickStep picks a step giving at most about six ticks.
func tickStep(axisMax float64) float64 {
	step := 1.0
	for axisMax/step > 6 {
		step *= 2
	}
	return step
}
