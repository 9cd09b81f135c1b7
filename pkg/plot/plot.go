// Package plot draws enrichment bar charts.
//
// [BarPlotter] keeps the terms whose adjusted p-value is at or below the
// cutoff, sorts them by significance, and draws one horizontal bar per term
// with length -log10(adjusted p). Charts are produced as SVG and converted
// to PNG or PDF with rsvg-convert.
package plot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matzehuels/goenrichr/pkg/table"
)

// ErrNoEnrichedTerms is returned when no term passes the cutoff.
var ErrNoEnrichedTerms = errors.New("no enriched terms at cutoff")

// Supported output formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatPDF = "pdf"
)

// Formats lists the supported output formats.
var Formats = []string{FormatSVG, FormatPNG, FormatPDF}

// DefaultColor fills the bars.
const DefaultColor = "salmon"

// Options controls chart content and encoding.
type Options struct {
	Cutoff  float64 // adjusted p-value threshold, inclusive
	TopTerm int     // maximum bars; <= 0 means 10
	Format  string  // svg, png, or pdf; empty means svg
	Title   string
	Color   string  // bar fill; empty means DefaultColor
	Width   float64 // pixels; <= 0 means 650
	Scale   float64 // PNG scale factor; <= 0 means 2
}

// Plotter renders a result table as an image.
type Plotter interface {
	Plot(t *table.Table, o Options) ([]byte, error)
}

// ValidFormat reports whether format is supported.
func ValidFormat(format string) bool {
	for _, f := range Formats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

// BarPlotter draws horizontal bar charts.
type BarPlotter struct{}

// Plot renders the significant terms of t. It returns ErrNoEnrichedTerms
// when nothing passes the cutoff.
func (BarPlotter) Plot(t *table.Table, o Options) ([]byte, error) {
	if o.TopTerm <= 0 {
		o.TopTerm = 10
	}
	hits := table.Significant(t, o.Cutoff, o.TopTerm)
	if hits.Len() == 0 {
		return nil, ErrNoEnrichedTerms
	}

	svg := renderBars(bars(hits), o)

	switch strings.ToLower(o.Format) {
	case "", FormatSVG:
		return svg, nil
	case FormatPNG:
		scale := o.Scale
		if scale <= 0 {
			scale = 2
		}
		return ToPNG(svg, scale)
	case FormatPDF:
		return ToPDF(svg)
	default:
		return nil, fmt.Errorf("unsupported plot format %q (want one of %s)", o.Format, strings.Join(Formats, ", "))
	}
}
