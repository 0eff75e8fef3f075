package export

import (
	"fmt"
	"io"
	"strings"
)

// Series is one named trace sampled at the shared time base.
type Series struct {
	Name   string
	Values []float64
	Color  string
}

type bounds struct {
	min, max float64
}

func (b bounds) span() float64 {
	if b.max == b.min {
		return 1
	}
	return b.max - b.min
}

// padded widens b by 10% on each side.
func (b bounds) padded() bounds {
	r := b.span()
	return bounds{b.min - r*0.1, b.max + r*0.1}
}

func rangeOf(values ...[]float64) bounds {
	first := true
	var b bounds
	for _, vs := range values {
		for _, v := range vs {
			if first {
				b = bounds{v, v}
				first = false
				continue
			}
			b.min = min(b.min, v)
			b.max = max(b.max, v)
		}
	}
	return b
}

// WriteTimeSeriesSVG draws every series as a polyline over times. Series share
// the y axis; a legend lists them top left.
func WriteTimeSeriesSVG(w io.Writer, times []float64, series []Series, width, height int) error {
	if len(times) < 2 {
		return fmt.Errorf("export: need at least two samples, got %d", len(times))
	}

	xb := rangeOf(times)
	all := make([][]float64, len(series))
	for i, s := range series {
		all[i] = s.Values
	}
	yb := rangeOf(all...).padded()

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	for i, s := range series {
		n := min(len(s.Values), len(times))
		if n < 2 {
			continue
		}
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, s.Color)
		for j := 0; j < n; j++ {
			x := (times[j] - xb.min) / xb.span() * float64(width)
			y := float64(height) - (s.Values[j]-yb.min)/yb.span()*float64(height)
			if j == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
		fmt.Fprintf(&sb, `<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 16*(i+1), s.Color, s.Name)
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
