package sandboxes

import (
	"bytes"
	"fmt"
	"html"
	"math"
)

// Figure accumulates plot calls until it is saved.
type Figure struct {
	Title  string
	XLabel string
	YLabel string
	Series []Series
}

type Series struct {
	Label string
	X     []float64
	Y     []float64
}

var palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728",
	"#9467bd", "#8c564b", "#e377c2", "#7f7f7f",
}

const (
	figWidth   = 640
	figHeight  = 480
	figMargin  = 60
	plotWidth  = figWidth - 2*figMargin
	plotHeight = figHeight - 2*figMargin
)

// Plot adds a line series. With ys nil, xs are the y values and x runs from 0.
func (f *Figure) Plot(xs, ys []float64, label string) error {
	if ys == nil {
		ys = xs
		xs = make([]float64, len(ys))
		for i := range xs {
			xs[i] = float64(i)
		}
	}
	if len(xs) != len(ys) {
		return fmt.Errorf("x and y must have same length, got %d and %d", len(xs), len(ys))
	}
	f.Series = append(f.Series, Series{
		Label: label,
		X:     xs,
		Y:     ys,
	})
	return nil
}

func (f *Figure) Reset() {
	*f = Figure{}
}

func (f *Figure) bounds() (minX, maxX, minY, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, s := range f.Series {
		for i := range s.X {
			minX = min(minX, s.X[i])
			maxX = max(maxX, s.X[i])
			minY = min(minY, s.Y[i])
			maxY = max(maxY, s.Y[i])
		}
	}
	if math.IsInf(minX, 1) {
		return 0, 1, 0, 1
	}
	if minX == maxX {
		minX, maxX = minX-0.5, maxX+0.5
	}
	if minY == maxY {
		minY, maxY = minY-0.5, maxY+0.5
	}
	return
}

// SVG renders the figure as a standalone SVG document.
func (f *Figure) SVG() []byte {
	minX, maxX, minY, maxY := f.bounds()
	px := func(x float64) float64 {
		return figMargin + (x-minX)/(maxX-minX)*plotWidth
	}
	py := func(y float64) float64 {
		return figHeight - figMargin - (y-minY)/(maxY-minY)*plotHeight
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		figWidth, figHeight, figWidth, figHeight)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="white"/>`+"\n", figWidth, figHeight)

	// axes
	fmt.Fprintf(&b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="black"/>`+"\n",
		figMargin, figHeight-figMargin, figWidth-figMargin, figHeight-figMargin)
	fmt.Fprintf(&b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="black"/>`+"\n",
		figMargin, figMargin, figMargin, figHeight-figMargin)
	for i := range 5 {
		x := minX + (maxX-minX)*float64(i)/4
		y := minY + (maxY-minY)*float64(i)/4
		fmt.Fprintf(&b, `<text x="%.1f" y="%d" font-size="11" text-anchor="middle">%s</text>`+"\n",
			px(x), figHeight-figMargin+16, tick(x))
		fmt.Fprintf(&b, `<text x="%d" y="%.1f" font-size="11" text-anchor="end">%s</text>`+"\n",
			figMargin-6, py(y)+4, tick(y))
	}

	for i, s := range f.Series {
		color := palette[i%len(palette)]
		b.WriteString(`<polyline fill="none" stroke="` + color + `" stroke-width="1.5" points="`)
		for j := range s.X {
			if j > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%.2f,%.2f", px(s.X[j]), py(s.Y[j]))
		}
		b.WriteString(`"/>` + "\n")
		if s.Label != "" {
			fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="12" fill="%s">%s</text>`+"\n",
				figWidth-figMargin-100, figMargin+16*(i+1), color, html.EscapeString(s.Label))
		}
	}

	if f.Title != "" {
		fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="16" text-anchor="middle">%s</text>`+"\n",
			figWidth/2, figMargin/2, html.EscapeString(f.Title))
	}
	if f.XLabel != "" {
		fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="13" text-anchor="middle">%s</text>`+"\n",
			figWidth/2, figHeight-16, html.EscapeString(f.XLabel))
	}
	if f.YLabel != "" {
		fmt.Fprintf(&b, `<text x="16" y="%d" font-size="13" text-anchor="middle" transform="rotate(-90 16 %d)">%s</text>`+"\n",
			figHeight/2, figHeight/2, html.EscapeString(f.YLabel))
	}

	b.WriteString("</svg>\n")
	return b.Bytes()
}

func tick(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e9 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.3g", v)
}
