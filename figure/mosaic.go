/*
Copyright © 2025 the larray authors.
This file is part of larray.

larray is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

larray is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with larray.  If not, see <http://www.gnu.org/licenses/>.
*/

package figure

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Mosaic is a named-panel subplot layout parsed from a text
// drawing, for example
//
//	AAB
//	CCB
//
// where each letter names a panel spanning the cells it covers and
// '.' leaves a cell blank. Panels must cover rectangular regions.
type Mosaic struct {
	rows, cols int
	panels     map[string]rect
}

// rect is a cell span: rows [r0, r1] and columns [c0, c1],
// inclusive, with row 0 at the top.
type rect struct {
	r0, c0, r1, c1 int
}

// ParseMosaic parses a mosaic layout string. Lines must all have
// the same length, and each panel name must cover exactly one
// rectangle of cells.
func ParseMosaic(layout string) (*Mosaic, error) {
	lines := strings.Split(strings.Trim(layout, "\n"), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, fmt.Errorf("figure: empty mosaic layout")
	}
	cols := len([]rune(lines[0]))
	m := &Mosaic{rows: len(lines), cols: cols, panels: make(map[string]rect)}
	grid := make([][]rune, len(lines))
	for i, line := range lines {
		runes := []rune(line)
		if len(runes) != cols {
			return nil, fmt.Errorf("figure: mosaic row %d has %d cells; want %d", i, len(runes), cols)
		}
		grid[i] = runes
	}
	for i, row := range grid {
		for j, r := range row {
			if r == '.' {
				continue
			}
			name := string(r)
			p, ok := m.panels[name]
			if !ok {
				m.panels[name] = rect{r0: i, c0: j, r1: i, c1: j}
				continue
			}
			if i < p.r0 {
				p.r0 = i
			}
			if i > p.r1 {
				p.r1 = i
			}
			if j < p.c0 {
				p.c0 = j
			}
			if j > p.c1 {
				p.c1 = j
			}
			m.panels[name] = p
		}
	}
	// Every cell inside a panel's bounding rectangle must belong
	// to that panel, otherwise the span is not rectangular.
	for name, p := range m.panels {
		for i := p.r0; i <= p.r1; i++ {
			for j := p.c0; j <= p.c1; j++ {
				if string(grid[i][j]) != name {
					return nil, fmt.Errorf("figure: mosaic panel %q is not rectangular", name)
				}
			}
		}
	}
	return m, nil
}

// Names returns the panel names in alphabetical order.
func (m *Mosaic) Names() []string {
	names := make([]string, 0, len(m.panels))
	for n := range m.panels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Panels splits a canvas into the mosaic's named sub-canvases.
// Cells divide the canvas evenly; pad is the margin left inside
// each panel edge.
func (m *Mosaic) Panels(c draw.Canvas, pad vg.Length) map[string]draw.Canvas {
	width := c.Max.X - c.Min.X
	height := c.Max.Y - c.Min.Y
	cw := width / vg.Length(m.cols)
	ch := height / vg.Length(m.rows)
	out := make(map[string]draw.Canvas, len(m.panels))
	for name, p := range m.panels {
		// Canvas y grows upward; mosaic rows count downward.
		x0 := vg.Length(p.c0)*cw + pad
		x1 := vg.Length(p.c1+1)*cw - pad
		y0 := height - vg.Length(p.r1+1)*ch + pad
		y1 := height - vg.Length(p.r0)*ch - pad
		out[name] = draw.Crop(c, x0, x1-width, y0, y1-height)
	}
	return out
}
