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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

func TestParseMosaic(t *testing.T) {
	m, err := ParseMosaic("AAB\nCCB")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, m.Names())
	assert.Equal(t, rect{r0: 0, c0: 0, r1: 0, c1: 1}, m.panels["A"])
	assert.Equal(t, rect{r0: 0, c0: 2, r1: 1, c1: 2}, m.panels["B"])
	assert.Equal(t, rect{r0: 1, c0: 0, r1: 1, c1: 1}, m.panels["C"])
}

func TestParseMosaicBlanks(t *testing.T) {
	m, err := ParseMosaic("A.\n.B")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, m.Names())
}

func TestParseMosaicErrors(t *testing.T) {
	_, err := ParseMosaic("")
	assert.Error(t, err, "empty layout")

	_, err = ParseMosaic("AB\nA")
	assert.Error(t, err, "ragged rows")

	_, err = ParseMosaic("AB\nBA")
	assert.Error(t, err, "non-rectangular panel")

	_, err = ParseMosaic("AA\nAB")
	assert.Error(t, err, "L-shaped panel")
}

func TestPanels(t *testing.T) {
	m, err := ParseMosaic("AAB\nCCB")
	require.NoError(t, err)

	c := draw.New(vgimg.New(300, 200))
	panels := m.Panels(c, 0)
	require.Len(t, panels, 3)

	a := panels["A"]
	assert.Equal(t, c.Min.X, a.Min.X)
	assert.Equal(t, c.Max.Y, a.Max.Y)
	assert.InDelta(t, 200, float64(a.Max.X-a.Min.X), 0.5)

	b := panels["B"]
	assert.Equal(t, c.Max.X, b.Max.X)
	assert.Equal(t, c.Min.Y, b.Min.Y)
	assert.Equal(t, c.Max.Y, b.Max.Y)
}
