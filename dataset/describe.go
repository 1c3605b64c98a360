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

package dataset

import (
	"context"
	"fmt"

	"github.com/GaryBoone/GoStats/stats"

	"github.com/larray-project/larray"
)

// Summary holds descriptive statistics of a variable.
type Summary struct {
	Count                  int
	Mean, StdDev, Min, Max float64
	// Trend is the slope of an ordinary least-squares fit of the
	// leading-axis means against the leading coordinate (or the
	// index, when the dimension has no coordinate). It is zero
	// when the leading dimension has fewer than two entries.
	Trend float64
}

// Describe computes the variable and returns summary statistics.
func (d *DataArray) Describe(ctx context.Context, options ...larray.ComputeOption) (*Summary, error) {
	data, err := d.Compute(ctx, options...)
	if err != nil {
		return nil, err
	}
	s := &Summary{
		Count: len(data.Elements),
		Mean:  stats.StatsMean(data.Elements),
		Min:   stats.StatsMin(data.Elements),
		Max:   stats.StatsMax(data.Elements),
	}
	if s.Count > 1 {
		s.StdDev = stats.StatsSampleStandardDeviation(data.Elements)
	}

	rows := data.Shape[0]
	if rows > 1 {
		stride := len(data.Elements) / rows
		x := make([]float64, rows)
		y := make([]float64, rows)
		coord, hasCoord := d.ds.Coord(d.Dims[0])
		for i := 0; i < rows; i++ {
			if hasCoord {
				x[i] = coord[i]
			} else {
				x[i] = float64(i)
			}
			sum := 0.
			for j := i * stride; j < (i+1)*stride; j++ {
				sum += data.Elements[j]
			}
			y[i] = sum / float64(stride)
		}
		s.Trend, _, _, _, _, _ = stats.LinearRegression(x, y)
	}
	return s, nil
}

func (s *Summary) String() string {
	return fmt.Sprintf("count=%d mean=%g std=%g min=%g max=%g trend=%g",
		s.Count, s.Mean, s.StdDev, s.Min, s.Max, s.Trend)
}
