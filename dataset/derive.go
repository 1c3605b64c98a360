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
	"fmt"
	"math"
	"sort"

	"github.com/Knetic/govaluate"

	"github.com/larray-project/larray"
)

// Derive adds a new variable calculated elementwise from an
// expression over existing variables, for example
// "(PM25_wet - PM25_dry) / PM25_dry * 100". The variables the
// expression references must all have the same dimensions.
// Elements where the expression fails to evaluate or does not
// produce a number become NaN. The calculation is lazy.
func (ds *Dataset) Derive(name, expr string, attrs map[string]interface{}) (*DataArray, error) {
	ev, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return nil, fmt.Errorf("dataset: deriving %s: parsing %q: %v", name, expr, err)
	}
	varNames := uniqueStrings(ev.Vars())
	if len(varNames) == 0 {
		return nil, fmt.Errorf("dataset: deriving %s: expression %q references no variables", name, expr)
	}
	arrays := make([]*larray.Array, len(varNames))
	var dims []string
	for i, v := range varNames {
		d, err := ds.Var(v)
		if err != nil {
			return nil, fmt.Errorf("dataset: deriving %s: %v", name, err)
		}
		if i == 0 {
			dims = d.Dims
		} else if !equalStrings(dims, d.Dims) {
			return nil, fmt.Errorf("dataset: deriving %s: variable %q has dimensions %v; %q has %v", name, v, d.Dims, varNames[0], dims)
		}
		arrays[i] = d.data
	}
	a, err := larray.Map(expr, func(vals []float64) float64 {
		params := make(map[string]interface{}, len(varNames))
		for i, v := range varNames {
			params[v] = vals[i]
		}
		result, err := ev.Evaluate(params)
		if err != nil {
			return math.NaN()
		}
		out, ok := result.(float64)
		if !ok {
			return math.NaN()
		}
		return out
	}, arrays...)
	if err != nil {
		return nil, err
	}
	return ds.Add(name, dims, a, attrs)
}

func uniqueStrings(s []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range s {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
