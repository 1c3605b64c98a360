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

package larray

import (
	"context"
	"math"
	"reflect"
	"testing"
)

func TestReduceLeading(t *testing.T) {
	g := NewGraph()
	d := sequence(6, 3) // columns j hold j, 3+j, 6+j, ...
	x, err := FromDense(g, d, 2)
	if err != nil {
		t.Fatal(err)
	}

	sum, err := x.Sum(0)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{3}; !reflect.DeepEqual(sum.Shape(), want) {
		t.Fatalf("sum shape: got %v, want %v", sum.Shape(), want)
	}
	got, err := sum.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for j := 0; j < 3; j++ {
		want := 0.
		for i := 0; i < 6; i++ {
			want += d.Get(i, j)
		}
		if different(got.Elements[j], want) {
			t.Errorf("sum column %d: got %g, want %g", j, got.Elements[j], want)
		}
	}

	max, err := x.Max(0)
	if err != nil {
		t.Fatal(err)
	}
	gotMax, err := max.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for j := 0; j < 3; j++ {
		want := d.Get(5, j)
		if different(gotMax.Elements[j], want) {
			t.Errorf("max column %d: got %g, want %g", j, gotMax.Elements[j], want)
		}
	}

	mean, err := x.Mean(0)
	if err != nil {
		t.Fatal(err)
	}
	gotMean, err := mean.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for j := 0; j < 3; j++ {
		want := (d.Get(0, j) + d.Get(5, j)) / 2
		if different(gotMean.Elements[j], want) {
			t.Errorf("mean column %d: got %g, want %g", j, gotMean.Elements[j], want)
		}
	}
}

func TestReduceTrailing(t *testing.T) {
	g := NewGraph()
	d := sequence(5, 4)
	x, err := FromDense(g, d, 2)
	if err != nil {
		t.Fatal(err)
	}
	min, err := x.Min(1)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{5}; !reflect.DeepEqual(min.Shape(), want) {
		t.Fatalf("min shape: got %v, want %v", min.Shape(), want)
	}
	got, err := min.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		want := d.Get(i, 0)
		if different(got.Elements[i], want) {
			t.Errorf("min row %d: got %g, want %g", i, got.Elements[i], want)
		}
	}
}

func TestReduce3d(t *testing.T) {
	g := NewGraph()
	d := sequence(4, 3, 2)
	x, err := FromDense(g, d, 2)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := x.Sum(1)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{4, 2}; !reflect.DeepEqual(sum.Shape(), want) {
		t.Fatalf("shape: got %v, want %v", sum.Shape(), want)
	}
	got, err := sum.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		for k := 0; k < 2; k++ {
			want := 0.
			for j := 0; j < 3; j++ {
				want += d.Get(i, j, k)
			}
			if v := got.Get(i, k); different(v, want) {
				t.Errorf("element (%d, %d): got %g, want %g", i, k, v, want)
			}
		}
	}
}

func TestStd(t *testing.T) {
	g := NewGraph()
	d := sequence(6, 1)
	x, err := FromDense(g, d, 2)
	if err != nil {
		t.Fatal(err)
	}
	std, err := x.Std(0)
	if err != nil {
		t.Fatal(err)
	}
	got, err := std.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// Population standard deviation of 0..5.
	want := math.Sqrt(35. / 12.)
	if different(got.Elements[0], want) {
		t.Errorf("std: got %g, want %g", got.Elements[0], want)
	}
}

func TestTotals(t *testing.T) {
	g := NewGraph()
	d := sequence(7, 2) // 0..13
	x, err := FromDense(g, d, 3)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	sum, err := x.TotalSum().Value(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := 91.; different(sum, want) {
		t.Errorf("total sum: got %g, want %g", sum, want)
	}

	max, err := x.TotalMax().Value(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := 13.; different(max, want) {
		t.Errorf("total max: got %g, want %g", max, want)
	}

	min, err := x.TotalMin().Value(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if min != 0 {
		t.Errorf("total min: got %g, want 0", min)
	}

	mean, err := x.TotalMean().Value(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := 6.5; different(mean, want) {
		t.Errorf("total mean: got %g, want %g", mean, want)
	}

	stdS, err := x.TotalStd()
	if err != nil {
		t.Fatal(err)
	}
	std, err := stdS.Value(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := math.Sqrt(195. / 12.); different(std, want) {
		t.Errorf("total std: got %g, want %g", std, want)
	}
}

func TestReduceUnknownOp(t *testing.T) {
	g := NewGraph()
	x, err := Zeros(g, []int{4, 2}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := x.Reduce("median", 0); err == nil {
		t.Fatal("unknown reduction should fail")
	}
}
