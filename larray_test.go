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

	"github.com/ctessum/sparse"
)

const tolerance = 1.e-10

func different(a, b float64) bool {
	if a == 0 && b == 0 {
		return false
	}
	return math.Abs((a-b)/(a+b))*2 > tolerance
}

// sequence creates a dense array of the given shape filled with
// 0, 1, 2, ...
func sequence(shape ...int) *sparse.DenseArray {
	d := sparse.ZerosDense(shape...)
	for i := range d.Elements {
		d.Elements[i] = float64(i)
	}
	return d
}

func TestChunkLayout(t *testing.T) {
	tests := []struct {
		n, chunkRows int
		want         []int
	}{
		{10, 4, []int{4, 4, 2}},
		{10, 0, []int{10}},
		{10, 10, []int{10}},
		{10, 12, []int{10}},
		{3, 1, []int{1, 1, 1}},
	}
	for _, test := range tests {
		got := chunkLayout(test.n, test.chunkRows)
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("chunkLayout(%d, %d) = %v; want %v",
				test.n, test.chunkRows, got, test.want)
		}
	}
}

func TestFromDense(t *testing.T) {
	g := NewGraph()
	d := sequence(7, 3)
	a, err := FromDense(g, d, 2)
	if err != nil {
		t.Fatal(err)
	}
	if a.NChunks() != 4 {
		t.Errorf("chunks: got %d, want 4", a.NChunks())
	}
	got, err := a.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range d.Elements {
		if different(got.Elements[i], v) {
			t.Fatalf("element %d: got %g, want %g", i, got.Elements[i], v)
		}
	}
}

func TestGenerate(t *testing.T) {
	g := NewGraph()
	a, err := Generate(g, []int{5, 4}, 2, func(index []int) float64 {
		return float64(index[0]*10 + index[1])
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := a.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		for j := 0; j < 4; j++ {
			want := float64(i*10 + j)
			if v := got.Get(i, j); different(v, want) {
				t.Errorf("element (%d, %d): got %g, want %g", i, j, v, want)
			}
		}
	}
}

func TestOps(t *testing.T) {
	g := NewGraph()
	x, err := FromDense(g, sequence(6, 2), 2)
	if err != nil {
		t.Fatal(err)
	}
	y, err := FromDense(g, sequence(6, 2), 3) // different layout
	if err != nil {
		t.Fatal(err)
	}
	sum, err := x.Add(y)
	if err != nil {
		t.Fatal(err)
	}
	got, err := sum.Scale(0.5).AddScalar(1).Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range got.Elements {
		want := float64(i) + 1
		if different(v, want) {
			t.Errorf("element %d: got %g, want %g", i, v, want)
		}
	}

	sq, err := x.Mul(x)
	if err != nil {
		t.Fatal(err)
	}
	gotSq, err := sq.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range gotSq.Elements {
		want := float64(i) * float64(i)
		if different(v, want) {
			t.Errorf("square element %d: got %g, want %g", i, v, want)
		}
	}
}

func TestOpsShapeMismatch(t *testing.T) {
	g := NewGraph()
	x, err := Zeros(g, []int{4, 2}, 2)
	if err != nil {
		t.Fatal(err)
	}
	y, err := Zeros(g, []int{4, 3}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := x.Add(y); err == nil {
		t.Fatal("adding mismatched shapes should fail")
	}
}

func TestSharedSubexpressionsMerge(t *testing.T) {
	g := NewGraph()
	d := sequence(4, 2)
	x, err := FromDense(g, d, 2)
	if err != nil {
		t.Fatal(err)
	}
	before := g.Len()
	s1 := x.Scale(2)
	n1 := g.Len()
	s2 := x.Scale(2)
	if g.Len() != n1 {
		t.Errorf("identical operations added %d tasks; want 0", g.Len()-n1)
	}
	if s1.chunks[0].task != s2.chunks[0].task {
		t.Error("identical operations should share tasks")
	}
	if n1 == before {
		t.Error("distinct operation added no tasks")
	}
}

func TestComputeIdempotent(t *testing.T) {
	g := NewGraph()
	x, err := FromDense(g, sequence(8, 2), 2)
	if err != nil {
		t.Fatal(err)
	}
	y := x.Scale(3)
	var ran int
	count := OnProgress(func(Event) { ran++ })
	if _, err := y.Compute(context.Background(), count); err != nil {
		t.Fatal(err)
	}
	if ran == 0 {
		t.Fatal("first compute ran no tasks")
	}
	ran = 0
	if _, err := y.Compute(context.Background(), count); err != nil {
		t.Fatal(err)
	}
	if ran != 0 {
		t.Errorf("second compute ran %d tasks; want 0", ran)
	}
}

func TestRechunk(t *testing.T) {
	g := NewGraph()
	d := sequence(10, 3)
	x, err := FromDense(g, d, 3)
	if err != nil {
		t.Fatal(err)
	}
	y, err := x.Rechunk(4)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{4, 4, 2}; !reflect.DeepEqual(y.ChunkRows(), want) {
		t.Fatalf("chunk rows: got %v, want %v", y.ChunkRows(), want)
	}
	got, err := y.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range d.Elements {
		if different(got.Elements[i], v) {
			t.Fatalf("element %d: got %g, want %g", i, got.Elements[i], v)
		}
	}
}

func TestSlice(t *testing.T) {
	g := NewGraph()
	d := sequence(10, 2)
	x, err := FromDense(g, d, 3)
	if err != nil {
		t.Fatal(err)
	}
	y, err := x.Slice(2, 7)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{5, 2}; !reflect.DeepEqual(y.Shape(), want) {
		t.Fatalf("shape: got %v, want %v", y.Shape(), want)
	}
	got, err := y.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		for j := 0; j < 2; j++ {
			want := d.Get(i+2, j)
			if v := got.Get(i, j); different(v, want) {
				t.Errorf("element (%d, %d): got %g, want %g", i, j, v, want)
			}
		}
	}

	if _, err := x.Slice(5, 3); err == nil {
		t.Error("inverted slice bounds should fail")
	}
	if _, err := x.Slice(0, 11); err == nil {
		t.Error("out-of-range slice should fail")
	}
}

func TestSubsetAxis(t *testing.T) {
	g := NewGraph()
	d := sequence(4, 5)
	x, err := FromDense(g, d, 2)
	if err != nil {
		t.Fatal(err)
	}
	y, err := x.SubsetAxis(1, 1, 4)
	if err != nil {
		t.Fatal(err)
	}
	got, err := y.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 3; j++ {
			want := d.Get(i, j+1)
			if v := got.Get(i, j); different(v, want) {
				t.Errorf("element (%d, %d): got %g, want %g", i, j, v, want)
			}
		}
	}
	if _, err := x.SubsetAxis(0, 0, 2); err == nil {
		t.Error("subset along axis 0 should fail")
	}
}
