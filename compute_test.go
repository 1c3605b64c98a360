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
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ctessum/sparse"
)

func TestSourceLoadsOncePerChunk(t *testing.T) {
	g := NewGraph()
	var loads int64
	chunks := make([]SourceChunk, 3)
	for i := range chunks {
		i := i
		chunks[i] = SourceChunk{
			Rows: 2,
			Key:  fmt.Sprintf("test-block-%d", i),
			Load: func(ctx context.Context) (*sparse.DenseArray, error) {
				atomic.AddInt64(&loads, 1)
				d := sparse.ZerosDense(2, 2)
				for j := range d.Elements {
					d.Elements[j] = float64(i)
				}
				return d, nil
			},
		}
	}
	a, err := NewSource(g, []int{6, 2}, chunks)
	if err != nil {
		t.Fatal(err)
	}
	// Two results built from the same source.
	doubled := a.Scale(2)
	shifted := a.AddScalar(1)
	if _, err := ComputeAll(context.Background(), []*Array{doubled, shifted}); err != nil {
		t.Fatal(err)
	}
	if loads != 3 {
		t.Errorf("source chunks loaded %d times; want 3", loads)
	}
}

func TestSourceRowMismatch(t *testing.T) {
	g := NewGraph()
	_, err := NewSource(g, []int{5, 2}, []SourceChunk{{Rows: 2, Key: "a"}, {Rows: 2, Key: "b"}})
	if err == nil {
		t.Fatal("source chunks not covering the leading dimension should fail")
	}
}

func TestComputeError(t *testing.T) {
	g := NewGraph()
	a, err := NewSource(g, []int{2, 2}, []SourceChunk{{
		Rows: 2,
		Key:  "bad",
		Load: func(ctx context.Context) (*sparse.DenseArray, error) {
			return nil, fmt.Errorf("no such file")
		},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Scale(2).Compute(context.Background()); err == nil {
		t.Fatal("compute should propagate the source error")
	} else if !strings.Contains(err.Error(), "no such file") {
		t.Errorf("error %q should mention the cause", err)
	}
}

func TestComputeCancel(t *testing.T) {
	g := NewGraph()
	a, err := Generate(g, []int{8, 2}, 1, func([]int) float64 { return 1 })
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Compute(ctx); err == nil {
		t.Fatal("compute with a canceled context should fail")
	}
}

func TestPersist(t *testing.T) {
	g := NewGraph()
	a, err := Generate(g, []int{4, 2}, 2, func(index []int) float64 {
		return float64(index[0])
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Persist(context.Background()); err != nil {
		t.Fatal(err)
	}
	var ran int
	if _, err := a.Compute(context.Background(), OnProgress(func(Event) { ran++ })); err != nil {
		t.Fatal(err)
	}
	if ran != 0 {
		t.Errorf("compute after persist ran %d tasks; want 0", ran)
	}
}

func TestProgress(t *testing.T) {
	g := NewGraph()
	a, err := Generate(g, []int{6, 2}, 2, func([]int) float64 { return 1 })
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := a.Compute(context.Background(), Workers(1), Progress(&buf)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "3/3") {
		t.Errorf("progress output %q should end at 3/3", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("progress output should end with a newline")
	}
}

func TestProgressOutOfOrder(t *testing.T) {
	var buf bytes.Buffer
	cfg := newComputeConfig([]ComputeOption{Progress(&buf)})
	cfg.onProgress(Event{Done: 2, Total: 3})
	cfg.onProgress(Event{Done: 3, Total: 3})
	// A lagging event from another worker must not overwrite the
	// finished bar.
	cfg.onProgress(Event{Done: 1, Total: 3})
	out := buf.String()
	if !strings.HasSuffix(out, "3/3\n") {
		t.Errorf("progress output %q should end at 3/3", out)
	}
	if strings.Contains(out, "1/3") {
		t.Errorf("progress output %q redrew backward", out)
	}
}

func TestDot(t *testing.T) {
	g := NewGraph()
	x, err := Zeros(g, []int{4, 2}, 2)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := x.Scale(2).Sum(0)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := sum.Dot(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "digraph tasks {") {
		t.Errorf("dot output should start with a digraph header; got %q", out)
	}
	for _, want := range []string{`"zeros"`, `"scale"`, `"sum"`, "->"} {
		if !strings.Contains(out, want) {
			t.Errorf("dot output should contain %s", want)
		}
	}
}
