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

package larrayutil

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/larray-project/larray"
	"github.com/larray-project/larray/dataset"
)

// testFile writes a small dataset with dimensions time=6, y=3, x=2
// to a temporary NetCDF file and returns its path.
func testFile(t *testing.T) string {
	t.Helper()
	ds := dataset.New()
	if err := ds.SetCoord("time", []float64{0, 1, 2, 3, 4, 5}); err != nil {
		t.Fatal(err)
	}
	temp, err := larray.Generate(ds.Graph(), []int{6, 3, 2}, 0, func(index []int) float64 {
		return 10*float64(index[0]) + float64(index[1]*2+index[2])
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ds.Add("temperature", []string{"time", "y", "x"}, temp, map[string]interface{}{
		"units": "K",
	}); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "test.nc")
	if err := ds.Save(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	return path
}

// resetConfig puts the shared configuration back to flag defaults so
// tests don't leak settings into each other.
func resetConfig() {
	Cfg.Set("Var", "")
	Cfg.Set("Dim", "")
	Cfg.Set("Op", "mean")
	Cfg.Set("Chunks", map[string]string{})
	Cfg.Set("Derive", map[string]string{})
	Cfg.Set("Workers", 0)
	Cfg.Set("Progress", false)
	Cfg.Set("OutputFile", "")
}

func TestVersion(t *testing.T) {
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
}

func TestInfo(t *testing.T) {
	path := testFile(t)
	var buf bytes.Buffer
	if err := Info(context.Background(), &buf, path); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"temperature", "time = 6 (coordinate)", "units: K"} {
		if !strings.Contains(out, want) {
			t.Errorf("info output %q does not contain %q", out, want)
		}
	}
}

func TestReduceCommand(t *testing.T) {
	path := testFile(t)
	out := filepath.Join(t.TempDir(), "out.nc")
	resetConfig()
	Cfg.Set("Var", "temperature")
	Cfg.Set("Dim", "time")
	Cfg.Set("Chunks", map[string]string{"time": "2"})
	Cfg.Set("OutputFile", out)
	Root.SetArgs([]string{"reduce", path})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}

	ds, err := dataset.Open(out, dataset.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()
	v, err := ds.Var("temperature")
	if err != nil {
		t.Fatal(err)
	}
	d, err := v.Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// The mean over time of 10*i + (j*2+k) is 25 + (j*2+k).
	for j := 0; j < 3; j++ {
		for k := 0; k < 2; k++ {
			want := 25 + float64(j*2+k)
			if got := d.Get(j, k); math.Abs(got-want) > 1.e-4 {
				t.Errorf("mean[%d,%d]: got %g, want %g", j, k, got, want)
			}
		}
	}
}

func TestReduceTotal(t *testing.T) {
	path := testFile(t)
	resetConfig()
	Cfg.Set("Var", "temperature")
	Cfg.Set("Op", "max")
	cfg, err := reduceConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Reduce(context.Background(), &buf, cfg); err != nil {
		t.Fatal(err)
	}
	if want := "max(temperature) = 55"; !strings.Contains(buf.String(), want) {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestReduceDerived(t *testing.T) {
	path := testFile(t)
	resetConfig()
	Cfg.Set("Var", "doubled")
	Cfg.Set("Op", "max")
	Cfg.Set("Derive", map[string]string{"doubled": "temperature * 2"})
	cfg, err := reduceConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Reduce(context.Background(), &buf, cfg); err != nil {
		t.Fatal(err)
	}
	if want := "max(doubled) = 110"; !strings.Contains(buf.String(), want) {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestReduceMissingVar(t *testing.T) {
	resetConfig()
	if _, err := reduceConfig("file.nc"); err == nil {
		t.Error("an empty Var flag should fail")
	}
}

func TestGraphCommand(t *testing.T) {
	path := testFile(t)
	resetConfig()
	Cfg.Set("Var", "temperature")
	Cfg.Set("Dim", "time")
	Cfg.Set("Op", "sum")
	cfg, err := reduceConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteGraph(context.Background(), &buf, cfg); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "digraph tasks {") {
		t.Errorf("graph output does not look like DOT: %q", out)
	}
	if !strings.Contains(out, "sum") {
		t.Errorf("graph output %q does not mention the reduction", out)
	}
}

func TestPlotCommand(t *testing.T) {
	path := testFile(t)
	out := filepath.Join(t.TempDir(), "fig.png")
	err := Plot(context.Background(), &PlotCfg{
		InputFile:  path,
		Var:        "temperature",
		Bins:       10,
		OutputFile: out,
	})
	if err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() == 0 {
		t.Error("plot file is empty")
	}
}

func TestChunkSpec(t *testing.T) {
	resetConfig()
	Cfg.Set("Chunks", `{"time": "4"}`)
	chunks, err := chunkSpec(Cfg)
	if err != nil {
		t.Fatal(err)
	}
	if chunks["time"] != 4 {
		t.Errorf("chunks: got %v, want time=4", chunks)
	}

	Cfg.Set("Chunks", map[string]string{"time": "many"})
	if _, err := chunkSpec(Cfg); err == nil {
		t.Error("a non-numeric chunk length should fail")
	}
	Cfg.Set("Chunks", map[string]string{"time": "0"})
	if _, err := chunkSpec(Cfg); err == nil {
		t.Error("a zero chunk length should fail")
	}
}

func TestGetStringMapString(t *testing.T) {
	resetConfig()
	Cfg.Set("Derive", map[string]interface{}{"a": "b"})
	m, err := GetStringMapString("Derive", Cfg)
	if err != nil {
		t.Fatal(err)
	}
	if m["a"] != "b" {
		t.Errorf("got %v, want map[a:b]", m)
	}
	Cfg.Set("Derive", "{not json")
	if _, err := GetStringMapString("Derive", Cfg); err == nil {
		t.Error("malformed JSON should fail")
	}
}
