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

package fetch

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func testServer(t *testing.T, body []byte, hits *int64) *httptest.Server {
	t.Helper()
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(hits, 1)
		w.Write(body)
	}))
	t.Cleanup(s.Close)
	return s
}

func TestFetch(t *testing.T) {
	body := []byte("sample dataset contents")
	var hits int64
	s := testServer(t, body, &hits)
	sum := fmt.Sprintf("%x", sha256.Sum256(body))

	f := &Fetcher{
		Dir: t.TempDir(),
		Registry: Registry{
			"sample": {URL: s.URL + "/sample.nc", SHA256: sum},
		},
	}
	path, err := f.Fetch(context.Background(), "sample")
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(body) {
		t.Errorf("downloaded contents: got %q, want %q", got, body)
	}
	if filepath.Base(path) != "sample.nc" {
		t.Errorf("cached name: got %s, want sample.nc", filepath.Base(path))
	}

	// A second fetch hits the cache, not the server.
	f2 := &Fetcher{Dir: f.Dir, Registry: f.Registry}
	if _, err := f2.Fetch(context.Background(), "sample"); err != nil {
		t.Fatal(err)
	}
	if hits != 1 {
		t.Errorf("server hit %d times; want 1", hits)
	}
}

func TestFetchChecksumMismatch(t *testing.T) {
	var hits int64
	s := testServer(t, []byte("corrupted"), &hits)

	f := &Fetcher{
		Dir: t.TempDir(),
		Registry: Registry{
			"sample": {URL: s.URL + "/sample.nc", SHA256: "00000000"},
		},
	}
	if _, err := f.Fetch(context.Background(), "sample"); err == nil {
		t.Fatal("mismatched checksum should fail")
	}
}

func TestFetchLocalPath(t *testing.T) {
	local := filepath.Join(t.TempDir(), "local.nc")
	if err := os.WriteFile(local, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	f := &Fetcher{Dir: t.TempDir()}
	path, err := f.Fetch(context.Background(), local)
	if err != nil {
		t.Fatal(err)
	}
	if path != local {
		t.Errorf("local path: got %s, want %s", path, local)
	}
}

func TestFetchUnknownName(t *testing.T) {
	f := &Fetcher{Dir: t.TempDir(), Registry: Registry{}}
	if _, err := f.Fetch(context.Background(), "nonexistent"); err == nil {
		t.Fatal("unknown dataset name should fail")
	}
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.toml")
	err := os.WriteFile(path, []byte(`
[datasets.one]
url = "https://example.com/one.nc"
sha256 = "abc"

[datasets.two]
url = "https://example.com/two.nc"
`), 0644)
	if err != nil {
		t.Fatal(err)
	}
	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(r) != 2 {
		t.Fatalf("registry size: got %d, want 2", len(r))
	}
	if r["one"].SHA256 != "abc" {
		t.Errorf("checksum: got %q, want abc", r["one"].SHA256)
	}
	if r["two"].URL != "https://example.com/two.nc" {
		t.Errorf("url: got %q", r["two"].URL)
	}

	if _, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing registry file should fail")
	}
}
