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

// Package fetch retrieves named sample datasets over HTTP into a
// local cache directory.
package fetch

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cenkalti/backoff"
	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
)

// Entry describes one named dataset.
type Entry struct {
	// URL is where the file is downloaded from.
	URL string `toml:"url"`
	// SHA256 is the expected hex checksum of the file contents.
	// Verification is skipped when it is empty.
	SHA256 string `toml:"sha256"`
}

// Registry maps dataset names to their download locations.
type Registry map[string]Entry

// DefaultRegistry holds the built-in sample datasets.
var DefaultRegistry = Registry{
	"air-temperature": {
		URL: "https://github.com/pydata/xarray-data/raw/master/air_temperature.nc",
	},
	"rasm": {
		URL: "https://github.com/pydata/xarray-data/raw/master/rasm.nc",
	},
	"sea-surface-temperature": {
		URL: "https://github.com/pydata/xarray-data/raw/master/ersstv5.nc",
	},
}

// LoadRegistry reads a TOML registry file of the form
//
//	[datasets.air-temperature]
//	url = "https://host/air_temperature.nc"
//	sha256 = "..."
func LoadRegistry(path string) (Registry, error) {
	var out struct {
		Datasets Registry `toml:"datasets"`
	}
	if _, err := toml.DecodeFile(path, &out); err != nil {
		return nil, fmt.Errorf("fetch: reading registry %s: %v", path, err)
	}
	if len(out.Datasets) == 0 {
		return nil, fmt.Errorf("fetch: registry %s defines no datasets", path)
	}
	return out.Datasets, nil
}

// Fetcher downloads named datasets into a cache directory,
// deduplicating concurrent requests and retrying failed downloads
// with exponential backoff.
type Fetcher struct {
	// Dir is the cache directory. The default is a "larray"
	// directory under the user cache directory.
	Dir string
	// Registry maps names to download locations. The default is
	// DefaultRegistry.
	Registry Registry
	// Client is the HTTP client used for downloads. The default
	// is http.DefaultClient.
	Client *http.Client
	// Log receives retry and download messages. The default is
	// the logrus standard logger.
	Log *logrus.Logger

	cacheOnce sync.Once
	cache     *requestcache.Cache
}

func (f *Fetcher) setup() error {
	if f.Registry == nil {
		f.Registry = DefaultRegistry
	}
	if f.Client == nil {
		f.Client = http.DefaultClient
	}
	if f.Log == nil {
		f.Log = logrus.StandardLogger()
	}
	if f.Dir == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return fmt.Errorf("fetch: finding cache directory: %v", err)
		}
		f.Dir = filepath.Join(dir, "larray")
	}
	return os.MkdirAll(f.Dir, os.ModePerm)
}

// Fetch returns a local path for the named dataset. Names that are
// existing local file paths are returned unchanged; otherwise the
// name is looked up in the registry, and the file is downloaded
// unless the cache directory already holds a copy with a matching
// checksum.
func (f *Fetcher) Fetch(ctx context.Context, name string) (string, error) {
	if _, err := os.Stat(name); !os.IsNotExist(err) {
		return name, nil
	}
	if err := f.setup(); err != nil {
		return "", err
	}
	f.cacheOnce.Do(func() {
		f.cache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
			return f.fetch(ctx, request.(string))
		}, runtime.GOMAXPROCS(-1), requestcache.Deduplicate())
	})
	req := f.cache.NewRequest(ctx, name, name)
	result, err := req.Result()
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (f *Fetcher) fetch(ctx context.Context, name string) (string, error) {
	entry, ok := f.Registry[name]
	if !ok {
		return "", fmt.Errorf("fetch: no dataset %q in the registry", name)
	}
	dest := filepath.Join(f.Dir, path.Base(entry.URL))
	if ok, err := f.cached(dest, entry.SHA256); err != nil {
		return "", err
	} else if ok {
		return dest, nil
	}

	f.Log.WithFields(logrus.Fields{"name": name, "url": entry.URL}).Info("fetch: downloading")
	err := backoff.RetryNotify(
		func() error {
			return f.download(ctx, entry, dest)
		},
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5),
		func(err error, d time.Duration) {
			f.Log.WithError(err).Warnf("fetch: %s: retrying in %v", name, d)
		},
	)
	if err != nil {
		return "", err
	}
	return dest, nil
}

// cached reports whether dest already exists with the expected
// checksum. An existing file with a wrong checksum is removed so it
// gets downloaded again.
func (f *Fetcher) cached(dest, sum string) (bool, error) {
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		return false, nil
	}
	if sum == "" {
		return true, nil
	}
	got, err := checksum(dest)
	if err != nil {
		return false, err
	}
	if got != sum {
		f.Log.WithField("file", dest).Warn("fetch: cached file has a stale checksum")
		return false, os.Remove(dest)
	}
	return true, nil
}

// download gets the file and renames it into place, so a partial
// download never ends up in the cache.
func (f *Fetcher) download(ctx context.Context, entry Entry, dest string) error {
	req, err := http.NewRequest(http.MethodGet, entry.URL, nil)
	if err != nil {
		return fmt.Errorf("fetch: %v", err)
	}
	resp, err := f.Client.Do(req.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("fetch: downloading %s: %v", entry.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("fetch: downloading %s: %s", entry.URL, resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// Client errors won't get better by retrying.
			return backoff.Permanent(err)
		}
		return err
	}

	tmp, err := os.CreateTemp(f.Dir, ".download-*")
	if err != nil {
		return fmt.Errorf("fetch: %v", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("fetch: downloading %s: %v", entry.URL, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fetch: %v", err)
	}

	if entry.SHA256 != "" {
		got, err := checksum(tmp.Name())
		if err != nil {
			return err
		}
		if got != entry.SHA256 {
			return backoff.Permanent(fmt.Errorf("fetch: %s: checksum %s does not match expected %s", entry.URL, got, entry.SHA256))
		}
	}
	return os.Rename(tmp.Name(), dest)
}

func checksum(path string) (string, error) {
	r, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("fetch: %v", err)
	}
	defer r.Close()
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("fetch: hashing %s: %v", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
