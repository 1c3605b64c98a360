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
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/lnashier/viper"
	"github.com/spf13/cast"
)

// ReduceCfg holds the configuration of the reduce and graph
// commands.
type ReduceCfg struct {
	InputFile  string
	Var        string
	Dim        string
	Op         string
	Chunks     map[string]int
	Derive     map[string]string
	Workers    int
	Progress   bool
	OutputFile string
}

// PlotCfg holds the configuration of the plot command.
type PlotCfg struct {
	InputFile  string
	Var        string
	Chunks     map[string]int
	Workers    int
	Progress   bool
	LogScale   bool
	Bins       int
	OutputFile string
}

func reduceConfig(inputFile string) (*ReduceCfg, error) {
	v := Cfg.GetString("Var")
	if v == "" {
		return nil, fmt.Errorf("larray: the --Var flag is required")
	}
	chunks, err := chunkSpec(Cfg)
	if err != nil {
		return nil, err
	}
	derive, err := GetStringMapString("Derive", Cfg)
	if err != nil {
		return nil, err
	}
	return &ReduceCfg{
		InputFile:  os.ExpandEnv(inputFile),
		Var:        v,
		Dim:        Cfg.GetString("Dim"),
		Op:         Cfg.GetString("Op"),
		Chunks:     chunks,
		Derive:     derive,
		Workers:    Cfg.GetInt("Workers"),
		Progress:   Cfg.GetBool("Progress"),
		OutputFile: os.ExpandEnv(Cfg.GetString("OutputFile")),
	}, nil
}

func plotConfig(inputFile string) (*PlotCfg, error) {
	v := Cfg.GetString("Var")
	if v == "" {
		return nil, fmt.Errorf("larray: the --Var flag is required")
	}
	chunks, err := chunkSpec(Cfg)
	if err != nil {
		return nil, err
	}
	out := os.ExpandEnv(Cfg.GetString("OutputFile"))
	if out == "" {
		out = "plot.png"
	}
	return &PlotCfg{
		InputFile:  os.ExpandEnv(inputFile),
		Var:        v,
		Chunks:     chunks,
		Workers:    Cfg.GetInt("Workers"),
		Progress:   Cfg.GetBool("Progress"),
		LogScale:   Cfg.GetBool("LogScale"),
		Bins:       Cfg.GetInt("Bins"),
		OutputFile: out,
	}, nil
}

// chunkSpec parses the Chunks configuration variable into dimension
// names and block lengths.
func chunkSpec(cfg *viper.Viper) (map[string]int, error) {
	m, err := GetStringMapString("Chunks", cfg)
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[string]int, len(m))
	for dim, s := range m {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("larray: chunk length for dimension %q: %v", dim, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("larray: chunk length for dimension %q must be positive; got %d", dim, n)
		}
		out[dim] = n
	}
	return out, nil
}

// GetStringMapString returns a map of strings from the given
// configuration variable. The variable may either be a map or a JSON
// string that can be converted to a map.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch i.(type) {
	case map[string]string:
		return i.(map[string]string), nil
	case map[string]interface{}:
		return cast.ToStringMapString(i), nil
	case string:
		b := []byte(os.ExpandEnv(i.(string)))
		o := make(map[string]string)
		if err := json.Unmarshal(b, &o); err != nil {
			return nil, fmt.Errorf("larray: parsing configuration variable %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("larray: configuration variable %s must be a map of strings; got %#v", varName, i)
	}
}

// marshalStringMap encodes a map flag default as a JSON string.
func marshalStringMap(m map[string]string) string {
	b, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	return string(b)
}
