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

// Package larrayutil holds the command-line interface for larray.
package larrayutil

import (
	"context"
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/larray-project/larray"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel sets the verbosity of log output. Valid values
              are "info" and "debug".`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Var",
			usage: `
              Var specifies the name of the dataset variable to operate on.`,
			shorthand:  "v",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{reduceCmd.Flags(), graphCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "Dim",
			usage: `
              Dim specifies the dimension name to reduce over.`,
			shorthand:  "d",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{reduceCmd.Flags(), graphCmd.Flags()},
		},
		{
			name: "Op",
			usage: `
              Op specifies the reduction operation: sum, mean, max,
              min, or std.`,
			defaultVal: "mean",
			flagsets:   []*pflag.FlagSet{reduceCmd.Flags(), graphCmd.Flags()},
		},
		{
			name: "Chunks",
			usage: `
              Chunks specifies maximum block lengths along named
              dimensions, so data is processed in blocks instead of
              all at once, for example {"time": "24"}. Only leading
              dimensions can be chunked.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{reduceCmd.Flags(), graphCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "Derive",
			usage: `
              Derive specifies new variables to calculate elementwise
              from expressions over existing variables before other
              operations run, for example
              {"ratio": "temperature / pressure"}.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{reduceCmd.Flags(), graphCmd.Flags()},
		},
		{
			name: "Workers",
			usage: `
              Workers specifies the number of concurrent worker
              goroutines used for computation. The default of zero
              uses all processors.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{reduceCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "Progress",
			usage: `
              Progress specifies whether to display a progress bar
              while computing.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{reduceCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile specifies the path to write results to.
              The reduce command writes a NetCDF file when OutputFile
              is set and prints values otherwise; the graph command
              writes DOT text (default standard output); the plot
              command writes a PNG file (default plot.png).`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{reduceCmd.Flags(), graphCmd.Flags(), plotCmd.Flags()},
		},
		{
			name: "Registry",
			usage: `
              Registry specifies a TOML file of named datasets to use
              instead of the built-in registry.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{fetchCmd.Flags()},
		},
		{
			name: "CacheDir",
			usage: `
              CacheDir specifies the directory downloaded datasets
              are stored in. The default is a "larray" directory
              under the user cache directory.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{fetchCmd.Flags()},
		},
		{
			name: "LogScale",
			usage: `
              LogScale specifies whether the plot color scale is
              logarithmic instead of linear.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "Bins",
			usage: `
              Bins specifies the number of histogram bins in plots.`,
			defaultVal: 20,
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
		{
			name: "show",
			usage: `
              show specifies whether to open the plot after it is
              written.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{plotCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("LARRAY")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case map[string]string:
				s := marshalStringMap(option.defaultVal.(map[string]string))
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(fetchCmd)
	Root.AddCommand(infoCmd)
	Root.AddCommand(reduceCmd)
	Root.AddCommand(graphCmd)
	Root.AddCommand(plotCmd)
}

// setConfig finds and reads in the configuration file, if there is
// one, and sets the logging level.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("larray: problem reading configuration file: %v", err)
		}
	}
	if Cfg.GetString("LogLevel") == "debug" {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "larray",
	Short: "A lazy, chunked, parallel array engine.",
	Long: `larray computes on labeled arrays that may be larger than memory by
splitting them into chunks and executing operations lazily on a task
graph. Use the subcommands specified below to access the functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'LARRAY_var' where 'var' is
the name of the variable to be set. Many configuration variables are
additionally allowed to contain environment variables within them.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of larray.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("larray v%s\n", larray.Version)
	},
	DisableAutoGenTag: true,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [dataset names]",
	Short: "Download named sample datasets.",
	Long: `fetch downloads the named sample datasets into the local cache
directory and prints the path of each downloaded file. Names that are
already local file paths are passed through unchanged.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := Fetch(context.Background(), args,
			os.ExpandEnv(Cfg.GetString("Registry")),
			os.ExpandEnv(Cfg.GetString("CacheDir")))
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Summarize the contents of a dataset file.",
	Long: `info prints the dimensions, variables and attributes of a NetCDF
dataset file without reading the data.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return Info(context.Background(), os.Stdout, os.ExpandEnv(args[0]))
	},
	DisableAutoGenTag: true,
}

var reduceCmd = &cobra.Command{
	Use:   "reduce [file]",
	Short: "Run a chunked reduction over a dataset variable.",
	Long: `reduce computes a reduction (--Op) of a variable (--Var) over a
dimension (--Dim) of a NetCDF dataset, reading the data in blocks
specified by --Chunks and computing the blocks concurrently. The result
is written to --OutputFile as a new NetCDF file, or printed when no
output file is given. Omitting --Dim reduces over all dimensions to a
single number.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := reduceConfig(args[0])
		if err != nil {
			return err
		}
		return Reduce(context.Background(), os.Stdout, cfg)
	},
	DisableAutoGenTag: true,
}

var graphCmd = &cobra.Command{
	Use:   "graph [file]",
	Short: "Write the task graph of a reduction without computing it.",
	Long: `graph records the same lazy operations as the reduce command but,
instead of computing them, writes the resulting task dependency graph
in Graphviz DOT format.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := reduceConfig(args[0])
		if err != nil {
			return err
		}
		w := os.Stdout
		if cfg.OutputFile != "" {
			f, err := os.Create(cfg.OutputFile)
			if err != nil {
				return fmt.Errorf("larray: creating %s: %v", cfg.OutputFile, err)
			}
			defer f.Close()
			w = f
		}
		return WriteGraph(context.Background(), w, cfg)
	},
	DisableAutoGenTag: true,
}

var plotCmd = &cobra.Command{
	Use:   "plot [file]",
	Short: "Render a variable as a multi-panel figure.",
	Long: `plot renders a variable (--Var) of a NetCDF dataset as a figure
with a heatmap panel and a histogram panel sharing one colorbar,
written as a PNG file. Variables with more than two dimensions are
averaged over their leading dimension first. --show opens the result
when it has been written.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := plotConfig(args[0])
		if err != nil {
			return err
		}
		if err := Plot(context.Background(), cfg); err != nil {
			return err
		}
		fmt.Println(cfg.OutputFile)
		if Cfg.GetBool("show") {
			return open.Run(cfg.OutputFile)
		}
		return nil
	},
	DisableAutoGenTag: true,
}
