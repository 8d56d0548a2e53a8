package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"CONFIG" default:"config.yml" description:"configuration file"`

	Server  ServerCmd  `command:"server" description:"run REST API server with periodic retention sweep"`
	Collect CollectCmd `command:"collect" description:"collect articles from sources"`
	Analyze AnalyzeCmd `command:"analyze" description:"cluster and summarize stored articles"`
	Stats   StatsCmd   `command:"stats" description:"show stored article counts per source"`
	Purge   PurgeCmd   `command:"purge" description:"delete articles older than retention period"`
	Dataset DatasetCmd `command:"dataset" description:"evaluation dataset tooling"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

// ServerCmd options of the server command
type ServerCmd struct {
	Listen string `short:"l" long:"listen" env:"LISTEN" description:"listen address, overrides config"`
}

// CollectCmd options of the collect command
type CollectCmd struct {
	Sources  string `short:"s" long:"sources" description:"comma separated sources"`
	File     string `short:"f" long:"file" description:"sources file, one url or handle per line"`
	DaysBack int    `short:"d" long:"days" description:"lookback window in days, defaults to config"`
	JSON     bool   `long:"json" description:"print raw result as json"`
	Args     struct {
		Sources []string `positional-arg-name:"source"`
	} `positional-args:"yes"`
}

// AnalyzeCmd options of the analyze command
type AnalyzeCmd struct {
	Sources     string `short:"s" long:"sources" description:"comma separated sources, all stored sources if empty"`
	DaysBack    int    `short:"d" long:"days" description:"lookback window in days, defaults to config"`
	MaxClusters int    `short:"m" long:"max-clusters" description:"maximum clusters, defaults to config"`
	Limit       int    `long:"limit" default:"200" description:"maximum articles to analyze when no sources given"`
	Filter      bool   `long:"filter" description:"filter articles for AI relevance first"`
	JSON        bool   `long:"json" description:"print raw result as json"`
}

// StatsCmd options of the stats command
type StatsCmd struct {
	DaysBack int `short:"d" long:"days" description:"lookback window in days, defaults to config"`
}

// PurgeCmd options of the purge command
type PurgeCmd struct {
	DaysToKeep int `long:"keep" description:"keep articles published within this many days, defaults to config"`
}

// DatasetCmd groups dataset subcommands
type DatasetCmd struct {
	Export  DatasetExportCmd  `command:"export" description:"convert test cases into evaluation dataset"`
	Analyze DatasetAnalyzeCmd `command:"analyze" description:"evaluate filter decisions against ground truth"`
}

// DatasetExportCmd options of the dataset export command
type DatasetExportCmd struct {
	Input  string `short:"i" long:"input" required:"true" description:"test cases json file"`
	Format string `long:"format" choice:"json" choice:"csv" choice:"both" default:"both" description:"output format"`
}

// DatasetAnalyzeCmd options of the dataset analyze command
type DatasetAnalyzeCmd struct {
	Input string `short:"i" long:"input" required:"true" description:"test cases json file"`
	JSON  bool   `long:"json" description:"print raw evaluation as json"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	parser.SubcommandsOptional = true
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	if parser.Active == nil {
		parser.WriteHelp(os.Stderr)
		os.Exit(1)
	}

	setupLog(opts.Debug, opts.NoColor)
	log.Printf("[DEBUG] starting trendmind version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	err := run(ctx, opts, commandName(parser.Active), os.Stdout)
	cancel()
	if err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

// commandName returns space separated path of the active command, like "dataset export"
func commandName(cmd *flags.Command) string {
	var names []string
	for c := cmd; c != nil; c = c.Active {
		names = append(names, c.Name)
	}
	return strings.Join(names, " ")
}

func setupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Out(os.Stderr)}
	if dbg {
		logOpts = []lgr.Option{lgr.Out(os.Stderr), lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError, lgr.CallerFile}
	}

	if !noColor {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
