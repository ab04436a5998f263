package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type globalOptions struct {
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info" enum:"debug,info,warn,error"`

	logger log.Logger `kong:"-"`
}

func (g *globalOptions) initLogger() {
	l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	var opt level.Option
	switch g.LogLevel {
	case "debug":
		opt = level.AllowDebug()
	case "warn":
		opt = level.AllowWarn()
	case "error":
		opt = level.AllowError()
	default:
		opt = level.AllowInfo()
	}
	g.logger = log.With(level.NewFilter(l, opt), "ts", log.DefaultTimestampUTC)
}

var cli struct {
	globalOptions

	Bench  benchCmd  `cmd:"" help:"Run throughput benchmarks against a hash set."`
	Stress stressCmd `cmd:"" help:"Run a continuous mixed workload and export Prometheus metrics."`
	Stats  statsCmd  `cmd:"" help:"Populate a hash set and dump table statistics."`
}

func main() {
	ctx := kong.Parse(
		&cli,
		kong.Name("hashset-cli"),
		kong.Description("Operational tooling for the hashset library: benchmarks, stress workloads and table statistics."),
		kong.UsageOnError(),
	)
	cli.globalOptions.initLogger()
	err := ctx.Run(&cli.globalOptions)
	ctx.FatalIfErrorf(err)
}
