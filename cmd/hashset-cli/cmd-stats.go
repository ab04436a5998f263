package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log/level"
	"github.com/jedib0t/go-pretty/v6/table"
)

type statsCmd struct {
	Count int    `help:"Number of keys to populate with." default:"100000"`
	Keys  string `help:"Key type (string | int)." default:"int" enum:"string,int"`
	Hash  string `help:"Hash function for string keys (siphash | xxhash)." default:"siphash" enum:"siphash,xxhash"`
}

// Run populates a set and prints the per-table statistics the library
// exposes: bucket counts, fill histogram and probing chain measurements.
func (cmd *statsCmd) Run(g *globalOptions) error {
	var (
		histogram  string
		statsOut   string
		memUsage   uint64
		buckets    int
		elements   int
		longestRun int
		probing    int
	)

	switch cmd.Keys {
	case "int":
		s := newIntSet()
		for j := 0; j < cmd.Count; j++ {
			s.Add(uint64(j))
		}
		histogram = s.Histogram()
		statsOut = s.StatsString(true)
		memUsage = s.MemUsage()
		buckets = s.Buckets()
		elements = s.Len()
		longestRun = s.LongestProbingChain()
		probing = s.ProbeCounter(0) + s.ProbeCounter(1)
	case "string":
		s, err := newStringSet(cmd.Hash)
		if err != nil {
			return err
		}
		for j := 0; j < cmd.Count; j++ {
			s.Add(&entry{key: fmt.Sprintf("key-%d", j)})
		}
		histogram = s.Histogram()
		statsOut = s.StatsString(true)
		memUsage = s.MemUsage()
		buckets = s.Buckets()
		elements = s.Len()
		longestRun = s.LongestProbingChain()
		probing = s.ProbeCounter(0) + s.ProbeCounter(1)
	}

	level.Info(g.logger).Log("msg", "populated", "keys", cmd.Count, "key_type", cmd.Keys)

	w := table.NewWriter()
	w.SetOutputMirror(os.Stdout)
	w.AppendHeader(table.Row{"metric", "value"})
	w.AppendRow(table.Row{"elements", humanize.Comma(int64(elements))})
	w.AppendRow(table.Row{"buckets", humanize.Comma(int64(buckets))})
	w.AppendRow(table.Row{"memory", humanize.Bytes(memUsage)})
	w.AppendRow(table.Row{"longest probing chain", longestRun})
	w.AppendRow(table.Row{"buckets with probing flag", probing})
	w.Render()

	fmt.Println()
	fmt.Println("bucket fill:", histogram)
	fmt.Println()
	fmt.Print(statsOut)
	return nil
}
