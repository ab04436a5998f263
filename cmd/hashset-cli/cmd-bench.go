package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log/level"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type benchCmd struct {
	Count      int    `help:"Number of keys per scenario." default:"1000000"`
	Keys       string `help:"Key type (string | int)." default:"string" enum:"string,int"`
	Hash       string `help:"Hash function for string keys (siphash | xxhash)." default:"siphash" enum:"siphash,xxhash"`
	ConfigFile string `help:"YAML file with a list of scenarios, overriding the flags." type:"existingfile" optional:""`
}

// benchScenario is one benchmark run, loadable in bulk from a YAML file.
type benchScenario struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
	Keys  string `yaml:"keys"`
	Hash  string `yaml:"hash"`
}

type benchResult struct {
	scenario  benchScenario
	phase     string
	ops       int
	elapsed   time.Duration
	finalMem  uint64
	finalSize int
}

func (cmd *benchCmd) Run(g *globalOptions) error {
	scenarios, err := cmd.scenarios()
	if err != nil {
		return err
	}

	var results []benchResult
	for _, sc := range scenarios {
		level.Info(g.logger).Log("msg", "running scenario", "name", sc.Name, "count", sc.Count, "keys", sc.Keys, "hash", sc.Hash)
		r, err := runScenario(sc)
		if err != nil {
			return errors.Wrapf(err, "scenario %s", sc.Name)
		}
		results = append(results, r...)
	}

	w := table.NewWriter()
	w.SetOutputMirror(os.Stdout)
	w.AppendHeader(table.Row{"scenario", "phase", "ops", "elapsed", "ops/sec", "len", "mem"})
	for _, r := range results {
		rate := float64(r.ops) / r.elapsed.Seconds()
		w.AppendRow(table.Row{
			r.scenario.Name, r.phase,
			humanize.Comma(int64(r.ops)),
			r.elapsed.Round(time.Millisecond),
			humanize.CommafWithDigits(rate, 0),
			humanize.Comma(int64(r.finalSize)),
			humanize.Bytes(r.finalMem),
		})
	}
	w.Render()
	return nil
}

func (cmd *benchCmd) scenarios() ([]benchScenario, error) {
	if cmd.ConfigFile == "" {
		return []benchScenario{{Name: "default", Count: cmd.Count, Keys: cmd.Keys, Hash: cmd.Hash}}, nil
	}
	buf, err := os.ReadFile(cmd.ConfigFile)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}
	var scenarios []benchScenario
	if err := yaml.UnmarshalStrict(buf, &scenarios); err != nil {
		return nil, errors.Wrap(err, "parsing config file")
	}
	for i := range scenarios {
		if scenarios[i].Count == 0 {
			scenarios[i].Count = cmd.Count
		}
		if scenarios[i].Keys == "" {
			scenarios[i].Keys = cmd.Keys
		}
		if scenarios[i].Hash == "" {
			scenarios[i].Hash = cmd.Hash
		}
	}
	return scenarios, nil
}

func runScenario(sc benchScenario) ([]benchResult, error) {
	switch sc.Keys {
	case "int":
		return benchInts(sc), nil
	case "string":
		return benchStrings(sc)
	default:
		return nil, fmt.Errorf("unknown key type %q", sc.Keys)
	}
}

func benchInts(sc benchScenario) []benchResult {
	s := newIntSet()
	var results []benchResult
	measure := func(phase string, ops int, fn func()) {
		start := time.Now()
		fn()
		results = append(results, benchResult{
			scenario: sc, phase: phase, ops: ops, elapsed: time.Since(start),
			finalMem: s.MemUsage(), finalSize: s.Len(),
		})
	}

	measure("add", sc.Count, func() {
		for j := 0; j < sc.Count; j++ {
			s.Add(uint64(j))
		}
	})
	measure("find", sc.Count, func() {
		for j := 0; j < sc.Count; j++ {
			s.Find(uint64(j))
		}
	})
	measure("scan", sc.Count, func() {
		cursor := uint64(0)
		for {
			cursor = s.Scan(cursor, func(uint64) {}, 0)
			if cursor == 0 {
				break
			}
		}
	})
	measure("delete", sc.Count, func() {
		for j := 0; j < sc.Count; j++ {
			s.Delete(uint64(j))
		}
	})
	s.Release()
	return results
}

func benchStrings(sc benchScenario) ([]benchResult, error) {
	s, err := newStringSet(sc.Hash)
	if err != nil {
		return nil, err
	}
	keys := make([]string, sc.Count)
	for j := range keys {
		keys[j] = fmt.Sprintf("key-%d", j)
	}

	var results []benchResult
	measure := func(phase string, ops int, fn func()) {
		start := time.Now()
		fn()
		results = append(results, benchResult{
			scenario: sc, phase: phase, ops: ops, elapsed: time.Since(start),
			finalMem: s.MemUsage(), finalSize: s.Len(),
		})
	}

	measure("add", sc.Count, func() {
		for _, k := range keys {
			s.Add(&entry{key: k})
		}
	})
	measure("find", sc.Count, func() {
		for _, k := range keys {
			s.Find(k)
		}
	})
	measure("iterate", sc.Count, func() {
		it := s.Iterator()
		for {
			if _, ok := it.Next(); !ok {
				break
			}
		}
		it.Release()
	})
	measure("pop", sc.Count, func() {
		for _, k := range keys {
			s.Pop(k)
		}
	})
	s.Release()
	return results, nil
}
