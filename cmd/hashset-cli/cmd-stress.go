package main

import (
	"math/rand"
	"net/http"
	"time"

	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/grafana/hashset/pkg/hashset"
)

type stressCmd struct {
	PrometheusListenAddress string        `help:"Address to expose Prometheus metrics on." default:":8080"`
	PrometheusPath          string        `help:"Path to publish Prometheus metrics on." default:"/metrics"`
	Duration                time.Duration `help:"How long to run; 0 runs forever." default:"0"`
	TargetKeys              int           `help:"Approximate steady-state key count." default:"1000000"`
	Hash                    string        `help:"Hash function (siphash | xxhash)." default:"siphash" enum:"siphash,xxhash"`
	ReportInterval          time.Duration `help:"How often to log progress." default:"10s"`
}

var stressOps = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hashset_stress_operations_total",
	Help: "Operations performed by the stress workload.",
}, []string{"op"})

// Run drives a continuous mixed workload: inserts until the target key
// count, then a mix of finds, deletes, replacements, fair random picks and
// further inserts, with incremental rehashing driven both by the mutations
// and by an explicit time budget.
func (cmd *stressCmd) Run(g *globalOptions) error {
	s, err := newStringSet(cmd.Hash)
	if err != nil {
		return err
	}

	if err := prometheus.Register(hashset.NewCollector(s, prometheus.Labels{"workload": "stress"})); err != nil {
		return errors.Wrap(err, "registering collector")
	}
	http.Handle(cmd.PrometheusPath, promhttp.Handler())
	go func() {
		level.Error(g.logger).Log("msg", "metrics server exited", "err", http.ListenAndServe(cmd.PrometheusListenAddress, nil))
	}()
	level.Info(g.logger).Log("msg", "stress workload starting",
		"target_keys", cmd.TargetKeys, "metrics", cmd.PrometheusListenAddress+cmd.PrometheusPath)

	var (
		keys     []string
		deadline time.Time
		lastLog  = time.Now()
		ops      uint64
	)
	if cmd.Duration > 0 {
		deadline = time.Now().Add(cmd.Duration)
	}

	for {
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}

		switch {
		case s.Len() < cmd.TargetKeys:
			k := uuid.NewString()
			if s.Add(&entry{key: k}) {
				keys = append(keys, k)
			}
			stressOps.WithLabelValues("add").Inc()
		default:
			switch rand.Intn(10) {
			case 0, 1, 2:
				k := keys[rand.Intn(len(keys))]
				if _, ok := s.Find(k); !ok {
					level.Error(g.logger).Log("msg", "live key missing", "key", k)
				}
				stressOps.WithLabelValues("find").Inc()
			case 3, 4:
				i := rand.Intn(len(keys))
				if s.Delete(keys[i]) {
					keys[i] = keys[len(keys)-1]
					keys = keys[:len(keys)-1]
				}
				stressOps.WithLabelValues("delete").Inc()
			case 5, 6:
				k := keys[rand.Intn(len(keys))]
				s.Replace(&entry{key: k})
				stressOps.WithLabelValues("replace").Inc()
			case 7:
				s.FairRandomElement()
				stressOps.WithLabelValues("fair_random").Inc()
			case 8:
				s.RehashFor(100 * time.Microsecond)
				stressOps.WithLabelValues("rehash_budget").Inc()
			case 9:
				k := uuid.NewString()
				if s.Add(&entry{key: k}) {
					keys = append(keys, k)
				}
				stressOps.WithLabelValues("add").Inc()
			}
		}
		ops++

		if time.Since(lastLog) >= cmd.ReportInterval {
			level.Info(g.logger).Log("msg", "stress progress",
				"ops", ops, "len", s.Len(), "buckets", s.Buckets(),
				"rehashing", s.IsRehashing(), "mem_bytes", s.MemUsage())
			lastLog = time.Now()
		}
	}

	level.Info(g.logger).Log("msg", "stress workload done", "ops", ops, "len", s.Len())
	s.Release()
	return nil
}
