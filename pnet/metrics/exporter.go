/*
Copyright (c) The pnet-rt Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

/*
Package metrics exposes the PPM interface-statistics counters over both a
Prometheus scrape endpoint and a plain JSON endpoint, the two reporting
surfaces the ambient stack expects of a long-running daemon.
*/
package metrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// CounterSource is anything that can hand back a snapshot of its counters,
// satisfied by ppm.Stats.
type CounterSource interface {
	Get() map[string]int64
}

// Exporter serves both /metrics (Prometheus) and /stats (JSON) for a
// CounterSource.
type Exporter struct {
	registry *prometheus.Registry
	source   CounterSource
}

// NewExporter wires an Exporter to source.
func NewExporter(source CounterSource) *Exporter {
	return &Exporter{registry: prometheus.NewRegistry(), source: source}
}

// Handler returns an http.Handler exposing /metrics and /stats.
func (e *Exporter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc("/stats", e.handleJSON)
	return mux
}

func (e *Exporter) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(e.source.Get()); err != nil {
		log.Errorf("metrics: encoding JSON stats: %v", err)
	}
}

// Scrape pushes the current counter snapshot into the Prometheus registry.
// Call periodically, e.g. from a time.Ticker in cmd/pnetd.
func (e *Exporter) Scrape() {
	for key, val := range e.source.Get() {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Name: flattenKey(key), Help: key})
		if err := e.registry.Register(g); err != nil {
			are := &prometheus.AlreadyRegisteredError{}
			if errors.As(err, are) {
				g = are.ExistingCollector.(prometheus.Gauge)
			} else {
				log.Errorf("metrics: failed to register %s: %v", key, err)
				continue
			}
		}
		g.Set(float64(val))
	}
}

func flattenKey(key string) string {
	key = strings.ReplaceAll(key, ".", "_")
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, "/", "_")
	return fmt.Sprintf("pnet_%s", key)
}
