// Package metrics exposes Prometheus counters for packets, ticks,
// replication actions, and authority transfers, and a per-connection
// bandwidth monitor that is not exported to Prometheus (SPEC_FULL §B,
// §C.1).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "naia"

// Registry is the registry every metric in this package registers
// against, rather than prometheus.DefaultRegisterer, so a host
// embedding this module alongside its own metrics doesn't collide.
var Registry = prometheus.NewRegistry()

// Handler serves Registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// StartServer runs a standalone metrics HTTP server at addr, serving
// Handler on /metrics. Not started automatically by anything in this
// module; a host application calls it from its own startup path.
func StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return http.ListenAndServe(addr, mux)
}
