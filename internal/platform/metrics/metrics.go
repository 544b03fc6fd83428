// Package metrics exposes the process-wide Prometheus endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var buildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "vowly_build_info",
	Help: "Build information for the running binary",
}, []string{"component", "version"})

// MarkStarted records which binary is running.
func MarkStarted(component, version string) {
	buildInfo.WithLabelValues(component, version).Set(1)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
