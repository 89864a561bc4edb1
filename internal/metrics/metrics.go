// Package metrics exposes the non-authoritative TransferStats counters
// SPEC_FULL.md §3 adds on top of the original protocol: observational
// only, never consulted for protocol decisions. Grounded on
// runZeroInc-sockstats/pkg/exporter/exporter.go's pattern of a small
// registry plus a bare net/http /metrics handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stats holds the counters a single active session updates. A nil
// *Stats is valid everywhere it's accepted: every method is a no-op on
// a nil receiver, so wiring metrics is opt-in.
type Stats struct {
	chunksSent       prometheus.Counter
	chunksAcked      prometheus.Counter
	nacksReceived    prometheus.Counter
	retries          prometheus.Counter
	bytesTransferred prometheus.Counter
}

// NewStats registers a fresh set of counters against reg.
func NewStats(reg *prometheus.Registry) *Stats {
	s := &Stats{
		chunksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lorafile_chunks_sent_total",
			Help: "DATA records emitted by a sender session.",
		}),
		chunksAcked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lorafile_chunks_acked_total",
			Help: "ACK records for DATA records, accepted by a sender session or emitted by a receiver session.",
		}),
		nacksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lorafile_nacks_received_total",
			Help: "NACK records received by a sender session or emitted by a receiver session.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lorafile_retries_total",
			Help: "Retransmissions triggered by timeout or NACK.",
		}),
		bytesTransferred: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lorafile_bytes_transferred_total",
			Help: "Payload bytes carried by accepted DATA records.",
		}),
	}
	reg.MustRegister(s.chunksSent, s.chunksAcked, s.nacksReceived, s.retries, s.bytesTransferred)
	return s
}

func (s *Stats) ChunkSent() {
	if s != nil {
		s.chunksSent.Inc()
	}
}

func (s *Stats) ChunkAcked(n int) {
	if s != nil {
		s.chunksAcked.Inc()
		s.bytesTransferred.Add(float64(n))
	}
}

func (s *Stats) Nacked() {
	if s != nil {
		s.nacksReceived.Inc()
	}
}

func (s *Stats) Retried() {
	if s != nil {
		s.retries.Inc()
	}
}

// Serve starts a blocking HTTP server exposing reg on /metrics at addr.
// Callers typically run it in its own goroutine.
func Serve(addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}
