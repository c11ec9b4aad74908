package transport

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// transportMetrics holds the Prometheus instruments for the transport.
type transportMetrics struct {
	framesSent     prometheus.Counter
	framesReceived prometheus.Counter
	bytesSent      prometheus.Counter
	bytesReceived  prometheus.Counter
	sendErrors     prometheus.Counter
	openChannels   prometheus.Gauge
}

// globalMetrics is the singleton instance, created on first use so that
// importing the package does not register collectors in processes that
// never open a channel.
var (
	globalMetrics     *transportMetrics
	globalMetricsOnce sync.Once
)

func metrics() *transportMetrics {
	globalMetricsOnce.Do(func() {
		globalMetrics = &transportMetrics{
			framesSent: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "relay",
				Subsystem: "transport",
				Name:      "frames_sent_total",
				Help:      "Frames handed to a channel and fully written.",
			}),
			framesReceived: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "relay",
				Subsystem: "transport",
				Name:      "frames_received_total",
				Help:      "Frames fully read from a channel.",
			}),
			bytesSent: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "relay",
				Subsystem: "transport",
				Name:      "bytes_sent_total",
				Help:      "Bytes written to channels, headers included.",
			}),
			bytesReceived: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "relay",
				Subsystem: "transport",
				Name:      "bytes_received_total",
				Help:      "Bytes read from channels, headers included.",
			}),
			sendErrors: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "relay",
				Subsystem: "transport",
				Name:      "send_errors_total",
				Help:      "Send calls that raised a connection or TLS error.",
			}),
			openChannels: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "relay",
				Subsystem: "transport",
				Name:      "open_channels",
				Help:      "Channels currently open.",
			}),
		}
	})
	return globalMetrics
}
