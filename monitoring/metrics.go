package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sarchlab/ftlsim/ftl"
	"github.com/sarchlab/ftlsim/hooking"
	"github.com/sarchlab/ftlsim/ssd"
)

// Metrics is a hook that exports device activity as Prometheus metrics.
type Metrics struct {
	flashOps     *prometheus.CounterVec
	hostRequests *prometheus.CounterVec
	merges       *prometheus.CounterVec
	pagesCopied  prometheus.Counter
	erases       prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		flashOps: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftlsim_flash_ops_total",
				Help: "Total number of flash operations by kind",
			},
			[]string{"op"}, // "READ", "WRITE", "ERASE"
		),
		hostRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftlsim_host_requests_total",
				Help: "Total number of host requests by kind and outcome",
			},
			[]string{"op", "outcome"}, // outcome: "ok", "error"
		),
		merges: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ftlsim_merges_total",
				Help: "Total number of log block merges by kind and result",
			},
			[]string{"kind", "result"},
		),
		pagesCopied: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "ftlsim_merge_pages_copied_total",
				Help: "Total number of pages copied by merges",
			},
		),
		erases: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "ftlsim_merge_erases_total",
				Help: "Total number of block erases issued by merges",
			},
		),
	}
}

// Attach hooks the metrics to a device, its controller, and its FTL.
func (m *Metrics) Attach(dev *ssd.Device) {
	dev.AcceptHook(m)
	dev.Controller().AcceptHook(m)
	dev.FTL().AcceptHook(m)
}

// Func updates the collectors from the hook item.
func (m *Metrics) Func(ctx hooking.HookCtx) {
	switch item := ctx.Item.(type) {
	case ssd.FlashOp:
		m.flashOps.WithLabelValues(item.Op.String()).Inc()
	case *ssd.HostRequest:
		if ctx.Pos != ssd.HookPosHostEnd {
			return
		}

		outcome := "ok"
		if item.Err != nil {
			outcome = "error"
		}

		m.hostRequests.WithLabelValues(string(item.Op), outcome).Inc()
	case ftl.MergeEvent:
		m.merges.WithLabelValues(item.Kind.String(), item.Result.String()).Inc()
		m.pagesCopied.Add(float64(item.PagesCopied))
		m.erases.Add(float64(item.Erases))
	}
}
