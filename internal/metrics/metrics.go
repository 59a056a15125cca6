package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github/chapool/go-gasless/internal/config"
)

// Namespace prefixes every metric of the service.
const Namespace = "gasless"

const (
	resultSuccess = "success"
	resultError   = "error"
)

// Service owns the prometheus registry of the process. A nil *Service is valid and records nothing.
type Service struct {
	Registry *prometheus.Registry

	chainReads       *prometheus.CounterVec
	chainReadSeconds *prometheus.HistogramVec
	permitsSigned    *prometheus.CounterVec
	submissions      *prometheus.CounterVec
	submitSeconds    prometheus.Histogram
}

func New(_ config.Server) (*Service, error) {
	reg := prometheus.NewRegistry()

	s := &Service{
		Registry: reg,
		chainReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "chain",
			Name:      "reads_total",
			Help:      "Token state reads issued as eth_call.",
		}, []string{"method", "result"}),
		chainReadSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "chain",
			Name:      "read_duration_seconds",
			Help:      "Latency of token state reads.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		permitsSigned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "permit",
			Name:      "signed_total",
			Help:      "Permit signing attempts.",
		}, []string{"result"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "batch",
			Name:      "submissions_total",
			Help:      "Batched sponsored submissions.",
		}, []string{"result"}),
		submitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "batch",
			Name:      "submission_duration_seconds",
			Help:      "Time from submission to inclusion.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
	}

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		s.chainReads,
		s.chainReadSeconds,
		s.permitsSigned,
		s.submissions,
		s.submitSeconds,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func result(err error) string {
	if err != nil {
		return resultError
	}

	return resultSuccess
}

func (s *Service) ObserveChainRead(method string, took time.Duration, err error) {
	if s == nil {
		return
	}

	s.chainReads.WithLabelValues(method, result(err)).Inc()
	s.chainReadSeconds.WithLabelValues(method).Observe(took.Seconds())
}

func (s *Service) ObservePermitSigned(err error) {
	if s == nil {
		return
	}

	s.permitsSigned.WithLabelValues(result(err)).Inc()
}

func (s *Service) ObserveSubmission(took time.Duration, err error) {
	if s == nil {
		return
	}

	s.submissions.WithLabelValues(result(err)).Inc()
	if err == nil {
		s.submitSeconds.Observe(took.Seconds())
	}
}
