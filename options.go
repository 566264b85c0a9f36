package vectodb

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures ambient concerns of a DB that have no bearing on its
// core semantics (where to log, where to export metrics). Required,
// semantically-load-bearing parameters (dim, metric, index_key,
// query_params) stay as Open's positional arguments.
type Option func(*options)

type options struct {
	logger  *log.Logger
	metrics *prometheus.Registry
}

func defaultOptions() *options {
	return &options{logger: log.Default()}
}

// WithLogger directs the database's log messages (index activation and
// close) to logger instead of the default package logger.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetricsRegistry registers the database's Prometheus instrumentation
// on reg. Without this option, no metrics are collected.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.metrics = reg }
}
