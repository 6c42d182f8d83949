/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"strings"
	"sync"

	"github.com/hyperledger/fabric-lib-go/common/metrics"
	"github.com/hyperledger/fabric-lib-go/common/metrics/disabled"
	"github.com/hyperledger/fabric-lib-go/common/metrics/prometheus"
	"github.com/pkg/errors"
)

type (
	CounterOpts = metrics.CounterOpts
	Counter     = metrics.Counter

	GaugeOpts = metrics.GaugeOpts
	Gauge     = metrics.Gauge

	HistogramOpts = metrics.HistogramOpts
	Histogram     = metrics.Histogram

	Provider = metrics.Provider
)

// prometheusProvider is shared by every node of the process, metrics register with the default registry
var prometheusProvider = NewSharedProvider(&prometheus.Provider{})

const (
	Prometheus = "prometheus"
	Disabled   = "disabled"
	Memory     = "memory"
)

// NewProvider returns the provider of the passed kind.
// The returned provider can be asked more than once for the same metric.
func NewProvider(kind string) (Provider, error) {
	switch strings.ToLower(kind) {
	case Prometheus:
		return prometheusProvider, nil
	case Disabled, "":
		return &disabled.Provider{}, nil
	case Memory:
		return NewInMemoryProvider(), nil
	default:
		return nil, errors.Errorf("unknown metrics provider [%s]", kind)
	}
}

// sharedProvider memoizes metrics by fully qualified name.
// Backends like prometheus panic when the same metric is registered twice.
type sharedProvider struct {
	provider Provider

	lock       sync.Mutex
	counters   map[string]Counter
	gauges     map[string]Gauge
	histograms map[string]Histogram
}

func NewSharedProvider(provider Provider) *sharedProvider {
	return &sharedProvider{
		provider:   provider,
		counters:   map[string]Counter{},
		gauges:     map[string]Gauge{},
		histograms: map[string]Histogram{},
	}
}

func (p *sharedProvider) NewCounter(o CounterOpts) Counter {
	p.lock.Lock()
	defer p.lock.Unlock()
	key := fqname(o.Namespace, o.Subsystem, o.Name)
	if c, ok := p.counters[key]; ok {
		return c
	}
	c := p.provider.NewCounter(o)
	p.counters[key] = c
	return c
}

func (p *sharedProvider) NewGauge(o GaugeOpts) Gauge {
	p.lock.Lock()
	defer p.lock.Unlock()
	key := fqname(o.Namespace, o.Subsystem, o.Name)
	if g, ok := p.gauges[key]; ok {
		return g
	}
	g := p.provider.NewGauge(o)
	p.gauges[key] = g
	return g
}

func (p *sharedProvider) NewHistogram(o HistogramOpts) Histogram {
	p.lock.Lock()
	defer p.lock.Unlock()
	key := fqname(o.Namespace, o.Subsystem, o.Name)
	if h, ok := p.histograms[key]; ok {
		return h
	}
	h := p.provider.NewHistogram(o)
	p.histograms[key] = h
	return h
}

func fqname(parts ...string) string {
	var res []string
	for _, p := range parts {
		if len(p) != 0 {
			res = append(res, p)
		}
	}
	return strings.Join(res, "_")
}

// StatsdFormat returns the statsd format for a metric with the passed labels
func StatsdFormat(labels ...string) string {
	if len(labels) == 0 {
		return "%{#fqname}"
	}
	return "%{#fqname}.%{" + strings.Join(labels, "}.%{") + "}"
}
