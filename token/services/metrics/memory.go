/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"math"
	"strings"
	"sync"

	"github.com/hyperledger/fabric-lib-go/common/metrics"
)

// InMemoryProvider keeps metric values in memory, per label set.
// It is used by tests and by the simulate command to print a summary.
type InMemoryProvider struct {
	lock   sync.Mutex
	values map[string]*entry
}

func NewInMemoryProvider() *InMemoryProvider {
	return &InMemoryProvider{values: map[string]*entry{}}
}

func (p *InMemoryProvider) NewCounter(o metrics.CounterOpts) metrics.Counter {
	return &counter{p: p, name: fqname(o.Namespace, o.Subsystem, o.Name)}
}

func (p *InMemoryProvider) NewGauge(o metrics.GaugeOpts) metrics.Gauge {
	return &gauge{p: p, name: fqname(o.Namespace, o.Subsystem, o.Name)}
}

func (p *InMemoryProvider) NewHistogram(o metrics.HistogramOpts) metrics.Histogram {
	return &histogram{p: p, name: fqname(o.Namespace, o.Subsystem, o.Name)}
}

// Value returns the value of a counter or gauge, or the number of observations of a histogram.
// Labels are name/value pairs and must be passed in the order they were applied.
func (p *InMemoryProvider) Value(name string, labels ...string) float64 {
	p.lock.Lock()
	defer p.lock.Unlock()
	v, ok := p.values[key(name, labels)]
	if !ok {
		return 0
	}
	if v.n > 0 {
		return float64(v.n)
	}
	return v.v
}

// Sum returns the sum of the observations of a histogram
func (p *InMemoryProvider) Sum(name string, labels ...string) float64 {
	p.lock.Lock()
	defer p.lock.Unlock()
	v, ok := p.values[key(name, labels)]
	if !ok {
		return 0
	}
	return v.v
}

func (p *InMemoryProvider) do(name string, labels []string, f func(v *entry)) {
	p.lock.Lock()
	defer p.lock.Unlock()
	k := key(name, labels)
	v, ok := p.values[k]
	if !ok {
		v = &entry{min: math.MaxFloat64, max: -math.MaxFloat64}
		p.values[k] = v
	}
	f(v)
}

func key(name string, labels []string) string {
	return name + "{" + strings.Join(labels, ",") + "}"
}

type entry struct {
	v        float64
	min, max float64
	n        uint64
}

type counter struct {
	p      *InMemoryProvider
	name   string
	labels []string
}

func (c *counter) With(labelValues ...string) metrics.Counter {
	return &counter{p: c.p, name: c.name, labels: append(append([]string{}, c.labels...), labelValues...)}
}

func (c *counter) Add(delta float64) { c.p.do(c.name, c.labels, func(v *entry) { v.v += delta }) }

type gauge struct {
	p      *InMemoryProvider
	name   string
	labels []string
}

func (g *gauge) With(labelValues ...string) metrics.Gauge {
	return &gauge{p: g.p, name: g.name, labels: append(append([]string{}, g.labels...), labelValues...)}
}

func (g *gauge) Add(delta float64) { g.p.do(g.name, g.labels, func(v *entry) { v.v += delta }) }
func (g *gauge) Set(value float64) { g.p.do(g.name, g.labels, func(v *entry) { v.v = value }) }

type histogram struct {
	p      *InMemoryProvider
	name   string
	labels []string
}

func (h *histogram) With(labelValues ...string) metrics.Histogram {
	return &histogram{p: h.p, name: h.name, labels: append(append([]string{}, h.labels...), labelValues...)}
}

func (h *histogram) Observe(value float64) {
	h.p.do(h.name, h.labels, func(v *entry) {
		v.min = min(value, v.min)
		v.max = max(value, v.max)
		v.v += value
		v.n++
	})
}
