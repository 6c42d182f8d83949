/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notary

import (
	"github.com/anixon604/bootcamp-cordapp/token/services/metrics"
)

var (
	certifications = metrics.CounterOpts{
		Namespace:    "notary",
		Name:         "certifications",
		Help:         "The number of certification requests, by outcome.",
		LabelNames:   []string{"outcome"},
		StatsdFormat: metrics.StatsdFormat("outcome"),
	}
	certifyDuration = metrics.HistogramOpts{
		Namespace:    "notary",
		Name:         "certify_duration_seconds",
		Help:         "The time spent certifying a transaction.",
		Buckets:      []float64{.001, .005, .01, .05, .1, .5, 1},
		StatsdFormat: metrics.StatsdFormat(),
	}
)

type Metrics struct {
	Certifications  metrics.Counter
	CertifyDuration metrics.Histogram
}

func NewMetrics(p metrics.Provider) *Metrics {
	return &Metrics{
		Certifications:  p.NewCounter(certifications),
		CertifyDuration: p.NewHistogram(certifyDuration),
	}
}
