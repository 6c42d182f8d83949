/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"github.com/anixon604/bootcamp-cordapp/token/services/metrics"
)

var (
	issuedTransactions = metrics.CounterOpts{
		Namespace:    "ttx",
		Name:         "issued_transactions",
		Help:         "The number of issuances started by this node, by outcome.",
		LabelNames:   []string{"outcome"},
		StatsdFormat: metrics.StatsdFormat("outcome"),
	}
	endorsedTransactions = metrics.CounterOpts{
		Namespace:    "ttx",
		Name:         "endorsed_transactions",
		Help:         "The number of transactions endorsed by this node as responder.",
		StatsdFormat: metrics.StatsdFormat(),
	}
	refusedTransactions = metrics.CounterOpts{
		Namespace:    "ttx",
		Name:         "refused_transactions",
		Help:         "The number of proposals refused by this node as responder, by reason.",
		LabelNames:   []string{"reason"},
		StatsdFormat: metrics.StatsdFormat("reason"),
	}
	acceptedTransactions = metrics.CounterOpts{
		Namespace:    "ttx",
		Name:         "accepted_transactions",
		Help:         "The number of notarised transactions recorded by this node as responder.",
		StatsdFormat: metrics.StatsdFormat(),
	}
	issueDuration = metrics.HistogramOpts{
		Namespace:    "ttx",
		Name:         "issue_duration_seconds",
		Help:         "The duration of the issuances started by this node.",
		Buckets:      []float64{.01, .05, .1, .5, 1, 5, 10, 30},
		StatsdFormat: metrics.StatsdFormat(),
	}
)

type Metrics struct {
	IssuedTransactions   metrics.Counter
	EndorsedTransactions metrics.Counter
	RefusedTransactions  metrics.Counter
	AcceptedTransactions metrics.Counter
	IssueDuration        metrics.Histogram
}

func NewMetrics(p metrics.Provider) *Metrics {
	return &Metrics{
		IssuedTransactions:   p.NewCounter(issuedTransactions),
		EndorsedTransactions: p.NewCounter(endorsedTransactions),
		RefusedTransactions:  p.NewCounter(refusedTransactions),
		AcceptedTransactions: p.NewCounter(acceptedTransactions),
		IssueDuration:        p.NewHistogram(issueDuration),
	}
}
