/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"time"

	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
)

const (
	DefaultSessionTimeout  = 30 * time.Second
	DefaultFinalityTimeout = time.Minute
)

// Options bound the waits of the issuance protocol
type Options struct {
	// SessionTimeout bounds each wait for a counterparty message
	SessionTimeout time.Duration
	// FinalityTimeout bounds the wait for the notary, and the responder's wait for the finality notice
	FinalityTimeout time.Duration
	// CheckTransaction is run by the responder after the contract and role checks, a non-nil error refuses
	CheckTransaction func(tx *token.Transaction) error
}

type Option func(*Options) error

// CompileOpts applies the passed options on top of the defaults
func CompileOpts(opts ...Option) (*Options, error) {
	o := &Options{
		SessionTimeout:  DefaultSessionTimeout,
		FinalityTimeout: DefaultFinalityTimeout,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errors.Wrap(ErrFailedCompilingOptions, err.Error())
		}
	}
	return o, nil
}

func WithSessionTimeout(d time.Duration) Option {
	return func(o *Options) error {
		if d <= 0 {
			return errors.Errorf("session timeout must be positive, got [%s]", d)
		}
		o.SessionTimeout = d
		return nil
	}
}

func WithFinalityTimeout(d time.Duration) Option {
	return func(o *Options) error {
		if d <= 0 {
			return errors.Errorf("finality timeout must be positive, got [%s]", d)
		}
		o.FinalityTimeout = d
		return nil
	}
}

// WithCheckTransaction installs an application check run by the responder before endorsing
func WithCheckTransaction(check func(tx *token.Transaction) error) Option {
	return func(o *Options) error {
		o.CheckTransaction = check
		return nil
	}
}
