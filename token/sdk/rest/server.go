/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/anixon604/bootcamp-cordapp/token/services/comm"
	commrest "github.com/anixon604/bootcamp-cordapp/token/services/comm/rest"
	"github.com/anixon604/bootcamp-cordapp/token/services/logging"
	"github.com/anixon604/bootcamp-cordapp/token/services/notary"
	"github.com/anixon604/bootcamp-cordapp/token/services/storage"
	"github.com/anixon604/bootcamp-cordapp/token/services/storage/vaultdb"
	"github.com/anixon604/bootcamp-cordapp/token/services/ttx"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tedsuo/ifrit"
	"github.com/tedsuo/ifrit/http_server"
	"go.uber.org/zap/zapcore"
)

const (
	IssuePath        = "/v1/tokens/issue"
	TokensPath       = "/v1/tokens"
	TransactionsPath = "/v1/transactions"
	MetricsPath      = "/metrics"
	HealthPath       = "/healthz"
)

var logger = logging.MustGetLogger("token-sdk.rest")

// Node is the node served by the API
type Node interface {
	Identity() token.Identity
	IssueToken(ctx context.Context, owner token.Identity, amount int64) (*token.FinalTransaction, error)
	Tokens(ctx context.Context, owner *token.Identity) ([]*token.StateAndRef, error)
	QueryTokens(ctx context.Context, key, value string) ([]*token.StateAndRef, error)
	Transaction(ctx context.Context, txID string) (*token.FinalTransaction, error)
	Transactions(ctx context.Context) ([]*token.FinalTransaction, error)
	Status(ctx context.Context, txID string) (storage.TxStatus, error)
	Hub() *comm.Hub
	Notary() *notary.Notary
}

type IssueRequest struct {
	Owner  token.Identity `json:"owner" binding:"required"`
	Amount int64          `json:"amount"`
}

type IssueResponse struct {
	TxID        string                  `json:"tx_id"`
	Order       uint64                  `json:"order"`
	Transaction *token.FinalTransaction `json:"transaction"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// Token is the API view of an unconsumed token state
type Token struct {
	TxID   string         `json:"tx_id"`
	Index  uint32         `json:"index"`
	Issuer token.Identity `json:"issuer"`
	Owner  token.Identity `json:"owner"`
	Amount int64          `json:"amount"`
}

type TransactionResponse struct {
	Status      string                  `json:"status"`
	Transaction *token.FinalTransaction `json:"transaction"`
}

// NewHandler returns the HTTP API of the node.
// Session messages from the other nodes are accepted on the same handler, and certification requests if the node runs the notary.
func NewHandler(node Node) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), logRequests())

	r.GET(HealthPath, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET(MetricsPath, gin.WrapH(promhttp.Handler()))
	r.POST(IssuePath, issue(node))
	r.GET(TokensPath, tokens(node))
	r.GET(TransactionsPath, transactions(node))
	r.GET(TransactionsPath+"/:id", transaction(node))
	r.GET(TransactionsPath+"/:id/status", status(node))
	r.POST(commrest.MessagesPath, commrest.Handler(node.Hub()))
	if n := node.Notary(); n != nil {
		r.POST(notary.CertifyPath, notary.Handler(n))
	}
	return r
}

// NewRunner serves the API of the node on address until signalled
func NewRunner(address string, node Node) ifrit.Runner {
	return http_server.New(address, NewHandler(node))
}

func logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if logger.IsEnabledFor(zapcore.DebugLevel) {
			logger.Debugf("%s %s -> %d in %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
		}
	}
}

func issue(node Node) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := &IssueRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			c.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
			return
		}
		ft, err := node.IssueToken(c.Request.Context(), req.Owner, req.Amount)
		if err != nil && ft == nil {
			status, reason := issueError(err)
			c.JSON(status, &ErrorResponse{Error: err.Error(), Reason: reason})
			return
		}
		if err != nil {
			// final but not recorded locally
			logger.Errorf("issuance [%s] is final with error: %s", ft.ID(), err)
		}
		c.JSON(http.StatusOK, &IssueResponse{TxID: ft.ID(), Order: ft.Certificate.Order, Transaction: ft})
	}
}

func issueError(err error) (int, string) {
	reason, ok := ttx.ReasonOf(err)
	if !ok {
		if errors.Is(err, ttx.ErrInvalidInput) || errors.Is(err, ttx.ErrFailedCompilingOptions) {
			return http.StatusBadRequest, ""
		}
		return http.StatusInternalServerError, ""
	}
	switch reason {
	case ttx.ContractViolation:
		return http.StatusUnprocessableEntity, string(reason)
	case ttx.ProtocolRefusal, ttx.ConsensusRejected:
		return http.StatusConflict, string(reason)
	case ttx.Timeout:
		return http.StatusGatewayTimeout, string(reason)
	default:
		return http.StatusBadGateway, string(reason)
	}
}

// tokens lists the unconsumed tokens, filtered by owner, or by a JSON field with key and value
func tokens(node Node) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			states []*token.StateAndRef
			err    error
		)
		switch key := c.Query("key"); {
		case len(key) != 0:
			states, err = node.QueryTokens(c.Request.Context(), key, c.Query("value"))
		case len(c.Query("owner")) != 0:
			owner := token.Identity(c.Query("owner"))
			states, err = node.Tokens(c.Request.Context(), &owner)
		default:
			states, err = node.Tokens(c.Request.Context(), nil)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
			return
		}
		res := make([]*Token, 0, len(states))
		for _, s := range states {
			ts, ok := s.State.(*token.TokenState)
			if !ok {
				continue
			}
			res = append(res, &Token{TxID: s.Ref.TxID, Index: s.Ref.Index, Issuer: ts.Issuer, Owner: ts.Owner, Amount: ts.Amount})
		}
		c.JSON(http.StatusOK, res)
	}
}

func transactions(node Node) gin.HandlerFunc {
	return func(c *gin.Context) {
		txs, err := node.Transactions(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, txs)
	}
}

func transaction(node Node) gin.HandlerFunc {
	return func(c *gin.Context) {
		ft, err := node.Transaction(c.Request.Context(), c.Param("id"))
		switch {
		case errors.Is(err, vaultdb.ErrTxNotFound):
			c.JSON(http.StatusNotFound, &ErrorResponse{Error: err.Error()})
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, &TransactionResponse{Status: storage.Confirmed.String(), Transaction: ft})
	}
}

func status(node Node) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := node.Status(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": s.String()})
	}
}
