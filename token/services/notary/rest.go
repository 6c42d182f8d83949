/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notary

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// CertifyPath is where a notary node accepts certification requests
const CertifyPath = "/v1/notary/certify"

const defaultClientTimeout = 30 * time.Second

// Handler exposes a Service over HTTP. Rejections are answered with 409 for Conflict and 422 for Invalid.
func Handler(service Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		stx := &token.SignedTransaction{}
		if err := c.ShouldBindJSON(stx); err != nil {
			c.JSON(http.StatusUnprocessableEntity, &RejectionError{Kind: Invalid, Reason: err.Error()})
			return
		}
		cert, err := service.Certify(c.Request.Context(), stx)
		if err != nil {
			var rejection *RejectionError
			if !errors.As(err, &rejection) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			status := http.StatusUnprocessableEntity
			if rejection.Kind == Conflict {
				status = http.StatusConflict
			}
			c.JSON(status, rejection)
			return
		}
		c.JSON(http.StatusOK, cert)
	}
}

// Client reaches a remote notary node
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(address string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultClientTimeout}
	}
	address = strings.TrimSuffix(address, "/")
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "http://" + address
	}
	return &Client{url: address + CertifyPath, httpClient: httpClient}
}

func (c *Client) Certify(ctx context.Context, stx *token.SignedTransaction) (*token.Certificate, error) {
	raw, err := json.Marshal(stx)
	if err != nil {
		return nil, errors.Wrap(err, "failed marshalling transaction")
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "failed creating request to [%s]", c.url)
	}
	request.Header.Set("Content-Type", "application/json")
	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, errors.Wrapf(err, "failed reaching notary at [%s]", c.url)
	}
	defer response.Body.Close()
	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed reading notary response")
	}

	switch response.StatusCode {
	case http.StatusOK:
		cert := &token.Certificate{}
		if err := json.Unmarshal(body, cert); err != nil {
			return nil, errors.Wrap(err, "failed unmarshalling certificate")
		}
		return cert, nil
	case http.StatusConflict, http.StatusUnprocessableEntity:
		rejection := &RejectionError{}
		if err := json.Unmarshal(body, rejection); err != nil {
			return nil, errors.Wrap(err, "failed unmarshalling rejection")
		}
		if response.StatusCode == http.StatusConflict {
			rejection.Kind = Conflict
		} else {
			rejection.Kind = Invalid
		}
		return nil, rejection
	default:
		return nil, errors.Errorf("notary answered with status [%d]: %s", response.StatusCode, string(body))
	}
}
