/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
)

const defaultClientTimeout = 2 * time.Minute

// Client calls the API of a node
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
	return &Client{url: address, httpClient: httpClient}
}

// Issue asks the node to issue amount tokens to owner
func (c *Client) Issue(ctx context.Context, owner token.Identity, amount int64) (*IssueResponse, error) {
	raw, err := json.Marshal(&IssueRequest{Owner: owner, Amount: amount})
	if err != nil {
		return nil, err
	}
	res := &IssueResponse{}
	if err := c.do(ctx, http.MethodPost, IssuePath, raw, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Tokens lists the unconsumed tokens of the node, all of them if owner is empty
func (c *Client) Tokens(ctx context.Context, owner token.Identity) ([]*Token, error) {
	path := TokensPath
	if !owner.IsNone() {
		path += "?owner=" + url.QueryEscape(string(owner))
	}
	var res []*Token
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// APIError is returned when the node answers with an error status
type APIError struct {
	StatusCode int
	ErrorResponse
}

func (e *APIError) Error() string {
	if len(e.Reason) != 0 {
		return "[" + e.Reason + "] " + e.ErrorResponse.Error
	}
	return e.ErrorResponse.Error
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, c.url+path, reader)
	if err != nil {
		return errors.Wrapf(err, "failed creating request to [%s]", c.url)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return errors.Wrapf(err, "failed calling [%s%s]", c.url, path)
	}
	defer response.Body.Close()
	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return errors.Wrap(err, "failed reading response")
	}
	if response.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: response.StatusCode}
		if err := json.Unmarshal(raw, &apiErr.ErrorResponse); err != nil || len(apiErr.ErrorResponse.Error) == 0 {
			apiErr.ErrorResponse.Error = http.StatusText(response.StatusCode)
		}
		return apiErr
	}
	return errors.Wrap(json.Unmarshal(raw, out), "failed decoding response")
}
