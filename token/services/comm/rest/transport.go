/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anixon604/bootcamp-cordapp/token/services/comm"
	"github.com/anixon604/bootcamp-cordapp/token/services/logging"
	"github.com/anixon604/bootcamp-cordapp/token/services/view"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// MessagesPath is where nodes accept session messages
const MessagesPath = "/v1/comm/messages"

const (
	headerContentType = "Content-Type"
	applicationJSON   = "application/json"
	defaultTimeout    = 30 * time.Second
)

var logger = logging.MustGetLogger("token-sdk.comm.rest")

// AddressResolver returns the base URL of the node of the passed party
type AddressResolver interface {
	Address(id view.Identity) (string, error)
}

// AddressBook is a static AddressResolver
type AddressBook map[view.Identity]string

func (a AddressBook) Address(id view.Identity) (string, error) {
	addr, ok := a[id]
	if !ok || len(addr) == 0 {
		return "", errors.Wrapf(comm.ErrUnreachable, "no address for [%s]", id)
	}
	return addr, nil
}

// Transport posts session messages to the remote node's HTTP endpoint.
// Send returns once the remote node has accepted the message, this keeps per-session ordering.
type Transport struct {
	resolver   AddressResolver
	httpClient *http.Client
}

func NewTransport(resolver AddressResolver, httpClient *http.Client) *Transport {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Transport{resolver: resolver, httpClient: httpClient}
}

func (t *Transport) Send(ctx context.Context, msg *view.Message) error {
	addr, err := t.resolver.Address(msg.ToEndpoint)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed marshalling message")
	}
	url := fmt.Sprintf("%s%s", normalize(addr), MessagesPath)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return errors.Wrapf(err, "failed creating request to [%s]", url)
	}
	request.Header.Set(headerContentType, applicationJSON)

	response, err := t.httpClient.Do(request)
	if err != nil {
		return errors.Wrapf(comm.ErrUnreachable, "failed posting to [%s]: %s", url, err)
	}
	defer response.Body.Close()
	if response.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(response.Body)
		return errors.Errorf("message rejected by [%s] with status [%d]: %s", msg.ToEndpoint, response.StatusCode, string(body))
	}
	return nil
}

func normalize(addr string) string {
	addr = strings.TrimSuffix(addr, "/")
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return addr
}

// Handler delivers posted session messages to the hub
func Handler(hub *comm.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		msg := &view.Message{}
		if err := c.ShouldBindJSON(msg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := hub.Deliver(c.Request.Context(), msg); err != nil {
			logger.Warnf("failed delivering message for session [%s] from [%s]: %s", msg.SessionID, msg.FromEndpoint, err)
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusAccepted)
	}
}
