/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issue

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/anixon604/bootcamp-cordapp/cmd/bootcamp/cobra/tokens"
	"github.com/anixon604/bootcamp-cordapp/token/sdk"
	"github.com/anixon604/bootcamp-cordapp/token/sdk/rest"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice token.Identity = "O=Alice,L=London,C=GB"
	bob   token.Identity = "O=Bob,L=New York,C=US"
)

func TestIssueAndList(t *testing.T) {
	n, err := sdk.NewLocalNetwork(context.Background(), t.TempDir(), []token.Identity{alice, bob})
	require.NoError(t, err)
	defer func() { assert.NoError(t, n.Close()) }()
	server := httptest.NewServer(rest.NewHandler(n.Node(alice)))
	defer server.Close()
	client := rest.NewClient(server.URL, server.Client())

	cmd := Cmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetContext(context.Background())
	owner, amount = string(bob), 42
	require.NoError(t, Issue(cmd, client))
	assert.Contains(t, out.String(), "issued [42] tokens to [O=Bob,L=New York,C=US]")
	assert.Contains(t, out.String(), "notarised at [1]")

	list := tokens.Cmd()
	out.Reset()
	list.SetOut(out)
	list.SetContext(context.Background())
	require.NoError(t, tokens.List(list, client))
	assert.Contains(t, out.String(), "O=Bob,L=New York,C=US")
	assert.Regexp(t, `total\s+42`, out.String())
}

func TestIssueRejected(t *testing.T) {
	n, err := sdk.NewLocalNetwork(context.Background(), t.TempDir(), []token.Identity{alice, bob})
	require.NoError(t, err)
	defer func() { assert.NoError(t, n.Close()) }()
	server := httptest.NewServer(rest.NewHandler(n.Node(alice)))
	defer server.Close()

	cmd := Cmd()
	cmd.SetContext(context.Background())
	owner, amount = string(bob), 0
	err = Issue(cmd, rest.NewClient(server.URL, server.Client()))
	var apiErr *rest.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 422, apiErr.StatusCode)
	assert.Equal(t, "ContractViolation", apiErr.Reason)
}
