/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/anixon604/bootcamp-cordapp/cmd/bootcamp/cobra/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nodeConfig = `
node:
  name: O=Alice,L=London,C=GB
persistence:
  dataSource: alice.sqlite
notary:
  name: O=Alice,L=London,C=GB
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "bootcamp"}
	root.PersistentFlags().String(config.FlagName, "", "")
	root.AddCommand(config.Cmd())
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPrint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core.yaml")
	require.NoError(t, os.WriteFile(path, []byte(nodeConfig), 0o600))

	out, err := execute(t, "config", "print", "--config", path, "--validate")
	require.NoError(t, err)
	assert.Contains(t, out, "O=Alice,L=London,C=GB")
	assert.Contains(t, out, "dataSource: alice.sqlite")
	assert.Contains(t, out, "sessionTimeout:")
}

func TestPrintInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core.yaml")
	require.NoError(t, os.WriteFile(path, []byte("node:\n  name: alice\n"), 0o600))

	_, err := execute(t, "config", "print", "--config", path)
	require.NoError(t, err)
	_, err = execute(t, "config", "print", "--config", path, "--validate")
	assert.Error(t, err)
}
