/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"os"

	"github.com/anixon604/bootcamp-cordapp/cmd/bootcamp/cobra/config"
	"github.com/anixon604/bootcamp-cordapp/cmd/bootcamp/cobra/issue"
	"github.com/anixon604/bootcamp-cordapp/cmd/bootcamp/cobra/node"
	"github.com/anixon604/bootcamp-cordapp/cmd/bootcamp/cobra/simulate"
	"github.com/anixon604/bootcamp-cordapp/cmd/bootcamp/cobra/tokens"
	"github.com/anixon604/bootcamp-cordapp/cmd/bootcamp/cobra/version"
	"github.com/spf13/cobra"
)

// The main command describes the service and
// defaults to printing the help message.
var mainCmd = &cobra.Command{Use: version.ProgramName}

func main() {
	mainFlags := mainCmd.PersistentFlags()
	mainFlags.StringP(config.FlagName, "c", "", "path of the configuration file, the environment alone is used if empty")

	mainCmd.AddCommand(version.Cmd())
	mainCmd.AddCommand(node.Cmd())
	mainCmd.AddCommand(config.Cmd())
	mainCmd.AddCommand(issue.Cmd())
	mainCmd.AddCommand(tokens.Cmd())
	mainCmd.AddCommand(simulate.Cmd())

	// On failure Cobra prints the usage message and error string, so we only
	// need to exit with a non-0 status
	if mainCmd.Execute() != nil {
		os.Exit(1)
	}
}
