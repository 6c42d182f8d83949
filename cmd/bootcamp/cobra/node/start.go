/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package node

import (
	"context"
	"os"
	"syscall"

	"github.com/anixon604/bootcamp-cordapp/cmd/bootcamp/cobra/config"
	"github.com/anixon604/bootcamp-cordapp/token/sdk"
	"github.com/anixon604/bootcamp-cordapp/token/sdk/rest"
	"github.com/anixon604/bootcamp-cordapp/token/services/logging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tedsuo/ifrit"
	"github.com/tedsuo/ifrit/grouper"
	"github.com/tedsuo/ifrit/sigmon"
)

var logger = logging.MustGetLogger("bootcamp.node")

// Cmd returns the Cobra Command for the node
func Cmd() *cobra.Command {
	nodeCmd := &cobra.Command{
		Use:   "node",
		Short: "Run a node.",
	}
	nodeCmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start the node.",
		Long:  `Starts the node and serves its API, the session endpoint, and the notary endpoint if the node runs the notary, until interrupted.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return start(cmd)
		},
	})
	return nodeCmd
}

func start(cmd *cobra.Command) error {
	c, err := config.Load(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	node, err := sdk.NewNode(ctx, c)
	if err != nil {
		return err
	}
	defer func() {
		if err := node.Close(); err != nil {
			logger.Errorf("failed closing node: %s", err)
		}
	}()

	members := grouper.Members{
		{Name: "api", Runner: rest.NewRunner(c.Node.ListenAddress, node)},
	}
	process := ifrit.Invoke(sigmon.New(grouper.NewOrdered(os.Interrupt, members), syscall.SIGTERM))
	logger.Infof("node [%s] listening on [%s]", c.Node.Name, c.Node.ListenAddress)

	if err := <-process.Wait(); err != nil {
		return errors.WithMessage(err, "node stopped")
	}
	logger.Infof("node [%s] stopped", c.Node.Name)
	return nil
}
