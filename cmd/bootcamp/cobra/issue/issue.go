/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issue

import (
	"fmt"
	"net/http"
	"time"

	"github.com/anixon604/bootcamp-cordapp/token/sdk/rest"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	node    string
	owner   string
	amount  int64
	timeout time.Duration
)

// Cmd returns the Cobra Command for issuance
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue tokens to a counterparty.",
		Long: `Asks the node at --node to issue --amount tokens to --owner.
The node runs the issuance protocol with the owner and the notary and returns once the transaction is final.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(owner) == 0 {
				return errors.New("the owner must be set")
			}
			cmd.SilenceUsage = true
			return Issue(cmd, rest.NewClient(node, &http.Client{Timeout: timeout}))
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&node, "node", "n", "127.0.0.1:8080", "address of the issuing node")
	flags.StringVarP(&owner, "owner", "o", "", "name of the party receiving the tokens")
	flags.Int64VarP(&amount, "amount", "a", 0, "number of tokens to issue")
	flags.DurationVar(&timeout, "timeout", 2*time.Minute, "how long to wait for the issuance to complete")
	return cmd
}

// Issue runs the issuance against the passed client and prints the outcome
func Issue(cmd *cobra.Command, client *rest.Client) error {
	res, err := client.Issue(cmd.Context(), token.Identity(owner), amount)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "issued [%d] tokens to [%s] in transaction [%s], notarised at [%d]\n", amount, owner, res.TxID, res.Order)
	return err
}
