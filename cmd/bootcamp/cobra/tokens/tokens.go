/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tokens

import (
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/anixon604/bootcamp-cordapp/token/sdk/rest"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/spf13/cobra"
)

var (
	node  string
	owner string
)

// Cmd returns the Cobra Command to list the tokens of a node
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "List the unconsumed tokens recorded by a node.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return List(cmd, rest.NewClient(node, &http.Client{Timeout: 30 * time.Second}))
		},
	}
	cmd.Flags().StringVarP(&node, "node", "n", "127.0.0.1:8080", "address of the node")
	cmd.Flags().StringVarP(&owner, "owner", "o", "", "only list the tokens of this owner")
	return cmd
}

// List prints the tokens returned by the passed client, one per line
func List(cmd *cobra.Command, client *rest.Client) error {
	res, err := client.Tokens(cmd.Context(), token.Identity(owner))
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TX\tINDEX\tISSUER\tOWNER\tAMOUNT")
	var total int64
	for _, t := range res {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d\n", t.TxID, t.Index, t.Issuer, t.Owner, t.Amount)
		total += t.Amount
	}
	fmt.Fprintf(w, "\t\t\ttotal\t%d\n", total)
	return w.Flush()
}
