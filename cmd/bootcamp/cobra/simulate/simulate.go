/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package simulate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/anixon604/bootcamp-cordapp/token/sdk"
	"github.com/anixon604/bootcamp-cordapp/token/services/logging"
	"github.com/anixon604/bootcamp-cordapp/token/services/metrics"
	"github.com/anixon604/bootcamp-cordapp/token/services/ttx"
	"github.com/anixon604/bootcamp-cordapp/token/token"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
)

var logger = logging.MustGetLogger("bootcamp.simulate")

// Params of a simulation
type Params struct {
	Nodes       int
	Issuances   int
	Concurrency int
	MaxAmount   int64
	// ZeroRatio is the share of issuances attempted with amount zero
	ZeroRatio float64
	Dir       string
}

// Result counts the issuances by outcome
type Result struct {
	Outcomes map[string]int
	Issued   int64
	Elapsed  time.Duration
}

var params = Params{}

// Cmd returns the Cobra Command to simulate a network
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run issuances between in-process nodes.",
		Long: `Starts a network of in-process nodes, the first one running the notary,
runs random issuances between them and prints how many ended in each outcome.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if len(params.Dir) == 0 {
				dir, err := os.MkdirTemp("", "bootcamp-simulate")
				if err != nil {
					return err
				}
				defer os.RemoveAll(dir)
				params.Dir = dir
			}
			res, err := Run(cmd.Context(), params)
			if err != nil {
				return err
			}
			return Print(cmd, res)
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&params.Nodes, "nodes", 3, "number of nodes")
	flags.IntVar(&params.Issuances, "issuances", 20, "number of issuances")
	flags.IntVar(&params.Concurrency, "concurrency", 4, "number of issuances running at the same time")
	flags.Int64Var(&params.MaxAmount, "max-amount", 100, "largest amount issued")
	flags.Float64Var(&params.ZeroRatio, "zero-ratio", 0.1, "share of issuances attempted with amount zero")
	flags.StringVar(&params.Dir, "dir", "", "directory holding the node databases, a temporary one if empty")
	return cmd
}

// Run starts the network, runs the issuances and stops the network
func Run(ctx context.Context, p Params) (*Result, error) {
	if p.Nodes < 2 {
		return nil, errors.Errorf("at least two nodes are needed, got [%d]", p.Nodes)
	}
	if p.Concurrency <= 0 || p.MaxAmount <= 0 {
		return nil, errors.New("concurrency and max amount must be positive")
	}
	names := make([]token.Identity, p.Nodes)
	for i := range names {
		names[i] = token.Identity(fmt.Sprintf("node%d", i))
	}
	provider := metrics.NewInMemoryProvider()
	network, err := sdk.NewLocalNetwork(ctx, p.Dir, names, sdk.WithMetricsProvider(provider))
	if err != nil {
		return nil, errors.WithMessage(err, "failed starting network")
	}
	defer func() {
		if err := network.Close(); err != nil {
			logger.Warnf("failed closing network: %s", err)
		}
	}()

	start := time.Now()
	wp := pool.New().WithErrors().WithMaxGoroutines(p.Concurrency)
	for i := 0; i < p.Issuances; i++ {
		issuer := rand.IntN(p.Nodes)
		owner := (issuer + 1 + rand.IntN(p.Nodes-1)) % p.Nodes
		amount := 1 + rand.Int64N(p.MaxAmount)
		if rand.Float64() < p.ZeroRatio {
			amount = 0
		}
		wp.Go(func() error {
			_, err := network.Node(names[issuer]).IssueToken(ctx, names[owner], amount)
			if _, ok := ttx.ReasonOf(err); ok || err == nil {
				return nil
			}
			return errors.WithMessagef(err, "issuance from [%s] to [%s] failed", names[issuer], names[owner])
		})
	}
	if err := wp.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Outcomes: map[string]int{}, Elapsed: time.Since(start)}
	for _, outcome := range []string{
		"finalized",
		string(ttx.ContractViolation),
		string(ttx.ProtocolRefusal),
		string(ttx.ChannelFailure),
		string(ttx.ConsensusRejected),
		string(ttx.Timeout),
		"error",
	} {
		if v := provider.Value("ttx_issued_transactions", "outcome", outcome); v > 0 {
			res.Outcomes[outcome] = int(v)
		}
	}
	for _, node := range network.Nodes() {
		states, err := node.Tokens(ctx, nil)
		if err != nil {
			return nil, err
		}
		for _, s := range states {
			if ts, ok := s.State.(*token.TokenState); ok && ts.Issuer.Equal(node.Identity()) {
				res.Issued += ts.Amount
			}
		}
	}
	return res, nil
}

// Print writes the outcome counts
func Print(cmd *cobra.Command, res *Result) error {
	outcomes := make([]string, 0, len(res.Outcomes))
	for o := range res.Outcomes {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OUTCOME\tISSUANCES")
	for _, o := range outcomes {
		fmt.Fprintf(w, "%s\t%d\n", o, res.Outcomes[o])
	}
	fmt.Fprintf(w, "tokens issued\t%d\n", res.Issued)
	fmt.Fprintf(w, "elapsed\t%s\n", res.Elapsed.Round(time.Millisecond))
	return w.Flush()
}
