package main

import (
	"errors"
	"fmt"

	"credit-service/internal/biz"

	"github.com/spf13/cobra"
)

var errLedgerDrift = errors.New("ledger drift detected")

func newAuditCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "audit [account-id]",
		Short: "Replay the ledger and compare it with stored balances",
		Long:  "Without an account id every account is audited. Exits non-zero when any account drifts.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			var drifted []*biz.AuditReport
			if len(args) == 1 {
				rep, err := get().audit.VerifyAccount(ctx, args[0])
				if err != nil {
					return err
				}
				if !rep.Consistent {
					drifted = append(drifted, rep)
				} else {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: consistent, %d entries, balance %d\n", rep.AccountID, rep.Entries, rep.Balance)
				}
			} else {
				reps, err := get().audit.VerifyAll(ctx)
				if err != nil {
					return err
				}
				drifted = reps
			}

			for _, r := range drifted {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: balance %d, replayed %d, first mismatch %q\n",
					r.AccountID, r.Balance, r.ReplayedBalance, r.FirstMismatch)
			}
			if len(drifted) > 0 {
				return fmt.Errorf("%w: %d account(s)", errLedgerDrift, len(drifted))
			}
			if len(args) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "all accounts consistent")
			}
			return nil
		},
	}
}
