package main

import (
	"context"
	"fmt"

	"credit-service/internal/biz"

	"github.com/spf13/cobra"
)

func newAdminCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Grant or revoke unlimited usage",
	}
	cmd.AddCommand(
		newAdminSetCmd(get, "promote", "Give an account admin rights", func(a *app) adminFunc { return a.ledger.PromoteToAdmin }),
		newAdminSetCmd(get, "revoke", "Remove admin rights", func(a *app) adminFunc { return a.ledger.RevokeAdmin }),
	)
	return cmd
}

type adminFunc func(ctx context.Context, accountID, reason string) (*biz.Account, error)

func newAdminSetCmd(get func() *app, use, short string, pick func(*app) adminFunc) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   use + " <account-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			acc, err := pick(get())(ctx, args[0], reason)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: admin=%t reason=%q\n", acc.AccountID, acc.IsAdmin, acc.AdminReason)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why the change is made (recorded on the account)")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}
