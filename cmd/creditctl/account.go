package main

import (
	"encoding/json"
	"fmt"
	"time"

	"credit-service/internal/biz"

	"github.com/spf13/cobra"
)

func newAccountCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Inspect and create accounts",
	}
	cmd.AddCommand(
		newAccountShowCmd(get),
		newAccountCreateCmd(get),
		newAccountHistoryCmd(get),
	)
	return cmd
}

func newAccountShowCmd(get func() *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <account-id>",
		Short: "Show balance, tier and admin state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			acc, err := get().ledger.GetAccount(ctx, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(acc)
			}
			printAccount(cmd, acc)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newAccountCreateCmd(get func() *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "create <account-id>",
		Short: "Open an account with the free allowance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			acc, err := get().ledger.CreateAccount(ctx, args[0], email)
			if err != nil {
				return err
			}
			printAccount(cmd, acc)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "contact email")
	return cmd
}

func newAccountHistoryCmd(get func() *app) *cobra.Command {
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "history <account-id>",
		Short: "List ledger entries, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			txns, total, err := get().ledger.ListTransactions(ctx, args[0], page, pageSize)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "entries: %d\n", total)
			for _, t := range txns {
				_, _ = fmt.Fprintf(out, "%s\t%s\t%+d\t%d\t%s\t%s\n",
					t.CreatedAt.UTC().Format(time.RFC3339), t.Kind, t.Amount, t.BalanceAfter, t.ActionTag, t.Note)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "entries per page")
	return cmd
}

func printAccount(cmd *cobra.Command, acc *biz.Account) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "account: %s\n", acc.AccountID)
	_, _ = fmt.Fprintf(out, "balance: %d\n", acc.Balance)
	_, _ = fmt.Fprintf(out, "tier: %s (%s)\n", acc.Tier, acc.TierStatus)
	if acc.PeriodEnd != nil {
		_, _ = fmt.Fprintf(out, "period end: %s\n", acc.PeriodEnd.UTC().Format(time.RFC3339))
	}
	if acc.IsAdmin {
		_, _ = fmt.Fprintf(out, "admin: yes (%s)\n", acc.AdminReason)
	} else {
		_, _ = fmt.Fprintln(out, "admin: no")
	}
}
