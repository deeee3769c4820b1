package main

import (
	"fmt"

	"credit-service/internal/biz"

	"github.com/spf13/cobra"
)

func newCreditsCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Add credits or correct a balance",
	}
	cmd.AddCommand(
		newCreditsGrantCmd(get),
		newCreditsAdjustCmd(get),
	)
	return cmd
}

func newCreditsGrantCmd(get func() *app) *cobra.Command {
	var (
		amount int64
		kind   string
		note   string
	)
	cmd := &cobra.Command{
		Use:   "grant <account-id>",
		Short: "Add credits to an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := biz.ParseTransactionKind(kind)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			res, err := get().ledger.Grant(ctx, args[0], amount, k, note)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: balance=%d transaction=%s\n", args[0], res.NewBalance, res.TransactionID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&amount, "amount", 0, "credits to add")
	cmd.Flags().StringVar(&kind, "kind", string(biz.KindBonus), "bonus, refund, purchase or subscription_credit")
	cmd.Flags().StringVar(&note, "note", "", "ledger note")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newCreditsAdjustCmd(get func() *app) *cobra.Command {
	var (
		balance int64
		note    string
	)
	cmd := &cobra.Command{
		Use:   "adjust <account-id>",
		Short: "Set the balance through a compensating entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			res, err := get().ledger.AdjustBalance(ctx, args[0], balance, note)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: balance=%d\n", args[0], res.NewBalance)
			return nil
		},
	}
	cmd.Flags().Int64Var(&balance, "balance", 0, "target balance")
	cmd.Flags().StringVar(&note, "note", "", "why the balance is corrected")
	_ = cmd.MarkFlagRequired("balance")
	_ = cmd.MarkFlagRequired("note")
	return cmd
}
