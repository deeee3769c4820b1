package main

import (
	"context"
	"os"
	"time"

	"credit-service/internal/biz"
	"credit-service/internal/conf"
	"credit-service/internal/data"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfigPath = "configs/config.yaml"

// ledgerOps is the slice of CreditUseCase the CLI drives.
type ledgerOps interface {
	CreateAccount(ctx context.Context, accountID, email string) (*biz.Account, error)
	GetAccount(ctx context.Context, accountID string) (*biz.Account, error)
	ListTransactions(ctx context.Context, accountID string, page, pageSize int) ([]*biz.Transaction, int64, error)
	Grant(ctx context.Context, accountID string, amount int64, kind biz.TransactionKind, note string) (*biz.LedgerResult, error)
	AdjustBalance(ctx context.Context, accountID string, target int64, note string) (*biz.LedgerResult, error)
	PromoteToAdmin(ctx context.Context, accountID, reason string) (*biz.Account, error)
	RevokeAdmin(ctx context.Context, accountID, reason string) (*biz.Account, error)
}

type auditOps interface {
	VerifyAccount(ctx context.Context, accountID string) (*biz.AuditReport, error)
	VerifyAll(ctx context.Context) ([]*biz.AuditReport, error)
}

type app struct {
	ledger ledgerOps
	audit  auditOps
}

type opener func(configPath string) (*app, func(), error)

// newRootCmd returns the command tree and a func releasing whatever the
// last run opened. cobra skips post-run hooks when RunE fails, so the
// caller closes after Execute.
func newRootCmd(open opener) (*cobra.Command, func()) {
	v := viper.New()
	v.SetEnvPrefix("CREDITCTL")
	_ = v.BindEnv("conf")

	var (
		a       *app
		cleanup = func() {}
	)
	rootCmd := &cobra.Command{
		Use:           "creditctl",
		Short:         "Operate the credit ledger: accounts, admin rights, grants and audits",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opened, done, err := open(v.GetString("conf"))
			if err != nil {
				return err
			}
			a, cleanup = opened, done
			return nil
		},
	}
	rootCmd.PersistentFlags().String("conf", defaultConfigPath, "config file (env CREDITCTL_CONF)")
	_ = v.BindPFlag("conf", rootCmd.PersistentFlags().Lookup("conf"))

	get := func() *app { return a }
	rootCmd.AddCommand(
		newAccountCmd(get),
		newAdminCmd(get),
		newCreditsCmd(get),
		newAuditCmd(get),
	)
	return rootCmd, func() {
		cleanup()
		cleanup = func() {}
	}
}

// openApp connects to the same MySQL and Redis as the server, so every
// change goes through the account lock.
func openApp(configPath string) (*app, func(), error) {
	c := config.New(config.WithSource(file.NewSource(configPath)))
	if err := c.Load(); err != nil {
		return nil, nil, err
	}
	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		c.Close()
		return nil, nil, err
	}
	// no broker from the CLI
	if bc.Data != nil {
		bc.Data.Rocketmq = nil
	}

	logger := log.NewFilter(log.With(log.NewStdLogger(os.Stderr),
		"ts", log.DefaultTimestamp,
		"service.name", "creditctl",
	), log.FilterLevel(log.LevelWarn))

	db, err := data.NewDB(&bc)
	if err != nil {
		c.Close()
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	rdb, err := data.NewRedis(&bc)
	if err != nil {
		closeDB()
		c.Close()
		return nil, nil, err
	}
	d, cleanup, err := data.NewData(&bc, logger, db, rdb)
	if err != nil {
		rdb.Close()
		closeDB()
		c.Close()
		return nil, nil, err
	}
	ledger := data.NewLedgerRepo(d, data.NewRedsync(&bc, rdb), &bc, logger)
	creditConfig := biz.NewCreditConfig(&bc)
	credit := biz.NewCreditUseCase(ledger, biz.NewEntitlementResolver(creditConfig), logger)

	return &app{
			ledger: credit,
			audit:  biz.NewAuditUseCase(ledger, logger),
		}, func() {
			cleanup()
			c.Close()
		}, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, time.Minute)
}
