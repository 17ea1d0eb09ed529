package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/equityline/caseenrich/internal/equity"
	"github.com/equityline/caseenrich/internal/storage"
	"github.com/equityline/caseenrich/internal/store"
)

var equityCmd = &cobra.Command{
	Use:   "equity",
	Short: "Match enriched cases against county parcel datasets",
	Long:  "Joins each enriched case's property and tax rows against the county's parcel export, derives assessed value and equity tier, and routes unmatched cases to manual review.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := applySecrets(ctx, "DATABASE_URL",
			"STORAGE_ACCESS_KEY", "STORAGE_SECRET_KEY"); err != nil {
			return err
		}

		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL,
			&store.PoolConfig{Schema: cfg.Store.Schema})
		if err != nil {
			return eris.Wrap(err, "connect database")
		}
		defer func() { _ = st.Close() }()

		datasets, err := storage.New(storage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Equity.DatasetBucket,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			return err
		}

		matcher := equity.NewMatcher(st, equity.NewLoader(datasets, cfg.Equity.CacheDir))
		stats, err := matcher.Run(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("equity matching complete",
			zap.Int("matched", stats.Matched),
			zap.Int("unmatched", stats.Unmatched),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(equityCmd)
}
