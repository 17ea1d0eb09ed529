package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/equityline/caseenrich/internal/extract"
	"github.com/equityline/caseenrich/internal/ocr"
	"github.com/equityline/caseenrich/internal/pipeline"
	"github.com/equityline/caseenrich/internal/portal"
	"github.com/equityline/caseenrich/internal/resilience"
	"github.com/equityline/caseenrich/internal/storage"
	"github.com/equityline/caseenrich/internal/store"
	"github.com/equityline/caseenrich/pkg/anthropic"
	"github.com/equityline/caseenrich/pkg/captcha"
)

var enrichLimit int

var enrichCmd = &cobra.Command{
	Use:   "run [case-number...]",
	Short: "Enrich pending cases from the intake table",
	Long:  "Resolves each case on the portal, walks its filings newest-first through text extraction and the model, and records exactly one outcome per case. With explicit case numbers, only those are processed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := applySecrets(ctx, "DATABASE_URL", "CAPTCHA_KEY", "ANTHROPIC_KEY",
			"OCR_KEY", "STORAGE_ACCESS_KEY", "STORAGE_SECRET_KEY"); err != nil {
			return err
		}

		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL,
			&store.PoolConfig{Schema: cfg.Store.Schema})
		if err != nil {
			return eris.Wrap(err, "connect database")
		}
		defer func() { _ = st.Close() }()

		caseNumbers := args
		if len(caseNumbers) == 0 {
			pending, err := st.PendingCases(ctx, enrichLimit)
			if err != nil {
				return err
			}
			for _, rec := range pending {
				caseNumbers = append(caseNumbers, rec.CaseNumber)
			}
		}
		if len(caseNumbers) == 0 {
			zap.L().Info("no pending cases")
			return nil
		}

		archive, err := storage.New(storage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			return err
		}

		downloadRetry := resilience.DefaultRetryConfig()
		downloadRetry.MaxAttempts = cfg.Pipeline.DownloadRetries
		downloadRetry.OnRetry = resilience.RetryLogger("portal", "catalog")
		catalog := portal.NewCatalog(cfg.Portal.CatalogBaseURL, cfg.Portal.DownloadURL,
			portal.WithCatalogPageSize(cfg.Pipeline.CatalogPageSize),
			portal.WithCatalogRetry(downloadRetry))

		maxPolls := cfg.OCR.TimeoutSecs / cfg.OCR.PollSecs
		texts := ocr.NewDispatcher(ocr.NewJobClient(cfg.OCR.BaseURL, cfg.OCR.Key, cfg.Storage.Bucket,
			ocr.WithJobPollInterval(time.Duration(cfg.OCR.PollSecs)*time.Second),
			ocr.WithJobMaxPolls(maxPolls)))

		extractor := extract.NewModelExtractor(
			anthropic.NewClient(cfg.Anthropic.Key),
			cfg.Anthropic.Model,
			int64(cfg.Anthropic.MaxTokens))

		solver := captcha.NewClient(cfg.Captcha.Key, captcha.WithBaseURL(cfg.Captcha.BaseURL))

		workers := cfg.Pipeline.MaxConcurrency
		if workers < 1 {
			workers = 1
		}
		if workers > len(caseNumbers) {
			workers = len(caseNumbers)
		}
		zap.L().Info("starting enrichment",
			zap.Int("cases", len(caseNumbers)),
			zap.Int("workers", workers))

		g, gctx := errgroup.WithContext(ctx)
		caseCh := make(chan string)
		g.Go(func() error {
			defer close(caseCh)
			for _, caseNumber := range caseNumbers {
				select {
				case caseCh <- caseNumber:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})

		for i := 0; i < workers; i++ {
			tempDir := filepath.Join(cfg.Pipeline.TempDir, fmt.Sprintf("worker-%d", i))
			g.Go(func() error {
				return runWorker(gctx, tempDir, solver, catalog, archive, texts, extractor, st, caseCh)
			})
		}
		return g.Wait()
	},
}

// runWorker owns one browser session and drains the case channel through it.
func runWorker(ctx context.Context, tempDir string, solver captcha.Client,
	catalog *portal.Catalog, archive *storage.Store, texts *ocr.Dispatcher,
	extractor extract.Extractor, st store.Store, cases <-chan string) error {

	driver, err := portal.NewChromeDriver(portal.ChromeOptions{
		Headless: cfg.Portal.Headless,
		LinkWait: time.Duration(cfg.Portal.LinkWaitSecs) * time.Second,
		Settle:   time.Duration(cfg.Portal.SettleSecs) * time.Second,
	})
	if err != nil {
		return err
	}

	session := portal.NewSession(driver, solver, portal.SessionConfig{
		SearchURL:     cfg.Portal.SearchURL,
		SiteKey:       cfg.Captcha.SiteKey,
		SearchRetries: cfg.Captcha.SolveRetries,
		SolveOptions: []captcha.SolveOption{
			captcha.WithSolveInterval(cfg.Captcha.PollInterval()),
			captcha.WithMaxPolls(cfg.Captcha.MaxPolls),
		},
	})
	defer func() { _ = session.Close() }()

	if err := session.Start(ctx); err != nil {
		return err
	}

	engine := pipeline.NewEngine(catalog, archive, texts, extractor, tempDir)
	runner := pipeline.NewRunner(session, catalog, engine, st)

	for caseNumber := range cases {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := runner.ProcessCase(ctx, caseNumber); err != nil {
			zap.L().Error("case failed",
				zap.String("case_number", caseNumber),
				zap.Error(err))
		}
	}
	return nil
}

func init() {
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 100, "max number of pending cases to process")
	rootCmd.AddCommand(enrichCmd)
}
