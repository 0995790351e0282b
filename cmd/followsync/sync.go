package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"followsync/pkg/assets"
	"followsync/pkg/canonical"
	"followsync/pkg/config"
	"followsync/pkg/following"
	"followsync/pkg/ingest"
	"followsync/pkg/logger"
	"followsync/pkg/mirror"
	"followsync/pkg/ratelimit"
	"followsync/pkg/store"
	"followsync/pkg/ui"
)

func runSync(cmd *cobra.Command, args []string) error {
	opts, err := ingest.ParseFlags(ingest.Flags{
		Resume:             resumeRun,
		Force:              forceRun,
		Single:             singleRun,
		ExportOnly:         exportOnly,
		Validate:           validateRun,
		ValidateImages:     validateImages,
		FetchMissingImages: fetchMissingImages,
	})
	if err != nil {
		return err
	}

	cfg, err := config.Load(configFile, commandLineFlags(cmd))
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	ids, err := following.Load(cfg.Input.FollowingFile)
	if err != nil {
		return err
	}

	results, err := store.Open(cfg.Store.SuccessLog, log)
	if err != nil {
		return err
	}
	defer results.Close()

	term := ui.NewTerminal(os.Stdout, quiet)
	canon := canonical.New(cfg.Canonical.ProxyMarker, cfg.Canonical.OriginHost, cfg.Canonical.DefaultAssetHost)

	client := mirror.NewClient(mirror.Options{
		Mirrors:       cfg.Mirrors.Endpoints,
		ProfilePath:   cfg.Mirrors.ProfilePath,
		Timeout:       cfg.Mirrors.Timeout,
		UserAgent:     cfg.Mirrors.UserAgent,
		BannerDefault: cfg.Mirrors.BannerDefault,
	}, canon, log)

	engine, images, err := assets.New(cfg.Assets, cfg.Mirrors.UserAgent, term, log)
	if err != nil {
		return err
	}

	stop := ingest.NewStopFlag()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for sig := range sigChan {
			if stop.Cancel() {
				log.InfoWithFields("Interrupt received, finishing current account", map[string]interface{}{
					"signal": sig.String(),
				})
			}
		}
	}()

	logger.LogComponentStart(log, "followsync", map[string]interface{}{
		"mode":       opts.Mode.String(),
		"single":     opts.Single,
		"accounts":   len(ids),
		"mirrors":    client.Mirrors(),
		"images_dir": images.BaseDir(),
		"workers":    cfg.Assets.ConcurrentDownloads,
	})

	orch := ingest.New(ingest.Deps{
		Fetcher:    client,
		Store:      results,
		Assets:     engine,
		Canon:      canon,
		ExportPath: cfg.Export.OutputFile,
		Terminal:   term,
		Pacer:      ratelimit.NewPacer(cfg.Pacing.MinDelay, cfg.Pacing.MaxDelay),
		Stop:       stop,
		Out:        os.Stdout,
		Logger:     log,
	})

	sum, err := orch.Run(context.Background(), ids, opts)
	if err != nil {
		return err
	}

	reason := "completed"
	if sum.Interrupted {
		reason = "interrupted"
	}
	logger.LogComponentStop(log, "followsync", reason)
	return nil
}
