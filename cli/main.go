// Command ytetl runs one batch ingestion of the configured YouTube
// channels into the analytics warehouse.
package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"ytetl/config"
	"ytetl/pipeline"
	"ytetl/retry"
	"ytetl/warehouse"
	"ytetl/youtube"
)

func main() {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		errLog := zerolog.New(os.Stderr)
		errLog.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)
	log.Info().Int("channels", len(cfg.ChannelIDs)).Msg("starting batch run")

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	pool, err := warehouse.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	client, err := youtube.NewClient(ctx, cfg.APIKey, youtube.Config{
		Retry: retry.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxBackoff:     cfg.MaxBackoff,
			Multiplier:     cfg.BackoffMultiplier,
			JitterFraction: 0.2,
		},
		RequestsPerSecond: cfg.RequestsPerSecond,
	}, log)
	if err != nil {
		return err
	}

	loader := warehouse.NewLoader(pool, log)
	p := pipeline.New(client, loader, pipeline.Options{
		MaxVideosPerChannel: cfg.MaxVideosPerChannel,
		MaxCommentsPerVideo: cfg.MaxCommentsPerVideo,
	}, log)

	stats, err := p.Run(ctx, cfg.ChannelIDs)
	if err != nil {
		return err
	}

	log.Info().
		Int64("channels", stats.Channels).
		Int64("videos", stats.Videos).
		Int64("comments", stats.Comments).
		Int64("metrics", stats.Metrics).
		Int("quota_used", client.QuotaUsed()).
		Msg("batch run complete")
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	return zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "ytetl").
		Logger()
}
