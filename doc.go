// Package ytetl ingests YouTube channel, video, and comment data into a
// PostgreSQL analytics warehouse.
//
// Overview
//
// A run is a sequential batch: for each configured channel the pipeline
// extracts the channel resource, its uploaded videos, and each video's top
// comment threads from the YouTube Data API v3, normalizes them into flat
// rows, and upserts them into the warehouse keyed by natural keys, so
// repeated runs update rows in place instead of duplicating them. Daily
// metric snapshots (views, likes, comments, subscribers, video counts) land
// in a unified metrics relation keyed by entity and calendar day.
//
// The work is split across sub-packages:
//
//   - config: environment-driven configuration
//   - youtube: paginated, rate-limited extraction with ID-batched fan-out
//   - transform: pure normalization from API resources to warehouse rows
//   - warehouse: relation registry and the transactional upsert loader
//   - pipeline: run orchestration and aggregate stats
//   - retry: exponential backoff for transient API failures
//
// Quick Start
//
// Wire the pieces and run a batch:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal().Err(err).Send()
//	}
//	pool, err := warehouse.NewPool(ctx, cfg.DatabaseURL, log)
//	if err != nil {
//		log.Fatal().Err(err).Send()
//	}
//	client, err := youtube.NewClient(ctx, cfg.APIKey, youtube.DefaultClientConfig(), log)
//	if err != nil {
//		log.Fatal().Err(err).Send()
//	}
//	p := pipeline.New(client, warehouse.NewLoader(pool, log), pipeline.Options{}, log)
//	stats, err := p.Run(ctx, cfg.ChannelIDs)
//
// Error Handling
//
// Errors follow standard Go patterns. Quota exhaustion is distinguished
// from plain transport failure:
//
//	if errors.Is(err, ytetl.ErrQuotaExceeded) {
//		// stop for the day instead of retrying
//	}
//
// Request context can be extracted from wrapped errors:
//
//	var reqErr *ytetl.RequestError
//	if errors.As(err, &reqErr) {
//		fmt.Printf("fetching %s %s failed\n", reqErr.Resource, reqErr.ID)
//	}
//
// Configuration
//
// Configuration is read from environment variables, optionally seeded from
// a .env file by the CLI:
//
//   - YOUTUBE_API_KEY: Data API key (required)
//   - YOUTUBE_CHANNEL_IDS: comma-separated channel IDs (required)
//   - DATABASE_URL: warehouse connection string, or DB_USER / DB_PASSWORD /
//     DB_HOST / DB_PORT / DB_NAME
//   - YTETL_MAX_VIDEOS: videos extracted per channel (default 50)
//   - YTETL_MAX_COMMENTS: comment threads per video (default 20)
//   - YTETL_REQUESTS_PER_SECOND: outbound API pace (default 2)
//   - YTETL_MAX_RETRIES, YTETL_INITIAL_BACKOFF, YTETL_MAX_BACKOFF: retry knobs
//   - LOG_LEVEL: zerolog level (default "info")
//
// The warehouse relations (youtube_channels, youtube_videos,
// youtube_comments, youtube_metrics) are expected to exist; schema
// management is external to this module.
package ytetl
