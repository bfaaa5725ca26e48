// Package pipeline sequences extraction, normalization, and loading for a
// batch run: channels first, then per-channel videos, then per-video
// comments, so every loaded row's references already exist. Each load batch
// commits independently; a failure never unwinds earlier batches.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	youtubeapi "google.golang.org/api/youtube/v3"

	"ytetl/transform"
	"ytetl/warehouse"
	"ytetl/youtube"
)

// Source is the extraction boundary the orchestrator drives. Satisfied by
// *youtube.Client.
type Source interface {
	ChannelsByID(ctx context.Context, ids []string) ([]*youtubeapi.Channel, error)
	ChannelUploads(ctx context.Context, channelID string, limit int64) ([]*youtubeapi.Video, error)
	VideoComments(ctx context.Context, videoID string, limit int64) ([]*youtubeapi.CommentThread, error)
}

// Sink is the load boundary. Satisfied by *warehouse.Loader.
type Sink interface {
	Load(ctx context.Context, relation string, rows []warehouse.Row) (int64, error)
}

// Options tunes a pipeline run.
type Options struct {
	// MaxVideosPerChannel bounds the uploads fan-out per channel.
	MaxVideosPerChannel int64
	// MaxCommentsPerVideo bounds the comment fan-out per video.
	MaxCommentsPerVideo int64
	// Now supplies the metric reference date. Defaults to time.Now.
	Now func() time.Time
}

// Stats aggregates the outcome of a run.
type Stats struct {
	Channels     int64
	Videos       int64
	Comments     int64
	Metrics      int64
	SoftFailures int
	// SkippedChannels counts channels that yielded zero videos.
	SkippedChannels int
}

// Pipeline orchestrates one sequential batch run.
type Pipeline struct {
	source Source
	sink   Sink
	opts   Options
	log    zerolog.Logger
}

// New creates a pipeline. Zero option values fall back to defaults.
func New(source Source, sink Sink, opts Options, log zerolog.Logger) *Pipeline {
	if opts.MaxVideosPerChannel <= 0 {
		opts.MaxVideosPerChannel = 50
	}
	if opts.MaxCommentsPerVideo <= 0 {
		opts.MaxCommentsPerVideo = 20
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{source: source, sink: sink, opts: opts, log: log}
}

// Run executes one batch over the configured channel IDs. An empty initial
// channel fetch completes as a no-op. Comment extraction failures are soft:
// logged, counted, and substituted with an empty result — except quota
// exhaustion, which terminates the run. Every other failure propagates.
func (p *Pipeline) Run(ctx context.Context, channelIDs []string) (*Stats, error) {
	log := p.log.With().Str("run_id", uuid.NewString()).Logger()
	stats := &Stats{}
	date := p.opts.Now().UTC()

	log.Info().Strs("channel_ids", channelIDs).Msg("run started")

	channels, err := p.source.ChannelsByID(ctx, channelIDs)
	if err != nil {
		return stats, fmt.Errorf("extract channels: %w", err)
	}
	if len(channels) == 0 {
		log.Warn().Msg("no configured channels found, nothing to do")
		return stats, nil
	}

	chRows, chMetrics := transform.Channels(channels, date)
	if stats.Channels, err = p.sink.Load(ctx, warehouse.RelationChannels, chRows); err != nil {
		return stats, err
	}
	n, err := p.sink.Load(ctx, warehouse.RelationMetrics, chMetrics)
	if err != nil {
		return stats, err
	}
	stats.Metrics += n

	for _, ch := range channels {
		chLog := log.With().Str("channel_id", ch.Id).Logger()

		videos, err := p.source.ChannelUploads(ctx, ch.Id, p.opts.MaxVideosPerChannel)
		if err != nil {
			return stats, fmt.Errorf("extract videos for channel %s: %w", ch.Id, err)
		}
		if len(videos) == 0 {
			chLog.Info().Msg("channel has no videos, skipping")
			stats.SkippedChannels++
			continue
		}

		vRows, vMetrics := transform.Videos(videos, date)
		n, err := p.sink.Load(ctx, warehouse.RelationVideos, vRows)
		if err != nil {
			return stats, err
		}
		stats.Videos += n
		if n, err = p.sink.Load(ctx, warehouse.RelationMetrics, vMetrics); err != nil {
			return stats, err
		}
		stats.Metrics += n

		for _, video := range videos {
			threads, err := p.source.VideoComments(ctx, video.Id, p.opts.MaxCommentsPerVideo)
			if err != nil {
				if errors.Is(err, youtube.ErrQuotaExceeded) {
					return stats, fmt.Errorf("extract comments for video %s: %w", video.Id, err)
				}
				chLog.Warn().Err(err).Str("video_id", video.Id).
					Msg("comment extraction failed, continuing without comments")
				stats.SoftFailures++
				continue
			}
			if len(threads) == 0 {
				continue
			}
			n, err := p.sink.Load(ctx, warehouse.RelationComments, transform.Comments(threads))
			if err != nil {
				return stats, err
			}
			stats.Comments += n
		}
	}

	log.Info().
		Int64("channels", stats.Channels).
		Int64("videos", stats.Videos).
		Int64("comments", stats.Comments).
		Int64("metrics", stats.Metrics).
		Int("soft_failures", stats.SoftFailures).
		Int("skipped_channels", stats.SkippedChannels).
		Msg("run finished")
	return stats, nil
}
