// Package youtube retrieves channel, video, and comment data from the
// YouTube Data API v3 for warehouse ingestion. It handles cursor-based
// pagination, per-call ID batching, and the channel → uploads playlist →
// video detail fan-out, so callers always receive fully detailed records.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"ytetl/retry"
)

// Provider limits for the Data API.
const (
	// maxIDsPerCall is the largest comma-joined ID list a list call accepts.
	maxIDsPerCall = 50
	// playlistPageCap is the largest page playlistItems.list returns.
	playlistPageCap = 50
	// commentPageCap is the largest page commentThreads.list returns.
	commentPageCap = 100
)

// Estimated quota units per list call.
const listCallUnits = 1

// DefaultRequestsPerSecond is a conservative pace for the Data API.
const DefaultRequestsPerSecond = 2.0

// Config tunes the extractor.
type Config struct {
	// Retry controls backoff for transient transport failures.
	Retry retry.Config
	// RequestsPerSecond paces outbound requests with a token bucket so a
	// sequential run stays inside the provider's per-second limits.
	RequestsPerSecond float64
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() Config {
	return Config{
		Retry:             retry.DefaultConfig(),
		RequestsPerSecond: DefaultRequestsPerSecond,
	}
}

// Client is a YouTube Data API extractor. All methods issue blocking,
// sequential requests; transient transport failures are retried with
// backoff, quota exhaustion is surfaced as ErrQuotaExceeded.
type Client struct {
	svc      *youtube.Service
	retryCfg retry.Config
	pace     *rate.Limiter
	log      zerolog.Logger

	mu        sync.Mutex
	quotaUsed int
}

// NewClient creates a Data API client. Extra options are passed through to
// the underlying service, which lets tests point it at a fake endpoint.
func NewClient(ctx context.Context, apiKey string, cfg Config, log zerolog.Logger, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("youtube: api key required")
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}

	all := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	return &Client{
		svc:      svc,
		retryCfg: cfg.Retry,
		pace:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		log:      log,
	}, nil
}

// ChannelsByID fetches full channel resources (snippet, statistics,
// contentDetails) for the given IDs, batching requests at the provider cap.
// IDs the provider does not know are silently omitted from the result;
// callers that require an ID must detect the undersized response.
func (c *Client) ChannelsByID(ctx context.Context, ids []string) ([]*youtube.Channel, error) {
	var channels []*youtube.Channel
	for _, batch := range chunk(ids, maxIDsPerCall) {
		var resp *youtube.ChannelListResponse
		err := retry.Do(ctx, c.retryCfg, isRetryable, func(ctx context.Context) error {
			if err := c.pace.Wait(ctx); err != nil {
				return err
			}
			var callErr error
			resp, callErr = c.svc.Channels.
				List([]string{"snippet", "statistics", "contentDetails"}).
				Id(batch...).
				Context(ctx).
				Do()
			c.trackQuota(listCallUnits)
			return callErr
		})
		if err != nil {
			return nil, c.wrap("channels", strings.Join(batch, ","), err)
		}
		channels = append(channels, resp.Items...)
	}
	return channels, nil
}

// VideosByID fetches full video resources (snippet, statistics,
// contentDetails) for the given IDs, batching at the provider cap. Missing
// IDs are silently omitted.
func (c *Client) VideosByID(ctx context.Context, ids []string) ([]*youtube.Video, error) {
	var videos []*youtube.Video
	for _, batch := range chunk(ids, maxIDsPerCall) {
		var resp *youtube.VideoListResponse
		err := retry.Do(ctx, c.retryCfg, isRetryable, func(ctx context.Context) error {
			if err := c.pace.Wait(ctx); err != nil {
				return err
			}
			var callErr error
			resp, callErr = c.svc.Videos.
				List([]string{"snippet", "statistics", "contentDetails"}).
				Id(batch...).
				Context(ctx).
				Do()
			c.trackQuota(listCallUnits)
			return callErr
		})
		if err != nil {
			return nil, c.wrap("videos", strings.Join(batch, ","), err)
		}
		videos = append(videos, resp.Items...)
	}
	return videos, nil
}

// ChannelUploads returns up to limit fully detailed videos from the
// channel's uploads playlist, newest first. The playlist yields only
// lightweight references, so a secondary batched detail fetch runs before
// returning. An unknown channel yields an empty result, not an error.
func (c *Client) ChannelUploads(ctx context.Context, channelID string, limit int64) ([]*youtube.Video, error) {
	channels, err := c.ChannelsByID(ctx, []string{channelID})
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		c.log.Warn().Str("channel_id", channelID).Msg("channel not found")
		return nil, nil
	}

	ch := channels[0]
	if ch.ContentDetails == nil || ch.ContentDetails.RelatedPlaylists == nil ||
		ch.ContentDetails.RelatedPlaylists.Uploads == "" {
		c.log.Warn().Str("channel_id", channelID).Msg("channel has no uploads playlist")
		return nil, nil
	}
	playlistID := ch.ContentDetails.RelatedPlaylists.Uploads

	ids, err := c.playlistVideoIDs(ctx, playlistID, limit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	videos, err := c.VideosByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	if int64(len(videos)) > limit {
		videos = videos[:limit]
	}
	return videos, nil
}

// playlistVideoIDs pages through a playlist following the continuation
// token, requesting min(cap, remaining) items per page. Pagination stops at
// the limit, at a missing continuation token, or at an empty page.
func (c *Client) playlistVideoIDs(ctx context.Context, playlistID string, limit int64) ([]string, error) {
	var (
		ids       []string
		pageToken string
	)
	for int64(len(ids)) < limit {
		pageSize := min(playlistPageCap, limit-int64(len(ids)))

		var resp *youtube.PlaylistItemListResponse
		err := retry.Do(ctx, c.retryCfg, isRetryable, func(ctx context.Context) error {
			if err := c.pace.Wait(ctx); err != nil {
				return err
			}
			call := c.svc.PlaylistItems.
				List([]string{"contentDetails"}).
				PlaylistId(playlistID).
				MaxResults(pageSize).
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var callErr error
			resp, callErr = call.Do()
			c.trackQuota(listCallUnits)
			return callErr
		})
		if err != nil {
			return nil, c.wrap("playlistItems", playlistID, err)
		}

		if len(resp.Items) == 0 {
			break
		}
		for _, item := range resp.Items {
			if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
				ids = append(ids, item.ContentDetails.VideoId)
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	if int64(len(ids)) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// VideoComments returns up to limit top-level comment threads for a video,
// ordered by relevance. Errors propagate; whether a missing comment section
// is fatal is the caller's call.
func (c *Client) VideoComments(ctx context.Context, videoID string, limit int64) ([]*youtube.CommentThread, error) {
	var (
		threads   []*youtube.CommentThread
		pageToken string
	)
	for int64(len(threads)) < limit {
		pageSize := min(commentPageCap, limit-int64(len(threads)))

		var resp *youtube.CommentThreadListResponse
		err := retry.Do(ctx, c.retryCfg, isRetryable, func(ctx context.Context) error {
			if err := c.pace.Wait(ctx); err != nil {
				return err
			}
			call := c.svc.CommentThreads.
				List([]string{"snippet"}).
				VideoId(videoID).
				MaxResults(pageSize).
				TextFormat("plainText").
				Order("relevance").
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var callErr error
			resp, callErr = call.Do()
			c.trackQuota(listCallUnits)
			return callErr
		})
		if err != nil {
			return nil, c.wrap("commentThreads", videoID, err)
		}

		if len(resp.Items) == 0 {
			break
		}
		threads = append(threads, resp.Items...)

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	if int64(len(threads)) > limit {
		threads = threads[:limit]
	}
	return threads, nil
}

// QuotaUsed returns the estimated quota units consumed so far.
func (c *Client) QuotaUsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quotaUsed
}

func (c *Client) trackQuota(units int) {
	c.mu.Lock()
	c.quotaUsed += units
	c.mu.Unlock()
}

// wrap converts an API error into a RequestError, translating quota
// failures into the distinguished sentinel.
func (c *Client) wrap(resource, id string, err error) error {
	if IsQuotaError(err) {
		err = fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}
	return &RequestError{Resource: resource, ID: id, Err: err}
}

func chunk(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
