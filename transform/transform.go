// Package transform maps raw YouTube Data API resources into flat warehouse
// rows. All functions are pure: the metric reference date is a parameter,
// never read from the clock, so normalization is deterministic and testable.
//
// Absent nested structs default to empty values and absent statistics
// default to 0 — the API omits statistics entirely for entities that have
// them disabled, and that must not fail a run.
package transform

import (
	"time"

	"google.golang.org/api/youtube/v3"

	"ytetl/warehouse"
)

const dateFormat = "2006-01-02"

// Channels normalizes channel resources into descriptive rows and a metric
// snapshot for the given date.
func Channels(items []*youtube.Channel, date time.Time) (channels, metrics []warehouse.Row) {
	for _, item := range items {
		snippet := item.Snippet
		if snippet == nil {
			snippet = &youtube.ChannelSnippet{}
		}

		channels = append(channels, warehouse.Row{
			"channel_id":    item.Id,
			"title":         snippet.Title,
			"description":   snippet.Description,
			"custom_url":    snippet.CustomUrl,
			"published_at":  parseTime(snippet.PublishedAt),
			"thumbnail_url": thumbnailURL(snippet.Thumbnails),
			"country":       snippet.Country,
		})

		metric := emptyMetric(item.Id, warehouse.EntityChannel, date)
		if stats := item.Statistics; stats != nil {
			metric["view_count"] = stats.ViewCount
			metric["subscriber_count"] = stats.SubscriberCount
			metric["video_count"] = stats.VideoCount
		}
		metrics = append(metrics, metric)
	}
	return channels, metrics
}

// Videos normalizes video resources into descriptive rows and a metric
// snapshot for the given date. The ISO duration is converted to whole
// seconds here, so the warehouse never stores the raw PT form.
func Videos(items []*youtube.Video, date time.Time) (videos, metrics []warehouse.Row) {
	for _, item := range items {
		snippet := item.Snippet
		if snippet == nil {
			snippet = &youtube.VideoSnippet{}
		}

		var duration string
		if item.ContentDetails != nil {
			duration = item.ContentDetails.Duration
		}

		tags := snippet.Tags
		if tags == nil {
			tags = []string{}
		}

		videos = append(videos, warehouse.Row{
			"video_id":         item.Id,
			"channel_id":       snippet.ChannelId,
			"title":            snippet.Title,
			"description":      snippet.Description,
			"published_at":     parseTime(snippet.PublishedAt),
			"duration_seconds": Seconds(duration),
			"category_id":      snippet.CategoryId,
			"tags":             tags,
			"thumbnail_url":    thumbnailURL(snippet.Thumbnails),
		})

		metric := emptyMetric(item.Id, warehouse.EntityVideo, date)
		if stats := item.Statistics; stats != nil {
			metric["view_count"] = stats.ViewCount
			metric["like_count"] = stats.LikeCount
			metric["comment_count"] = stats.CommentCount
		}
		metrics = append(metrics, metric)
	}
	return videos, metrics
}

// Comments normalizes comment threads into comment rows. Comments carry no
// metric snapshot; they are a fixed snapshot inserted once.
func Comments(items []*youtube.CommentThread) []warehouse.Row {
	var comments []warehouse.Row
	for _, item := range items {
		if item.Snippet == nil || item.Snippet.TopLevelComment == nil {
			continue
		}
		top := item.Snippet.TopLevelComment
		snippet := top.Snippet
		if snippet == nil {
			snippet = &youtube.CommentSnippet{}
		}

		comments = append(comments, warehouse.Row{
			"comment_id":   item.Id,
			"video_id":     item.Snippet.VideoId,
			"author_name":  snippet.AuthorDisplayName,
			"text":         snippet.TextDisplay,
			"like_count":   snippet.LikeCount,
			"published_at": parseTime(snippet.PublishedAt),
		})
	}
	return comments
}

// emptyMetric returns a metric row with every count present and zero, so
// each batch keeps a uniform column set regardless of entity type.
func emptyMetric(entityID, entityType string, date time.Time) warehouse.Row {
	return warehouse.Row{
		"entity_id":        entityID,
		"entity_type":      entityType,
		"date":             date.Format(dateFormat),
		"view_count":       uint64(0),
		"like_count":       uint64(0),
		"comment_count":    uint64(0),
		"subscriber_count": uint64(0),
		"video_count":      uint64(0),
	}
}

// thumbnailURL picks the best available thumbnail, preferring high
// resolution like the warehouse's consumers expect.
func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, thumb := range []*youtube.Thumbnail{t.High, t.Medium, t.Default} {
		if thumb != nil && thumb.Url != "" {
			return thumb.Url
		}
	}
	return ""
}

// parseTime converts an RFC3339 timestamp to time.Time, or nil for absent
// or unparseable input so the warehouse stores NULL instead of a zero time.
func parseTime(s string) any {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return t
}
