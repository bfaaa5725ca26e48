package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	youtubeapi "google.golang.org/api/youtube/v3"

	"ytetl/warehouse"
	"ytetl/youtube"
)

type fakeSource struct {
	channels   map[string]*youtubeapi.Channel
	uploads    map[string][]*youtubeapi.Video
	comments   map[string][]*youtubeapi.CommentThread
	commentErr map[string]error

	uploadCalls  []string
	commentCalls []string
}

func (f *fakeSource) ChannelsByID(ctx context.Context, ids []string) ([]*youtubeapi.Channel, error) {
	var out []*youtubeapi.Channel
	for _, id := range ids {
		if ch, ok := f.channels[id]; ok {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (f *fakeSource) ChannelUploads(ctx context.Context, channelID string, limit int64) ([]*youtubeapi.Video, error) {
	f.uploadCalls = append(f.uploadCalls, channelID)
	videos := f.uploads[channelID]
	if int64(len(videos)) > limit {
		videos = videos[:limit]
	}
	return videos, nil
}

func (f *fakeSource) VideoComments(ctx context.Context, videoID string, limit int64) ([]*youtubeapi.CommentThread, error) {
	f.commentCalls = append(f.commentCalls, videoID)
	if err, ok := f.commentErr[videoID]; ok {
		return nil, err
	}
	return f.comments[videoID], nil
}

// fakeSink records load batches and reports every row as affected.
type fakeSink struct {
	batches map[string][][]warehouse.Row
	failOn  string
}

func newFakeSink() *fakeSink {
	return &fakeSink{batches: make(map[string][][]warehouse.Row)}
}

func (f *fakeSink) Load(ctx context.Context, relation string, rows []warehouse.Row) (int64, error) {
	if relation == f.failOn {
		return 0, fmt.Errorf("load %s: boom", relation)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	f.batches[relation] = append(f.batches[relation], rows)
	return int64(len(rows)), nil
}

func (f *fakeSink) rows(relation string) int {
	n := 0
	for _, b := range f.batches[relation] {
		n += len(b)
	}
	return n
}

func testVideo(id, channelID string) *youtubeapi.Video {
	return &youtubeapi.Video{
		Id:      id,
		Snippet: &youtubeapi.VideoSnippet{ChannelId: channelID, Title: "video " + id},
	}
}

func testThread(id, videoID string) *youtubeapi.CommentThread {
	return &youtubeapi.CommentThread{
		Id: id,
		Snippet: &youtubeapi.CommentThreadSnippet{
			VideoId: videoID,
			TopLevelComment: &youtubeapi.Comment{
				Snippet: &youtubeapi.CommentSnippet{AuthorDisplayName: "alice", TextDisplay: "hi"},
			},
		},
	}
}

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestRunEndToEnd(t *testing.T) {
	// One channel with two videos; comments succeed for the first video
	// and fail for the second.
	source := &fakeSource{
		channels: map[string]*youtubeapi.Channel{
			"UC1": {Id: "UC1", Snippet: &youtubeapi.ChannelSnippet{Title: "chan"}},
		},
		uploads: map[string][]*youtubeapi.Video{
			"UC1": {testVideo("v1", "UC1"), testVideo("v2", "UC1")},
		},
		comments: map[string][]*youtubeapi.CommentThread{
			"v1": {testThread("t1", "v1"), testThread("t2", "v1"), testThread("t3", "v1")},
		},
		commentErr: map[string]error{
			"v2": errors.New("commentThreads v2: comments disabled"),
		},
	}
	sink := newFakeSink()

	p := New(source, sink, Options{Now: fixedNow}, zerolog.Nop())
	stats, err := p.Run(context.Background(), []string{"UC1"})
	require.NoError(t, err, "a comment failure is soft, the run still succeeds")

	require.EqualValues(t, 1, stats.Channels)
	require.EqualValues(t, 2, stats.Videos)
	require.EqualValues(t, 3, stats.Comments)
	require.EqualValues(t, 3, stats.Metrics, "1 channel + 2 video metric rows")
	require.Equal(t, 1, stats.SoftFailures)

	require.Equal(t, 1, sink.rows(warehouse.RelationChannels))
	require.Equal(t, 2, sink.rows(warehouse.RelationVideos))
	require.Equal(t, 3, sink.rows(warehouse.RelationComments))
	require.Equal(t, 3, sink.rows(warehouse.RelationMetrics))

	// Same-day metric rows all carry the same date.
	for _, batch := range sink.batches[warehouse.RelationMetrics] {
		for _, row := range batch {
			require.Equal(t, "2024-06-01", row["date"])
		}
	}
}

func TestRunLoadsChannelsBeforeVideos(t *testing.T) {
	var order []string
	source := &fakeSource{
		channels: map[string]*youtubeapi.Channel{"UC1": {Id: "UC1"}},
		uploads:  map[string][]*youtubeapi.Video{"UC1": {testVideo("v1", "UC1")}},
	}
	sink := &orderedSink{order: &order}

	p := New(source, sink, Options{Now: fixedNow}, zerolog.Nop())
	_, err := p.Run(context.Background(), []string{"UC1"})
	require.NoError(t, err)

	require.Equal(t, []string{
		warehouse.RelationChannels,
		warehouse.RelationMetrics,
		warehouse.RelationVideos,
		warehouse.RelationMetrics,
	}, order, "referenced relations must load before referencing ones")
}

type orderedSink struct {
	order *[]string
}

func (s *orderedSink) Load(ctx context.Context, relation string, rows []warehouse.Row) (int64, error) {
	if len(rows) > 0 {
		*s.order = append(*s.order, relation)
	}
	return int64(len(rows)), nil
}

func TestRunNoChannelsFoundIsNoOp(t *testing.T) {
	source := &fakeSource{channels: map[string]*youtubeapi.Channel{}}
	sink := newFakeSink()

	p := New(source, sink, Options{Now: fixedNow}, zerolog.Nop())
	stats, err := p.Run(context.Background(), []string{"nonexistent"})
	require.NoError(t, err, "an empty channel extraction is a no-op completion, not a failure")
	require.Zero(t, stats.Channels)
	require.Empty(t, sink.batches, "downstream relations must stay untouched")
	require.Empty(t, source.uploadCalls)
}

func TestRunChannelWithNoVideosIsSkipped(t *testing.T) {
	source := &fakeSource{
		channels: map[string]*youtubeapi.Channel{
			"UC1": {Id: "UC1"},
			"UC2": {Id: "UC2"},
		},
		uploads: map[string][]*youtubeapi.Video{
			"UC2": {testVideo("v1", "UC2")},
		},
		comments: map[string][]*youtubeapi.CommentThread{},
	}
	sink := newFakeSink()

	p := New(source, sink, Options{Now: fixedNow}, zerolog.Nop())
	stats, err := p.Run(context.Background(), []string{"UC1", "UC2"})
	require.NoError(t, err)
	require.Equal(t, 1, stats.SkippedChannels)
	require.EqualValues(t, 1, stats.Videos, "the run proceeds to the next channel")
	require.Equal(t, []string{"UC1", "UC2"}, source.uploadCalls)
}

func TestRunQuotaErrorOnCommentsIsFatal(t *testing.T) {
	source := &fakeSource{
		channels: map[string]*youtubeapi.Channel{"UC1": {Id: "UC1"}},
		uploads:  map[string][]*youtubeapi.Video{"UC1": {testVideo("v1", "UC1")}},
		commentErr: map[string]error{
			"v1": fmt.Errorf("commentThreads v1: %w", youtube.ErrQuotaExceeded),
		},
	}
	sink := newFakeSink()

	p := New(source, sink, Options{Now: fixedNow}, zerolog.Nop())
	stats, err := p.Run(context.Background(), []string{"UC1"})
	require.ErrorIs(t, err, youtube.ErrQuotaExceeded)
	require.EqualValues(t, 1, stats.Videos,
		"batches committed before the failure stay committed")
	require.EqualValues(t, 2, stats.Metrics, "channel and video metric batches")
}

func TestRunVideoLoadFailurePropagates(t *testing.T) {
	source := &fakeSource{
		channels: map[string]*youtubeapi.Channel{"UC1": {Id: "UC1"}},
		uploads:  map[string][]*youtubeapi.Video{"UC1": {testVideo("v1", "UC1")}},
	}
	sink := newFakeSink()
	sink.failOn = warehouse.RelationVideos

	p := New(source, sink, Options{Now: fixedNow}, zerolog.Nop())
	stats, err := p.Run(context.Background(), []string{"UC1"})
	require.Error(t, err)
	require.EqualValues(t, 1, stats.Channels,
		"the channel batch was committed before the video failure and is not rolled back")
}
