package warehouse

// Row is a single normalized record destined for one relation, keyed by
// column name. All rows in a load batch share the same column set.
type Row map[string]any

// AuditColumn is preserved across upserts: it is set by the database on
// first insert and never overwritten by a conflict update.
const AuditColumn = "created_at"

// Relation describes a warehouse relation the loader may write to: its full
// ordered column set, the natural-key subset used for conflict detection,
// and whether existing rows are immutable.
type Relation struct {
	Name    string
	Columns []string
	// Key is the natural key: conflicts are detected by equality on these
	// columns, not by surrogate primary key.
	Key []string
	// InsertOnly relations never update on conflict; existing rows are
	// left untouched.
	InsertOnly bool
}

// Relation names.
const (
	RelationChannels = "youtube_channels"
	RelationVideos   = "youtube_videos"
	RelationComments = "youtube_comments"
	RelationMetrics  = "youtube_metrics"
)

// Metric entity types for the unified youtube_metrics relation.
const (
	EntityChannel = "channel"
	EntityVideo   = "video"
)

var relations = map[string]Relation{
	RelationChannels: {
		Name: RelationChannels,
		Columns: []string{
			"channel_id", "title", "description", "custom_url",
			"published_at", "thumbnail_url", "country", "created_at",
		},
		Key: []string{"channel_id"},
	},
	RelationVideos: {
		Name: RelationVideos,
		Columns: []string{
			"video_id", "channel_id", "title", "description", "published_at",
			"duration_seconds", "category_id", "tags", "thumbnail_url", "created_at",
		},
		Key: []string{"video_id"},
	},
	RelationComments: {
		Name: RelationComments,
		Columns: []string{
			"comment_id", "video_id", "author_name", "text",
			"like_count", "published_at", "created_at",
		},
		Key:        []string{"comment_id"},
		InsertOnly: true,
	},
	// Unified metric relation: one row per entity per calendar day.
	// entity_type is a regular column, not part of the natural key, since
	// channel and video IDs never collide.
	RelationMetrics: {
		Name: RelationMetrics,
		Columns: []string{
			"entity_id", "entity_type", "date", "view_count", "like_count",
			"comment_count", "subscriber_count", "video_count",
		},
		Key: []string{"entity_id", "date"},
	},
}

// RelationByName looks up a relation by name. This is the loader's column
// discovery step: batches are validated against the returned column set.
func RelationByName(name string) (Relation, bool) {
	rel, ok := relations[name]
	return rel, ok
}

func (r Relation) isKey(col string) bool {
	for _, k := range r.Key {
		if k == col {
			return true
		}
	}
	return false
}

func (r Relation) hasColumn(col string) bool {
	for _, c := range r.Columns {
		if c == col {
			return true
		}
	}
	return false
}
