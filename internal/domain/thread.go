package domain

import "time"

// StoryThread is a growing cluster of articles about the same ongoing event.
// Threads are never deleted, only deactivated after an inactivity window.
type StoryThread struct {
	ID    string `db:"id"    json:"id"`
	Title string `db:"title" json:"title"`

	// Centroid is a running weighted average of member embeddings,
	// updated by exponential moving average on each join.
	Centroid Float64Vector `db:"centroid" json:"centroid,omitempty"`

	MemberCount int  `db:"member_count" json:"member_count"`
	Active      bool `db:"active"       json:"active"`

	CreatedAt  time.Time `db:"created_at"   json:"created_at"`
	LastSeenAt time.Time `db:"last_seen_at" json:"last_seen_at"`
}

// ThreadMembership is the write-once join record between a thread and an
// article, capturing the similarity at the moment of matching.
type ThreadMembership struct {
	ThreadID   string    `db:"thread_id"  json:"thread_id"`
	ArticleID  string    `db:"article_id" json:"article_id"`
	Similarity float64   `db:"similarity" json:"similarity"`
	JoinedAt   time.Time `db:"joined_at"  json:"joined_at"`
}
