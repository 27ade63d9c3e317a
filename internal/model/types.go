package model

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects how a query is served upstream.
type Mode string

const (
	ModeSearch   Mode = "search"
	ModeTrending Mode = "trending"
)

// ParseMode maps a request parameter onto a Mode. Unknown values yield an error.
func ParseMode(v string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", string(ModeSearch):
		return ModeSearch, nil
	case string(ModeTrending):
		return ModeTrending, nil
	default:
		return "", fmt.Errorf("%w: mode must be %q or %q", ErrValidation, ModeSearch, ModeTrending)
	}
}

// Record origins.
const (
	OriginUpstream = "upstream"
	OriginFallback = "fallback"
)

// SetOrigin describes where a ResultSet came from.
type SetOrigin string

const (
	SetOriginCache    SetOrigin = "cache"
	SetOriginLive     SetOrigin = "live"
	SetOriginFallback SetOrigin = "fallback"
)

// Query is built once per inbound request and never mutated.
type Query struct {
	Namespace string `json:"-"`
	Term      string `json:"term"`
	Mode      Mode   `json:"mode"`
	Limit     int    `json:"limit"`
}

// NewQuery canonicalises the term and returns the query value.
func NewQuery(namespace, term string, mode Mode, limit int) Query {
	return Query{
		Namespace: namespace,
		Term:      strings.Join(strings.Fields(term), " "),
		Mode:      mode,
		Limit:     limit,
	}
}

// CacheKey is a pure function of the canonical query fields.
func (q Query) CacheKey() string {
	return fmt.Sprintf("%s|%s|%s|%d", q.Namespace, q.Mode, strings.ToLower(q.Term), q.Limit)
}

// ResultRecord is the normalized shape shared by every source.
type ResultRecord struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Source         string    `json:"source"`
	PublishedAt    time.Time `json:"publishedAt"`
	Link           string    `json:"link"`
	PlayURL        string    `json:"playUrl,omitempty"`
	Thumbnail      string    `json:"thumbnail,omitempty"`
	Duration       string    `json:"duration,omitempty"`
	ViewCount      int64     `json:"viewCount,omitempty"`
	LikeCount      int64     `json:"likeCount,omitempty"`
	Category       string    `json:"category,omitempty"`
	RelevanceScore float64   `json:"relevanceScore"`
	IsLive         bool      `json:"isLive"`
	Trending       bool      `json:"trending"`
	Origin         string    `json:"origin"`
}

// ResultSet is a ranked, deduplicated list of records. Treat it as immutable
// once built; use Clone before handing it to another owner.
type ResultSet struct {
	Records      []ResultRecord `json:"records"`
	TotalResults int            `json:"totalResults"`
	Query        Query          `json:"query"`
	GeneratedAt  time.Time      `json:"generatedAt"`
	Origin       SetOrigin      `json:"origin"`
}

// Clone returns a deep copy. ResultRecord holds only value fields, so copying
// the slice is enough.
func (rs ResultSet) Clone() ResultSet {
	out := rs
	if rs.Records != nil {
		out.Records = make([]ResultRecord, len(rs.Records))
		copy(out.Records, rs.Records)
	}
	return out
}

// Page is a derived view over a ResultSet.
type Page struct {
	Items        []ResultRecord `json:"items"`
	CurrentPage  int            `json:"currentPage"`
	TotalPages   int            `json:"totalPages"`
	TotalResults int            `json:"totalResults"`
	HasMorePages bool           `json:"hasMorePages"`
}
