package history

import (
	"context"
	"errors"
)

// ErrRetrievalUnavailable indicates the historical index is unreachable.
// Zero results is not an error; only transport failures wrap this.
var ErrRetrievalUnavailable = errors.New("historical store unavailable")

// Document kinds stored in the historical index.
const (
	KindAlert     = "alert"
	KindKnowledge = "kb"
)

// Document is one entry in the historical index: a resolved alert with its
// conversation, or a knowledge-base article.
type Document struct {
	ID              string `json:"id"`
	Kind            string `json:"kind"`
	Content         string `json:"content"`
	Title           string `json:"title"`
	Provider        string `json:"provider,omitempty"`
	ConfigurationID int64  `json:"configuration_id,omitempty"`
	Severity        string `json:"severity,omitempty"`
	Label           string `json:"label,omitempty"` // resolved actionability, when known
	ResponseCount   int64  `json:"response_count"`  // human replies on the alert thread
	CreatedAt       int64  `json:"created_at"`
}

// Hit is one search result. Score is a relevance weight on a
// provider-specific scale; Rank (1-based) is the only value comparable
// across searches.
type Hit struct {
	Document Document
	Score    float64
	Rank     int
}

// Store is the nearest-neighbor search contract over past alerts and
// knowledge articles.
type Store interface {
	// Search returns up to k hits ordered by descending relevance. An empty
	// result is a legitimate cold-start outcome, not an error.
	Search(ctx context.Context, query string, k int, filter map[string]string) ([]Hit, error)
	Add(ctx context.Context, doc Document) error
	Exists(ctx context.Context, id string) (bool, error)
}
