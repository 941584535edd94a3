package history

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/typesense/typesense-go/v4/typesense"
	"github.com/typesense/typesense-go/v4/typesense/api"
	"github.com/typesense/typesense-go/v4/typesense/api/pointer"
)

// Config holds Typesense connection settings.
type Config struct {
	URL        string
	APIKey     string
	Collection string
}

// TypesenseStore implements Store over one Typesense collection.
type TypesenseStore struct {
	client     *typesense.Client
	collection string
}

// NewTypesense creates a Store backed by one Typesense collection.
func NewTypesense(cfg Config) (*TypesenseStore, error) {
	if cfg.URL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("typesense URL and API key are required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("typesense collection name is required")
	}

	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(10*time.Second),
	)

	return &TypesenseStore{client: client, collection: cfg.Collection}, nil
}

// EnsureCollection creates the collection schema if it does not exist.
func (s *TypesenseStore) EnsureCollection(ctx context.Context) error {
	schema := &api.CollectionSchema{
		Name: s.collection,
		Fields: []api.Field{
			{Name: "kind", Type: "string", Facet: pointer.True()},
			{Name: "content", Type: "string"},
			{Name: "title", Type: "string"},
			{Name: "provider", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "configuration_id", Type: "int64", Optional: pointer.True()},
			{Name: "severity", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "label", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "response_count", Type: "int64"},
			{Name: "created_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("created_at"),
	}

	_, err := s.client.Collections().Create(ctx, schema)
	if err != nil {
		var httpErr *typesense.HTTPError
		if errors.As(err, &httpErr) && httpErr.Status == 409 {
			return nil // already exists
		}
		return fmt.Errorf("%w: creating collection %s: %v", ErrRetrievalUnavailable, s.collection, err)
	}
	return nil
}

func (s *TypesenseStore) Search(ctx context.Context, query string, k int, filter map[string]string) ([]Hit, error) {
	params := &api.SearchCollectionParams{
		Q:       pointer.String(query),
		QueryBy: pointer.String("title,content"),
		PerPage: pointer.Int(k),
	}
	if len(filter) > 0 {
		params.FilterBy = pointer.String(buildFilter(filter))
	}

	result, err := s.client.Collection(s.collection).Documents().Search(ctx, params)
	if err != nil {
		var httpErr *typesense.HTTPError
		if errors.As(err, &httpErr) && httpErr.Status == 404 {
			return nil, nil // collection not created yet: cold start
		}
		return nil, fmt.Errorf("%w: searching %s: %v", ErrRetrievalUnavailable, s.collection, err)
	}

	if result.Hits == nil || len(*result.Hits) == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(*result.Hits))
	for i, h := range *result.Hits {
		if h.Document == nil {
			continue
		}
		doc := docFromFields(*h.Document)
		var score float64
		if h.TextMatch != nil {
			score = float64(*h.TextMatch)
		}
		hits = append(hits, Hit{Document: doc, Score: score, Rank: i + 1})
	}
	return hits, nil
}

func (s *TypesenseStore) Add(ctx context.Context, doc Document) error {
	fields := map[string]any{
		"id":               doc.ID,
		"kind":             doc.Kind,
		"content":          doc.Content,
		"title":            doc.Title,
		"provider":         doc.Provider,
		"configuration_id": doc.ConfigurationID,
		"severity":         doc.Severity,
		"label":            doc.Label,
		"response_count":   doc.ResponseCount,
		"created_at":       doc.CreatedAt,
	}

	_, err := s.client.Collection(s.collection).Documents().Upsert(ctx, fields, &api.DocumentIndexParameters{})
	if err != nil {
		return fmt.Errorf("%w: upserting document %s: %v", ErrRetrievalUnavailable, doc.ID, err)
	}
	return nil
}

func (s *TypesenseStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.client.Collection(s.collection).Document(id).Retrieve(ctx)
	if err != nil {
		var httpErr *typesense.HTTPError
		if errors.As(err, &httpErr) && httpErr.Status == 404 {
			return false, nil
		}
		return false, fmt.Errorf("%w: retrieving document %s: %v", ErrRetrievalUnavailable, id, err)
	}
	return true, nil
}

func buildFilter(filter map[string]string) string {
	clauses := make([]string, 0, len(filter))
	for field, value := range filter {
		clauses = append(clauses, field+":="+value)
	}
	return strings.Join(clauses, " && ")
}

func docFromFields(fields map[string]any) Document {
	doc := Document{
		ID:       str(fields["id"]),
		Kind:     str(fields["kind"]),
		Content:  str(fields["content"]),
		Title:    str(fields["title"]),
		Provider: str(fields["provider"]),
		Severity: str(fields["severity"]),
		Label:    str(fields["label"]),
	}
	doc.ConfigurationID = i64(fields["configuration_id"])
	doc.ResponseCount = i64(fields["response_count"])
	doc.CreatedAt = i64(fields["created_at"])
	return doc
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func i64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case string:
		parsed, _ := strconv.ParseInt(n, 10, 64)
		return parsed
	default:
		return 0
	}
}
