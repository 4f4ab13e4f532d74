package index

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
)

// SegmentInput is a record to be published into the index.
type SegmentInput struct {
	Session   string    `json:"session"`
	Kind      string    `json:"kind"`
	Payload   string    `json:"payload"`
	Embedding []float32 `json:"embedding"`
}

// Match is a retrieval hit, ordered by ascending vector distance.
type Match struct {
	Payload  string  `json:"payload"`
	Kind     string  `json:"kind"`
	Distance float64 `json:"distance"`
}

// BulkInsert publishes all segments of a session in a single insert.
// Nothing is visible to retrieval until this call returns.
func (c *Client) BulkInsert(ctx context.Context, segments []SegmentInput) error {
	if len(segments) == 0 {
		return nil
	}

	_, err := surrealdb.Query[any](ctx, c.db, `
		INSERT INTO segment $records
	`, map[string]any{"records": segments})
	if err != nil {
		return fmt.Errorf("bulk insert %d segments: %w", len(segments), err)
	}
	return nil
}

// SearchKind runs a KNN search over one session's segments of the given
// kind and returns up to limit matches by ascending distance.
func (c *Client) SearchKind(ctx context.Context, session, kind string, embedding []float32, limit int) ([]Match, error) {
	if limit <= 0 {
		return []Match{}, nil
	}

	// HNSW KNN. ef starts at 40 for recall and scales with the limit so
	// it never drops below the number of requested neighbors.
	ef := 40
	if 4*limit > ef {
		ef = 4 * limit
	}
	sql := fmt.Sprintf(`
		SELECT payload, kind, vector::distance::knn() AS distance
		FROM segment
		WHERE session = $session AND kind = $kind AND embedding <|%d,%d|> $emb
		ORDER BY distance ASC
	`, limit, ef)

	results, err := surrealdb.Query[[]Match](ctx, c.db, sql, map[string]any{
		"session": session,
		"kind":    kind,
		"emb":     embedding,
	})
	if err != nil {
		return nil, fmt.Errorf("search %s segments: %w", kind, err)
	}

	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return []Match{}, nil
}

// DropSession removes all segments belonging to a session.
func (c *Client) DropSession(ctx context.Context, session string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		DELETE segment WHERE session = $session
	`, map[string]any{"session": session})
	if err != nil {
		return fmt.Errorf("drop session %s: %w", session, err)
	}
	return nil
}

// CountSession returns the number of indexed segments for a session.
func (c *Client) CountSession(ctx context.Context, session string) (int, error) {
	type countRow struct {
		Count int `json:"count"`
	}

	results, err := surrealdb.Query[[]countRow](ctx, c.db, `
		SELECT count() AS count FROM segment WHERE session = $session GROUP ALL
	`, map[string]any{"session": session})
	if err != nil {
		return 0, fmt.Errorf("count session %s: %w", session, err)
	}

	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return (*results)[0].Result[0].Count, nil
	}
	return 0, nil
}
