package search

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// PgSearch is the fallback searcher: a case-insensitive substring scan over
// boards and cards. If Postgres is down the whole app is down, so it never
// reports unhealthy.
type PgSearch struct {
	db *sql.DB
}

func NewPgSearch(db *sql.DB) *PgSearch {
	return &PgSearch{db: db}
}

func (p *PgSearch) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	pattern := "%" + escapeLike(q.Text) + "%"

	var subQueries []string
	if q.FilterType == "" || q.FilterType == ResultBoard {
		subQueries = append(subQueries, `
			SELECT 'board'::text AS type, b.id, b.title, b.description AS snippet,
				b.id AS board_id, ''::text AS list_id, b.updated_at
			FROM boards b
			WHERE b.owner_id = $1 AND (b.title ILIKE $2 OR b.description ILIKE $2)`)
	}
	if q.FilterType == "" || q.FilterType == ResultCard {
		subQueries = append(subQueries, `
			SELECT 'card'::text AS type, c.id, c.title, c.description AS snippet,
				l.board_id, c.list_id, c.updated_at
			FROM cards c
			JOIN lists l ON l.id = c.list_id
			WHERE c.owner_id = $1 AND (c.title ILIKE $2 OR c.description ILIKE $2)`)
	}
	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	query := "SELECT type, id, title, snippet, board_id, list_id FROM (" +
		strings.Join(subQueries, " UNION ALL ") +
		") AS hits ORDER BY updated_at DESC LIMIT $3 OFFSET $4"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, query, q.OwnerID, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.BoardID, &r.ListID); err != nil {
			return nil, 0, err
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}
	return results, len(results), rows.Err()
}

func escapeLike(text string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(text)
}
