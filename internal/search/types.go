// Package search indexes boards and cards for the board switcher. It tries
// Meilisearch first and falls back to a Postgres ILIKE scan when the engine
// is unreachable.
package search

type ResultType string

const (
	ResultBoard ResultType = "board"
	ResultCard  ResultType = "card"
)

// Query is always scoped to one owner; search never leaks across accounts.
type Query struct {
	Text       string
	OwnerID    string
	FilterType ResultType
	Limit      int
	Offset     int
}

type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	BoardID string     `json:"boardId"`
	ListID  string     `json:"listId,omitempty"`
}

type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// BoardRecord is the document shape stored in the boards index.
type BoardRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	OwnerID     string `json:"ownerId"`
}

// CardRecord is the document shape stored in the cards index.
type CardRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ListID      string `json:"listId"`
	BoardID     string `json:"boardId"`
	OwnerID     string `json:"ownerId"`
}
