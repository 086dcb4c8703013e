package store

import "time"

type User struct {
	ID           string
	DisplayName  string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type Board struct {
	ID              string
	Title           string
	Description     string
	BackgroundImage string
	Favorite        bool
	OwnerID         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// List is an ordered column on a board. Index is 1-based and dense within
// the set of lists sharing one board.
type List struct {
	ID        string
	Title     string
	BoardID   string
	OwnerID   string
	Index     int
	CreatedAt time.Time
	UpdatedAt time.Time
	// Populated by ListListsByBoard, not a column
	Cards []Card
}

// Card index is 1-based and dense within its list.
type Card struct {
	ID          string
	Title       string
	Description string
	ListID      string
	OwnerID     string
	Index       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CardWithBoard carries the owning board id alongside the card, for search
// index rebuilds.
type CardWithBoard struct {
	Card
	BoardID string
}

// Activity is append-only: rows are inserted once and never updated.
type Activity struct {
	ID                    string
	DocumentType          string // board | list | card
	TypeOfActivity        string // added | renamed | changed | deleted | moved | copied
	ValueOfActivity       string
	PreviousPropertyValue string
	PropertyChanged       string
	Source                string
	Destination           string
	UserID                string
	BoardID               string
	ListID                string
	CardID                string
	CreatedAt             time.Time
}

// IndexAssignment pairs an entity id with its new sibling index. A parent's
// assignments are applied in a single statement so readers never see a
// half-renumbered ordering from one operation.
type IndexAssignment struct {
	ID    string
	Index int
}
