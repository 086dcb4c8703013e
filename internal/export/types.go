// Package export renders a board to HTML and prints it to PDF through
// headless Chrome.
package export

import (
	"errors"
	"time"
)

// BoardInfo holds board metadata for export.
type BoardInfo struct {
	ID          string
	Title       string
	Description string
	OwnerName   string
	UpdatedAt   time.Time
}

// ListInfo is one column with its cards, already in index order.
type ListInfo struct {
	Title string
	Cards []CardInfo
}

type CardInfo struct {
	Title       string
	Description string
}

// ActivityInfo is one trail entry, newest first.
type ActivityInfo struct {
	Text      string
	CreatedAt time.Time
}

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// ErrPDFDependencyMissing indicates the headless Chrome runtime is not
// installed.
var ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
