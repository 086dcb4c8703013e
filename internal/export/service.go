package export

import (
	"context"
	"fmt"
	"time"
)

// DataStore is the slice of board data the exporter needs.
type DataStore interface {
	BoardForExport(ctx context.Context, boardID string) (BoardInfo, error)
	ListsForExport(ctx context.Context, boardID string) ([]ListInfo, error)
	ActivitiesForExport(ctx context.Context, boardID string, limit int) ([]ActivityInfo, error)
}

type Service struct {
	store DataStore
}

func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// ExportBoard renders the board and its trail as a PDF.
func (s *Service) ExportBoard(ctx context.Context, boardID string, includeActivity bool) (*Result, error) {
	board, err := s.store.BoardForExport(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("load board %s: %w", boardID, err)
	}
	lists, err := s.store.ListsForExport(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("load lists for %s: %w", boardID, err)
	}

	var activities []ActivityInfo
	if includeActivity {
		activities, err = s.store.ActivitiesForExport(ctx, boardID, 50)
		if err != nil {
			return nil, fmt.Errorf("load activities for %s: %w", boardID, err)
		}
	}

	html, err := RenderBoardHTML(TemplateData{
		Board:      board,
		Lists:      lists,
		Activities: activities,
		Exported:   time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("render board %s: %w", boardID, err)
	}
	return exportPDF(html, board.Title)
}
