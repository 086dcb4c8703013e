package app

import (
	"context"
	"fmt"

	"tackboard/api/internal/export"
	"tackboard/api/internal/store"
)

// ExportData exposes the read surface the PDF exporter consumes.
func (s *Service) ExportData() export.DataStore {
	return exportStore{s}
}

type exportStore struct {
	s *Service
}

func (e exportStore) BoardForExport(ctx context.Context, boardID string) (export.BoardInfo, error) {
	board, err := e.s.GetBoard(ctx, boardID)
	if err != nil {
		return export.BoardInfo{}, err
	}
	ownerName := ""
	if owner, err := e.s.store.GetUserByID(ctx, board.OwnerID); err == nil {
		ownerName = owner.DisplayName
	}
	return export.BoardInfo{
		ID:          board.ID,
		Title:       board.Title,
		Description: board.Description,
		OwnerName:   ownerName,
		UpdatedAt:   board.UpdatedAt,
	}, nil
}

func (e exportStore) ListsForExport(ctx context.Context, boardID string) ([]export.ListInfo, error) {
	lists, err := e.s.GetLists(ctx, boardID)
	if err != nil {
		return nil, err
	}
	out := make([]export.ListInfo, 0, len(lists))
	for _, list := range lists {
		info := export.ListInfo{Title: list.Title, Cards: make([]export.CardInfo, 0, len(list.Cards))}
		for _, card := range list.Cards {
			info.Cards = append(info.Cards, export.CardInfo{Title: card.Title, Description: card.Description})
		}
		out = append(out, info)
	}
	return out, nil
}

func (e exportStore) ActivitiesForExport(ctx context.Context, boardID string, limit int) ([]export.ActivityInfo, error) {
	activities, err := e.s.store.ListActivitiesByBoard(ctx, boardID, limit)
	if err != nil {
		return nil, err
	}
	names := map[string]string{}
	out := make([]export.ActivityInfo, 0, len(activities))
	for _, activity := range activities {
		name, ok := names[activity.UserID]
		if !ok {
			if user, err := e.s.store.GetUserByID(ctx, activity.UserID); err == nil {
				name = user.DisplayName
			} else {
				name = "someone"
			}
			names[activity.UserID] = name
		}
		out = append(out, export.ActivityInfo{
			Text:      describeActivity(activity, name),
			CreatedAt: activity.CreatedAt,
		})
	}
	return out, nil
}

// describeActivity turns a trail row into the sentence the feed shows.
func describeActivity(a store.Activity, actorName string) string {
	switch a.TypeOfActivity {
	case activityAdded:
		if a.Destination != "" {
			return fmt.Sprintf("%s added %s %q to %s", actorName, a.DocumentType, a.ValueOfActivity, a.Destination)
		}
		return fmt.Sprintf("%s added %s %q", actorName, a.DocumentType, a.ValueOfActivity)
	case activityRenamed:
		return fmt.Sprintf("%s renamed %s %s from %q to %q", actorName, a.DocumentType, a.PropertyChanged, a.PreviousPropertyValue, a.ValueOfActivity)
	case activityChanged:
		return fmt.Sprintf("%s changed %s %s from %q to %q", actorName, a.DocumentType, a.PropertyChanged, a.PreviousPropertyValue, a.ValueOfActivity)
	case activityDeleted:
		if a.Source != "" {
			return fmt.Sprintf("%s deleted %s %q from %s", actorName, a.DocumentType, a.ValueOfActivity, a.Source)
		}
		return fmt.Sprintf("%s deleted %s %q", actorName, a.DocumentType, a.ValueOfActivity)
	case activityMoved:
		return fmt.Sprintf("%s moved %s %q from %s to %s", actorName, a.DocumentType, a.ValueOfActivity, a.Source, a.Destination)
	case activityCopied:
		return fmt.Sprintf("%s copied %s %q from %s to %s", actorName, a.DocumentType, a.ValueOfActivity, a.Source, a.Destination)
	default:
		return fmt.Sprintf("%s updated %s %q", actorName, a.DocumentType, a.ValueOfActivity)
	}
}
