package app

import (
	"strconv"

	"tackboard/api/internal/store"
	"tackboard/api/internal/util"
)

// Activity recorder. Every semantic mutation produces exactly one activity
// row, written after the primary mutation persisted. Field updates are
// diffed across an ordered probe table per document type; the first watched
// field that differs wins, and simultaneous lower-priority edits are not
// recorded separately.

const (
	documentBoard = "board"
	documentList  = "list"
	documentCard  = "card"

	activityAdded   = "added"
	activityRenamed = "renamed"
	activityChanged = "changed"
	activityDeleted = "deleted"
	activityMoved   = "moved"
	activityCopied  = "copied"
)

type fieldChange struct {
	property string
	previous string
	next     string
	kind     string
}

var boardProbes = []struct {
	name  string
	value func(store.Board) string
}{
	{"title", func(b store.Board) string { return b.Title }},
	{"description", func(b store.Board) string { return b.Description }},
	{"background image", func(b store.Board) string { return b.BackgroundImage }},
	{"favorite", func(b store.Board) string { return strconv.FormatBool(b.Favorite) }},
}

var cardProbes = []struct {
	name  string
	value func(store.Card) string
}{
	{"title", func(c store.Card) string { return c.Title }},
	{"description", func(c store.Card) string { return c.Description }},
}

func diffBoard(before, after store.Board) (fieldChange, bool) {
	for _, probe := range boardProbes {
		prev, next := probe.value(before), probe.value(after)
		if prev != next {
			return fieldChange{property: probe.name, previous: prev, next: next, kind: changeKind(probe.name)}, true
		}
	}
	return fieldChange{}, false
}

func diffList(before, after store.List) (fieldChange, bool) {
	if before.Title != after.Title {
		return fieldChange{property: "title", previous: before.Title, next: after.Title, kind: activityRenamed}, true
	}
	return fieldChange{}, false
}

func diffCard(before, after store.Card) (fieldChange, bool) {
	for _, probe := range cardProbes {
		prev, next := probe.value(before), probe.value(after)
		if prev != next {
			return fieldChange{property: probe.name, previous: prev, next: next, kind: changeKind(probe.name)}, true
		}
	}
	return fieldChange{}, false
}

func changeKind(property string) string {
	if property == "title" {
		return activityRenamed
	}
	return activityChanged
}

// activityRefs carries enough entity references for board- and list-scoped
// feed queries.
type activityRefs struct {
	boardID string
	listID  string
	cardID  string
}

func changeActivity(docType string, change fieldChange, actorID string, refs activityRefs) store.Activity {
	return store.Activity{
		ID:                    util.NewID("act"),
		DocumentType:          docType,
		TypeOfActivity:        change.kind,
		ValueOfActivity:       change.next,
		PreviousPropertyValue: change.previous,
		PropertyChanged:       change.property,
		UserID:                actorID,
		BoardID:               refs.boardID,
		ListID:                refs.listID,
		CardID:                refs.cardID,
	}
}

func addedActivity(docType, title, destination, actorID string, refs activityRefs) store.Activity {
	return store.Activity{
		ID:              util.NewID("act"),
		DocumentType:    docType,
		TypeOfActivity:  activityAdded,
		ValueOfActivity: title,
		Destination:     destination,
		UserID:          actorID,
		BoardID:         refs.boardID,
		ListID:          refs.listID,
		CardID:          refs.cardID,
	}
}

func deletedActivity(docType, title, source, actorID string, refs activityRefs) store.Activity {
	return store.Activity{
		ID:              util.NewID("act"),
		DocumentType:    docType,
		TypeOfActivity:  activityDeleted,
		ValueOfActivity: title,
		Source:          source,
		UserID:          actorID,
		BoardID:         refs.boardID,
		ListID:          refs.listID,
		CardID:          refs.cardID,
	}
}

// movedActivity covers both moved and copied records; source and destination
// are the human-readable parent titles (list titles for cards, board titles
// for lists).
func movedActivity(docType, kind, title, source, destination, actorID string, refs activityRefs) store.Activity {
	return store.Activity{
		ID:              util.NewID("act"),
		DocumentType:    docType,
		TypeOfActivity:  kind,
		ValueOfActivity: title,
		Source:          source,
		Destination:     destination,
		UserID:          actorID,
		BoardID:         refs.boardID,
		ListID:          refs.listID,
		CardID:          refs.cardID,
	}
}
