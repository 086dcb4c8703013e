package app

import (
	"testing"

	"tackboard/api/internal/store"
)

func TestDiffBoardFirstDifferingFieldWins(t *testing.T) {
	before := store.Board{Title: "Roadmap", Description: "old", Favorite: false}
	after := store.Board{Title: "Roadmap 2026", Description: "new", Favorite: true}

	change, ok := diffBoard(before, after)
	if !ok {
		t.Fatal("expected a change")
	}
	if change.property != "title" {
		t.Fatalf("title outranks the other fields, got %q", change.property)
	}
	if change.kind != activityRenamed {
		t.Fatalf("title change must be a rename, got %q", change.kind)
	}
	if change.previous != "Roadmap" || change.next != "Roadmap 2026" {
		t.Fatalf("values: %+v", change)
	}
}

func TestDiffBoardFavoriteToggleIsStringified(t *testing.T) {
	before := store.Board{Title: "Roadmap", Favorite: false}
	after := store.Board{Title: "Roadmap", Favorite: true}

	change, ok := diffBoard(before, after)
	if !ok {
		t.Fatal("expected a change")
	}
	if change.property != "favorite" || change.kind != activityChanged {
		t.Fatalf("got %+v", change)
	}
	if change.previous != "false" || change.next != "true" {
		t.Fatalf("favorite values must be stringified booleans: %+v", change)
	}
}

func TestDiffBoardNoChange(t *testing.T) {
	board := store.Board{Title: "Roadmap", Description: "d"}
	if _, ok := diffBoard(board, board); ok {
		t.Fatal("identical boards must not diff")
	}
}

func TestDiffBoardBackgroundImage(t *testing.T) {
	before := store.Board{Title: "Roadmap"}
	after := store.Board{Title: "Roadmap", BackgroundImage: "https://img.example/bg.png"}
	change, ok := diffBoard(before, after)
	if !ok || change.property != "background image" || change.kind != activityChanged {
		t.Fatalf("got %+v ok=%v", change, ok)
	}
}

func TestDiffCardDescriptionBehindTitle(t *testing.T) {
	before := store.Card{Title: "Fix login", Description: "old"}
	after := store.Card{Title: "Fix login", Description: "new"}
	change, ok := diffCard(before, after)
	if !ok || change.property != "description" || change.kind != activityChanged {
		t.Fatalf("got %+v ok=%v", change, ok)
	}
}

func TestDiffListTitleOnly(t *testing.T) {
	change, ok := diffList(store.List{Title: "Doing"}, store.List{Title: "In Review"})
	if !ok || change.kind != activityRenamed || change.previous != "Doing" {
		t.Fatalf("got %+v ok=%v", change, ok)
	}
}

func TestMovedActivityCarriesParentTitles(t *testing.T) {
	activity := movedActivity(documentCard, activityMoved, "Fix login", "Doing", "Done",
		"usr_1", activityRefs{boardID: "brd_1", listID: "lst_2", cardID: "crd_1"})
	if activity.Source != "Doing" || activity.Destination != "Done" {
		t.Fatalf("parent titles: %+v", activity)
	}
	if activity.TypeOfActivity != activityMoved || activity.DocumentType != documentCard {
		t.Fatalf("kind: %+v", activity)
	}
	if activity.BoardID != "brd_1" || activity.ListID != "lst_2" || activity.CardID != "crd_1" {
		t.Fatalf("refs: %+v", activity)
	}
}

func TestAddedAndDeletedActivitiesCarryEntityTitle(t *testing.T) {
	added := addedActivity(documentList, "Backlog", "Roadmap", "usr_1", activityRefs{boardID: "brd_1"})
	if added.ValueOfActivity != "Backlog" || added.Destination != "Roadmap" {
		t.Fatalf("added: %+v", added)
	}
	deleted := deletedActivity(documentCard, "Fix login", "Doing", "usr_1", activityRefs{boardID: "brd_1"})
	if deleted.ValueOfActivity != "Fix login" || deleted.Source != "Doing" {
		t.Fatalf("deleted: %+v", deleted)
	}
}
