package projection

import (
	"reflect"
	"testing"
)

func boardFixture() Snapshot {
	s := NewSnapshot()
	InsertList{List: List{ID: "lst_a", Title: "Doing", BoardID: "brd_1"}}.apply(&s)
	InsertList{List: List{ID: "lst_b", Title: "Done", BoardID: "brd_1"}}.apply(&s)
	InsertCard{Card: Card{ID: "crd_1", Title: "Fix login", ListID: "lst_a"}}.apply(&s)
	InsertCard{Card: Card{ID: "crd_2", Title: "Write docs", ListID: "lst_a"}}.apply(&s)
	s.renumber()
	return s
}

func TestApplyIsOptimistic(t *testing.T) {
	cache := NewCache(boardFixture())

	view := cache.Apply("op-1", MoveCard{CardID: "crd_1", ToListID: "lst_b", Position: 1})
	if !reflect.DeepEqual(view.Lists["lst_b"].CardIDs, []string{"crd_1"}) {
		t.Fatalf("destination: %v", view.Lists["lst_b"].CardIDs)
	}
	if !reflect.DeepEqual(view.Lists["lst_a"].CardIDs, []string{"crd_2"}) {
		t.Fatalf("source: %v", view.Lists["lst_a"].CardIDs)
	}
	if view.Cards["crd_2"].Index != 1 {
		t.Fatalf("source gap not closed: %+v", view.Cards["crd_2"])
	}
}

func TestRollbackRestoresConfirmedState(t *testing.T) {
	cache := NewCache(boardFixture())
	cache.Apply("op-1", MoveCard{CardID: "crd_1", ToListID: "lst_b", Position: 1})

	view := cache.Rollback("op-1")
	if !reflect.DeepEqual(view.Lists["lst_a"].CardIDs, []string{"crd_1", "crd_2"}) {
		t.Fatalf("source not restored: %v", view.Lists["lst_a"].CardIDs)
	}
	if len(view.Lists["lst_b"].CardIDs) != 0 {
		t.Fatalf("destination not restored: %v", view.Lists["lst_b"].CardIDs)
	}
}

func TestRollbackKeepsLaterPendingOps(t *testing.T) {
	cache := NewCache(boardFixture())
	cache.Apply("op-1", MoveCard{CardID: "crd_1", ToListID: "lst_b", Position: 1})
	cache.Apply("op-2", InsertCard{Card: Card{ID: "crd_3", Title: "Ship it", ListID: "lst_a"}})

	view := cache.Rollback("op-1")
	if !reflect.DeepEqual(view.Lists["lst_a"].CardIDs, []string{"crd_1", "crd_2", "crd_3"}) {
		t.Fatalf("later op lost: %v", view.Lists["lst_a"].CardIDs)
	}
}

func TestConfirmFoldsIntoSnapshot(t *testing.T) {
	cache := NewCache(boardFixture())
	cache.Apply("op-1", RemoveCard{CardID: "crd_2"})

	view := cache.Confirm("op-1")
	if _, ok := view.Cards["crd_2"]; ok {
		t.Fatal("card still present after confirm")
	}
	// Confirmed state survives a rollback of an unknown op.
	view = cache.Rollback("op-1")
	if _, ok := view.Cards["crd_2"]; ok {
		t.Fatal("confirm was not durable")
	}
}

func TestRemoveListDropsItsCards(t *testing.T) {
	cache := NewCache(boardFixture())
	view := cache.Apply("op-1", RemoveList{ListID: "lst_a"})
	if _, ok := view.Cards["crd_1"]; ok {
		t.Fatal("cards should go with the list")
	}
	if !reflect.DeepEqual(view.ListOrder, []string{"lst_b"}) {
		t.Fatalf("order: %v", view.ListOrder)
	}
	if view.Lists["lst_b"].Index != 1 {
		t.Fatalf("remaining list not renumbered: %+v", view.Lists["lst_b"])
	}
}

func TestMoveListReorders(t *testing.T) {
	cache := NewCache(boardFixture())
	view := cache.Apply("op-1", MoveList{ListID: "lst_b", Position: 1})
	if !reflect.DeepEqual(view.ListOrder, []string{"lst_b", "lst_a"}) {
		t.Fatalf("order: %v", view.ListOrder)
	}
	if view.Lists["lst_a"].Index != 2 {
		t.Fatalf("index: %+v", view.Lists["lst_a"])
	}
}

func TestViewDoesNotAliasInternalState(t *testing.T) {
	cache := NewCache(boardFixture())
	view := cache.View()
	view.Lists["lst_a"] = List{ID: "lst_a", Title: "mutated"}
	view.ListOrder[0] = "bogus"

	fresh := cache.View()
	if fresh.Lists["lst_a"].Title != "Doing" || fresh.ListOrder[0] != "lst_a" {
		t.Fatal("returned snapshot aliases cache state")
	}
}

func TestResetDiscardsPending(t *testing.T) {
	cache := NewCache(boardFixture())
	cache.Apply("op-1", RemoveCard{CardID: "crd_1"})

	view := cache.Reset(boardFixture())
	if _, ok := view.Cards["crd_1"]; !ok {
		t.Fatal("reset should discard the pending removal")
	}
}
