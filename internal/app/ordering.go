package app

import "tackboard/api/internal/store"

// Ordering plans. Lists on a board and cards in a list carry a dense 1..N
// index. Every mutation computes the desired sibling ordering as a plain id
// slice, then diffs it against the stored indexes so the store writes only
// the rows that actually change. A parent's changed rows go out as one
// batched statement; for cross-parent moves the source parent is written
// first and the receiving parent last, so an interrupted move loses the
// entity from the source ordering instead of duplicating it.

// positionOrAppend validates a requested 1-based position against the
// destination's current child count. Zero means "append".
func positionOrAppend(count, requested int) (int, error) {
	if requested == 0 {
		return count + 1, nil
	}
	if requested < 1 || requested > count+1 {
		return 0, invalidPositionError(requested, count)
	}
	return requested, nil
}

// planInsert places id at pos in the ordering, shifting later siblings up.
// pos must already be validated.
func planInsert(order []string, id string, pos int) []string {
	next := make([]string, 0, len(order)+1)
	next = append(next, order[:pos-1]...)
	next = append(next, id)
	next = append(next, order[pos-1:]...)
	return next
}

// planRemove drops id from the ordering. The renumbering that closes the gap
// falls out of assignmentsFor.
func planRemove(order []string, id string) []string {
	next := make([]string, 0, len(order))
	for _, other := range order {
		if other != id {
			next = append(next, other)
		}
	}
	return next
}

// planMove computes both orderings for moving id into dstOrder at pos. When
// the source and destination parent are the same, the move degrades to a
// within-parent reorder and the source plan is nil.
func planMove(srcOrder, dstOrder []string, id string, pos int, sameParent bool) (src, dst []string, err error) {
	if sameParent {
		without := planRemove(srcOrder, id)
		pos, err = positionOrAppend(len(without), pos)
		if err != nil {
			return nil, nil, err
		}
		return nil, planInsert(without, id, pos), nil
	}
	pos, err = positionOrAppend(len(dstOrder), pos)
	if err != nil {
		return nil, nil, err
	}
	return planRemove(srcOrder, id), planInsert(dstOrder, id, pos), nil
}

// assignmentsFor renumbers the desired ordering 1..N and returns only the
// entries whose stored index differs. Ids in force are always included even
// when the numeric index happens to match, because the same write also
// reassigns their parent.
func assignmentsFor(order []string, current map[string]int, force ...string) []store.IndexAssignment {
	forced := make(map[string]bool, len(force))
	for _, id := range force {
		forced[id] = true
	}
	assignments := make([]store.IndexAssignment, 0, len(order))
	for i, id := range order {
		index := i + 1
		if stored, ok := current[id]; ok && stored == index && !forced[id] {
			continue
		}
		assignments = append(assignments, store.IndexAssignment{ID: id, Index: index})
	}
	return assignments
}

// cardOrdering projects stored cards (already sorted by index) into the id
// slice and index map the planners work on.
func cardOrdering(cards []store.Card) ([]string, map[string]int) {
	order := make([]string, len(cards))
	current := make(map[string]int, len(cards))
	for i, card := range cards {
		order[i] = card.ID
		current[card.ID] = card.Index
	}
	return order, current
}

func listOrdering(lists []store.List) ([]string, map[string]int) {
	order := make([]string, len(lists))
	current := make(map[string]int, len(lists))
	for i, list := range lists {
		order[i] = list.ID
		current[list.ID] = list.Index
	}
	return order, current
}

// repairAssignments detects a non-dense stored ordering (a crashed move or
// interleaved writes) and returns the resequencing that heals it. Reads apply
// this opportunistically; an empty result means the invariant already holds.
func repairAssignments(order []string, current map[string]int) []store.IndexAssignment {
	for i, id := range order {
		if current[id] != i+1 {
			return assignmentsFor(order, current)
		}
	}
	return nil
}
