// Package projection maintains the client-facing view of a board: a
// normalized snapshot plus a log of optimistic commands. Mutations apply
// locally first; once the server confirms, the command folds into the
// confirmed snapshot, and on failure it rolls back without disturbing later
// commands.
package projection

import "sync"

type Card struct {
	ID          string
	Title       string
	Description string
	ListID      string
	Index       int
}

type List struct {
	ID      string
	Title   string
	BoardID string
	Index   int
	CardIDs []string
}

// Snapshot is a normalized board view. Values returned from the cache are
// deep copies; callers can hold them across later mutations.
type Snapshot struct {
	ListOrder []string
	Lists     map[string]List
	Cards     map[string]Card
}

func NewSnapshot() Snapshot {
	return Snapshot{Lists: map[string]List{}, Cards: map[string]Card{}}
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		ListOrder: append([]string(nil), s.ListOrder...),
		Lists:     make(map[string]List, len(s.Lists)),
		Cards:     make(map[string]Card, len(s.Cards)),
	}
	for id, list := range s.Lists {
		list.CardIDs = append([]string(nil), list.CardIDs...)
		out.Lists[id] = list
	}
	for id, card := range s.Cards {
		out.Cards[id] = card
	}
	return out
}

// renumber restores dense 1..N indexes after structural commands.
func (s *Snapshot) renumber() {
	for i, id := range s.ListOrder {
		list := s.Lists[id]
		list.Index = i + 1
		s.Lists[id] = list
	}
	for _, list := range s.Lists {
		for i, cardID := range list.CardIDs {
			card := s.Cards[cardID]
			card.Index = i + 1
			card.ListID = list.ID
			s.Cards[cardID] = card
		}
	}
}

// Command is one structural edit of the snapshot.
type Command interface {
	apply(s *Snapshot)
}

type InsertList struct {
	List     List
	Position int // 0 appends
}

func (c InsertList) apply(s *Snapshot) {
	list := c.List
	list.CardIDs = append([]string(nil), list.CardIDs...)
	s.Lists[list.ID] = list
	s.ListOrder = insertAt(removeFrom(s.ListOrder, list.ID), list.ID, c.Position)
}

type RemoveList struct {
	ListID string
}

func (c RemoveList) apply(s *Snapshot) {
	if list, ok := s.Lists[c.ListID]; ok {
		for _, cardID := range list.CardIDs {
			delete(s.Cards, cardID)
		}
	}
	delete(s.Lists, c.ListID)
	s.ListOrder = removeFrom(s.ListOrder, c.ListID)
}

type MoveList struct {
	ListID   string
	Position int
}

func (c MoveList) apply(s *Snapshot) {
	if _, ok := s.Lists[c.ListID]; !ok {
		return
	}
	s.ListOrder = insertAt(removeFrom(s.ListOrder, c.ListID), c.ListID, c.Position)
}

type InsertCard struct {
	Card     Card
	Position int
}

func (c InsertCard) apply(s *Snapshot) {
	list, ok := s.Lists[c.Card.ListID]
	if !ok {
		return
	}
	s.Cards[c.Card.ID] = c.Card
	list.CardIDs = insertAt(removeFrom(list.CardIDs, c.Card.ID), c.Card.ID, c.Position)
	s.Lists[c.Card.ListID] = list
}

type RemoveCard struct {
	CardID string
}

func (c RemoveCard) apply(s *Snapshot) {
	card, ok := s.Cards[c.CardID]
	if !ok {
		return
	}
	if list, ok := s.Lists[card.ListID]; ok {
		list.CardIDs = removeFrom(list.CardIDs, c.CardID)
		s.Lists[card.ListID] = list
	}
	delete(s.Cards, c.CardID)
}

type MoveCard struct {
	CardID   string
	ToListID string
	Position int
}

func (c MoveCard) apply(s *Snapshot) {
	card, ok := s.Cards[c.CardID]
	if !ok {
		return
	}
	dest, ok := s.Lists[c.ToListID]
	if !ok {
		return
	}
	if source, ok := s.Lists[card.ListID]; ok && card.ListID != c.ToListID {
		source.CardIDs = removeFrom(source.CardIDs, c.CardID)
		s.Lists[card.ListID] = source
		dest = s.Lists[c.ToListID]
	}
	dest.CardIDs = insertAt(removeFrom(dest.CardIDs, c.CardID), c.CardID, c.Position)
	s.Lists[c.ToListID] = dest
	card.ListID = c.ToListID
	s.Cards[c.CardID] = card
}

func insertAt(ids []string, id string, position int) []string {
	if position < 1 || position > len(ids)+1 {
		return append(ids, id)
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:position-1]...)
	out = append(out, id)
	out = append(out, ids[position-1:]...)
	return out
}

func removeFrom(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, other := range ids {
		if other != id {
			out = append(out, other)
		}
	}
	return out
}

type pendingOp struct {
	id       string
	commands []Command
}

// Cache holds the confirmed snapshot plus the in-flight command log.
type Cache struct {
	mu        sync.Mutex
	confirmed Snapshot
	pending   []pendingOp
}

func NewCache(confirmed Snapshot) *Cache {
	return &Cache{confirmed: confirmed.clone()}
}

// Apply records an optimistic operation and returns the projected view with
// every pending operation replayed on top of the confirmed snapshot.
func (c *Cache) Apply(opID string, commands ...Command) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, pendingOp{id: opID, commands: commands})
	return c.projectLocked()
}

// Confirm folds an acknowledged operation into the confirmed snapshot.
// Out-of-order confirmations are fine; only the named op moves.
func (c *Cache) Confirm(opID string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, op := range c.pending {
		if op.id != opID {
			continue
		}
		for _, command := range op.commands {
			command.apply(&c.confirmed)
		}
		c.confirmed.renumber()
		c.pending = append(c.pending[:i], c.pending[i+1:]...)
		break
	}
	return c.projectLocked()
}

// Rollback drops a rejected operation. Later pending operations stay queued
// and are replayed against the restored state.
func (c *Cache) Rollback(opID string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, op := range c.pending {
		if op.id == opID {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			break
		}
	}
	return c.projectLocked()
}

// View returns the current projection without changing the log.
func (c *Cache) View() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectLocked()
}

// Reset replaces the confirmed snapshot from a server refetch and discards
// the pending log.
func (c *Cache) Reset(confirmed Snapshot) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirmed = confirmed.clone()
	c.pending = nil
	return c.projectLocked()
}

func (c *Cache) projectLocked() Snapshot {
	view := c.confirmed.clone()
	for _, op := range c.pending {
		for _, command := range op.commands {
			command.apply(&view)
		}
	}
	view.renumber()
	return view
}
