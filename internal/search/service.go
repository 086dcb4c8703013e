package search

import "log"

// Service is the facade: Meilisearch when healthy, Postgres scan otherwise.
// Index writes are fire-and-forget so a slow engine never blocks a mutation.
type Service struct {
	meili *Meili
	pg    *PgSearch
}

// NewService creates the facade. meili may be nil when Meilisearch is not
// configured.
func NewService(meili *Meili, pg *PgSearch) *Service {
	return &Service{meili: meili, pg: pg}
}

func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to postgres: %v", err)
	}

	results, total, err := s.pg.Search(q)
	if err != nil {
		log.Printf("search: postgres fallback error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

func (s *Service) IndexBoard(id, title, description, ownerID string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	record := BoardRecord{ID: id, Title: title, Description: description, OwnerID: ownerID}
	go func() {
		if err := s.meili.IndexBoard(record); err != nil {
			log.Printf("search: index board %s: %v", id, err)
		}
	}()
}

func (s *Service) IndexCard(id, title, description, listID, boardID, ownerID string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	record := CardRecord{ID: id, Title: title, Description: description, ListID: listID, BoardID: boardID, OwnerID: ownerID}
	go func() {
		if err := s.meili.IndexCard(record); err != nil {
			log.Printf("search: index card %s: %v", id, err)
		}
	}()
}

func (s *Service) RemoveBoard(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteBoard(id); err != nil {
			log.Printf("search: delete board %s: %v", id, err)
		}
	}()
}

func (s *Service) RemoveCard(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteCard(id); err != nil {
			log.Printf("search: delete card %s: %v", id, err)
		}
	}()
}

// Reindex bulk-loads records into Meilisearch, used at startup to catch up
// after downtime.
func (s *Service) Reindex(boards []BoardRecord, cards []CardRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	if err := s.meili.IndexBoards(boards); err != nil {
		log.Printf("search: reindex boards: %v", err)
	}
	if err := s.meili.IndexCards(cards); err != nil {
		log.Printf("search: reindex cards: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
