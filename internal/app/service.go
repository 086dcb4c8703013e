package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"tackboard/api/internal/config"
	"tackboard/api/internal/store"
	"tackboard/api/internal/util"
)

// Actor is the authenticated user a mutation runs as.
type Actor struct {
	ID   string
	Name string
}

type dataStore interface {
	Ping(ctx context.Context) error

	GetUserByID(ctx context.Context, userID string) (store.User, error)

	ListBoardsByOwner(ctx context.Context, ownerID string) ([]store.Board, error)
	ListRecentBoards(ctx context.Context, ownerID string, limit int) ([]store.Board, error)
	GetBoard(ctx context.Context, boardID string) (store.Board, error)
	InsertBoard(ctx context.Context, item store.Board) error
	UpdateBoard(ctx context.Context, item store.Board) error
	TouchBoard(ctx context.Context, boardID string, viewedAt time.Time) error
	DeleteBoard(ctx context.Context, boardID string) error

	ListListsByBoard(ctx context.Context, boardID string) ([]store.List, error)
	GetList(ctx context.Context, listID string) (store.List, error)
	InsertList(ctx context.Context, item store.List) error
	UpdateListTitle(ctx context.Context, listID, title string) error
	DeleteList(ctx context.Context, listID string) error
	ApplyListIndexes(ctx context.Context, boardID string, assignments []store.IndexAssignment) error

	ListCardsByList(ctx context.Context, listID string) ([]store.Card, error)
	ListCardsByBoard(ctx context.Context, boardID string) ([]store.Card, error)
	GetCard(ctx context.Context, cardID string) (store.Card, error)
	InsertCard(ctx context.Context, item store.Card) error
	UpdateCardFields(ctx context.Context, cardID, title, description string) error
	DeleteCard(ctx context.Context, cardID string) error
	ApplyCardIndexes(ctx context.Context, listID string, assignments []store.IndexAssignment) error

	InsertActivity(ctx context.Context, item store.Activity) error
	ListActivitiesByBoard(ctx context.Context, boardID string, limit int) ([]store.Activity, error)
}

// searchIndex mirrors the search service surface the orchestrator feeds.
// A nil index disables search entirely.
type searchIndex interface {
	IndexBoard(id, title, description, ownerID string)
	IndexCard(id, title, description, listID, boardID, ownerID string)
	RemoveBoard(id string)
	RemoveCard(id string)
}

// backgroundStore removes stored board background objects. Nil disables the
// cleanup.
type backgroundStore interface {
	DeleteBackground(ctx context.Context, boardID string) error
}

type Service struct {
	cfg         config.Config
	store       dataStore
	search      searchIndex
	backgrounds backgroundStore
}

func New(cfg config.Config, dataStore *store.PostgresStore) *Service {
	return &Service{cfg: cfg, store: dataStore}
}

// WithSearch attaches the optional search index.
func (s *Service) WithSearch(index searchIndex) *Service {
	s.search = index
	return s
}

// WithBackgrounds attaches the optional background image store so board
// deletion can drop the stored object.
func (s *Service) WithBackgrounds(backgrounds backgroundStore) *Service {
	s.backgrounds = backgrounds
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func translateStoreErr(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFoundError(entity, id)
	}
	return err
}

func titleLength(title string) int {
	return utf8.RuneCountInString(title)
}

/* ------------------------------- boards -------------------------------- */

func (s *Service) ListBoards(ctx context.Context, actor Actor) ([]store.Board, error) {
	return s.store.ListBoardsByOwner(ctx, actor.ID)
}

func (s *Service) RecentBoards(ctx context.Context, actor Actor) ([]store.Board, error) {
	return s.store.ListRecentBoards(ctx, actor.ID, 5)
}

func (s *Service) GetBoard(ctx context.Context, boardID string) (store.Board, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return store.Board{}, translateStoreErr(err, "board", boardID)
	}
	return board, nil
}

type CreateBoardInput struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	BackgroundImage string `json:"backgroundImage"`
}

func (s *Service) CreateBoard(ctx context.Context, actor Actor, input CreateBoardInput) (store.Board, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return store.Board{}, validationError("title is required", nil)
	}
	if titleLength(title) > 50 {
		return store.Board{}, validationError("title can not be more than 50 characters", map[string]any{"field": "title"})
	}
	if titleLength(input.Description) > 500 {
		return store.Board{}, validationError("description can not be more than 500 characters", map[string]any{"field": "description"})
	}

	board := store.Board{
		ID:              util.NewID("brd"),
		Title:           title,
		Description:     strings.TrimSpace(input.Description),
		BackgroundImage: input.BackgroundImage,
		OwnerID:         actor.ID,
	}
	if err := s.store.InsertBoard(ctx, board); err != nil {
		return store.Board{}, err
	}

	activity := addedActivity(documentBoard, board.Title, "", actor.ID, activityRefs{boardID: board.ID})
	if err := s.store.InsertActivity(ctx, activity); err != nil {
		return store.Board{}, err
	}

	if s.search != nil {
		s.search.IndexBoard(board.ID, board.Title, board.Description, board.OwnerID)
	}
	return s.GetBoard(ctx, board.ID)
}

// UpdateBoardInput carries only the fields present in the request; nil means
// "leave alone".
type UpdateBoardInput struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	BackgroundImage *string `json:"backgroundImage"`
	Favorite        *bool   `json:"favorite"`
}

func (s *Service) UpdateBoard(ctx context.Context, actor Actor, boardID string, input UpdateBoardInput) (store.Board, error) {
	before, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return store.Board{}, translateStoreErr(err, "board", boardID)
	}
	if before.OwnerID != actor.ID {
		return store.Board{}, forbiddenError("board", boardID)
	}

	after := before
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return store.Board{}, validationError("title is required", nil)
		}
		if titleLength(title) > 50 {
			return store.Board{}, validationError("title can not be more than 50 characters", map[string]any{"field": "title"})
		}
		after.Title = title
	}
	if input.Description != nil {
		if titleLength(*input.Description) > 500 {
			return store.Board{}, validationError("description can not be more than 500 characters", map[string]any{"field": "description"})
		}
		after.Description = strings.TrimSpace(*input.Description)
	}
	if input.BackgroundImage != nil {
		after.BackgroundImage = *input.BackgroundImage
	}
	if input.Favorite != nil {
		after.Favorite = *input.Favorite
	}

	change, changed := diffBoard(before, after)
	if !changed {
		return before, nil
	}

	if err := s.store.UpdateBoard(ctx, after); err != nil {
		return store.Board{}, err
	}
	activity := changeActivity(documentBoard, change, actor.ID, activityRefs{boardID: boardID})
	if err := s.store.InsertActivity(ctx, activity); err != nil {
		return store.Board{}, err
	}

	if s.search != nil {
		s.search.IndexBoard(after.ID, after.Title, after.Description, after.OwnerID)
	}
	return s.GetBoard(ctx, boardID)
}

func (s *Service) DeleteBoard(ctx context.Context, actor Actor, boardID string) error {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return translateStoreErr(err, "board", boardID)
	}
	if board.OwnerID != actor.ID {
		return forbiddenError("board", boardID)
	}

	if err := s.store.DeleteBoard(ctx, boardID); err != nil {
		return err
	}
	// Trail outlives the board: the row references the deleted board id.
	activity := deletedActivity(documentBoard, board.Title, "", actor.ID, activityRefs{boardID: boardID})
	if err := s.store.InsertActivity(ctx, activity); err != nil {
		return err
	}

	if s.search != nil {
		s.search.RemoveBoard(boardID)
	}
	if s.backgrounds != nil {
		if err := s.backgrounds.DeleteBackground(ctx, boardID); err != nil {
			log.Printf("delete background for board %s: %v", boardID, err)
		}
	}
	return nil
}

// ViewBoard bumps updated_at so the board surfaces in the recent list. Not a
// semantic mutation, so no activity is recorded.
func (s *Service) ViewBoard(ctx context.Context, actor Actor, boardID string, viewedAt time.Time) (store.Board, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return store.Board{}, translateStoreErr(err, "board", boardID)
	}
	if board.OwnerID != actor.ID {
		return store.Board{}, forbiddenError("board", boardID)
	}
	if viewedAt.IsZero() {
		viewedAt = time.Now()
	}
	if err := s.store.TouchBoard(ctx, boardID, viewedAt); err != nil {
		return store.Board{}, err
	}
	return s.GetBoard(ctx, boardID)
}

/* -------------------------------- lists -------------------------------- */

// GetLists returns a board's lists in index order with their cards populated.
// A non-dense ordering (crashed move, interleaved writes) is resequenced in
// the response and repaired with one batched write per parent.
func (s *Service) GetLists(ctx context.Context, boardID string) ([]store.List, error) {
	lists, err := s.store.ListListsByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	order, current := listOrdering(lists)
	if repair := repairAssignments(order, current); len(repair) > 0 {
		if err := s.store.ApplyListIndexes(ctx, boardID, repair); err != nil {
			log.Printf("read-repair: list indexes for board %s: %v", boardID, err)
		}
		for i := range lists {
			lists[i].Index = i + 1
		}
	}

	cards, err := s.store.ListCardsByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	byList := make(map[string][]store.Card, len(lists))
	for _, card := range cards {
		byList[card.ListID] = append(byList[card.ListID], card)
	}
	for i := range lists {
		lists[i].Cards = s.repairedCards(ctx, lists[i].ID, byList[lists[i].ID])
	}
	return lists, nil
}

func (s *Service) repairedCards(ctx context.Context, listID string, cards []store.Card) []store.Card {
	if cards == nil {
		return []store.Card{}
	}
	order, current := cardOrdering(cards)
	if repair := repairAssignments(order, current); len(repair) > 0 {
		if err := s.store.ApplyCardIndexes(ctx, listID, repair); err != nil {
			log.Printf("read-repair: card indexes for list %s: %v", listID, err)
		}
		for i := range cards {
			cards[i].Index = i + 1
		}
	}
	return cards
}

func (s *Service) GetList(ctx context.Context, listID string) (store.List, error) {
	list, err := s.store.GetList(ctx, listID)
	if err != nil {
		return store.List{}, translateStoreErr(err, "list", listID)
	}
	cards, err := s.store.ListCardsByList(ctx, listID)
	if err != nil {
		return store.List{}, err
	}
	list.Cards = s.repairedCards(ctx, listID, cards)
	return list, nil
}

func validateListTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", validationError("title is required", nil)
	}
	if titleLength(title) > 50 {
		return "", validationError("title can not be more than 50 characters", map[string]any{"field": "title"})
	}
	return title, nil
}

func (s *Service) CreateList(ctx context.Context, actor Actor, boardID, title string) (store.List, error) {
	title, err := validateListTitle(title)
	if err != nil {
		return store.List{}, err
	}
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return store.List{}, translateStoreErr(err, "board", boardID)
	}
	if board.OwnerID != actor.ID {
		return store.List{}, forbiddenError("board", boardID)
	}

	siblings, err := s.store.ListListsByBoard(ctx, boardID)
	if err != nil {
		return store.List{}, err
	}
	list := store.List{
		ID:      util.NewID("lst"),
		Title:   title,
		BoardID: boardID,
		OwnerID: actor.ID,
		Index:   len(siblings) + 1,
	}
	if err := s.store.InsertList(ctx, list); err != nil {
		return store.List{}, err
	}

	activity := addedActivity(documentList, list.Title, board.Title, actor.ID, activityRefs{boardID: boardID, listID: list.ID})
	if err := s.store.InsertActivity(ctx, activity); err != nil {
		return store.List{}, err
	}
	list.Cards = []store.Card{}
	return list, nil
}

func (s *Service) EditList(ctx context.Context, actor Actor, listID, title string) (store.List, error) {
	title, err := validateListTitle(title)
	if err != nil {
		return store.List{}, err
	}
	before, err := s.store.GetList(ctx, listID)
	if err != nil {
		return store.List{}, translateStoreErr(err, "list", listID)
	}
	if before.OwnerID != actor.ID {
		return store.List{}, forbiddenError("list", listID)
	}

	after := before
	after.Title = title
	change, changed := diffList(before, after)
	if !changed {
		return before, nil
	}

	if err := s.store.UpdateListTitle(ctx, listID, title); err != nil {
		return store.List{}, err
	}
	activity := changeActivity(documentList, change, actor.ID, activityRefs{boardID: before.BoardID, listID: listID})
	if err := s.store.InsertActivity(ctx, activity); err != nil {
		return store.List{}, err
	}
	return s.store.GetList(ctx, listID)
}

func (s *Service) DeleteList(ctx context.Context, actor Actor, listID string) error {
	list, err := s.store.GetList(ctx, listID)
	if err != nil {
		return translateStoreErr(err, "list", listID)
	}
	if list.OwnerID != actor.ID {
		return forbiddenError("list", listID)
	}
	board, err := s.store.GetBoard(ctx, list.BoardID)
	if err != nil {
		return translateStoreErr(err, "board", list.BoardID)
	}

	siblings, err := s.store.ListListsByBoard(ctx, list.BoardID)
	if err != nil {
		return err
	}
	order, current := listOrdering(siblings)
	assignments := assignmentsFor(planRemove(order, listID), current)

	// Cards go with the list via the schema cascade.
	if err := s.store.DeleteList(ctx, listID); err != nil {
		return err
	}
	if err := s.store.ApplyListIndexes(ctx, list.BoardID, assignments); err != nil {
		return err
	}

	activity := deletedActivity(documentList, list.Title, board.Title, actor.ID, activityRefs{boardID: list.BoardID, listID: listID})
	return s.store.InsertActivity(ctx, activity)
}

// MoveList reassigns a list to another board. Position zero appends. Within
// one board this is a reorder; across boards the source ordering shrinks
// first and the receiving board (including the moved list) is written last.
func (s *Service) MoveList(ctx context.Context, actor Actor, listID, destBoardID string, position int) (store.List, error) {
	list, err := s.store.GetList(ctx, listID)
	if err != nil {
		return store.List{}, translateStoreErr(err, "list", listID)
	}
	if list.OwnerID != actor.ID {
		return store.List{}, forbiddenError("list", listID)
	}
	sourceBoard, err := s.store.GetBoard(ctx, list.BoardID)
	if err != nil {
		return store.List{}, translateStoreErr(err, "board", list.BoardID)
	}
	destBoard, err := s.store.GetBoard(ctx, destBoardID)
	if err != nil {
		return store.List{}, translateStoreErr(err, "board", destBoardID)
	}
	if destBoard.OwnerID != actor.ID {
		return store.List{}, forbiddenError("board", destBoardID)
	}

	sameBoard := destBoardID == list.BoardID
	srcSiblings, err := s.store.ListListsByBoard(ctx, list.BoardID)
	if err != nil {
		return store.List{}, err
	}
	srcOrder, srcCurrent := listOrdering(srcSiblings)

	var dstOrder []string
	dstCurrent := srcCurrent
	if !sameBoard {
		dstSiblings, err := s.store.ListListsByBoard(ctx, destBoardID)
		if err != nil {
			return store.List{}, err
		}
		dstOrder, dstCurrent = listOrdering(dstSiblings)
	}

	srcPlan, dstPlan, err := planMove(srcOrder, dstOrder, listID, position, sameBoard)
	if err != nil {
		return store.List{}, err
	}

	if srcPlan != nil {
		if err := s.store.ApplyListIndexes(ctx, list.BoardID, assignmentsFor(srcPlan, srcCurrent)); err != nil {
			return store.List{}, err
		}
	}
	if err := s.store.ApplyListIndexes(ctx, destBoardID, assignmentsFor(dstPlan, dstCurrent, listID)); err != nil {
		return store.List{}, err
	}

	if !sameBoard {
		activity := movedActivity(documentList, activityMoved, list.Title, sourceBoard.Title, destBoard.Title,
			actor.ID, activityRefs{boardID: destBoardID, listID: listID})
		if err := s.store.InsertActivity(ctx, activity); err != nil {
			return store.List{}, err
		}
	}
	return s.store.GetList(ctx, listID)
}

// CopyCardInput is the caller-supplied card set for CopyList, matching the
// copy dialog contract: the client sends the cards it wants duplicated.
type CopyCardInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Index       int    `json:"index"`
}

// CopyList duplicates a list (fresh identity, optional new title) onto the
// destination board, appended after its current lists. The source list and
// its trail are untouched.
func (s *Service) CopyList(ctx context.Context, actor Actor, listID, destBoardID, title string, cards []CopyCardInput) (store.List, error) {
	source, err := s.store.GetList(ctx, listID)
	if err != nil {
		return store.List{}, translateStoreErr(err, "list", listID)
	}
	if source.OwnerID != actor.ID {
		return store.List{}, forbiddenError("list", listID)
	}
	sourceBoard, err := s.store.GetBoard(ctx, source.BoardID)
	if err != nil {
		return store.List{}, translateStoreErr(err, "board", source.BoardID)
	}
	destBoard, err := s.store.GetBoard(ctx, destBoardID)
	if err != nil {
		return store.List{}, translateStoreErr(err, "board", destBoardID)
	}
	if destBoard.OwnerID != actor.ID {
		return store.List{}, forbiddenError("board", destBoardID)
	}

	if title == "" {
		title = source.Title
	}
	title, err = validateListTitle(title)
	if err != nil {
		return store.List{}, err
	}
	for i, input := range cards {
		cardTitle, err := validateCardFields(input.Title, input.Description)
		if err != nil {
			return store.List{}, err
		}
		cards[i].Title = cardTitle
		cards[i].Description = strings.TrimSpace(input.Description)
	}

	destSiblings, err := s.store.ListListsByBoard(ctx, destBoardID)
	if err != nil {
		return store.List{}, err
	}
	copied := store.List{
		ID:      util.NewID("lst"),
		Title:   title,
		BoardID: destBoardID,
		OwnerID: actor.ID,
		Index:   len(destSiblings) + 1,
	}
	if err := s.store.InsertList(ctx, copied); err != nil {
		return store.List{}, err
	}

	sort.SliceStable(cards, func(i, j int) bool { return cards[i].Index < cards[j].Index })
	newCards := make([]store.Card, 0, len(cards))
	for i, input := range cards {
		card := store.Card{
			ID:          util.NewID("crd"),
			Title:       input.Title,
			Description: input.Description,
			ListID:      copied.ID,
			OwnerID:     actor.ID,
			Index:       i + 1,
		}
		if err := s.store.InsertCard(ctx, card); err != nil {
			return store.List{}, err
		}
		if s.search != nil {
			s.search.IndexCard(card.ID, card.Title, card.Description, copied.ID, destBoardID, actor.ID)
		}
		newCards = append(newCards, card)
	}

	activity := movedActivity(documentList, activityCopied, source.Title, sourceBoard.Title, destBoard.Title,
		actor.ID, activityRefs{boardID: destBoardID, listID: copied.ID})
	if err := s.store.InsertActivity(ctx, activity); err != nil {
		return store.List{}, err
	}
	copied.Cards = newCards
	return copied, nil
}

/* -------------------------------- cards -------------------------------- */

func (s *Service) GetCards(ctx context.Context, listID string) ([]store.Card, error) {
	if _, err := s.store.GetList(ctx, listID); err != nil {
		return nil, translateStoreErr(err, "list", listID)
	}
	cards, err := s.store.ListCardsByList(ctx, listID)
	if err != nil {
		return nil, err
	}
	return s.repairedCards(ctx, listID, cards), nil
}

func (s *Service) GetCard(ctx context.Context, cardID string) (store.Card, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return store.Card{}, translateStoreErr(err, "card", cardID)
	}
	return card, nil
}

func validateCardFields(title, description string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", validationError("title is required", nil)
	}
	if titleLength(title) > 100 {
		return "", validationError("title can not be more than 100 characters", map[string]any{"field": "title"})
	}
	if titleLength(description) > 1000 {
		return "", validationError("description can not be more than 1000 characters", map[string]any{"field": "description"})
	}
	return title, nil
}

func (s *Service) CreateCard(ctx context.Context, actor Actor, listID, title, description string) (store.Card, error) {
	title, err := validateCardFields(title, description)
	if err != nil {
		return store.Card{}, err
	}
	list, err := s.store.GetList(ctx, listID)
	if err != nil {
		return store.Card{}, translateStoreErr(err, "list", listID)
	}
	if list.OwnerID != actor.ID {
		return store.Card{}, forbiddenError("list", listID)
	}

	siblings, err := s.store.ListCardsByList(ctx, listID)
	if err != nil {
		return store.Card{}, err
	}
	card := store.Card{
		ID:          util.NewID("crd"),
		Title:       title,
		Description: strings.TrimSpace(description),
		ListID:      listID,
		OwnerID:     actor.ID,
		Index:       len(siblings) + 1,
	}
	if err := s.store.InsertCard(ctx, card); err != nil {
		return store.Card{}, err
	}

	activity := addedActivity(documentCard, card.Title, list.Title, actor.ID,
		activityRefs{boardID: list.BoardID, listID: listID, cardID: card.ID})
	if err := s.store.InsertActivity(ctx, activity); err != nil {
		return store.Card{}, err
	}

	if s.search != nil {
		s.search.IndexCard(card.ID, card.Title, card.Description, listID, list.BoardID, actor.ID)
	}
	return card, nil
}

type EditCardInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (s *Service) EditCard(ctx context.Context, actor Actor, cardID string, input EditCardInput) (store.Card, error) {
	before, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return store.Card{}, translateStoreErr(err, "card", cardID)
	}
	if before.OwnerID != actor.ID {
		return store.Card{}, forbiddenError("card", cardID)
	}

	after := before
	if input.Title != nil {
		after.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		after.Description = strings.TrimSpace(*input.Description)
	}
	if _, err := validateCardFields(after.Title, after.Description); err != nil {
		return store.Card{}, err
	}

	change, changed := diffCard(before, after)
	if !changed {
		return before, nil
	}

	if err := s.store.UpdateCardFields(ctx, cardID, after.Title, after.Description); err != nil {
		return store.Card{}, err
	}
	list, err := s.store.GetList(ctx, before.ListID)
	if err != nil {
		return store.Card{}, translateStoreErr(err, "list", before.ListID)
	}
	activity := changeActivity(documentCard, change, actor.ID,
		activityRefs{boardID: list.BoardID, listID: before.ListID, cardID: cardID})
	if err := s.store.InsertActivity(ctx, activity); err != nil {
		return store.Card{}, err
	}

	if s.search != nil {
		s.search.IndexCard(cardID, after.Title, after.Description, before.ListID, list.BoardID, before.OwnerID)
	}
	return s.store.GetCard(ctx, cardID)
}

func (s *Service) DeleteCard(ctx context.Context, actor Actor, cardID string) error {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return translateStoreErr(err, "card", cardID)
	}
	if card.OwnerID != actor.ID {
		return forbiddenError("card", cardID)
	}
	list, err := s.store.GetList(ctx, card.ListID)
	if err != nil {
		return translateStoreErr(err, "list", card.ListID)
	}

	siblings, err := s.store.ListCardsByList(ctx, card.ListID)
	if err != nil {
		return err
	}
	order, current := cardOrdering(siblings)
	assignments := assignmentsFor(planRemove(order, cardID), current)

	if err := s.store.DeleteCard(ctx, cardID); err != nil {
		return err
	}
	if err := s.store.ApplyCardIndexes(ctx, card.ListID, assignments); err != nil {
		return err
	}

	activity := deletedActivity(documentCard, card.Title, list.Title, actor.ID,
		activityRefs{boardID: list.BoardID, listID: card.ListID, cardID: cardID})
	if err := s.store.InsertActivity(ctx, activity); err != nil {
		return err
	}

	if s.search != nil {
		s.search.RemoveCard(cardID)
	}
	return nil
}

// MoveCard places a card at position in the destination list (zero appends).
// Same-list moves are reorders and record no activity; cross-list moves
// record one moved activity naming both list titles.
func (s *Service) MoveCard(ctx context.Context, actor Actor, cardID, destListID string, position int) (store.Card, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return store.Card{}, translateStoreErr(err, "card", cardID)
	}
	if card.OwnerID != actor.ID {
		return store.Card{}, forbiddenError("card", cardID)
	}
	sourceList, err := s.store.GetList(ctx, card.ListID)
	if err != nil {
		return store.Card{}, translateStoreErr(err, "list", card.ListID)
	}
	destList := sourceList
	sameList := destListID == card.ListID
	if !sameList {
		destList, err = s.store.GetList(ctx, destListID)
		if err != nil {
			return store.Card{}, translateStoreErr(err, "list", destListID)
		}
	}
	if destList.OwnerID != actor.ID {
		return store.Card{}, forbiddenError("list", destListID)
	}

	srcSiblings, err := s.store.ListCardsByList(ctx, card.ListID)
	if err != nil {
		return store.Card{}, err
	}
	srcOrder, srcCurrent := cardOrdering(srcSiblings)

	var dstOrder []string
	dstCurrent := srcCurrent
	if !sameList {
		dstSiblings, err := s.store.ListCardsByList(ctx, destListID)
		if err != nil {
			return store.Card{}, err
		}
		dstOrder, dstCurrent = cardOrdering(dstSiblings)
	}

	srcPlan, dstPlan, err := planMove(srcOrder, dstOrder, cardID, position, sameList)
	if err != nil {
		return store.Card{}, err
	}

	if srcPlan != nil {
		if err := s.store.ApplyCardIndexes(ctx, card.ListID, assignmentsFor(srcPlan, srcCurrent)); err != nil {
			return store.Card{}, err
		}
	}
	if err := s.store.ApplyCardIndexes(ctx, destListID, assignmentsFor(dstPlan, dstCurrent, cardID)); err != nil {
		return store.Card{}, err
	}

	if !sameList {
		activity := movedActivity(documentCard, activityMoved, card.Title, sourceList.Title, destList.Title,
			actor.ID, activityRefs{boardID: destList.BoardID, listID: destListID, cardID: cardID})
		if err := s.store.InsertActivity(ctx, activity); err != nil {
			return store.Card{}, err
		}
	}
	return s.store.GetCard(ctx, cardID)
}

// CopyCard duplicates a card (fresh identity, optional new title) onto the
// end of the destination list.
func (s *Service) CopyCard(ctx context.Context, actor Actor, cardID, destListID, title string) (store.Card, error) {
	source, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return store.Card{}, translateStoreErr(err, "card", cardID)
	}
	if source.OwnerID != actor.ID {
		return store.Card{}, forbiddenError("card", cardID)
	}
	sourceList, err := s.store.GetList(ctx, source.ListID)
	if err != nil {
		return store.Card{}, translateStoreErr(err, "list", source.ListID)
	}
	destList, err := s.store.GetList(ctx, destListID)
	if err != nil {
		return store.Card{}, translateStoreErr(err, "list", destListID)
	}
	if destList.OwnerID != actor.ID {
		return store.Card{}, forbiddenError("list", destListID)
	}

	if title == "" {
		title = source.Title
	}
	title, err = validateCardFields(title, source.Description)
	if err != nil {
		return store.Card{}, err
	}

	destSiblings, err := s.store.ListCardsByList(ctx, destListID)
	if err != nil {
		return store.Card{}, err
	}
	copied := store.Card{
		ID:          util.NewID("crd"),
		Title:       title,
		Description: source.Description,
		ListID:      destListID,
		OwnerID:     actor.ID,
		Index:       len(destSiblings) + 1,
	}
	if err := s.store.InsertCard(ctx, copied); err != nil {
		return store.Card{}, err
	}

	activity := movedActivity(documentCard, activityCopied, source.Title, sourceList.Title, destList.Title,
		actor.ID, activityRefs{boardID: destList.BoardID, listID: destListID, cardID: copied.ID})
	if err := s.store.InsertActivity(ctx, activity); err != nil {
		return store.Card{}, err
	}

	if s.search != nil {
		s.search.IndexCard(copied.ID, copied.Title, copied.Description, destListID, destList.BoardID, actor.ID)
	}
	return copied, nil
}

/* ---------------------------- drag and drop ----------------------------- */

// DragAndDropInput is the full drop result: the destination list's card ids
// in their new order, supplied explicitly by the caller.
type DragAndDropInput struct {
	CardIDs           []string
	SourceListID      string
	DestinationListID string
}

// DragAndDrop applies a drop of cardID as a batch reindex of the supplied
// ordering. Cross-list drops shrink the source ordering first, write the
// destination last, and record one moved activity; same-list drops are
// silent reorders.
func (s *Service) DragAndDrop(ctx context.Context, actor Actor, cardID string, input DragAndDropInput) error {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return translateStoreErr(err, "card", cardID)
	}
	if card.OwnerID != actor.ID {
		return forbiddenError("card", cardID)
	}
	if card.ListID != input.SourceListID {
		return validationError("card is not in the source list", map[string]any{"cardId": cardID, "listId": card.ListID})
	}
	sourceList, err := s.store.GetList(ctx, input.SourceListID)
	if err != nil {
		return translateStoreErr(err, "list", input.SourceListID)
	}
	destList := sourceList
	sameList := input.DestinationListID == input.SourceListID
	if !sameList {
		destList, err = s.store.GetList(ctx, input.DestinationListID)
		if err != nil {
			return translateStoreErr(err, "list", input.DestinationListID)
		}
	}
	if destList.OwnerID != actor.ID {
		return forbiddenError("list", input.DestinationListID)
	}

	dstSiblings, err := s.store.ListCardsByList(ctx, input.DestinationListID)
	if err != nil {
		return err
	}
	_, dstCurrent := cardOrdering(dstSiblings)

	// The supplied ordering must be exactly the destination's cards plus the
	// dragged card, each exactly once.
	expected := len(dstSiblings)
	if sameList || containsID(input.CardIDs, cardID) {
		if !sameList {
			expected++
		}
	} else {
		return validationError("dragged card missing from ordering", map[string]any{"cardId": cardID})
	}
	if len(input.CardIDs) != expected {
		return validationError("ordering does not match destination list", map[string]any{
			"expected": expected, "got": len(input.CardIDs),
		})
	}
	seen := make(map[string]bool, len(input.CardIDs))
	for _, id := range input.CardIDs {
		if seen[id] {
			return validationError("duplicate card in ordering", map[string]any{"cardId": id})
		}
		seen[id] = true
		if _, ok := dstCurrent[id]; !ok && id != cardID {
			return validationError("card does not belong to destination list", map[string]any{"cardId": id})
		}
	}

	if !sameList {
		srcSiblings, err := s.store.ListCardsByList(ctx, input.SourceListID)
		if err != nil {
			return err
		}
		srcOrder, srcCurrent := cardOrdering(srcSiblings)
		srcAssign := assignmentsFor(planRemove(srcOrder, cardID), srcCurrent)
		if err := s.store.ApplyCardIndexes(ctx, input.SourceListID, srcAssign); err != nil {
			return err
		}
	}
	dstAssign := assignmentsFor(input.CardIDs, dstCurrent, cardID)
	if err := s.store.ApplyCardIndexes(ctx, input.DestinationListID, dstAssign); err != nil {
		return err
	}

	if !sameList {
		activity := movedActivity(documentCard, activityMoved, card.Title, sourceList.Title, destList.Title,
			actor.ID, activityRefs{boardID: destList.BoardID, listID: input.DestinationListID, cardID: cardID})
		return s.store.InsertActivity(ctx, activity)
	}
	return nil
}

func containsID(ids []string, id string) bool {
	for _, other := range ids {
		if other == id {
			return true
		}
	}
	return false
}

/* ------------------------------ activities ------------------------------ */

func (s *Service) ActivitiesByBoard(ctx context.Context, boardID string, limit int) ([]store.Activity, error) {
	return s.store.ListActivitiesByBoard(ctx, boardID, limit)
}
