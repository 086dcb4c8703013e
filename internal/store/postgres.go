package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

/* users */

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash)
		VALUES ($1, $2, $3, $4)
	`, user.ID, user.DisplayName, user.Email, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, created_at
		FROM users WHERE email=$1
	`, email).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, created_at
		FROM users WHERE id=$1
	`, userID).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

/* refresh sessions (Postgres fallback when Redis is not configured) */

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.display_name, u.email, u.password_hash, u.created_at
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

/* boards */

func (s *PostgresStore) ListBoardsByOwner(ctx context.Context, ownerID string) ([]Board, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, background_image, favorite, owner_id, created_at, updated_at
		FROM boards
		WHERE owner_id=$1
		ORDER BY created_at ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()
	return scanBoards(rows)
}

func (s *PostgresStore) ListRecentBoards(ctx context.Context, ownerID string, limit int) ([]Board, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, background_image, favorite, owner_id, created_at, updated_at
		FROM boards
		WHERE owner_id=$1
		ORDER BY updated_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent boards: %w", err)
	}
	defer rows.Close()
	return scanBoards(rows)
}

func scanBoards(rows *sql.Rows) ([]Board, error) {
	items := make([]Board, 0)
	for rows.Next() {
		var item Board
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.BackgroundImage, &item.Favorite, &item.OwnerID, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetBoard(ctx context.Context, boardID string) (Board, error) {
	var item Board
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, background_image, favorite, owner_id, created_at, updated_at
		FROM boards WHERE id=$1
	`, boardID).Scan(&item.ID, &item.Title, &item.Description, &item.BackgroundImage, &item.Favorite, &item.OwnerID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Board{}, err
	}
	return item, nil
}

func (s *PostgresStore) InsertBoard(ctx context.Context, item Board) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO boards (id, title, description, background_image, favorite, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, item.ID, item.Title, item.Description, item.BackgroundImage, item.Favorite, item.OwnerID)
	if err != nil {
		return fmt.Errorf("insert board: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateBoard(ctx context.Context, item Board) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE boards
		SET title=$2, description=$3, background_image=$4, favorite=$5, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.Title, item.Description, item.BackgroundImage, item.Favorite)
	if err != nil {
		return fmt.Errorf("update board: %w", err)
	}
	return nil
}

func (s *PostgresStore) TouchBoard(ctx context.Context, boardID string, viewedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE boards SET updated_at=$2 WHERE id=$1`, boardID, viewedAt)
	if err != nil {
		return fmt.Errorf("touch board: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteBoard(ctx context.Context, boardID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM boards WHERE id=$1`, boardID)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	return nil
}

/* lists */

func (s *PostgresStore) ListListsByBoard(ctx context.Context, boardID string) ([]List, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, board_id, owner_id, index_in_board, created_at, updated_at
		FROM lists
		WHERE board_id=$1
		ORDER BY index_in_board ASC, updated_at ASC
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()

	items := make([]List, 0)
	for rows.Next() {
		var item List
		if err := rows.Scan(&item.ID, &item.Title, &item.BoardID, &item.OwnerID, &item.Index, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lists: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetList(ctx context.Context, listID string) (List, error) {
	var item List
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, board_id, owner_id, index_in_board, created_at, updated_at
		FROM lists WHERE id=$1
	`, listID).Scan(&item.ID, &item.Title, &item.BoardID, &item.OwnerID, &item.Index, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return List{}, err
	}
	return item, nil
}

func (s *PostgresStore) InsertList(ctx context.Context, item List) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lists (id, title, board_id, owner_id, index_in_board)
		VALUES ($1, $2, $3, $4, $5)
	`, item.ID, item.Title, item.BoardID, item.OwnerID, item.Index)
	if err != nil {
		return fmt.Errorf("insert list: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateListTitle(ctx context.Context, listID, title string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE lists SET title=$2, updated_at=NOW() WHERE id=$1`, listID, title)
	if err != nil {
		return fmt.Errorf("update list title: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteList(ctx context.Context, listID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM lists WHERE id=$1`, listID)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	return nil
}

// ApplyListIndexes assigns board membership and sibling indexes for one
// board in a single statement. Every assigned list ends up on boardID, so a
// cross-board move applies the shrunken source ordering first and the
// receiving board's ordering (including the moved list) last.
func (s *PostgresStore) ApplyListIndexes(ctx context.Context, boardID string, assignments []IndexAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	ids, indexes := splitAssignments(assignments)
	_, err := s.db.ExecContext(ctx, `
		UPDATE lists AS l
		SET board_id = $1, index_in_board = a.idx, updated_at = NOW()
		FROM (SELECT unnest($2::text[]) AS id, unnest($3::int[]) AS idx) AS a
		WHERE l.id = a.id
	`, boardID, ids, indexes)
	if err != nil {
		return fmt.Errorf("apply list indexes: %w", err)
	}
	return nil
}

/* cards */

func (s *PostgresStore) ListCardsByList(ctx context.Context, listID string) ([]Card, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, list_id, owner_id, index_in_list, created_at, updated_at
		FROM cards
		WHERE list_id=$1
		ORDER BY index_in_list ASC, updated_at ASC
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()
	return scanCards(rows)
}

// ListCardsByBoard loads every card on a board in one query, for board reads
// and exports.
func (s *PostgresStore) ListCardsByBoard(ctx context.Context, boardID string) ([]Card, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.description, c.list_id, c.owner_id, c.index_in_list, c.created_at, c.updated_at
		FROM cards c
		JOIN lists l ON l.id = c.list_id
		WHERE l.board_id=$1
		ORDER BY c.index_in_list ASC, c.updated_at ASC
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list board cards: %w", err)
	}
	defer rows.Close()
	return scanCards(rows)
}

func scanCards(rows *sql.Rows) ([]Card, error) {
	items := make([]Card, 0)
	for rows.Next() {
		var item Card
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.ListID, &item.OwnerID, &item.Index, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetCard(ctx context.Context, cardID string) (Card, error) {
	var item Card
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, list_id, owner_id, index_in_list, created_at, updated_at
		FROM cards WHERE id=$1
	`, cardID).Scan(&item.ID, &item.Title, &item.Description, &item.ListID, &item.OwnerID, &item.Index, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Card{}, err
	}
	return item, nil
}

func (s *PostgresStore) InsertCard(ctx context.Context, item Card) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cards (id, title, description, list_id, owner_id, index_in_list)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, item.ID, item.Title, item.Description, item.ListID, item.OwnerID, item.Index)
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateCardFields(ctx context.Context, cardID, title, description string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE cards SET title=$2, description=$3, updated_at=NOW() WHERE id=$1
	`, cardID, title, description)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteCard(ctx context.Context, cardID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id=$1`, cardID)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return nil
}

// ApplyCardIndexes is the card-level twin of ApplyListIndexes: one statement
// assigns list membership and sibling indexes for one list.
func (s *PostgresStore) ApplyCardIndexes(ctx context.Context, listID string, assignments []IndexAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	ids, indexes := splitAssignments(assignments)
	_, err := s.db.ExecContext(ctx, `
		UPDATE cards AS c
		SET list_id = $1, index_in_list = a.idx, updated_at = NOW()
		FROM (SELECT unnest($2::text[]) AS id, unnest($3::int[]) AS idx) AS a
		WHERE c.id = a.id
	`, listID, ids, indexes)
	if err != nil {
		return fmt.Errorf("apply card indexes: %w", err)
	}
	return nil
}

func splitAssignments(assignments []IndexAssignment) ([]string, []int32) {
	ids := make([]string, len(assignments))
	indexes := make([]int32, len(assignments))
	for i, a := range assignments {
		ids[i] = a.ID
		indexes[i] = int32(a.Index)
	}
	return ids, indexes
}

/* search reindex */

// AllBoards loads every board, used to rebuild the search index at startup.
func (s *PostgresStore) AllBoards(ctx context.Context) ([]Board, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, background_image, favorite, owner_id, created_at, updated_at
		FROM boards
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("all boards: %w", err)
	}
	defer rows.Close()
	return scanBoards(rows)
}

// AllCards loads every card with its owning board id for the same rebuild.
func (s *PostgresStore) AllCards(ctx context.Context) ([]CardWithBoard, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.description, c.list_id, c.owner_id, l.board_id
		FROM cards c
		JOIN lists l ON l.id = c.list_id
		ORDER BY c.created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("all cards: %w", err)
	}
	defer rows.Close()

	items := make([]CardWithBoard, 0)
	for rows.Next() {
		var item CardWithBoard
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.ListID, &item.OwnerID, &item.BoardID); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return items, nil
}

/* activities */

func (s *PostgresStore) InsertActivity(ctx context.Context, item Activity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (
			id, document_type, type_of_activity, value_of_activity,
			previous_property_value, property_changed, source, destination,
			user_id, board_id, list_id, card_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, item.ID, item.DocumentType, item.TypeOfActivity, item.ValueOfActivity,
		item.PreviousPropertyValue, item.PropertyChanged, item.Source, item.Destination,
		item.UserID, item.BoardID, item.ListID, item.CardID)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListActivitiesByBoard(ctx context.Context, boardID string, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_type, type_of_activity, value_of_activity,
			previous_property_value, property_changed, source, destination,
			user_id, board_id, list_id, card_id, created_at
		FROM activities
		WHERE board_id=$1
		ORDER BY created_at DESC
		LIMIT $2
	`, boardID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	items := make([]Activity, 0)
	for rows.Next() {
		var item Activity
		if err := rows.Scan(&item.ID, &item.DocumentType, &item.TypeOfActivity, &item.ValueOfActivity,
			&item.PreviousPropertyValue, &item.PropertyChanged, &item.Source, &item.Destination,
			&item.UserID, &item.BoardID, &item.ListID, &item.CardID, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return items, nil
}
