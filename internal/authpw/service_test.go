package authpw

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"tackboard/api/internal/store"
)

type memoryUsers struct {
	byEmail map[string]store.User
	byID    map[string]store.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byEmail: map[string]store.User{}, byID: map[string]store.User{}}
}

func (m *memoryUsers) CreateUser(ctx context.Context, user store.User) error {
	m.byEmail[user.Email] = user
	m.byID[user.ID] = user
	return nil
}

func (m *memoryUsers) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	user, ok := m.byEmail[email]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (m *memoryUsers) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	user, ok := m.byID[userID]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

type memorySessions struct {
	byHash map[string]string
}

func newMemorySessions() *memorySessions {
	return &memorySessions{byHash: map[string]string{}}
}

func (m *memorySessions) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	m.byHash[tokenHash] = userID
	return nil
}

func (m *memorySessions) LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error) {
	userID, ok := m.byHash[tokenHash]
	if !ok {
		return store.User{}, errors.New("token not found or expired")
	}
	return store.User{ID: userID}, nil
}

func (m *memorySessions) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	delete(m.byHash, tokenHash)
	return nil
}

func newTestService() (*Service, *memorySessions) {
	sessions := newMemorySessions()
	return NewService(newMemoryUsers(), sessions, "test-secret", 15*time.Minute, 30*24*time.Hour), sessions
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "Avery", "avery@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == "" || user.PasswordHash == "hunter2hunter2" {
		t.Fatalf("user: %+v", user)
	}

	session, err := svc.Login(ctx, "avery@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatalf("session: %+v", session)
	}
	claims, err := svc.VerifyAccess(session.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Sub != user.ID || claims.Name != "Avery" {
		t.Fatalf("claims: %+v", claims)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, "Avery", "avery@example.com", "hunter2hunter2"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, "Imposter", "avery@example.com", "hunter2hunter2"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Register(context.Background(), "Avery", "avery@example.com", "short"); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, "Avery", "avery@example.com", "hunter2hunter2"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Login(ctx, "avery@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, sessions := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, "Avery", "avery@example.com", "hunter2hunter2"); err != nil {
		t.Fatalf("register: %v", err)
	}
	first, err := svc.Login(ctx, "avery@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	second, err := svc.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}
	if len(sessions.byHash) != 1 {
		t.Fatalf("old session should be revoked, have %d", len(sessions.byHash))
	}
	if _, err := svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("reused token must fail, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, sessions := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, "Avery", "avery@example.com", "hunter2hunter2"); err != nil {
		t.Fatalf("register: %v", err)
	}
	session, err := svc.Login(ctx, "avery@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(ctx, session.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.byHash) != 0 {
		t.Fatalf("session not revoked: %v", sessions.byHash)
	}
}
