package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tackboard/api/internal/authpw"
	"tackboard/api/internal/store"
)

type fakeUsers struct {
	mu      sync.Mutex
	byID    map[string]store.User
	byEmail map[string]store.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]store.User{}, byEmail: map[string]store.User{}}
}

func (f *fakeUsers) CreateUser(_ context.Context, user store.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[user.ID] = user
	f.byEmail[user.Email] = user
	return nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byEmail[email]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, userID string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[userID]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

type fakeSessions struct {
	mu     sync.Mutex
	byHash map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byHash: map[string]string{}}
}

func (f *fakeSessions) SaveRefreshSession(_ context.Context, tokenHash, userID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byHash[tokenHash] = userID
	return nil
}

func (f *fakeSessions) LookupRefreshSession(_ context.Context, tokenHash string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	userID, ok := f.byHash[tokenHash]
	if !ok {
		return store.User{}, errors.New("not found")
	}
	return store.User{ID: userID}, nil
}

func (f *fakeSessions) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byHash, tokenHash)
	return nil
}

// newAuthedServer wires a real auth service over in-memory stores and returns
// a logged-in session for Avery.
func newAuthedServer(t *testing.T, fs *fakeStore) (*HTTPServer, authpw.Session) {
	t.Helper()
	authSvc := authpw.NewService(newFakeUsers(), newFakeSessions(), "test-secret", time.Hour, 24*time.Hour)
	if _, err := authSvc.Register(context.Background(), "Avery", "avery@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	session, err := authSvc.Login(context.Background(), "avery@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return NewHTTPServer(newTestService(fs), authSvc, "*"), session
}

func doRequest(server *HTTPServer, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func parseBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v body=%s", err, rr.Body.String())
	}
	return payload
}

func TestRegisterReturnsSessionContract(t *testing.T) {
	server, _ := newAuthedServer(t, &fakeStore{})

	rr := doRequest(server, http.MethodPost, "/api/auth/register", "",
		`{"name":"Blair","email":"blair@example.com","password":"password123"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := parseBody(t, rr)
	if payload["accessToken"] == "" || payload["refreshToken"] == "" {
		t.Fatalf("expected token pair, got %v", payload)
	}
	if payload["userName"] != "Blair" {
		t.Fatalf("expected userName Blair, got %v", payload["userName"])
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	server, _ := newAuthedServer(t, &fakeStore{})

	rr := doRequest(server, http.MethodPost, "/api/auth/register", "",
		`{"name":"Avery Again","email":"avery@example.com","password":"password123"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["code"] != "EMAIL_EXISTS" {
		t.Fatalf("unexpected code: %s", rr.Body.String())
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	server, _ := newAuthedServer(t, &fakeStore{})

	rr := doRequest(server, http.MethodPost, "/api/auth/login", "",
		`{"email":"avery@example.com","password":"wrong-password"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["code"] != "INVALID_CREDENTIALS" {
		t.Fatalf("unexpected code: %s", rr.Body.String())
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	server, session := newAuthedServer(t, &fakeStore{})

	rr := doRequest(server, http.MethodPost, "/api/auth/refresh", "",
		`{"refreshToken":"`+session.RefreshToken+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	rotated, _ := parseBody(t, rr)["refreshToken"].(string)
	if rotated == "" || rotated == session.RefreshToken {
		t.Fatalf("expected a rotated refresh token")
	}

	// The presented token is revoked; replaying it must fail.
	rr = doRequest(server, http.MethodPost, "/api/auth/refresh", "",
		`{"refreshToken":"`+session.RefreshToken+`"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on replay, got %d", rr.Code)
	}
}

func TestProtectedRouteWithoutBearerReturnsUnauthorized(t *testing.T) {
	server, _ := newAuthedServer(t, &fakeStore{})

	rr := doRequest(server, http.MethodGet, "/api/boards", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["code"] != "UNAUTHORIZED" {
		t.Fatalf("unexpected code: %s", rr.Body.String())
	}
}

func TestProtectedRouteWithGarbageBearerReturnsUnauthorized(t *testing.T) {
	server, _ := newAuthedServer(t, &fakeStore{})

	rr := doRequest(server, http.MethodGet, "/api/boards", "definitely-not-a-token", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestListBoardsScopedToActor(t *testing.T) {
	var requestedOwner string
	fs := &fakeStore{
		listBoardsByOwner: func(_ context.Context, ownerID string) ([]store.Board, error) {
			requestedOwner = ownerID
			return []store.Board{
				{ID: "brd_1", Title: "Roadmap", OwnerID: ownerID},
				{ID: "brd_2", Title: "Launch", OwnerID: ownerID},
			}, nil
		},
	}
	server, session := newAuthedServer(t, fs)

	rr := doRequest(server, http.MethodGet, "/api/boards", session.AccessToken, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if requestedOwner != session.UserID {
		t.Fatalf("boards not scoped to the session user: %q", requestedOwner)
	}
	boards, _ := parseBody(t, rr)["boards"].([]any)
	if len(boards) != 2 {
		t.Fatalf("expected 2 boards, got %d", len(boards))
	}
}

func TestCreateBoardEndpoint(t *testing.T) {
	var created store.Board
	fs := &fakeStore{
		insertBoard: func(_ context.Context, item store.Board) error {
			created = item
			return nil
		},
		getBoard: func(_ context.Context, boardID string) (store.Board, error) {
			return created, nil
		},
		insertActivity: func(_ context.Context, item store.Activity) error { return nil },
	}
	server, session := newAuthedServer(t, fs)

	rr := doRequest(server, http.MethodPost, "/api/boards", session.AccessToken,
		`{"title":"  Roadmap  ","description":"Q3 planning"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	board, _ := parseBody(t, rr)["board"].(map[string]any)
	if board["title"] != "Roadmap" {
		t.Fatalf("expected trimmed title, got %v", board["title"])
	}
	if board["owner"] != session.UserID {
		t.Fatalf("expected owner %s, got %v", session.UserID, board["owner"])
	}
}

func TestCreateBoardRejectsInvalidJSON(t *testing.T) {
	server, session := newAuthedServer(t, &fakeStore{})

	rr := doRequest(server, http.MethodPost, "/api/boards", session.AccessToken, `{"title":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["code"] != "INVALID_BODY" {
		t.Fatalf("unexpected code: %s", rr.Body.String())
	}
}

func TestGetBoardMapsMissingRowTo404(t *testing.T) {
	fs := &fakeStore{
		getBoard: func(_ context.Context, boardID string) (store.Board, error) {
			return store.Board{}, sql.ErrNoRows
		},
	}
	server, session := newAuthedServer(t, fs)

	rr := doRequest(server, http.MethodGet, "/api/boards/brd_missing", session.AccessToken, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["code"] != "NOT_FOUND" {
		t.Fatalf("unexpected code: %s", rr.Body.String())
	}
}

func TestUpdateForeignBoardReturnsForbidden(t *testing.T) {
	fs := &fakeStore{
		getBoard: func(_ context.Context, boardID string) (store.Board, error) {
			return store.Board{ID: boardID, Title: "Theirs", OwnerID: "usr_other"}, nil
		},
	}
	server, session := newAuthedServer(t, fs)

	rr := doRequest(server, http.MethodPut, "/api/boards/brd_1", session.AccessToken, `{"favorite":true}`)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["code"] != "FORBIDDEN" {
		t.Fatalf("unexpected code: %s", rr.Body.String())
	}
}

func TestDeleteCardRouteCarriesRedundantListSegment(t *testing.T) {
	var deleted string
	fs := &fakeStore{
		getList: func(_ context.Context, listID string) (store.List, error) {
			return store.List{ID: listID, Title: "Doing", BoardID: "brd_1", OwnerID: "usr_1"}, nil
		},
		listCardsByList: func(_ context.Context, listID string) ([]store.Card, error) {
			return []store.Card{{ID: "crd_1", Index: 1}}, nil
		},
		deleteCard: func(_ context.Context, cardID string) error {
			deleted = cardID
			return nil
		},
		applyCardIndexes: func(_ context.Context, listID string, assignments []store.IndexAssignment) error {
			return nil
		},
		insertActivity: func(_ context.Context, item store.Activity) error { return nil },
	}
	server, session := newAuthedServer(t, fs)

	// Owner checks compare against the session user, so the fixture card must
	// belong to them.
	fs.getCard = func(_ context.Context, cardID string) (store.Card, error) {
		return store.Card{ID: cardID, Title: "Fix login", ListID: "lst_1", OwnerID: session.UserID, Index: 1}, nil
	}

	rr := doRequest(server, http.MethodDelete, "/api/cards/crd_1/list/lst_1", session.AccessToken, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if deleted != "crd_1" {
		t.Fatalf("expected crd_1 deleted, got %q", deleted)
	}
}

func TestActivitiesEndpointPassesLimit(t *testing.T) {
	var gotLimit int
	fs := &fakeStore{
		getBoard: func(_ context.Context, boardID string) (store.Board, error) {
			return store.Board{ID: boardID, Title: "Roadmap"}, nil
		},
		listActivitiesByBoard: func(_ context.Context, boardID string, limit int) ([]store.Activity, error) {
			gotLimit = limit
			return []store.Activity{{ID: "act_1", DocumentType: "board", TypeOfActivity: "added", BoardID: boardID}}, nil
		},
	}
	server, session := newAuthedServer(t, fs)

	rr := doRequest(server, http.MethodGet, "/api/activities/board/brd_1?limit=10", session.AccessToken, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if gotLimit != 10 {
		t.Fatalf("expected limit 10, got %d", gotLimit)
	}
	activities, _ := parseBody(t, rr)["activities"].([]any)
	if len(activities) != 1 {
		t.Fatalf("expected 1 activity, got %d", len(activities))
	}
}

func TestSearchWithoutBackendReturns503(t *testing.T) {
	server, session := newAuthedServer(t, &fakeStore{})

	rr := doRequest(server, http.MethodGet, "/api/search?q=login", session.AccessToken, "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["code"] != "SEARCH_UNAVAILABLE" {
		t.Fatalf("unexpected code: %s", rr.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newAuthedServer(t, &fakeStore{})

	rr := doRequest(server, http.MethodGet, "/api/health", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestReadyEndpointReportsDatabaseFailure(t *testing.T) {
	fs := &fakeStore{
		ping: func(ctx context.Context) error { return errors.New("connection refused") },
	}
	server, _ := newAuthedServer(t, fs)

	rr := doRequest(server, http.MethodGet, "/api/ready", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := parseBody(t, rr)
	if payload["status"] != "not_ready" {
		t.Fatalf("unexpected status: %v", payload["status"])
	}
}

func TestOptionsPreflightShortCircuits(t *testing.T) {
	server, _ := newAuthedServer(t, &fakeStore{})

	rr := doRequest(server, http.MethodOptions, "/api/boards", "", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	server, session := newAuthedServer(t, &fakeStore{})

	rr := doRequest(server, http.MethodGet, "/api/nonsense/123", session.AccessToken, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
