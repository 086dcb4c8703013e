package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tackboard/api/internal/auth"
	"tackboard/api/internal/authpw"
	"tackboard/api/internal/export"
	"tackboard/api/internal/images"
	"tackboard/api/internal/search"
	"tackboard/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	auth       *authpw.Service
	search     *search.Service
	images     *images.Store
	exporter   *export.Service
	corsOrigin string
}

func NewHTTPServer(service *Service, authService *authpw.Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{
		service:    service,
		auth:       authService,
		exporter:   export.NewService(service.ExportData()),
		corsOrigin: corsOrigin,
	}
}

// WithSearch enables the search endpoint.
func (s *HTTPServer) WithSearch(searchService *search.Service) *HTTPServer {
	s.search = searchService
	return s
}

// WithImages enables background image uploads.
func (s *HTTPServer) WithImages(imageStore *images.Store) *HTTPServer {
	s.images = imageStore
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}
		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{"status": "error", "error": err.Error()}
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	// Auth routes take no bearer token.
	if r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/api/auth/") {
		s.handleAuth(w, r)
		return
	}

	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		s.handleSearch(w, r, actor)
		return
	}

	if r.URL.Path == "/api/boards" {
		switch r.Method {
		case http.MethodGet:
			boards, err := s.service.ListBoards(r.Context(), actor)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"boards": boardListJSON(boards)})
		case http.MethodPost:
			var body CreateBoardInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			board, err := s.service.CreateBoard(r.Context(), actor, body)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"board": boardJSON(board)})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/boards/recent" {
		boards, err := s.service.RecentBoards(r.Context(), actor)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"boards": boardListJSON(boards)})
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) >= 3 && parts[0] == "api" {
		switch parts[1] {
		case "boards":
			s.handleBoards(w, r, actor, parts)
			return
		case "lists":
			s.handleLists(w, r, actor, parts)
			return
		case "cards":
			s.handleCards(w, r, actor, parts)
			return
		case "activities":
			if len(parts) == 4 && parts[2] == "board" && r.Method == http.MethodGet {
				s.handleActivities(w, r, parts[3])
				return
			}
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleAuth(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/auth/register":
		var body struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		user, err := s.auth.Register(r.Context(), body.Name, body.Email, body.Password)
		if err != nil {
			if errors.Is(err, authpw.ErrEmailTaken) {
				writeError(w, http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
				return
			}
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		session, err := s.auth.Login(r.Context(), body.Email, body.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SESSION_FAILED", "Failed to create session", nil)
			return
		}
		writeJSON(w, http.StatusCreated, sessionJSON(session, user.ID))

	case "/api/auth/login":
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.auth.Login(r.Context(), body.Email, body.Password)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
			return
		}
		writeJSON(w, http.StatusOK, sessionJSON(session, session.UserID))

	case "/api/auth/refresh":
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.auth.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
			return
		}
		writeJSON(w, http.StatusOK, sessionJSON(session, session.UserID))

	case "/api/auth/logout":
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		_ = s.auth.Logout(r.Context(), body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request, actor Actor) {
	if s.search == nil {
		writeError(w, http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search not configured", nil)
		return
	}
	q := search.Query{
		Text:       strings.TrimSpace(r.URL.Query().Get("q")),
		OwnerID:    actor.ID,
		FilterType: search.ResultType(strings.TrimSpace(r.URL.Query().Get("type"))),
		Limit:      20,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
			return
		}
		q.Limit = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "offset must be an integer", nil)
			return
		}
		q.Offset = parsed
	}
	writeJSON(w, http.StatusOK, s.search.Search(q))
}

func (s *HTTPServer) handleBoards(w http.ResponseWriter, r *http.Request, actor Actor, parts []string) {
	boardID := parts[2]

	if len(parts) == 3 {
		switch r.Method {
		case http.MethodGet:
			board, err := s.service.GetBoard(r.Context(), boardID)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"board": boardJSON(board)})
		case http.MethodPut:
			var body UpdateBoardInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			board, err := s.service.UpdateBoard(r.Context(), actor, boardID, body)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"board": boardJSON(board)})
		case http.MethodDelete:
			if err := s.service.DeleteBoard(r.Context(), actor, boardID); err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": boardID})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(parts) == 4 && parts[3] == "recent" && r.Method == http.MethodPut {
		board, err := s.service.ViewBoard(r.Context(), actor, boardID, time.Now())
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"board": boardJSON(board)})
		return
	}

	if len(parts) == 4 && parts[3] == "background" && r.Method == http.MethodPut {
		s.handleBackgroundUpload(w, r, actor, boardID)
		return
	}

	if len(parts) == 4 && parts[3] == "export.pdf" && r.Method == http.MethodGet {
		includeActivity := r.URL.Query().Get("activity") != "false"
		if _, err := s.service.GetBoard(r.Context(), boardID); err != nil {
			s.fail(w, err)
			return
		}
		result, err := s.exporter.ExportBoard(r.Context(), boardID, includeActivity)
		if err != nil {
			if errors.Is(err, export.ErrPDFDependencyMissing) {
				writeError(w, http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export not available", nil)
				return
			}
			s.fail(w, err)
			return
		}
		w.Header().Set("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
		w.Header().Set("Content-Type", result.MimeType)
		w.Write(result.Data)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleBackgroundUpload(w http.ResponseWriter, r *http.Request, actor Actor, boardID string) {
	if s.images == nil {
		writeError(w, http.StatusServiceUnavailable, "IMAGES_UNAVAILABLE", "Image storage not configured", nil)
		return
	}
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "expected multipart form", nil)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "image file is required", nil)
		return
	}
	defer file.Close()

	url, err := s.images.PutBackground(r.Context(), boardID, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	board, err := s.service.UpdateBoard(r.Context(), actor, boardID, UpdateBoardInput{BackgroundImage: &url})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"board": boardJSON(board)})
}

func (s *HTTPServer) handleLists(w http.ResponseWriter, r *http.Request, actor Actor, parts []string) {
	// /api/lists/board/{boardId}
	if len(parts) == 4 && parts[2] == "board" {
		boardID := parts[3]
		switch r.Method {
		case http.MethodGet:
			lists, err := s.service.GetLists(r.Context(), boardID)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"lists": listCollectionJSON(lists)})
		case http.MethodPost:
			var body struct {
				Title string `json:"title"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			list, err := s.service.CreateList(r.Context(), actor, boardID, body.Title)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"list": listJSON(list)})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	listID := parts[2]

	if len(parts) == 3 {
		switch r.Method {
		case http.MethodGet:
			list, err := s.service.GetList(r.Context(), listID)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"list": listJSON(list)})
		case http.MethodPut:
			var body struct {
				Title string `json:"title"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			list, err := s.service.EditList(r.Context(), actor, listID, body.Title)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"list": listJSON(list)})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	// /api/lists/{id}/board/{boardId}
	if len(parts) == 5 && parts[3] == "board" && r.Method == http.MethodDelete {
		if err := s.service.DeleteList(r.Context(), actor, listID); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": listID})
		return
	}

	if len(parts) == 4 && parts[3] == "move" && r.Method == http.MethodPut {
		var body struct {
			DestinationBoardID string `json:"destinationBoardId"`
			Position           int    `json:"position"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		list, err := s.service.MoveList(r.Context(), actor, listID, body.DestinationBoardID, body.Position)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"list": listJSON(list)})
		return
	}

	if len(parts) == 4 && parts[3] == "copy" && r.Method == http.MethodPost {
		var body struct {
			DestinationBoardID string          `json:"destinationBoardId"`
			Title              string          `json:"title"`
			Cards              []CopyCardInput `json:"cards"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		list, err := s.service.CopyList(r.Context(), actor, listID, body.DestinationBoardID, body.Title, body.Cards)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"list": listJSON(list)})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleCards(w http.ResponseWriter, r *http.Request, actor Actor, parts []string) {
	// /api/cards/list/{listId}
	if len(parts) == 4 && parts[2] == "list" {
		listID := parts[3]
		switch r.Method {
		case http.MethodGet:
			cards, err := s.service.GetCards(r.Context(), listID)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"cards": cardCollectionJSON(cards)})
		case http.MethodPost:
			var body struct {
				Title       string `json:"title"`
				Description string `json:"description"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			card, err := s.service.CreateCard(r.Context(), actor, listID, body.Title, body.Description)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"card": cardJSON(card)})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	cardID := parts[2]

	if len(parts) == 3 {
		switch r.Method {
		case http.MethodGet:
			card, err := s.service.GetCard(r.Context(), cardID)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"card": cardJSON(card)})
		case http.MethodPut:
			var body EditCardInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			card, err := s.service.EditCard(r.Context(), actor, cardID, body)
			if err != nil {
				s.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"card": cardJSON(card)})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	// /api/cards/{id}/list/{listId}
	if len(parts) == 5 && parts[3] == "list" && r.Method == http.MethodDelete {
		if err := s.service.DeleteCard(r.Context(), actor, cardID); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": cardID})
		return
	}

	if len(parts) == 4 && parts[3] == "move" && r.Method == http.MethodPut {
		var body struct {
			DestinationListID string `json:"destinationListId"`
			Position          int    `json:"position"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		card, err := s.service.MoveCard(r.Context(), actor, cardID, body.DestinationListID, body.Position)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"card": cardJSON(card)})
		return
	}

	if len(parts) == 4 && parts[3] == "copy" && r.Method == http.MethodPost {
		var body struct {
			DestinationListID string `json:"destinationListId"`
			Title             string `json:"title"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		card, err := s.service.CopyCard(r.Context(), actor, cardID, body.DestinationListID, body.Title)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"card": cardJSON(card)})
		return
	}

	if len(parts) == 4 && parts[3] == "draganddrop" && r.Method == http.MethodPut {
		var body struct {
			Cards             []string `json:"cards"`
			SourceListID      string   `json:"sourceListId"`
			DestinationListID string   `json:"destinationListId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		err := s.service.DragAndDrop(r.Context(), actor, cardID, DragAndDropInput{
			CardIDs:           body.Cards,
			SourceListID:      body.SourceListID,
			DestinationListID: body.DestinationListID,
		})
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleActivities(w http.ResponseWriter, r *http.Request, boardID string) {
	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	activities, err := s.service.ActivitiesByBoard(r.Context(), boardID, limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	payload := make([]map[string]any, 0, len(activities))
	for _, activity := range activities {
		payload = append(payload, activityJSON(activity))
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": payload})
}

func (s *HTTPServer) requireActor(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Actor{}, false
	}
	claims, err := s.auth.VerifyAccess(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Actor{}, false
	}
	return Actor{ID: claims.Sub, Name: claims.Name}, true
}

func (s *HTTPServer) fail(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

/* ------------------------------ payloads ------------------------------- */

func boardJSON(b store.Board) map[string]any {
	return map[string]any{
		"id":              b.ID,
		"title":           b.Title,
		"description":     b.Description,
		"backgroundImage": b.BackgroundImage,
		"favorite":        b.Favorite,
		"owner":           b.OwnerID,
		"createdAt":       b.CreatedAt,
		"updatedAt":       b.UpdatedAt,
	}
}

func boardListJSON(boards []store.Board) []map[string]any {
	out := make([]map[string]any, 0, len(boards))
	for _, b := range boards {
		out = append(out, boardJSON(b))
	}
	return out
}

func listJSON(l store.List) map[string]any {
	return map[string]any{
		"id":    l.ID,
		"title": l.Title,
		"board": l.BoardID,
		"owner": l.OwnerID,
		"index": l.Index,
		"cards": cardCollectionJSON(l.Cards),
	}
}

func listCollectionJSON(lists []store.List) []map[string]any {
	out := make([]map[string]any, 0, len(lists))
	for _, l := range lists {
		out = append(out, listJSON(l))
	}
	return out
}

func cardJSON(c store.Card) map[string]any {
	return map[string]any{
		"id":          c.ID,
		"title":       c.Title,
		"description": c.Description,
		"list":        c.ListID,
		"owner":       c.OwnerID,
		"index":       c.Index,
	}
}

func cardCollectionJSON(cards []store.Card) []map[string]any {
	out := make([]map[string]any, 0, len(cards))
	for _, c := range cards {
		out = append(out, cardJSON(c))
	}
	return out
}

func activityJSON(a store.Activity) map[string]any {
	return map[string]any{
		"id":                    a.ID,
		"documentType":          a.DocumentType,
		"typeOfActivity":        a.TypeOfActivity,
		"valueOfActivity":       a.ValueOfActivity,
		"previousPropertyValue": a.PreviousPropertyValue,
		"propertyChanged":       a.PropertyChanged,
		"source":                a.Source,
		"destination":           a.Destination,
		"user":                  a.UserID,
		"board":                 a.BoardID,
		"list":                  a.ListID,
		"card":                  a.CardID,
		"createdAt":             a.CreatedAt,
	}
}

func sessionJSON(session authpw.Session, userID string) map[string]any {
	return map[string]any{
		"accessToken":  session.AccessToken,
		"refreshToken": session.RefreshToken,
		"userId":       userID,
		"userName":     session.UserName,
		"expiresAt":    session.ExpiresAt.Unix(),
	}
}

/* ----------------------------- middleware ------------------------------ */

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
