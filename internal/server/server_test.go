package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/cachequest/api/internal/database"
	"github.com/cachequest/api/internal/migrations"
)

// testPassword is the plaintext behind every account mustCreateUser makes.
const testPassword = "hunter2hunter2"

func testStore(t *testing.T) (*SQLiteStore, *sql.DB) {
	t.Helper()

	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	// Every connection to :memory: is its own database, so the pool
	// must stay at a single connection for tests.
	db.SetMaxOpenConns(1)
	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewSQLiteStore(db), db
}

func testRouter(t *testing.T) (*chi.Mux, *SQLiteStore, *sql.DB) {
	t.Helper()

	store, db := testStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	addRoutes(r, logger, db, store, nil, "")
	return r, store, db
}

func mustCreateUser(t *testing.T, store *SQLiteStore, username, role string) User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	u, err := store.CreateUser(context.Background(), newUserParams{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		t.Fatalf("creating user %q: %v", username, err)
	}
	return u
}

func sessionFor(t *testing.T, store *SQLiteStore, userID string) string {
	t.Helper()

	token, err := store.CreateSession(context.Background(), userID)
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	return token
}

func mustCreateSpot(t *testing.T, store *SQLiteStore, name, code string, lat, lng float64) Spot {
	t.Helper()

	sp, err := store.CreateSpot(context.Background(), newSpotParams{
		Name:         name,
		Clue:         "Look under the bench.",
		Lat:          lat,
		Lng:          lng,
		FuzzyRadiusM: 10,
		Code:         code,
	})
	if err != nil {
		t.Fatalf("creating spot %q: %v", name, err)
	}
	return sp
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
