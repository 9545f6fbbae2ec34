package server

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestLogin(t *testing.T) {
	r, store, _ := testRouter(t)
	user := mustCreateUser(t, store, "maria", "participant")

	w := doJSON(t, r, http.MethodPost, "/api/auth/login", "",
		LoginRequest{Username: "maria", Password: testPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp LoginResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Token == "" {
		t.Fatal("expected a token")
	}
	if resp.ID != user.ID || resp.Username != "maria" || resp.Role != "participant" {
		t.Errorf("unexpected identity: %+v", resp)
	}

	// Token works against an authenticated endpoint, and last_login
	// was stamped.
	w = doJSON(t, r, http.MethodGet, "/api/auth/me", resp.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", w.Code)
	}
	updated, err := store.GetUser(t.Context(), user.ID)
	if err != nil {
		t.Fatalf("reloading user: %v", err)
	}
	if updated.LastLogin == "" {
		t.Error("last_login not set after login")
	}
}

// Unknown username and wrong password produce the same response.
func TestLoginInvalidCredentials(t *testing.T) {
	r, store, _ := testRouter(t)
	mustCreateUser(t, store, "maria", "participant")

	wUnknown := doJSON(t, r, http.MethodPost, "/api/auth/login", "",
		LoginRequest{Username: "nobody", Password: testPassword})
	wWrong := doJSON(t, r, http.MethodPost, "/api/auth/login", "",
		LoginRequest{Username: "maria", Password: "not-the-password"})

	if wUnknown.Code != http.StatusUnauthorized || wWrong.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wUnknown.Code, wWrong.Code)
	}
	if wUnknown.Body.String() != wWrong.Body.String() {
		t.Fatalf("bodies differ:\nunknown: %s\nwrong:   %s",
			wUnknown.Body.String(), wWrong.Body.String())
	}
}

func TestLoginDeactivatedAccount(t *testing.T) {
	r, store, _ := testRouter(t)
	user := mustCreateUser(t, store, "maria", "participant")
	inactive := false
	if _, err := store.UpdateUser(t.Context(), user.ID, userUpdateParams{IsActive: &inactive}); err != nil {
		t.Fatalf("deactivating: %v", err)
	}

	w := doJSON(t, r, http.MethodPost, "/api/auth/login", "",
		LoginRequest{Username: "maria", Password: testPassword})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	var resp ErrorResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Error != "Your account has been deactivated. Contact an admin." {
		t.Errorf("error = %q", resp.Error)
	}
}

// Deactivation blocks new logins only; sessions issued earlier keep
// working until logout.
func TestDeactivationDoesNotRevokeSessions(t *testing.T) {
	r, store, _ := testRouter(t)
	user := mustCreateUser(t, store, "maria", "participant")
	token := sessionFor(t, store, user.ID)

	inactive := false
	if _, err := store.UpdateUser(t.Context(), user.ID, userUpdateParams{IsActive: &inactive}); err != nil {
		t.Fatalf("deactivating: %v", err)
	}

	w := doJSON(t, r, http.MethodGet, "/api/auth/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for existing session, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/auth/login", "",
		LoginRequest{Username: "maria", Password: testPassword})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on fresh login, got %d", w.Code)
	}
}

func TestLoginRateLimit(t *testing.T) {
	r, store, _ := testRouter(t)
	mustCreateUser(t, store, "maria", "participant")

	for i := 0; i < loginLimit; i++ {
		w := doJSON(t, r, http.MethodPost, "/api/auth/login", "",
			LoginRequest{Username: "maria", Password: "not-the-password"})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, w.Code)
		}
	}

	w := doJSON(t, r, http.MethodPost, "/api/auth/login", "",
		LoginRequest{Username: "maria", Password: testPassword})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after %d attempts, got %d", loginLimit, w.Code)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	r, store, _ := testRouter(t)
	user := mustCreateUser(t, store, "maria", "participant")
	token := sessionFor(t, store, user.ID)

	w := doJSON(t, r, http.MethodPost, "/api/auth/logout", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("first logout: expected 200, got %d", w.Code)
	}

	// Session is gone.
	w = doJSON(t, r, http.MethodGet, "/api/auth/me", token, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: expected 401, got %d", w.Code)
	}

	// Logging out again, or with no token at all, is still 200.
	w = doJSON(t, r, http.MethodPost, "/api/auth/logout", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("second logout: expected 200, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPost, "/api/auth/logout", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("tokenless logout: expected 200, got %d", w.Code)
	}
}

func TestMe(t *testing.T) {
	r, store, _ := testRouter(t)
	user := mustCreateUser(t, store, "maria", "participant")
	token := sessionFor(t, store, user.ID)
	mustCreateSpot(t, store, "Old Oak", "ABC123", 37.7749, -122.4194)

	doJSON(t, r, http.MethodPost, "/api/spots/claim", token, ClaimRequest{Code: "ABC123"})

	w := doJSON(t, r, http.MethodGet, "/api/auth/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp MeResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Username != "maria" {
		t.Errorf("username = %q", resp.Username)
	}
	if resp.FindCount != 1 {
		t.Errorf("findCount = %d, want 1", resp.FindCount)
	}
	if resp.CreatedAt == "" {
		t.Error("createdAt is empty")
	}
}
