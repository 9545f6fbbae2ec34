package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func f64(v float64) *float64 { return &v }
func i(v int) *int           { return &v }
func str(v string) *string   { return &v }

func adminToken(t *testing.T, store *SQLiteStore) string {
	t.Helper()
	admin := mustCreateUser(t, store, "admin", "admin")
	return sessionFor(t, store, admin.ID)
}

func TestCreateSpot(t *testing.T) {
	r, store, _ := testRouter(t)
	token := adminToken(t, store)

	w := doJSON(t, r, http.MethodPost, "/api/spots", token, SpotCreateRequest{
		Name: "Old Oak",
		Clue: "Look under the bench.",
		Lat:  f64(37.7749),
		Lng:  f64(-122.4194),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp SpotDetail
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Code) != 6 {
		t.Errorf("code %q is not 6 characters", resp.Code)
	}
	for _, c := range resp.Code {
		if !strings.ContainsRune(codeAlphabet, c) {
			t.Errorf("code %q contains %q outside the alphabet", resp.Code, c)
		}
	}
	if resp.FuzzyRadiusM != 10 {
		t.Errorf("default radius = %d, want 10", resp.FuzzyRadiusM)
	}
	if !resp.IsActive {
		t.Error("new spot should be active")
	}
	if resp.QRCodeURL != "/api/admin/spots/"+resp.ID+"/qr" {
		t.Errorf("qrCodeUrl = %q", resp.QRCodeURL)
	}
}

func TestCreateSpotValidation(t *testing.T) {
	r, store, _ := testRouter(t)
	token := adminToken(t, store)

	tests := []struct {
		name      string
		req       SpotCreateRequest
		wantError string
	}{
		{
			"blank name",
			SpotCreateRequest{Name: "   ", Clue: "c", Lat: f64(0), Lng: f64(0)},
			"Name cannot be blank or whitespace only.",
		},
		{
			"blank clue",
			SpotCreateRequest{Name: "X", Clue: " ", Lat: f64(0), Lng: f64(0)},
			"Clue cannot be blank or whitespace only.",
		},
		{
			"missing coordinates",
			SpotCreateRequest{Name: "X", Clue: "c"},
			"Latitude and longitude are required.",
		},
		{
			"latitude out of range",
			SpotCreateRequest{Name: "X", Clue: "c", Lat: f64(91), Lng: f64(0)},
			"Latitude must be between -90 and 90. Got: 91",
		},
		{
			"longitude out of range",
			SpotCreateRequest{Name: "X", Clue: "c", Lat: f64(0), Lng: f64(-181)},
			"Longitude must be between -180 and 180. Got: -181",
		},
		{
			"radius too small",
			SpotCreateRequest{Name: "X", Clue: "c", Lat: f64(0), Lng: f64(0), FuzzyRadiusMeters: i(4)},
			"Fuzzy radius must be between 5 and 100 meters.",
		},
		{
			"radius too large",
			SpotCreateRequest{Name: "X", Clue: "c", Lat: f64(0), Lng: f64(0), FuzzyRadiusMeters: i(101)},
			"Fuzzy radius must be between 5 and 100 meters.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/spots", token, tt.req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			var resp ErrorResponse
			json.NewDecoder(w.Body).Decode(&resp)
			if resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
			}
		})
	}
}

func TestCreateSpotRequiresAdmin(t *testing.T) {
	r, store, _ := testRouter(t)
	user := mustCreateUser(t, store, "maria", "participant")
	token := sessionFor(t, store, user.ID)

	w := doJSON(t, r, http.MethodPost, "/api/spots", token, SpotCreateRequest{
		Name: "X", Clue: "c", Lat: f64(0), Lng: f64(0),
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestUpdateSpot(t *testing.T) {
	r, store, _ := testRouter(t)
	token := adminToken(t, store)
	spot := mustCreateSpot(t, store, "Old Oak", "ABC123", 37.7749, -122.4194)

	w := doJSON(t, r, http.MethodPatch, "/api/spots/"+spot.ID, token, SpotUpdateRequest{
		Name: str("Older Oak"),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp SpotDetail
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Name != "Older Oak" {
		t.Errorf("name = %q", resp.Name)
	}
	// Untouched fields survive a partial update.
	if resp.Clue != spot.Clue || resp.Lat != spot.Lat || resp.Code != "ABC123" {
		t.Errorf("partial update clobbered fields: %+v", resp)
	}
}

func TestUpdateSpotGuards(t *testing.T) {
	r, store, _ := testRouter(t)
	token := adminToken(t, store)
	spot := mustCreateSpot(t, store, "Old Oak", "ABC123", 37.7749, -122.4194)

	tests := []struct {
		name      string
		req       SpotUpdateRequest
		wantError string
	}{
		{"code immutable", SpotUpdateRequest{Code: str("NEW123")}, "Cache codes cannot be changed."},
		{"lat without lng", SpotUpdateRequest{Lat: f64(10)}, "Latitude and longitude must be updated together."},
		{"lng without lat", SpotUpdateRequest{Lng: f64(10)}, "Latitude and longitude must be updated together."},
		{"invalid pair", SpotUpdateRequest{Lat: f64(95), Lng: f64(10)}, "Latitude must be between -90 and 90. Got: 95"},
		{"blank name", SpotUpdateRequest{Name: str("  ")}, "Name cannot be blank or whitespace only."},
		{"radius out of range", SpotUpdateRequest{FuzzyRadiusMeters: i(200)}, "Fuzzy radius must be between 5 and 100 meters."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPatch, "/api/spots/"+spot.ID, token, tt.req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			var resp ErrorResponse
			json.NewDecoder(w.Body).Decode(&resp)
			if resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
			}
		})
	}
}

func TestDeleteSpotIsSoft(t *testing.T) {
	r, store, _ := testRouter(t)
	token := adminToken(t, store)
	spot := mustCreateSpot(t, store, "Old Oak", "ABC123", 37.7749, -122.4194)

	user := mustCreateUser(t, store, "maria", "participant")
	doJSON(t, r, http.MethodPost, "/api/spots/claim", sessionFor(t, store, user.ID), ClaimRequest{Code: "ABC123"})

	w := doJSON(t, r, http.MethodDelete, "/api/spots/"+spot.ID, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp SpotDeleteResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Warning == "" || !strings.Contains(resp.Warning, "1 participant") {
		t.Errorf("expected warning naming the find count, got %q", resp.Warning)
	}

	// The row survives with is_active off, finds intact.
	got, err := store.GetSpot(t.Context(), spot.ID)
	if err != nil {
		t.Fatalf("spot gone after soft delete: %v", err)
	}
	if got.IsActive {
		t.Error("spot still active after delete")
	}
	if got.FindCount != 1 {
		t.Errorf("find count = %d, want 1", got.FindCount)
	}
}

func TestAdminListIncludesInactive(t *testing.T) {
	r, store, _ := testRouter(t)
	token := adminToken(t, store)

	mustCreateSpot(t, store, "Old Oak", "ABC123", 37.7749, -122.4194)
	spot := mustCreateSpot(t, store, "Retired", "DEF456", 37.8, -122.3)
	off := false
	if _, err := store.UpdateSpot(t.Context(), spot.ID, spotUpdateParams{IsActive: &off}); err != nil {
		t.Fatalf("deactivating: %v", err)
	}

	w := doJSON(t, r, http.MethodGet, "/api/admin/spots", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var items []SpotDetail
	json.NewDecoder(w.Body).Decode(&items)
	if len(items) != 2 {
		t.Fatalf("expected 2 spots, got %d", len(items))
	}
}

func TestSpotQR(t *testing.T) {
	r, store, _ := testRouter(t)
	token := adminToken(t, store)
	spot := mustCreateSpot(t, store, "Old Oak", "ABC123", 37.7749, -122.4194)

	w := doJSON(t, r, http.MethodGet, "/api/admin/spots/"+spot.ID+"/qr", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content-type = %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}
}
