package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cachequest/api/internal/geo"
)

type SpotListItem struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	FindCount int     `json:"findCount"`
	FuzzyLat  float64 `json:"fuzzyLat"`
	FuzzyLng  float64 `json:"fuzzyLng"`
	FoundByMe bool    `json:"foundByMe"`
}

type ClueResponse struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Clue              string  `json:"clue"`
	FuzzyLat          float64 `json:"fuzzyLat"`
	FuzzyLng          float64 `json:"fuzzyLng"`
	FuzzyRadiusMeters int     `json:"fuzzyRadiusMeters"`
}

type SpotFindItem struct {
	Name    string `json:"name"`
	FoundAt string `json:"foundAt"`
}

type MyFindItem struct {
	SpotID   string `json:"spotId"`
	SpotName string `json:"spotName"`
	FoundAt  string `json:"foundAt"`
}

// handleListSpots returns active spots with freshly fuzzed
// coordinates. Exact locations, codes, and clues never appear here.
func handleListSpots(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		spots, err := store.ListActiveSpots(r.Context(), sess.UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		items := make([]SpotListItem, 0, len(spots))
		for _, sp := range spots {
			lat, lng := geo.Fuzz(sp.Lat, sp.Lng, sp.FuzzyRadiusM)
			items = append(items, SpotListItem{
				ID:        sp.ID,
				Name:      sp.Name,
				FindCount: sp.FindCount,
				FuzzyLat:  lat,
				FuzzyLng:  lng,
				FoundByMe: sp.FoundByMe,
			})
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// handleClue conflates missing and inactive spots into the same 404 so
// spot IDs cannot be probed after deactivation.
func handleClue(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spot, err := store.GetSpot(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) || (err == nil && !spot.IsActive) {
			writeError(w, http.StatusNotFound, "Spot not found.")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		lat, lng := geo.Fuzz(spot.Lat, spot.Lng, spot.FuzzyRadiusM)
		writeJSON(w, http.StatusOK, ClueResponse{
			ID:                spot.ID,
			Name:              spot.Name,
			Clue:              spot.Clue,
			FuzzyLat:          lat,
			FuzzyLng:          lng,
			FuzzyRadiusMeters: spot.FuzzyRadiusM,
		})
	}
}

func handleSpotFinds(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spot, err := store.GetSpot(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) || (err == nil && !spot.IsActive) {
			writeError(w, http.StatusNotFound, "Spot not found.")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		finds, err := store.FindsForSpot(r.Context(), spot.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		items := make([]SpotFindItem, 0, len(finds))
		for _, f := range finds {
			name := f.DisplayName
			if name == "" {
				name = f.Username
			}
			items = append(items, SpotFindItem{Name: name, FoundAt: f.FoundAt})
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleMyFinds(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		finds, err := store.FindsForUser(r.Context(), sess.UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		items := make([]MyFindItem, 0, len(finds))
		for _, f := range finds {
			items = append(items, MyFindItem{SpotID: f.SpotID, SpotName: f.SpotName, FoundAt: f.FoundAt})
		}
		writeJSON(w, http.StatusOK, items)
	}
}
