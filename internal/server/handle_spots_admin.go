package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/cachequest/api/internal/geo"
)

type SpotCreateRequest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Clue              string   `json:"clue"`
	Lat               *float64 `json:"lat"`
	Lng               *float64 `json:"lng"`
	FuzzyRadiusMeters *int     `json:"fuzzyRadiusMeters"`
}

type SpotUpdateRequest struct {
	Name              *string  `json:"name"`
	Description       *string  `json:"description"`
	Clue              *string  `json:"clue"`
	Lat               *float64 `json:"lat"`
	Lng               *float64 `json:"lng"`
	FuzzyRadiusMeters *int     `json:"fuzzyRadiusMeters"`
	IsActive          *bool    `json:"isActive"`
	Code              *string  `json:"code"`
}

type SpotDetail struct {
	Spot
	QRCodeURL string `json:"qrCodeUrl"`
}

type SpotDeleteResponse struct {
	Message string `json:"message"`
	Warning string `json:"warning,omitempty"`
}

func spotDetail(sp Spot) SpotDetail {
	return SpotDetail{Spot: sp, QRCodeURL: "/api/admin/spots/" + sp.ID + "/qr"}
}

func handleCreateSpot(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		var req SpotCreateRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "Name cannot be blank or whitespace only.")
			return
		}
		if strings.TrimSpace(req.Clue) == "" {
			writeError(w, http.StatusBadRequest, "Clue cannot be blank or whitespace only.")
			return
		}
		if req.Lat == nil || req.Lng == nil {
			writeError(w, http.StatusBadRequest, "Latitude and longitude are required.")
			return
		}
		if err := geo.ValidateCoordinates(*req.Lat, *req.Lng); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		radius := 10
		if req.FuzzyRadiusMeters != nil {
			radius = *req.FuzzyRadiusMeters
		}
		if radius < 5 || radius > 100 {
			writeError(w, http.StatusBadRequest, "Fuzzy radius must be between 5 and 100 meters.")
			return
		}

		code, err := generateCode(r.Context(), store.CodeExists)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		spot, err := store.CreateSpot(r.Context(), newSpotParams{
			Name:         req.Name,
			Description:  req.Description,
			Clue:         req.Clue,
			Lat:          *req.Lat,
			Lng:          *req.Lng,
			FuzzyRadiusM: radius,
			Code:         code,
			CreatedBy:    sess.UserID,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, spotDetail(spot))
	}
}

func handleGetSpot(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spot, err := store.GetSpot(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Spot not found.")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, spotDetail(spot))
	}
}

func handleUpdateSpot(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SpotUpdateRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.Code != nil {
			writeError(w, http.StatusBadRequest, "Cache codes cannot be changed.")
			return
		}
		if (req.Lat == nil) != (req.Lng == nil) {
			writeError(w, http.StatusBadRequest, "Latitude and longitude must be updated together.")
			return
		}
		if req.Lat != nil {
			if err := geo.ValidateCoordinates(*req.Lat, *req.Lng); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		if req.Name != nil {
			trimmed := strings.TrimSpace(*req.Name)
			if trimmed == "" {
				writeError(w, http.StatusBadRequest, "Name cannot be blank or whitespace only.")
				return
			}
			req.Name = &trimmed
		}
		if req.FuzzyRadiusMeters != nil && (*req.FuzzyRadiusMeters < 5 || *req.FuzzyRadiusMeters > 100) {
			writeError(w, http.StatusBadRequest, "Fuzzy radius must be between 5 and 100 meters.")
			return
		}

		spot, err := store.UpdateSpot(r.Context(), chi.URLParam(r, "id"), spotUpdateParams{
			Name:         req.Name,
			Description:  req.Description,
			Clue:         req.Clue,
			Lat:          req.Lat,
			Lng:          req.Lng,
			FuzzyRadiusM: req.FuzzyRadiusMeters,
			IsActive:     req.IsActive,
		})
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Spot not found.")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, spotDetail(spot))
	}
}

// handleDeleteSpot deactivates rather than deletes. Finds reference
// the spot with a RESTRICT constraint, so rows are never dropped.
func handleDeleteSpot(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inactive := false
		spot, err := store.UpdateSpot(r.Context(), chi.URLParam(r, "id"), spotUpdateParams{
			IsActive: &inactive,
		})
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Spot not found.")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := SpotDeleteResponse{Message: "Spot deactivated."}
		if spot.FindCount > 0 {
			resp.Warning = fmt.Sprintf(
				"%d participant(s) have found this cache; their finds are preserved.",
				spot.FindCount)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleAdminListSpots(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spots, err := store.ListAllSpots(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		items := make([]SpotDetail, 0, len(spots))
		for _, sp := range spots {
			items = append(items, spotDetail(sp))
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// handleSpotQR renders the cache code as a PNG for printing stickers.
func handleSpotQR(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spot, err := store.GetSpot(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Spot not found.")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		png, err := qrcode.Encode(spot.Code, qrcode.Medium, 256)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}
