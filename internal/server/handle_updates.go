package server

import (
	"net/http"
	"time"
)

// staleCutoff is how far back a polling client may reach before the
// response is capped.
const (
	staleCutoff  = 7 * 24 * time.Hour
	staleMaxRows = 100
)

type UpdateItem struct {
	SpotID    string `json:"spotId"`
	SpotName  string `json:"spotName"`
	ActorName string `json:"actorName"`
	ClaimedAt string `json:"claimedAt"`
}

// handleUpdates returns finds newer than the since timestamp,
// oldest first. Clients that fell behind by more than a week get the
// oldest 100 rows and are expected to poll again from the last entry.
func handleUpdates(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("since")

		// RFC 3339 requires an explicit offset, so "2026-01-02T15:04:05"
		// is rejected here along with everything else unparseable.
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Provide a valid ISO 8601 timestamp.")
			return
		}

		limit := 0
		if time.Since(since) > staleCutoff {
			limit = staleMaxRows
		}

		sinceKey := since.UTC().Format("2006-01-02T15:04:05.000Z")
		finds, err := store.RecentFinds(r.Context(), sinceKey, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		items := make([]UpdateItem, 0, len(finds))
		for _, f := range finds {
			items = append(items, UpdateItem{
				SpotID:    f.SpotID,
				SpotName:  f.SpotName,
				ActorName: f.ActorName,
				ClaimedAt: f.FoundAt,
			})
		}
		writeJSON(w, http.StatusOK, items)
	}
}
