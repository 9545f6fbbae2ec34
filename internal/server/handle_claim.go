package server

import (
	"errors"
	"net/http"
)

type ClaimRequest struct {
	Code string `json:"code"`
}

type ClaimResponse struct {
	SpotID     string `json:"spotId"`
	SpotName   string `json:"spotName"`
	ClaimedAt  string `json:"claimedAt"`
	TotalFinds int    `json:"totalFinds"`
	Message    string `json:"message"`
}

func handleClaim(pipeline *ClaimPipeline, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		// A malformed body is treated as a missing code so the error
		// surface stays identical for every bad input.
		var req ClaimRequest
		_ = readJSON(r, &req)

		result, err := pipeline.Claim(r.Context(), sess.UserID, req.Code)
		if err != nil {
			status, msg := claimError(err)
			writeError(w, status, msg)
			return
		}

		broker.Publish(SSEEvent{
			Type:       "spot_found",
			SpotID:     result.SpotID,
			SpotName:   result.SpotName,
			ActorName:  actorName(sess),
			TotalFinds: result.TotalFinds,
		})

		writeJSON(w, http.StatusCreated, ClaimResponse{
			SpotID:     result.SpotID,
			SpotName:   result.SpotName,
			ClaimedAt:  result.FoundAt,
			TotalFinds: result.TotalFinds,
			Message:    "Cache found!",
		})
	}
}

func claimError(err error) (int, string) {
	switch {
	case errors.Is(err, errClaimRateLimited):
		return http.StatusTooManyRequests, "Too many claim attempts. Try again later."
	case errors.Is(err, errClaimMissingCode):
		return http.StatusBadRequest, "Please provide a cache code."
	case errors.Is(err, errClaimInvalidFormat):
		return http.StatusBadRequest, "Invalid code format."
	case errors.Is(err, errClaimWrongLength):
		return http.StatusBadRequest, "Cache codes are 6 characters long."
	case errors.Is(err, errClaimCodeNotFound):
		return http.StatusNotFound, "No cache found with that code."
	case errors.Is(err, errClaimAlreadyFound):
		return http.StatusBadRequest, "You already found this cache!"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func actorName(sess userSession) string {
	if sess.DisplayName != "" {
		return sess.DisplayName
	}
	return sess.Username
}
