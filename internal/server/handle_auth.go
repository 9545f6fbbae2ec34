package server

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token       string `json:"token"`
	ID          string `json:"id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
}

type MeResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	FindCount   int    `json:"findCount"`
	CreatedAt   string `json:"createdAt"`
}

func handleLogin(store Store, limiter AttemptLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow(r.Context(), clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "Too many login attempts. Try again later.")
			return
		}

		var req LoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "Username and password are required.")
			return
		}

		user, err := store.UserByUsername(r.Context(), req.Username)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Invalid username or password.")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			writeError(w, http.StatusUnauthorized, "Invalid username or password.")
			return
		}

		// Checked after the password so the response cannot be used to
		// probe account status without credentials.
		if !user.IsActive {
			writeError(w, http.StatusForbidden, "Your account has been deactivated. Contact an admin.")
			return
		}

		token, err := store.CreateSession(r.Context(), user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := store.TouchLastLogin(r.Context(), user.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, LoginResponse{
			Token:       token,
			ID:          user.ID,
			Username:    user.Username,
			Role:        user.Role,
			DisplayName: user.DisplayName,
		})
	}
}

// handleLogout deletes the session if one is presented. Always 200:
// logging out twice is not an error.
func handleLogout(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token, err := bearerToken(r); err == nil {
			if err := store.DeleteSession(r.Context(), token); err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out."})
	}
}

func handleMe(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		user, err := store.GetUser(r.Context(), sess.UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, MeResponse{
			ID:          user.ID,
			Username:    user.Username,
			Role:        user.Role,
			DisplayName: user.DisplayName,
			FindCount:   user.FindCount,
			CreatedAt:   user.CreatedAt,
		})
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
