package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

type UserCreateRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

type UserUpdateRequest struct {
	DisplayName *string `json:"displayName"`
	Email       *string `json:"email"`
	Role        *string `json:"role"`
	IsActive    *bool   `json:"isActive"`
	Password    *string `json:"password"`
}

func handleListUsers(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := store.ListUsers(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

func handleCreateUser(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UserCreateRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" {
			writeError(w, http.StatusBadRequest, "Username cannot be blank.")
			return
		}
		if len(req.Password) < 8 {
			writeError(w, http.StatusBadRequest, "Password must be at least 8 characters.")
			return
		}
		if req.Role == "" {
			req.Role = "participant"
		}
		if req.Role != "admin" && req.Role != "participant" {
			writeError(w, http.StatusBadRequest, "Role must be either 'admin' or 'participant'.")
			return
		}

		taken, err := store.UsernameTaken(r.Context(), req.Username)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if taken {
			writeError(w, http.StatusBadRequest, "A user with that username already exists.")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		user, err := store.CreateUser(r.Context(), newUserParams{
			Username:     req.Username,
			PasswordHash: string(hash),
			Role:         req.Role,
			DisplayName:  req.DisplayName,
			Email:        req.Email,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, user)
	}
}

func handleGetUser(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := store.GetUser(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// handleUpdateUser applies the account guards in a fixed order:
// self-action checks come before the last-admin check, so an admin
// acting on themselves always sees the self-action message even when
// they are also the last admin standing.
func handleUpdateUser(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		targetID := chi.URLParam(r, "id")

		var req UserUpdateRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.Role != nil && *req.Role != "admin" && *req.Role != "participant" {
			writeError(w, http.StatusBadRequest, "Role must be either 'admin' or 'participant'.")
			return
		}

		target, err := store.GetUser(r.Context(), targetID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		deactivating := req.IsActive != nil && !*req.IsActive
		demoting := req.Role != nil && *req.Role != "admin"

		if targetID == sess.UserID {
			if deactivating {
				writeError(w, http.StatusBadRequest, "You cannot deactivate your own account.")
				return
			}
			if req.Role != nil && *req.Role != target.Role {
				writeError(w, http.StatusBadRequest, "You cannot change your own role.")
				return
			}
		} else if target.Role == "admin" && target.IsActive && (deactivating || demoting) {
			ids, err := store.ActiveAdminIDs(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if wouldOrphanAdmins(ids, targetID) {
				writeError(w, http.StatusBadRequest, "Cannot remove the last active admin.")
				return
			}
		}

		p := userUpdateParams{
			DisplayName: req.DisplayName,
			Email:       req.Email,
			Role:        req.Role,
			IsActive:    req.IsActive,
		}
		if req.Password != nil {
			if len(*req.Password) < 8 {
				writeError(w, http.StatusBadRequest, "Password must be at least 8 characters.")
				return
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			hashed := string(hash)
			p.PasswordHash = &hashed
		}

		user, err := store.UpdateUser(r.Context(), targetID, p)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// handleDeleteUser hard-deletes the account; finds and sessions go
// with it via cascade. The guard order mirrors handleUpdateUser.
func handleDeleteUser(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		targetID := chi.URLParam(r, "id")

		if targetID == sess.UserID {
			writeError(w, http.StatusBadRequest, "You cannot delete your own account.")
			return
		}

		target, err := store.GetUser(r.Context(), targetID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found.")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if target.Role == "admin" && target.IsActive {
			ids, err := store.ActiveAdminIDs(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if wouldOrphanAdmins(ids, targetID) {
				writeError(w, http.StatusBadRequest, "Cannot remove the last active admin.")
				return
			}
		}

		if err := store.DeleteUser(r.Context(), targetID); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted."})
	}
}
