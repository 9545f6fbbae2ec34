package server

import (
	"context"
	"net/http"
)

type ctxKey int

const ctxKeySession ctxKey = iota

func authMiddleware(store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Authentication required.")
				return
			}

			sess, err := store.UserFromToken(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Authentication required.")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeySession, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sessionFrom(r).Role != "admin" {
			writeError(w, http.StatusForbidden, "Admin access required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionFrom(r *http.Request) userSession {
	return r.Context().Value(ctxKeySession).(userSession)
}
