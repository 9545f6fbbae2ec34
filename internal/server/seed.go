package server

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// SeedAdmin creates the initial admin account if no users exist.
// Idempotent: does nothing once any user is present.
func SeedAdmin(ctx context.Context, logger *slog.Logger, store Store, password string) error {
	users, err := store.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin, err := store.CreateUser(ctx, newUserParams{
		Username:     "admin",
		PasswordHash: string(hash),
		Role:         "admin",
		DisplayName:  "Administrator",
	})
	if err != nil {
		return err
	}

	logger.Info("seeded initial admin", "id", admin.ID, "username", admin.Username)
	return nil
}
