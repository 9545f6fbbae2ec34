package server

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyFound = errors.New("already found")
)

// User is the store-level view of an account. PasswordHash never
// leaves the server package.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	DisplayName  string `json:"displayName"`
	Email        string `json:"email"`
	IsActive     bool   `json:"isActive"`
	CreatedAt    string `json:"createdAt"`
	LastLogin    string `json:"lastLogin,omitempty"`
	FindCount    int    `json:"findCount"`
	PasswordHash string `json:"-"`
}

// Spot carries the exact location. Only admin responses serialize it;
// participant-facing handlers convert through geo.Fuzz first.
type Spot struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Clue         string  `json:"clue"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	FuzzyRadiusM int     `json:"fuzzyRadiusMeters"`
	Code         string  `json:"code"`
	IsActive     bool    `json:"isActive"`
	CreatedBy    string  `json:"createdBy,omitempty"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
	FindCount    int     `json:"findCount"`
}

// activeSpot is one row of the participant listing before fuzzing.
type activeSpot struct {
	ID           string
	Name         string
	Lat          float64
	Lng          float64
	FuzzyRadiusM int
	FindCount    int
	FoundByMe    bool
}

// spotFind is one finder of a spot.
type spotFind struct {
	Username    string
	DisplayName string
	FoundAt     string
}

// userFind is one entry of a participant's own history.
type userFind struct {
	SpotID   string
	SpotName string
	FoundAt  string
}

// feedFind is one row of the polling feed.
type feedFind struct {
	SpotID    string
	SpotName  string
	ActorName string
	FoundAt   string
}

type newUserParams struct {
	Username     string
	PasswordHash string
	Role         string
	DisplayName  string
	Email        string
}

type userUpdateParams struct {
	DisplayName  *string
	Email        *string
	Role         *string
	IsActive     *bool
	PasswordHash *string
}

type newSpotParams struct {
	Name         string
	Description  string
	Clue         string
	Lat          float64
	Lng          float64
	FuzzyRadiusM int
	Code         string
	CreatedBy    string
}

type spotUpdateParams struct {
	Name         *string
	Description  *string
	Clue         *string
	Lat          *float64
	Lng          *float64
	FuzzyRadiusM *int
	IsActive     *bool
}

type Store interface {
	UserFromToken(ctx context.Context, token string) (userSession, error)
	CreateSession(ctx context.Context, userID string) (string, error)
	DeleteSession(ctx context.Context, token string) error

	UserByUsername(ctx context.Context, username string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, p newUserParams) (User, error)
	UpdateUser(ctx context.Context, id string, p userUpdateParams) (User, error)
	DeleteUser(ctx context.Context, id string) error
	UsernameTaken(ctx context.Context, username string) (bool, error)
	ActiveAdminIDs(ctx context.Context) ([]string, error)
	TouchLastLogin(ctx context.Context, id string) error

	CreateSpot(ctx context.Context, p newSpotParams) (Spot, error)
	GetSpot(ctx context.Context, id string) (Spot, error)
	SpotByCode(ctx context.Context, code string) (Spot, error)
	UpdateSpot(ctx context.Context, id string, p spotUpdateParams) (Spot, error)
	ListActiveSpots(ctx context.Context, userID string) ([]activeSpot, error)
	ListAllSpots(ctx context.Context) ([]Spot, error)
	CodeExists(ctx context.Context, code string) (bool, error)

	CreateFind(ctx context.Context, spotID, userID string) (string, error)
	HasFind(ctx context.Context, spotID, userID string) (bool, error)
	FindCount(ctx context.Context, spotID string) (int, error)
	FindsForSpot(ctx context.Context, spotID string) ([]spotFind, error)
	FindsForUser(ctx context.Context, userID string) ([]userFind, error)
	RecentFinds(ctx context.Context, since string, limit int) ([]feedFind, error)
}
