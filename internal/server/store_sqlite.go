package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// UserFromToken resolves a bearer token. Deactivation blocks new
// logins but does not revoke sessions that already exist.
func (s *SQLiteStore) UserFromToken(ctx context.Context, token string) (userSession, error) {
	var sess userSession
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.role, COALESCE(u.display_name, '')
		FROM sessions se
		JOIN users u ON u.id = se.user_id
		WHERE se.id = ?
	`, token).Scan(&sess.UserID, &sess.Username, &sess.Role, &sess.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return userSession{}, errNoSession
	}
	return sess, err
}

func (s *SQLiteStore) CreateSession(ctx context.Context, userID string) (string, error) {
	token := newID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, created_at) VALUES (?, ?, ?)
	`, token, userID, nowUTC())
	return token, err
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, token)
	return err
}

const userColumns = `
	u.id, u.username, u.password_hash, u.role,
	COALESCE(u.display_name, ''), COALESCE(u.email, ''),
	u.is_active, u.created_at, u.last_login,
	(SELECT COUNT(*) FROM finds f WHERE f.user_id = u.id)`

func scanUser(row *sql.Row) (User, error) {
	var u User
	var lastLogin sql.NullString
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role,
		&u.DisplayName, &u.Email, &u.IsActive, &u.CreatedAt, &lastLogin, &u.FindCount)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	u.LastLogin = lastLogin.String
	return u, err
}

func (s *SQLiteStore) UserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.username = ?`, username))
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.id = ?`, id))
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users u ORDER BY u.created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		var lastLogin sql.NullString
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role,
			&u.DisplayName, &u.Email, &u.IsActive, &u.CreatedAt, &lastLogin, &u.FindCount); err != nil {
			return nil, err
		}
		u.LastLogin = lastLogin.String
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) CreateUser(ctx context.Context, p newUserParams) (User, error) {
	id := newID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, role, display_name, email, is_active, created_at)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), 1, ?)
	`, id, p.Username, p.PasswordHash, p.Role, p.DisplayName, p.Email, nowUTC())
	if err != nil {
		return User{}, err
	}
	return s.GetUser(ctx, id)
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, id string, p userUpdateParams) (User, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			display_name  = COALESCE(?, display_name),
			email         = COALESCE(?, email),
			role          = COALESCE(?, role),
			is_active     = COALESCE(?, is_active),
			password_hash = COALESCE(?, password_hash)
		WHERE id = ?
	`, p.DisplayName, p.Email, p.Role, boolToIntPtr(p.IsActive), p.PasswordHash, id)
	if err != nil {
		return User{}, err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return User{}, ErrNotFound
	}
	return s.GetUser(ctx, id)
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM users WHERE username = ?`, username).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteStore) ActiveAdminIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM users WHERE role = 'admin' AND is_active = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) TouchLastLogin(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE id = ?`, nowUTC(), id)
	return err
}

const spotColumns = `
	s.id, s.name, COALESCE(s.description, ''), s.clue, s.lat, s.lng,
	s.fuzzy_radius_m, s.code, s.is_active, COALESCE(s.created_by, ''),
	s.created_at, s.updated_at,
	(SELECT COUNT(*) FROM finds f WHERE f.spot_id = s.id)`

func scanSpot(row *sql.Row) (Spot, error) {
	var sp Spot
	err := row.Scan(&sp.ID, &sp.Name, &sp.Description, &sp.Clue, &sp.Lat, &sp.Lng,
		&sp.FuzzyRadiusM, &sp.Code, &sp.IsActive, &sp.CreatedBy,
		&sp.CreatedAt, &sp.UpdatedAt, &sp.FindCount)
	if errors.Is(err, sql.ErrNoRows) {
		return Spot{}, ErrNotFound
	}
	return sp, err
}

func (s *SQLiteStore) CreateSpot(ctx context.Context, p newSpotParams) (Spot, error) {
	id := newID()
	now := nowUTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spots (id, name, description, clue, lat, lng, fuzzy_radius_m, code, is_active, created_by, created_at, updated_at)
		VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?, 1, NULLIF(?, ''), ?, ?)
	`, id, p.Name, p.Description, p.Clue, p.Lat, p.Lng, p.FuzzyRadiusM, p.Code, p.CreatedBy, now, now)
	if err != nil {
		return Spot{}, err
	}
	return s.GetSpot(ctx, id)
}

func (s *SQLiteStore) GetSpot(ctx context.Context, id string) (Spot, error) {
	return scanSpot(s.db.QueryRowContext(ctx,
		`SELECT `+spotColumns+` FROM spots s WHERE s.id = ?`, id))
}

func (s *SQLiteStore) SpotByCode(ctx context.Context, code string) (Spot, error) {
	return scanSpot(s.db.QueryRowContext(ctx,
		`SELECT `+spotColumns+` FROM spots s WHERE s.code = ?`, code))
}

func (s *SQLiteStore) UpdateSpot(ctx context.Context, id string, p spotUpdateParams) (Spot, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE spots SET
			name           = COALESCE(?, name),
			description    = COALESCE(?, description),
			clue           = COALESCE(?, clue),
			lat            = COALESCE(?, lat),
			lng            = COALESCE(?, lng),
			fuzzy_radius_m = COALESCE(?, fuzzy_radius_m),
			is_active      = COALESCE(?, is_active),
			updated_at     = ?
		WHERE id = ?
	`, p.Name, p.Description, p.Clue, p.Lat, p.Lng, p.FuzzyRadiusM,
		boolToIntPtr(p.IsActive), nowUTC(), id)
	if err != nil {
		return Spot{}, err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return Spot{}, ErrNotFound
	}
	return s.GetSpot(ctx, id)
}

func (s *SQLiteStore) ListActiveSpots(ctx context.Context, userID string) ([]activeSpot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.lat, s.lng, s.fuzzy_radius_m,
			(SELECT COUNT(*) FROM finds f WHERE f.spot_id = s.id),
			EXISTS (SELECT 1 FROM finds f WHERE f.spot_id = s.id AND f.user_id = ?)
		FROM spots s
		WHERE s.is_active = 1
		ORDER BY s.created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	spots := []activeSpot{}
	for rows.Next() {
		var sp activeSpot
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.Lat, &sp.Lng, &sp.FuzzyRadiusM,
			&sp.FindCount, &sp.FoundByMe); err != nil {
			return nil, err
		}
		spots = append(spots, sp)
	}
	return spots, rows.Err()
}

func (s *SQLiteStore) ListAllSpots(ctx context.Context) ([]Spot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+spotColumns+` FROM spots s ORDER BY s.created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	spots := []Spot{}
	for rows.Next() {
		var sp Spot
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.Description, &sp.Clue, &sp.Lat, &sp.Lng,
			&sp.FuzzyRadiusM, &sp.Code, &sp.IsActive, &sp.CreatedBy,
			&sp.CreatedAt, &sp.UpdatedAt, &sp.FindCount); err != nil {
			return nil, err
		}
		spots = append(spots, sp)
	}
	return spots, rows.Err()
}

func (s *SQLiteStore) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM spots WHERE code = ?`, code).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// CreateFind relies on the composite primary key to arbitrate
// concurrent duplicate claims: whichever insert lands second conflicts
// and reports ErrAlreadyFound, regardless of how earlier reads raced.
func (s *SQLiteStore) CreateFind(ctx context.Context, spotID, userID string) (string, error) {
	now := nowUTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO finds (spot_id, user_id, found_at)
		VALUES (?, ?, ?)
		ON CONFLICT (spot_id, user_id) DO NOTHING
	`, spotID, userID, now)
	if err != nil {
		return "", err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return "", ErrAlreadyFound
	}
	return now, nil
}

func (s *SQLiteStore) HasFind(ctx context.Context, spotID, userID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM finds WHERE spot_id = ? AND user_id = ?`, spotID, userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteStore) FindCount(ctx context.Context, spotID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM finds WHERE spot_id = ?`, spotID).Scan(&count)
	return count, err
}

func (s *SQLiteStore) FindsForSpot(ctx context.Context, spotID string) ([]spotFind, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.username, COALESCE(u.display_name, ''), f.found_at
		FROM finds f
		JOIN users u ON u.id = f.user_id
		WHERE f.spot_id = ?
		ORDER BY f.found_at, f.rowid
	`, spotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	finds := []spotFind{}
	for rows.Next() {
		var f spotFind
		if err := rows.Scan(&f.Username, &f.DisplayName, &f.FoundAt); err != nil {
			return nil, err
		}
		finds = append(finds, f)
	}
	return finds, rows.Err()
}

func (s *SQLiteStore) FindsForUser(ctx context.Context, userID string) ([]userFind, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.spot_id, s.name, f.found_at
		FROM finds f
		JOIN spots s ON s.id = f.spot_id
		WHERE f.user_id = ?
		ORDER BY f.found_at DESC, f.rowid DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	finds := []userFind{}
	for rows.Next() {
		var f userFind
		if err := rows.Scan(&f.SpotID, &f.SpotName, &f.FoundAt); err != nil {
			return nil, err
		}
		finds = append(finds, f)
	}
	return finds, rows.Err()
}

// RecentFinds returns finds after since (lexicographic comparison;
// timestamps are stored in a fixed sortable format) for active spots,
// oldest first. limit <= 0 means no cap.
func (s *SQLiteStore) RecentFinds(ctx context.Context, since string, limit int) ([]feedFind, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.spot_id, s.name,
			COALESCE(NULLIF(u.display_name, ''), u.username),
			f.found_at
		FROM finds f
		JOIN spots s ON s.id = f.spot_id
		JOIN users u ON u.id = f.user_id
		WHERE s.is_active = 1 AND f.found_at > ?
		ORDER BY f.found_at, f.rowid
		LIMIT ?
	`, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	finds := []feedFind{}
	for rows.Next() {
		var f feedFind
		if err := rows.Scan(&f.SpotID, &f.SpotName, &f.ActorName, &f.FoundAt); err != nil {
			return nil, err
		}
		finds = append(finds, f)
	}
	return finds, rows.Err()
}

func boolToIntPtr(b *bool) any {
	if b == nil {
		return nil
	}
	if *b {
		return int64(1)
	}
	return int64(0)
}

func newID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func nowUTC() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}
