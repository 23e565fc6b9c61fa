package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User is an account row. Tier starts at "free" and is raised by an
// admin when a subscription is activated.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Tier      string    `json:"tier"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
)

// UserStore manages accounts over the users table. Passwords are stored
// as bcrypt hashes only.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore { return &UserStore{db: db} }

func (s *UserStore) Create(ctx context.Context, username, password, role, tier string) (User, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" || len(password) < 8 {
		return User{}, ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	u := User{
		ID:        uuid.NewString(),
		Username:  username,
		Role:      role,
		Tier:      tier,
		CreatedAt: time.Now().UTC(),
	}
	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username=$1`, username).Scan(&exists); err != nil {
		return User{}, err
	}
	if exists > 0 {
		return User{}, ErrUsernameTaken
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO users
		(id, username, password_hash, role, tier, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Username, string(hash), u.Role, u.Tier, u.CreatedAt.Unix())
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *UserStore) Authenticate(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	var (
		u    User
		hash string
		ts   int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, tier, created_at FROM users WHERE username=$1`,
		username).Scan(&u.ID, &u.Username, &hash, &u.Role, &u.Tier, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		// Burn a comparison anyway so the timing does not reveal
		// whether the username exists.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000uGZwCM1wQvYyVU3H4gCqYdVGhYmGBPC"), []byte(password))
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	u.CreatedAt = time.Unix(ts, 0).UTC()
	return u, nil
}

func (s *UserStore) Get(ctx context.Context, idOrUsername string) (User, error) {
	var (
		u  User
		ts int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, role, tier, created_at FROM users WHERE id=$1 OR username=$1`,
		idOrUsername).Scan(&u.ID, &u.Username, &u.Role, &u.Tier, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.CreatedAt = time.Unix(ts, 0).UTC()
	return u, nil
}

// SetTier changes an account's subscription tier. Admin-only at the
// route level.
func (s *UserStore) SetTier(ctx context.Context, idOrUsername, tier string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET tier=$1 WHERE id=$2 OR username=$2`, tier, idOrUsername)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// EnsureAdmin seeds the bootstrap admin account if it does not exist.
// passHash must already be a bcrypt hash; raw admin passwords never
// appear in config.
func (s *UserStore) EnsureAdmin(ctx context.Context, username, passHash string) error {
	if username == "" || passHash == "" {
		return nil
	}
	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username=$1`, username).Scan(&exists); err != nil {
		return err
	}
	if exists > 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO users
		(id, username, password_hash, role, tier, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		uuid.NewString(), username, passHash, "admin", "premium", time.Now().UTC().Unix())
	return err
}

// POST /auth/register  { "username": "...", "password": "..." }
func RegisterHandler(a *AuthService, users *UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		u, err := users.Create(r.Context(), req.Username, req.Password, "user", "free")
		switch {
		case errors.Is(err, ErrUsernameTaken):
			http.Error(w, "username already taken", http.StatusConflict)
			return
		case errors.Is(err, ErrInvalidCredentials):
			http.Error(w, "username required and password must be at least 8 characters", http.StatusBadRequest)
			return
		case err != nil:
			http.Error(w, "create user", http.StatusInternalServerError)
			return
		}
		tok, err := a.IssueJWT(u.ID, u.Role, u.Tier)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": tok, "user": u})
	}
}

// POST /auth/login  { "username": "...", "password": "..." }
func LoginHandler(a *AuthService, users *UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		u, err := users.Authenticate(r.Context(), req.Username, req.Password)
		if errors.Is(err, ErrInvalidCredentials) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if err != nil {
			http.Error(w, "login", http.StatusInternalServerError)
			return
		}
		tok, err := a.IssueJWT(u.ID, u.Role, u.Tier)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": tok, "user": u})
	}
}
