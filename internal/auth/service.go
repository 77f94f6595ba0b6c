// Package auth provides email and password accounts stored next to the
// realtime tree, plus the signed-in user and its change notifications.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/roster/internal/realtime"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrEmailInUse         = errors.New("auth: email already in use")
	ErrWeakPassword       = errors.New("auth: password must be at least 6 characters")
	ErrInvalidEmail       = errors.New("auth: invalid email")
	ErrNotSignedIn        = errors.New("auth: not signed in")
)

// User is a signed-in account.
type User struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

const accountsTable = `CREATE TABLE IF NOT EXISTS accounts (
	uid           TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    BIGINT NOT NULL
)`

// Option configures a Service.
type Option func(*Service)

// WithSession persists the signed-in user to f.
func WithSession(f *SessionFile) Option {
	return func(s *Service) {
		s.session = f
	}
}

// WithUIDs overrides how new account ids are generated.
func WithUIDs(fn func() string) Option {
	return func(s *Service) {
		s.newUID = fn
	}
}

// WithCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithCost(cost int) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

// Service signs users in and out. Safe for concurrent use.
type Service struct {
	db      *sql.DB
	driver  string
	newUID  func() string
	cost    int
	session *SessionFile

	// changeMu orders sign-in and sign-out notifications.
	changeMu sync.Mutex

	mu      sync.Mutex
	current *User
	subs    map[int]func(*User)
	nextSub int
}

// New creates the accounts table if needed.
func New(ctx context.Context, db *realtime.DB, opts ...Option) (*Service, error) {
	s := &Service{
		db:     db.SQL(),
		driver: db.Driver(),
		newUID: uuid.NewString,
		cost:   bcrypt.DefaultCost,
		subs:   make(map[int]func(*User)),
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.db.ExecContext(ctx, accountsTable); err != nil {
		return nil, fmt.Errorf("create accounts table: %w", err)
	}
	return s, nil
}

// CreateUser registers a new account and signs it in.
func (s *Service) CreateUser(ctx context.Context, email, password string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len([]rune(password)) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("create user: hash password: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create user: begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, s.rebind("SELECT uid FROM accounts WHERE email = ?"), email).Scan(&existing)
	switch {
	case err == nil:
		return nil, ErrEmailInUse
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("create user: %w", err)
	}

	u := &User{UID: s.newUID(), Email: email}
	_, err = tx.ExecContext(ctx,
		s.rebind("INSERT INTO accounts (uid, email, password_hash, created_at) VALUES (?, ?, ?, ?)"),
		u.UID, u.Email, string(hash), time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("create user: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create user: commit: %w", err)
	}

	slog.Debug("account created", "uid", u.UID)
	if err := s.setCurrent(u); err != nil {
		return nil, err
	}
	return u, nil
}

// SignIn checks the password and signs the account in.
func (s *Service) SignIn(ctx context.Context, email, password string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	var uid, hash string
	err = s.db.QueryRowContext(ctx,
		s.rebind("SELECT uid, password_hash FROM accounts WHERE email = ?"), email).Scan(&uid, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	u := &User{UID: uid, Email: email}
	if err := s.setCurrent(u); err != nil {
		return nil, err
	}
	return u, nil
}

// SignOut forgets the signed-in user. Signing out twice is not an error.
func (s *Service) SignOut() error {
	return s.setCurrent(nil)
}

// CurrentUser returns the signed-in user, or nil.
func (s *Service) CurrentUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyUser(s.current)
}

// OnAuthStateChanged calls fn with the current user now and after every
// sign-in or sign-out. fn must not sign in or out itself. The returned
// function unregisters fn.
func (s *Service) OnAuthStateChanged(fn func(*User)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	fn(s.CurrentUser())

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
		})
	}
}

// Restore signs in the user saved in the session file, if it still exists.
func (s *Service) Restore(ctx context.Context) (*User, error) {
	if s.session == nil {
		return nil, nil
	}

	saved, err := s.session.Load()
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, nil
	}

	var email string
	err = s.db.QueryRowContext(ctx, s.rebind("SELECT email FROM accounts WHERE uid = ?"), saved.UID).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Warn("saved session refers to a missing account", "uid", saved.UID)
		return nil, s.session.Clear()
	}
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}

	u := &User{UID: saved.UID, Email: email}
	if err := s.setCurrent(u); err != nil {
		return nil, err
	}
	return u, nil
}

// setCurrent stores u and notifies subscribers with a copy of it. Changes
// are serialised so every subscriber sees them in the order they were made.
func (s *Service) setCurrent(u *User) error {
	s.changeMu.Lock()
	defer s.changeMu.Unlock()

	if s.session != nil {
		var err error
		if u == nil {
			err = s.session.Clear()
		} else {
			err = s.session.Save(u)
		}
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.current = copyUser(u)
	subs := make([]func(*User), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(copyUser(u))
	}
	return nil
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func (s *Service) rebind(query string) string {
	return realtime.Rebind(s.driver, query)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t\n") {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return email, nil
}
