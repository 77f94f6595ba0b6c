package auth

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/roach88/roster/internal/realtime"
	"github.com/roach88/roster/internal/testutil"
)

func openDB(t *testing.T) *realtime.DB {
	t.Helper()
	db, err := realtime.Open(context.Background(), realtime.Config{DSN: filepath.Join(t.TempDir(), "auth.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newService(t *testing.T, db *realtime.DB, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithCost(bcrypt.MinCost), WithUIDs(testutil.NewSequence("uid-").Next)}, opts...)
	s, err := New(context.Background(), db, opts...)
	require.NoError(t, err)
	return s
}

func TestCreateUser_SignsIn(t *testing.T) {
	s := newService(t, openDB(t))

	u, err := s.CreateUser(context.Background(), "  Sam@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, &User{UID: "uid-1", Email: "sam@example.com"}, u)
	assert.Equal(t, u, s.CurrentUser())
}

func TestCreateUser_Errors(t *testing.T) {
	ctx := context.Background()
	s := newService(t, openDB(t))

	_, err := s.CreateUser(ctx, "a@b.c", "12345")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = s.CreateUser(ctx, "not-an-email", "secret1")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = s.CreateUser(ctx, "a@b.c", "secret1")
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "A@B.C", "other12")
	assert.ErrorIs(t, err, ErrEmailInUse)
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	s := newService(t, db)

	_, err := s.CreateUser(ctx, "a@b.c", "secret1")
	require.NoError(t, err)
	require.NoError(t, s.SignOut())
	assert.Nil(t, s.CurrentUser())

	_, err = s.SignIn(ctx, "a@b.c", "wrong12")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.SignIn(ctx, "nobody@b.c", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	u, err := s.SignIn(ctx, "A@B.C", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", u.UID)
	assert.Equal(t, u, s.CurrentUser())
}

func TestPasswordIsHashed(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	s := newService(t, db)

	_, err := s.CreateUser(ctx, "a@b.c", "secret1")
	require.NoError(t, err)

	var hash string
	require.NoError(t, db.SQL().QueryRow("SELECT password_hash FROM accounts").Scan(&hash))
	assert.NotContains(t, hash, "secret1")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret1")))
}

func TestOnAuthStateChanged(t *testing.T) {
	ctx := context.Background()
	s := newService(t, openDB(t))

	var mu sync.Mutex
	var seen []*User
	unsubscribe := s.OnAuthStateChanged(func(u *User) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, u)
	})

	_, err := s.CreateUser(ctx, "a@b.c", "secret1")
	require.NoError(t, err)
	require.NoError(t, s.SignOut())

	unsubscribe()
	unsubscribe()
	_, err = s.SignIn(ctx, "a@b.c", "secret1")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3)
	assert.Nil(t, seen[0], "fires immediately with no user")
	assert.Equal(t, "a@b.c", seen[1].Email)
	assert.Nil(t, seen[2])
}

func TestCurrentUserIsACopy(t *testing.T) {
	s := newService(t, openDB(t))
	_, err := s.CreateUser(context.Background(), "a@b.c", "secret1")
	require.NoError(t, err)

	s.CurrentUser().Email = "changed"
	assert.Equal(t, "a@b.c", s.CurrentUser().Email)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	session := NewSessionFile(filepath.Join(t.TempDir(), "state", "session.json"))

	first := newService(t, db, WithSession(session))
	created, err := first.CreateUser(ctx, "a@b.c", "secret1")
	require.NoError(t, err)

	info, err := os.Stat(session.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second := newService(t, db, WithSession(session))
	restored, err := second.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, created, restored)
	assert.Equal(t, created, second.CurrentUser())

	require.NoError(t, second.SignOut())
	_, err = os.Stat(session.Path)
	assert.True(t, os.IsNotExist(err))

	third := newService(t, db, WithSession(session))
	restored, err = third.Restore(ctx)
	require.NoError(t, err)
	assert.Nil(t, restored)
}

func TestRestore_MissingAccountClearsSession(t *testing.T) {
	ctx := context.Background()
	session := NewSessionFile(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, session.Save(&User{UID: "ghost", Email: "g@h.i"}))

	s := newService(t, openDB(t), WithSession(session))
	u, err := s.Restore(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	_, err = os.Stat(session.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestRestore_WithoutSessionFile(t *testing.T) {
	s := newService(t, openDB(t))
	u, err := s.Restore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestOnAuthStateChanged_SignInOutIn(t *testing.T) {
	ctx := context.Background()
	s := newService(t, openDB(t))
	_, err := s.CreateUser(ctx, "a@b.c", "secret1")
	require.NoError(t, err)
	require.NoError(t, s.SignOut())

	var mu sync.Mutex
	var seen []*User
	unsubscribe := s.OnAuthStateChanged(func(u *User) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, u)
	})
	defer unsubscribe()

	_, err = s.SignIn(ctx, "a@b.c", "secret1")
	require.NoError(t, err)
	require.NoError(t, s.SignOut())
	_, err = s.SignIn(ctx, "a@b.c", "secret1")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 4)
	assert.Nil(t, seen[0])
	require.NotNil(t, seen[1])
	assert.Equal(t, "a@b.c", seen[1].Email)
	assert.Nil(t, seen[2])
	require.NotNil(t, seen[3])
	assert.Equal(t, "a@b.c", seen[3].Email)
}

func TestOnAuthStateChanged_ConcurrentChangesEndOnCurrentUser(t *testing.T) {
	ctx := context.Background()
	s := newService(t, openDB(t))
	_, err := s.CreateUser(ctx, "a@b.c", "secret1")
	require.NoError(t, err)

	var mu sync.Mutex
	var last *User
	calls := 0
	unsubscribe := s.OnAuthStateChanged(func(u *User) {
		mu.Lock()
		defer mu.Unlock()
		last = u
		calls++
	})
	defer unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.SignIn(ctx, "a@b.c", "secret1")
		}()
		go func() {
			defer wg.Done()
			_ = s.SignOut()
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, calls, 9)
	assert.Equal(t, s.CurrentUser(), last, "last notification must match the final state")
}

func TestOnAuthStateChanged_SubscribersGetCopies(t *testing.T) {
	ctx := context.Background()
	s := newService(t, openDB(t))

	unsubscribe := s.OnAuthStateChanged(func(u *User) {
		if u != nil {
			u.Email = "tampered"
		}
	})
	defer unsubscribe()

	_, err := s.CreateUser(ctx, "a@b.c", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", s.CurrentUser().Email)
}
