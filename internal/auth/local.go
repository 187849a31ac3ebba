package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/llehouerou/soundshow/internal/apperr"
	"github.com/llehouerou/soundshow/internal/docstore"
	"github.com/llehouerou/soundshow/internal/errmsg"
)

const (
	accountsCollection = "accounts"
	sessionsCollection = "sessions"
	currentSessionID   = "current"
)

type session struct {
	UID string `json:"uid"`
}

// Local is a Provider backed by the document store. Accounts are keyed by
// email; the signed-in account survives restarts through a session document.
type Local struct {
	store *docstore.Store
	log   *log.Logger

	opMu sync.Mutex // serializes sign-up, sign-in, sign-out and profile updates

	mu      sync.RWMutex
	current *User

	lmu       sync.Mutex
	nextID    int
	listeners map[int]func(*User)
}

// Verify Local implements Provider at compile time.
var _ Provider = (*Local)(nil)

// NewLocal creates the provider and restores the persisted session.
func NewLocal(ctx context.Context, store *docstore.Store, logger *log.Logger) (*Local, error) {
	if logger == nil {
		logger = log.Default()
	}
	l := &Local{
		store:     store,
		log:       logger,
		listeners: make(map[int]func(*User)),
	}
	if err := l.restore(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Local) restore(ctx context.Context) error {
	doc, err := l.store.Get(ctx, sessionsCollection, currentSessionID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Remote(errmsg.OpInitialize, err)
	}
	var s session
	if err := doc.DataTo(&s); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}

	u, err := l.account(ctx, s.UID)
	if errors.Is(err, apperr.ErrNotFound) {
		l.log.Warn("session references missing account", "uid", s.UID)
		return l.store.Delete(ctx, sessionsCollection, currentSessionID)
	}
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.current = &u
	l.mu.Unlock()
	return nil
}

// CurrentUser returns the signed-in user, or nil.
func (l *Local) CurrentUser() *User {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.current == nil {
		return nil
	}
	u := *l.current
	return &u
}

// OnAuthStateChanged registers fn and calls it immediately with the current user.
func (l *Local) OnAuthStateChanged(fn func(*User)) func() {
	l.lmu.Lock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = fn
	l.lmu.Unlock()

	fn(l.CurrentUser())

	var once sync.Once
	return func() {
		once.Do(func() {
			l.lmu.Lock()
			delete(l.listeners, id)
			l.lmu.Unlock()
		})
	}
}

// SignUp registers a new account and signs it in.
func (l *Local) SignUp(ctx context.Context, email, displayName string) (User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return User{}, apperr.Invalid("displayName", "Please fill in all fields.")
	}

	l.opMu.Lock()
	defer l.opMu.Unlock()

	if _, err := l.byEmail(ctx, email); err == nil {
		return User{}, apperr.Invalid("email", "This email is already in use.")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return User{}, err
	}

	u := User{Email: email, DisplayName: displayName}
	id, err := l.store.Create(ctx, accountsCollection, u)
	if err != nil {
		return User{}, apperr.Remote(errmsg.OpSignUp, err)
	}
	u.ID = id

	if err := l.startSession(ctx, u); err != nil {
		return User{}, err
	}
	l.log.Info("account created", "uid", u.ID)
	return u, nil
}

// SignIn signs in an existing account. Unknown emails fail with apperr.ErrNotFound.
func (l *Local) SignIn(ctx context.Context, email string) (User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return User{}, err
	}

	l.opMu.Lock()
	defer l.opMu.Unlock()

	u, err := l.byEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if err := l.startSession(ctx, u); err != nil {
		return User{}, err
	}
	l.log.Info("signed in", "uid", u.ID)
	return u, nil
}

// SignOut ends the session. Signing out while signed out is a no-op.
func (l *Local) SignOut(ctx context.Context) error {
	l.opMu.Lock()
	defer l.opMu.Unlock()

	if l.CurrentUser() == nil {
		return nil
	}
	if err := l.store.Delete(ctx, sessionsCollection, currentSessionID); err != nil {
		return apperr.Remote(errmsg.OpSignOut, err)
	}

	l.mu.Lock()
	l.current = nil
	l.mu.Unlock()
	l.log.Info("signed out")
	l.notify()
	return nil
}

// UpdateProfile changes the signed-in user's display name.
func (l *Local) UpdateProfile(ctx context.Context, displayName string) (User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return User{}, apperr.Invalid("displayName", "Display name cannot be empty.")
	}

	l.opMu.Lock()
	defer l.opMu.Unlock()

	cur := l.CurrentUser()
	if cur == nil {
		return User{}, apperr.ErrNotAuthenticated
	}

	u := *cur
	u.DisplayName = displayName
	if err := l.store.Set(ctx, accountsCollection, u.ID, u); err != nil {
		return User{}, apperr.Remote(errmsg.OpProfileUpdate, err)
	}

	l.mu.Lock()
	l.current = &u
	l.mu.Unlock()
	l.notify()
	return u, nil
}

func (l *Local) startSession(ctx context.Context, u User) error {
	if err := l.store.Set(ctx, sessionsCollection, currentSessionID, session{UID: u.ID}); err != nil {
		return apperr.Remote(errmsg.OpSignIn, err)
	}
	l.mu.Lock()
	l.current = &u
	l.mu.Unlock()
	l.notify()
	return nil
}

func (l *Local) notify() {
	l.lmu.Lock()
	fns := make([]func(*User), 0, len(l.listeners))
	for _, fn := range l.listeners {
		fns = append(fns, fn)
	}
	l.lmu.Unlock()

	for _, fn := range fns {
		fn(l.CurrentUser())
	}
}

func (l *Local) account(ctx context.Context, uid string) (User, error) {
	doc, err := l.store.Get(ctx, accountsCollection, uid)
	if err != nil {
		return User{}, apperr.Remote(errmsg.OpSignIn, err)
	}
	var u User
	if err := doc.DataTo(&u); err != nil {
		return User{}, fmt.Errorf("decode account %s: %w", uid, err)
	}
	u.ID = doc.ID
	return u, nil
}

func (l *Local) byEmail(ctx context.Context, email string) (User, error) {
	docs, err := l.store.Query(ctx, docstore.Query{Collection: accountsCollection, Limit: 1}.WhereEq("email", email))
	if err != nil {
		return User{}, apperr.Remote(errmsg.OpSignIn, err)
	}
	if len(docs) == 0 {
		return User{}, fmt.Errorf("account %s: %w", email, apperr.ErrNotFound)
	}
	var u User
	if err := docs[0].DataTo(&u); err != nil {
		return User{}, err
	}
	u.ID = docs[0].ID
	return u, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperr.Invalid("email", "Please fill in all fields.")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.Invalid("email", "The email address is invalid.")
	}
	return email, nil
}
