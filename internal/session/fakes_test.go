package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront/internal/client"
	"storefront/internal/model"
)

type fakeProfiles struct {
	mu        sync.Mutex
	rows      map[string]*model.UserProfile
	findErr   error
	createErr error
	finds     int
	creates   int
	tokens    []string
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{rows: map[string]*model.UserProfile{}}
}

func (f *fakeProfiles) FindByID(ctx context.Context, userID string) (*model.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	f.tokens = append(f.tokens, client.AccessTokenFrom(ctx))
	if f.findErr != nil {
		return nil, f.findErr
	}
	p, ok := f.rows[userID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) Create(ctx context.Context, profile *model.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return f.createErr
	}
	cp := *profile
	f.rows[profile.ID] = &cp
	return nil
}

func (f *fakeProfiles) Update(ctx context.Context, userID string, patch model.ProfilePatch, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[userID]
	if !ok {
		return model.ErrNotFound
	}
	patch.Apply(p)
	p.UpdatedAt = &updatedAt
	return nil
}

func (f *fakeProfiles) findCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finds
}

// fakeProvider is a Provider driven by the test.
type fakeProvider struct {
	mu        sync.Mutex
	session   *model.Session
	signInErr error
	signUpErr error
	signUpRes *model.AuthUser
	listeners map[int]func(model.AuthEvent)
	nextID    int
	signOuts  int
}

func newFakeProvider(session *model.Session) *fakeProvider {
	return &fakeProvider{session: session, listeners: map[int]func(model.AuthEvent){}}
}

func (p *fakeProvider) fire(ev model.AuthEvent) {
	p.mu.Lock()
	fns := make([]func(model.AuthEvent), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (p *fakeProvider) GetSession(ctx context.Context) (*model.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session, nil
}

func (p *fakeProvider) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	if p.signInErr != nil {
		return nil, p.signInErr
	}
	s := testSession("user-1", email)
	p.mu.Lock()
	p.session = s
	p.mu.Unlock()
	p.fire(model.AuthEvent{Type: model.EventSignedIn, Session: s})
	return s, nil
}

func (p *fakeProvider) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*model.AuthUser, *model.Session, error) {
	if p.signUpErr != nil {
		return nil, nil, p.signUpErr
	}
	return p.signUpRes, nil, nil
}

func (p *fakeProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.session = nil
	p.signOuts++
	p.mu.Unlock()
	p.fire(model.AuthEvent{Type: model.EventSignedOut})
	return nil
}

func (p *fakeProvider) OnAuthStateChange(fn func(model.AuthEvent)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func testSession(userID, email string) *model.Session {
	return &model.Session{
		AccessToken:  "token-" + userID,
		RefreshToken: "refresh-" + userID,
		User:         model.AuthUser{ID: userID, Email: email},
	}
}

var errBoom = errors.New("boom")
