package session

import (
	"context"
	"sync"
	"time"

	"storefront/internal/client"
	"storefront/internal/model"
)

// Provider is the auth backend behind one browser session.
type Provider interface {
	// GetSession returns the current session, refreshing it when the access
	// token is about to expire. No session is nil, nil.
	GetSession(ctx context.Context) (*model.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]string) (*model.AuthUser, *model.Session, error)
	SignOut(ctx context.Context) error
	// OnAuthStateChange registers fn for auth events. fn must not block.
	OnAuthStateChange(fn func(model.AuthEvent)) (unsubscribe func())
}

const refreshLeeway = 30 * time.Second

// GoTrueProvider keeps one session's token bundle and turns sign-in,
// sign-out and refreshes into auth events.
type GoTrueProvider struct {
	auth client.AuthClient
	now  func() time.Time

	mu        sync.Mutex
	session   *model.Session
	listeners map[int]func(model.AuthEvent)
	nextID    int
}

// NewGoTrueProvider starts from seed, which may be nil.
func NewGoTrueProvider(auth client.AuthClient, seed *model.Session) *GoTrueProvider {
	return &GoTrueProvider{
		auth:      auth,
		now:       time.Now,
		session:   seed,
		listeners: map[int]func(model.AuthEvent){},
	}
}

func (p *GoTrueProvider) emit(ev model.AuthEvent) {
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

func (p *GoTrueProvider) setSession(session *model.Session) {
	p.mu.Lock()
	p.session = session
	p.mu.Unlock()
}

func (p *GoTrueProvider) GetSession(ctx context.Context) (*model.Session, error) {
	p.mu.Lock()
	current := p.session
	p.mu.Unlock()

	if current == nil || !current.Expired(p.now(), refreshLeeway) {
		return current, nil
	}
	if current.RefreshToken == "" {
		p.setSession(nil)
		p.emit(model.AuthEvent{Type: model.EventSignedOut})
		return nil, nil
	}

	refreshed, err := p.auth.RefreshSession(ctx, current.RefreshToken)
	if err != nil {
		p.setSession(nil)
		p.emit(model.AuthEvent{Type: model.EventSignedOut})
		return nil, err
	}
	p.setSession(refreshed)
	p.emit(model.AuthEvent{Type: model.EventTokenRefreshed, Session: refreshed})
	return refreshed, nil
}

func (p *GoTrueProvider) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	session, err := p.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	p.setSession(session)
	p.emit(model.AuthEvent{Type: model.EventSignedIn, Session: session})
	return session, nil
}

func (p *GoTrueProvider) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*model.AuthUser, *model.Session, error) {
	user, session, err := p.auth.SignUp(ctx, email, password, metadata)
	if err != nil {
		return nil, nil, err
	}
	if session != nil {
		p.setSession(session)
		p.emit(model.AuthEvent{Type: model.EventSignedIn, Session: session})
	}
	return user, session, nil
}

// SignOut clears the local session even when the provider call fails.
func (p *GoTrueProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	current := p.session
	p.session = nil
	p.mu.Unlock()

	var err error
	if current != nil {
		err = p.auth.SignOut(ctx, current.AccessToken)
	}
	p.emit(model.AuthEvent{Type: model.EventSignedOut})
	return err
}

func (p *GoTrueProvider) OnAuthStateChange(fn func(model.AuthEvent)) func() {
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
