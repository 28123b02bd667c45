package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"storefront/internal/client"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/repository"
)

const (
	msgInvalidCredentials = "Incorrect email or password. Please try again."
	msgEmailNotConfirmed  = "Email not confirmed. Please check your inbox for the confirmation link."
	msgAlreadyRegistered  = "An account with this email already exists. Please use the login page or reset your password."
	msgProfileUnavailable = "Could not load or create profile"
	msgProfileCreate      = "Failed to create user profile"
	msgNotAuthenticated   = "User not authenticated"

	eventTimeout = 10 * time.Second
)

// State is what one browser session knows about who is signed in.
type State struct {
	User    *model.UserProfile `json:"user"`
	Session *model.Session     `json:"-"`
	Loading bool               `json:"loading"`
	Error   string             `json:"error,omitempty"`
}

func (s State) Authenticated() bool {
	return s.Session != nil
}

// AuthError carries a message fit for the sign-in and sign-up forms.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }
func (e *AuthError) Unwrap() error { return e.Err }

// SessionStore is the auth state of one browser session.
type SessionStore interface {
	GetState() State
	Subscribe(fn func(State)) (unsubscribe func())
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password, fullName string) error
	SignOut(ctx context.Context) error
	UpdateProfile(ctx context.Context, patch model.ProfilePatch) error
}

type Options struct {
	// Window is how long an auth event must stay the latest before it is
	// handled.
	Window time.Duration
}

// Store keeps State in sync with a Provider. Auth events go through a
// single-slot queue drained by one worker, so at most one derivation runs
// at a time and only the latest event in a burst is handled.
type Store struct {
	provider Provider
	profiles repository.ProfileRepository
	log      logrus.FieldLogger
	now      func() time.Time

	mu      sync.RWMutex
	state   State
	changed chan struct{}
	subs    map[int]func(State)
	nextSub int

	events      *coalescer
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
	workerDone  chan struct{}
	initOnce    sync.Once
	closeOnce   sync.Once
}

var _ SessionStore = (*Store)(nil)

func NewStore(provider Provider, profiles repository.ProfileRepository, log logrus.FieldLogger, opts Options) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		provider:   provider,
		profiles:   profiles,
		log:        log,
		now:        time.Now,
		state:      State{Loading: true},
		changed:    make(chan struct{}),
		subs:       map[int]func(State){},
		events:     newCoalescer(opts.Window),
		ctx:        ctx,
		cancel:     cancel,
		workerDone: make(chan struct{}),
	}
	s.unsubscribe = provider.OnAuthStateChange(s.events.push)
	go s.run()
	return s
}

func (s *Store) run() {
	defer close(s.workerDone)
	for {
		ev, ok := s.events.next()
		if !ok {
			return
		}
		s.handleEvent(ev)
	}
}

func (s *Store) handleEvent(ev model.AuthEvent) {
	metrics.RecordAuthEvent(string(ev.Type))

	if ev.Type == model.EventSignedOut || ev.Session == nil {
		s.setState(State{})
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, eventTimeout)
	defer cancel()
	s.setState(s.derive(ctx, ev.Session))
}

// Close stops the event worker. The store keeps answering GetState.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.unsubscribe()
		s.events.close()
		s.cancel()
		<-s.workerDone
	})
}

func (s *Store) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) setState(state State) {
	s.update(func(State) State { return state })
}

// update applies fn to the current state under the lock and notifies
// subscribers with the result.
func (s *Store) update(fn func(State) State) {
	s.mu.Lock()
	s.state = fn(s.state)
	state := s.state
	close(s.changed)
	s.changed = make(chan struct{})
	subs := make([]func(State), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(state)
	}
}

func (s *Store) snapshot() (State, <-chan struct{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.changed
}

// Initialize loads the provider session and its profile once. Later calls
// return immediately.
func (s *Store) Initialize(ctx context.Context) {
	s.initOnce.Do(func() {
		session, err := s.provider.GetSession(ctx)
		if err != nil {
			s.log.WithError(err).Warn("get session")
			s.setState(State{Error: client.ErrorMessage(err)})
			return
		}
		if session == nil {
			s.setState(State{})
			return
		}
		state := s.derive(ctx, session)
		if state.User == nil {
			state.Error = msgProfileUnavailable
		}
		s.setState(state)
	})
}

// Session returns the provider session, refreshed if it was about to expire.
func (s *Store) Session(ctx context.Context) *model.Session {
	session, err := s.provider.GetSession(ctx)
	if err != nil {
		s.log.WithError(err).Warn("refresh session")
		return nil
	}
	return session
}

// derive fetches the session's profile, creating a minimal one when the row
// does not exist.
func (s *Store) derive(ctx context.Context, session *model.Session) State {
	log := s.log.WithField("user_id", session.User.ID)
	ctx = client.WithAccessToken(ctx, session.AccessToken)

	profile, err := s.profiles.FindByID(ctx, session.User.ID)
	if err == nil {
		return State{User: profile, Session: session}
	}
	if !errors.Is(err, model.ErrNotFound) {
		log.WithError(err).Error("fetch profile")
		return State{Session: session, Error: client.ErrorMessage(err)}
	}

	minimal := &model.UserProfile{
		ID:        session.User.ID,
		Email:     session.User.Email,
		CreatedAt: s.now().UTC(),
	}
	if err := s.profiles.Create(ctx, minimal); err != nil {
		log.WithError(err).Error("create minimal profile")
		return State{Session: session, Error: msgProfileCreate}
	}
	log.Info("created minimal profile")
	return State{User: minimal, Session: session}
}

func signInMessage(err error) string {
	msg := client.ErrorMessage(err)
	switch {
	case strings.Contains(msg, "Invalid login credentials"):
		return msgInvalidCredentials
	case strings.Contains(msg, "Email not confirmed"):
		return msgEmailNotConfirmed
	}
	return msg
}

func signUpMessage(err error) string {
	msg := client.ErrorMessage(err)
	if strings.Contains(msg, "User already registered") {
		return msgAlreadyRegistered
	}
	return msg
}

// fail records msg on the state and returns it as an AuthError.
func (s *Store) fail(msg string, err error) error {
	s.update(func(st State) State {
		st.Error = msg
		st.Loading = false
		return st
	})
	return &AuthError{Message: msg, Err: err}
}

func (s *Store) SignIn(ctx context.Context, email, password string) error {
	s.update(func(st State) State {
		st.Loading = true
		st.Error = ""
		return st
	})

	session, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.log.WithError(err).Info("sign in rejected")
		return s.fail(signInMessage(err), err)
	}

	profile, err := s.profiles.FindByID(client.WithAccessToken(ctx, session.AccessToken), session.User.ID)
	if err != nil {
		// The SIGNED_IN event derives the profile, creating it if needed.
		s.log.WithError(err).WithField("user_id", session.User.ID).Warn("fetch profile after sign in")
		s.update(func(st State) State {
			st.Session = session
			st.Loading = false
			st.Error = ""
			return st
		})
		return nil
	}

	s.setState(State{User: profile, Session: session})
	return nil
}

func (s *Store) SignUp(ctx context.Context, email, password, fullName string) error {
	s.update(func(st State) State {
		st.Loading = true
		st.Error = ""
		return st
	})

	user, session, err := s.provider.SignUp(ctx, email, password, nil)
	if err != nil {
		s.log.WithError(err).Info("sign up rejected")
		return s.fail(signUpMessage(err), err)
	}

	if user != nil {
		if session != nil {
			ctx = client.WithAccessToken(ctx, session.AccessToken)
		}
		profile := &model.UserProfile{
			ID:        user.ID,
			Email:     email,
			FullName:  fullName,
			CreatedAt: s.now().UTC(),
		}
		if err := s.profiles.Create(ctx, profile); err != nil {
			s.log.WithError(err).WithField("user_id", user.ID).Warn("create profile after sign up")
		}
	}

	s.update(func(st State) State {
		st.Loading = false
		return st
	})
	return nil
}

func (s *Store) SignOut(ctx context.Context) error {
	s.update(func(st State) State {
		st.Loading = true
		return st
	})

	err := s.provider.SignOut(ctx)
	if err != nil {
		s.log.WithError(err).Warn("provider sign out")
	}
	s.setState(State{})
	return err
}

func (s *Store) UpdateProfile(ctx context.Context, patch model.ProfilePatch) error {
	current := s.GetState()
	if current.User == nil {
		return s.fail(msgNotAuthenticated, model.ErrNotAuthenticated)
	}
	if current.Session != nil {
		ctx = client.WithAccessToken(ctx, current.Session.AccessToken)
	}

	updatedAt := s.now().UTC()
	if err := s.profiles.Update(ctx, current.User.ID, patch, updatedAt); err != nil {
		s.log.WithError(err).WithField("user_id", current.User.ID).Error("update profile")
		return s.fail(client.ErrorMessage(err), err)
	}

	s.update(func(st State) State {
		if st.User == nil || st.User.ID != current.User.ID {
			return st
		}
		user := *st.User
		patch.Apply(&user)
		user.UpdatedAt = &updatedAt
		st.User = &user
		st.Loading = false
		st.Error = ""
		return st
	})
	return nil
}

// WaitForProfile blocks until the state settles on a profile. Without a
// session it returns model.ErrNotAuthenticated. With a session but no
// profile after timeout it returns model.ErrProfileTimeout.
func (s *Store) WaitForProfile(ctx context.Context, timeout time.Duration) (*model.UserProfile, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		st, changed := s.snapshot()
		switch {
		case st.User != nil:
			return st.User, nil
		case !st.Loading && st.Session == nil:
			return nil, model.ErrNotAuthenticated
		}

		select {
		case <-changed:
		case <-timer.C:
			return nil, model.ErrProfileTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
