package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"chwazi-quiz/internal/domain"
	"chwazi-quiz/internal/game"
	"github.com/google/uuid"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Add(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// BankRepository loads question bank content (from cache/backing store).
type BankRepository interface {
	GetCategory(ctx context.Context, name string) (domain.Category, error)
	ListCategories(ctx context.Context) ([]string, error)
}

// GameService contains the game use cases driven by the presentation layer.
type GameService struct {
	sessions SessionRepository
	bank     BankRepository
	seed     func() int64
}

func NewGameService(store SessionRepository, bank BankRepository) *GameService {
	return &GameService{
		sessions: store,
		bank:     bank,
		seed:     func() int64 { return time.Now().UnixNano() },
	}
}

// WithSeed makes picks reproducible; every new session gets the same seed.
func (s *GameService) WithSeed(seed int64) *GameService {
	s.seed = func() int64 { return seed }
	return s
}

// Categories lists the categories a game can be started with.
func (s *GameService) Categories(ctx context.Context) ([]string, error) {
	return s.bank.ListCategories(ctx)
}

// Start creates a session for the category and participant count.
func (s *GameService) Start(ctx context.Context, category string, participants int) (domain.SessionState, error) {
	cat, err := s.bank.GetCategory(ctx, category)
	if err != nil {
		return domain.SessionState{}, err
	}

	core, err := game.NewSession(domain.Bank{cat}, category, participants,
		game.WithRand(rand.New(rand.NewSource(s.seed()))))
	if err != nil {
		return domain.SessionState{}, err
	}

	session := newSession(uuid.NewString(), core)
	s.sessions.Add(session)
	return session.State(), nil
}

// State returns the current snapshot of a session.
func (s *GameService) State(_ context.Context, sessionID string) (domain.SessionState, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionState{}, domain.ErrSessionNotFound
	}
	return session.State(), nil
}

// TouchDown reports a finger on slot; a non-nil pick means the round completed.
func (s *GameService) TouchDown(_ context.Context, sessionID string, slot int) (*domain.Pick, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	var pick *domain.Pick
	err := session.update(func(core *game.Session) error {
		var err error
		pick, err = core.TouchDown(slot)
		return err
	})
	return pick, err
}

// TouchUp reports a finger leaving slot.
func (s *GameService) TouchUp(_ context.Context, sessionID string, slot int) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.update(func(core *game.Session) error {
		return core.TouchUp(slot)
	})
}

// NameState tells the driver whether slot still needs a name.
func (s *GameService) NameState(_ context.Context, sessionID string, slot int) (domain.NameState, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.NameState{}, domain.ErrSessionNotFound
	}
	var state domain.NameState
	err := session.read(func(core *game.Session) error {
		var err error
		state, err = core.NameState(slot)
		return err
	})
	return state, err
}

// SubmitName names the participant in slot.
func (s *GameService) SubmitName(_ context.Context, sessionID string, slot int, name string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.update(func(core *game.Session) error {
		return core.SubmitName(slot, name)
	})
}

// CurrentQuestion returns the pending question, or false when the session is complete.
func (s *GameService) CurrentQuestion(_ context.Context, sessionID string) (domain.Question, bool, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Question{}, false, domain.ErrSessionNotFound
	}
	var (
		question domain.Question
		pending  bool
	)
	_ = session.read(func(core *game.Session) error {
		question, pending = core.CurrentQuestion()
		return nil
	})
	return question, pending, nil
}

// SubmitAnswer answers the pending question for whoever holds the turn.
func (s *GameService) SubmitAnswer(_ context.Context, sessionID string, option int) (domain.AnswerResult, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.AnswerResult{}, domain.ErrSessionNotFound
	}
	var result domain.AnswerResult
	err := session.update(func(core *game.Session) error {
		var err error
		result, err = core.SubmitAnswer(option)
		return err
	})
	return result, err
}

// Outcome computes the verdict from the current scoreboard.
func (s *GameService) Outcome(_ context.Context, sessionID string) (domain.Outcome, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Outcome{}, domain.ErrSessionNotFound
	}
	var outcome domain.Outcome
	_ = session.read(func(core *game.Session) error {
		outcome = core.Outcome()
		return nil
	})
	return outcome, nil
}

// Reset restarts the session in place, possibly with a new participant count.
func (s *GameService) Reset(_ context.Context, sessionID string, participants int) (domain.SessionState, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionState{}, domain.ErrSessionNotFound
	}
	err := session.update(func(core *game.Session) error {
		return core.Reset(participants)
	})
	if err != nil {
		return domain.SessionState{}, err
	}
	return session.State(), nil
}

// Subscribe returns a channel that receives state snapshots for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *GameService) Subscribe(_ context.Context, sessionID string) (<-chan domain.SessionState, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// End drops the session once its last subscriber has gone.
func (s *GameService) End(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	if session.idle() {
		s.sessions.Delete(sessionID)
	}
}

// Session serializes access to a game session and fans out its state.
type Session struct {
	id          string
	createdAt   time.Time
	now         func() time.Time
	mu          sync.Mutex
	core        *game.Session
	subscribers map[chan domain.SessionState]struct{}
}

// NewSession wraps a core session; exported for infrastructure layers and tests.
func NewSession(id string, core *game.Session) *Session {
	return newSession(id, core)
}

func newSession(id string, core *game.Session) *Session {
	return newSessionWithClock(id, core, time.Now)
}

// newSessionWithClock allows deterministic timestamps in tests.
func newSessionWithClock(id string, core *game.Session, now func() time.Time) *Session {
	return &Session{
		id:          id,
		createdAt:   now(),
		now:         now,
		core:        core,
		subscribers: make(map[chan domain.SessionState]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns when the session was started.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// State returns a snapshot of the session.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// update runs fn under the lock and broadcasts the new state when it succeeds.
func (s *Session) update(fn func(core *game.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.core); err != nil {
		return err
	}
	s.broadcastLocked()
	return nil
}

// read runs fn under the lock without notifying subscribers.
func (s *Session) read(fn func(core *game.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.core)
}

func (s *Session) idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers) == 0
}

func (s *Session) subscribe() (<-chan domain.SessionState, func()) {
	ch := make(chan domain.SessionState, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	state := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- state:
		default:
			// Slow subscriber: replace its oldest snapshot with the newest.
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
}

func (s *Session) snapshotLocked() domain.SessionState {
	state := s.core.State()
	state.SessionID = s.id
	state.UpdatedAt = s.now()
	return state
}
