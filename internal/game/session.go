// Package game implements the rules of a single pass-the-phone quiz session:
// who is touching the screen, who gets picked, whose turn it is, which
// question is next and who is winning.
//
// A Session is not safe for concurrent use. Callers serialize access.
package game

import (
	"math/rand"
	"sort"
	"strings"
	"time"

	"chwazi-quiz/internal/domain"
)

// QuestionBank supplies the ordered questions of a category.
type QuestionBank interface {
	Lookup(category string) ([]domain.Question, bool)
}

// Option configures a Session.
type Option func(*Session)

// WithRand injects the random source used for picks.
func WithRand(rnd *rand.Rand) Option {
	return func(s *Session) {
		s.rnd = rnd
	}
}

// Session is the state machine behind one game on one device.
type Session struct {
	bank     QuestionBank
	category string
	rnd      *rand.Rand

	participants []domain.Participant
	queue        []domain.Question
	ready        map[int]struct{}
	turn         int
	hasTurn      bool

	scores     map[string]int
	scoreOrder []string
}

// NewSession starts a session for count participants on the given category.
func NewSession(bank QuestionBank, category string, count int, opts ...Option) (*Session, error) {
	s := &Session{
		bank:     bank,
		category: category,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if err := s.Reset(count); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset discards every name, score, touch and pending question and reloads the
// category. On error the session is left as it was.
func (s *Session) Reset(count int) error {
	if count < domain.MinParticipants || count > domain.MaxParticipants {
		return domain.ErrParticipantCount
	}
	questions, err := s.loadQuestions()
	if err != nil {
		return err
	}

	participants := make([]domain.Participant, count)
	for i := range participants {
		participants[i] = domain.Participant{Slot: i, Color: domain.ColorForSlot(i)}
	}

	s.participants = participants
	s.queue = questions
	s.ready = make(map[int]struct{}, count)
	s.turn = 0
	s.hasTurn = false
	s.scores = make(map[string]int)
	s.scoreOrder = nil
	return nil
}

func (s *Session) loadQuestions() ([]domain.Question, error) {
	if s.bank == nil {
		return nil, domain.ErrUnknownCategory
	}
	questions, ok := s.bank.Lookup(s.category)
	if !ok {
		return nil, domain.ErrUnknownCategory
	}
	if len(questions) == 0 {
		return nil, domain.ErrEmptyBank
	}
	// The queue is consumed from the front; keep the bank's slice untouched.
	queue := make([]domain.Question, len(questions))
	copy(queue, questions)
	return queue, nil
}

// TouchDown marks slot as held. When this completes the ready set a
// participant is picked and returned; otherwise the pick is nil.
func (s *Session) TouchDown(slot int) (*domain.Pick, error) {
	if err := s.checkSlot(slot); err != nil {
		return nil, err
	}
	before := len(s.ready)
	s.ready[slot] = struct{}{}
	if before == len(s.ready) || len(s.ready) != len(s.participants) {
		return nil, nil
	}
	pick := s.pick()
	s.ready = make(map[int]struct{}, len(s.participants))
	return &pick, nil
}

// TouchUp releases slot. Releasing a slot that is not held does nothing.
func (s *Session) TouchUp(slot int) error {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	delete(s.ready, slot)
	return nil
}

// pick chooses uniformly among the ready slots and hands them the turn.
func (s *Session) pick() domain.Pick {
	slots := make([]int, 0, len(s.ready))
	for slot := range s.ready {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	chosen := slots[s.rnd.Intn(len(slots))]
	s.turn = chosen
	s.hasTurn = true
	return domain.Pick{Slot: chosen, Color: s.participants[chosen].Color}
}

// NameState reports whether slot already has a display name.
func (s *Session) NameState(slot int) (domain.NameState, error) {
	if err := s.checkSlot(slot); err != nil {
		return domain.NameState{}, err
	}
	name := s.participants[slot].DisplayName
	if name == "" {
		return domain.NameState{}, nil
	}
	return domain.NameState{AlreadySet: true, Name: name}, nil
}

// SubmitName assigns a display name to slot. Names are trimmed and can be set
// only once per session.
func (s *Session) SubmitName(slot int, name string) error {
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ErrEmptyName
	}
	if s.participants[slot].DisplayName != "" {
		return domain.ErrNameAlreadySet
	}
	s.participants[slot].DisplayName = name
	return nil
}

// CurrentQuestion returns the front of the queue, or false once the session is complete.
func (s *Session) CurrentQuestion() (domain.Question, bool) {
	if len(s.queue) == 0 {
		return domain.Question{}, false
	}
	return s.queue[0], true
}

// SubmitAnswer scores option for the participant whose turn it is, consumes
// the question and passes the turn on.
func (s *Session) SubmitAnswer(option int) (domain.AnswerResult, error) {
	question, ok := s.CurrentQuestion()
	if !ok {
		return domain.AnswerResult{}, domain.ErrNoCurrentQuestion
	}
	if !s.hasTurn {
		return domain.AnswerResult{}, domain.ErrNoTurn
	}
	participant := s.participants[s.turn]
	if participant.DisplayName == "" {
		return domain.AnswerResult{}, domain.ErrUnnamedParticipant
	}
	if option < 0 || option >= len(question.Options) {
		return domain.AnswerResult{}, domain.ErrOptionOutOfRange
	}

	s.queue = s.queue[1:]
	correct := option == question.CorrectOption
	if correct {
		s.addPoint(participant.DisplayName)
	}
	s.turn = (s.turn + 1) % len(s.participants)

	return domain.AnswerResult{
		Slot:          participant.Slot,
		Name:          participant.DisplayName,
		Correct:       correct,
		CorrectOption: question.CorrectOption,
		TotalScore:    s.scores[participant.DisplayName],
		NextTurn:      s.turn,
		Remaining:     len(s.queue),
	}, nil
}

func (s *Session) addPoint(name string) {
	if _, ok := s.scores[name]; !ok {
		s.scoreOrder = append(s.scoreOrder, name)
	}
	s.scores[name]++
}

func (s *Session) checkSlot(slot int) error {
	if slot < 0 || slot >= len(s.participants) {
		return domain.ErrSlotOutOfRange
	}
	return nil
}

// Category returns the category the session draws questions from.
func (s *Session) Category() string {
	return s.category
}

// ParticipantCount returns the number of slots.
func (s *Session) ParticipantCount() int {
	return len(s.participants)
}

// Participants returns a copy of the participant registry.
func (s *Session) Participants() []domain.Participant {
	out := make([]domain.Participant, len(s.participants))
	copy(out, s.participants)
	return out
}

// Turn returns the slot whose answer is pending, if anyone has been picked.
func (s *Session) Turn() (int, bool) {
	return s.turn, s.hasTurn
}

// Ready returns the held slots in ascending order.
func (s *Session) Ready() []int {
	slots := make([]int, 0, len(s.ready))
	for slot := range s.ready {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	return slots
}

// Remaining returns the number of unanswered questions.
func (s *Session) Remaining() int {
	return len(s.queue)
}

// Complete reports whether every question has been answered.
func (s *Session) Complete() bool {
	return len(s.queue) == 0
}

// Scoreboard lists scorers in the order they first scored.
func (s *Session) Scoreboard() []domain.ScoreEntry {
	entries := make([]domain.ScoreEntry, 0, len(s.scoreOrder))
	for _, name := range s.scoreOrder {
		entries = append(entries, domain.ScoreEntry{Name: name, Score: s.scores[name]})
	}
	return entries
}

// State builds a snapshot for the driver.
func (s *Session) State() domain.SessionState {
	state := domain.SessionState{
		Category:         s.category,
		ParticipantCount: len(s.participants),
		Participants:     s.Participants(),
		Ready:            s.Ready(),
		Remaining:        len(s.queue),
		Scores:           s.Scoreboard(),
		Complete:         s.Complete(),
	}
	if turn, ok := s.Turn(); ok {
		state.Turn = &turn
	}
	if q, ok := s.CurrentQuestion(); ok {
		state.Question = &domain.PendingQuestion{
			Text:    q.Text,
			Options: append([]string(nil), q.Options...),
		}
	}
	if state.Complete {
		outcome := s.Outcome()
		state.Outcome = &outcome
	}
	return state
}
