package game

import (
	"encoding/json"
	"math/rand"
	"testing"

	"chwazi-quiz/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBank(n int) domain.Bank {
	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, domain.Question{
			Text:          "question " + string(rune('A'+i)),
			Options:       []string{"wrong", "right", "also wrong"},
			CorrectOption: 1,
		})
	}
	return domain.Bank{
		{Name: "general", Questions: questions},
		{Name: "empty"},
	}
}

func newTestSession(t *testing.T, count, questions int) *Session {
	t.Helper()
	s, err := NewSession(sampleBank(questions), "general", count, WithRand(rand.New(rand.NewSource(1))))
	require.NoError(t, err)
	return s
}

// pickSlot drives a full touch round and then forces the turn onto slot so
// scenario tests do not depend on the random source.
func pickSlot(t *testing.T, s *Session, slot int) {
	t.Helper()
	var pick *domain.Pick
	for i := 0; i < s.ParticipantCount(); i++ {
		p, err := s.TouchDown(i)
		require.NoError(t, err)
		if p != nil {
			pick = p
		}
	}
	require.NotNil(t, pick)
	s.turn = slot
}

func TestNewSession(t *testing.T) {
	for count := domain.MinParticipants; count <= domain.MaxParticipants; count++ {
		s := newTestSession(t, count, 3)

		_, ok := s.Turn()
		assert.False(t, ok, "turn must be undefined before the first pick")
		assert.Equal(t, count, s.ParticipantCount())
		assert.Equal(t, 3, s.Remaining())
		assert.Empty(t, s.Scoreboard())
		assert.Empty(t, s.Ready())

		for i, p := range s.Participants() {
			assert.Equal(t, i, p.Slot)
			assert.Empty(t, p.DisplayName)
			assert.Equal(t, domain.Palette[i%len(domain.Palette)], p.Color)
		}
	}

	t.Run("rejects participant counts outside 2..5", func(t *testing.T) {
		for _, count := range []int{-1, 0, 1, 6} {
			_, err := NewSession(sampleBank(1), "general", count)
			assert.ErrorIs(t, err, domain.ErrParticipantCount)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		}
	})

	t.Run("unknown category creates nothing", func(t *testing.T) {
		s, err := NewSession(sampleBank(1), "history", 2)
		assert.Nil(t, s)
		assert.ErrorIs(t, err, domain.ErrUnknownCategory)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("empty category", func(t *testing.T) {
		_, err := NewSession(sampleBank(1), "empty", 2)
		assert.ErrorIs(t, err, domain.ErrEmptyBank)
	})

	t.Run("nil bank", func(t *testing.T) {
		_, err := NewSession(nil, "general", 2)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("queue does not alias the bank", func(t *testing.T) {
		bank := sampleBank(2)
		s, err := NewSession(bank, "general", 2)
		require.NoError(t, err)
		s.queue[0].Text = "changed"
		assert.Equal(t, "question A", bank[0].Questions[0].Text)
	})
}

func TestTouchTriggersPick(t *testing.T) {
	t.Run("pick only when every slot is held", func(t *testing.T) {
		s := newTestSession(t, 3, 1)

		p, err := s.TouchDown(0)
		require.NoError(t, err)
		assert.Nil(t, p)
		p, err = s.TouchDown(2)
		require.NoError(t, err)
		assert.Nil(t, p)
		assert.Equal(t, []int{0, 2}, s.Ready())

		p, err = s.TouchDown(1)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, s.Participants()[p.Slot].Color, p.Color)

		turn, ok := s.Turn()
		assert.True(t, ok)
		assert.Equal(t, p.Slot, turn)
		assert.Empty(t, s.Ready(), "ready set is cleared after a pick")
	})

	t.Run("duplicate down does not pick", func(t *testing.T) {
		s := newTestSession(t, 3, 1)
		_, _ = s.TouchDown(0)
		_, _ = s.TouchDown(1)

		p, err := s.TouchDown(1)
		require.NoError(t, err)
		assert.Nil(t, p)
		_, ok := s.Turn()
		assert.False(t, ok)
	})

	t.Run("release removes from the ready set", func(t *testing.T) {
		s := newTestSession(t, 2, 1)
		_, _ = s.TouchDown(0)
		require.NoError(t, s.TouchUp(0))
		require.NoError(t, s.TouchUp(0), "release is idempotent")

		p, err := s.TouchDown(1)
		require.NoError(t, err)
		assert.Nil(t, p)
		assert.Equal(t, []int{1}, s.Ready())
	})

	t.Run("re-pressing after a pick starts a new round", func(t *testing.T) {
		s := newTestSession(t, 2, 1)
		_, _ = s.TouchDown(0)
		first, _ := s.TouchDown(1)
		require.NotNil(t, first)

		p, _ := s.TouchDown(1)
		assert.Nil(t, p)
		p, _ = s.TouchDown(0)
		assert.NotNil(t, p)
	})

	t.Run("out of range slots", func(t *testing.T) {
		s := newTestSession(t, 2, 1)
		_, err := s.TouchDown(2)
		assert.ErrorIs(t, err, domain.ErrSlotOutOfRange)
		assert.ErrorIs(t, err, domain.ErrInvariant)
		assert.ErrorIs(t, s.TouchUp(-1), domain.ErrSlotOutOfRange)
	})
}

func TestPickIsSeededAndUniform(t *testing.T) {
	const rounds = 5000
	counts := make([]int, 4)

	s, err := NewSession(sampleBank(1), "general", 4, WithRand(rand.New(rand.NewSource(42))))
	require.NoError(t, err)
	for i := 0; i < rounds; i++ {
		var pick *domain.Pick
		for slot := 3; slot >= 0; slot-- {
			pick, err = s.TouchDown(slot)
			require.NoError(t, err)
		}
		require.NotNil(t, pick)
		counts[pick.Slot]++
	}
	for slot, c := range counts {
		assert.InDelta(t, rounds/4, c, rounds/10, "slot %d picked %d times", slot, c)
	}

	replay := func(seed int64) []int {
		s, err := NewSession(sampleBank(1), "general", 3, WithRand(rand.New(rand.NewSource(seed))))
		require.NoError(t, err)
		var slots []int
		for i := 0; i < 10; i++ {
			_, _ = s.TouchDown(0)
			_, _ = s.TouchDown(1)
			p, _ := s.TouchDown(2)
			slots = append(slots, p.Slot)
		}
		return slots
	}
	assert.Equal(t, replay(7), replay(7))
}

func TestNames(t *testing.T) {
	s := newTestSession(t, 2, 1)

	state, err := s.NameState(0)
	require.NoError(t, err)
	assert.False(t, state.AlreadySet)

	t.Run("empty name is rejected and can be retried", func(t *testing.T) {
		err := s.SubmitName(0, "   ")
		assert.ErrorIs(t, err, domain.ErrEmptyName)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Empty(t, s.Participants()[0].DisplayName)

		require.NoError(t, s.SubmitName(0, "  Ada "))
		state, err := s.NameState(0)
		require.NoError(t, err)
		assert.Equal(t, domain.NameState{AlreadySet: true, Name: "Ada"}, state)
	})

	t.Run("a set name is immutable", func(t *testing.T) {
		err := s.SubmitName(0, "Grace")
		assert.ErrorIs(t, err, domain.ErrNameAlreadySet)
		assert.ErrorIs(t, err, domain.ErrInvariant)
		assert.Equal(t, "Ada", s.Participants()[0].DisplayName)
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := s.NameState(5)
		assert.ErrorIs(t, err, domain.ErrSlotOutOfRange)
		assert.ErrorIs(t, s.SubmitName(5, "x"), domain.ErrSlotOutOfRange)
	})
}

func TestSubmitAnswer(t *testing.T) {
	t.Run("always pops one question and advances the turn", func(t *testing.T) {
		s := newTestSession(t, 3, 6)
		for slot := 0; slot < 3; slot++ {
			require.NoError(t, s.SubmitName(slot, string(rune('a'+slot))))
		}
		pickSlot(t, s, 2)

		for i, option := range []int{1, 0, 2, 1, 1, 0} {
			before := s.Remaining()
			turn, _ := s.Turn()
			res, err := s.SubmitAnswer(option)
			require.NoError(t, err)
			assert.Equal(t, option == 1, res.Correct, "answer %d", i)
			assert.Equal(t, 1, res.CorrectOption)
			assert.Equal(t, before-1, s.Remaining())
			next, _ := s.Turn()
			assert.Equal(t, (turn+1)%3, next)
			assert.Equal(t, next, res.NextTurn)
		}
		assert.True(t, s.Complete())
		_, ok := s.CurrentQuestion()
		assert.False(t, ok)
	})

	t.Run("scores never decrease", func(t *testing.T) {
		s := newTestSession(t, 2, 8)
		require.NoError(t, s.SubmitName(0, "a"))
		require.NoError(t, s.SubmitName(1, "b"))
		pickSlot(t, s, 0)

		last := map[string]int{}
		for i := 0; !s.Complete(); i++ {
			_, err := s.SubmitAnswer(i % 3)
			require.NoError(t, err)
			for _, e := range s.Scoreboard() {
				assert.GreaterOrEqual(t, e.Score, last[e.Name])
				last[e.Name] = e.Score
			}
		}
	})

	t.Run("misuse leaves the queue untouched", func(t *testing.T) {
		s := newTestSession(t, 2, 1)

		_, err := s.SubmitAnswer(1)
		assert.ErrorIs(t, err, domain.ErrNoTurn)

		pickSlot(t, s, 0)
		_, err = s.SubmitAnswer(1)
		assert.ErrorIs(t, err, domain.ErrUnnamedParticipant)

		require.NoError(t, s.SubmitName(0, "a"))
		_, err = s.SubmitAnswer(3)
		assert.ErrorIs(t, err, domain.ErrOptionOutOfRange)
		assert.Equal(t, 1, s.Remaining())

		_, err = s.SubmitAnswer(1)
		require.NoError(t, err)
		_, err = s.SubmitAnswer(1)
		assert.ErrorIs(t, err, domain.ErrNoCurrentQuestion)
		assert.ErrorIs(t, err, domain.ErrInvariant)
	})
}

func TestScenarioWinner(t *testing.T) {
	s := newTestSession(t, 2, 3)
	require.NoError(t, s.SubmitName(0, "P1"))
	require.NoError(t, s.SubmitName(1, "P2"))
	pickSlot(t, s, 0)

	res, err := s.SubmitAnswer(1)
	require.NoError(t, err)
	assert.True(t, res.Correct)
	res, err = s.SubmitAnswer(0)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, "P2", res.Name)
	res, err = s.SubmitAnswer(1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalScore)

	assert.True(t, s.Complete())
	assert.Equal(t, []domain.ScoreEntry{{Name: "P1", Score: 2}}, s.Scoreboard())
	assert.Equal(t, domain.Outcome{Kind: domain.OutcomeWinner, Name: "P1", Score: 2}, s.Outcome())
}

func TestLoneScorerWithoutRivalsIsATie(t *testing.T) {
	s := newTestSession(t, 2, 1)
	require.NoError(t, s.SubmitName(1, "solo"))
	pickSlot(t, s, 1)
	_, err := s.SubmitAnswer(1)
	require.NoError(t, err)

	assert.Equal(t, domain.Outcome{Kind: domain.OutcomeTie, Score: 1}, s.Outcome())
}

func TestNoScores(t *testing.T) {
	s := newTestSession(t, 2, 1)
	require.NoError(t, s.SubmitName(0, "a"))
	pickSlot(t, s, 0)
	_, err := s.SubmitAnswer(0)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeNoScores, s.Outcome().Kind)
}

func TestScenarioTie(t *testing.T) {
	s := newTestSession(t, 3, 3)
	for slot, name := range []string{"a", "b", "c"} {
		require.NoError(t, s.SubmitName(slot, name))
	}
	pickSlot(t, s, 1)
	for !s.Complete() {
		_, err := s.SubmitAnswer(1)
		require.NoError(t, err)
	}

	assert.Len(t, s.Scoreboard(), 3)
	assert.Equal(t, domain.OutcomeTie, s.Outcome().Kind)

	state := s.State()
	require.NotNil(t, state.Outcome)
	assert.Equal(t, domain.OutcomeTie, state.Outcome.Kind)
	assert.Nil(t, state.Question)
}

func TestStateHidesCorrectOption(t *testing.T) {
	s := newTestSession(t, 2, 2)

	state := s.State()
	require.NotNil(t, state.Question)
	assert.Equal(t, "question A", state.Question.Text)
	assert.Equal(t, []string{"wrong", "right", "also wrong"}, state.Question.Options)

	raw, err := json.Marshal(state)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "correctAnswer")

	// The snapshot must not alias the queue.
	state.Question.Options[0] = "changed"
	q, ok := s.CurrentQuestion()
	require.True(t, ok)
	assert.Equal(t, "wrong", q.Options[0])
}

func TestSharedMaximumGoesToFirstScorer(t *testing.T) {
	s := newTestSession(t, 3, 6)
	for slot, name := range []string{"a", "b", "c"} {
		require.NoError(t, s.SubmitName(slot, name))
	}
	// a: right, b: right, c: wrong, a: right, b: right, c: right.
	pickSlot(t, s, 0)
	for _, option := range []int{1, 1, 0, 1, 1, 1} {
		_, err := s.SubmitAnswer(option)
		require.NoError(t, err)
	}

	assert.Equal(t, []domain.ScoreEntry{{Name: "a", Score: 2}, {Name: "b", Score: 2}, {Name: "c", Score: 1}}, s.Scoreboard())
	assert.Equal(t, domain.Outcome{Kind: domain.OutcomeWinner, Name: "a", Score: 2}, s.Outcome())
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name    string
		entries []domain.ScoreEntry
		want    domain.Outcome
	}{
		{
			name: "no scores",
			want: domain.Outcome{Kind: domain.OutcomeNoScores},
		},
		{
			name:    "single scorer is a tie",
			entries: []domain.ScoreEntry{{Name: "a", Score: 3}},
			want:    domain.Outcome{Kind: domain.OutcomeTie, Score: 3},
		},
		{
			name:    "clear winner seen last",
			entries: []domain.ScoreEntry{{Name: "a", Score: 1}, {Name: "b", Score: 1}, {Name: "c", Score: 4}},
			want:    domain.Outcome{Kind: domain.OutcomeWinner, Name: "c", Score: 4},
		},
		{
			name:    "clear winner seen first",
			entries: []domain.ScoreEntry{{Name: "a", Score: 5}, {Name: "b", Score: 2}},
			want:    domain.Outcome{Kind: domain.OutcomeWinner, Name: "a", Score: 5},
		},
		{
			name:    "shared maximum goes to the first holder",
			entries: []domain.ScoreEntry{{Name: "a", Score: 3}, {Name: "b", Score: 1}, {Name: "c", Score: 3}},
			want:    domain.Outcome{Kind: domain.OutcomeWinner, Name: "a", Score: 3},
		},
		{
			name:    "shared maximum after a lower first score",
			entries: []domain.ScoreEntry{{Name: "c", Score: 1}, {Name: "a", Score: 2}, {Name: "b", Score: 2}},
			want:    domain.Outcome{Kind: domain.OutcomeWinner, Name: "a", Score: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decide(tt.entries))
		})
	}
}

func TestReset(t *testing.T) {
	play := func(s *Session) ([]string, []int) {
		var texts []string
		var turns []int
		for !s.Complete() {
			q, _ := s.CurrentQuestion()
			texts = append(texts, q.Text)
			res, err := s.SubmitAnswer(1)
			require.NoError(t, err)
			turns = append(turns, res.NextTurn)
		}
		return texts, turns
	}
	name := func(s *Session) {
		for slot := 0; slot < s.ParticipantCount(); slot++ {
			require.NoError(t, s.SubmitName(slot, string(rune('a'+slot))))
		}
	}

	s := newTestSession(t, 3, 4)
	name(s)
	pickSlot(t, s, 1)
	texts, turns := play(s)

	require.NoError(t, s.Reset(3))
	assert.Equal(t, 4, s.Remaining())
	assert.Empty(t, s.Scoreboard())
	_, ok := s.Turn()
	assert.False(t, ok)
	for _, p := range s.Participants() {
		assert.Empty(t, p.DisplayName)
	}

	name(s)
	pickSlot(t, s, 1)
	replayTexts, replayTurns := play(s)
	assert.Equal(t, texts, replayTexts)
	assert.Equal(t, turns, replayTurns)

	t.Run("mid question with a new count", func(t *testing.T) {
		s := newTestSession(t, 2, 3)
		name(s)
		_, _ = s.TouchDown(0)
		pickSlot(t, s, 0)
		_, err := s.SubmitAnswer(1)
		require.NoError(t, err)

		require.NoError(t, s.Reset(5))
		assert.Equal(t, 5, s.ParticipantCount())
		assert.Equal(t, 3, s.Remaining())
		assert.Empty(t, s.Ready())
		assert.Empty(t, s.Scoreboard())
	})

	t.Run("invalid count keeps the session", func(t *testing.T) {
		s := newTestSession(t, 2, 3)
		require.NoError(t, s.SubmitName(0, "kept"))
		assert.ErrorIs(t, s.Reset(9), domain.ErrParticipantCount)
		assert.Equal(t, "kept", s.Participants()[0].DisplayName)
	})
}
