package game

import "chwazi-quiz/internal/domain"

// Outcome decides the result from the scoreboard. Named participants who never
// scored compete with zero. Equal scores across every candidate are a tie, a
// lone candidate included. Otherwise the first candidate holding the maximum
// wins, even when others share it.
func (s *Session) Outcome() domain.Outcome {
	entries := s.Scoreboard()
	if len(entries) == 0 {
		return domain.Outcome{Kind: domain.OutcomeNoScores}
	}
	for _, p := range s.participants {
		if p.DisplayName == "" {
			continue
		}
		if _, ok := s.scores[p.DisplayName]; !ok {
			entries = append(entries, domain.ScoreEntry{Name: p.DisplayName})
		}
	}
	return decide(entries)
}

func decide(entries []domain.ScoreEntry) domain.Outcome {
	if len(entries) == 0 {
		return domain.Outcome{Kind: domain.OutcomeNoScores}
	}

	first := entries[0].Score
	allEqual := true
	best := entries[0]
	for _, e := range entries[1:] {
		if e.Score != first {
			allEqual = false
		}
		if e.Score > best.Score {
			best = e
		}
	}

	if allEqual {
		return domain.Outcome{Kind: domain.OutcomeTie, Score: best.Score}
	}
	return domain.Outcome{Kind: domain.OutcomeWinner, Name: best.Name, Score: best.Score}
}
