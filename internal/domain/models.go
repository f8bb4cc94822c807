package domain

import "time"

// MinParticipants and MaxParticipants bound the number of players sharing a device.
const (
	MinParticipants = 2
	MaxParticipants = 5
)

// Question models a multiple choice question with exactly one correct option.
type Question struct {
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctAnswer"`
}

// Category is a named partition of the question bank.
type Category struct {
	Name      string     `json:"category"`
	Questions []Question `json:"questions"`
}

// Bank is an ordered set of categories, as stored in the bundled JSON document.
type Bank []Category

// Lookup returns the questions for the named category.
func (b Bank) Lookup(category string) ([]Question, bool) {
	for _, c := range b {
		if c.Name == category {
			return c.Questions, true
		}
	}
	return nil, false
}

// Names lists the category names in bank order.
func (b Bank) Names() []string {
	names := make([]string, 0, len(b))
	for _, c := range b {
		names = append(names, c.Name)
	}
	return names
}

// Participant is a player identified by the slot they touch on the shared screen.
type Participant struct {
	Slot        int    `json:"slot"`
	DisplayName string `json:"displayName"`
	Color       Color  `json:"color"`
}

// Pick is the result of a random selection among the touching participants.
type Pick struct {
	Slot  int   `json:"slot"`
	Color Color `json:"color"`
}

// NameState tells the driver whether it still has to collect a display name.
type NameState struct {
	AlreadySet bool   `json:"alreadySet"`
	Name       string `json:"name,omitempty"`
}

// AnswerResult summarizes a submitted answer.
type AnswerResult struct {
	Slot          int    `json:"slot"`
	Name          string `json:"name"`
	Correct       bool   `json:"correct"`
	CorrectOption int    `json:"correctOption"`
	TotalScore    int    `json:"totalScore"`
	NextTurn      int    `json:"nextTurn"`
	Remaining     int    `json:"remaining"`
}

// ScoreEntry is one row of the scoreboard.
type ScoreEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// OutcomeKind classifies the end of a session.
type OutcomeKind string

const (
	OutcomeNoScores OutcomeKind = "noScores"
	OutcomeWinner   OutcomeKind = "winner"
	OutcomeTie      OutcomeKind = "tie"
)

// Outcome is the final verdict computed from the scoreboard.
type Outcome struct {
	Kind  OutcomeKind `json:"kind"`
	Name  string      `json:"name,omitempty"`
	Score int         `json:"score,omitempty"`
}

// PendingQuestion is the unanswered question as shown to players; it never
// carries the correct option.
type PendingQuestion struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// SessionState is a read-only snapshot of a session for rendering.
type SessionState struct {
	SessionID        string           `json:"sessionId"`
	Category         string           `json:"category"`
	ParticipantCount int              `json:"participantCount"`
	Participants     []Participant    `json:"participants"`
	Ready            []int            `json:"ready"`
	Turn             *int             `json:"turn,omitempty"`
	Question         *PendingQuestion `json:"question,omitempty"`
	Remaining        int              `json:"remaining"`
	Scores           []ScoreEntry     `json:"scores"`
	Complete         bool             `json:"complete"`
	Outcome          *Outcome         `json:"outcome,omitempty"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}
