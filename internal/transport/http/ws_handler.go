package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"chwazi-quiz/internal/app"
	"chwazi-quiz/internal/domain"
	"github.com/gorilla/websocket"
)

// Timing carries the presentation timers; the game itself has none.
type Timing struct {
	AnswerReveal        time.Duration
	ScoreboardDismiss   time.Duration
	DefaultParticipants int
}

type WSHandler struct {
	service  *app.GameService
	timing   Timing
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, timing Timing) *WSHandler {
	if timing.DefaultParticipants == 0 {
		timing.DefaultParticipants = domain.MinParticipants
	}
	return &WSHandler{
		service: service,
		timing:  timing,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type slotPayload struct {
	Slot int `json:"slot"`
}

type namePayload struct {
	Slot int    `json:"slot"`
	Name string `json:"name"`
}

type answerPayload struct {
	Option int `json:"option"`
}

type resetPayload struct {
	Participants int `json:"participants"`
}

type pickedPayload struct {
	Slot      int              `json:"slot"`
	Color     domain.Color     `json:"color"`
	NameState domain.NameState `json:"nameState"`
}

type namePromptPayload struct {
	Slot  int          `json:"slot"`
	Color domain.Color `json:"color"`
}

// questionPayload never carries the correct option.
type questionPayload struct {
	Slot      int      `json:"slot"`
	Name      string   `json:"name"`
	Text      string   `json:"text"`
	Options   []string `json:"options"`
	Remaining int      `json:"remaining"`
}

type answerResultPayload struct {
	domain.AnswerResult
	RevealMs int64 `json:"revealMs"`
}

type scoreboardPayload struct {
	Scores    []domain.ScoreEntry `json:"scores"`
	DismissMs int64               `json:"dismissMs"`
}

type outcomePayload struct {
	domain.Outcome
	Scores []domain.ScoreEntry `json:"scores"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and drives one game session.
// A new session is started from ?category=&participants=, an existing one is
// attached with ?sessionId=.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	sessionID := query.Get("sessionId")
	category := query.Get("category")
	if sessionID == "" && category == "" {
		http.Error(w, "missing sessionId or category", http.StatusBadRequest)
		return
	}
	participants := h.timing.DefaultParticipants
	if raw := query.Get("participants"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid participants", http.StatusBadRequest)
			return
		}
		participants = n
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	var state domain.SessionState
	if sessionID != "" {
		state, err = h.service.State(ctx, sessionID)
	} else {
		state, err = h.service.Start(ctx, category, participants)
	}
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: newErrorPayload(err)})
		return
	}
	sessionID = state.SessionID

	updates, cancel, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: newErrorPayload(err)})
		return
	}
	defer h.service.End(context.Background(), sessionID)
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer: gorilla connections do not allow concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				// Unblock the reader and keep draining until send is closed.
				_ = conn.Close()
				for range send {
				}
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "started", Payload: state}

	d := &driver{h: h, sessionID: sessionID, send: send}
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		d.handle(ctx, inbound)
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// driver turns inbound messages into game operations and prompts.
type driver struct {
	h         *WSHandler
	sessionID string
	send      chan<- outboundMessage[any]
}

func (d *driver) handle(ctx context.Context, inbound inboundMessage) {
	switch inbound.Type {
	case "touchDown":
		var payload slotPayload
		if !d.decode(inbound.Payload, &payload) {
			return
		}
		pick, err := d.h.service.TouchDown(ctx, d.sessionID, payload.Slot)
		if err != nil {
			d.fail(err)
			return
		}
		if pick == nil {
			return
		}
		nameState, err := d.h.service.NameState(ctx, d.sessionID, pick.Slot)
		if err != nil {
			d.fail(err)
			return
		}
		d.emit("picked", pickedPayload{Slot: pick.Slot, Color: pick.Color, NameState: nameState})
		d.prompt(ctx, pick.Slot)
	case "touchUp":
		var payload slotPayload
		if !d.decode(inbound.Payload, &payload) {
			return
		}
		if err := d.h.service.TouchUp(ctx, d.sessionID, payload.Slot); err != nil {
			d.fail(err)
		}
	case "name":
		var payload namePayload
		if !d.decode(inbound.Payload, &payload) {
			return
		}
		if err := d.h.service.SubmitName(ctx, d.sessionID, payload.Slot, payload.Name); err != nil {
			d.fail(err)
			return
		}
		state, err := d.h.service.State(ctx, d.sessionID)
		if err != nil {
			d.fail(err)
			return
		}
		// Names may be entered ahead of a turn; only the turn holder is prompted.
		if state.Turn != nil {
			d.prompt(ctx, *state.Turn)
		}
	case "answer":
		var payload answerPayload
		if !d.decode(inbound.Payload, &payload) {
			return
		}
		result, err := d.h.service.SubmitAnswer(ctx, d.sessionID, payload.Option)
		if err != nil {
			d.fail(err)
			return
		}
		d.emit("answerResult", answerResultPayload{AnswerResult: result, RevealMs: d.h.timing.AnswerReveal.Milliseconds()})
		if result.Remaining == 0 {
			d.outcome(ctx)
			return
		}
		d.scoreboard(ctx, d.h.timing.ScoreboardDismiss)
		d.prompt(ctx, result.NextTurn)
	case "reset":
		var payload resetPayload
		if !d.decode(inbound.Payload, &payload) {
			return
		}
		state, err := d.h.service.Reset(ctx, d.sessionID, payload.Participants)
		if err != nil {
			d.fail(err)
			return
		}
		d.emit("started", state)
	case "scoreboard":
		d.scoreboard(ctx, 0)
	case "outcome":
		d.outcome(ctx)
	default:
		d.emit("error", errorPayload{Kind: "protocol", Message: "unsupported message type"})
	}
}

// prompt asks for slot's name if it is missing, otherwise serves the next question.
func (d *driver) prompt(ctx context.Context, slot int) {
	nameState, err := d.h.service.NameState(ctx, d.sessionID, slot)
	if err != nil {
		d.fail(err)
		return
	}
	if !nameState.AlreadySet {
		d.emit("namePrompt", namePromptPayload{Slot: slot, Color: domain.ColorForSlot(slot)})
		return
	}
	question, pending, err := d.h.service.CurrentQuestion(ctx, d.sessionID)
	if err != nil {
		d.fail(err)
		return
	}
	if !pending {
		d.outcome(ctx)
		return
	}
	state, err := d.h.service.State(ctx, d.sessionID)
	if err != nil {
		d.fail(err)
		return
	}
	d.emit("question", questionPayload{
		Slot:      slot,
		Name:      nameState.Name,
		Text:      question.Text,
		Options:   question.Options,
		Remaining: state.Remaining,
	})
}

func (d *driver) scoreboard(ctx context.Context, dismiss time.Duration) {
	state, err := d.h.service.State(ctx, d.sessionID)
	if err != nil {
		d.fail(err)
		return
	}
	d.emit("scoreboard", scoreboardPayload{Scores: state.Scores, DismissMs: dismiss.Milliseconds()})
}

func (d *driver) outcome(ctx context.Context) {
	outcome, err := d.h.service.Outcome(ctx, d.sessionID)
	if err != nil {
		d.fail(err)
		return
	}
	state, err := d.h.service.State(ctx, d.sessionID)
	if err != nil {
		d.fail(err)
		return
	}
	d.emit("outcome", outcomePayload{Outcome: outcome, Scores: state.Scores})
}

func (d *driver) decode(raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		d.emit("error", errorPayload{Kind: "protocol", Message: "invalid payload"})
		return false
	}
	return true
}

func (d *driver) fail(err error) {
	if domain.Kind(err) == "invariant" {
		log.Printf("session %s: %v", d.sessionID, err)
	}
	d.emit("error", newErrorPayload(err))
}

func (d *driver) emit(typ string, payload any) {
	d.send <- outboundMessage[any]{Type: typ, Payload: payload}
}

func newErrorPayload(err error) errorPayload {
	return errorPayload{Kind: domain.Kind(err), Message: err.Error()}
}
