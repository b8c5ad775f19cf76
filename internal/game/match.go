package game

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrAlreadyAnswered = errors.New("player already answered this prompt")
var ErrNotParticipant = errors.New("player is not part of this match")
var ErrMatchFull = errors.New("match already has two players")
var ErrBadTransition = errors.New("invalid match state transition")

type State string

const (
	StateAwaitingResponses State = "awaiting_responses"
	StateOneResponse       State = "one_response"
	StateReadyToReveal     State = "ready_to_reveal"
	StateRevealed          State = "revealed"
	StateResolved          State = "resolved"
	StateExpired           State = "expired"
)

// Match is one prompt assigned to an ordered pair of players. Both slots
// accept exactly one response each; the state machine is
//
//	AwaitingResponses -> OneResponse -> ReadyToReveal -> Revealed -> Resolved
//
// with Revealed -> Expired on the async path only.
type Match struct {
	ID     uuid.UUID
	Prompt string

	// Seq orders matches by creation within their session, so the oldest
	// mature match is revealed first.
	Seq uint64

	Player1ID   int64
	Player1Name string
	Player2ID   int64
	Player2Name string

	response1 string
	response2 string
	answered1 bool
	answered2 bool

	State        State
	VoteOpenedAt time.Time
}

func NewMatch(prompt string, player1, player2 *Player) *Match {
	return &Match{
		ID:          uuid.New(),
		Prompt:      prompt,
		Player1ID:   player1.ID,
		Player1Name: player1.Name,
		Player2ID:   player2.ID,
		Player2Name: player2.Name,
		State:       StateAwaitingResponses,
	}
}

// NewAsyncMatch creates a free-standing match seeded with the first
// responder. The second slot stays open until another player answers the
// same prompt text.
func NewAsyncMatch(prompt string, playerID int64, name, response string) *Match {
	return &Match{
		ID:          uuid.New(),
		Prompt:      prompt,
		Player1ID:   playerID,
		Player1Name: name,
		response1:   response,
		answered1:   true,
		State:       StateOneResponse,
	}
}

func (m *Match) Response1() string { return m.response1 }
func (m *Match) Response2() string { return m.response2 }

func (m *Match) ResponseCount() int {
	n := 0
	if m.answered1 {
		n++
	}
	if m.answered2 {
		n++
	}
	return n
}

func (m *Match) Ready() bool { return m.State == StateReadyToReveal }

// HasAnswered reports whether the given player's slot is already filled.
func (m *Match) HasAnswered(playerID int64) bool {
	switch playerID {
	case m.Player1ID:
		return m.answered1
	case m.Player2ID:
		return m.answered2
	}
	return false
}

// ResponseOf returns the response recorded for the given player.
func (m *Match) ResponseOf(playerID int64) (string, bool) {
	switch {
	case playerID == m.Player1ID && m.answered1:
		return m.response1, true
	case playerID == m.Player2ID && m.answered2:
		return m.response2, true
	}
	return "", false
}

// RecordResponse fills the player's slot. A slot is set at most once;
// the second write fails with ErrAlreadyAnswered and leaves the first
// response untouched.
func (m *Match) RecordResponse(playerID int64, text string) error {
	switch playerID {
	case m.Player1ID:
		if m.answered1 {
			return ErrAlreadyAnswered
		}
		m.response1 = text
		m.answered1 = true
	case m.Player2ID:
		if m.answered2 {
			return ErrAlreadyAnswered
		}
		m.response2 = text
		m.answered2 = true
	default:
		return ErrNotParticipant
	}

	switch m.ResponseCount() {
	case 1:
		m.State = StateOneResponse
	case 2:
		m.State = StateReadyToReveal
	}
	return nil
}

// JoinSecond pairs a second responder into a free-standing match.
func (m *Match) JoinSecond(playerID int64, name, response string) error {
	if playerID == m.Player1ID {
		return ErrAlreadyAnswered
	}
	if m.Player2ID != 0 {
		return ErrMatchFull
	}
	m.Player2ID = playerID
	m.Player2Name = name
	m.response2 = response
	m.answered2 = true
	m.State = StateReadyToReveal
	return nil
}

// Reveal marks the match as voted on via the given poll, opened at t.
func (m *Match) Reveal(t time.Time) error {
	if m.State != StateReadyToReveal {
		return ErrBadTransition
	}
	m.State = StateRevealed
	m.VoteOpenedAt = t
	return nil
}

func (m *Match) Resolve() error {
	if m.State != StateRevealed {
		return ErrBadTransition
	}
	m.State = StateResolved
	return nil
}

// ExpiredAt reports whether a revealed match has outlived the voting
// window. Only the async path ever expires matches.
func (m *Match) ExpiredAt(now time.Time, ttl time.Duration) bool {
	if m.State == StateExpired {
		return true
	}
	return m.State == StateRevealed && now.Sub(m.VoteOpenedAt) > ttl
}

func (m *Match) MarkExpired() { m.State = StateExpired }
