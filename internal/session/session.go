package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/DoyleJ11/quip-bot/internal/game"
)

var ErrInsufficientPlayers = errors.New("game needs at least two players")
var ErrSessionBusy = errors.New("session has unplayed matches")
var ErrAlreadyJoined = errors.New("player already joined this session")
var ErrMatchNotFound = errors.New("no pending match for that message")
var ErrPollNotFound = errors.New("no revealed match for that poll")
var ErrVotingInProgress = errors.New("previous vote is still open")

// SlotKey identifies one prompt delivery: the private chat it went to and
// the message carrying it. Replies correlate back through this pair.
type SlotKey struct {
	ChatID    int64
	MessageID int
}

// DrawPrompt supplies a prompt for the session's language. Custom prompts
// pushed by players take precedence and never reach this function.
type DrawPrompt func(lang string) (string, error)

type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota // tally below threshold, vote stays open
	OutcomeDraw
	OutcomeWinner
)

// Resolution is the result of applying a closed poll to a revealed match.
// Player snapshots carry the vote counts of that match.
type Resolution struct {
	Kind    OutcomeKind
	Player1 game.Player
	Player2 game.Player
	Winner  game.Player
	Loser   game.Player
}

// Session is one game bound to a single group chat. All mutation happens
// on the dispatcher goroutine; there is no internal locking.
type Session struct {
	ID             uuid.UUID
	GroupID        int64
	PromptLanguage string
	Playing        bool

	votingOpen bool

	roster map[int64]*game.Player
	order  []int64

	pending map[SlotKey]*game.Match
	slots   map[uuid.UUID][]SlotKey

	revealed map[string]*game.Match

	customPrompts []string

	seq uint64
}

func New(id uuid.UUID, groupID int64) *Session {
	return &Session{
		ID:             id,
		GroupID:        groupID,
		PromptLanguage: "ru",
		votingOpen:     true,
		roster:         make(map[int64]*game.Player),
		pending:        make(map[SlotKey]*game.Match),
		slots:          make(map[uuid.UUID][]SlotKey),
		revealed:       make(map[string]*game.Match),
	}
}

func (s *Session) SetPromptLanguage(lang string) { s.PromptLanguage = lang }

func (s *Session) VotingOpen() bool { return s.votingOpen }

// AddPlayer joins a player to the roster. Joining is blocked while any
// match of the current round is still unplayed.
func (s *Session) AddPlayer(id int64, name string) error {
	if s.PendingMatchCount() > 0 {
		return ErrSessionBusy
	}
	if _, ok := s.roster[id]; ok {
		return ErrAlreadyJoined
	}
	s.roster[id] = game.NewPlayer(id, name)
	s.order = append(s.order, id)
	return nil
}

// RemovePlayer drops the roster entry. In-flight matches involving the
// player are left alone; they resolve or expire normally.
func (s *Session) RemovePlayer(id int64) bool {
	if _, ok := s.roster[id]; !ok {
		return false
	}
	delete(s.roster, id)
	for i, pid := range s.order {
		if pid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Session) HasPlayer(id int64) bool {
	_, ok := s.roster[id]
	return ok
}

func (s *Session) Player(id int64) (*game.Player, bool) {
	p, ok := s.roster[id]
	return p, ok
}

func (s *Session) PlayerCount() int { return len(s.roster) }

// Players returns the roster in join order.
func (s *Session) Players() []*game.Player {
	out := make([]*game.Player, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.roster[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (s *Session) PushCustomPrompt(prompt string) {
	s.customPrompts = append(s.customPrompts, prompt)
}

func (s *Session) CustomPromptCount() int { return len(s.customPrompts) }

func (s *Session) popCustomPrompt() (string, bool) {
	if len(s.customPrompts) == 0 {
		return "", false
	}
	p := s.customPrompts[len(s.customPrompts)-1]
	s.customPrompts = s.customPrompts[:len(s.customPrompts)-1]
	return p, true
}

// StartRound creates one match per ordered pair of distinct roster
// players, each with an independently drawn prompt. The caller delivers
// each prompt to both players and then indexes the match with TrackMatch
// once the delivery message ids are known.
func (s *Session) StartRound(draw DrawPrompt) ([]*game.Match, error) {
	if len(s.roster) < 2 {
		return nil, ErrInsufficientPlayers
	}

	players := s.Players()
	matches := make([]*game.Match, 0, len(players)*(len(players)-1))
	for _, p1 := range players {
		for _, p2 := range players {
			if p1.ID == p2.ID {
				continue
			}
			prompt, ok := s.popCustomPrompt()
			if !ok {
				var err error
				prompt, err = draw(s.PromptLanguage)
				if err != nil {
					return nil, err
				}
			}
			m := game.NewMatch(prompt, p1, p2)
			s.seq++
			m.Seq = s.seq
			matches = append(matches, m)
		}
	}

	s.Playing = true
	return matches, nil
}

// TrackMatch indexes a match under the delivery slots of both players.
func (s *Session) TrackMatch(m *game.Match, slot1, slot2 SlotKey) {
	s.pending[slot1] = m
	s.pending[slot2] = m
	s.slots[m.ID] = []SlotKey{slot1, slot2}
}

// RecordResponse applies a player's private reply to the match indexed at
// the given slot. The second response moves the match to ReadyToReveal.
func (s *Session) RecordResponse(slot SlotKey, playerID int64, text string) (*game.Match, error) {
	m, ok := s.pending[slot]
	if !ok {
		return nil, ErrMatchNotFound
	}
	if err := m.RecordResponse(playerID, text); err != nil {
		return m, err
	}
	return m, nil
}

// PendingMatchCount counts distinct matches still waiting on at least one
// response. It gates /join and is reported on /vote when nothing is ready.
func (s *Session) PendingMatchCount() int {
	seen := make(map[uuid.UUID]struct{})
	for _, m := range s.pending {
		if m.ResponseCount() < 2 {
			seen[m.ID] = struct{}{}
		}
	}
	return len(seen)
}

// FirstMatureMatch returns the oldest match that is ready to reveal, or
// nil when no pending match has both responses yet.
func (s *Session) FirstMatureMatch() *game.Match {
	var oldest *game.Match
	seen := make(map[uuid.UUID]struct{})
	for _, m := range s.pending {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		if !m.Ready() {
			continue
		}
		if oldest == nil || m.Seq < oldest.Seq {
			oldest = m
		}
	}
	return oldest
}

// RevealMatch moves a match from the pending index to the reveal index
// under the poll that now carries it, and closes the voting gate until
// that poll resolves.
func (s *Session) RevealMatch(m *game.Match, pollID string, at time.Time) error {
	if !s.votingOpen {
		return ErrVotingInProgress
	}
	if err := m.Reveal(at); err != nil {
		return err
	}
	for _, slot := range s.slots[m.ID] {
		delete(s.pending, slot)
	}
	delete(s.slots, m.ID)
	s.revealed[pollID] = m
	s.votingOpen = false
	return nil
}

// RevealedMatch looks up a match by the poll voting on it.
func (s *Session) RevealedMatch(pollID string) (*game.Match, bool) {
	m, ok := s.revealed[pollID]
	return m, ok
}

// ResolvePoll applies a closed poll's tally to its revealed match. Vote
// counts update the players' per-match scores immediately, but the match
// resolves — totals accumulated, reveal entry removed, voting re-opened —
// only once the tally covers the whole roster. A later duplicate close
// for the same poll fails with ErrPollNotFound.
func (s *Session) ResolvePoll(pollID string, votes1, votes2, totalVoters int) (Resolution, error) {
	m, ok := s.revealed[pollID]
	if !ok {
		return Resolution{}, ErrPollNotFound
	}

	if p, ok := s.roster[m.Player1ID]; ok {
		p.MatchScore = votes1
	}
	if p, ok := s.roster[m.Player2ID]; ok {
		p.MatchScore = votes2
	}

	if totalVoters < len(s.roster) {
		return Resolution{Kind: OutcomeNone}, nil
	}

	if p, ok := s.roster[m.Player1ID]; ok {
		p.TotalScore += votes1
	}
	if p, ok := s.roster[m.Player2ID]; ok {
		p.TotalScore += votes2
	}

	_ = m.Resolve()
	delete(s.revealed, pollID)
	s.votingOpen = true

	res := Resolution{
		Player1: game.Player{ID: m.Player1ID, Name: m.Player1Name, MatchScore: votes1},
		Player2: game.Player{ID: m.Player2ID, Name: m.Player2Name, MatchScore: votes2},
	}
	switch {
	case votes1 > votes2:
		res.Kind = OutcomeWinner
		res.Winner, res.Loser = res.Player1, res.Player2
	case votes2 > votes1:
		res.Kind = OutcomeWinner
		res.Winner, res.Loser = res.Player2, res.Player1
	default:
		res.Kind = OutcomeDraw
	}
	return res, nil
}

// Clear wipes the roster and both match indexes.
func (s *Session) Clear() {
	s.Playing = false
	s.votingOpen = true
	s.roster = make(map[int64]*game.Player)
	s.order = nil
	s.pending = make(map[SlotKey]*game.Match)
	s.slots = make(map[uuid.UUID][]SlotKey)
	s.revealed = make(map[string]*game.Match)
	s.customPrompts = nil
}
