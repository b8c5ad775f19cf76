package registry

import (
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/DoyleJ11/quip-bot/internal/game"
	"github.com/DoyleJ11/quip-bot/internal/session"
)

var ErrSessionNotFound = errors.New("session not found")
var ErrPollNotFound = errors.New("poll is not mapped to any group")

// ErrPlayerNotRegistered is an invariant violation: registration must
// precede every scoring path. It indicates a bug, not user error.
var ErrPlayerNotRegistered = errors.New("player was never registered")

// IDFunc supplies session identifiers. Production uses RandomIDs; tests
// pin deterministic ids.
type IDFunc func() uuid.UUID

func RandomIDs() uuid.UUID { return uuid.New() }

// Total is one cumulative-leaderboard row.
type Total struct {
	Name  string
	Score int
}

// Registry holds the process-wide correlation tables: which session a
// group plays, which group a poll belongs to, which session a private
// chat is bound to, cumulative totals, and the async matchmaking queue.
// It exclusively owns all sessions. Like everything downstream of the
// dispatcher it is single-goroutine state and carries no locks.
type Registry struct {
	newID IDFunc

	sessions       map[uuid.UUID]*session.Session
	groupToSession map[int64]uuid.UUID
	pollToGroup    map[string]int64
	groupPolls     map[int64][]string
	chatToSession  map[int64]uuid.UUID
	sessionChats   map[uuid.UUID][]int64

	names  map[int64]string
	totals map[string]int

	asyncQueue  []*game.Match
	promptIndex map[string]*game.Match
	pollToAsync map[string]*game.Match
}

func New(newID IDFunc) *Registry {
	return &Registry{
		newID:          newID,
		sessions:       make(map[uuid.UUID]*session.Session),
		groupToSession: make(map[int64]uuid.UUID),
		pollToGroup:    make(map[string]int64),
		groupPolls:     make(map[int64][]string),
		chatToSession:  make(map[int64]uuid.UUID),
		sessionChats:   make(map[uuid.UUID][]int64),
		names:          make(map[int64]string),
		totals:         make(map[string]int),
		promptIndex:    make(map[string]*game.Match),
		pollToAsync:    make(map[string]*game.Match),
	}
}

// RegisterPlayer records a player's display name. The first call for an
// id wins; later calls are no-ops. Reports whether this call registered.
func (r *Registry) RegisterPlayer(id int64, name string) bool {
	if _, ok := r.names[id]; ok {
		return false
	}
	r.names[id] = name
	return true
}

func (r *Registry) PlayerName(id int64) (string, bool) {
	name, ok := r.names[id]
	return name, ok
}

// CreateSession allocates a fresh session for the group, replacing and
// fully unlinking any prior one.
func (r *Registry) CreateSession(groupID int64) *session.Session {
	r.ClearSession(groupID)
	id := r.newID()
	s := session.New(id, groupID)
	r.sessions[id] = s
	r.groupToSession[groupID] = id
	return s
}

// ClearSession removes every registry entry rooted at the group's
// session: poll routes, the chat binding of each member, and the session
// itself. Safe to call when no session exists.
func (r *Registry) ClearSession(groupID int64) {
	for _, pollID := range r.groupPolls[groupID] {
		delete(r.pollToGroup, pollID)
	}
	delete(r.groupPolls, groupID)

	id, ok := r.groupToSession[groupID]
	if !ok {
		return
	}
	for _, chatID := range r.sessionChats[id] {
		delete(r.chatToSession, chatID)
	}
	delete(r.sessionChats, id)
	delete(r.sessions, id)
	delete(r.groupToSession, groupID)
}

func (r *Registry) SessionExists(groupID int64) bool {
	_, ok := r.groupToSession[groupID]
	return ok
}

func (r *Registry) SessionByGroup(groupID int64) (*session.Session, error) {
	id, ok := r.groupToSession[groupID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return r.sessions[id], nil
}

func (r *Registry) SessionByID(id uuid.UUID) (*session.Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// SessionByChat resolves the session a private chat is currently bound
// to. This is how a player's reply finds its game.
func (r *Registry) SessionByChat(chatID int64) (*session.Session, error) {
	id, ok := r.chatToSession[chatID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return r.sessions[id], nil
}

// PlayerInAnySession reports whether the player is bound to some session.
// A player belongs to at most one session at a time.
func (r *Registry) PlayerInAnySession(playerID int64) bool {
	_, ok := r.chatToSession[playerID]
	return ok
}

// AddPlayerToSession binds a player's private chat to a session. Fails
// without mutation when the player is already bound anywhere.
func (r *Registry) AddPlayerToSession(playerID int64, sessionID uuid.UUID) bool {
	if _, ok := r.chatToSession[playerID]; ok {
		return false
	}
	if _, ok := r.sessions[sessionID]; !ok {
		return false
	}
	r.chatToSession[playerID] = sessionID
	r.sessionChats[sessionID] = append(r.sessionChats[sessionID], playerID)
	return true
}

// RecordPollForGroup routes a freshly opened poll back to its group, so
// the poll-closed event (which carries no group id) can find it.
func (r *Registry) RecordPollForGroup(pollID string, groupID int64) {
	r.pollToGroup[pollID] = groupID
	r.groupPolls[groupID] = append(r.groupPolls[groupID], pollID)
}

func (r *Registry) GroupFromPoll(pollID string) (int64, error) {
	groupID, ok := r.pollToGroup[pollID]
	if !ok {
		return 0, ErrPollNotFound
	}
	return groupID, nil
}

// UpdateCumulativeScore adds to the all-time totals, keyed by display
// name. Failing here means a scoring path ran before registration.
func (r *Registry) UpdateCumulativeScore(playerID int64, delta int) error {
	name, ok := r.names[playerID]
	if !ok {
		return ErrPlayerNotRegistered
	}
	r.totals[name] += delta
	return nil
}

// CumulativeTotals returns the all-time leaderboard, highest score first.
func (r *Registry) CumulativeTotals() []Total {
	out := make([]Total, 0, len(r.totals))
	for name, score := range r.totals {
		out = append(out, Total{Name: name, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r *Registry) ResetTotals() {
	r.totals = make(map[string]int)
}

// EnqueueAsyncMatch appends a free-standing match to the matchmaking
// queue and indexes it by prompt text for the rendezvous.
func (r *Registry) EnqueueAsyncMatch(prompt string, m *game.Match) {
	r.asyncQueue = append(r.asyncQueue, m)
	r.promptIndex[prompt] = m
}

func (r *Registry) PeekAsyncMatch() (*game.Match, bool) {
	if len(r.asyncQueue) == 0 {
		return nil, false
	}
	return r.asyncQueue[0], true
}

func (r *Registry) DequeueAsyncMatch() (*game.Match, bool) {
	if len(r.asyncQueue) == 0 {
		return nil, false
	}
	m := r.asyncQueue[0]
	r.asyncQueue = r.asyncQueue[1:]
	if r.promptIndex[m.Prompt] == m {
		delete(r.promptIndex, m.Prompt)
	}
	return m, true
}

func (r *Registry) AsyncQueueLen() int { return len(r.asyncQueue) }

// RequeueAsyncMatch puts a dequeued match back at the queue head, so a
// reveal that failed to open its poll can be retried by a later /vote.
func (r *Registry) RequeueAsyncMatch(m *game.Match) {
	r.asyncQueue = append([]*game.Match{m}, r.asyncQueue...)
	if m.ResponseCount() < 2 {
		r.promptIndex[m.Prompt] = m
	}
}

// PairPromptResponse is the rendezvous for free-standing prompts: the
// first player answering a prompt text creates and enqueues a match, the
// second distinct player answering the same text is paired into it.
// Matching is by prompt text alone; two concurrent matches over identical
// text collapse into one, a known correlation limit.
func (r *Registry) PairPromptResponse(prompt string, playerID int64, name, response string) (*game.Match, error) {
	if m, ok := r.promptIndex[prompt]; ok {
		if err := m.JoinSecond(playerID, name, response); err != nil {
			return m, err
		}
		// Both slots filled; the prompt no longer accepts responders.
		delete(r.promptIndex, prompt)
		return m, nil
	}
	m := game.NewAsyncMatch(prompt, playerID, name, response)
	r.EnqueueAsyncMatch(prompt, m)
	return m, nil
}

// OfferAsyncPrompt finds a queued prompt still waiting for its second
// responder that did not originate from the asking chat.
func (r *Registry) OfferAsyncPrompt(chatID int64) (string, bool) {
	for _, m := range r.asyncQueue {
		if m.ResponseCount() < 2 && m.Player1ID != chatID {
			return m.Prompt, true
		}
	}
	return "", false
}

// RecordPollForAsyncMatch routes a poll opened for a free-standing match.
func (r *Registry) RecordPollForAsyncMatch(pollID string, m *game.Match) {
	r.pollToAsync[pollID] = m
}

func (r *Registry) AsyncMatchByPoll(pollID string) (*game.Match, bool) {
	m, ok := r.pollToAsync[pollID]
	return m, ok
}

// RemoveAsyncPoll drops the poll route once its match resolved or
// expired, so duplicate poll-closed events find nothing.
func (r *Registry) RemoveAsyncPoll(pollID string) {
	delete(r.pollToAsync, pollID)
}
