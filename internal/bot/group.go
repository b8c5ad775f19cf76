package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/quip-bot/internal/metrics"
	"github.com/DoyleJ11/quip-bot/internal/prompts"
	"github.com/DoyleJ11/quip-bot/internal/session"
	"github.com/DoyleJ11/quip-bot/internal/transport"
)

func (b *Bot) handleGroupCommand(ctx context.Context, cmd *transport.GroupCommand) {
	switch cmd.Command {
	case "/new":
		b.handleNew(ctx, cmd.GroupID)
	case "/start":
		b.handleStart(ctx, cmd.GroupID, cmd.GroupTitle)
	case "/join":
		b.handleJoin(ctx, cmd.GroupID, cmd.SenderID, cmd.SenderName)
	case "/vote":
		b.handleVote(ctx, cmd.GroupID)
	case "/end":
		b.handleEnd(ctx, cmd.GroupID, cmd.GroupTitle)
	case "/exit":
		b.handleExit(ctx, cmd.GroupID, cmd.SenderID, cmd.SenderName)
	case "/sessiontotals":
		b.handleSessionTotals(ctx, cmd.GroupID)
	case "/overalltotals":
		b.handleOverallTotals(ctx, cmd.GroupID)
	case "/resetoveralltotals":
		b.reg.ResetTotals()
		b.say(ctx, cmd.GroupID, "Stats reset")
	case "/setenglish":
		b.handleSetLanguage(ctx, cmd.GroupID, "en")
	case "/setrussian":
		b.handleSetLanguage(ctx, cmd.GroupID, "ru")
	case "/addprompt":
		b.handleAddPrompt(ctx, cmd.GroupID, cmd.Args)
	case "/getrandom":
		b.handleGetRandom(ctx, cmd.GroupID)
	case "/getmetrics":
		b.say(ctx, cmd.GroupID, metrics.Collect(b.startedAt).String())
	case "/getstatus":
		b.say(ctx, cmd.GroupID, fmt.Sprintf("Prompts in queue: %d", b.reg.AsyncQueueLen()))
	}
}

func (b *Bot) handleNew(ctx context.Context, groupID int64) {
	b.reg.CreateSession(groupID)
	b.say(ctx, groupID, "New game created")
}

func (b *Bot) handleStart(ctx context.Context, groupID int64, groupTitle string) {
	s, err := b.reg.SessionByGroup(groupID)
	if err != nil {
		b.say(ctx, groupID, "Session does not exist")
		return
	}

	matches, err := s.StartRound(b.prompts.GetPrompt)
	if errors.Is(err, session.ErrInsufficientPlayers) {
		b.say(ctx, groupID, "Game should have at least two players")
		return
	}
	if err != nil {
		// Prompt source failure is fatal to the round and reported.
		b.log.Error("round start failed", zap.Int64("group_id", groupID), zap.Error(err))
		b.say(ctx, groupID, fmt.Sprintf("Could not start the round: %v", err))
		return
	}

	for _, m := range matches {
		id1, err1 := b.sender.SendMessage(ctx, m.Player1ID, m.Prompt)
		id2, err2 := b.sender.SendMessage(ctx, m.Player2ID, m.Prompt)
		if err1 != nil || err2 != nil {
			b.log.Error("prompt delivery failed",
				zap.Int64("player1", m.Player1ID), zap.Int64("player2", m.Player2ID),
				zap.NamedError("err1", err1), zap.NamedError("err2", err2))
			continue
		}
		s.TrackMatch(m,
			session.SlotKey{ChatID: m.Player1ID, MessageID: id1},
			session.SlotKey{ChatID: m.Player2ID, MessageID: id2})
	}

	names := make([]string, 0, s.PlayerCount())
	for _, p := range s.Players() {
		names = append(names, p.Name)
		b.say(ctx, p.ID, fmt.Sprintf("Game started in group %s", groupTitle))
	}
	b.say(ctx, groupID, fmt.Sprintf("Game started. Prompts sent to users: %s", strings.Join(names, ",")))
}

func (b *Bot) handleJoin(ctx context.Context, groupID, playerID int64, playerName string) {
	if b.reg.RegisterPlayer(playerID, playerName) {
		b.say(ctx, groupID, fmt.Sprintf("Player %s has been registered", playerName))
	}

	s, err := b.reg.SessionByGroup(groupID)
	if err != nil {
		b.say(ctx, groupID, "Session does not exist")
		return
	}

	if n := s.PendingMatchCount(); n > 0 {
		b.say(ctx, groupID, fmt.Sprintf("Session is being played, unplayed match count %d, player %s can not join", n, playerName))
		return
	}
	if s.HasPlayer(playerID) {
		b.say(ctx, groupID, fmt.Sprintf("Player %s already joined", playerName))
		return
	}
	if b.reg.PlayerInAnySession(playerID) {
		b.say(ctx, groupID, fmt.Sprintf("Player %s is already in a session. End that session first", playerName))
		return
	}

	if err := s.AddPlayer(playerID, playerName); err != nil {
		b.log.Warn("join rejected", zap.Int64("player_id", playerID), zap.Error(err))
		return
	}
	if !b.reg.AddPlayerToSession(playerID, s.ID) {
		// Pre-checked above; hitting this means the tables disagree.
		b.log.Error("chat binding failed after roster add", zap.Int64("player_id", playerID))
		s.RemovePlayer(playerID)
		return
	}
	b.say(ctx, groupID, fmt.Sprintf("Player %s joined", playerName))
}

func (b *Bot) handleVote(ctx context.Context, groupID int64) {
	// A mature free-standing match at the queue head takes precedence
	// over the session's own matches.
	if m, ok := b.reg.PeekAsyncMatch(); ok && m.ResponseCount() >= 2 {
		b.reg.DequeueAsyncMatch()
		pollID, _, err := b.sender.OpenPoll(ctx, groupID, m.Prompt, m.Response1(), m.Response2())
		if err != nil {
			// Put the match back so a later /vote can retry it.
			b.reg.RequeueAsyncMatch(m)
			b.log.Error("open poll failed", zap.Int64("group_id", groupID), zap.Error(err))
			b.say(ctx, groupID, "Could not open the poll")
			return
		}
		if err := m.Reveal(b.now()); err != nil {
			b.log.Error("async reveal failed", zap.String("match_id", m.ID.String()), zap.Error(err))
			return
		}
		b.reg.RecordPollForAsyncMatch(pollID, m)
		b.reg.RecordPollForGroup(pollID, groupID)
		b.say(ctx, groupID, "Async vote sent")
		return
	}

	s, err := b.reg.SessionByGroup(groupID)
	if err != nil {
		b.say(ctx, groupID, "Session does not exist")
		return
	}
	if !s.VotingOpen() {
		b.say(ctx, groupID, "Can't reveal the next vote until the last one is closed")
		return
	}

	m := s.FirstMatureMatch()
	if m == nil {
		n := s.PendingMatchCount()
		if n == 0 {
			b.say(ctx, groupID, "No matches left. Run /start to play again")
			return
		}
		b.say(ctx, groupID, fmt.Sprintf("No played matches yet. At least one prompt must be answered by the players to whom it was addressed. Unplayed match count %d", n))
		return
	}

	pollID, _, err := b.sender.OpenPoll(ctx, groupID, m.Prompt, m.Response1(), m.Response2())
	if err != nil {
		b.log.Error("open poll failed", zap.Int64("group_id", groupID), zap.Error(err))
		b.say(ctx, groupID, "Could not open the poll")
		return
	}
	b.reg.RecordPollForGroup(pollID, groupID)
	if err := s.RevealMatch(m, pollID, b.now()); err != nil {
		b.log.Error("reveal failed", zap.String("match_id", m.ID.String()), zap.Error(err))
	}
}

func (b *Bot) handleEnd(ctx context.Context, groupID int64, groupTitle string) {
	s, err := b.reg.SessionByGroup(groupID)
	if err != nil {
		b.say(ctx, groupID, "Session does not exist")
		return
	}

	players := s.Players()
	s.Clear()
	b.reg.ClearSession(groupID)

	b.say(ctx, groupID, "Game over")
	for _, p := range players {
		b.say(ctx, p.ID, fmt.Sprintf("Game in %s is over", groupTitle))
	}
}

func (b *Bot) handleExit(ctx context.Context, groupID, playerID int64, playerName string) {
	s, err := b.reg.SessionByGroup(groupID)
	if err != nil {
		return
	}
	if s.RemovePlayer(playerID) {
		b.say(ctx, groupID, fmt.Sprintf("Player %s left. They will not receive prompts anymore", playerName))
	}
}

func (b *Bot) handleSessionTotals(ctx context.Context, groupID int64) {
	s, err := b.reg.SessionByGroup(groupID)
	if err != nil {
		b.say(ctx, groupID, "Session does not exist")
		return
	}
	var sb strings.Builder
	for _, p := range s.Players() {
		fmt.Fprintf(&sb, "Player %s, Score %d\n", p.Name, p.TotalScore)
	}
	b.say(ctx, groupID, fmt.Sprintf("Session totals\n%s", sb.String()))
}

func (b *Bot) handleOverallTotals(ctx context.Context, groupID int64) {
	var sb strings.Builder
	for _, t := range b.reg.CumulativeTotals() {
		fmt.Fprintf(&sb, "Player %s, Score %d\n", t.Name, t.Score)
	}
	b.say(ctx, groupID, fmt.Sprintf("Overall totals\n%s", sb.String()))
}

func (b *Bot) handleSetLanguage(ctx context.Context, groupID int64, lang string) {
	s, err := b.reg.SessionByGroup(groupID)
	if err != nil {
		b.say(ctx, groupID, "Session does not exist")
		return
	}
	s.SetPromptLanguage(lang)
	b.say(ctx, groupID, fmt.Sprintf("Prompt language set as: %s", lang))
}

func (b *Bot) handleAddPrompt(ctx context.Context, groupID int64, args string) {
	if strings.TrimSpace(args) == "" {
		b.say(ctx, groupID, "Usage: /addprompt <prompt text>")
		return
	}
	s, err := b.reg.SessionByGroup(groupID)
	if err != nil {
		b.say(ctx, groupID, "Session does not exist")
		return
	}
	s.PushCustomPrompt(strings.TrimSpace(args))
	b.say(ctx, groupID, fmt.Sprintf("Custom prompt added, %d queued", s.CustomPromptCount()))
}

// handleGetRandom reports the size of the active prompt set and a draw
// index from it, a quick liveness check on the prompt data.
func (b *Bot) handleGetRandom(ctx context.Context, groupID int64) {
	lang := b.opts.DefaultLanguage
	if s, err := b.reg.SessionByGroup(groupID); err == nil {
		lang = s.PromptLanguage
	}

	counter, ok := b.prompts.(prompts.Counter)
	if !ok {
		b.say(ctx, groupID, "No prompts available right now")
		return
	}
	n, err := counter.Count(lang)
	if err != nil || n == 0 {
		b.log.Warn("prompt count failed", zap.String("lang", lang), zap.Error(err))
		b.say(ctx, groupID, "No prompts available right now")
		return
	}
	b.say(ctx, groupID, fmt.Sprintf("Prompt count %d, random number %d", n, b.rng.Intn(n)))
}
