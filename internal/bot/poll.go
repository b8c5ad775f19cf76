package bot

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/quip-bot/internal/game"
	"github.com/DoyleJ11/quip-bot/internal/session"
	"github.com/DoyleJ11/quip-bot/internal/transport"
)

// handlePollClosed routes a poll tally back to the match it votes on:
// first through the async poll index, then through poll -> group ->
// session. Unknown polls are late or duplicate events and are dropped.
func (b *Bot) handlePollClosed(ctx context.Context, p *transport.PollClosed) {
	if m, ok := b.reg.AsyncMatchByPoll(p.PollID); ok {
		b.resolveAsyncPoll(ctx, p, m)
		return
	}

	groupID, err := b.reg.GroupFromPoll(p.PollID)
	if err != nil {
		b.log.Debug("poll not mapped to any group", zap.String("poll_id", p.PollID))
		return
	}
	s, err := b.reg.SessionByGroup(groupID)
	if err != nil {
		return
	}

	res, err := s.ResolvePoll(p.PollID, p.VoteCounts[0], p.VoteCounts[1], p.TotalVoters)
	if errors.Is(err, session.ErrPollNotFound) {
		// Already resolved; duplicate close event.
		return
	}
	if res.Kind == session.OutcomeNone {
		// Partial tally, vote stays open.
		return
	}

	if err := b.reg.UpdateCumulativeScore(res.Player1.ID, res.Player1.MatchScore); err != nil {
		b.log.Error("cumulative score update failed", zap.Int64("player_id", res.Player1.ID), zap.Error(err))
	}
	if err := b.reg.UpdateCumulativeScore(res.Player2.ID, res.Player2.MatchScore); err != nil {
		b.log.Error("cumulative score update failed", zap.Int64("player_id", res.Player2.ID), zap.Error(err))
	}

	b.say(ctx, groupID, outcomeText(
		res.Player1.Name, res.Player1.MatchScore,
		res.Player2.Name, res.Player2.MatchScore))
}

func (b *Bot) resolveAsyncPoll(ctx context.Context, p *transport.PollClosed, m *game.Match) {
	groupID, err := b.reg.GroupFromPoll(p.PollID)
	if err != nil {
		b.log.Warn("async poll without group route", zap.String("poll_id", p.PollID))
		return
	}

	if m.ExpiredAt(b.now(), b.opts.AsyncMatchTTL) {
		m.MarkExpired()
		b.reg.RemoveAsyncPoll(p.PollID)
		b.say(ctx, groupID, "This match expired")
		return
	}
	if err := m.Resolve(); err != nil {
		// Duplicate close for an already resolved match.
		return
	}
	b.reg.RemoveAsyncPoll(p.PollID)

	// Free-standing matches have no roster threshold; the first close
	// event settles them.
	if err := b.reg.UpdateCumulativeScore(m.Player1ID, p.VoteCounts[0]); err != nil {
		b.log.Error("cumulative score update failed", zap.Int64("player_id", m.Player1ID), zap.Error(err))
	}
	if err := b.reg.UpdateCumulativeScore(m.Player2ID, p.VoteCounts[1]); err != nil {
		b.log.Error("cumulative score update failed", zap.Int64("player_id", m.Player2ID), zap.Error(err))
	}

	b.say(ctx, groupID, outcomeText(m.Player1Name, p.VoteCounts[0], m.Player2Name, p.VoteCounts[1]))
}

func outcomeText(name1 string, votes1 int, name2 string, votes2 int) string {
	switch {
	case votes1 > votes2:
		return fmt.Sprintf("Winner is %s with the score of %d!\nLoser is %s with the score of %d :( Click /vote", name1, votes1, name2, votes2)
	case votes2 > votes1:
		return fmt.Sprintf("Winner is %s with the score of %d!\nLoser is %s with the score of %d :( Click /vote", name2, votes2, name1, votes1)
	default:
		return fmt.Sprintf("Draw. Score of %s is %d\nScore of %s is %d! Click /vote", name1, votes1, name2, votes2)
	}
}
