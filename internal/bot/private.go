package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/quip-bot/internal/game"
	"github.com/DoyleJ11/quip-bot/internal/session"
	"github.com/DoyleJ11/quip-bot/internal/transport"
)

func (b *Bot) handlePrivateMessage(ctx context.Context, msg *transport.PrivateMessage) {
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(strings.ToLower(text), "/getprompt") {
		b.handleGetPrompt(ctx, msg.ChatID)
		return
	}
	if after, ok := strings.CutPrefix(text, "ex "); ok {
		b.handleShell(ctx, msg.ChatID, after)
		return
	}
	if msg.ReplyTo != nil {
		b.handleAnswer(ctx, msg)
	}
}

// handleGetPrompt serves the free-standing prompt flow: prefer a queued
// prompt still waiting for its second responder (from someone else), fall
// back to a fresh random draw.
func (b *Bot) handleGetPrompt(ctx context.Context, chatID int64) {
	prompt, ok := b.reg.OfferAsyncPrompt(chatID)
	if !ok {
		var err error
		prompt, err = b.prompts.GetPrompt(b.opts.DefaultLanguage)
		if err != nil {
			b.log.Error("prompt draw failed", zap.Error(err))
			b.say(ctx, chatID, "No prompts available right now")
			return
		}
	}
	b.say(ctx, chatID, prompt)
}

// handleAnswer correlates a reply to its prompt. A reply matching a
// pending session slot is a round answer; anything else is treated as an
// answer to a free-standing prompt and goes through the rendezvous.
func (b *Bot) handleAnswer(ctx context.Context, msg *transport.PrivateMessage) {
	reply := msg.ReplyTo

	if s, err := b.reg.SessionByChat(msg.ChatID); err == nil {
		slot := session.SlotKey{ChatID: msg.ChatID, MessageID: reply.ID}
		m, err := s.RecordResponse(slot, msg.SenderID, msg.Text)
		switch {
		case err == nil:
			b.say(ctx, msg.ChatID, fmt.Sprintf("Prompt: %s, Your answer: %s", reply.Text, msg.Text))
			return
		case errors.Is(err, game.ErrAlreadyAnswered):
			prev, _ := m.ResponseOf(msg.SenderID)
			b.say(ctx, msg.ChatID, fmt.Sprintf("You already answered to: %s, Your answer was %s", reply.Text, prev))
			return
		case errors.Is(err, session.ErrMatchNotFound):
			// Not one of this round's prompts; try the free-standing path.
		default:
			b.log.Warn("answer rejected", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
			return
		}
	}

	// Registration precedes every scoring path, async included.
	b.reg.RegisterPlayer(msg.SenderID, msg.SenderName)

	m, err := b.reg.PairPromptResponse(reply.Text, msg.SenderID, msg.SenderName, msg.Text)
	switch {
	case err == nil:
		b.say(ctx, msg.ChatID, fmt.Sprintf("(Async) Prompt: %s, Your answer: %s", reply.Text, msg.Text))
	case errors.Is(err, game.ErrAlreadyAnswered):
		prev, _ := m.ResponseOf(msg.SenderID)
		b.say(ctx, msg.ChatID, fmt.Sprintf("You already answered to: %s, Your answer was %s", reply.Text, prev))
	case errors.Is(err, game.ErrMatchFull):
		b.say(ctx, msg.ChatID, "This prompt already has two answers")
	default:
		b.log.Warn("pairing failed", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
	}
}
