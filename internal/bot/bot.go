// Package bot is the update dispatcher: the single goroutine that owns
// all game state. Every inbound event is applied to completion before
// the next one, so the registry, sessions and matches need no locking.
package bot

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/quip-bot/internal/prompts"
	"github.com/DoyleJ11/quip-bot/internal/registry"
	"github.com/DoyleJ11/quip-bot/internal/transport"
)

// Options tune dispatcher behavior. Zero values fall back to defaults.
type Options struct {
	// AsyncMatchTTL is the voting window for free-standing matches.
	AsyncMatchTTL time.Duration
	// DefaultLanguage is used for /getprompt draws outside any session.
	DefaultLanguage string
	// Shell, when set, backs the private "ex" passthrough.
	Shell ShellRunner
	// Now is the clock; tests pin it to drive expiry.
	Now func() time.Time
	// Rand backs /getrandom draws; tests seed it.
	Rand *rand.Rand
}

type Bot struct {
	reg     *registry.Registry
	prompts prompts.Source
	sender  transport.Sender
	log     *zap.Logger
	opts    Options
	rng     *rand.Rand

	startedAt time.Time
}

func New(reg *registry.Registry, src prompts.Source, sender transport.Sender, log *zap.Logger, opts Options) *Bot {
	if opts.AsyncMatchTTL <= 0 {
		opts.AsyncMatchTTL = 24 * time.Hour
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "ru"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Bot{
		reg:       reg,
		prompts:   src,
		sender:    sender,
		log:       log,
		opts:      opts,
		rng:       opts.Rand,
		startedAt: opts.Now(),
	}
}

// Run drains the update channel until the context is cancelled. This is
// the only goroutine that may touch game state.
func (b *Bot) Run(ctx context.Context, updates <-chan transport.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			b.Handle(ctx, u)
		}
	}
}

// Handle applies one inbound event. Exported so tests can dispatch
// directly without the run loop.
func (b *Bot) Handle(ctx context.Context, u transport.Update) {
	switch {
	case u.Poll != nil:
		b.handlePollClosed(ctx, u.Poll)
	case u.Group != nil:
		b.handleGroupCommand(ctx, u.Group)
	case u.Private != nil:
		b.handlePrivateMessage(ctx, u.Private)
	default:
		b.log.Warn("empty update")
	}
}

func (b *Bot) now() time.Time { return b.opts.Now() }

// say sends a plain text reply and returns the message id, 0 on failure.
// Delivery failures are logged, never propagated: the state machine does
// not await outbound results.
func (b *Bot) say(ctx context.Context, chatID int64, text string) int {
	id, err := b.sender.SendMessage(ctx, chatID, text)
	if err != nil {
		b.log.Error("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return 0
	}
	return id
}
