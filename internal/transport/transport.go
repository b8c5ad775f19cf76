// Package transport defines the boundary between the game core and the
// chat layer: the inbound events the dispatcher consumes and the outbound
// Sender it produces to. The core never sees transport specifics like
// bot-username command suffixes; gateways normalize those.
package transport

import (
	"context"
	"strings"
)

// GroupCommand is a slash command issued in a group chat.
type GroupCommand struct {
	GroupID    int64
	GroupTitle string
	SenderID   int64
	SenderName string
	// Command is the normalized verb including the leading slash, with
	// any @botname address suffix already stripped.
	Command string
	Args    string
}

// MessageRef points at an earlier message in the same chat.
type MessageRef struct {
	ID   int
	Text string
}

// PrivateMessage is a direct message to the bot. ReplyTo is set when the
// player answered a specific earlier message, which is how responses
// correlate back to their prompt delivery.
type PrivateMessage struct {
	ChatID     int64
	SenderID   int64
	SenderName string
	Text       string
	ReplyTo    *MessageRef
}

// PollClosed reports the tally of a two-option poll. It carries no chat
// or group reference; correlation runs through the poll id alone.
type PollClosed struct {
	PollID      string
	VoteCounts  [2]int
	TotalVoters int
}

// Update is one inbound event. Exactly one field is set.
type Update struct {
	Group   *GroupCommand
	Private *PrivateMessage
	Poll    *PollClosed
}

// Sender is the outbound half of the transport. Calls are fire-and-forget
// from the state machine's point of view: return values are used only to
// establish correlation keys (message and poll ids), never awaited as
// delivery acknowledgements.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) (messageID int, err error)
	OpenPoll(ctx context.Context, chatID int64, question, option1, option2 string) (pollID string, messageID int, err error)
}

// ParseCommand normalizes a raw chat line into a command verb and its
// arguments. Address suffixes ("/start@some_bot") are stripped when they
// name this bot; commands addressed to another bot are not ours.
func ParseCommand(text, botUsername string) (cmd, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	verb := text
	if i := strings.IndexAny(text, " \t"); i >= 0 {
		verb, args = text[:i], strings.TrimSpace(text[i+1:])
	}
	if i := strings.Index(verb, "@"); i >= 0 {
		if !strings.EqualFold(verb[i+1:], botUsername) {
			return "", "", false
		}
		verb = verb[:i]
	}
	return strings.ToLower(verb), args, true
}
