// Package gateway is a development chat transport: each websocket
// connection acts as one chat (a group or a player's private chat),
// exchanging JSON frames with the dispatcher. It implements
// transport.Sender and feeds inbound frames into the update channel.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/quip-bot/internal/transport"
)

type clientMessage struct {
	Type string `json:"type"` // "message" | "poll_closed"

	Text      string `json:"text,omitempty"`
	ReplyTo   int    `json:"reply_to,omitempty"`
	ReplyText string `json:"reply_text,omitempty"`

	PollID      string `json:"poll_id,omitempty"`
	Votes       [2]int `json:"votes,omitempty"`
	TotalVoters int    `json:"total_voters,omitempty"`
}

type serverMessage struct {
	Type string `json:"type"` // "message" | "poll" | "error"

	MessageID int    `json:"message_id,omitempty"`
	Text      string `json:"text,omitempty"`

	PollID   string   `json:"poll_id,omitempty"`
	Question string   `json:"question,omitempty"`
	Options  []string `json:"options,omitempty"`

	Error string `json:"error,omitempty"`
}

type Gateway struct {
	log         *zap.Logger
	botUsername string
	updates     chan<- transport.Update

	mu        sync.Mutex
	chats     map[int64]chan serverMessage
	nextMsgID map[int64]int
}

func New(log *zap.Logger, botUsername string, updates chan<- transport.Update) *Gateway {
	return &Gateway{
		log:         log,
		botUsername: botUsername,
		updates:     updates,
		chats:       make(map[int64]chan serverMessage),
		nextMsgID:   make(map[int64]int),
	}
}

// SendMessage allocates the chat's next message id and pushes the frame
// to the connected client, if any. An offline chat still consumes ids so
// slot correlation stays stable.
func (g *Gateway) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	id := g.nextID(chatID)
	g.deliver(chatID, serverMessage{Type: "message", MessageID: id, Text: text})
	return id, nil
}

func (g *Gateway) OpenPoll(ctx context.Context, chatID int64, question, option1, option2 string) (string, int, error) {
	id := g.nextID(chatID)
	pollID := uuid.NewString()
	g.deliver(chatID, serverMessage{
		Type:      "poll",
		MessageID: id,
		PollID:    pollID,
		Question:  question,
		Options:   []string{option1, option2},
	})
	return pollID, id, nil
}

func (g *Gateway) nextID(chatID int64) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextMsgID[chatID]++
	return g.nextMsgID[chatID]
}

func (g *Gateway) deliver(chatID int64, msg serverMessage) {
	g.mu.Lock()
	ch := g.chats[chatID]
	g.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- msg:
	default:
		// Slow client; frame dropped, the connection stays up.
		g.log.Warn("outbox full, frame dropped", zap.Int64("chat_id", chatID))
	}
}

func (g *Gateway) attach(chatID int64) chan serverMessage {
	out := make(chan serverMessage, 16)
	g.mu.Lock()
	g.chats[chatID] = out
	g.mu.Unlock()
	return out
}

func (g *Gateway) detach(chatID int64, out chan serverMessage) {
	g.mu.Lock()
	if g.chats[chatID] == out {
		delete(g.chats, chatID)
	}
	g.mu.Unlock()
}

// handleWS speaks the chat protocol over one websocket connection.
// Query params identify the chat: chat_id, kind=group|private, and for
// message senders user_id/user_name (plus title for groups).
func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(r.URL.Query().Get("chat_id"), 10, 64)
	if err != nil {
		http.Error(w, "missing or bad chat_id", http.StatusBadRequest)
		return
	}
	kind := r.URL.Query().Get("kind")
	if kind != "group" && kind != "private" {
		http.Error(w, "kind must be group or private", http.StatusBadRequest)
		return
	}
	userID, _ := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if kind == "private" && userID == 0 {
		userID = chatID
	}
	userName := r.URL.Query().Get("user_name")
	title := r.URL.Query().Get("title")

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	out := g.attach(chatID)
	defer g.detach(chatID, out)

	writeCtx, writeCancel := context.WithCancel(r.Context())
	defer writeCancel()
	go func() {
		for {
			select {
			case <-writeCtx.Done():
				return
			case msg := <-out:
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}
	}()

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			return
		}

		var cm clientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			payload, _ := json.Marshal(serverMessage{Type: "error", Error: "bad json"})
			_ = conn.Write(r.Context(), websocket.MessageText, payload)
			continue
		}

		u, ok := g.toUpdate(cm, chatID, kind, userID, userName, title)
		if !ok {
			continue
		}
		g.updates <- u
	}
}

// toUpdate normalizes one inbound frame into a core update. Command
// alias stripping ("/start@bot") happens here; the core only ever sees
// the bare verb.
func (g *Gateway) toUpdate(cm clientMessage, chatID int64, kind string, userID int64, userName, title string) (transport.Update, bool) {
	switch cm.Type {
	case "poll_closed":
		if cm.PollID == "" {
			return transport.Update{}, false
		}
		return transport.Update{Poll: &transport.PollClosed{
			PollID:      cm.PollID,
			VoteCounts:  cm.Votes,
			TotalVoters: cm.TotalVoters,
		}}, true

	case "message":
		if kind == "group" {
			cmd, args, ok := transport.ParseCommand(cm.Text, g.botUsername)
			if !ok {
				// Plain group chatter is not the bot's business.
				return transport.Update{}, false
			}
			return transport.Update{Group: &transport.GroupCommand{
				GroupID:    chatID,
				GroupTitle: title,
				SenderID:   userID,
				SenderName: userName,
				Command:    cmd,
				Args:       args,
			}}, true
		}

		msg := &transport.PrivateMessage{
			ChatID:     chatID,
			SenderID:   userID,
			SenderName: userName,
			Text:       cm.Text,
		}
		if cm.ReplyTo > 0 {
			msg.ReplyTo = &transport.MessageRef{ID: cm.ReplyTo, Text: cm.ReplyText}
		}
		return transport.Update{Private: msg}, true
	}
	return transport.Update{}, false
}
