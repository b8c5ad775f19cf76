package gateway

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/DoyleJ11/quip-bot/internal/transport"
)

func newTestGateway() *Gateway {
	return New(zap.NewNop(), "quip_bot", make(chan transport.Update, 1))
}

func TestMessageIDsPerChat(t *testing.T) {
	g := newTestGateway()

	// Ids advance per chat even with nobody connected.
	id, err := g.SendMessage(context.Background(), 1, "hello")
	if err != nil || id != 1 {
		t.Fatalf("first send: id %d, err %v", id, err)
	}
	id, _ = g.SendMessage(context.Background(), 1, "again")
	if id != 2 {
		t.Fatalf("second send: want 2, got %d", id)
	}
	id, _ = g.SendMessage(context.Background(), 2, "other chat")
	if id != 1 {
		t.Fatalf("other chat: want 1, got %d", id)
	}
}

func TestOpenPoll(t *testing.T) {
	g := newTestGateway()
	out := g.attach(100)
	defer g.detach(100, out)

	pollID, msgID, err := g.OpenPoll(context.Background(), 100, "question?", "a", "b")
	if err != nil {
		t.Fatalf("open poll: %v", err)
	}
	if pollID == "" || msgID != 1 {
		t.Fatalf("poll id %q, msg id %d", pollID, msgID)
	}

	frame := <-out
	if frame.Type != "poll" || frame.PollID != pollID || frame.Question != "question?" {
		t.Fatalf("poll frame: %+v", frame)
	}
	if len(frame.Options) != 2 || frame.Options[0] != "a" || frame.Options[1] != "b" {
		t.Fatalf("poll options: %v", frame.Options)
	}
}

func TestDeliver_DropsWhenOutboxFull(t *testing.T) {
	g := newTestGateway()
	out := g.attach(1)
	defer g.detach(1, out)

	for i := 0; i < cap(out)+5; i++ {
		if _, err := g.SendMessage(context.Background(), 1, "flood"); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if len(out) != cap(out) {
		t.Fatalf("outbox: want %d buffered, got %d", cap(out), len(out))
	}
}

func TestDetach_OnlyRemovesOwnChannel(t *testing.T) {
	g := newTestGateway()
	old := g.attach(1)
	replacement := g.attach(1)

	// A stale detach from the replaced connection must not unhook the
	// new one.
	g.detach(1, old)
	g.SendMessage(context.Background(), 1, "still routed")
	if len(replacement) != 1 {
		t.Fatalf("replacement channel did not receive the frame")
	}

	g.detach(1, replacement)
	g.SendMessage(context.Background(), 1, "gone")
	if len(replacement) != 1 {
		t.Fatalf("frame delivered after detach")
	}
}

func TestToUpdate(t *testing.T) {
	g := newTestGateway()

	u, ok := g.toUpdate(clientMessage{Type: "message", Text: "/start@quip_bot"}, 100, "group", 1, "Alice", "testers")
	if !ok || u.Group == nil {
		t.Fatalf("group command not converted: %+v", u)
	}
	if u.Group.Command != "/start" || u.Group.GroupID != 100 || u.Group.SenderName != "Alice" || u.Group.GroupTitle != "testers" {
		t.Fatalf("group command fields: %+v", u.Group)
	}

	// Plain group chatter never reaches the dispatcher.
	if _, ok := g.toUpdate(clientMessage{Type: "message", Text: "lol nice one"}, 100, "group", 1, "Alice", ""); ok {
		t.Fatalf("chatter converted to an update")
	}

	u, ok = g.toUpdate(clientMessage{Type: "message", Text: "pizza", ReplyTo: 7, ReplyText: "best food?"}, 1, "private", 1, "Alice", "")
	if !ok || u.Private == nil {
		t.Fatalf("private message not converted: %+v", u)
	}
	if u.Private.ReplyTo == nil || u.Private.ReplyTo.ID != 7 || u.Private.ReplyTo.Text != "best food?" {
		t.Fatalf("reply reference: %+v", u.Private.ReplyTo)
	}

	u, ok = g.toUpdate(clientMessage{Type: "poll_closed", PollID: "p1", Votes: [2]int{3, 1}, TotalVoters: 4}, 100, "group", 0, "", "")
	if !ok || u.Poll == nil {
		t.Fatalf("poll close not converted: %+v", u)
	}
	if u.Poll.PollID != "p1" || u.Poll.VoteCounts != [2]int{3, 1} || u.Poll.TotalVoters != 4 {
		t.Fatalf("poll fields: %+v", u.Poll)
	}

	if _, ok := g.toUpdate(clientMessage{Type: "poll_closed"}, 100, "group", 0, "", ""); ok {
		t.Fatalf("poll close without id converted")
	}
}
