package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"taskchat/internal/apperr"
	"taskchat/internal/database"
	"taskchat/internal/models"
)

type failingStore struct{}

func (failingStore) CreateMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	return nil, apperr.Store("create message", errors.New("connection refused"))
}

type panickingStore struct{}

func (panickingStore) CreateMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	panic("boom")
}

func chatFrame(t *testing.T, f models.ChatSendFrame) []byte {
	t.Helper()
	f.Type = models.FrameChatMessage
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func decodeEvent(t *testing.T, data []byte) models.ChatEventFrame {
	t.Helper()
	var ev models.ChatEventFrame
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return ev
}

func TestRouter_DirectMessageFanOut(t *testing.T) {
	r := NewRegistry()
	router := NewRouter(r, database.NewMemoryDB())
	alice1 := newTestClient(t, r, 1, "alice")
	alice2 := newTestClient(t, r, 1, "alice")
	bob := newTestClient(t, r, 2, "bob")
	carol := newTestClient(t, r, 3, "carol")

	router.HandleFrame(alice1, chatFrame(t, models.ChatSendFrame{
		TargetID: 2, MessageType: models.MessageTypeDirect, Content: "hi bob",
	}))

	for _, c := range []*Client{alice1, alice2, bob} {
		frames := drain(c)
		if len(frames) != 1 {
			t.Fatalf("connection of user %d got %d frames, want 1", c.Identity.UserID, len(frames))
		}
		ev := decodeEvent(t, frames[0])
		if ev.Type != models.FrameChatMessage || ev.ID == 0 || ev.Content != "hi bob" ||
			ev.SenderID != 1 || ev.SenderUsername != "alice" || ev.TargetID != 2 || ev.Timestamp == "" {
			t.Errorf("unexpected event %+v", ev)
		}
	}
	if frames := drain(carol); len(frames) != 0 {
		t.Errorf("bystander received %d frames", len(frames))
	}
}

func TestRouter_DirectMessageToSelfDeliveredOnce(t *testing.T) {
	r := NewRegistry()
	router := NewRouter(r, database.NewMemoryDB())
	alice := newTestClient(t, r, 1, "alice")

	router.HandleFrame(alice, chatFrame(t, models.ChatSendFrame{
		TargetID: 1, MessageType: models.MessageTypeDirect, Content: "note to self",
	}))
	if got := len(drain(alice)); got != 1 {
		t.Fatalf("self message delivered %d times, want 1", got)
	}
}

func TestRouter_ChannelMessageReachesEveryone(t *testing.T) {
	r := NewRegistry()
	router := NewRouter(r, database.NewMemoryDB())
	clients := []*Client{
		newTestClient(t, r, 1, "alice"),
		newTestClient(t, r, 2, "bob"),
		newTestClient(t, r, 3, "carol"),
	}

	router.HandleFrame(clients[0], chatFrame(t, models.ChatSendFrame{
		TargetID: 7, MessageType: models.MessageTypeChannel, Content: "standup in 5",
	}))
	for _, c := range clients {
		if got := len(drain(c)); got != 1 {
			t.Errorf("user %d got %d frames, want 1", c.Identity.UserID, got)
		}
	}
}

func TestRouter_ConnectionIdentityOverridesClaimedSender(t *testing.T) {
	r := NewRegistry()
	router := NewRouter(r, database.NewMemoryDB())
	alice := newTestClient(t, r, 1, "alice")
	bob := newTestClient(t, r, 2, "bob")

	router.HandleFrame(alice, chatFrame(t, models.ChatSendFrame{
		TargetID: 2, MessageType: models.MessageTypeDirect, Content: "hi",
		SenderID: 2, SenderUsername: "bob",
	}))
	ev := decodeEvent(t, drain(bob)[0])
	if ev.SenderID != 1 || ev.SenderUsername != "alice" {
		t.Fatalf("sender = %d/%s, want 1/alice", ev.SenderID, ev.SenderUsername)
	}
}

func TestRouter_InvalidChatFrameGetsErrorFrame(t *testing.T) {
	tests := map[string]models.ChatSendFrame{
		"blank content": {TargetID: 2, MessageType: models.MessageTypeDirect, Content: "   "},
		"bad type":      {TargetID: 2, MessageType: "broadcast", Content: "hi"},
		"no target":     {TargetID: 0, MessageType: models.MessageTypeDirect, Content: "hi"},
	}
	for name, frame := range tests {
		t.Run(name, func(t *testing.T) {
			r := NewRegistry()
			router := NewRouter(r, database.NewMemoryDB())
			alice := newTestClient(t, r, 1, "alice")
			bob := newTestClient(t, r, 2, "bob")

			router.HandleFrame(alice, chatFrame(t, frame))

			frames := drain(alice)
			if len(frames) != 1 {
				t.Fatalf("sender got %d frames, want 1 error frame", len(frames))
			}
			var ef models.ErrorFrame
			if err := json.Unmarshal(frames[0], &ef); err != nil || ef.Type != models.FrameError || ef.Error == "" {
				t.Fatalf("unexpected error frame %s (%v)", frames[0], err)
			}
			if got := len(drain(bob)); got != 0 {
				t.Errorf("recipient got %d frames for an invalid message", got)
			}
		})
	}
}

func TestRouter_StoreFailureNotifiesSenderOnly(t *testing.T) {
	r := NewRegistry()
	router := NewRouter(r, failingStore{})
	alice := newTestClient(t, r, 1, "alice")
	bob := newTestClient(t, r, 2, "bob")

	router.HandleFrame(alice, chatFrame(t, models.ChatSendFrame{
		TargetID: 2, MessageType: models.MessageTypeDirect, Content: "hi",
	}))

	frames := drain(alice)
	if len(frames) != 1 {
		t.Fatalf("sender got %d frames, want 1", len(frames))
	}
	var ef models.ErrorFrame
	json.Unmarshal(frames[0], &ef)
	if ef.Type != models.FrameError {
		t.Errorf("frame type = %q, want error", ef.Type)
	}
	if got := len(drain(bob)); got != 0 {
		t.Errorf("recipient got %d frames after a failed save", got)
	}
}

func TestRouter_DropsMalformedAndUnknownFrames(t *testing.T) {
	r := NewRegistry()
	router := NewRouter(r, database.NewMemoryDB())
	alice := newTestClient(t, r, 1, "alice")

	for _, raw := range []string{`not json`, `{"type":"TYPING"}`, `{"type":"CHAT_MESSAGE","targetId":"x"}`} {
		router.HandleFrame(alice, []byte(raw))
	}
	if got := len(drain(alice)); got != 0 {
		t.Fatalf("dropped frames produced %d replies", got)
	}
}

func TestRouter_RecoversFromPanic(t *testing.T) {
	r := NewRegistry()
	router := NewRouter(r, panickingStore{})
	alice := newTestClient(t, r, 1, "alice")

	router.HandleFrame(alice, chatFrame(t, models.ChatSendFrame{
		TargetID: 1, MessageType: models.MessageTypeChannel, Content: "hi",
	}))
	if alice.Closed() {
		t.Fatal("panic in a frame handler closed the connection")
	}
}
