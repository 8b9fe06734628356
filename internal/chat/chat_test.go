package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func firstPick(int) int { return 0 }

func TestReplyPatterns(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"hello there", "Hello! How can I help you today?"},
		{"  hey", "Hello! How can I help you today?"},
		{"goodbye", "Goodbye! Have a great day!"},
		{"thanks a lot", "You're welcome!"},
		{"who are you?", "I'm a simple chatbot created to assist with basic questions and conversations."},
		{"I need help with billing", "I can help with general information, answer questions, or just chat. What do you need assistance with?"},
		{"what's the weather like", "I'm sorry, I don't have access to real-time weather data. You might want to check a weather service for that information."},
		{"tell me a joke", "Why don't scientists trust atoms? Because they make up everything!"},
		{"quantum entanglement", "I'm not sure I understand. Could you rephrase that?"},
	}
	for _, tc := range tests {
		if got := replyWith(tc.input, firstPick); got != tc.want {
			t.Fatalf("replyWith(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestGreetingMustAnchor(t *testing.T) {
	// "hi" mid-sentence is not a greeting.
	got := replyWith("this is a test", firstPick)
	if strings.HasPrefix(got, "Hello!") {
		t.Fatalf("mid-word hi matched greeting: %q", got)
	}
}

func TestSendRecordsBothSides(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(WithPicker(firstPick))

	bot, err := e.Send(ctx, "u1", "hello", 0)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if bot.Sender != "bot" {
		t.Fatalf("reply sender = %s", bot.Sender)
	}

	hist := e.History(ctx, "u1")
	if len(hist) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(hist))
	}
	if hist[0].Sender != "user" || hist[0].Text != "hello" {
		t.Fatalf("first message = %+v", hist[0])
	}
	if hist[1].ID == hist[0].ID {
		t.Fatalf("messages must get distinct ids")
	}
}

func TestDailyLimit(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	e := NewEngine(WithPicker(firstPick), WithClock(func() time.Time { return now }))

	for i := 0; i < 3; i++ {
		if _, err := e.Send(ctx, "u1", "hello", 3); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
	}
	if _, err := e.Send(ctx, "u1", "hello", 3); !errors.Is(err, ErrDailyLimitReached) {
		t.Fatalf("expected ErrDailyLimitReached, got %v", err)
	}
	if got := e.SentToday("u1"); got != 3 {
		t.Fatalf("SentToday = %d", got)
	}

	// The quota is per user.
	if _, err := e.Send(ctx, "u2", "hello", 3); err != nil {
		t.Fatalf("other user blocked: %v", err)
	}

	// A new day resets the counter.
	now = now.AddDate(0, 0, 1)
	if _, err := e.Send(ctx, "u1", "hello", 3); err != nil {
		t.Fatalf("next day: %v", err)
	}
	if got := e.SentToday("u1"); got != 1 {
		t.Fatalf("SentToday after rollover = %d", got)
	}
}

func TestDailyLimitByPlan(t *testing.T) {
	tests := []struct {
		planID string
		want   int
	}{
		{"", 20},
		{"unknown", 20},
		{"basic", 100},
		{"pro", 0},
		{"enterprise", 0},
	}
	for _, tc := range tests {
		if got := DailyLimit(tc.planID); got != tc.want {
			t.Fatalf("DailyLimit(%q) = %d, want %d", tc.planID, got, tc.want)
		}
	}
}
