// Package chat implements the canned-response reply engine and the per-day
// message quota tied to the user's subscription plan.
package chat

import (
	"context"
	"errors"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"loquia.org/internal/ids"
)

var ErrDailyLimitReached = errors.New("chat: daily message limit reached")

// Message is a stored chat line, either user-authored or bot-authored.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Sender    string    `json:"sender"` // "user" or "bot"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Plan message quotas per calendar day (UTC). Zero means unlimited.
const (
	freeDailyLimit  = 20
	basicDailyLimit = 100
)

// DailyLimit maps a plan id to its message allowance. Users without an active
// subscription get the free tier.
func DailyLimit(planID string) int {
	switch planID {
	case "basic":
		return basicDailyLimit
	case "pro", "enterprise":
		return 0
	default:
		return freeDailyLimit
	}
}

type pattern struct {
	re      *regexp.Regexp
	replies []string
}

var patterns = []pattern{
	{regexp.MustCompile(`(?i)^(hi|hello|hey|greetings|howdy)`), []string{
		"Hello! How can I help you today?",
		"Hi there! What can I do for you?",
		"Greetings! How may I assist you?",
	}},
	{regexp.MustCompile(`(?i)^(bye|goodbye|see you|farewell)`), []string{
		"Goodbye! Have a great day!",
		"See you later! Feel free to come back if you have more questions.",
		"Bye! It was nice chatting with you.",
	}},
	{regexp.MustCompile(`(?i)^(thanks|thank you|appreciate it)`), []string{
		"You're welcome!",
		"Happy to help!",
		"Anytime! Is there anything else you need?",
	}},
	{regexp.MustCompile(`(?i)who are you|what are you|tell me about yourself|about you`), []string{
		"I'm a simple chatbot created to assist with basic questions and conversations.",
		"I'm your friendly AI assistant, here to help with information and tasks.",
		"I'm a chatbot designed to provide helpful responses to your questions.",
	}},
	{regexp.MustCompile(`(?i)help|assist|support`), []string{
		"I can help with general information, answer questions, or just chat. What do you need assistance with?",
		"I'm here to assist you! You can ask me questions or just have a conversation.",
		"How can I help you today? I can provide information or just chat with you.",
	}},
	{regexp.MustCompile(`(?i)weather|temperature|forecast|rain|sunny`), []string{
		"I'm sorry, I don't have access to real-time weather data. You might want to check a weather service for that information.",
		"I can't check the weather for you, but a quick online search should give you that information.",
		"I don't have weather capabilities, but there are many great weather apps and websites available.",
	}},
	{regexp.MustCompile(`(?i)joke|funny|make me laugh`), []string{
		"Why don't scientists trust atoms? Because they make up everything!",
		"What did one wall say to the other wall? I'll meet you at the corner!",
		"Why did the scarecrow win an award? Because he was outstanding in his field!",
		"How does a penguin build its house? Igloos it together!",
	}},
}

var defaultReplies = []string{
	"I'm not sure I understand. Could you rephrase that?",
	"Interesting. Tell me more about that.",
	"I'm still learning. Could you elaborate on that?",
	"I don't have information about that yet. Is there something else I can help with?",
}

// Reply selects a canned response for the input. The choice within a matched
// pattern is random.
func Reply(input string) string {
	return replyWith(input, rand.Intn)
}

func replyWith(input string, pick func(int) int) string {
	trimmed := strings.TrimSpace(input)
	for _, p := range patterns {
		if p.re.MatchString(trimmed) {
			return p.replies[pick(len(p.replies))]
		}
	}
	return defaultReplies[pick(len(defaultReplies))]
}

// Engine tracks message history and enforces the per-day quota.
type Engine struct {
	mu       sync.Mutex
	messages map[string][]Message // by user id
	counts   map[string]dayCount
	now      func() time.Time
	pick     func(int) int
}

type dayCount struct {
	day time.Time
	n   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) {
		if fn != nil {
			e.now = fn
		}
	}
}

// WithPicker overrides the random reply selector (useful for tests).
func WithPicker(fn func(int) int) Option {
	return func(e *Engine) {
		if fn != nil {
			e.pick = fn
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		messages: make(map[string][]Message),
		counts:   make(map[string]dayCount),
		now:      time.Now,
		pick:     rand.Intn,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Send records the user's message, enforces the plan quota, and returns the
// bot's reply. dailyLimit <= 0 means unlimited.
func (e *Engine) Send(ctx context.Context, userID, text string, dailyLimit int) (Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now().UTC()
	day := now.Truncate(24 * time.Hour)

	cnt := e.counts[userID]
	if !cnt.day.Equal(day) {
		cnt = dayCount{day: day}
	}
	if dailyLimit > 0 && cnt.n >= dailyLimit {
		return Message{}, ErrDailyLimitReached
	}
	cnt.n++
	e.counts[userID] = cnt

	e.messages[userID] = append(e.messages[userID], Message{
		ID:        ids.New(),
		UserID:    userID,
		Sender:    "user",
		Text:      text,
		Timestamp: now,
	})
	bot := Message{
		ID:        ids.New(),
		UserID:    userID,
		Sender:    "bot",
		Text:      replyWith(text, e.pick),
		Timestamp: now,
	}
	e.messages[userID] = append(e.messages[userID], bot)
	return bot, nil
}

// History returns the user's stored messages, oldest first.
func (e *Engine) History(ctx context.Context, userID string) []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Message, len(e.messages[userID]))
	copy(out, e.messages[userID])
	return out
}

// SentToday reports how many user messages count against today's quota.
func (e *Engine) SentToday(userID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	cnt := e.counts[userID]
	if !cnt.day.Equal(e.now().UTC().Truncate(24 * time.Hour)) {
		return 0
	}
	return cnt.n
}
