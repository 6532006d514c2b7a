package channel

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v3"
)

// telegramChunkSize stays under the Bot API's 4096-character limit.
const telegramChunkSize = 4000

// TelegramConfig holds Telegram-specific configuration. An empty
// AllowedIDs list admits everyone.
type TelegramConfig struct {
	Token      string
	AllowedIDs []int64
}

// TelegramChannel bridges a Telegram bot into the channel interface.
// Long replies are split into API-sized chunks; senders outside the
// allowlist are dropped without a reply.
type TelegramChannel struct {
	cfg     TelegramConfig
	allowed map[int64]bool

	mu      sync.Mutex
	bot     *tele.Bot
	handler func(InboundMessage)
	running bool
}

func NewTelegramChannel(cfg TelegramConfig) *TelegramChannel {
	allowed := make(map[int64]bool, len(cfg.AllowedIDs))
	for _, id := range cfg.AllowedIDs {
		allowed[id] = true
	}
	return &TelegramChannel{cfg: cfg, allowed: allowed}
}

func (t *TelegramChannel) Name() string { return "telegram" }

func (t *TelegramChannel) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:  t.cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	bot.Handle(tele.OnText, t.onText)

	t.bot = bot
	t.running = true

	go bot.Start()
	go func() {
		<-ctx.Done()
		bot.Stop()
	}()
	return nil
}

// onText converts one incoming Telegram update into an InboundMessage.
func (t *TelegramChannel) onText(c tele.Context) error {
	sender := c.Sender()
	if !t.senderAllowed(sender.ID) {
		log.Printf("[telegram] dropping message from unauthorized user %d (%s)", sender.ID, sender.Username)
		return nil
	}

	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()
	if handler == nil {
		return nil
	}

	handler(InboundMessage{
		ChannelName: t.Name(),
		SenderID:    strconv.FormatInt(sender.ID, 10),
		SenderName:  strings.TrimSpace(sender.FirstName + " " + sender.LastName),
		ChatID:      strconv.FormatInt(c.Chat().ID, 10),
		Text:        c.Text(),
		Timestamp:   time.Now(),
	})
	return nil
}

func (t *TelegramChannel) senderAllowed(id int64) bool {
	return len(t.allowed) == 0 || t.allowed[id]
}

func (t *TelegramChannel) Stop(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bot != nil {
		t.bot.Stop()
	}
	t.running = false
	return nil
}

func (t *TelegramChannel) Send(_ context.Context, msg OutboundMessage) error {
	t.mu.Lock()
	bot := t.bot
	t.mu.Unlock()
	if bot == nil {
		return fmt.Errorf("telegram bot not started")
	}

	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID %q: %w", msg.ChatID, err)
	}

	recipient := &tele.Chat{ID: chatID}
	for _, chunk := range splitMessage(msg.Text, telegramChunkSize) {
		if _, err := bot.Send(recipient, chunk); err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
	}
	return nil
}

func (t *TelegramChannel) OnMessage(handler func(InboundMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

func (t *TelegramChannel) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// splitMessage cuts text into chunks of at most max bytes. Empty input
// yields no chunks.
func splitMessage(text string, max int) []string {
	if text == "" {
		return nil
	}
	var chunks []string
	for len(text) > max {
		chunks = append(chunks, text[:max])
		text = text[max:]
	}
	return append(chunks, text)
}
