package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/example/foodshare/internal/logging"
	"github.com/example/foodshare/internal/models"
)

const defaultTelegramAPI = "https://api.telegram.org"

// TelegramService handles sending notifications to Telegram.
type TelegramService struct {
	botToken    string
	adminChatID string
	baseURL     string
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker[struct{}]
}

// TelegramOption customises a TelegramService.
type TelegramOption func(*TelegramService)

// WithTelegramAPI points the service at another Bot API host.
func WithTelegramAPI(baseURL string) TelegramOption {
	return func(s *TelegramService) { s.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) TelegramOption {
	return func(s *TelegramService) { s.client = c }
}

// NewTelegramService creates a new TelegramService. After five consecutive
// failures the breaker opens and sends fail fast for 30 seconds.
func NewTelegramService(botToken, adminChatID string, opts ...TelegramOption) *TelegramService {
	s := &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		baseURL:     defaultTelegramAPI,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "telegram",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("telegram circuit breaker state changed")
		},
	})
	return s
}

// Enabled reports whether both the token and the admin chat are configured.
func (s *TelegramService) Enabled() bool {
	return s.botToken != "" && s.adminChatID != ""
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" {
		logging.Debug().Msg("telegram bot token not configured")
		return nil
	}

	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.post(ctx, chatID, text)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("telegram unavailable: %w", err)
	}
	return err
}

func (s *TelegramService) post(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(telegramMessage{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s.adminChatID == "" {
		logging.Debug().Msg("telegram admin chat not configured")
		return nil
	}
	return s.SendMessage(ctx, s.adminChatID, text)
}

// NotifyNewListing tells the admin chat about a new listing.
func (s *TelegramService) NotifyNewListing(ctx context.Context, l *models.FoodListing, donor *models.User) error {
	if s.adminChatID == "" {
		return nil
	}

	donorName := l.Donor.String()
	if donor != nil {
		donorName = donor.Name
	}
	city := l.PickupAddress.City
	if city == "" {
		city = "-"
	}

	message := fmt.Sprintf(`<b>🥕 NEW FOOD LISTING</b>
<b>Title:</b> %s
<b>Category:</b> %s
<b>Quantity:</b> %s
<b>Donor:</b> %s
<b>City:</b> %s
<b>Available until:</b> %s
<b>Expires:</b> %s`,
		html.EscapeString(l.Title),
		l.Category,
		html.EscapeString(l.Quantity),
		html.EscapeString(donorName),
		html.EscapeString(city),
		l.AvailableUntil.Format(time.RFC3339),
		l.ExpiryDate.Format("2006-01-02"),
	)

	return s.SendToAdmin(ctx, strings.TrimSpace(message))
}
