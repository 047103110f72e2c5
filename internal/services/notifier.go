package services

import (
	"context"
	"sync"
	"time"

	"github.com/example/foodshare/internal/logging"
	"github.com/example/foodshare/internal/models"
	"github.com/example/foodshare/internal/observability"
	"github.com/example/foodshare/internal/realtime"
)

const newListingMessage = "New food listing available!"

// Broadcaster delivers a message to every realtime subscriber without blocking.
type Broadcaster interface {
	Broadcast(msgType string, data interface{}) bool
}

// EventPublisher forwards listing events to an event stream.
type EventPublisher interface {
	PublishListingCreated(ctx context.Context, l *models.FoodListing) error
}

// AdminNotifier forwards listing events to operators.
type AdminNotifier interface {
	NotifyNewListing(ctx context.Context, l *models.FoodListing, donor *models.User) error
}

// ListingNotifier is told about newly created listings.
type ListingNotifier interface {
	ListingCreated(l *models.FoodListing, donor *models.User)
}

// NewListingPayload is the data of a new-listing realtime message.
type NewListingPayload struct {
	Message string              `json:"message"`
	Listing *models.FoodListing `json:"listing"`
}

// Notifier fans listing events out to the configured sinks. Sinks are
// best-effort: failures are logged and counted, never returned.
type Notifier struct {
	hub     Broadcaster
	events  EventPublisher
	admin   AdminNotifier
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewNotifier creates a notifier. Any sink may be nil.
func NewNotifier(hub Broadcaster, events EventPublisher, admin AdminNotifier) *Notifier {
	return &Notifier{hub: hub, events: events, admin: admin, timeout: 10 * time.Second}
}

// ListingCreated announces l. It returns once the realtime broadcast is
// queued; the other sinks run in the background.
func (n *Notifier) ListingCreated(l *models.FoodListing, donor *models.User) {
	if n.hub != nil {
		payload := NewListingPayload{Message: newListingMessage, Listing: l}
		if n.hub.Broadcast(realtime.MessageTypeNewListing, payload) {
			observability.NotificationSent.WithLabelValues("realtime", "ok").Inc()
		} else {
			observability.NotificationSent.WithLabelValues("realtime", "dropped").Inc()
			logging.Warn().Str("listing_id", l.ID.String()).Msg("realtime broadcast dropped")
		}
	}

	if n.events != nil {
		n.async("kafka", l, func(ctx context.Context) error {
			return n.events.PublishListingCreated(ctx, l)
		})
	}
	if n.admin != nil {
		n.async("telegram", l, func(ctx context.Context) error {
			return n.admin.NotifyNewListing(ctx, l, donor)
		})
	}
}

func (n *Notifier) async(sink string, l *models.FoodListing, send func(ctx context.Context) error) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := send(ctx); err != nil {
			observability.NotificationSent.WithLabelValues(sink, "error").Inc()
			logging.Error().Err(err).Str("sink", sink).Str("listing_id", l.ID.String()).
				Msg("listing notification failed")
			return
		}
		observability.NotificationSent.WithLabelValues(sink, "ok").Inc()
	}()
}

// Wait blocks until background sends finish.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
