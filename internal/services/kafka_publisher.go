package services

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/example/foodshare/internal/models"
)

// EventListingCreated is the event name carried by listing-created messages.
const EventListingCreated = "listing.created"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ListingEvent is the payload published for listing lifecycle events.
type ListingEvent struct {
	Event      string              `json:"event"`
	OccurredAt time.Time           `json:"occurredAt"`
	Listing    *models.FoodListing `json:"listing"`
}

// KafkaPublisher publishes listing events keyed by listing id.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
	}
	return &KafkaPublisher{writer: w}
}

// PublishListingCreated writes a listing.created event.
func (k *KafkaPublisher) PublishListingCreated(ctx context.Context, l *models.FoodListing) error {
	b, err := json.Marshal(ListingEvent{Event: EventListingCreated, OccurredAt: time.Now().UTC(), Listing: l})
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(l.ID.String()),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(EventListingCreated)},
		},
	})
}

func (k *KafkaPublisher) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
