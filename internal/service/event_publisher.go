package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/unnisamohammad/cinehub-backend/internal/domain"
	"github.com/unnisamohammad/cinehub-backend/pkg/kafka"
)

// Booking event types
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingExpired   = "booking.expired"
	EventPaymentCaptured  = "payment.captured"
	EventPaymentFailed    = "payment.failed"
)

// BookingEventPayload is the notification payload for booking lifecycle
// events. It carries everything a downstream notifier needs to render a
// message without calling back into this service.
type BookingEventPayload struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	BookingID     int64     `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	UserID        int64     `json:"user_id"`
	ShowID        int64     `json:"show_id"`
	EventTitle    string    `json:"event_title,omitempty"`
	VenueName     string    `json:"venue_name,omitempty"`
	ShowDate      string    `json:"show_date,omitempty"`
	StartTime     string    `json:"start_time,omitempty"`
	SeatLabels    []string  `json:"seat_labels"`
	FinalAmount   string    `json:"final_amount"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// PaymentEventPayload is the notification payload for payment events
type PaymentEventPayload struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	PaymentID  int64     `json:"payment_id"`
	BookingID  int64     `json:"booking_id"`
	OrderID    string    `json:"order_id"`
	Amount     string    `json:"amount"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher defines the interface for publishing lifecycle events
type EventPublisher interface {
	// PublishBookingConfirmed publishes a booking confirmed event
	PublishBookingConfirmed(ctx context.Context, booking *domain.Booking, show *domain.Show) error

	// PublishBookingCancelled publishes a booking cancelled event
	PublishBookingCancelled(ctx context.Context, booking *domain.Booking) error

	// PublishBookingExpired publishes a booking expired event
	PublishBookingExpired(ctx context.Context, booking *domain.Booking) error

	// PublishPaymentEvent publishes a payment captured or failed event
	PublishPaymentEvent(ctx context.Context, eventType string, payment *domain.Payment) error

	// Close closes the event publisher
	Close() error
}

// KafkaEventPublisher implements EventPublisher using Kafka
type KafkaEventPublisher struct {
	producer     *kafka.Producer
	bookingTopic string
	paymentTopic string
}

// EventPublisherConfig contains configuration for the event publisher
type EventPublisherConfig struct {
	Brokers      []string
	BookingTopic string
	PaymentTopic string
	ClientID     string
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("event publisher config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	bookingTopic := cfg.BookingTopic
	if bookingTopic == "" {
		bookingTopic = "booking-events"
	}
	paymentTopic := cfg.PaymentTopic
	if paymentTopic == "" {
		paymentTopic = "payment-events"
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "cinehub-booking-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:  cfg.Brokers,
		ClientID: clientID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaEventPublisher{
		producer:     producer,
		bookingTopic: bookingTopic,
		paymentTopic: paymentTopic,
	}, nil
}

func (p *KafkaEventPublisher) publishBookingEvent(ctx context.Context, eventType string, booking *domain.Booking, show *domain.Show) error {
	payload := BookingEventPayload{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		BookingID:     booking.ID,
		BookingNumber: booking.BookingNumber,
		UserID:        booking.UserID,
		ShowID:        booking.ShowID,
		SeatLabels:    booking.SeatLabels(),
		FinalAmount:   booking.FinalAmount.StringFixed(2),
		Reason:        booking.CancellationReason,
		OccurredAt:    time.Now().UTC(),
	}
	if show != nil {
		payload.EventTitle = show.EventTitle
		payload.VenueName = show.VenueName
		payload.ShowDate = show.ShowDate.Format("2006-01-02")
		payload.StartTime = show.StartTime.Format("15:04")
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal booking event: %w", err)
	}
	return p.producer.Publish(ctx, p.bookingTopic, booking.BookingNumber, value)
}

// PublishBookingConfirmed publishes a booking confirmed event
func (p *KafkaEventPublisher) PublishBookingConfirmed(ctx context.Context, booking *domain.Booking, show *domain.Show) error {
	return p.publishBookingEvent(ctx, EventBookingConfirmed, booking, show)
}

// PublishBookingCancelled publishes a booking cancelled event
func (p *KafkaEventPublisher) PublishBookingCancelled(ctx context.Context, booking *domain.Booking) error {
	return p.publishBookingEvent(ctx, EventBookingCancelled, booking, nil)
}

// PublishBookingExpired publishes a booking expired event
func (p *KafkaEventPublisher) PublishBookingExpired(ctx context.Context, booking *domain.Booking) error {
	return p.publishBookingEvent(ctx, EventBookingExpired, booking, nil)
}

// PublishPaymentEvent publishes a payment captured or failed event
func (p *KafkaEventPublisher) PublishPaymentEvent(ctx context.Context, eventType string, payment *domain.Payment) error {
	payload := PaymentEventPayload{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		PaymentID:  payment.ID,
		BookingID:  payment.BookingID,
		OrderID:    payment.OrderID,
		Amount:     payment.Amount.StringFixed(2),
		Status:     string(payment.Status),
		Reason:     payment.FailureReason,
		OccurredAt: time.Now().UTC(),
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payment event: %w", err)
	}
	return p.producer.Publish(ctx, p.paymentTopic, payment.OrderID, value)
}

// Close closes the event publisher
func (p *KafkaEventPublisher) Close() error {
	p.producer.Close()
	return nil
}

// NoOpEventPublisher discards all events. Used in tests and when Kafka is
// not configured.
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a publisher that discards events
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

func (p *NoOpEventPublisher) PublishBookingConfirmed(ctx context.Context, booking *domain.Booking, show *domain.Show) error {
	return nil
}

func (p *NoOpEventPublisher) PublishBookingCancelled(ctx context.Context, booking *domain.Booking) error {
	return nil
}

func (p *NoOpEventPublisher) PublishBookingExpired(ctx context.Context, booking *domain.Booking) error {
	return nil
}

func (p *NoOpEventPublisher) PublishPaymentEvent(ctx context.Context, eventType string, payment *domain.Payment) error {
	return nil
}

func (p *NoOpEventPublisher) Close() error {
	return nil
}
