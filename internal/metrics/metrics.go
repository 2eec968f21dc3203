package metrics

import (
	"sync"

	"github.com/unnisamohammad/cinehub-backend/pkg/telemetry"
)

var (
	// Booking counters
	BookingsInitiated *telemetry.Counter
	BookingsConfirmed *telemetry.Counter
	BookingsCancelled *telemetry.Counter
	BookingsExpired   *telemetry.Counter

	// Payment counters
	PaymentsSucceeded *telemetry.Counter
	PaymentsFailed    *telemetry.Counter

	// Histograms
	SweepDuration *telemetry.Histogram

	initOnce sync.Once
	initErr  error
)

// Init initializes all booking metrics. Counters stay nil (and no-op)
// until Init is called, so unit tests never need a meter provider.
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	BookingsInitiated, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_initiations_total",
		Description: "Total number of bookings initiated",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsConfirmed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_confirmations_total",
		Description: "Total number of bookings confirmed",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsCancelled, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_cancellations_total",
		Description: "Total number of bookings cancelled",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsExpired, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "booking_expirations_total",
		Description: "Total number of bookings expired by the sweeper",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	PaymentsSucceeded, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "payment_successes_total",
		Description: "Total number of payments captured",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	PaymentsFailed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "payment_failures_total",
		Description: "Total number of failed payment attempts",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	SweepDuration, err = telemetry.NewHistogram(telemetry.MetricOpts{
		Name:        "booking_expiry_sweep_duration_seconds",
		Description: "Duration of a single expiry sweep pass",
		Unit:        "s",
	})
	if err != nil {
		return err
	}

	return nil
}
