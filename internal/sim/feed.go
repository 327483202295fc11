package sim

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/example/delivery-driver/internal/geo"
	"github.com/example/delivery-driver/internal/models"
)

// OrderFunc receives each new order from a feed.
type OrderFunc func(models.Order)

// Generator fabricates orders around a city center on a fixed cadence.
type Generator struct {
	Every     time.Duration
	CenterLat float64
	CenterLon float64
	Logger    *slog.Logger
}

// Run emits orders until ctx is cancelled.
func (g *Generator) Run(ctx context.Context, emit OrderFunc) {
	ticker := time.NewTicker(g.Every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			emit(g.generate())
		}
	}
}

func (g *Generator) generate() models.Order {
	sLat, sLon := geo.Offset(g.CenterLat, g.CenterLon, randMeters(), randMeters())
	eLat, eLon := geo.Offset(g.CenterLat, g.CenterLon, randMeters(), randMeters())
	o := models.Order{
		OrderID: uuid.New().String(),
		// fares between 3000 and 12900 in 100-unit steps
		Price:  3000 + rand.Intn(100)*100,
		Start:  models.Coord{Lat: sLat, Lon: sLon},
		End:    models.Coord{Lat: eLat, Lon: eLon},
		Status: models.StatusPending,
		Pushed: time.Now(),
	}
	g.Logger.Debug("generated order", "order_id", o.OrderID, "price", o.Price)
	return o
}

func randMeters() float64 { return (rand.Float64() - 0.5) * 10000 }

// KafkaFeed consumes externally produced orders from a kafka topic and
// forwards them to the push fan-out, so a real order intake can drive the
// simulation.
type KafkaFeed struct {
	Brokers []string
	Topic   string
	Group   string
	Logger  *slog.Logger
}

// Run reads until ctx is cancelled, backing off on broker errors.
func (f *KafkaFeed) Run(ctx context.Context, emit OrderFunc) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: f.Brokers,
		Topic:   f.Topic,
		GroupID: f.Group,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	defer r.Close()

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				f.Logger.Info("kafka feed shutting down")
				return
			}
			f.Logger.Warn("kafka read error", "error", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		var o models.Order
		if err := json.Unmarshal(m.Value, &o); err != nil || o.OrderID == "" {
			f.Logger.Warn("invalid order message", "error", err)
			continue
		}
		if o.Pushed.IsZero() {
			o.Pushed = time.Now()
		}
		o.Status = models.StatusPending
		emit(o)
	}
}
