package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/courierloop/courierloop-backend/pkg/config"
	"github.com/courierloop/courierloop-backend/pkg/logger"
	"github.com/courierloop/courierloop-backend/pkg/metrics"
)

// Event names published by the refresh and tracking pipelines.
const (
	EventRouteRefreshed = "route-refreshed"
	EventETAUpdated     = "eta-updated"
	EventLocationUpdate = "location-update"
)

const defaultSubscriberBuffer = 16

// DriverTopic names the per-driver event stream.
func DriverTopic(driverID uuid.UUID) string {
	return "driver:" + driverID.String()
}

// OrderTopic names the per-order event stream.
func OrderTopic(orderID uuid.UUID) string {
	return "order:" + orderID.String()
}

// Event is one message on a topic. Payload must be JSON-serializable.
type Event struct {
	Topic     string    `json:"topic"`
	Name      string    `json:"event"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscription is one consumer's bounded view of its topics. Events arrive in
// publish order per topic; when the consumer falls behind, the oldest queued
// event is dropped so publishers never block.
type Subscription struct {
	id     uuid.UUID
	topics []string
	ch     chan Event
	hub    *Hub

	closeOnce sync.Once
}

// C is the event stream. The channel stays open after Close so an in-flight
// publish can never hit a closed channel; consumers exit on their own signal.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Close detaches the subscription from every topic.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.hub.detach(s)
	})
}

// Hub is an in-process topic broadcaster with at-most-once delivery.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[uuid.UUID]*Subscription

	buffer      int
	broadcastMx *metrics.BroadcastMetrics
	logg        *logger.Logger
}

// NewHub builds a broadcaster with per-subscriber buffers from config.
func NewHub(cfg config.BroadcastConfig, broadcastMx *metrics.BroadcastMetrics, logg *logger.Logger) *Hub {
	buffer := cfg.SubscriberBuffer
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{
		topics:      map[string]map[uuid.UUID]*Subscription{},
		buffer:      buffer,
		broadcastMx: broadcastMx,
		logg:        logg,
	}
}

// Subscribe registers a consumer on the given topics. Duplicate topic names
// are collapsed so an event is delivered once per subscription.
func (h *Hub) Subscribe(topics []string) *Subscription {
	seen := map[string]struct{}{}
	unique := make([]string, 0, len(topics))
	for _, topic := range topics {
		if topic == "" {
			continue
		}
		if _, ok := seen[topic]; ok {
			continue
		}
		seen[topic] = struct{}{}
		unique = append(unique, topic)
	}

	sub := &Subscription{
		id:     uuid.New(),
		topics: unique,
		ch:     make(chan Event, h.buffer),
		hub:    h,
	}

	h.mu.Lock()
	for _, topic := range unique {
		if h.topics[topic] == nil {
			h.topics[topic] = map[uuid.UUID]*Subscription{}
		}
		h.topics[topic][sub.id] = sub
	}
	h.mu.Unlock()

	h.broadcastMx.SubscriberConnected()
	return sub
}

func (h *Hub) detach(sub *Subscription) {
	h.mu.Lock()
	for _, topic := range sub.topics {
		delete(h.topics[topic], sub.id)
		if len(h.topics[topic]) == 0 {
			delete(h.topics, topic)
		}
	}
	h.mu.Unlock()

	h.broadcastMx.SubscriberDisconnected()
}

// Publish fans the event out to the topic's subscribers without blocking.
// A full subscriber buffer sheds its oldest event to make room.
func (h *Hub) Publish(ctx context.Context, topic, name string, payload any) {
	evt := Event{
		Topic:     topic,
		Name:      name,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.topics[topic]))
	for _, sub := range h.topics[topic] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	h.broadcastMx.IncPublished(name)

	for _, sub := range subs {
		h.deliver(ctx, sub, evt)
	}
}

func (h *Hub) deliver(ctx context.Context, sub *Subscription, evt Event) {
	select {
	case sub.ch <- evt:
		return
	default:
	}

	select {
	case <-sub.ch:
		h.broadcastMx.IncDropped(evt.Name)
	default:
	}

	select {
	case sub.ch <- evt:
	default:
		h.broadcastMx.IncDropped(evt.Name)
		if h.logg != nil {
			h.logg.Warn(h.logg.WithField(ctx, "topic", evt.Topic), "broadcast.subscriber_saturated")
		}
	}
}

// SubscriberCount reports how many subscriptions a topic currently has.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
