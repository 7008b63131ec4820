package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const (
	topicRich   = "volume-group.rich"
	topicLegacy = "volume-group.legacy"
)

func focusTopic(zoneID int) string { return fmt.Sprintf("focus.%d", zoneID) }

// RichHandler receives rich volume-group events.
type RichHandler func(VolumeGroupEvent)

// LegacyHandler receives legacy per-group events.
type LegacyHandler func(LegacyEvent)

// FocusHandler receives per-zone focus-holder snapshots, in the order
// they were committed under the arbiter's lock for that zone.
type FocusHandler func(FocusChangeEvent)

// Registration is the handle returned by Register*, used to Unregister.
// It is a github.com/google/uuid value — an identity token unrelated to
// any wire-visible numeric id (media-broker request ids stay small
// reused integers; focus clients are identified by their ClientID
// string).
type Registration uuid.UUID

func (r Registration) String() string { return uuid.UUID(r).String() }

type subscription struct {
	cancel context.CancelFunc
}

// Bus is the event fan-out: each registered listener receives each
// event at most once; delivery failures de-register the listener after
// logging. A listener registered on both the legacy and rich channels
// only receives on the rich channel (the priority rule in §4.7).
type Bus struct {
	mu   sync.Mutex
	pub  *gochannel.GoChannel
	subs map[Registration]*subscription
	log  watermill.LoggerAdapter
}

// New creates an event bus backed by an in-process gochannel Pub/Sub —
// no external broker, matching the teacher's zero-network event bus.
func New() *Bus {
	log := watermill.NewSlogLogger(slog.Default())
	pub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 8,
		Persistent:          false,
	}, log)
	return &Bus{
		pub:  pub,
		subs: make(map[Registration]*subscription),
		log:  log,
	}
}

// Close releases the underlying Pub/Sub and cancels all subscriptions.
func (b *Bus) Close() error {
	b.mu.Lock()
	for id, s := range b.subs {
		s.cancel()
		delete(b.subs, id)
	}
	b.mu.Unlock()
	return b.pub.Close()
}

// RegisterRich subscribes a rich-only listener.
func (b *Bus) RegisterRich(handler RichHandler) Registration {
	return b.register(topicRich, func(ctx context.Context, msg *message.Message) error {
		var ev VolumeGroupEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			return err
		}
		handler(ev)
		return nil
	})
}

// RegisterLegacy subscribes a legacy-only listener.
func (b *Bus) RegisterLegacy(handler LegacyHandler) Registration {
	return b.register(topicLegacy, func(ctx context.Context, msg *message.Message) error {
		var ev LegacyEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			return err
		}
		handler(ev)
		return nil
	})
}

// RegisterBoth subscribes a listener to both channels but, per the
// priority rule, only invokes rich — legacy delivery for this
// registration is a no-op by construction.
func (b *Bus) RegisterBoth(rich RichHandler) Registration {
	return b.RegisterRich(rich)
}

// RegisterFocus subscribes to focus-holder snapshots for one zone. The
// ducking engine and the HAL bridge are the intended subscribers; both
// receive snapshots, never call back into the arbiter (§9 "cyclic
// observation").
func (b *Bus) RegisterFocus(zoneID int, handler FocusHandler) Registration {
	return b.register(focusTopic(zoneID), func(ctx context.Context, msg *message.Message) error {
		var ev FocusChangeEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			return err
		}
		handler(ev)
		return nil
	})
}

// Unregister removes a listener. Safe to call more than once.
func (b *Bus) Unregister(reg Registration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subs[reg]; ok {
		s.cancel()
		delete(b.subs, reg)
	}
}

func (b *Bus) register(topic string, handle func(context.Context, *message.Message) error) Registration {
	id := Registration(uuid.New())
	ctx, cancel := context.WithCancel(context.Background())

	b.mu.Lock()
	b.subs[id] = &subscription{cancel: cancel}
	b.mu.Unlock()

	msgs, err := b.pub.Subscribe(ctx, topic)
	if err != nil {
		b.log.Error("eventbus: subscribe failed", err, watermill.LogFields{"topic": topic})
		b.Unregister(id)
		return id
	}

	go func() {
		for msg := range msgs {
			if err := handle(ctx, msg); err != nil {
				b.log.Error("eventbus: listener failed, de-registering", err, watermill.LogFields{"topic": topic})
				msg.Nack()
				b.Unregister(id)
				return
			}
			msg.Ack()
		}
	}()

	return id
}

// PublishVolumeGroupEvent publishes the rich event and its derived
// legacy projections. Emitting nothing is valid — callers that produced
// no mutation simply don't call this (HAL dispatcher batches with no
// mutated group, §4.3).
func (b *Bus) PublishVolumeGroupEvent(ev VolumeGroupEvent) {
	b.publish(topicRich, ev)
	for _, legacy := range deriveLegacy(ev) {
		b.publish(topicLegacy, legacy)
	}
}

// PublishFocusChange publishes a focus-holder snapshot for one zone.
func (b *Bus) PublishFocusChange(ev FocusChangeEvent) {
	b.publish(focusTopic(ev.ZoneID), ev)
}

func (b *Bus) publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.log.Error("eventbus: marshal failed", err, watermill.LogFields{"topic": topic})
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := b.pub.Publish(topic, msg); err != nil {
		b.log.Error("eventbus: publish failed", err, watermill.LogFields{"topic": topic})
	}
}

func deriveLegacy(ev VolumeGroupEvent) []LegacyEvent {
	var out []LegacyEvent
	if ev.Flags.Has(FlagIndexChanged) {
		out = append(out, LegacyEvent{Group: ev.Group, Kind: LegacyVolumeChanged})
	}
	if ev.Flags.Has(FlagMuteChanged) {
		out = append(out, LegacyEvent{Group: ev.Group, Kind: LegacyMuteChanged})
		if ev.Group.GroupID == 0 {
			out = append(out, LegacyEvent{Group: ev.Group, Kind: LegacyMasterMuteChanged})
		}
	}
	return out
}
