package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/johnrodneybargayo/gabay-rooms/internal/store"
	"github.com/johnrodneybargayo/gabay-rooms/pkg/log"
	"github.com/johnrodneybargayo/gabay-rooms/pkg/pubsub"
)

// SubscribeUpdates registers a subscriber and returns its update channel.
// A slow subscriber drops updates rather than blocking writers; every
// update is a full snapshot, so a dropped one is made good by the next.
func (s *roomSyncService) SubscribeUpdates(subscriberID string) <-chan Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.subs[subscriberID]; ok {
		close(old)
	}
	ch := make(chan Update, subscriberBuffer)
	s.subs[subscriberID] = ch
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *roomSyncService) Unsubscribe(subscriberID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subs[subscriberID]; ok {
		close(ch)
		delete(s.subs, subscriberID)
	}
}

func (s *roomSyncService) fanOut(u Update) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l := log.L()
	for id, ch := range s.subs {
		select {
		case ch <- u:
		default:
			l.Warn().Str("subscriber_id", id).Msg("subscriber buffer full, dropping update")
		}
	}
}

// notifyCatalog reloads the full catalog and fans it out.
func (s *roomSyncService) notifyCatalog(ctx context.Context) {
	catalog, err := s.treeStore().ListRooms(ctx)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to load catalog snapshot")
		return
	}
	s.fanOut(Update{Rooms: catalog})
}

// notifyRoom reloads one room's full snapshot and fans it out.
func (s *roomSyncService) notifyRoom(ctx context.Context, roomID string) {
	room, err := s.treeStore().GetRoom(ctx, roomID)
	if err != nil {
		if !errors.Is(err, store.ErrRoomNotFound) {
			l := log.Ctx(ctx)
			l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to load room snapshot")
		}
		return
	}
	s.fanOut(Update{Room: room})
}

func (s *roomSyncService) publishRoomEvent(ctx context.Context, eventType, roomID string, payload interface{}) {
	if s.bus == nil {
		return
	}
	l := log.Ctx(ctx)
	evt, err := pubsub.NewEvent(eventType, roomID, payload)
	if err != nil {
		l.Error().Err(err).Str("event_type", eventType).Msg("failed to build event")
		return
	}
	if err := s.bus.Publish(ctx, pubsub.RoomEventsChannel(roomID), evt); err != nil {
		l.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish room event")
	}
}

func (s *roomSyncService) publishCatalogEvent(ctx context.Context, eventType string, payload interface{}) {
	if s.bus == nil {
		return
	}
	l := log.Ctx(ctx)
	evt, err := pubsub.NewEvent(eventType, "", payload)
	if err != nil {
		l.Error().Err(err).Str("event_type", eventType).Msg("failed to build event")
		return
	}
	if err := s.bus.Publish(ctx, pubsub.ChannelCatalog, evt); err != nil {
		l.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish catalog event")
	}
}

// StartWatcher consumes bus events published by other instances and
// refreshes local subscribers with full snapshots. Local mutations
// notify directly, so a duplicate refresh from our own echo is harmless.
func (s *roomSyncService) StartWatcher(ctx context.Context) error {
	if s.bus == nil {
		return nil
	}
	l := log.Ctx(ctx)

	roomEvents, err := s.bus.SubscribePattern(ctx, pubsub.PatternAllRoomEvents)
	if err != nil {
		return fmt.Errorf("failed to subscribe to room events: %w", err)
	}
	catalogEvents, err := s.bus.Subscribe(ctx, pubsub.ChannelCatalog)
	if err != nil {
		return fmt.Errorf("failed to subscribe to catalog events: %w", err)
	}

	l.Info().Msg("room event watcher started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-roomEvents:
			if !ok {
				return nil
			}
			if evt.RoomID != "" {
				s.notifyRoom(ctx, evt.RoomID)
				// Room events move last-activity, which the lobby
				// catalog shows as well.
				s.notifyCatalog(ctx)
			}
		case evt, ok := <-catalogEvents:
			if !ok {
				return nil
			}
			l.Debug().Str("event_type", evt.Type).Msg("catalog event received")
			s.notifyCatalog(ctx)
		}
	}
}
