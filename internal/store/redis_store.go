package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/johnrodneybargayo/gabay-rooms/internal/domain"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// redisStore implements TreeStore on Redis.
type redisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed room tree store.
func NewRedisStore(cfg RedisConfig) (TreeStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &redisStore{client: client}, nil
}

// Redis key patterns (path layout is fixed for compatibility):
// chatRooms                                        SET<room_id>    - catalog index
// chatRooms/{room_id}                              HASH            - room record
// chatRooms/{room_id}/participants                 SET<uid>        - participant index
// chatRooms/{room_id}/participants/{uid}           HASH            - participant record
// chatRooms/{room_id}/messages                     ZSET<msg_id>    - message order (score = seq)
// chatRooms/{room_id}/messages/{msg_id}            STRING<json>    - message record
// chatRooms/{room_id}/seq                          STRING<int>     - message sequence counter

const catalogKey = "chatRooms"

func roomKey(roomID string) string {
	return fmt.Sprintf("chatRooms/%s", roomID)
}

func participantsKey(roomID string) string {
	return fmt.Sprintf("chatRooms/%s/participants", roomID)
}

func participantKey(roomID, uid string) string {
	return fmt.Sprintf("chatRooms/%s/participants/%s", roomID, uid)
}

func messagesKey(roomID string) string {
	return fmt.Sprintf("chatRooms/%s/messages", roomID)
}

func messageKey(roomID, msgID string) string {
	return fmt.Sprintf("chatRooms/%s/messages/%s", roomID, msgID)
}

func seqKey(roomID string) string {
	return fmt.Sprintf("chatRooms/%s/seq", roomID)
}

func (s *redisStore) ListRooms(ctx context.Context) (domain.Catalog, error) {
	ids, err := s.client.SMembers(ctx, catalogKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list room ids: %w", err)
	}

	catalog := make(domain.Catalog, len(ids))
	for _, id := range ids {
		room, err := s.GetRoom(ctx, id)
		if err != nil {
			if err == ErrRoomNotFound {
				// Index entry without a record; skip.
				continue
			}
			return nil, err
		}
		catalog[id] = *room
	}
	return catalog, nil
}

func (s *redisStore) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	fields, err := s.client.HGetAll(ctx, roomKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get room %s: %w", roomID, err)
	}
	if len(fields) == 0 {
		return nil, ErrRoomNotFound
	}

	room := roomFromHash(fields)

	participants, err := s.loadParticipants(ctx, roomID)
	if err != nil {
		return nil, err
	}
	room.Participants = participants

	messages, err := s.loadMessages(ctx, roomID)
	if err != nil {
		return nil, err
	}
	room.Messages = messages

	return room, nil
}

func (s *redisStore) loadParticipants(ctx context.Context, roomID string) (map[string]domain.Participant, error) {
	uids, err := s.client.SMembers(ctx, participantsKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list participants of %s: %w", roomID, err)
	}

	participants := make(map[string]domain.Participant, len(uids))
	for _, uid := range uids {
		fields, err := s.client.HGetAll(ctx, participantKey(roomID, uid)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to get participant %s: %w", uid, err)
		}
		if len(fields) == 0 {
			continue
		}
		lastSeen, _ := strconv.ParseInt(fields["last_seen"], 10, 64)
		participants[uid] = domain.Participant{
			UID:      fields["uid"],
			Name:     fields["name"],
			Online:   fields["online"] == "true",
			LastSeen: lastSeen,
		}
	}
	return participants, nil
}

func (s *redisStore) loadMessages(ctx context.Context, roomID string) ([]domain.Message, error) {
	// Ascending by sequence number.
	ids, err := s.client.ZRange(ctx, messagesKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages of %s: %w", roomID, err)
	}

	messages := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		data, err := s.client.Get(ctx, messageKey(roomID, id)).Bytes()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, fmt.Errorf("failed to get message %s: %w", id, err)
		}
		var m domain.Message
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message %s: %w", id, err)
		}
		messages = append(messages, m)
	}
	return messages, nil
}

func (s *redisStore) PutRoom(ctx context.Context, room *domain.Room) error {
	pipe := s.client.TxPipeline()
	putRoomPipe(ctx, pipe, room)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to put room %s: %w", room.ID, err)
	}
	return nil
}

func (s *redisStore) SeedRooms(ctx context.Context, rooms domain.Catalog) error {
	pipe := s.client.TxPipeline()
	for id := range rooms {
		room := rooms[id]
		putRoomPipe(ctx, pipe, &room)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to seed rooms: %w", err)
	}
	return nil
}

func putRoomPipe(ctx context.Context, pipe redis.Pipeliner, room *domain.Room) {
	pipe.SAdd(ctx, catalogKey, room.ID)
	pipe.HSet(ctx, roomKey(room.ID), roomToHash(room))

	var maxSeq int64
	for i := range room.Messages {
		m := room.Messages[i]
		data, err := json.Marshal(m)
		if err != nil {
			continue
		}
		pipe.Set(ctx, messageKey(room.ID, m.ID), data, 0)
		pipe.ZAdd(ctx, messagesKey(room.ID), redis.Z{Score: float64(m.Seq), Member: m.ID})
		if m.Seq > maxSeq {
			maxSeq = m.Seq
		}
	}
	if maxSeq > 0 {
		pipe.Set(ctx, seqKey(room.ID), maxSeq, 0)
	}

	for uid := range room.Participants {
		p := room.Participants[uid]
		pipe.SAdd(ctx, participantsKey(room.ID), uid)
		pipe.HSet(ctx, participantKey(room.ID, uid), participantToHash(&p))
	}
}

func (s *redisStore) PutParticipant(ctx context.Context, roomID string, p *domain.Participant) error {
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, participantsKey(roomID), p.UID)
	pipe.HSet(ctx, participantKey(roomID, p.UID), participantToHash(p))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to put participant %s: %w", p.UID, err)
	}
	return nil
}

func (s *redisStore) SetParticipantOnline(ctx context.Context, roomID, participantID string, online bool) error {
	key := participantKey(roomID, participantID)

	// Don't resurrect a participant that has already left.
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check participant %s: %w", participantID, err)
	}
	if exists == 0 {
		return nil
	}

	if err := s.client.HSet(ctx, key, "online", strconv.FormatBool(online)).Err(); err != nil {
		return fmt.Errorf("failed to set online flag of %s: %w", participantID, err)
	}
	return nil
}

func (s *redisStore) DeleteParticipant(ctx context.Context, roomID, participantID string) error {
	pipe := s.client.TxPipeline()
	pipe.SRem(ctx, participantsKey(roomID), participantID)
	pipe.Del(ctx, participantKey(roomID, participantID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete participant %s: %w", participantID, err)
	}
	return nil
}

func (s *redisStore) NextMessageSeq(ctx context.Context, roomID string) (int64, error) {
	seq, err := s.client.Incr(ctx, seqKey(roomID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to issue message seq for %s: %w", roomID, err)
	}
	return seq, nil
}

func (s *redisStore) AppendMessage(ctx context.Context, roomID string, m *domain.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message %s: %w", m.ID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, messageKey(roomID, m.ID), data, 0)
	pipe.ZAdd(ctx, messagesKey(roomID), redis.Z{Score: float64(m.Seq), Member: m.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append message %s: %w", m.ID, err)
	}
	return nil
}

func (s *redisStore) TouchRoom(ctx context.Context, roomID string, at time.Time) error {
	if err := s.client.HSet(ctx, roomKey(roomID), "last_activity", at.UnixMilli()).Err(); err != nil {
		return fmt.Errorf("failed to touch room %s: %w", roomID, err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

func roomToHash(room *domain.Room) map[string]interface{} {
	return map[string]interface{}{
		"id":            room.ID,
		"name":          room.Name,
		"description":   room.Description,
		"subject":       room.Subject,
		"capacity":      room.Capacity,
		"created_at":    room.CreatedAt,
		"last_activity": room.LastActivity,
	}
}

func roomFromHash(fields map[string]string) *domain.Room {
	capacity, _ := strconv.Atoi(fields["capacity"])
	createdAt, _ := strconv.ParseInt(fields["created_at"], 10, 64)
	lastActivity, _ := strconv.ParseInt(fields["last_activity"], 10, 64)
	return &domain.Room{
		ID:           fields["id"],
		Name:         fields["name"],
		Description:  fields["description"],
		Subject:      fields["subject"],
		Capacity:     capacity,
		CreatedAt:    createdAt,
		LastActivity: lastActivity,
	}
}

func participantToHash(p *domain.Participant) map[string]interface{} {
	return map[string]interface{}{
		"uid":       p.UID,
		"name":      p.Name,
		"online":    strconv.FormatBool(p.Online),
		"last_seen": p.LastSeen,
	}
}
