package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	transcriptKeyPrefix  = "booking_transcript:"
	transcriptTTL        = 24 * time.Hour
	defaultTranscriptCap = 250
)

var errTranscriptKeyRequired = errors.New("session: transcript user id required")

// TranscriptStore mirrors conversation transcripts outside the process.
type TranscriptStore interface {
	Append(ctx context.Context, userID string, msg Message) error
	List(ctx context.Context, userID string, limit int64) ([]Message, error)
	Delete(ctx context.Context, userID string) error
}

// RedisTranscriptStore keeps each transcript in a capped Redis list.
type RedisTranscriptStore struct {
	redis       *redis.Client
	tracer      trace.Tracer
	maxMessages int64
}

// NewRedisTranscriptStore returns nil when redisClient is nil so callers can
// fall back to the in-memory store.
func NewRedisTranscriptStore(redisClient *redis.Client, maxMessages int64) *RedisTranscriptStore {
	if redisClient == nil {
		return nil
	}
	if maxMessages <= 0 {
		maxMessages = defaultTranscriptCap
	}
	return &RedisTranscriptStore{
		redis:       redisClient,
		tracer:      otel.Tracer("pawcare.internal.session.transcript"),
		maxMessages: maxMessages,
	}
}

func (s *RedisTranscriptStore) Append(ctx context.Context, userID string, msg Message) error {
	if userID == "" {
		return errTranscriptKeyRequired
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("session: marshal transcript message: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "session.transcript.append",
		trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	key := transcriptKey(userID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, transcriptTTL)
	pipe.LTrim(ctx, key, -s.maxMessages, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: append transcript message: %w", err)
	}
	return nil
}

func (s *RedisTranscriptStore) List(ctx context.Context, userID string, limit int64) ([]Message, error) {
	if userID == "" {
		return nil, errTranscriptKeyRequired
	}
	ctx, span := s.tracer.Start(ctx, "session.transcript.list",
		trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	start := int64(0)
	if limit > 0 {
		start = -limit
	}
	raw, err := s.redis.LRange(ctx, transcriptKey(userID), start, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Message{}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("session: list transcript: %w", err)
	}

	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *RedisTranscriptStore) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return errTranscriptKeyRequired
	}
	ctx, span := s.tracer.Start(ctx, "session.transcript.delete")
	defer span.End()
	if err := s.redis.Del(ctx, transcriptKey(userID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: delete transcript: %w", err)
	}
	return nil
}

func transcriptKey(userID string) string {
	return transcriptKeyPrefix + userID
}

// MemoryTranscriptStore is an in-process TranscriptStore.
type MemoryTranscriptStore struct {
	mu          sync.RWMutex
	transcripts map[string][]Message
	maxMessages int
}

func NewMemoryTranscriptStore(maxMessages int) *MemoryTranscriptStore {
	if maxMessages <= 0 {
		maxMessages = defaultTranscriptCap
	}
	return &MemoryTranscriptStore{transcripts: make(map[string][]Message), maxMessages: maxMessages}
}

func (s *MemoryTranscriptStore) Append(_ context.Context, userID string, msg Message) error {
	if userID == "" {
		return errTranscriptKeyRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := append(s.transcripts[userID], msg)
	if over := len(msgs) - s.maxMessages; over > 0 {
		msgs = append([]Message(nil), msgs[over:]...)
	}
	s.transcripts[userID] = msgs
	return nil
}

func (s *MemoryTranscriptStore) List(_ context.Context, userID string, limit int64) ([]Message, error) {
	if userID == "" {
		return nil, errTranscriptKeyRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.transcripts[userID]
	if limit > 0 && int64(len(msgs)) > limit {
		msgs = msgs[int64(len(msgs))-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryTranscriptStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transcripts, userID)
	return nil
}
