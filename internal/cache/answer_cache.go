package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/samyotech/catalog-assistant/internal/observability"
)

// AnswerCache caches synthesized answers keyed by the question text.
// Structured answers are never cached; they reflect live record counts.
type AnswerCache struct {
	client Client
	logger *observability.Logger
	ttl    time.Duration
}

// CachedAnswer is the stored shape of one cached answer.
type CachedAnswer struct {
	Answer   string    `json:"answer"`
	Context  string    `json:"context"`
	CachedAt time.Time `json:"cachedAt"`
}

// NewAnswerCache creates an answer cache. A nil client disables caching.
func NewAnswerCache(client Client, logger *observability.Logger, ttl time.Duration) *AnswerCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AnswerCache{
		client: client,
		logger: logger.WithComponent("answer-cache"),
		ttl:    ttl,
	}
}

func answerKey(question string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(question))))
	return Key("answer", hex.EncodeToString(sum[:16]))
}

// Get returns the cached answer for a question, if any.
func (c *AnswerCache) Get(ctx context.Context, question string) (*CachedAnswer, bool) {
	if c.client == nil {
		return nil, false
	}

	key := answerKey(question)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if err != ErrCacheMiss {
			c.logger.Debug().Err(err).Str("key", key).Msg("cache get failed")
		}
		return nil, false
	}

	var cached CachedAnswer
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("discarding malformed cache entry")
		return nil, false
	}

	c.logger.Debug().Str("key", key).Msg("cache hit")
	return &cached, true
}

// Set stores a synthesized answer. Failures are logged, never surfaced.
func (c *AnswerCache) Set(ctx context.Context, question, answer, promptContext string) {
	if c.client == nil {
		return
	}

	data, err := json.Marshal(CachedAnswer{
		Answer:   answer,
		Context:  promptContext,
		CachedAt: time.Now(),
	})
	if err != nil {
		return
	}

	key := answerKey(question)
	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}
