package state

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Yanlebed/htode-sub000/app/db/redis"
	"github.com/Yanlebed/htode-sub000/app/models"

	"github.com/sirupsen/logrus"
)

// DefaultTTL is how long an untouched conversation survives. Every
// write resets it, so the clock only runs between messages.
const DefaultTTL = 24 * time.Hour

// PlatformStore lets a platform keep conversation state somewhere
// other than the shared cache. Rarely needed, nil means default.
type PlatformStore interface {
	Get(ctx context.Context, userID string) (*models.StateDocument, error)
	Set(ctx context.Context, userID string, doc *models.StateDocument) error
	Clear(ctx context.Context, userID string) error
}

// Manager stores per-(platform,user) conversation state as a JSON
// blob in the cache store. No relational backing: an expired document
// simply means the conversation starts over.
type Manager struct {
	cache     redis.Client
	ttl       time.Duration
	overrides map[models.Platform]PlatformStore
}

func NewManager(cache redis.Client) *Manager {
	return &Manager{
		cache:     cache,
		ttl:       DefaultTTL,
		overrides: make(map[models.Platform]PlatformStore),
	}
}

// SetPlatformStore overrides where one platform's state lives.
func (m *Manager) SetPlatformStore(platform models.Platform, store PlatformStore) {
	m.overrides[platform] = store
}

func stateKey(platform models.Platform, userID string) string {
	return redis.CacheKey("user_state", string(platform), userID)
}

// Get returns the current state document, nil when absent or corrupt.
func (m *Manager) Get(ctx context.Context, platform models.Platform, userID string) (*models.StateDocument, error) {
	if override, ok := m.overrides[platform]; ok {
		return override.Get(ctx, userID)
	}
	key := stateKey(platform, userID)
	raw, err := m.cache.Get(ctx, key).Result()
	if err != nil {
		return nil, nil
	}
	doc := &models.StateDocument{}
	if err := json.Unmarshal([]byte(raw), doc); err != nil {
		logrus.Warnf("corrupt state document at %s, resetting: %v", key, err)
		m.cache.Del(ctx, key)
		return nil, nil
	}
	return doc, nil
}

// Set overwrites the state document and resets the TTL.
func (m *Manager) Set(ctx context.Context, platform models.Platform, userID string, doc *models.StateDocument) error {
	if override, ok := m.overrides[platform]; ok {
		return override.Set(ctx, userID, doc)
	}
	if doc.FlowData == nil {
		doc.FlowData = map[string]any{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return m.cache.Set(ctx, stateKey(platform, userID), string(data), m.ttl).Err()
}

// Update applies fn to the current document (a fresh one when absent)
// and writes it back. Read-modify-write with no per-user lock:
// concurrent deliveries for the same user are last-writer-wins.
func (m *Manager) Update(ctx context.Context, platform models.Platform, userID string, fn func(*models.StateDocument)) error {
	doc, err := m.Get(ctx, platform, userID)
	if err != nil {
		return err
	}
	if doc == nil {
		doc = &models.StateDocument{FlowData: map[string]any{}}
	}
	fn(doc)
	return m.Set(ctx, platform, userID, doc)
}

// Clear drops the conversation state entirely.
func (m *Manager) Clear(ctx context.Context, platform models.Platform, userID string) error {
	if override, ok := m.overrides[platform]; ok {
		return override.Clear(ctx, userID)
	}
	return m.cache.Del(ctx, stateKey(platform, userID)).Err()
}

// CurrentStateName is a convenience for flow dispatch, "" when the
// user has no live conversation.
func (m *Manager) CurrentStateName(ctx context.Context, platform models.Platform, userID string) string {
	doc, err := m.Get(ctx, platform, userID)
	if err != nil || doc == nil {
		return ""
	}
	return doc.State
}
