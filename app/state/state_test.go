package state

import (
	"context"
	"testing"
	"time"

	"github.com/Yanlebed/htode-sub000/app/db/redis"
	"github.com/Yanlebed/htode-sub000/app/models"

	"github.com/stretchr/testify/assert"
)

func TestSetGetClear(t *testing.T) {
	cache := redis.NewMockRedisClient()
	manager := NewManager(cache)
	ctx := context.Background()

	doc, err := manager.Get(ctx, models.PlatformTelegram, "555")
	assert.NoError(t, err)
	assert.Nil(t, doc)

	err = manager.Set(ctx, models.PlatformTelegram, "555", &models.StateDocument{
		State:      "city",
		ActiveFlow: "property_search",
		FlowData:   map[string]any{"property_type": "apartment"},
	})
	assert.NoError(t, err)

	doc, err = manager.Get(ctx, models.PlatformTelegram, "555")
	assert.NoError(t, err)
	assert.Equal(t, "city", doc.State)
	assert.Equal(t, "property_search", doc.ActiveFlow)
	assert.Equal(t, "apartment", doc.FlowData["property_type"])

	assert.NoError(t, manager.Clear(ctx, models.PlatformTelegram, "555"))
	doc, _ = manager.Get(ctx, models.PlatformTelegram, "555")
	assert.Nil(t, doc)
}

func TestDocumentSerializesAllFieldsExplicitly(t *testing.T) {
	cache := redis.NewMockRedisClient()
	manager := NewManager(cache)
	ctx := context.Background()

	// an ended flow still writes active_flow and flow_data, the stored
	// document shape never loses fields
	err := manager.Set(ctx, models.PlatformTelegram, "555", &models.StateDocument{
		State:    "start",
		FlowData: map[string]any{},
	})
	assert.NoError(t, err)

	raw, err := cache.Get(ctx, stateKey(models.PlatformTelegram, "555")).Result()
	assert.NoError(t, err)
	assert.Contains(t, raw, `"active_flow"`)
	assert.Contains(t, raw, `"flow_data"`)
}

func TestStateIsScopedPerPlatform(t *testing.T) {
	cache := redis.NewMockRedisClient()
	manager := NewManager(cache)
	ctx := context.Background()

	assert.NoError(t, manager.Set(ctx, models.PlatformTelegram, "555", &models.StateDocument{State: "city"}))
	doc, _ := manager.Get(ctx, models.PlatformViber, "555")
	assert.Nil(t, doc)
}

func TestSlidingTTL(t *testing.T) {
	cache := redis.NewMockRedisClient()
	manager := NewManager(cache)
	ctx := context.Background()

	assert.NoError(t, manager.Set(ctx, models.PlatformTelegram, "555", &models.StateDocument{State: "city"}))

	// an update 23h in refreshes the clock
	cache.FastForward(23 * time.Hour)
	err := manager.Update(ctx, models.PlatformTelegram, "555", func(doc *models.StateDocument) {
		doc.State = "rooms"
	})
	assert.NoError(t, err)

	cache.FastForward(23 * time.Hour)
	doc, _ := manager.Get(ctx, models.PlatformTelegram, "555")
	assert.NotNil(t, doc)
	assert.Equal(t, "rooms", doc.State)

	// untouched past the TTL the document is gone
	cache.FastForward(25 * time.Hour)
	doc, _ = manager.Get(ctx, models.PlatformTelegram, "555")
	assert.Nil(t, doc)
}

func TestCorruptDocumentReadsAsAbsent(t *testing.T) {
	cache := redis.NewMockRedisClient()
	manager := NewManager(cache)
	ctx := context.Background()

	cache.Set(ctx, "user_state:telegram:555", "{broken", time.Hour)
	doc, err := manager.Get(ctx, models.PlatformTelegram, "555")
	assert.NoError(t, err)
	assert.Nil(t, doc)
}

func TestCurrentStateName(t *testing.T) {
	cache := redis.NewMockRedisClient()
	manager := NewManager(cache)
	ctx := context.Background()

	assert.Empty(t, manager.CurrentStateName(ctx, models.PlatformTelegram, "555"))
	assert.NoError(t, manager.Set(ctx, models.PlatformTelegram, "555", &models.StateDocument{State: "confirm"}))
	assert.Equal(t, "confirm", manager.CurrentStateName(ctx, models.PlatformTelegram, "555"))
}
