package workers

import (
	"context"
	"testing"

	"github.com/Yanlebed/htode-sub000/app/config"
	"github.com/Yanlebed/htode-sub000/app/db/postgres"
	"github.com/Yanlebed/htode-sub000/app/db/redis"
	"github.com/Yanlebed/htode-sub000/app/messaging"
	"github.com/Yanlebed/htode-sub000/app/models"

	"github.com/stretchr/testify/assert"
)

func init() {
	config.CONFIG = &config.Config{}
}

type countingMessenger struct {
	ads int
}

func (c *countingMessenger) Platform() models.Platform               { return models.PlatformTelegram }
func (c *countingMessenger) FormatUserID(platformID string) string   { return platformID }
func (c *countingMessenger) CreateKeyboard([]models.MenuOption) any  { return nil }
func (c *countingMessenger) SendText(ctx context.Context, platformID, text string) error {
	return nil
}
func (c *countingMessenger) SendMedia(ctx context.Context, platformID, mediaURL, caption string) error {
	return nil
}
func (c *countingMessenger) SendMenu(ctx context.Context, platformID, text string, options []models.MenuOption) error {
	return nil
}
func (c *countingMessenger) SendAd(ctx context.Context, platformID string, ad *models.Ad) error {
	c.ads++
	return nil
}

func TestNotifyAdDeliversOncePerUser(t *testing.T) {
	store := postgres.NewMockStore()
	cache := redis.NewMockRedisClient()
	messenger := &countingMessenger{}
	service := messaging.NewService(store, messaging.NewRegistry(messenger))
	notifier := NewNotifier(store, service, cache)
	ctx := context.Background()

	adID, _ := store.SaveAd(ctx, &models.Ad{ExternalID: "ext-1", City: 10009580, Price: 9000})
	user1, _ := store.GetOrCreateUser(ctx, models.PlatformTelegram, "111")
	user2, _ := store.GetOrCreateUser(ctx, models.PlatformTelegram, "222")
	store.MatchingUsers[adID] = []int64{user1.ID, user2.ID}

	assert.NoError(t, notifier.NotifyAd(ctx, adID))
	assert.Equal(t, 2, messenger.ads)

	// a second run finds everyone already notified
	assert.NoError(t, notifier.NotifyAd(ctx, adID))
	assert.Equal(t, 2, messenger.ads)
}

func TestNotifyAdSkipsVanishedAd(t *testing.T) {
	store := postgres.NewMockStore()
	cache := redis.NewMockRedisClient()
	service := messaging.NewService(store, messaging.NewRegistry(&countingMessenger{}))
	notifier := NewNotifier(store, service, cache)

	assert.NoError(t, notifier.NotifyAd(context.Background(), 42))
}
