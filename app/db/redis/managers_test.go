package redis

import (
	"testing"

	"github.com/Yanlebed/htode-sub000/app/models"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionCacheManagerInvalidateAll(t *testing.T) {
	client := NewMockRedisClient()
	manager := &SubscriptionCacheManager{Client: client}

	manager.SetFilters(7, []models.UserFilter{{ID: 1, UserID: 7, PropertyType: "apartment"}})
	manager.SetStatus(7, &models.SubscriptionStatus{Active: true})

	filters, found := manager.GetFilters(7)
	assert.True(t, found)
	assert.Len(t, filters, 1)
	assert.Equal(t, "apartment", filters[0].PropertyType)

	manager.InvalidateAll(7)

	_, found = manager.GetFilters(7)
	assert.False(t, found)
	_, found = manager.GetStatus(7)
	assert.False(t, found)
}

func TestAdCacheManagerInvalidateAllSweepsMatchingUsers(t *testing.T) {
	client := NewMockRedisClient()
	manager := &AdCacheManager{Client: client}

	manager.SetFullAd(&models.Ad{ID: 100, City: 10009580})
	manager.SetImages(100, []string{"https://cdn.example.com/1.jpg"})
	manager.SetMatchingUsers(100, []int64{7})
	manager.SetMatchingUsers(200, []int64{8})

	manager.InvalidateAll(100)

	_, found := manager.GetFullAd(100)
	assert.False(t, found)
	_, found = manager.GetImages(100)
	assert.False(t, found)
	_, found = manager.GetMatchingUsers(100)
	assert.False(t, found)
	// broad sweep clears other ads' matching-user lists too
	_, found = manager.GetMatchingUsers(200)
	assert.False(t, found)
}

func TestUserCacheManagerPlatformLookup(t *testing.T) {
	client := NewMockRedisClient()
	manager := &UserCacheManager{Client: client}

	manager.SetUserIDByPlatform(models.PlatformTelegram, "123456", 7)
	userID, found := manager.GetUserIDByPlatform(models.PlatformTelegram, "123456")
	assert.True(t, found)
	assert.Equal(t, int64(7), userID)

	manager.InvalidateAll(7, map[models.Platform]string{models.PlatformTelegram: "123456"})
	_, found = manager.GetUserIDByPlatform(models.PlatformTelegram, "123456")
	assert.False(t, found)
}

func TestAdCacheManagerRawDescription(t *testing.T) {
	client := NewMockRedisClient()
	manager := &AdCacheManager{Client: client}

	manager.SetDescription("https://listing.example.com/ad/100", "Простора квартира з ремонтом")
	description, found := manager.GetDescription("https://listing.example.com/ad/100")
	assert.True(t, found)
	assert.Equal(t, "Простора квартира з ремонтом", description)
}
