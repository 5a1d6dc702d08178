package redis

import (
	"strconv"

	"github.com/Yanlebed/htode-sub000/app/models"
)

// Entity cache managers own the key shapes and TTL policy for each
// cached query result. Every repository write must call the matching
// InvalidateAll before returning, reads go through the getters.

type UserCacheManager struct {
	Client Client
}

func (m *UserCacheManager) UserKey(userID int64) string {
	return CacheKey("user", strconv.FormatInt(userID, 10))
}

func (m *UserCacheManager) PlatformKey(platform models.Platform, platformID string) string {
	return CacheKey("user_by_platform", string(platform), platformID)
}

func (m *UserCacheManager) GetUser(userID int64) (*models.User, bool) {
	user := &models.User{}
	if GetJSON(m.Client, m.UserKey(userID), user) {
		return user, true
	}
	return nil, false
}

func (m *UserCacheManager) SetUser(user *models.User) {
	SetJSON(m.Client, m.UserKey(user.ID), user, TTLStandard)
}

func (m *UserCacheManager) GetUserIDByPlatform(platform models.Platform, platformID string) (int64, bool) {
	var userID int64
	if GetJSON(m.Client, m.PlatformKey(platform, platformID), &userID) {
		return userID, true
	}
	return 0, false
}

func (m *UserCacheManager) SetUserIDByPlatform(platform models.Platform, platformID string, userID int64) {
	SetJSON(m.Client, m.PlatformKey(platform, platformID), userID, TTLStandard)
}

// InvalidateAll drops every key this user could have produced,
// the per-platform reverse lookups included.
func (m *UserCacheManager) InvalidateAll(userID int64, platformIDs map[models.Platform]string) {
	keys := []string{m.UserKey(userID)}
	for platform, platformID := range platformIDs {
		if platformID != "" {
			keys = append(keys, m.PlatformKey(platform, platformID))
		}
	}
	Delete(m.Client, keys...)
	DeletePattern(m.Client, "user:"+strconv.FormatInt(userID, 10)+":*")
}

type SubscriptionCacheManager struct {
	Client Client
}

func (m *SubscriptionCacheManager) FiltersKey(userID int64) string {
	return CacheKey("user_filters", strconv.FormatInt(userID, 10))
}

func (m *SubscriptionCacheManager) StatusKey(userID int64) string {
	return CacheKey("subscription_status", strconv.FormatInt(userID, 10))
}

func (m *SubscriptionCacheManager) GetFilters(userID int64) ([]models.UserFilter, bool) {
	var filters []models.UserFilter
	if GetJSON(m.Client, m.FiltersKey(userID), &filters) {
		return filters, true
	}
	return nil, false
}

func (m *SubscriptionCacheManager) SetFilters(userID int64, filters []models.UserFilter) {
	SetJSON(m.Client, m.FiltersKey(userID), filters, TTLMedium)
}

func (m *SubscriptionCacheManager) GetStatus(userID int64) (*models.SubscriptionStatus, bool) {
	status := &models.SubscriptionStatus{}
	if GetJSON(m.Client, m.StatusKey(userID), status) {
		return status, true
	}
	return nil, false
}

func (m *SubscriptionCacheManager) SetStatus(userID int64, status *models.SubscriptionStatus) {
	SetJSON(m.Client, m.StatusKey(userID), status, TTLStandard)
}

func (m *SubscriptionCacheManager) InvalidateAll(userID int64) {
	Delete(m.Client, m.FiltersKey(userID), m.StatusKey(userID))
}

type FavoriteCacheManager struct {
	Client Client
}

func (m *FavoriteCacheManager) FavoritesKey(userID int64) string {
	return CacheKey("user_favorites", strconv.FormatInt(userID, 10))
}

func (m *FavoriteCacheManager) GetFavorites(userID int64) ([]models.FavoriteAd, bool) {
	var favorites []models.FavoriteAd
	if GetJSON(m.Client, m.FavoritesKey(userID), &favorites) {
		return favorites, true
	}
	return nil, false
}

func (m *FavoriteCacheManager) SetFavorites(userID int64, favorites []models.FavoriteAd) {
	SetJSON(m.Client, m.FavoritesKey(userID), favorites, TTLMedium)
}

func (m *FavoriteCacheManager) InvalidateAll(userID int64) {
	Delete(m.Client, m.FavoritesKey(userID))
}

type AdCacheManager struct {
	Client Client
}

func (m *AdCacheManager) FullAdKey(adID int64) string {
	return CacheKey("full_ad", strconv.FormatInt(adID, 10))
}

func (m *AdCacheManager) ImagesKey(adID int64) string {
	return CacheKey("ad_images", strconv.FormatInt(adID, 10))
}

func (m *AdCacheManager) DescriptionKey(resourceURL string) string {
	return CacheKey("ad_description", resourceURL)
}

func (m *AdCacheManager) MatchingUsersKey(adID int64) string {
	return CacheKey("matching_users", strconv.FormatInt(adID, 10))
}

func (m *AdCacheManager) GetFullAd(adID int64) (*models.Ad, bool) {
	ad := &models.Ad{}
	if GetJSON(m.Client, m.FullAdKey(adID), ad) {
		return ad, true
	}
	return nil, false
}

func (m *AdCacheManager) SetFullAd(ad *models.Ad) {
	SetJSON(m.Client, m.FullAdKey(ad.ID), ad, TTLLong)
}

func (m *AdCacheManager) GetImages(adID int64) ([]string, bool) {
	var images []string
	if GetJSON(m.Client, m.ImagesKey(adID), &images) {
		return images, true
	}
	return nil, false
}

func (m *AdCacheManager) SetImages(adID int64, images []string) {
	SetJSON(m.Client, m.ImagesKey(adID), images, TTLLong)
}

// Descriptions are long free text, stored raw rather than JSON.
func (m *AdCacheManager) GetDescription(resourceURL string) (string, bool) {
	return GetString(m.Client, m.DescriptionKey(resourceURL))
}

func (m *AdCacheManager) SetDescription(resourceURL string, description string) {
	SetString(m.Client, m.DescriptionKey(resourceURL), description, TTLLong)
}

func (m *AdCacheManager) GetMatchingUsers(adID int64) ([]int64, bool) {
	var users []int64
	if GetJSON(m.Client, m.MatchingUsersKey(adID), &users) {
		return users, true
	}
	return nil, false
}

func (m *AdCacheManager) SetMatchingUsers(adID int64, users []int64) {
	SetJSON(m.Client, m.MatchingUsersKey(adID), users, TTLShort)
}

// InvalidateAll sweeps every key derived from this ad. Matching-user
// lists reference ads only by id embedded in the key, so the whole
// matching_users namespace goes too; other ads' lists repopulate on
// their next read.
func (m *AdCacheManager) InvalidateAll(adID int64) {
	Delete(m.Client, m.FullAdKey(adID), m.ImagesKey(adID), m.MatchingUsersKey(adID))
	DeletePattern(m.Client, "ad:"+strconv.FormatInt(adID, 10)+":*")
	DeletePattern(m.Client, "matching_users:*")
}
