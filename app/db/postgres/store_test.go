package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/Yanlebed/htode-sub000/app/models"

	"github.com/stretchr/testify/assert"
)

func TestGetOrCreateUserGrantsFreeTrialOnce(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	user, err := store.GetOrCreateUser(ctx, models.PlatformTelegram, "123456")
	assert.NoError(t, err)
	assert.NotNil(t, user.FreeUntil)
	assert.WithinDuration(t, time.Now().Add(models.FreeTrialDays*24*time.Hour), *user.FreeUntil, time.Minute)
	firstTrial := *user.FreeUntil

	again, err := store.GetOrCreateUser(ctx, models.PlatformTelegram, "123456")
	assert.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, firstTrial, *again.FreeUntil)
}

func TestAddFilterCap(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()
	user, _ := store.GetOrCreateUser(ctx, models.PlatformTelegram, "123456")

	for i := 0; i < models.MaxFiltersPerUser; i++ {
		_, err := store.AddFilter(ctx, &models.UserFilter{UserID: user.ID, PropertyType: "apartment", City: 10009580})
		assert.NoError(t, err)
	}

	_, err := store.AddFilter(ctx, &models.UserFilter{UserID: user.ID, PropertyType: "apartment", City: 10009580})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateFilterUnknownUser(t *testing.T) {
	store := NewMockStore()
	err := store.UpdateFilter(context.Background(), &models.UserFilter{ID: 1, UserID: 999})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAddFavoriteCapAndDuplicate(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()
	user, _ := store.GetOrCreateUser(ctx, models.PlatformViber, "uuid-like-viber-user-000001")

	assert.NoError(t, store.AddFavorite(ctx, user.ID, 1))
	assert.ErrorIs(t, store.AddFavorite(ctx, user.ID, 1), ErrValidation)

	for i := int64(2); i <= models.MaxFavoritesPerUser; i++ {
		assert.NoError(t, store.AddFavorite(ctx, user.ID, i))
	}
	assert.ErrorIs(t, store.AddFavorite(ctx, user.ID, 999), ErrValidation)
}

func TestSubscriptionStatus(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()
	user, _ := store.GetOrCreateUser(ctx, models.PlatformTelegram, "123456")

	status, err := store.GetSubscriptionStatus(ctx, user.ID)
	assert.NoError(t, err)
	assert.True(t, status.Active)
	assert.True(t, status.FreeActive)
	assert.False(t, status.PaidActive)

	assert.NoError(t, store.ExtendSubscription(ctx, user.ID, 30))
	status, _ = store.GetSubscriptionStatus(ctx, user.ID)
	assert.True(t, status.PaidActive)

	// unknown user is absence, not an error
	status, err = store.GetSubscriptionStatus(ctx, 999)
	assert.NoError(t, err)
	assert.Nil(t, status)
}

func TestRemoveFilterAbsentIsNoop(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()
	user, _ := store.GetOrCreateUser(ctx, models.PlatformTelegram, "123456")
	assert.NoError(t, store.RemoveFilter(ctx, user.ID, 42))
}

func TestListFiltersPaginated(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()
	user, _ := store.GetOrCreateUser(ctx, models.PlatformTelegram, "123456")
	for i := 0; i < 12; i++ {
		_, err := store.AddFilter(ctx, &models.UserFilter{UserID: user.ID, PropertyType: "apartment", City: 10012684})
		assert.NoError(t, err)
	}

	page, total, err := store.ListFiltersPaginated(ctx, user.ID, 3, 5)
	assert.NoError(t, err)
	assert.Equal(t, 12, total)
	assert.Len(t, page, 2)

	page, total, err = store.ListFiltersPaginated(ctx, user.ID, 9, 5)
	assert.NoError(t, err)
	assert.Equal(t, 12, total)
	assert.Empty(t, page)
}
