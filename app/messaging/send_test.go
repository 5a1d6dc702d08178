package messaging

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/Yanlebed/htode-sub000/app/config"
	"github.com/Yanlebed/htode-sub000/app/db/postgres"
	"github.com/Yanlebed/htode-sub000/app/identity"
	"github.com/Yanlebed/htode-sub000/app/models"

	"github.com/stretchr/testify/assert"
)

func init() {
	config.CONFIG = &config.Config{}
}

// fakeMessenger counts calls and fails a configurable number of times.
type fakeMessenger struct {
	platform   models.Platform
	textCalls  int
	mediaCalls int
	menuCalls  int
	adCalls    int
	failTexts  int
	failMedia  int
}

func (f *fakeMessenger) Platform() models.Platform              { return f.platform }
func (f *fakeMessenger) FormatUserID(platformID string) string  { return platformID }
func (f *fakeMessenger) CreateKeyboard([]models.MenuOption) any { return nil }

func (f *fakeMessenger) SendText(ctx context.Context, platformID, text string) error {
	f.textCalls++
	if f.textCalls <= f.failTexts {
		return errors.New("connection reset")
	}
	return nil
}

func (f *fakeMessenger) SendMedia(ctx context.Context, platformID, mediaURL, caption string) error {
	f.mediaCalls++
	if f.mediaCalls <= f.failMedia {
		return errors.New("connection reset")
	}
	return nil
}

func (f *fakeMessenger) SendMenu(ctx context.Context, platformID, text string, options []models.MenuOption) error {
	f.menuCalls++
	return nil
}

func (f *fakeMessenger) SendAd(ctx context.Context, platformID string, ad *models.Ad) error {
	f.adCalls++
	return nil
}

func newTestSender(store postgres.Store, adapter Messenger, withService bool) *Sender {
	registry := NewRegistry(adapter)
	resolver := identity.NewResolver(store)
	var service *Service
	if withService {
		service = NewService(store, registry)
	}
	sender := NewSender(resolver, registry, service)
	sender.BaseDelay = time.Millisecond
	return sender
}

func newTelegramUser(t *testing.T, store postgres.Store) string {
	t.Helper()
	user, err := store.GetOrCreateUser(context.Background(), models.PlatformTelegram, "555")
	assert.NoError(t, err)
	return strconv.FormatInt(user.ID, 10)
}

func TestSafeSendMessageRetryBound(t *testing.T) {
	store := postgres.NewMockStore()
	adapter := &fakeMessenger{platform: models.PlatformTelegram, failTexts: 100}
	sender := newTestSender(store, adapter, false)
	dbID := newTelegramUser(t, store)

	ok := sender.SafeSendMessage(context.Background(), dbID, "", "hello")
	assert.False(t, ok)
	assert.Equal(t, DefaultRetries, adapter.textCalls)
}

func TestSafeSendMessageSucceedsAfterTransientFailures(t *testing.T) {
	store := postgres.NewMockStore()
	adapter := &fakeMessenger{platform: models.PlatformTelegram, failTexts: 2}
	sender := newTestSender(store, adapter, false)
	dbID := newTelegramUser(t, store)

	ok := sender.SafeSendMessage(context.Background(), dbID, "", "hello")
	assert.True(t, ok)
	assert.Equal(t, 3, adapter.textCalls)
}

func TestSafeSendMessagePrefersServiceForKnownUsers(t *testing.T) {
	store := postgres.NewMockStore()
	adapter := &fakeMessenger{platform: models.PlatformTelegram}
	sender := newTestSender(store, adapter, true)
	dbID := newTelegramUser(t, store)

	ok := sender.SafeSendMessage(context.Background(), dbID, "", "hello")
	assert.True(t, ok)
	assert.Equal(t, 1, adapter.textCalls)
}

func TestSafeSendMessageToPlatformNativeID(t *testing.T) {
	store := postgres.NewMockStore()
	adapter := &fakeMessenger{platform: models.PlatformViber}
	sender := newTestSender(store, adapter, false)

	// unknown viber token still gets a direct send
	ok := sender.SafeSendMessage(context.Background(), "viber-uuid-000000000000001", "", "hello")
	assert.True(t, ok)
	assert.Equal(t, 1, adapter.textCalls)
}

func TestSafeSendMediaPrefersServiceForKnownUsers(t *testing.T) {
	store := postgres.NewMockStore()
	adapter := &fakeMessenger{platform: models.PlatformTelegram}
	sender := newTestSender(store, adapter, true)
	dbID := newTelegramUser(t, store)

	ok := sender.SafeSendMedia(context.Background(), dbID, "",
		"https://cdn.example.com/1.jpg", "Нова квартира")
	assert.True(t, ok)
	assert.Equal(t, 1, adapter.mediaCalls)
}

func TestSafeSendMediaDegradesToText(t *testing.T) {
	store := postgres.NewMockStore()
	adapter := &fakeMessenger{platform: models.PlatformTelegram, failMedia: 100}
	sender := newTestSender(store, adapter, false)
	dbID := newTelegramUser(t, store)

	ok := sender.SafeSendMedia(context.Background(), dbID, "",
		"https://cdn.example.com/1.jpg", "Нова квартира")
	assert.True(t, ok)
	assert.Equal(t, DefaultRetries, adapter.mediaCalls)
	assert.Equal(t, 1, adapter.textCalls)
}

func TestSafeSendMediaWithoutCaptionFails(t *testing.T) {
	store := postgres.NewMockStore()
	adapter := &fakeMessenger{platform: models.PlatformTelegram, failMedia: 100}
	sender := newTestSender(store, adapter, false)
	dbID := newTelegramUser(t, store)

	ok := sender.SafeSendMedia(context.Background(), dbID, "",
		"https://cdn.example.com/1.jpg", "")
	assert.False(t, ok)
	assert.Zero(t, adapter.textCalls)
}

func TestSafeSendMenuSkipsService(t *testing.T) {
	store := postgres.NewMockStore()
	adapter := &fakeMessenger{platform: models.PlatformTelegram}
	sender := newTestSender(store, adapter, true)
	dbID := newTelegramUser(t, store)

	ok := sender.SafeSendMenu(context.Background(), dbID, "", "Меню", []models.MenuOption{
		{Text: "Пошук", Value: "property_search"},
	})
	assert.True(t, ok)
	assert.Equal(t, 1, adapter.menuCalls)
	assert.Zero(t, adapter.textCalls)
}

func TestSafeSendMessageUnresolvable(t *testing.T) {
	store := postgres.NewMockStore()
	adapter := &fakeMessenger{platform: models.PlatformTelegram}
	sender := newTestSender(store, adapter, false)

	// numeric raw id means database id; no such user, nothing to send
	ok := sender.SafeSendMessage(context.Background(), "424242", "", "hello")
	assert.False(t, ok)
	assert.Zero(t, adapter.textCalls)
}

func TestServiceGetUserPlatformPriority(t *testing.T) {
	store := postgres.NewMockStore()
	telegram := &fakeMessenger{platform: models.PlatformTelegram}
	viber := &fakeMessenger{platform: models.PlatformViber}
	registry := NewRegistry(telegram, viber)
	service := NewService(store, registry)
	ctx := context.Background()

	user, _ := store.GetOrCreateUser(ctx, models.PlatformViber, "viber-uuid-000000000000001")
	platform, _, err := service.GetUserPlatform(ctx, user.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.PlatformViber, platform)

	assert.NoError(t, store.LinkPlatformID(ctx, user.ID, models.PlatformTelegram, "555"))
	platform, platformID, err := service.GetUserPlatform(ctx, user.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.PlatformTelegram, platform)
	assert.Equal(t, "555", platformID)
}
