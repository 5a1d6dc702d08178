package identity

import (
	"context"
	"testing"

	"github.com/Yanlebed/htode-sub000/app/db/postgres"
	"github.com/Yanlebed/htode-sub000/app/models"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform(t *testing.T) {
	assert.Equal(t, models.PlatformWhatsApp, DetectPlatform("whatsapp:15551234567"))
	assert.Equal(t, models.PlatformViber, DetectPlatform("8GBW7nV5HmPxFfqkV7Qz+A=="))
	assert.Equal(t, models.PlatformTelegram, DetectPlatform("123456789"))
}

func TestResolveWhatsAppShapeWithoutHint(t *testing.T) {
	store := postgres.NewMockStore()
	resolver := NewResolver(store)

	identity, err := resolver.Resolve(context.Background(), "whatsapp:15551234567", "")
	assert.NoError(t, err)
	assert.Zero(t, identity.DBUserID)
	assert.Equal(t, models.PlatformWhatsApp, identity.Platform)
	assert.Equal(t, "whatsapp:15551234567", identity.PlatformID)
}

func TestResolveDatabaseIDPlatformPriority(t *testing.T) {
	store := postgres.NewMockStore()
	resolver := NewResolver(store)
	ctx := context.Background()

	user, _ := store.GetOrCreateUser(ctx, models.PlatformViber, "viber-uuid-000000000000001")
	assert.NoError(t, store.LinkPlatformID(ctx, user.ID, models.PlatformTelegram, "555"))

	identity, err := resolver.Resolve(ctx, "7", "")
	assert.NoError(t, err)
	assert.Zero(t, identity.DBUserID) // unknown db id resolves to nothing
	assert.Empty(t, identity.Platform)

	identity, err = resolver.Resolve(ctx, "1", "")
	assert.NoError(t, err)
	assert.Equal(t, user.ID, identity.DBUserID)
	// telegram wins over viber when both are linked
	assert.Equal(t, models.PlatformTelegram, identity.Platform)
	assert.Equal(t, "555", identity.PlatformID)
}

func TestResolveIdempotentAndRoundTrip(t *testing.T) {
	store := postgres.NewMockStore()
	resolver := NewResolver(store)
	ctx := context.Background()

	user, _ := store.GetOrCreateUser(ctx, models.PlatformTelegram, "555")

	first, err := resolver.Resolve(ctx, "555", models.PlatformTelegram)
	assert.NoError(t, err)
	second, err := resolver.Resolve(ctx, "555", models.PlatformTelegram)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, user.ID, first.DBUserID)

	// resolving the returned db id lands back on the same platform address
	back, err := resolver.Resolve(ctx, "1", "")
	assert.NoError(t, err)
	assert.Equal(t, first.Platform, back.Platform)
	assert.Equal(t, first.PlatformID, back.PlatformID)
}

func TestResolveUserWithoutLinkedPlatform(t *testing.T) {
	store := postgres.NewMockStore()
	resolver := NewResolver(store)
	ctx := context.Background()

	user, _ := store.GetOrCreateUser(ctx, models.PlatformTelegram, "555")
	user.TelegramID.Valid = false
	user.TelegramID.String = ""

	identity, err := resolver.Resolve(ctx, "1", "")
	assert.NoError(t, err)
	assert.Equal(t, user.ID, identity.DBUserID)
	assert.Empty(t, identity.Platform)
	assert.Empty(t, identity.PlatformID)
}

func TestResolveNumericChatIDWithHint(t *testing.T) {
	store := postgres.NewMockStore()
	resolver := NewResolver(store)
	ctx := context.Background()

	user, _ := store.GetOrCreateUser(ctx, models.PlatformTelegram, "987654321")

	// no db user 987654321 exists, the hint reroutes to the chat id lookup
	identity, err := resolver.Resolve(ctx, "987654321", models.PlatformTelegram)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, identity.DBUserID)
	assert.Equal(t, models.PlatformTelegram, identity.Platform)
	assert.Equal(t, "987654321", identity.PlatformID)
}

func TestFormatForPlatform(t *testing.T) {
	assert.Equal(t, "whatsapp:15551234567", FormatForPlatform(models.PlatformWhatsApp, "15551234567"))
	assert.Equal(t, "whatsapp:15551234567", FormatForPlatform(models.PlatformWhatsApp, "whatsapp:15551234567"))
	assert.Equal(t, "555", FormatForPlatform(models.PlatformTelegram, "555"))
}
