package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Yanlebed/htode-sub000/app/models"
)

// Messenger is a single platform adapter. Adapters own exactly one
// SDK/HTTP client each and render platform-specific UI; everything
// above them speaks this interface only.
type Messenger interface {
	Platform() models.Platform
	// FormatUserID renders a stored platform id the way the transport
	// expects it on the wire.
	FormatUserID(platformID string) string
	// CreateKeyboard builds the platform's native keyboard for a set of
	// options. Nil when the platform renders menus as plain text.
	CreateKeyboard(options []models.MenuOption) any
	SendText(ctx context.Context, platformID string, text string) error
	SendMedia(ctx context.Context, platformID string, mediaURL string, caption string) error
	SendMenu(ctx context.Context, platformID string, text string, options []models.MenuOption) error
	SendAd(ctx context.Context, platformID string, ad *models.Ad) error
}

// PermanentError marks failures that retrying cannot fix: the user
// blocked the bot, deleted the chat, deactivated the account.
// Adapters classify, senders drop these without retry.
type PermanentError struct {
	Reason string
}

func (e *PermanentError) Error() string {
	return "permanent delivery failure: " + e.Reason
}

// IsPermanent reports whether err (anywhere in its chain) is a
// PermanentError.
func IsPermanent(err error) bool {
	var permanent *PermanentError
	return errors.As(err, &permanent)
}

// permanentMarkers are the API error fragments that mean the
// recipient is gone for good, across all three platforms.
var permanentMarkers = []string{
	"bot was blocked",
	"chat not found",
	"user is deactivated",
	"bot was kicked",
	"receiver not registered", // viber status 5
	"receiver not subscribed", // viber status 6
	"is not a valid whatsapp user",
}

// classifySendError wraps recognizable dead-recipient responses as
// permanent; anything else stays transient and retryable.
func classifySendError(err error) error {
	if err == nil {
		return nil
	}
	message := strings.ToLower(err.Error())
	for _, marker := range permanentMarkers {
		if strings.Contains(message, marker) {
			return &PermanentError{Reason: err.Error()}
		}
	}
	return err
}

// Registry holds the constructed adapters. Built once at startup and
// passed down, not a process-wide singleton.
type Registry struct {
	adapters map[models.Platform]Messenger
}

func NewRegistry(adapters ...Messenger) *Registry {
	registry := &Registry{adapters: make(map[models.Platform]Messenger)}
	for _, adapter := range adapters {
		registry.adapters[adapter.Platform()] = adapter
	}
	return registry
}

// Get returns the adapter for a platform.
func (r *Registry) Get(platform models.Platform) (Messenger, error) {
	adapter, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for platform %q", platform)
	}
	return adapter, nil
}

// Platforms lists registered platforms in priority order.
func (r *Registry) Platforms() []models.Platform {
	platforms := []models.Platform{}
	for _, platform := range models.AllPlatforms {
		if _, ok := r.adapters[platform]; ok {
			platforms = append(platforms, platform)
		}
	}
	return platforms
}
