package messaging

import (
	"context"
	"time"

	"github.com/Yanlebed/htode-sub000/app/config"
	"github.com/Yanlebed/htode-sub000/app/identity"
	"github.com/Yanlebed/htode-sub000/app/models"

	"github.com/sirupsen/logrus"
	backoff "gopkg.in/cenkalti/backoff.v1"
)

const (
	DefaultRetries   = 3
	DefaultBaseDelay = time.Second
)

// Sender is the unified outbound surface. The Safe* functions accept
// any id the rest of the system holds (database id or platform-native
// id), resolve it, and never return an error: delivery failure after
// retries is a false result, logged, and the caller moves on.
type Sender struct {
	Resolver  *identity.Resolver
	Registry  *Registry
	Service   *Service
	Retries   int
	BaseDelay time.Duration
}

func NewSender(resolver *identity.Resolver, registry *Registry, service *Service) *Sender {
	return &Sender{
		Resolver:  resolver,
		Registry:  registry,
		Service:   service,
		Retries:   DefaultRetries,
		BaseDelay: DefaultBaseDelay,
	}
}

// newBackOff grows the delay exponentially with ±20% jitter. The
// attempt cap is enforced by the send loop, not the policy.
func (s *Sender) newBackOff() backoff.BackOff {
	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = s.BaseDelay
	exponential.Multiplier = 2
	exponential.RandomizationFactor = 0.2
	exponential.MaxElapsedTime = 0
	exponential.Reset()
	return exponential
}

// SafeSendMessage delivers a text. Users known by database id go
// through the Service first (its delivery path has its own queueing),
// only falling back to a direct retried adapter send.
func (s *Sender) SafeSendMessage(ctx context.Context, rawID string, hint models.Platform, text string) bool {
	resolved, err := s.Resolver.Resolve(ctx, rawID, hint)
	if err != nil {
		logrus.Errorf("send message: resolve %q failed: %v", rawID, err)
		return false
	}

	if resolved.DBUserID != 0 && s.Service != nil {
		if err := s.Service.SendNotification(ctx, resolved.DBUserID, text); err == nil {
			return true
		} else {
			logrus.Warnf("service send to user %d failed, falling back to direct send: %v", resolved.DBUserID, err)
		}
	}

	if resolved.Platform == "" {
		logrus.Errorf("send message: no delivery address for %q", rawID)
		return false
	}
	return s.sendWithRetry(ctx, resolved.Platform, resolved.PlatformID, func(adapter Messenger) error {
		return adapter.SendText(ctx, resolved.PlatformID, text)
	})
}

// SafeSendMedia delivers a photo, Service-first like text. When every
// attempt fails and there is a caption, it degrades to a text message
// embedding the URL so the user still gets the content.
func (s *Sender) SafeSendMedia(ctx context.Context, rawID string, hint models.Platform, mediaURL, caption string) bool {
	resolved, err := s.Resolver.Resolve(ctx, rawID, hint)
	if err != nil {
		logrus.Errorf("send media: cannot resolve %q: %v", rawID, err)
		return false
	}

	if resolved.DBUserID != 0 && s.Service != nil {
		if err := s.Service.SendMediaNotification(ctx, resolved.DBUserID, mediaURL, caption); err == nil {
			return true
		} else {
			logrus.Warnf("service media send to user %d failed, falling back to direct send: %v", resolved.DBUserID, err)
		}
	}

	if resolved.Platform == "" {
		logrus.Errorf("send media: no delivery address for %q", rawID)
		return false
	}
	sent := s.sendWithRetry(ctx, resolved.Platform, resolved.PlatformID, func(adapter Messenger) error {
		return adapter.SendMedia(ctx, resolved.PlatformID, mediaURL, caption)
	})
	if sent {
		return true
	}
	if caption != "" {
		logrus.Warnf("media send to %s failed, degrading to text", resolved.PlatformID)
		return s.sendWithRetry(ctx, resolved.Platform, resolved.PlatformID, func(adapter Messenger) error {
			return adapter.SendText(ctx, resolved.PlatformID, caption+"\n"+mediaURL)
		})
	}
	return false
}

// SafeSendMenu always goes through the platform adapter so the menu
// renders with the platform's native UI.
func (s *Sender) SafeSendMenu(ctx context.Context, rawID string, hint models.Platform, text string, options []models.MenuOption) bool {
	resolved, err := s.Resolver.Resolve(ctx, rawID, hint)
	if err != nil || resolved.Platform == "" {
		logrus.Errorf("send menu: cannot resolve %q: %v", rawID, err)
		return false
	}
	return s.sendWithRetry(ctx, resolved.Platform, resolved.PlatformID, func(adapter Messenger) error {
		return adapter.SendMenu(ctx, resolved.PlatformID, text, options)
	})
}

// SafeSendAd delivers a listing card directly via the adapter.
func (s *Sender) SafeSendAd(ctx context.Context, rawID string, hint models.Platform, ad *models.Ad) bool {
	resolved, err := s.Resolver.Resolve(ctx, rawID, hint)
	if err != nil || resolved.Platform == "" {
		logrus.Errorf("send ad: cannot resolve %q: %v", rawID, err)
		return false
	}
	return s.sendWithRetry(ctx, resolved.Platform, resolved.PlatformID, func(adapter Messenger) error {
		return adapter.SendAd(ctx, resolved.PlatformID, ad)
	})
}

func (s *Sender) sendWithRetry(ctx context.Context, platform models.Platform, platformID string, send func(Messenger) error) bool {
	adapter, err := s.Registry.Get(platform)
	if err != nil {
		logrus.Errorf("send to %s: %v", platformID, err)
		return false
	}

	policy := s.newBackOff()
	var lastErr error
	for attempt := 1; attempt <= s.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		if lastErr = send(adapter); lastErr == nil {
			return true
		}
		if attempt == s.Retries {
			break
		}
		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			lastErr = ctx.Err()
			attempt = s.Retries
		}
	}
	logrus.Errorf("send to %s via %s failed after %d attempts: %v", platformID, platform, s.Retries, lastErr)
	config.CONFIG.DataDogClient.Incr("messaging.send_failed", []string{"platform:" + string(platform)}, 1)
	return false
}
