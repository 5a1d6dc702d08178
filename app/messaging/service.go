package messaging

import (
	"context"
	"fmt"

	"github.com/Yanlebed/htode-sub000/app/config"
	"github.com/Yanlebed/htode-sub000/app/db/postgres"
	"github.com/Yanlebed/htode-sub000/app/models"

	"github.com/sirupsen/logrus"
)

// Service delivers to users addressed by database id: it picks the
// user's platform in priority order and dispatches to that adapter.
// One attempt per call, the caller decides about retries.
type Service struct {
	Store    postgres.Store
	Registry *Registry
}

func NewService(store postgres.Store, registry *Registry) *Service {
	return &Service{Store: store, Registry: registry}
}

// GetUserPlatform resolves the user's delivery platform and address,
// first linked platform in priority order wins.
func (s *Service) GetUserPlatform(ctx context.Context, userID int64) (models.Platform, string, error) {
	platformIDs, err := s.Store.GetPlatformIDs(ctx, userID)
	if err != nil {
		return "", "", err
	}
	for _, platform := range models.AllPlatforms {
		if platformID, ok := platformIDs[platform]; ok && platformID != "" {
			return platform, platformID, nil
		}
	}
	return "", "", fmt.Errorf("user %d has no linked platform", userID)
}

// SendNotification sends a text to a user by database id.
func (s *Service) SendNotification(ctx context.Context, userID int64, text string) error {
	platform, platformID, err := s.GetUserPlatform(ctx, userID)
	if err != nil {
		return err
	}
	adapter, err := s.Registry.Get(platform)
	if err != nil {
		return err
	}
	if err := adapter.SendText(ctx, platformID, text); err != nil {
		return err
	}
	config.CONFIG.DataDogClient.Incr("messaging.notification_sent", []string{"platform:" + string(platform)}, 1)
	return nil
}

// SendMediaNotification sends a photo with a caption to a user by
// database id.
func (s *Service) SendMediaNotification(ctx context.Context, userID int64, mediaURL, caption string) error {
	platform, platformID, err := s.GetUserPlatform(ctx, userID)
	if err != nil {
		return err
	}
	adapter, err := s.Registry.Get(platform)
	if err != nil {
		return err
	}
	if err := adapter.SendMedia(ctx, platformID, mediaURL, caption); err != nil {
		return err
	}
	config.CONFIG.DataDogClient.Incr("messaging.media_sent", []string{"platform:" + string(platform)}, 1)
	return nil
}

// SendAdNotification delivers a listing card to a user by database id.
func (s *Service) SendAdNotification(ctx context.Context, userID int64, ad *models.Ad) error {
	platform, platformID, err := s.GetUserPlatform(ctx, userID)
	if err != nil {
		return err
	}
	adapter, err := s.Registry.Get(platform)
	if err != nil {
		return err
	}
	if err := adapter.SendAd(ctx, platformID, ad); err != nil {
		return err
	}
	logrus.Debugf("sent ad %d to user %d via %s", ad.ID, userID, platform)
	config.CONFIG.DataDogClient.Incr("messaging.ad_sent", []string{"platform:" + string(platform)}, 1)
	return nil
}
