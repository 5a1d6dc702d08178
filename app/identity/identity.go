package identity

import (
	"context"
	"strconv"
	"strings"

	"github.com/Yanlebed/htode-sub000/app/db/postgres"
	"github.com/Yanlebed/htode-sub000/app/models"
	"github.com/Yanlebed/htode-sub000/app/util"

	"github.com/sirupsen/logrus"
)

// Identity is the resolved triple. Platform and PlatformID are either
// both set or both empty, never one without the other.
type Identity struct {
	DBUserID   int64
	Platform   models.Platform
	PlatformID string
}

type Resolver struct {
	Store postgres.Store
}

func NewResolver(store postgres.Store) *Resolver {
	return &Resolver{Store: store}
}

// Resolve turns a raw id from any layer into a database identity and
// a preferred platform address. Absence is reported through zero
// fields, never an error: an unknown platform-native id still returns
// its platform and id so the caller can create the user.
func (r *Resolver) Resolve(ctx context.Context, rawID string, hint models.Platform) (Identity, error) {
	if util.IsDigits(rawID) {
		dbID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return Identity{}, err
		}
		resolved, err := r.resolveDatabaseID(ctx, dbID)
		if err != nil {
			return Identity{}, err
		}
		// a numeric id matching no user row is most likely a telegram
		// chat id when the caller told us the platform
		if resolved.DBUserID == 0 && hint.Valid() {
			return r.resolveNativeID(ctx, rawID, hint)
		}
		return resolved, nil
	}

	platform := hint
	if !platform.Valid() {
		platform = DetectPlatform(rawID)
	}
	return r.resolveNativeID(ctx, rawID, platform)
}

// resolveNativeID looks up the owner of a platform-native id. Ids are
// stored verbatim, transport prefixes included, so resolve
// round-trips to the exact inbound id.
func (r *Resolver) resolveNativeID(ctx context.Context, platformID string, platform models.Platform) (Identity, error) {
	dbID, err := r.Store.GetUserIDByPlatformID(ctx, platform, platformID)
	if err != nil {
		return Identity{}, err
	}
	if dbID == 0 {
		logrus.Debugf("no user linked to %s id %s yet", platform, platformID)
	}
	return Identity{DBUserID: dbID, Platform: platform, PlatformID: platformID}, nil
}

// resolveDatabaseID picks the user's delivery platform in fixed
// priority order. A user with no linked platform resolves to the bare
// database id.
func (r *Resolver) resolveDatabaseID(ctx context.Context, dbID int64) (Identity, error) {
	user, err := r.Store.GetUserByID(ctx, dbID)
	if err != nil {
		return Identity{}, err
	}
	if user == nil {
		return Identity{}, nil
	}
	for _, platform := range models.AllPlatforms {
		if platformID, ok := user.PlatformID(platform); ok && platformID != "" {
			return Identity{DBUserID: dbID, Platform: platform, PlatformID: platformID}, nil
		}
	}
	return Identity{DBUserID: dbID}, nil
}

// DetectPlatform guesses the platform from the id shape. Best effort:
// unusually long Telegram ids or short Viber tokens misclassify.
func DetectPlatform(rawID string) models.Platform {
	if strings.HasPrefix(rawID, "whatsapp:") {
		return models.PlatformWhatsApp
	}
	if len(rawID) > 20 {
		return models.PlatformViber
	}
	return models.PlatformTelegram
}

// FormatForPlatform renders a stored platform id the way the
// transport expects it on the wire.
func FormatForPlatform(platform models.Platform, platformID string) string {
	if platform == models.PlatformWhatsApp && !strings.HasPrefix(platformID, "whatsapp:") {
		return "whatsapp:" + platformID
	}
	return platformID
}
