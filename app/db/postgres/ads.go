package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Yanlebed/htode-sub000/app/models"
)

const adColumns = `id, external_id, resource_url, property_type, city, address,
	price, rooms_count, square_feet, floor, total_floors`

// GetFullAd returns the listing with images and contact phones, nil
// when absent. Ads are immutable once scraped so the cache tier is long.
func (c *Client) GetFullAd(ctx context.Context, adID int64) (*models.Ad, error) {
	if ad, found := c.ads.GetFullAd(adID); found {
		return ad, nil
	}
	ad := &models.Ad{}
	err := c.db.GetContext(ctx, ad,
		"SELECT "+adColumns+" FROM ads WHERE id = $1", adID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ad %d: %w", adID, err)
	}

	images, err := c.GetAdImages(ctx, adID)
	if err != nil {
		return nil, err
	}
	ad.Images = images

	err = c.db.SelectContext(ctx, &ad.Phones,
		"SELECT phone FROM ad_phones WHERE ad_id = $1 ORDER BY id", adID)
	if err != nil {
		return nil, fmt.Errorf("get phones for ad %d: %w", adID, err)
	}

	c.ads.SetFullAd(ad)
	return ad, nil
}

// GetAdImages returns the image URLs in listing order, cached.
func (c *Client) GetAdImages(ctx context.Context, adID int64) ([]string, error) {
	if images, found := c.ads.GetImages(adID); found {
		return images, nil
	}
	images := []string{}
	err := c.db.SelectContext(ctx, &images,
		"SELECT image_url FROM ad_images WHERE ad_id = $1 ORDER BY id", adID)
	if err != nil {
		return nil, fmt.Errorf("get images for ad %d: %w", adID, err)
	}
	if len(images) > 0 {
		c.ads.SetImages(adID, images)
	}
	return images, nil
}

// GetAdDescription returns the long listing text, cached raw since it
// is plain text and can exceed typical JSON payload sizes.
func (c *Client) GetAdDescription(ctx context.Context, resourceURL string) (string, error) {
	if description, found := c.ads.GetDescription(resourceURL); found {
		return description, nil
	}
	var description string
	err := c.db.GetContext(ctx, &description,
		"SELECT description FROM ads WHERE resource_url = $1", resourceURL)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get description for %s: %w", resourceURL, err)
	}
	if description != "" {
		c.ads.SetDescription(resourceURL, description)
	}
	return description, nil
}

// SaveAd upserts a scraped listing by external id and replaces its
// images, then sweeps every cache entry derived from the ad.
func (c *Client) SaveAd(ctx context.Context, ad *models.Ad) (int64, error) {
	query := `INSERT INTO ads
		(external_id, resource_url, property_type, city, address, price,
		 rooms_count, square_feet, floor, total_floors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (external_id) DO UPDATE SET
			resource_url = EXCLUDED.resource_url, price = EXCLUDED.price,
			address = EXCLUDED.address
		RETURNING id`
	var adID int64
	err := c.db.GetContext(ctx, &adID, query,
		ad.ExternalID, ad.ResourceURL, ad.PropertyType, ad.City, ad.Address,
		ad.Price, ad.RoomsCount, ad.SquareFeet, ad.Floor, ad.TotalFloors)
	if err != nil {
		return 0, fmt.Errorf("save ad %s: %w", ad.ExternalID, err)
	}

	if len(ad.Images) > 0 {
		if _, err := c.db.ExecContext(ctx, "DELETE FROM ad_images WHERE ad_id = $1", adID); err != nil {
			return 0, fmt.Errorf("reset images for ad %d: %w", adID, err)
		}
		for _, image := range ad.Images {
			if _, err := c.db.ExecContext(ctx,
				"INSERT INTO ad_images (ad_id, image_url) VALUES ($1, $2)", adID, image); err != nil {
				return 0, fmt.Errorf("save image for ad %d: %w", adID, err)
			}
		}
	}

	c.ads.InvalidateAll(adID)
	return adID, nil
}

// FindUsersForAd returns ids of users whose active filters match the
// ad and whose subscription allows alerts. Cached on the short tier:
// filters change often and the result feeds a one-shot notification.
func (c *Client) FindUsersForAd(ctx context.Context, adID int64) ([]int64, error) {
	if users, found := c.ads.GetMatchingUsers(adID); found {
		return users, nil
	}
	ad, err := c.GetFullAd(ctx, adID)
	if err != nil {
		return nil, err
	}
	if ad == nil {
		return []int64{}, nil
	}

	query := `SELECT DISTINCT f.user_id
		FROM user_filters f
		JOIN users u ON u.id = f.user_id
		WHERE f.is_paused = FALSE
		  AND f.property_type = $1
		  AND f.city = $2
		  AND (f.rooms_count = '{}' OR $3 = ANY(f.rooms_count))
		  AND (f.price_min IS NULL OR $4 >= f.price_min)
		  AND (f.price_max IS NULL OR $4 <= f.price_max)
		  AND (f.floor_max IS NULL OR $5 <= f.floor_max)
		  AND (f.is_not_first_floor IS NOT TRUE OR $5 > 1)
		  AND (f.is_not_last_floor IS NOT TRUE OR $5 < $6)
		  AND (COALESCE(u.free_until, 'epoch') > NOW() OR COALESCE(u.subscription_until, 'epoch') > NOW())
		ORDER BY f.user_id`
	users := []int64{}
	err = c.db.SelectContext(ctx, &users, query,
		ad.PropertyType, ad.City, ad.RoomsCount, ad.Price, ad.Floor, ad.TotalFloors)
	if err != nil {
		return nil, fmt.Errorf("find users for ad %d: %w", adID, err)
	}
	if len(users) > 0 {
		c.ads.SetMatchingUsers(adID, users)
	}
	return users, nil
}
