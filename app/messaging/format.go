package messaging

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Yanlebed/htode-sub000/app/models"
)

var propertyTypeNames = map[string]string{
	"apartment": "Квартира",
	"house":     "Будинок",
	"room":      "Кімната",
}

// FormatAdText renders the listing card body shared by all platforms.
// Buttons and media are platform-specific, the copy is not.
func FormatAdText(ad *models.Ad) string {
	propertyType, ok := propertyTypeNames[ad.PropertyType]
	if !ok {
		propertyType = ad.PropertyType
	}

	lines := []string{
		"🏠 " + propertyType,
		fmt.Sprintf("📍 %s, %s", ad.Address, models.CityName(ad.City)),
		fmt.Sprintf("💰 %.0f грн", ad.Price),
	}
	if ad.RoomsCount > 0 {
		lines = append(lines, fmt.Sprintf("🛏 Кімнат: %d", ad.RoomsCount))
	}
	if ad.SquareFeet > 0 {
		lines = append(lines, fmt.Sprintf("📐 Площа: %.0f м²", ad.SquareFeet))
	}
	if ad.Floor > 0 && ad.TotalFloors > 0 {
		lines = append(lines, fmt.Sprintf("🏢 Поверх: %d/%d", ad.Floor, ad.TotalFloors))
	}
	return strings.Join(lines, "\n")
}

// AdMenuOptions is the platform-neutral action set under a listing
// card. Adapters decide how each option renders.
func AdMenuOptions(ad *models.Ad) []models.MenuOption {
	adID := strconv.FormatInt(ad.ID, 10)
	return []models.MenuOption{
		{Text: "🖼 Більше фото", Value: "photos:" + adID},
		{Text: "📲 Подзвонити", Value: "phones:" + adID},
		{Text: "❤️ Додати в обрані", Value: "add_fav:" + adID},
		{Text: "ℹ️ Повний опис", Value: "show_more:" + ad.ResourceURL},
	}
}

// FormatMenuText renders a numbered menu for platforms without native
// button support.
func FormatMenuText(text string, options []models.MenuOption) string {
	lines := []string{text, ""}
	for i, option := range options {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, option.Text))
	}
	lines = append(lines, "", "Введіть номер опції:")
	return strings.Join(lines, "\n")
}
