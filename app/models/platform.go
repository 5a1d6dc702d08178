package models

import "strings"

// Platform identifies one of the supported messaging platforms.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformViber    Platform = "viber"
	PlatformWhatsApp Platform = "whatsapp"
)

// AllPlatforms is the resolution priority order used when a user is linked
// to more than one platform.
var AllPlatforms = []Platform{PlatformTelegram, PlatformViber, PlatformWhatsApp}

func (p Platform) String() string {
	return string(p)
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformTelegram, PlatformViber, PlatformWhatsApp:
		return true
	}
	return false
}

// ParsePlatform maps a free-form platform name to a Platform, empty on no match.
func ParsePlatform(s string) Platform {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "telegram":
		return PlatformTelegram
	case "viber":
		return PlatformViber
	case "whatsapp":
		return PlatformWhatsApp
	}
	return ""
}
