// Package i18n holds the user-visible messages of the rescue service.
package i18n

import "strings"

// Translations contains the text strings shown to users.
type Translations struct {
	// Discovery
	LiveServersBusy string
	LocationDenied  string
	NoStationsFound string
	StationsFound   string

	// Routing
	RoutingFailed string
	KmAway        string
	MinutesAway   string

	// Delivery
	RequestSent     string
	RescueCompleted string
	RescueCancelled string
	DeliveryActive  string

	// Accounts
	InvalidCredentials string
	EmailTaken         string
	Registered         string
}

// GetTranslations returns translations for the given language, English by default.
func GetTranslations(lang string) Translations {
	switch GetLanguageFromQuery(lang) {
	case "es":
		return GetSpanishTranslations()
	case "hi":
		return GetHindiTranslations()
	default:
		return GetEnglishTranslations()
	}
}

// GetLanguageFromQuery normalizes a lang query parameter or Accept-Language
// value to a supported language code.
func GetLanguageFromQuery(langParam string) string {
	lang := strings.ToLower(strings.TrimSpace(langParam))
	if i := strings.IndexAny(lang, ",;-_"); i >= 0 {
		lang = lang[:i]
	}
	switch lang {
	case "es", "spanish", "español":
		return "es"
	case "hi", "hindi":
		return "hi"
	default:
		return "en"
	}
}
