package i18n

// GetEnglishTranslations returns all English text strings
func GetEnglishTranslations() Translations {
	return Translations{
		LiveServersBusy: "Live servers busy. Showing local rescue points.",
		LocationDenied:  "Location Denied",
		NoStationsFound: "No fuel stations found nearby.",
		StationsFound:   "stations found",

		RoutingFailed: "Route unavailable. You can still request fuel.",
		KmAway:        "km away",
		MinutesAway:   "min",

		RequestSent:     "Request Sent!",
		RescueCompleted: "Rescue Completed!",
		RescueCancelled: "Rescue cancelled.",
		DeliveryActive:  "A delivery is already on its way.",

		InvalidCredentials: "Invalid email or password.",
		EmailTaken:         "An account with this email already exists.",
		Registered:         "Account created. You can now log in.",
	}
}
