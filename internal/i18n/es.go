package i18n

// GetSpanishTranslations returns all Spanish text strings
func GetSpanishTranslations() Translations {
	return Translations{
		LiveServersBusy: "Servidores en vivo ocupados. Mostrando puntos de rescate locales.",
		LocationDenied:  "Ubicación denegada",
		NoStationsFound: "No se encontraron gasolineras cercanas.",
		StationsFound:   "gasolineras encontradas",

		RoutingFailed: "Ruta no disponible. Aún puedes pedir combustible.",
		KmAway:        "km de distancia",
		MinutesAway:   "min",

		RequestSent:     "¡Solicitud enviada!",
		RescueCompleted: "¡Rescate completado!",
		RescueCancelled: "Rescate cancelado.",
		DeliveryActive:  "Ya hay una entrega en camino.",

		InvalidCredentials: "Email o contraseña incorrectos.",
		EmailTaken:         "Ya existe una cuenta con este email.",
		Registered:         "Cuenta creada. Ya puedes iniciar sesión.",
	}
}
