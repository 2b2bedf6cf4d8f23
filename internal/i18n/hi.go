package i18n

func GetHindiTranslations() Translations {
	return Translations{
		LiveServersBusy: "लाइव सर्वर व्यस्त हैं। स्थानीय रेस्क्यू पॉइंट दिखाए जा रहे हैं।",
		LocationDenied:  "लोकेशन की अनुमति नहीं मिली",
		NoStationsFound: "आस-पास कोई पेट्रोल पंप नहीं मिला।",
		StationsFound:   "पेट्रोल पंप मिले",

		RoutingFailed: "रास्ता उपलब्ध नहीं है। आप फिर भी ईंधन मंगा सकते हैं।",
		KmAway:        "किमी दूर",
		MinutesAway:   "मिनट",

		RequestSent:     "अनुरोध भेज दिया गया!",
		RescueCompleted: "रेस्क्यू पूरा हुआ!",
		RescueCancelled: "रेस्क्यू रद्द किया गया।",
		DeliveryActive:  "एक डिलीवरी पहले से रास्ते में है।",

		InvalidCredentials: "ईमेल या पासवर्ड गलत है।",
		EmailTaken:         "इस ईमेल से पहले से एक खाता मौजूद है।",
		Registered:         "खाता बन गया। अब आप लॉग इन कर सकते हैं।",
	}
}
