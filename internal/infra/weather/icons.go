package weather

import "log/slog"

// DefaultIcon is shown when the weather code is unknown.
const DefaultIcon = "❓"

// icons maps Meteosource weather codes to caption emoji.
var icons = map[string]string{
	"not_available":            "❓",
	"sunny":                    "☀️",
	"mostly_sunny":             "🌤️",
	"partly_sunny":             "⛅",
	"mostly_cloudy":            "🌥️",
	"cloudy":                   "☁️",
	"overcast":                 "☁️",
	"overcast_with_low_clouds": "☁️",

	"fog": "🌫️",

	"light_rain":          "🌦️",
	"rain":                "🌧️",
	"possible_rain":       "🌦️",
	"rain_shower":         "🌧️",
	"thunderstorm":        "⛈️",
	"local_thunderstorms": "⛈️",

	"light_snow":             "🌨️",
	"snow":                   "🌨️",
	"possible_snow":          "🌨️",
	"snow_shower":            "🌨️",
	"rain_and_snow":          "🌨️",
	"possible_rain_and_snow": "🌨️",
	"freezing_rain":          "🌨️",
	"possible_freezing_rain": "🌨️",
	"hail":                   "🌨️",

	"clear_night":                    "🌙",
	"mostly_clear_night":             "🌙",
	"partly_clear_night":             "🌙",
	"mostly_cloudy_night":            "☁️",
	"cloudy_night":                   "☁️",
	"overcast_with_low_clouds_night": "☁️",
	"rain_shower_night":              "🌧️",
	"local_thunderstorms_night":      "⛈️",
	"snow_shower_night":              "🌨️",
	"rain_and_snow_night":            "🌨️",
	"possible_freezing_rain_night":   "🌨️",
}

// Icon returns the emoji for a Meteosource weather code.
func Icon(code string) string {
	if icon, ok := icons[code]; ok {
		return icon
	}
	slog.Warn("no weather icon for code, using default", slog.String("code", code))
	return DefaultIcon
}
