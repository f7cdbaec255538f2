package targets

import ex "pagasa/internal/extracthtml"

// The advisory itself is a PDF embedded through an iframe; its src is stored.
var weatherAdvisory = ex.Target{
	Name: "weather_advisory",
	URL:  BaseURL + "/weather/weather-advisory",
	Dir:  "weather_advisory",
	Fields: []ex.Field{
		{
			Name: "weather_advisory",
			Chain: ex.Chain{
				find("div", "row marine"),
				find("div", "weekly-content-adv"),
				find("iframe", ""),
				attr("src"),
			},
			Resolve: true,
		},
	},
}
