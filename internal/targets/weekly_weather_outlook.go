package targets

import ex "pagasa/internal/extracthtml"

var weeklyPage = ex.Chain{
	find("div", "row weather-page"),
	find("div", "col-md-12 col-lg-12"),
}

var weeklyWeatherOutlook = ex.Target{
	Name: "weekly_weather_outlook",
	URL:  BaseURL + "/weather/weekly-weather-outlook",
	Dir:  "weekly_weather_outlook",
	Fields: []ex.Field{
		{
			Name:        "issued_datetime",
			Chain:       under(weeklyPage, find("div", "panel-heading"), normalized()),
			StripPrefix: "Issued at:",
		},
		{
			Name:  "weekly_weather_outlook",
			Shape: ex.ShapeTable,
			Chain: under(weeklyPage, find("table", "table")),
			Table: &ex.TableSpec{
				RowTag:  "tr",
				CellTag: "td",
				Cells:   2,
				Columns: columns("date_range", "weather_outlook"),
			},
		},
	},
}
