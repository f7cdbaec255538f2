package targets

import ex "pagasa/internal/extracthtml"

// The forecast page keeps each section in its own panel, in this order.
const (
	dwfSynopsisPanel = iota
	dwfTCPanel
	dwfWeatherPanel
	dwfWindPanel
	dwfTemperaturePanel
)

var dwfPage = ex.Chain{findAttr("div", "id", "daily-weather-forecast")}

func dwfPanel(i int) ex.Chain {
	return under(dwfPage, findAt("div", "panel panel-default", i))
}

func dwfTable(name string, i int, cols ...string) ex.Field {
	return ex.Field{
		Name:  name,
		Shape: ex.ShapeTable,
		Chain: under(dwfPanel(i), find("table", "")),
		Table: &ex.TableSpec{
			RowTag:  "tr",
			CellTag: "td",
			Cells:   len(cols),
			Columns: columns(cols...),
		},
	}
}

var dailyWeatherForecast = ex.Target{
	Name: "daily_weather_forecast",
	URL:  BaseURL + "/weather#daily-weather-forecast",
	Dir:  "daily_weather_forecast",
	Fields: []ex.Field{
		{
			Name:        "issued_datetime",
			Chain:       under(dwfPage, find("div", "issue"), normalized()),
			StripPrefix: "Issued at:",
		},
		{
			Name:  "synopsis",
			Chain: under(dwfPanel(dwfSynopsisPanel), find("div", "panel-body"), normalized()),
		},
		{
			Name:  "tc_information",
			Chain: under(dwfPanel(dwfTCPanel), find("div", "panel-body"), normalized()),
		},
		dwfTable("forecast_weather_conditions", dwfWeatherPanel,
			"place", "weather_condition", "caused_by", "impacts"),
		dwfTable("forecast_wind_and_coastal_water_conditions", dwfWindPanel,
			"place", "speed", "direction", "coastal_water"),
		dwfTable("temperature_and_relative_humidity", dwfTemperaturePanel,
			"parameter", "maximum", "minimum"),
	},
}
