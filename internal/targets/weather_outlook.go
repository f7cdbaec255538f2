package targets

import ex "pagasa/internal/extracthtml"

// The cities and tourist-areas outlook pages share one layout: an issue block
// with two <b> values, then one collapsible panel per place holding a
// date-by-date table.

var outlookPage = ex.Chain{find("div", "row weather-page")}

const rainChanceStyle = "font-weight:bold; color: rgb(9, 73, 156);"

func outlookValidity(name string, i int) ex.Field {
	return ex.Field{
		Name: name,
		Chain: under(outlookPage,
			find("div", "col-md-12 col-lg-12 issue"),
			find("div", "validity"),
			findAt("b", "", i),
			normalized(),
		),
	}
}

func outlookGroups(name string) ex.Field {
	table := ex.Chain{find("table", "table")}
	forecastRow := under(table, find("tr", "desktop-view-tr"))
	return ex.Field{
		Name:  name,
		Shape: ex.ShapeGroups,
		Chain: under(outlookPage, find("div", "col-md-12 col-lg-12"), find("div", "panel-group")),
		Groups: &ex.GroupSpec{
			Item: ex.ItemSpec{Tag: "div", Class: "panel panel-default panel-pagasa"},
			Key:  ex.Chain{find("a", ""), trimmed()},
			Fields: []ex.Field{
				{
					Name:  "weather_dates",
					Shape: ex.ShapeList,
					Chain: table,
					Items: &ex.ItemSpec{Tag: "th"},
				},
				{
					Name:  "temperature_ranges",
					Shape: ex.ShapeTuples,
					Chain: forecastRow,
					Table: &ex.TableSpec{
						RowTag: "td",
						Columns: []ex.Column{
							{Name: "min", Chain: ex.Chain{find("span", "min"), trimmed()}},
							{Name: "max", Chain: ex.Chain{find("span", "max"), trimmed()}},
						},
					},
				},
				{
					Name:  "chance_of_rain_percentages",
					Shape: ex.ShapeList,
					Chain: forecastRow,
					Items: &ex.ItemSpec{
						Tag:   "td",
						Chain: ex.Chain{findAttr("span", "style", rainChanceStyle), trimmed()},
					},
				},
			},
		},
	}
}

func outlookTarget(name, path, groupsField string) ex.Target {
	return ex.Target{
		Name: name,
		URL:  BaseURL + path,
		Dir:  name,
		Fields: []ex.Field{
			outlookValidity("issued_datetime", 0),
			outlookValidity("valid_period", 1),
			outlookGroups(groupsField),
		},
	}
}

var weatherOutlookForPHCities = outlookTarget(
	"weather_outlook_for_ph_cities",
	"/weather/weather-outlook-selected-philippine-cities",
	"ph_cities_weather_outlook",
)

var weatherOutlookForPHTouristAreas = outlookTarget(
	"weather_outlook_for_ph_tourist_areas",
	"/weather/weather-outlook-selected-tourist-areas",
	"ph_tourist_areas_weather_outlook",
)
