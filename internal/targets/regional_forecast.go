package targets

import ex "pagasa/internal/extracthtml"

var regionalPage = ex.Chain{
	find("div", "row regional-forecast-page"),
	find("div", "col-md-12 col-lg-12"),
}

var regionalForecast = ex.Target{
	Name: "regional_forecast",
	URL:  BaseURL + "/regional-forecast/ncrprsd",
	Dir:  "regional_forecast",
	Fields: []ex.Field{
		{
			Name:  "issued_datetime",
			Chain: under(regionalPage, find("div", "validity"), findAt("b", "", 0), normalized()),
		},
		{
			Name:  "valid_period",
			Chain: under(regionalPage, find("div", "validity"), findAt("b", "", 1), normalized()),
		},
		{
			Name:  "provincial_forecast",
			Shape: ex.ShapeTable,
			Chain: under(regionalPage, find("table", "table table-striped")),
			Table: &ex.TableSpec{
				RowTag:  "tr",
				CellTag: "td",
				Cells:   4,
				Columns: columns("province", "weather_condition", "wind", "temperature_range"),
				Only:    []string{"Bataan", "Tarlac"},
			},
		},
	},
}
