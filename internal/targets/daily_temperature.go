package targets

import ex "pagasa/internal/extracthtml"

// The page shows two side-by-side panels: lowest first, then highest.
func temperaturePanel(i int) ex.Chain {
	return ex.Chain{
		find("div", "row weather-page"),
		findAt("div", "col-md-6", i),
		find("div", "panel"),
	}
}

func temperatureFields(kind string, panel int, prefix string) []ex.Field {
	return []ex.Field{
		{
			Name:        kind + "_temperature_date",
			Chain:       under(temperaturePanel(panel), find("div", "panel-heading"), normalized()),
			StripPrefix: prefix,
		},
		{
			Name:  kind + "_temperatures",
			Shape: ex.ShapeMapping,
			Chain: under(temperaturePanel(panel), find("table", "")),
			Table: &ex.TableSpec{
				RowTag:      "tr",
				CellTag:     "td",
				Cells:       2,
				Columns:     columns("station", "temperature"),
				KeyColumn:   0,
				ValueColumn: 1,
			},
		},
	}
}

var dailyTemperature = ex.Target{
	Name: "daily_temperature",
	URL:  BaseURL + "/weather/low-high-temperature",
	Dir:  "daily_temperature",
	Fields: append(
		temperatureFields("lowest", 0, "Top 10 Lowest Temperature as of"),
		temperatureFields("highest", 1, "Top 10 Highest Temperature as of")...,
	),
}
