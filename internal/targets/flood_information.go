package targets

import ex "pagasa/internal/extracthtml"

var floodPage = ex.Chain{find("div", "row flood-page")}

// Dam rows leave cells blank when a reading is missing; those are written as
// "None" rather than "".
var floodInformation = ex.Target{
	Name: "flood_information",
	URL:  BaseURL + "/flood",
	Dir:  "flood_information",
	Fields: []ex.Field{
		{
			Name:        "issued_datetime",
			Chain:       under(floodPage, find("div", "issue"), normalized()),
			StripPrefix: "Issued at:",
		},
		{
			Name:  "dam_water_levels",
			Shape: ex.ShapeTable,
			Chain: under(floodPage, find("table", "table dam-table"), find("tbody", "")),
			Table: &ex.TableSpec{
				RowTag:     "tr",
				CellTag:    "td",
				Cells:      4,
				Columns:    columns("dam", "water_level", "deviation", "normal_high_water_level"),
				EmptyValue: "None",
			},
		},
	},
}
