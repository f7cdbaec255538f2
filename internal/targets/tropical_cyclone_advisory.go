package targets

import ex "pagasa/internal/extracthtml"

// The bulletin article is a stack of div.row blocks: the cyclone name sits in
// the second, the issue and validity headings in the third. Unless that block
// has exactly two h5 headings both record "None".
var tcArticle = ex.Chain{
	find("div", "row tropical-cyclone-weather-bulletin-page"),
	find("div", "col-md-12 article-content"),
}

var tropicalCycloneAdvisory = ex.Target{
	Name: "tropical_cyclone_advisory",
	URL:  BaseURL + "/tropical-cyclone/severe-weather-bulletin",
	Dir:  "tropical_cyclone_advisory",
	Fields: []ex.Field{
		{
			Name:  "tropical_cyclone_name",
			Chain: under(tcArticle, findAt("div", "row", 1), normalized()),
		},
		{
			Name:    "issued_datetime",
			Chain:   under(tcArticle, findAt("div", "row", 2), findAtOf("h5", "", 0, 2), raw()),
			Default: "None",
		},
		{
			Name:    "validity_description",
			Chain:   under(tcArticle, findAt("div", "row", 2), findAtOf("h5", "", 1, 2), raw()),
			Default: "None",
		},
	},
}
