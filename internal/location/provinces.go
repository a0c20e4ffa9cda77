// Package location resolves a viewer's German federal state and GrippeWeb
// reporting region from their IP address or coordinates.
package location

// provinceShort maps federal state names (as reported by ipinfo and by the
// GeoNames admin1 table) to their two-letter codes.
var provinceShort = map[string]string{
	"Baden-Wurttemberg":      "BW",
	"Bavaria":                "BY",
	"Berlin":                 "BE",
	"Brandenburg":            "BB",
	"Bremen":                 "HB",
	"Hamburg":                "HH",
	"Hessen":                 "HE",
	"Mecklenburg-Vorpommern": "MV",
	"Niedersachsen":          "NI",
	"Nordrhein-Westfalen":    "NW",
	"Rheinland-Pfalz":        "RP",
	"Saarland":               "SL",
	"Sachsen":                "SN",
	"Sachsen-Anhalt":         "ST",
	"Schleswig-Holstein":     "SH",
	"Thuringen":              "TH",
}

// provinceRegion maps short codes to the four GrippeWeb reporting regions.
var provinceRegion = map[string]string{
	"BW": "Sueden",
	"BY": "Sueden",
	"BE": "Mitte (West)",
	"BB": "Osten",
	"HB": "Norden (West)",
	"HH": "Norden (West)",
	"HE": "Mitte (West)",
	"MV": "Osten",
	"NI": "Norden (West)",
	"NW": "Mitte (West)",
	"RP": "Mitte (West)",
	"SL": "Mitte (West)",
	"SN": "Osten",
	"ST": "Osten",
	"SH": "Norden (West)",
	"TH": "Osten",
}

// admin1Province maps GeoNames DE admin1 codes to federal state names.
var admin1Province = map[string]string{
	"01": "Baden-Wurttemberg",
	"02": "Bavaria",
	"03": "Bremen",
	"04": "Hamburg",
	"05": "Hessen",
	"06": "Niedersachsen",
	"07": "Nordrhein-Westfalen",
	"08": "Rheinland-Pfalz",
	"09": "Saarland",
	"10": "Schleswig-Holstein",
	"11": "Brandenburg",
	"12": "Mecklenburg-Vorpommern",
	"13": "Sachsen",
	"14": "Sachsen-Anhalt",
	"15": "Thuringen",
	"16": "Berlin",
}

// ProvinceShort returns the two-letter code for a federal state name.
func ProvinceShort(province string) (string, bool) {
	short, ok := provinceShort[province]
	return short, ok
}

// ProvinceRegion returns the GrippeWeb reporting region for a short code.
func ProvinceRegion(short string) (string, bool) {
	region, ok := provinceRegion[short]
	return region, ok
}

// ProvinceFromAdmin1 returns the federal state name for a GeoNames DE
// admin1 code.
func ProvinceFromAdmin1(code string) (string, bool) {
	province, ok := admin1Province[code]
	return province, ok
}

// Regions lists the reporting regions in a stable order for UI consumption.
func Regions() []string {
	return []string{"Norden (West)", "Mitte (West)", "Osten", "Sueden"}
}
