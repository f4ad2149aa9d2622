package catalog

// FallbackColor is used for identifiers missing from the palette.
const FallbackColor = "#888"

var palette = map[string]string{
	"energy":        "rgb(255,242,0)",
	"battery":       "rgb(255,242,0)",
	"Z":             "rgb(247,212,146)",
	"L":             "rgb(108,240,169)",
	"U":             "rgb(76,167,229)",
	"K":             "rgb(218,107,245)",
	"X":             "rgb(255,192,203)",
	"G":             "rgb(255,255,255)",
	"zynthium_bar":  "rgb(247,212,146)",
	"lemergium_bar": "rgb(108,240,169)",
	"utrium_bar":    "rgb(76,167,229)",
	"keanium_bar":   "rgb(218,107,245)",
	"purifier":      "rgb(255,192,203)",
	"ghodium_melt":  "rgb(255,255,255)",
	"power":         "rgb(224,90,90)",
	"ops":           "rgb(224,90,90)",
	"composite":     "#ccc",
	"crystal":       "#ccc",
	"liquid":        "#ccc",
	"device":        "rgb(76,167,229)",
	"circuit":       "rgb(76,167,229)",
	"microchip":     "rgb(76,167,229)",
	"transistor":    "rgb(76,167,229)",
	"switch":        "rgb(76,167,229)",
	"wire":          "rgb(76,167,229)",
	"silicon":       "rgb(76,167,229)",
	"machine":       "rgb(247,212,146)",
	"hydraulics":    "rgb(247,212,146)",
	"frame":         "rgb(247,212,146)",
	"fixtures":      "rgb(247,212,146)",
	"tube":          "rgb(247,212,146)",
	"alloy":         "rgb(247,212,146)",
	"metal":         "rgb(247,212,146)",
	"essence":       "rgb(218,107,245)",
	"emanation":     "rgb(218,107,245)",
	"spirit":        "rgb(218,107,245)",
	"extract":       "rgb(218,107,245)",
	"concentrate":   "rgb(218,107,245)",
	"condensate":    "rgb(218,107,245)",
	"mist":          "rgb(218,107,245)",
	"organism":      "rgb(108,240,169)",
	"organoid":      "rgb(108,240,169)",
	"muscle":        "rgb(108,240,169)",
	"tissue":        "rgb(108,240,169)",
	"phlegm":        "rgb(108,240,169)",
	"cell":          "rgb(108,240,169)",
	"biomass":       "rgb(108,240,169)",
	"OH":            "#ccc",
	"ZK":            "#ccc",
	"UL":            "#ccc",
	"UH":            "rgb(76,167,229)",
	"UH2O":          "rgb(76,167,229)",
	"XUH2O":         "rgb(76,167,229)",
	"UO":            "rgb(76,167,229)",
	"UHO2":          "rgb(76,167,229)",
	"XUHO2":         "rgb(76,167,229)",
	"ZH":            "rgb(247,212,146)",
	"ZH2O":          "rgb(247,212,146)",
	"XZH2O":         "rgb(247,212,146)",
	"ZO":            "rgb(247,212,146)",
	"ZHO2":          "rgb(247,212,146)",
	"XZHO2":         "rgb(247,212,146)",
	"KH":            "rgb(218,107,245)",
	"KH2O":          "rgb(218,107,245)",
	"XKH2O":         "rgb(218,107,245)",
	"KO":            "rgb(218,107,245)",
	"KHO2":          "rgb(218,107,245)",
	"XKHO2":         "rgb(218,107,245)",
	"LH":            "rgb(108,240,169)",
	"LH2O":          "rgb(108,240,169)",
	"XLH2O":         "rgb(108,240,169)",
	"LO":            "rgb(108,240,169)",
	"LHO2":          "rgb(108,240,169)",
	"XLHO2":         "rgb(108,240,169)",
	"GH":            "rgb(255,255,255)",
	"GH2O":          "rgb(255,255,255)",
	"XGH2O":         "rgb(255,255,255)",
	"GO":            "rgb(255,255,255)",
	"GHO2":          "rgb(255,255,255)",
	"XGHO2":         "rgb(255,255,255)",
	"H":             "#ccc",
	"O":             "#ccc",
	"oxidant":       "#ccc",
	"reductant":     "#ccc",
	"utrium":        "rgb(76,167,229)",
	"lemergium":     "rgb(108,240,169)",
	"keanium":       "rgb(218,107,245)",
	"zynthium":      "rgb(247,212,146)",
	"ghodium":       "rgb(255,255,255)",
}

// Palette returns a copy of the identifier to color table.
func Palette() map[string]string {
	out := make(map[string]string, len(palette))
	for k, v := range palette {
		out[k] = v
	}
	return out
}
