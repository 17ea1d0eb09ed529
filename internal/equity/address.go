package equity

import (
	"regexp"
	"strings"
)

// Extracted property addresses carry trailing city/state/zip fragments and
// spelled-out street types; the parcel dataset keys are bare street
// addresses with postal abbreviations. These helpers bring the extracted
// form onto the dataset's.

var directionalKeywords = []string{
	"Northeast", "North East", "NE",
	"Northwest", "North West", "NW",
	"Southeast", "South East", "SE",
	"Southwest", "South West", "SW",
}

var streetKeywords = []string{
	"Drive", "Dr", "Avenue", "Ave", "Road", "Rd", "Parkway", "Pkwy",
	"Court", "Ct", "Street", "St", "Boulevard", "Blvd", "Lane", "Ln",
	"Highway", "Hwy", "Apartment", "Apt", "Unit", "Suite", "Ste", "Circle", "Cir",
	"Extension", "Ext", "Place", "Pl",
}

var (
	directionalPatterns = compileKeywordPatterns(directionalKeywords, false)
	streetPatterns      = compileKeywordPatterns(streetKeywords, true)
)

func compileKeywordPatterns(keywords []string, ignoreCase bool) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		expr := `^(.*?\b` + regexp.QuoteMeta(kw) + `\b)`
		if ignoreCase {
			expr = `(?i)` + expr
		}
		patterns = append(patterns, regexp.MustCompile(expr))
	}
	return patterns
}

// StreetAddress truncates a free-form address to its street portion: up to
// a directional or street-type keyword when the address is not
// comma-delimited, otherwise up to the first comma or period.
func StreetAddress(address string) string {
	commas := strings.Count(address, ",")

	if commas <= 1 {
		for i, kw := range directionalKeywords {
			if !strings.Contains(address, kw) {
				continue
			}
			parts := strings.Fields(address)
			for j, p := range parts {
				if p == kw {
					return strings.Join(parts[:j+1], " ")
				}
			}
			if m := directionalPatterns[i].FindStringSubmatch(address); m != nil {
				return strings.TrimSpace(m[1])
			}
		}
		for _, p := range streetPatterns {
			if m := p.FindStringSubmatch(address); m != nil {
				return strings.TrimSpace(m[1])
			}
		}
	}

	hasComma := commas > 0
	hasPeriod := strings.Contains(address, ".")
	switch {
	case hasComma && !hasPeriod:
		return strings.TrimSpace(strings.SplitN(address, ",", 2)[0])
	case hasPeriod && commas > 1:
		return strings.TrimSpace(strings.SplitN(address, ",", 2)[0])
	case hasPeriod:
		return strings.TrimSpace(strings.SplitN(address, ".", 2)[0])
	}
	return strings.TrimSpace(address)
}

// abbreviations rewrites spelled-out street types and directionals to the
// dataset's postal forms. Compound directionals come before the bare
// cardinal words so "North East" becomes NE, not "N East".
var abbreviations = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`(?i)\bDrive\b`), "Dr"},
	{regexp.MustCompile(`(?i)\bAvenue\b`), "Ave"},
	{regexp.MustCompile(`(?i)\bRoad\b`), "Rd"},
	{regexp.MustCompile(`(?i)\bParkway\b`), "Pkwy"},
	{regexp.MustCompile(`(?i)\bCourt\b`), "Ct"},
	{regexp.MustCompile(`(?i)\bStreet\b`), "St"},
	{regexp.MustCompile(`(?i)\bBoulevard\b`), "Blvd"},
	{regexp.MustCompile(`(?i)\bLane\b`), "Ln"},
	{regexp.MustCompile(`(?i)\bHighway\b`), "Hwy"},
	{regexp.MustCompile(`(?i)\bApartment\b`), "Apt"},
	{regexp.MustCompile(`(?i)\bSuite\b`), "Ste"},
	{regexp.MustCompile(`(?i)\bNortheast\b`), "NE"},
	{regexp.MustCompile(`(?i)\bNorth East\b`), "NE"},
	{regexp.MustCompile(`(?i)\bNorthwest\b`), "NW"},
	{regexp.MustCompile(`(?i)\bNorth West\b`), "NW"},
	{regexp.MustCompile(`(?i)\bSoutheast\b`), "SE"},
	{regexp.MustCompile(`(?i)\bSouth East\b`), "SE"},
	{regexp.MustCompile(`(?i)\bSouthwest\b`), "SW"},
	{regexp.MustCompile(`(?i)\bSouth West\b`), "SW"},
	{regexp.MustCompile(`(?i)\bPlace\b`), "PL"},
	{regexp.MustCompile(`(?i)\bExtension\b`), "EXT"},
	{regexp.MustCompile(`(?i)\bCircle\b`), "CIR"},
	{regexp.MustCompile(`(?i)\bNorth\b`), "N"},
	{regexp.MustCompile(`(?i)\bSouth\b`), "S"},
	{regexp.MustCompile(`(?i)\bWest\b`), "W"},
	{regexp.MustCompile(`(?i)\bEast\b`), "E"},
}

// NormalizeAddress rewrites a street address to the dataset's uppercase
// abbreviated form.
func NormalizeAddress(address string) string {
	for _, a := range abbreviations {
		address = a.pattern.ReplaceAllString(address, a.repl)
	}
	address = strings.ReplaceAll(address, ".", "")
	return strings.ToUpper(address)
}

// doubleSpaceCounties pad two spaces between the house number and street
// name; their dataset exports were produced that way.
var doubleSpaceCounties = map[string]bool{
	"590": true, // mecklenburg
	"640": true, // newhanover
	"180": true, // chatham
}

var leadingHouseNumber = regexp.MustCompile(`^(\d+)\s+`)

// NormalizeForCounty applies the county's address quirks on top of the
// standard normalization.
func NormalizeForCounty(address, countyID string) string {
	if doubleSpaceCounties[countyID] {
		address = leadingHouseNumber.ReplaceAllString(address, "$1  ")
	}
	return address
}
