// Package mains works out the local mains frequency and filters the hum it
// induces in a capture stream before peaks are measured.
package mains

import (
	"strings"

	tz "github.com/medama-io/go-timezone-country"
	"github.com/thlib/go-timezone-local/tzlocal"
)

// FallbackHz is used when the timezone gives no country.
const FallbackHz = 50

// Detection is the outcome of a timezone lookup.
type Detection struct {
	Timezone string
	Country  string
	Hz       int
}

// Detect derives the mains frequency from the system timezone.
func Detect() Detection {
	timezone, err := tzlocal.RuntimeTZ()
	if err != nil {
		return Detection{Hz: FallbackHz}
	}
	return DetectTimezone(timezone)
}

// DetectTimezone derives the mains frequency for an IANA timezone name.
func DetectTimezone(timezone string) Detection {
	d := Detection{Timezone: timezone, Hz: FallbackHz}
	// no country for UTC and friends
	if timezone == "UTC" || timezone == "GMT" || strings.HasPrefix(timezone, "Etc/") {
		return d
	}

	tzMap, err := tz.NewTimezoneCountryMap()
	if err != nil {
		return d
	}
	country, err := tzMap.GetCountry(timezone)
	if err != nil {
		return d
	}
	d.Country = country
	d.Hz = frequencyForCountry(country)
	return d
}

// Resolve returns hz when it is 50 or 60, and the detected frequency otherwise.
func Resolve(hz int) Detection {
	if hz == 50 || hz == 60 {
		return Detection{Hz: hz}
	}
	return Detect()
}

// frequencyForCountry returns 60 for countries on the 60Hz list and
// FallbackHz for everything else, Japan included.
func frequencyForCountry(country string) int {
	if hz60Countries[country] {
		return 60
	}
	return FallbackHz
}

// hz60Countries lists countries on 60Hz mains. Japan is split by region
// and is left at 50Hz.
// Source: https://en.wikipedia.org/wiki/Mains_electricity_by_country
var hz60Countries = map[string]bool{
	// North America
	"United States": true,
	"Canada":        true,
	"Mexico":        true,

	// Central America
	"Belize":      true,
	"Costa Rica":  true,
	"El Salvador": true,
	"Guatemala":   true,
	"Honduras":    true,
	"Nicaragua":   true,
	"Panama":      true,

	// Caribbean
	"Bahamas":             true,
	"Barbados":            true,
	"Cayman Islands":      true,
	"Cuba":                true,
	"Dominican Republic":  true,
	"Haiti":               true,
	"Jamaica":             true,
	"Puerto Rico":         true,
	"Trinidad and Tobago": true,
	"U.S. Virgin Islands": true,

	// South America (partial, most use 50Hz)
	"Brazil":    true, // Note: Brazil has both 50Hz and 60Hz regions; 60Hz predominant
	"Colombia":  true,
	"Ecuador":   true,
	"Guyana":    true,
	"Peru":      true,
	"Suriname":  true,
	"Venezuela": true,

	// Asia (partial)
	"South Korea":  true,
	"Taiwan":       true,
	"Philippines":  true,
	"Saudi Arabia": true,

	// Pacific
	"Guam":             true,
	"American Samoa":   true,
	"Marshall Islands": true,
	"Micronesia":       true,
	"Palau":            true,
}
