package geoip

import "strings"

// countryZones maps ISO country codes onto a representative IANA zone. It is
// deliberately coarse: the value is only a default for users who never set a
// timezone, and every zone here resolves with time.LoadLocation.
var countryZones = map[string]string{
	"US": "America/New_York",
	"CA": "America/Toronto",
	"BR": "America/Sao_Paulo",
	"GB": "Europe/London",
	"IE": "Europe/Dublin",
	"FR": "Europe/Paris",
	"DE": "Europe/Berlin",
	"NL": "Europe/Amsterdam",
	"ES": "Europe/Madrid",
	"IT": "Europe/Rome",
	"PL": "Europe/Warsaw",
	"UA": "Europe/Kyiv",
	"IN": "Asia/Kolkata",
	"SG": "Asia/Singapore",
	"ID": "Asia/Jakarta",
	"JP": "Asia/Tokyo",
	"KR": "Asia/Seoul",
	"CN": "Asia/Shanghai",
	"AU": "Australia/Sydney",
	"NZ": "Pacific/Auckland",
}

// TimezoneForCountry returns a representative IANA zone for the country code,
// or "" when no mapping exists.
func TimezoneForCountry(code string) string {
	return countryZones[strings.ToUpper(strings.TrimSpace(code))]
}
