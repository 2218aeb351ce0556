// Package countries maps ISO 3166 alpha-2 codes to display names.
package countries

import (
	"sort"
	"strings"
	"sync"

	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Unknown is stored when a visitor's country cannot be resolved.
const Unknown = "__unknown_country__"

var (
	query     *gountries.Query
	queryOnce sync.Once
)

func getQuery() *gountries.Query {
	queryOnce.Do(func() {
		query = gountries.New()
	})
	return query
}

// Name returns the common English name for a country code. Unresolvable
// codes are upper-cased and returned as-is.
func Name(code string) string {
	if code == Unknown || code == "" {
		return "Unknown"
	}
	country, err := getQuery().FindCountryByAlpha(code)
	if err != nil {
		return cases.Upper(language.AmericanEnglish).String(code)
	}
	return country.Name.Common
}

// MatchCodes returns the alpha-2 codes of every country whose common name
// contains term, case-insensitively. The result is sorted.
func MatchCodes(term string) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	var codes []string
	for _, country := range getQuery().FindAllCountries() {
		if strings.Contains(strings.ToLower(country.Name.Common), term) {
			codes = append(codes, country.Codes.Alpha2)
		}
	}
	sort.Strings(codes)
	return codes
}

// Label returns the string a search term is matched against for a stored
// country value: the code and its name.
func Label(code string) string {
	return code + " " + Name(code)
}
