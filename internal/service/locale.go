package service

import (
	"strings"

	"golang.org/x/text/language"
)

// searchLanguages are the query languages the stock search accepts.
var searchLanguages = []language.Tag{
	language.English, // first entry is the matcher fallback
	language.Arabic, language.Czech, language.Danish, language.German,
	language.Greek, language.Spanish, language.Finnish, language.French,
	language.Hebrew, language.Hindi, language.Hungarian, language.Indonesian,
	language.Italian, language.Japanese, language.Korean, language.Norwegian,
	language.Dutch, language.Polish, language.Portuguese, language.Romanian,
	language.Russian, language.Swedish, language.Thai, language.Turkish,
	language.Ukrainian, language.Vietnamese, language.SimplifiedChinese,
	language.TraditionalChinese,
}

var searchLanguageCodes = func() []string {
	out := make([]string, len(searchLanguages))
	for i, tag := range searchLanguages {
		out[i] = tag.String()
	}
	out[len(out)-2] = "zh"
	out[len(out)-1] = "zh-Hant"
	return out
}()

var searchMatcher = language.NewMatcher(searchLanguages)

// SearchLanguage maps a locale such as "de-AT" or an Accept-Language value to
// a supported search language code. English and unknown locales yield "",
// which leaves the upstream default in place.
func SearchLanguage(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return ""
	}
	_, idx, conf := searchMatcher.Match(tags...)
	if conf == language.No || idx <= 0 {
		return ""
	}
	return searchLanguageCodes[idx]
}

// SearchRegion validates an ISO 3166 country code for the search region hint.
func SearchRegion(country string) string {
	country = strings.TrimSpace(country)
	if country == "" {
		return ""
	}
	region, err := language.ParseRegion(country)
	if err != nil || !region.IsCountry() {
		return ""
	}
	return region.String()
}
