// Package category maps loosely-structured product category data to the
// small label+icon taxonomy used by the client UIs.
package category

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Info is a classification result. Label is one of the fixed set
// {Drinks, Fruits & Veg, Snacks, Meals, Other}; Icon is the identifier of
// the matching UI icon. Classify never returns an empty Info because the
// UI always needs an icon.
type Info struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

type rule struct {
	info        Info
	tagPrefixes []string
	keywords    *regexp.Regexp
}

// Rules are evaluated in order; the first match wins. Order matters because
// some keywords could match more than one category ("juice" vs "fruit").
var rules = []rule{
	{
		info:        Info{Label: "Drinks", Icon: "cup-soda"},
		tagPrefixes: []string{"en:beverages", "en:waters", "en:soft-drinks", "en:juices", "en:teas", "en:coffees"},
		keywords:    regexp.MustCompile(`drink|beverage|water|soda|juice|tea|coffee|energy drink`),
	},
	{
		info:        Info{Label: "Fruits & Veg", Icon: "leafy-green"},
		tagPrefixes: []string{"en:fruits", "en:vegetables", "en:salads", "en:produce"},
		keywords:    regexp.MustCompile(`fruit|vegetable|veggie|salad|produce`),
	},
	{
		info:        Info{Label: "Snacks", Icon: "cookie"},
		tagPrefixes: []string{"en:snacks", "en:chips", "en:biscuits", "en:candies", "en:chocolates"},
		keywords:    regexp.MustCompile(`snack|chips|cookie|cracker|candy|chocolate`),
	},
	{
		info:        Info{Label: "Meals", Icon: "utensils-crossed"},
		tagPrefixes: []string{"en:prepared-meals", "en:pizzas", "en:sandwiches", "en:frozen-foods", "en:pastas", "en:noodles", "en:soups"},
		keywords:    regexp.MustCompile(`meal|dinner|lunch|breakfast|pizza|sandwich|pasta|noodle|soup`),
	},
}

var fallback = Info{Label: "Other", Icon: "package"}

// ParseTags normalizes the categories_tags wire value to a lowercase string
// list. The backend sends it as a JSON array, a JSON-encoded string that may
// itself contain a JSON array, or a plain comma-separated string; anything
// else yields an empty list.
func ParseTags(raw json.RawMessage) []string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	if strings.HasPrefix(trimmed, "[") {
		return tagsFromArray([]byte(trimmed))
	}

	var s string
	if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
		return nil
	}
	return TagsFromString(s)
}

// TagsFromString handles the string forms: a JSON-encoded array or a
// comma-separated list.
func TagsFromString(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		if tags := tagsFromArray([]byte(s)); tags != nil {
			return tags
		}
	}

	var tags []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}

func tagsFromArray(data []byte) []string {
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	tags := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			tags = append(tags, strings.ToLower(s))
		}
	}
	return tags
}

// Classify maps category text, normalized tags and the product name to one
// taxonomy entry. Structured tags are authoritative: every category's tag
// prefixes are tried before any keyword matching over "categories + name".
// Always returns a usable Info.
func Classify(categories string, tags []string, productName string) Info {
	for _, r := range rules {
		if hasTagPrefix(tags, r.tagPrefixes) {
			return r.info
		}
	}

	text := strings.ToLower(categories + " " + productName)
	for _, r := range rules {
		if r.keywords.MatchString(text) {
			return r.info
		}
	}
	return fallback
}

func hasTagPrefix(tags, prefixes []string) bool {
	for _, tag := range tags {
		for _, prefix := range prefixes {
			if strings.HasPrefix(tag, prefix) {
				return true
			}
		}
	}
	return false
}
