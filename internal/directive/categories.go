package directive

import (
	"regexp"
	"strings"
)

var (
	addTokenPattern = regexp.MustCompile(`\badd\b`)
	onTokenPattern  = regexp.MustCompile(`(\bon\b|-on\b)`)
)

// addOnNameMarkers are literal substrings that mark a service name as an add-on.
var addOnNameMarkers = []string{": add", "add on", "add-on"}

// InferCategory decides whether a service entry is an add-on. The rule is
// deliberately conservative: plain service names that merely contain "add"
// stay main services.
func InferCategory(name, explicitCategory string) string {
	category := strings.ToLower(strings.TrimSpace(explicitCategory))
	if category != "" && addTokenPattern.MatchString(category) && onTokenPattern.MatchString(category) {
		return CategoryAddOn
	}

	lower := strings.ToLower(name)
	for _, marker := range addOnNameMarkers {
		if strings.Contains(lower, marker) {
			return CategoryAddOn
		}
	}
	if strings.Contains(lower, "add") &&
		(strings.Contains(lower, "transportation") || strings.Contains(lower, "multiple")) {
		return CategoryAddOn
	}
	return CategoryMainService
}

func serviceOptions(items []Item) []Option {
	opts := make([]Option, 0, len(items))
	for _, it := range items {
		name := it.label()
		if name == "" {
			continue
		}
		opt := Option{
			Name:        name,
			Description: it.body(),
			Category:    InferCategory(name, string(it.Category)),
		}
		if price := strings.TrimSpace(string(it.Price)); price != "" {
			opt.DetailLines = append(opt.DetailLines, "Price: "+price)
		}
		if duration := strings.TrimSpace(string(it.Duration)); duration != "" {
			opt.DetailLines = append(opt.DetailLines, "Duration: "+duration)
		}
		opt.DetailLines = append(opt.DetailLines, it.Details...)
		opts = append(opts, opt)
	}
	return dedupe(opts)
}

func professionalOptions(items []Item) []Option {
	opts := make([]Option, 0, len(items))
	for _, it := range items {
		name := it.label()
		if name == "" {
			continue
		}
		opt := Option{Name: name, Description: it.body()}
		if email := strings.TrimSpace(string(it.Email)); email != "" {
			opt.DetailLines = append(opt.DetailLines, email)
		}
		opt.DetailLines = append(opt.DetailLines, it.Details...)
		opts = append(opts, opt)
	}
	return dedupe(opts)
}

func petOptions(items []Item) []Option {
	opts := make([]Option, 0, len(items))
	for _, it := range items {
		name := it.label()
		if name == "" {
			continue
		}
		desc := it.body()
		if desc == "" {
			desc = firstNonEmpty(string(it.Type), string(it.Species), string(it.Breed))
		}
		opts = append(opts, Option{Name: name, Description: desc, DetailLines: it.Details})
	}
	return dedupe(opts)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
