package directive

import (
	"regexp"
	"strings"
)

// petPromptPhrases mark a reply (or the question before it) as asking the
// customer to pick pets.
var petPromptPhrases = []string{"which pet", "confirm which pet", "pet's name or names"}

// PetPair is a pet name with its animal type as extracted from free text.
type PetPair struct {
	Name string
	Type string
}

// Extraction patterns, tried in order; the first that yields a match wins.
var petPatterns = []*regexp.Regexp{
	// **Bella** (Dog), **Bella**: Dog, **Bella** - Dog
	regexp.MustCompile(`\*\*([^*\n]+?)\*\*\s*(?:\(\s*([A-Za-z][A-Za-z ]*?)\s*\)|[:\-–]\s*([A-Za-z][A-Za-z ]*[A-Za-z]|[A-Za-z]))`),
	// Bella: Dog
	regexp.MustCompile(`([A-Z][A-Za-z'\-]*(?: [A-Z][A-Za-z'\-]*)*)\s*:\s*([A-Za-z]+)`),
	// Bella (Dog)
	regexp.MustCompile(`([A-Z][A-Za-z'\-]*(?: [A-Z][A-Za-z'\-]*)*)\s*\(\s*([A-Za-z][A-Za-z ]*?)\s*\)`),
}

// mentionsPetSelection reports whether text asks which pet(s) to book for.
func mentionsPetSelection(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range petPromptPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// ExtractPets pulls name/type pairs out of free text. Duplicate names keep
// their first occurrence.
func ExtractPets(text string) []PetPair {
	for _, pattern := range petPatterns {
		matches := pattern.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}
		pairs := make([]PetPair, 0, len(matches))
		seen := make(map[string]struct{}, len(matches))
		for _, m := range matches {
			name := strings.TrimSpace(m[1])
			petType := ""
			for _, group := range m[2:] {
				if group = strings.TrimSpace(group); group != "" {
					petType = group
					break
				}
			}
			if name == "" || petType == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			pairs = append(pairs, PetPair{Name: name, Type: petType})
		}
		if len(pairs) > 0 {
			return pairs
		}
	}
	return nil
}

func petOptionsFromPairs(pairs []PetPair) []Option {
	opts := make([]Option, 0, len(pairs))
	for _, p := range pairs {
		opts = append(opts, Option{Name: p.Name, Description: p.Type})
	}
	return dedupe(opts)
}
