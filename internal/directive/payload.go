package directive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Structured reply types sent by the booking workflow.
const (
	TypeTextOnly         = "text_only"
	TypeTextWithList     = "text_with_list"
	TypeServiceList      = "service_list"
	TypeProfessionalList = "professional_list"
	TypePetList          = "pet_list"
	TypeConfirmation     = "confirmation"
)

// Payload is the structured form of an assistant reply.
type Payload struct {
	Type   string
	Intro  string
	Footer string
	Items  []Item
}

// wirePayload decodes any JSON object. Fields in an unexpected shape decode to
// their zero value instead of failing the whole reply.
type wirePayload struct {
	Type   looseString `json:"type"`
	Intro  looseString `json:"intro"`
	Footer looseString `json:"footer"`
	Items  looseItems  `json:"items"`
}

func (w wirePayload) payload() *Payload {
	return &Payload{
		Type:   strings.TrimSpace(string(w.Type)),
		Intro:  string(w.Intro),
		Footer: string(w.Footer),
		Items:  []Item(w.Items),
	}
}

// decodePayload reports false only when data is not a JSON object.
func decodePayload(data []byte) (*Payload, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, false
	}
	var w wirePayload
	if err := json.Unmarshal(data, &w); err != nil {
		w = wirePayload{}
		if raw, ok := fields["type"]; ok {
			_ = json.Unmarshal(raw, &w.Type)
		}
	}
	return w.payload(), true
}

// Item is one entry of a structured list. The workflow is loose about field
// names and value types, so every field tolerates strings, numbers and arrays.
type Item struct {
	Name        looseString `json:"name"`
	Title       looseString `json:"title"`
	Description looseString `json:"description"`
	Content     looseString `json:"content"`
	Category    looseString `json:"category"`
	Email       looseString `json:"email"`
	Type        looseString `json:"type"`
	Species     looseString `json:"species"`
	Breed       looseString `json:"breed"`
	Price       looseString `json:"price"`
	Duration    looseString `json:"duration"`
	Details     looseLines  `json:"details"`
}

// label returns the first non-empty of name and title.
func (it Item) label() string {
	if s := strings.TrimSpace(string(it.Name)); s != "" {
		return s
	}
	return strings.TrimSpace(string(it.Title))
}

// body returns the first non-empty of description and content.
func (it Item) body() string {
	if s := strings.TrimSpace(string(it.Description)); s != "" {
		return s
	}
	return strings.TrimSpace(string(it.Content))
}

// parsePayload implements the JSON-first strategy: the whole reply, then the
// first embedded object carrying a "type" field. A reply that is itself a JSON
// object is always taken as the payload, whatever the shape of its fields.
func parsePayload(raw string) (*Payload, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, false
	}
	if strings.HasPrefix(trimmed, "{") {
		if p, ok := decodePayload([]byte(trimmed)); ok {
			return p, true
		}
	}
	return findEmbeddedPayload(trimmed)
}

func findEmbeddedPayload(text string) (*Payload, bool) {
	if !strings.Contains(text, `"type"`) {
		return nil, false
	}
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var fields map[string]json.RawMessage
		if err := dec.Decode(&fields); err != nil {
			continue
		}
		if _, ok := fields["type"]; !ok {
			continue
		}
		fragment := text[i : i+int(dec.InputOffset())]
		if p, ok := decodePayload([]byte(fragment)); ok {
			return p, true
		}
	}
	return nil, false
}

// displayText renders a payload for the transcript.
func (p *Payload) displayText() string {
	var b strings.Builder
	if intro := strings.TrimSpace(p.Intro); intro != "" {
		b.WriteString(intro)
	}
	for _, it := range p.Items {
		label := it.label()
		if label == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(label)
		if body := it.body(); body != "" {
			b.WriteString(": ")
			b.WriteString(body)
		}
	}
	if footer := strings.TrimSpace(p.Footer); footer != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(footer)
	}
	return b.String()
}

type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
	case '[':
		var lines looseLines
		if err := json.Unmarshal(data, &lines); err != nil {
			return err
		}
		*s = looseString(strings.Join(lines, ", "))
	case '{':
		*s = ""
	default:
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(fmt.Sprint(v))
	}
	return nil
}

// looseItems accepts an array of objects. A non-array decodes to no items,
// a bare string element becomes an item with that name and any other
// element is dropped.
type looseItems []Item

func (l *looseItems) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*l = nil
	if len(data) == 0 || data[0] != '[' {
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	out := make([]Item, 0, len(raw))
	for _, r := range raw {
		r = bytes.TrimSpace(r)
		if len(r) == 0 {
			continue
		}
		switch r[0] {
		case '{':
			var it Item
			if err := json.Unmarshal(r, &it); err == nil {
				out = append(out, it)
			}
		case '"':
			var name looseString
			if err := json.Unmarshal(r, &name); err == nil && strings.TrimSpace(string(name)) != "" {
				out = append(out, Item{Name: name})
			}
		}
	}
	*l = out
	return nil
}

type looseLines []string

func (l *looseLines) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] != '[' {
		var single looseString
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*l = splitLines(string(single))
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var s looseString
		if err := json.Unmarshal(r, &s); err != nil {
			return err
		}
		if v := strings.TrimSpace(string(s)); v != "" {
			out = append(out, v)
		}
	}
	*l = out
	return nil
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
