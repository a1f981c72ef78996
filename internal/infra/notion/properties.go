package notion

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Property is one raw page property: a "type" discriminator plus a payload keyed by that type.
type Property map[string]json.RawMessage

// Properties maps a property label to its raw value.
type Properties map[string]Property

// Kind returns the declared property type, or "" when it is missing or malformed.
func (p Property) Kind() string {
	var kind string
	if err := json.Unmarshal(p["type"], &kind); err != nil {
		return ""
	}
	return kind
}

// Value is a normalized property value. The zero Value is absent.
type Value struct {
	present bool
	text    string
	number  float64
	numeric bool
	list    []string
}

func textValue(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}
	}
	return Value{present: true, text: s}
}

func numberValue(f float64) Value {
	return Value{present: true, number: f, numeric: true}
}

func listValue(items []string) Value {
	seen := make(map[string]bool, len(items))
	list := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		list = append(list, it)
	}
	v := Value{present: len(list) > 0, list: list}
	if len(list) > 0 {
		v.text = list[0]
	}
	return v
}

func (v Value) Present() bool {
	return v.present
}

// Text returns the textual form; numeric values are formatted without trailing zeros.
func (v Value) Text() (string, bool) {
	if !v.present {
		return "", false
	}
	if v.numeric {
		return strconv.FormatFloat(v.number, 'f', -1, 64), true
	}
	return v.text, true
}

// Number returns the numeric form, parsing textual values when needed.
func (v Value) Number() (float64, bool) {
	if !v.present {
		return 0, false
	}
	if v.numeric {
		return v.number, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// List returns the labels of a multi-valued property; never nil.
func (v Value) List() []string {
	if v.list != nil {
		return v.list
	}
	if v.present && !v.numeric {
		return []string{v.text}
	}
	return []string{}
}

// Date parses the textual form as a calendar date or an RFC 3339 timestamp.
func (v Value) Date() (time.Time, bool) {
	s, ok := v.Text()
	if !ok || v.numeric {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Extract normalizes the property named label. It never fails: missing, empty,
// malformed or unknown properties yield an absent Value.
func Extract(props Properties, label string) Value {
	p, ok := props[label]
	if !ok || p == nil {
		return Value{}
	}
	return decode(p)
}

type richText struct {
	PlainText string `json:"plain_text"`
}

type named struct {
	Name string `json:"name"`
}

type dateRange struct {
	Start string `json:"start"`
}

type formula struct {
	Type    string     `json:"type"`
	String  *string    `json:"string"`
	Number  *float64   `json:"number"`
	Boolean *bool      `json:"boolean"`
	Date    *dateRange `json:"date"`
}

type rollup struct {
	Type   string            `json:"type"`
	Number *float64          `json:"number"`
	Date   *dateRange        `json:"date"`
	Array  []json.RawMessage `json:"array"`
}

func decode(p Property) Value {
	kind := p.Kind()
	raw, ok := p[kind]
	if kind == "" || !ok {
		return Value{}
	}

	switch kind {
	case "title", "rich_text":
		var parts []richText
		if json.Unmarshal(raw, &parts) != nil {
			return Value{}
		}
		var sb strings.Builder
		for _, part := range parts {
			sb.WriteString(part.PlainText)
		}
		return textValue(sb.String())

	case "phone_number", "email", "url", "created_time", "last_edited_time":
		var s *string
		if json.Unmarshal(raw, &s) != nil || s == nil {
			return Value{}
		}
		return textValue(*s)

	case "date":
		var d *dateRange
		if json.Unmarshal(raw, &d) != nil || d == nil {
			return Value{}
		}
		return textValue(d.Start)

	case "select", "status":
		var n *named
		if json.Unmarshal(raw, &n) != nil || n == nil {
			return Value{}
		}
		return textValue(n.Name)

	case "multi_select":
		var items []named
		if json.Unmarshal(raw, &items) != nil {
			return Value{list: []string{}}
		}
		names := make([]string, 0, len(items))
		for _, it := range items {
			names = append(names, it.Name)
		}
		return listValue(names)

	case "number":
		var f *float64
		if json.Unmarshal(raw, &f) != nil || f == nil {
			return Value{}
		}
		return numberValue(*f)

	case "checkbox":
		var b bool
		if json.Unmarshal(raw, &b) != nil {
			return Value{}
		}
		return textValue(strconv.FormatBool(b))

	case "formula":
		var f formula
		if json.Unmarshal(raw, &f) != nil {
			return Value{}
		}
		if f.String != nil && strings.TrimSpace(*f.String) != "" {
			return textValue(*f.String)
		}
		if f.Number != nil {
			return numberValue(*f.Number)
		}
		if f.Date != nil {
			return textValue(f.Date.Start)
		}
		if f.Boolean != nil {
			return textValue(strconv.FormatBool(*f.Boolean))
		}
		return Value{}

	case "rollup":
		var r rollup
		if json.Unmarshal(raw, &r) != nil {
			return Value{}
		}
		switch r.Type {
		case "number":
			if r.Number != nil {
				return numberValue(*r.Number)
			}
		case "date":
			if r.Date != nil {
				return textValue(r.Date.Start)
			}
		case "array":
			var texts []string
			for _, item := range r.Array {
				var inner Property
				if json.Unmarshal(item, &inner) != nil {
					continue
				}
				if s, ok := decode(inner).Text(); ok {
					texts = append(texts, s)
				}
			}
			return listValue(texts)
		}
		return Value{}
	}
	return Value{}
}
