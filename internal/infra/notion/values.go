package notion

import "time"

// PropertyValue is the write-side shape of a page property in an update request.
type PropertyValue map[string]any

// DateValue sets a date property to the calendar day of t (UTC).
func DateValue(t time.Time) PropertyValue {
	return PropertyValue{"date": map[string]string{"start": t.UTC().Format("2006-01-02")}}
}

func MultiSelectValue(names []string) PropertyValue {
	opts := make([]map[string]string, 0, len(names))
	for _, n := range names {
		opts = append(opts, map[string]string{"name": n})
	}
	return PropertyValue{"multi_select": opts}
}

func StatusValue(name string) PropertyValue {
	return PropertyValue{"status": map[string]string{"name": name}}
}

func SelectValue(name string) PropertyValue {
	return PropertyValue{"select": map[string]string{"name": name}}
}

// EqualsCondition matches a property whose value equals the given option.
type EqualsCondition struct {
	Equals string `json:"equals"`
}

// PropertyFilter filters on a single status or select property.
type PropertyFilter struct {
	Property string           `json:"property"`
	Status   *EqualsCondition `json:"status,omitempty"`
	Select   *EqualsCondition `json:"select,omitempty"`
}

// AndFilter combines property filters with logical AND.
type AndFilter struct {
	And []PropertyFilter `json:"and"`
}

func StatusEquals(property, value string) PropertyFilter {
	return PropertyFilter{Property: property, Status: &EqualsCondition{Equals: value}}
}

func SelectEquals(property, value string) PropertyFilter {
	return PropertyFilter{Property: property, Select: &EqualsCondition{Equals: value}}
}
