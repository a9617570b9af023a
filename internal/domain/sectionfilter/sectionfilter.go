// Package sectionfilter holds saved queries that scope a content section.
package sectionfilter

// Filter is a saved query applied to every search of its section.
type Filter struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	FilterType string `json:"filter_type"`
	Query      string `json:"query"`
	IsEnabled  bool   `json:"is_enabled"`
}

// Applies reports whether the filter constrains searches of section.
func (f *Filter) Applies(section string) bool {
	return f.IsEnabled && f.FilterType == section && f.Query != ""
}
