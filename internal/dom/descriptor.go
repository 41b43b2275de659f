package dom

import "strings"

// Rect is an element's bounding box in page coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the geometric center of the rectangle.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// ElementDescriptor is a snapshot of one DOM node captured at inspection
// time. The Path addresses the originating node deterministically at
// capture time; it is only ever used to re-locate an equivalent node
// later, never to mutate the original.
type ElementDescriptor struct {
	Tag         string   `json:"tag"`
	ID          string   `json:"id,omitempty"`
	Classes     []string `json:"classes,omitempty"`
	Text        string   `json:"text,omitempty"`
	Value       string   `json:"value,omitempty"`
	Path        string   `json:"path"`
	Rect        Rect     `json:"rect"`
	Visible     bool     `json:"visible"`
	Cursor      string   `json:"cursor,omitempty"`
	HasOnClick  bool     `json:"hasOnClick"`
	InputType   string   `json:"inputType,omitempty"`
	Name        string   `json:"name,omitempty"`
	Href        string   `json:"href,omitempty"`
	FoundBy     string   `json:"foundBy,omitempty"`
}

const maxTextSnippet = 100

// TruncateText bounds the captured text snippet, cutting on a rune
// boundary so Korean text stays valid UTF-8.
func TruncateText(s string) string {
	s = strings.TrimSpace(s)
	runes := 0
	for i := range s {
		if runes == maxTextSnippet {
			return s[:i]
		}
		runes++
	}
	return s
}

// Interactive reports whether the node looks clickable: an attached
// click handler or a pointer cursor.
func (e *ElementDescriptor) Interactive() bool {
	return e.HasOnClick || e.Cursor == "pointer"
}

// ClassString joins the class list back into attribute form.
func (e *ElementDescriptor) ClassString() string {
	return strings.Join(e.Classes, " ")
}
