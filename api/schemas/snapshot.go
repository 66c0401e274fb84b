// api/schemas/snapshot.go
package schemas

// Viewport describes the visible dimensions of the page at observation time.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BoundingRect is the layout box of an element, in CSS pixels relative to the
// document. All-zero when layout information is unavailable (e.g. when the
// snapshot was built from parsed markup rather than a rendered frame).
type BoundingRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Heading is a document heading (h1-h6) with a selector that uniquely
// identified it at capture time.
type Heading struct {
	Level    int    `json:"level"`
	Text     string `json:"text"`
	Selector string `json:"selector"`
}

// Element describes one interactive element of the page. The Selector and
// XPath fields are guaranteed unique at capture time only; callers must
// re-resolve before acting on them.
type Element struct {
	Tag         string       `json:"tag"`
	Role        string       `json:"role,omitempty"`
	Type        string       `json:"type,omitempty"`
	Name        string       `json:"name,omitempty"`
	ID          string       `json:"id,omitempty"`
	Classes     []string     `json:"classes,omitempty"`
	Text        string       `json:"text"`
	Placeholder string       `json:"placeholder,omitempty"`
	AriaLabel   string       `json:"ariaLabel,omitempty"`
	Href        string       `json:"href,omitempty"`
	Bounds      BoundingRect `json:"boundingRect"`
	Selector    string       `json:"selector"`
	// XPath is the alternate locator for the element, also used to match it
	// back to the rendered frame when layout metrics are collected.
	XPath string `json:"xpath,omitempty"`
}

// FormField describes a single input inside a form.
type FormField struct {
	Tag         string `json:"tag"`
	Type        string `json:"type,omitempty"`
	Name        string `json:"name,omitempty"`
	ID          string `json:"id,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Label       string `json:"label,omitempty"`
	Selector    string `json:"selector"`
}

// Form describes a form element and its fields.
type Form struct {
	ID       string      `json:"id,omitempty"`
	Action   string      `json:"action,omitempty"`
	Method   string      `json:"method,omitempty"`
	Selector string      `json:"selector"`
	Fields   []FormField `json:"fields"`
}

// Snapshot is a structured, bounded-size description of a page's visible and
// interactive state at one instant. It is produced fresh on every observation,
// is immutable once created, and is never persisted beyond the active step.
type Snapshot struct {
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	Viewport Viewport  `json:"viewport"`
	Headings []Heading `json:"headings"`
	Elements []Element `json:"elements"`
	Forms    []Form    `json:"forms"`
	Text     string    `json:"text"`
}

// EmptySnapshot returns a valid snapshot with no content. It is the degraded
// result handed out when observation fails or times out, so the execution loop
// can always make progress.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Headings: []Heading{},
		Elements: []Element{},
		Forms:    []Form{},
	}
}

// IsEmpty reports whether the snapshot carries no structured page data.
func (s *Snapshot) IsEmpty() bool {
	if s == nil {
		return true
	}
	return len(s.Headings) == 0 && len(s.Elements) == 0 && len(s.Forms) == 0 && s.Text == ""
}
