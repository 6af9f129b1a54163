package suggest

// DefaultMinMatchLength is how many characters must be typed before a list
// opens on its own.
const DefaultMinMatchLength = 3

// Selection is the open/focus state of one field's candidate list. Closed is
// ListID == "". Focus is -1 when no candidate is focused and otherwise
// always inside [0, Count-1].
type Selection struct {
	ListID         string `msgpack:"list,omitempty"`
	Focus          int    `msgpack:"focus"`
	MinMatchLength int    `msgpack:"minlen"`
	Count          int    `msgpack:"count"`
}

// NewSelection returns a closed selection.
func NewSelection(minMatchLength int) Selection {
	if minMatchLength < 1 {
		minMatchLength = 1
	}
	return Selection{Focus: -1, MinMatchLength: minMatchLength}
}

// IsOpen reports whether a list is rendered.
func (s Selection) IsOpen() bool {
	return s.ListID != ""
}

// Open shows a list of count candidates with nothing focused. An empty list
// closes instead.
func (s *Selection) Open(listID string, count int) {
	if listID == "" || count <= 0 {
		s.Close()
		return
	}
	s.ListID = listID
	s.Count = count
	s.Focus = -1
}

// Close hides the list. MinMatchLength is left as is.
func (s *Selection) Close() {
	s.ListID = ""
	s.Count = 0
	s.Focus = -1
}

// Down moves focus forward, wrapping to the first candidate past the end.
func (s *Selection) Down() int {
	if !s.IsOpen() {
		return -1
	}
	s.Focus++
	if s.Focus > s.Count-1 {
		s.Focus = 0
	}
	return s.Focus
}

// Up moves focus back, wrapping to the last candidate below zero.
func (s *Selection) Up() int {
	if !s.IsOpen() {
		return -1
	}
	s.Focus--
	if s.Focus < 0 {
		s.Focus = s.Count - 1
	}
	return s.Focus
}

// Focused returns the focused index, if any.
func (s Selection) Focused() (int, bool) {
	if !s.IsOpen() || s.Focus < 0 || s.Focus >= s.Count {
		return -1, false
	}
	return s.Focus, true
}

// Reset closes the list and restores the minimum match length.
func (s *Selection) Reset(minMatchLength int) {
	*s = NewSelection(minMatchLength)
}
