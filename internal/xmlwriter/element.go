package xmlwriter

// Attr is a single XML attribute. Names may carry a prefix ("xsi:...").
type Attr struct {
	Name  string
	Value string
}

// Element is a generic XML element: either text or ordered children.
//
// Text is written unescaped into the tree; escaping happens only when the
// element is serialized.
type Element struct {
	Name     string
	Attrs    []Attr
	Text     string
	Children []Element
}

// NewElement creates an element holding the given children.
func NewElement(name string, children ...Element) Element {
	return Element{Name: name, Children: children}
}

// TextElement creates a leaf element with a text value.
func TextElement(name, text string) Element {
	return Element{Name: name, Text: text}
}

// WithAttr returns a copy of the element with an attribute appended.
func (e Element) WithAttr(name, value string) Element {
	attrs := make([]Attr, len(e.Attrs), len(e.Attrs)+1)
	copy(attrs, e.Attrs)
	e.Attrs = append(attrs, Attr{Name: name, Value: value})
	return e
}

// Attr returns the value of the named attribute.
func (e Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Find follows a path of child names and returns the first match.
//
// EXAMPLE:
//
//	doc.Find("CstmrCdtTrfInitn", "GrpHdr", "MsgId")
func (e Element) Find(path ...string) (Element, bool) {
	current := e
	for _, name := range path {
		found := false
		for _, child := range current.Children {
			if child.Name == name {
				current = child
				found = true
				break
			}
		}
		if !found {
			return Element{}, false
		}
	}
	return current, true
}

// FindAll returns every direct child with the given name.
func (e Element) FindAll(name string) []Element {
	var matches []Element
	for _, child := range e.Children {
		if child.Name == name {
			matches = append(matches, child)
		}
	}
	return matches
}
