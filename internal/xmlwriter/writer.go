// =============================================================================
// pain.001 Converter - XML Writer Module
// =============================================================================
//
// This module serializes an Element tree to bytes. It writes the declaration,
// escapes text and attribute values, and optionally indents the output.
//
// OUTPUT MODES:
//   - Indent ""   : compact, no whitespace between tags
//   - Indent "  " : one element per line, nested by level
//
// Either mode can be passed through xmlformat afterwards; the formatter
// makes the final canonical or pretty form independent of the indent used
// here.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"fmt"
	"strings"
)

// Declaration is written before the root element.
const Declaration = `<?xml version="1.0" encoding="UTF-8"?>`

// =============================================================================
// MARSHALING
// =============================================================================

// Marshal serializes the document.
//
// PARAMETERS:
//   - doc: The root element.
//   - indent: The indentation unit. Empty for compact output.
//
// RETURNS:
//   - The XML document as a byte slice.
//   - An error if an element has no name.
func Marshal(doc Element, indent string) ([]byte, error) {
	var buffer bytes.Buffer

	buffer.WriteString(Declaration)
	if indent != "" {
		buffer.WriteString("\n")
	}

	if err := writeElement(&buffer, doc, indent, 0); err != nil {
		return nil, fmt.Errorf("failed to marshal XML: %w", err)
	}

	return buffer.Bytes(), nil
}

// writeElement writes an XML element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, element Element, indent string, level int) error {
	if element.Name == "" {
		return fmt.Errorf("element at level %d has no name", level)
	}

	pretty := indent != ""
	if pretty {
		buffer.WriteString(strings.Repeat(indent, level))
	}

	// Write opening tag.
	buffer.WriteString("<")
	buffer.WriteString(element.Name)

	for _, attr := range element.Attrs {
		fmt.Fprintf(buffer, " %s=\"%s\"", attr.Name, escapeXML(attr.Value))
	}

	// Self-closing tag.
	if len(element.Children) == 0 && element.Text == "" {
		buffer.WriteString("/>")
		if pretty {
			buffer.WriteString("\n")
		}
		return nil
	}

	buffer.WriteString(">")

	if len(element.Children) == 0 {
		buffer.WriteString(escapeXML(element.Text))
	} else {
		if pretty {
			buffer.WriteString("\n")
		}

		for _, child := range element.Children {
			if err := writeElement(buffer, child, indent, level+1); err != nil {
				return err
			}
		}

		if pretty {
			buffer.WriteString(strings.Repeat(indent, level))
		}
	}

	// Write closing tag.
	buffer.WriteString("</")
	buffer.WriteString(element.Name)
	buffer.WriteString(">")
	if pretty {
		buffer.WriteString("\n")
	}

	return nil
}

// escapeXML escapes special characters for XML.
func escapeXML(s string) string {
	var buffer bytes.Buffer

	for _, r := range s {
		switch r {
		case '&':
			buffer.WriteString("&amp;")
		case '<':
			buffer.WriteString("&lt;")
		case '>':
			buffer.WriteString("&gt;")
		case '"':
			buffer.WriteString("&quot;")
		case '\'':
			buffer.WriteString("&apos;")
		default:
			buffer.WriteRune(r)
		}
	}

	return buffer.String()
}
