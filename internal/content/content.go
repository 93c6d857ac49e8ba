// Package content classifies raw field values as plain text, JSON, or
// {{ }}-delimited JSON, and converts between the stored form and the
// human-editable form shown in the editor.
//
// Classification is a shape sniff followed by a parse attempt:
//
//	{{ ... }}      parsed as delimited JSON
//	{ ... } [ ... ] parsed as JSON
//	anything else  plain text
//
// A value whose shape suggests structure but which does not parse is treated
// as plain text and kept byte-for-byte.
package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Kind is the structural kind of a value.
type Kind int

const (
	// KindPlainText is unstructured text, edited and committed verbatim.
	KindPlainText Kind = iota
	// KindJSON is a JSON document.
	KindJSON
	// KindDelimitedJSON is a JSON document wrapped in a {{ }} marker pair.
	KindDelimitedJSON
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindPlainText:
		return "plain"
	case KindJSON:
		return "json"
	case KindDelimitedJSON:
		return "delimited-json"
	default:
		return "unknown"
	}
}

// Structured reports whether values of this kind are re-serialized on save.
func (k Kind) Structured() bool {
	return k == KindJSON || k == KindDelimitedJSON
}

// Delimiters and pretty-print indentation.
const (
	DelimOpen  = "{{"
	DelimClose = "}}"
	Indent     = "    "
)

// ErrMalformed is returned by Serialize when edited text that started out
// structured no longer parses. The caller commits the edited text unchanged.
var ErrMalformed = errors.New("content: not well-formed JSON")

// Classified is the result of classifying a raw value.
type Classified struct {
	// Kind is the detected structural kind.
	Kind Kind

	// Raw is the original value, unchanged.
	Raw string

	// Display is the editable form: pretty-printed for structured kinds,
	// Raw otherwise.
	Display string

	// Valid is false when the value looked structured but failed to parse.
	Valid bool

	// Warning explains a fallback to plain text. Empty when Valid.
	Warning string
}

// Payload returns the JSON text of a structured value with the delimiters
// removed. It returns "" for plain text.
func (c Classified) Payload() string {
	switch c.Kind {
	case KindJSON:
		return strings.TrimSpace(c.Raw)
	case KindDelimitedJSON:
		inner, _ := unwrap(strings.TrimSpace(c.Raw))
		return inner
	default:
		return ""
	}
}

// Classifier classifies raw values. Implementations must be safe for
// concurrent use.
type Classifier interface {
	Classify(raw string) Classified
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(raw string) Classified

// Classify calls f(raw).
func (f ClassifierFunc) Classify(raw string) Classified {
	return f(raw)
}

// Default is the shape-sniffing classifier.
var Default Classifier = ClassifierFunc(Classify)

// Classify determines the kind of raw and builds its display form.
func Classify(raw string) Classified {
	trimmed := strings.TrimSpace(raw)

	if inner, ok := unwrap(trimmed); ok {
		pretty, err := prettyPrint(inner)
		if err != nil {
			return fallback(raw, "delimited value is not valid JSON; editing as plain text")
		}
		c := Classified{
			Kind:    KindDelimitedJSON,
			Raw:     raw,
			Display: DelimOpen + "\n" + pretty + "\n" + DelimClose,
			Valid:   true,
		}
		return verify(c, inner)
	}

	if looksLikeJSON(trimmed) {
		pretty, err := prettyPrint(trimmed)
		if err != nil {
			return fallback(raw, "value is not valid JSON; editing as plain text")
		}
		c := Classified{
			Kind:    KindJSON,
			Raw:     raw,
			Display: pretty,
			Valid:   true,
		}
		return verify(c, trimmed)
	}

	return Classified{Kind: KindPlainText, Raw: raw, Display: raw, Valid: true}
}

// Serialize returns the value to commit for edited text whose original
// classification was orig. Plain text is returned verbatim. Structured text
// is re-checked for the delimiter pair, since the user may have added or
// removed it, and compacted. If it no longer parses, edited is returned
// unchanged together with ErrMalformed.
func Serialize(orig Kind, edited string) (string, error) {
	if !orig.Structured() {
		return edited, nil
	}

	trimmed := strings.TrimSpace(edited)
	if inner, ok := unwrap(trimmed); ok {
		compact, err := compactJSON(inner)
		if err != nil {
			return edited, ErrMalformed
		}
		return DelimOpen + compact + DelimClose, nil
	}

	compact, err := compactJSON(trimmed)
	if err != nil {
		return edited, ErrMalformed
	}
	return compact, nil
}

// Canonical returns the compact re-serialization of a classified value, the
// form Serialize would commit if the display text were saved unedited.
func Canonical(c Classified) string {
	out, err := Serialize(c.Kind, c.Display)
	if err != nil {
		return c.Raw
	}
	return out
}

func fallback(raw, warning string) Classified {
	return Classified{
		Kind:    KindPlainText,
		Raw:     raw,
		Display: raw,
		Valid:   false,
		Warning: warning,
	}
}

// verify checks that the display form re-serializes to the same structure as
// the source. Whitespace is the only thing allowed to differ.
func verify(c Classified, source string) Classified {
	want, err := compactJSON(source)
	if err != nil {
		return fallback(c.Raw, "value could not be re-serialized; editing as plain text")
	}
	got, err := Serialize(c.Kind, c.Display)
	if err != nil {
		return fallback(c.Raw, "value could not be re-serialized; editing as plain text")
	}
	if c.Kind == KindDelimitedJSON {
		want = DelimOpen + want + DelimClose
	}
	if got != want {
		return fallback(c.Raw, "value does not round-trip; editing as plain text")
	}
	return c
}

// unwrap strips the {{ }} pair from an already trimmed string.
func unwrap(s string) (string, bool) {
	if len(s) < len(DelimOpen)+len(DelimClose) {
		return "", false
	}
	if !strings.HasPrefix(s, DelimOpen) || !strings.HasSuffix(s, DelimClose) {
		return "", false
	}
	return s[len(DelimOpen) : len(s)-len(DelimClose)], true
}

func looksLikeJSON(s string) bool {
	return (strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")) ||
		(strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"))
}

// prettyPrint re-indents a JSON document. Token text (numbers, string
// escapes, key order) is copied through untouched.
func prettyPrint(s string) (string, error) {
	src := []byte(strings.TrimSpace(s))
	if !json.Valid(src) {
		return "", ErrMalformed
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, src, "", Indent); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func compactJSON(s string) (string, error) {
	src := []byte(strings.TrimSpace(s))
	if !json.Valid(src) {
		return "", ErrMalformed
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, src); err != nil {
		return "", err
	}
	return buf.String(), nil
}
