package models

import (
	"fmt"
	"strings"
)

// NormalizeStatus maps any status token to its canonical form: the value
// as text, trimmed and lowercased. Nil becomes the empty string. Unknown
// tokens pass through unchanged so callers can treat them as "other".
func NormalizeStatus(raw any) string {
	var s string
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		s = v
	case Scalar:
		s = string(v)
	case *Scalar:
		if v == nil {
			return ""
		}
		s = string(*v)
	case fmt.Stringer:
		s = v.String()
	default:
		s = fmt.Sprint(v)
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// CanonicalStatus returns the canonical status of a request.
func (b *RequestBase) CanonicalStatus() string {
	return NormalizeStatus(b.Status)
}
