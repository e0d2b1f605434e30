// Package specifier parses raw caller-supplied identifiers into typed
// specifiers. A specifier arrives as either an opaque CSID, or a urn:cspace
// form wrapping a name reference or an explicit id.
package specifier

import (
	"strings"

	"github.com/c360/authoritystore/errors"
)

// URN grammar constants. These are wire-compatible values and must not change.
const (
	URNPrefix     = "urn:cspace:"
	urnNameToken  = "name("
	urnIDToken    = "id("
	urnNameOffset = len(URNPrefix) + len(urnNameToken)
	urnIDOffset   = len(URNPrefix) + len(urnIDToken)
)

// Form distinguishes the two specifier forms.
type Form int

const (
	// FormCSID is an opaque system identifier used verbatim.
	FormCSID Form = iota
	// FormName is a short-identifier reference requiring a scoped lookup.
	FormName
)

// String returns the string representation of Form
func (f Form) String() string {
	switch f {
	case FormCSID:
		return "csid"
	case FormName:
		return "name"
	default:
		return "unknown"
	}
}

// Specifier is a transient, request-scoped identifier: the form tag plus the
// extracted value. It is never persisted.
type Specifier struct {
	Form  Form
	Value string
}

// IsName reports whether the specifier requires a name-based lookup.
func (s Specifier) IsName() bool { return s.Form == FormName }

// Parse turns a raw identifier into a Specifier.
//
// A value without the urn:cspace: prefix is assumed to be a CSID and passed
// through verbatim. With the prefix, exactly two sub-forms are recognized:
// name(<value>) and id(<value>), each requiring a closing parenthesis. The
// extracted value is not normalized in any way.
//
// operation names the calling operation and is carried into the error for
// diagnostics. Malformed input fails immediately with ErrBadSpecifier; it is
// never retried.
func Parse(raw, operation string) (Specifier, error) {
	if raw == "" {
		return Specifier{}, errors.BadSpecifier(operation, raw)
	}
	if !strings.HasPrefix(raw, URNPrefix) {
		// Assumed to be a CSID; the repository will complain if it is not.
		return Specifier{Form: FormCSID, Value: raw}, nil
	}
	rest := raw[len(URNPrefix):]
	switch {
	case strings.HasPrefix(rest, urnNameToken):
		if end := strings.IndexByte(raw[urnNameOffset:], ')'); end >= 0 {
			return Specifier{Form: FormName, Value: raw[urnNameOffset : urnNameOffset+end]}, nil
		}
	case strings.HasPrefix(rest, urnIDToken):
		if end := strings.IndexByte(raw[urnIDOffset:], ')'); end >= 0 {
			return Specifier{Form: FormCSID, Value: raw[urnIDOffset : urnIDOffset+end]}, nil
		}
	}
	return Specifier{}, errors.BadSpecifier(operation, raw)
}
