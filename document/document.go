// Package document defines the repository capability the resource layer is
// built on: an opaque field/value document, simple field-equality where
// clauses, and the pluggable Repository interface.
//
// The resource layer reads and writes only a handful of well-known fields
// (short identifier, display name, in-authority, reference name, parent
// item) plus a configurable list of authority-reference fields. Everything
// else in a document is carried opaquely.
package document

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Well-known schema field names. Field names are stored schema-qualified
// ("<doctype>:<field>"); Qualify builds the qualified form.
const (
	FieldShortIdentifier = "shortIdentifier"
	FieldDisplayName     = "displayName"
	FieldInAuthority     = "inAuthority"
	FieldRefName         = "refName"
	FieldParentItem      = "parentItem"
	FieldWorkflowState   = "workflowState"
)

// Lifecycle transition names understood by FollowTransition.
const (
	TransitionDelete   = "delete"
	TransitionUndelete = "undelete"
	TransitionLock     = "lock"
)

// Workflow states a document moves through.
const (
	StateProject = "project"
	StateDeleted = "deleted"
	StateLocked  = "locked"
)

// Sentinel errors every Repository implementation maps onto.
var (
	// ErrNoSuchDocument distinguishes a missing document from a repository
	// fault. Callers translate it into their own not-found taxonomy.
	ErrNoSuchDocument = errors.New("document: no such document")
	// ErrMultipleMatches is returned by FindOne when a lookup expected to be
	// unique matches more than one document.
	ErrMultipleMatches = errors.New("document: multiple matches")
	// ErrDuplicateKey is returned by Create on a uniqueness conflict.
	ErrDuplicateKey = errors.New("document: duplicate key")
)

// Qualify returns the schema-qualified form of a field name.
func Qualify(docType, field string) string {
	return docType + ":" + field
}

// Document is an opaque field/value bag identified by a CSID within a
// document type. Field keys are unqualified names.
type Document struct {
	CSID   string         `json:"csid"`
	Type   string         `json:"type"`
	Fields map[string]any `json:"fields"`
}

// New creates an empty document of the given type.
func New(docType string) *Document {
	return &Document{Type: docType, Fields: make(map[string]any)}
}

// GetString returns the string value of a field, or "" when the field is
// absent or not a string.
func (d *Document) GetString(field string) string {
	if d == nil || d.Fields == nil {
		return ""
	}
	if s, ok := d.Fields[field].(string); ok {
		return s
	}
	return ""
}

// GetStrings returns a field's value as a string slice. A scalar string
// field yields a one-element slice; absent or empty fields yield nil.
func (d *Document) GetStrings(field string) []string {
	if d == nil || d.Fields == nil {
		return nil
	}
	switch v := d.Fields[field].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		var out []string
		for _, e := range v {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Set stores a field value, allocating the field map if needed.
func (d *Document) Set(field string, value any) {
	if d.Fields == nil {
		d.Fields = make(map[string]any)
	}
	d.Fields[field] = value
}

// Condition is a single field-equality term.
type Condition struct {
	Field string
	Value string
}

// Where is a conjunction of field-equality conditions over one document
// type. It is the only query shape the resource layer needs: lookups by
// short identifier, composite parent-scoped lookups, and reference-field
// scans are all equality/AND expressions.
type Where struct {
	Type       string
	Conditions []Condition
}

// ByField starts a where clause matching one field.
func ByField(docType, field, value string) Where {
	return Where{Type: docType, Conditions: []Condition{{Field: field, Value: value}}}
}

// And appends a field-equality condition.
func (w Where) And(field, value string) Where {
	conds := make([]Condition, len(w.Conditions), len(w.Conditions)+1)
	copy(conds, w.Conditions)
	return Where{Type: w.Type, Conditions: append(conds, Condition{Field: field, Value: value})}
}

// Matches reports whether a document satisfies every condition. Documents of
// a different type never match. A condition on a multi-valued field holds
// when any element equals the condition value.
func (w Where) Matches(d *Document) bool {
	if d == nil || d.Type != w.Type {
		return false
	}
	for _, c := range w.Conditions {
		if !slices.Contains(d.GetStrings(c.Field), c.Value) {
			return false
		}
	}
	return true
}

// String renders the clause for diagnostics in the familiar
// "type:field='value' AND ..." form.
func (w Where) String() string {
	terms := make([]string, 0, len(w.Conditions))
	for _, c := range w.Conditions {
		terms = append(terms, fmt.Sprintf("%s='%s'", Qualify(w.Type, c.Field), c.Value))
	}
	return strings.Join(terms, " AND ")
}
