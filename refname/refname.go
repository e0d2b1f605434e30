// Package refname builds and parses canonical reference names for
// authorities and authority items.
//
// The grammar is wire-compatible with every system that stores these values
// and must be reproduced bit-exact:
//
//	urn:cspace:<tenant>:<service>:<short-id>                          authority
//	urn:cspace:<tenant>:<service>:<short-id>:item:name(<item-short-id>)  item
//
// Construction is deterministic, pure string work with no I/O, and parsing
// is its exact inverse: for any tuple whose components satisfy CheckShortID,
// Parse(Build(...).String()) recovers the original tuple.
package refname

import (
	"fmt"
	"strings"

	"github.com/c360/authoritystore/errors"
)

// Grammar tokens. Wire-compatible values, do not change.
const (
	URNPrefix = "urn:cspace:"
	itemToken = ":item:name("
)

// Authority is the parsed form of an authority reference name.
type Authority struct {
	Tenant  string
	Service string
	ShortID string
}

// BuildAuthority constructs the reference name for an authority scoped to a
// tenant and service.
func BuildAuthority(tenant, service, shortID string) Authority {
	return Authority{Tenant: tenant, Service: service, ShortID: shortID}
}

// String renders the canonical authority reference name.
func (a Authority) String() string {
	return fmt.Sprintf("%s%s:%s:%s", URNPrefix, a.Tenant, a.Service, a.ShortID)
}

// Item appends an item short identifier, producing an item reference name
// under this authority.
func (a Authority) Item(shortID string) Item {
	return Item{Parent: a, ShortID: shortID}
}

// Item is the parsed form of an authority item reference name.
type Item struct {
	Parent  Authority
	ShortID string
}

// String renders the canonical item reference name.
func (i Item) String() string {
	return i.Parent.String() + itemToken + i.ShortID + ")"
}

// CheckShortID validates a short identifier for use in a reference name.
// Short identifiers containing ')' or ':' cannot round-trip through the
// grammar and are rejected; so is the empty string.
func CheckShortID(shortID string) error {
	switch {
	case shortID == "":
		return fmt.Errorf("%w: empty", errors.ErrBadShortID)
	case strings.ContainsAny(shortID, "):"):
		return fmt.Errorf("%w: %q must not contain ')' or ':'", errors.ErrBadShortID, shortID)
	}
	return nil
}

// ParseAuthority parses an authority reference name. Item reference names
// are rejected; use ParseItem or Parse when the form is not known.
func ParseAuthority(refName string) (Authority, error) {
	auth, item, err := Parse(refName)
	if err != nil {
		return Authority{}, err
	}
	if item != nil {
		return Authority{}, fmt.Errorf("%w: %q names an item, not an authority", errors.ErrBadRefName, refName)
	}
	return auth, nil
}

// ParseItem parses an item reference name. Authority-only reference names
// are rejected.
func ParseItem(refName string) (Item, error) {
	_, item, err := Parse(refName)
	if err != nil {
		return Item{}, err
	}
	if item == nil {
		return Item{}, fmt.Errorf("%w: %q has no item segment", errors.ErrBadRefName, refName)
	}
	return *item, nil
}

// Parse parses a reference name of either form. For an authority name the
// returned Item is nil.
func Parse(refName string) (Authority, *Item, error) {
	if !strings.HasPrefix(refName, URNPrefix) {
		return Authority{}, nil, fmt.Errorf("%w: %q missing %q prefix", errors.ErrBadRefName, refName, URNPrefix)
	}
	rest := refName[len(URNPrefix):]

	var itemShortID string
	hasItem := false
	if idx := strings.Index(rest, itemToken); idx >= 0 {
		tail := rest[idx+len(itemToken):]
		end := strings.IndexByte(tail, ')')
		if end < 0 || end != len(tail)-1 {
			return Authority{}, nil, fmt.Errorf("%w: %q has malformed item segment", errors.ErrBadRefName, refName)
		}
		itemShortID = tail[:end]
		rest = rest[:idx]
		hasItem = true
	}

	parts := strings.SplitN(rest, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Authority{}, nil, fmt.Errorf("%w: %q is not tenant:service:short-id", errors.ErrBadRefName, refName)
	}

	auth := Authority{Tenant: parts[0], Service: parts[1], ShortID: parts[2]}
	if !hasItem {
		return auth, nil, nil
	}
	return auth, &Item{Parent: auth, ShortID: itemShortID}, nil
}
