package refname

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/authoritystore/errors"
)

func TestAuthorityString(t *testing.T) {
	auth := BuildAuthority("core", "personauthorities", "person")
	assert.Equal(t, "urn:cspace:core:personauthorities:person", auth.String())
}

func TestItemString(t *testing.T) {
	item := BuildAuthority("core", "personauthorities", "person").Item("johndoe")
	assert.Equal(t, "urn:cspace:core:personauthorities:person:item:name(johndoe)", item.String())
}

func TestAuthorityRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		tenant  string
		service string
		shortID string
	}{
		{"simple", "core", "vocabularies", "materials"},
		{"tenant with dots", "museum.example.org", "personauthorities", "person"},
		{"short id with dashes", "core", "orgauthorities", "org-local"},
		{"short id with underscores", "lifesci", "taxonomyauthority", "common_names"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			built := BuildAuthority(tt.tenant, tt.service, tt.shortID)
			parsed, err := ParseAuthority(built.String())
			require.NoError(t, err)
			assert.Equal(t, built, parsed)
		})
	}
}

func TestItemRoundTrip(t *testing.T) {
	built := BuildAuthority("core", "vocabularies", "materials").Item("bronze")
	parsed, err := ParseItem(built.String())
	require.NoError(t, err)
	assert.Equal(t, built, parsed)
	assert.Equal(t, "bronze", parsed.ShortID)
	assert.Equal(t, "materials", parsed.Parent.ShortID)
}

func TestParseEitherForm(t *testing.T) {
	auth, item, err := Parse("urn:cspace:core:vocabularies:materials")
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.Equal(t, "materials", auth.ShortID)

	auth, item, err = Parse("urn:cspace:core:vocabularies:materials:item:name(bronze)")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "materials", auth.ShortID)
	assert.Equal(t, "bronze", item.ShortID)
	assert.Equal(t, auth, item.Parent)
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		refName string
	}{
		{"empty", ""},
		{"no prefix", "core:vocabularies:materials"},
		{"missing segments", "urn:cspace:core:vocabularies"},
		{"empty short id", "urn:cspace:core:vocabularies:"},
		{"empty tenant", "urn:cspace::vocabularies:materials"},
		{"item without close paren", "urn:cspace:core:vocabularies:materials:item:name(bronze"},
		{"trailing junk after item", "urn:cspace:core:vocabularies:materials:item:name(bronze)x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.refName)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrBadRefName)
		})
	}
}

func TestParseAuthorityRejectsItemForm(t *testing.T) {
	_, err := ParseAuthority("urn:cspace:core:vocabularies:materials:item:name(bronze)")
	assert.ErrorIs(t, err, errors.ErrBadRefName)
}

func TestParseItemRejectsAuthorityForm(t *testing.T) {
	_, err := ParseItem("urn:cspace:core:vocabularies:materials")
	assert.ErrorIs(t, err, errors.ErrBadRefName)
}

func TestCheckShortID(t *testing.T) {
	assert.NoError(t, CheckShortID("johndoe"))
	assert.NoError(t, CheckShortID("john_doe-2"))
	assert.ErrorIs(t, CheckShortID(""), errors.ErrBadShortID)
	assert.ErrorIs(t, CheckShortID("john)doe"), errors.ErrBadShortID)
	assert.ErrorIs(t, CheckShortID("john:doe"), errors.ErrBadShortID)
}
