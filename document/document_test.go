package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetString(t *testing.T) {
	doc := New("vocabularies")
	doc.Set(FieldShortIdentifier, "materials")
	doc.Set("count", 3)

	assert.Equal(t, "materials", doc.GetString(FieldShortIdentifier))
	assert.Equal(t, "", doc.GetString("missing"))
	assert.Equal(t, "", doc.GetString("count"), "non-string fields read as empty")

	var nilDoc *Document
	assert.Equal(t, "", nilDoc.GetString(FieldShortIdentifier))
}

func TestGetStrings(t *testing.T) {
	doc := New("vocabularyitems")
	doc.Set("scalar", "one")
	doc.Set("empty", "")
	doc.Set("slice", []string{"a", "b"})
	doc.Set("anySlice", []any{"x", 7, "y", ""})

	assert.Equal(t, []string{"one"}, doc.GetStrings("scalar"))
	assert.Nil(t, doc.GetStrings("empty"))
	assert.Equal(t, []string{"a", "b"}, doc.GetStrings("slice"))
	assert.Equal(t, []string{"x", "y"}, doc.GetStrings("anySlice"))
	assert.Nil(t, doc.GetStrings("missing"))
}

func TestWhereMatches(t *testing.T) {
	doc := New("vocabularyitems")
	doc.CSID = "item-1"
	doc.Set(FieldShortIdentifier, "red")
	doc.Set(FieldInAuthority, "auth-A")

	assert.True(t, ByField("vocabularyitems", FieldShortIdentifier, "red").Matches(doc))
	assert.True(t, ByField("vocabularyitems", FieldShortIdentifier, "red").
		And(FieldInAuthority, "auth-A").Matches(doc))
	assert.False(t, ByField("vocabularyitems", FieldShortIdentifier, "red").
		And(FieldInAuthority, "auth-B").Matches(doc))
	assert.False(t, ByField("vocabularies", FieldShortIdentifier, "red").Matches(doc),
		"type mismatch never matches")
	assert.False(t, ByField("vocabularyitems", FieldShortIdentifier, "red").Matches(nil))
}

func TestWhereMatchesMultiValuedField(t *testing.T) {
	doc := New("acquisitions")
	doc.Set("materialRef", []string{"urn:a", "urn:b"})

	assert.True(t, ByField("acquisitions", "materialRef", "urn:b").Matches(doc),
		"any element of a multi-valued field can satisfy a condition")
	assert.False(t, ByField("acquisitions", "materialRef", "urn:c").Matches(doc))
}

func TestWhereAndDoesNotAliasConditions(t *testing.T) {
	base := ByField("vocabularyitems", FieldShortIdentifier, "red")
	a := base.And(FieldInAuthority, "auth-A")
	b := base.And(FieldInAuthority, "auth-B")

	assert.Equal(t, "auth-A", a.Conditions[1].Value)
	assert.Equal(t, "auth-B", b.Conditions[1].Value)
}

func TestWhereString(t *testing.T) {
	w := ByField("vocabularyitems", FieldShortIdentifier, "red").And(FieldInAuthority, "auth-A")
	assert.Equal(t,
		"vocabularyitems:shortIdentifier='red' AND vocabularyitems:inAuthority='auth-A'", w.String())
}

func TestQualify(t *testing.T) {
	assert.Equal(t, "vocabularies_common:refName", Qualify("vocabularies_common", "refName"))
}
