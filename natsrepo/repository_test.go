package natsrepo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/authoritystore/document"
	"github.com/c360/authoritystore/errors"
)

func TestDocKey(t *testing.T) {
	assert.Equal(t, "vocabularies.abc-123", docKey("vocabularies", "abc-123"))
	assert.Equal(t, "vocabularyitems.x", docKey("vocabularyitems", "x"))
}

func TestDecode(t *testing.T) {
	doc, err := decode([]byte(`{"csid":"c1","type":"vocabularies","fields":{"shortIdentifier":"materials"}}`))
	require.NoError(t, err)
	assert.Equal(t, "c1", doc.CSID)
	assert.Equal(t, "vocabularies", doc.Type)
	assert.Equal(t, "materials", doc.GetString(document.FieldShortIdentifier))
}

func TestDecodeCorrupt(t *testing.T) {
	_, err := decode([]byte("{not json"))
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err), "corrupt stored data is not retryable")
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Positive(t, opts.Timeout)
	assert.GreaterOrEqual(t, opts.Retry.MaxAttempts, 2)
	assert.True(t, opts.Retry.AddJitter)
}
