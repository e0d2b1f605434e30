package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/authoritystore/config"
	"github.com/c360/authoritystore/errors"
	"github.com/c360/authoritystore/refname"
	"github.com/c360/authoritystore/specifier"
	"github.com/c360/authoritystore/testutil"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		Tenant:        "core",
		Service:       "vocabularies",
		ItemService:   "vocabularyitems",
		AuthorityType: "vocabularies",
		ItemType:      "vocabularyitems",
	}
	cfg.ApplyDefaults()
	return cfg
}

func seededResolver(t *testing.T) (*Resolver, *testutil.Repo) {
	t.Helper()
	repo := testutil.NewRepo()
	cfg := testConfig()

	repo.SeedAuthority("vocabularies", "auth-A", "materials", "Materials",
		"urn:cspace:core:vocabularies:materials")
	repo.SeedAuthority("vocabularies", "auth-B", "colors", "Colors",
		"urn:cspace:core:vocabularies:colors")

	// Identical short id "red" under two different parents.
	repo.SeedItem("vocabularyitems", "item-A-red", "red", "Red (material)", "auth-A",
		"urn:cspace:core:vocabularies:materials:item:name(red)")
	repo.SeedItem("vocabularyitems", "item-B-red", "red", "Red (color)", "auth-B",
		"urn:cspace:core:vocabularies:colors:item:name(red)")

	return New(cfg, repo, nil, nil), repo
}

func TestResolveAuthorityByCSID(t *testing.T) {
	r, _ := seededResolver(t)

	got, err := r.ResolveAuthority(context.Background(),
		specifier.Specifier{Form: specifier.FormCSID, Value: "auth-A"})
	require.NoError(t, err)
	assert.Equal(t, "auth-A", got.CSID)
	assert.True(t, got.ShortIDPending(), "short id is fetched lazily for opaque ids")
}

func TestResolveAuthorityByName(t *testing.T) {
	r, _ := seededResolver(t)

	got, err := r.ResolveAuthority(context.Background(),
		specifier.Specifier{Form: specifier.FormName, Value: "materials"})
	require.NoError(t, err)
	assert.Equal(t, "auth-A", got.CSID)
	assert.Equal(t, "materials", got.ShortID)
	assert.False(t, got.ShortIDPending())
}

func TestResolveAuthorityNameNotFound(t *testing.T) {
	r, _ := seededResolver(t)

	_, err := r.ResolveAuthority(context.Background(),
		specifier.Specifier{Form: specifier.FormName, Value: "absent"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.True(t, errors.IsNotFound(err))
}

func TestResolveAuthorityAmbiguousMatch(t *testing.T) {
	r, repo := seededResolver(t)
	repo.SeedAuthority("vocabularies", "auth-dup", "materials", "Materials Copy",
		"urn:cspace:core:vocabularies:materials2")

	_, err := r.ResolveAuthority(context.Background(),
		specifier.Specifier{Form: specifier.FormName, Value: "materials"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAmbiguousMatch)
	assert.True(t, errors.IsFatal(err))
}

func TestResolveAuthorityRepositoryFault(t *testing.T) {
	r, repo := seededResolver(t)
	repo.FailWith = assert.AnError

	_, err := r.ResolveAuthority(context.Background(),
		specifier.Specifier{Form: specifier.FormName, Value: "materials"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrResolutionFailed)
	assert.Contains(t, err.Error(), "materials", "offending specifier carried for diagnostics")
}

func TestResolveParent(t *testing.T) {
	r, _ := seededResolver(t)

	got, err := r.ResolveParent(context.Background(), "urn:cspace:name(colors)", "getAuthorityItem")
	require.NoError(t, err)
	assert.Equal(t, "auth-B", got.CSID)

	_, err = r.ResolveParent(context.Background(), "urn:cspace:name(broken", "getAuthorityItem")
	assert.ErrorIs(t, err, errors.ErrBadSpecifier)
}

func TestAuthorityShortID(t *testing.T) {
	r, _ := seededResolver(t)

	shortID, err := r.AuthorityShortID(context.Background(), "auth-A")
	require.NoError(t, err)
	assert.Equal(t, "materials", shortID)

	_, err = r.AuthorityShortID(context.Background(), "missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestRefNameBase(t *testing.T) {
	r, _ := seededResolver(t)
	ctx := context.Background()

	// Short id already known.
	base, err := r.RefNameBase(ctx, CSIDAndShortID{CSID: "auth-A", ShortID: "materials"})
	require.NoError(t, err)
	assert.Equal(t, "urn:cspace:core:vocabularies:materials", base.String())

	// Pending short id triggers the lazy fetch.
	base, err = r.RefNameBase(ctx, CSIDAndShortID{CSID: "auth-B", ShortID: FetchShortID})
	require.NoError(t, err)
	assert.Equal(t, "urn:cspace:core:vocabularies:colors", base.String())
}

func TestResolveItemScopedToParent(t *testing.T) {
	r, _ := seededResolver(t)
	ctx := context.Background()
	red := specifier.Specifier{Form: specifier.FormName, Value: "red"}

	csid, err := r.ResolveItem(ctx, red, "auth-A")
	require.NoError(t, err)
	assert.Equal(t, "item-A-red", csid, "parent A scope returns A's item")

	csid, err = r.ResolveItem(ctx, red, "auth-B")
	require.NoError(t, err)
	assert.Equal(t, "item-B-red", csid, "parent B scope returns B's item")
}

func TestResolveItemNotFoundUnderOtherParent(t *testing.T) {
	r, repo := seededResolver(t)
	repo.SeedItem("vocabularyitems", "item-A-blue", "blue", "Blue", "auth-A",
		"urn:cspace:core:vocabularies:materials:item:name(blue)")

	// "blue" exists under auth-A but not auth-B.
	_, err := r.ResolveItem(context.Background(),
		specifier.Specifier{Form: specifier.FormName, Value: "blue"}, "auth-B")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestResolveItemCSIDPassesThrough(t *testing.T) {
	r, _ := seededResolver(t)

	csid, err := r.ResolveItem(context.Background(),
		specifier.Specifier{Form: specifier.FormCSID, Value: "whatever-csid"}, "")
	require.NoError(t, err)
	assert.Equal(t, "whatever-csid", csid)
}

func TestResolveItemNameRequiresParent(t *testing.T) {
	r, _ := seededResolver(t)

	_, err := r.ResolveItem(context.Background(),
		specifier.Specifier{Form: specifier.FormName, Value: "red"}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingParent)
}

func TestResolveItemSpec(t *testing.T) {
	r, _ := seededResolver(t)

	csid, err := r.ResolveItemSpec(context.Background(), "urn:cspace:name(red)", "auth-B", "getAuthorityItem")
	require.NoError(t, err)
	assert.Equal(t, "item-B-red", csid)
}

func TestResolveItemIdentity(t *testing.T) {
	r, _ := seededResolver(t)
	ctx := context.Background()

	ref, err := refname.ParseItem("urn:cspace:core:vocabularies:materials:item:name(red)")
	require.NoError(t, err)

	csid, err := r.ResolveItemIdentity(ctx, &ref)
	require.NoError(t, err)
	assert.Equal(t, "item-A-red", csid)
}

func TestResolveItemIdentityNilRef(t *testing.T) {
	r, _ := seededResolver(t)

	csid, err := r.ResolveItemIdentity(context.Background(), nil)
	require.NoError(t, err, "nil reference is not a resolution failure")
	assert.Empty(t, csid)
}

func TestResourceMapDispatch(t *testing.T) {
	r, _ := seededResolver(t)
	rm := NewResourceMap()
	rm.Register("vocabularies", r)

	ref, err := refname.ParseItem("urn:cspace:core:vocabularies:colors:item:name(red)")
	require.NoError(t, err)

	csid, err := rm.Resolve(context.Background(), &ref)
	require.NoError(t, err)
	assert.Equal(t, "item-B-red", csid)
}

func TestResourceMapUnknownService(t *testing.T) {
	rm := NewResourceMap()

	ref, err := refname.ParseItem("urn:cspace:core:personauthorities:person:item:name(jdoe)")
	require.NoError(t, err)

	_, err = rm.Resolve(context.Background(), &ref)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestResourceMapNilRef(t *testing.T) {
	rm := NewResourceMap()
	csid, err := rm.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, csid)
}
