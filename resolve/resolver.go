// Package resolve converts specifiers into concrete document identities.
//
// Authority resolution is scoped to the configured tenant and service; item
// resolution is additionally scoped to a parent authority CSID, so the same
// short identifier may exist under different parents without collision.
package resolve

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/c360/authoritystore/config"
	"github.com/c360/authoritystore/document"
	"github.com/c360/authoritystore/errors"
	"github.com/c360/authoritystore/metric"
	"github.com/c360/authoritystore/refname"
	"github.com/c360/authoritystore/specifier"
)

const component = "resolver"

// FetchShortID marks a short identifier that has not been resolved yet.
// Most callers only need the CSID; the short identifier is fetched lazily
// via AuthorityShortID when a reference-name base must be built.
const FetchShortID = "_fetch_"

// CSIDAndShortID pairs an authority CSID with its short identifier, which
// may still be pending.
type CSIDAndShortID struct {
	CSID    string
	ShortID string
}

// ShortIDPending reports whether the short identifier must be fetched on
// demand.
func (c CSIDAndShortID) ShortIDPending() bool {
	return c.ShortID == FetchShortID
}

// Resolver turns specifiers into CSIDs through the repository.
type Resolver struct {
	cfg     *config.Config
	repo    document.Repository
	logger  *slog.Logger
	metrics *metric.Metrics
}

// New creates a Resolver. logger may be nil (slog.Default is used); metrics
// may be nil to run unmetered.
func New(cfg *config.Config, repo document.Repository, logger *slog.Logger, metrics *metric.Metrics) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		cfg:     cfg,
		repo:    repo,
		logger:  logger.With("component", component),
		metrics: metrics,
	}
}

// WhereAuthorityByName builds the lookup clause for an authority short
// identifier. Tenant isolation happens at the repository level (one bucket
// per tenant); service scoping is the document type.
func (r *Resolver) WhereAuthorityByName(name string) document.Where {
	return document.ByField(r.cfg.AuthorityType, document.FieldShortIdentifier, name)
}

// WhereItemByName builds the composite-key clause for an item short
// identifier scoped to its parent authority.
func (r *Resolver) WhereItemByName(name, parentCSID string) document.Where {
	return document.ByField(r.cfg.ItemType, document.FieldShortIdentifier, name).
		And(document.FieldInAuthority, parentCSID)
}

// ResolveAuthority resolves an authority specifier to its CSID. For a CSID
// specifier the value passes through and the short identifier is marked
// pending; for a name specifier the repository is queried and exactly one
// match is expected.
func (r *Resolver) ResolveAuthority(ctx context.Context, spec specifier.Specifier) (CSIDAndShortID, error) {
	const op = "ResolveAuthority"
	start := time.Now()

	if !spec.IsName() {
		r.metrics.ObserveResolution(op, start, nil)
		return CSIDAndShortID{CSID: spec.Value, ShortID: FetchShortID}, nil
	}

	doc, err := r.findOne(ctx, op, r.WhereAuthorityByName(spec.Value), spec.Value)
	r.metrics.ObserveResolution(op, start, err)
	if err != nil {
		return CSIDAndShortID{}, err
	}

	r.logger.Debug("resolved authority by name", "shortId", spec.Value, "csid", doc.CSID)
	return CSIDAndShortID{CSID: doc.CSID, ShortID: spec.Value}, nil
}

// ResolveParent parses a raw parent specifier and resolves it. operation
// names the calling resource operation for diagnostics.
func (r *Resolver) ResolveParent(ctx context.Context, raw, operation string) (CSIDAndShortID, error) {
	spec, err := specifier.Parse(raw, operation)
	if err != nil {
		return CSIDAndShortID{}, err
	}
	return r.ResolveAuthority(ctx, spec)
}

// AuthorityShortID loads an authority document and returns its short
// identifier. Used when an item create needs a reference-name base and the
// caller supplied only an opaque parent CSID.
func (r *Resolver) AuthorityShortID(ctx context.Context, csid string) (string, error) {
	const op = "AuthorityShortID"
	start := time.Now()

	doc, err := r.repo.Get(ctx, r.cfg.AuthorityType, csid)
	r.metrics.ObserveRepositoryCall("Get", err)
	if err != nil {
		err = r.mapLookupError(err, op, csid)
		r.metrics.ObserveResolution(op, start, err)
		return "", err
	}
	r.metrics.ObserveResolution(op, start, nil)
	return doc.GetString(document.FieldShortIdentifier), nil
}

// RefNameBase returns the reference-name base for a resolved parent
// authority, fetching the short identifier first when it is pending.
func (r *Resolver) RefNameBase(ctx context.Context, parent CSIDAndShortID) (refname.Authority, error) {
	shortID := parent.ShortID
	if parent.ShortIDPending() {
		fetched, err := r.AuthorityShortID(ctx, parent.CSID)
		if err != nil {
			return refname.Authority{}, err
		}
		shortID = fetched
	}
	return refname.BuildAuthority(r.cfg.Tenant, r.cfg.Service, shortID), nil
}

// ResolveItem resolves an item specifier scoped to a parent authority CSID.
func (r *Resolver) ResolveItem(ctx context.Context, spec specifier.Specifier, parentCSID string) (string, error) {
	const op = "ResolveItem"
	start := time.Now()

	if !spec.IsName() {
		r.metrics.ObserveResolution(op, start, nil)
		return spec.Value, nil
	}
	if parentCSID == "" {
		err := errors.WrapInvalid(errors.ErrMissingParent, component, op, "scope item lookup")
		r.metrics.ObserveResolution(op, start, err)
		return "", err
	}

	doc, err := r.findOne(ctx, op, r.WhereItemByName(spec.Value, parentCSID), spec.Value)
	r.metrics.ObserveResolution(op, start, err)
	if err != nil {
		return "", err
	}

	r.logger.Debug("resolved item by name",
		"shortId", spec.Value, "parentCsid", parentCSID, "csid", doc.CSID)
	return doc.CSID, nil
}

// ResolveItemSpec parses a raw item specifier and resolves it under the
// given parent.
func (r *Resolver) ResolveItemSpec(ctx context.Context, raw, parentCSID, operation string) (string, error) {
	spec, err := specifier.Parse(raw, operation)
	if err != nil {
		return "", err
	}
	return r.ResolveItem(ctx, spec, parentCSID)
}

// ResolveItemIdentity resolves a fully-qualified item reference name: the
// embedded authority short identifier first, then the item short identifier
// under that parent. A nil reference resolves to the empty CSID with no
// error; callers must treat that distinctly from a resolution failure.
func (r *Resolver) ResolveItemIdentity(ctx context.Context, ref *refname.Item) (string, error) {
	if ref == nil {
		return "", nil
	}

	parent, err := r.ResolveAuthority(ctx, specifier.Specifier{Form: specifier.FormName, Value: ref.Parent.ShortID})
	if err != nil {
		return "", err
	}
	return r.ResolveItem(ctx, specifier.Specifier{Form: specifier.FormName, Value: ref.ShortID}, parent.CSID)
}

// findOne runs a unique lookup and maps repository errors onto the
// resolution taxonomy.
func (r *Resolver) findOne(ctx context.Context, op string, where document.Where, spec string) (*document.Document, error) {
	doc, err := r.repo.FindOne(ctx, where)
	r.metrics.ObserveRepositoryCall("FindOne", err)
	if err != nil {
		return nil, r.mapLookupError(err, op, spec)
	}
	return doc, nil
}

func (r *Resolver) mapLookupError(err error, op, spec string) error {
	switch {
	case stderrors.Is(err, document.ErrNoSuchDocument):
		return errors.NotFound(component, op, spec)
	case stderrors.Is(err, document.ErrMultipleMatches):
		r.logger.Error("unique lookup matched multiple documents", "operation", op, "specifier", spec)
		return errors.Ambiguous(component, op, spec)
	default:
		return errors.ResolutionFailed(err, component, op, spec)
	}
}
