// Package authority is the resource-facing service over authorities and
// their items: CRUD, lifecycle transitions, list windows, hierarchy
// traversal, and reference tracking, all addressed by specifier.
//
// Every operation that takes a specifier accepts both forms: an opaque CSID
// or a urn:cspace name/id reference. Reference names are generated on
// create and treated as immutable afterwards, as is the short identifier
// they embed.
package authority

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/c360/authoritystore/config"
	"github.com/c360/authoritystore/document"
	"github.com/c360/authoritystore/errors"
	"github.com/c360/authoritystore/hierarchy"
	"github.com/c360/authoritystore/metric"
	"github.com/c360/authoritystore/refname"
	"github.com/c360/authoritystore/refs"
	"github.com/c360/authoritystore/resolve"
	"github.com/c360/authoritystore/specifier"
)

const component = "authority"

// ListQuery windows an authority list. RefName, when set, filters to the
// single authority carrying that reference name.
type ListQuery struct {
	RefName      string
	PageSize     int
	PageNum      int
	ComputeTotal bool
}

// ItemsQuery windows an item list. PartialTerm, when set, filters to items
// whose display name contains the term case-insensitively.
type ItemsQuery struct {
	PartialTerm  string
	PageSize     int
	PageNum      int
	ComputeTotal bool
}

// List is a page of documents. TotalItems is -1 when the total was not
// computed.
type List struct {
	Items      []*document.Document `json:"items"`
	TotalItems int                  `json:"totalItems"`
	PageSize   int                  `json:"pageSize"`
	PageNum    int                  `json:"pageNum"`
}

// Service exposes one authority type (and its item type) as a resource.
type Service struct {
	cfg      *config.Config
	repo     document.Repository
	resolver *resolve.Resolver
	nav      *hierarchy.Navigator
	tracker  *refs.Tracker
	logger   *slog.Logger
	metrics  *metric.Metrics
}

// New wires a Service and its collaborators. logger may be nil; metrics may
// be nil.
func New(cfg *config.Config, repo document.Repository, logger *slog.Logger, metrics *metric.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		repo:     repo,
		resolver: resolve.New(cfg, repo, logger, metrics),
		nav:      hierarchy.New(cfg, repo, logger, metrics),
		tracker:  refs.New(cfg, repo, logger, metrics),
		logger:   logger.With("component", component),
		metrics:  metrics,
	}
}

// Resolver exposes the underlying resolver, chiefly for resource-map
// registration.
func (s *Service) Resolver() *resolve.Resolver { return s.resolver }

// CreateAuthority stores a new authority document. The short identifier
// must round-trip through the reference-name grammar; the reference name is
// generated here and never accepted from the caller.
func (s *Service) CreateAuthority(ctx context.Context, doc *document.Document) (string, error) {
	const op = "CreateAuthority"

	shortID := doc.GetString(document.FieldShortIdentifier)
	if err := refname.CheckShortID(shortID); err != nil {
		return "", errors.WrapInvalid(err, component, op, "validate short identifier")
	}

	doc.Type = s.cfg.AuthorityType
	doc.Set(document.FieldRefName, refname.BuildAuthority(s.cfg.Tenant, s.cfg.Service, shortID).String())
	if doc.GetString(document.FieldWorkflowState) == "" {
		doc.Set(document.FieldWorkflowState, document.StateProject)
	}

	csid, err := s.repo.Create(ctx, doc)
	s.metrics.ObserveRepositoryCall("Create", err)
	if err != nil {
		if stderrors.Is(err, document.ErrDuplicateKey) {
			return "", errors.WrapInvalid(errors.ErrConflict, component, op, "store authority")
		}
		return "", errors.ResolutionFailed(err, component, op, shortID)
	}

	s.logger.Info("authority created", "csid", csid, "shortId", shortID)
	return csid, nil
}

// GetAuthority loads an authority by specifier.
func (s *Service) GetAuthority(ctx context.Context, rawSpec string) (*document.Document, error) {
	const op = "GetAuthority"
	return s.getAuthority(ctx, rawSpec, op)
}

func (s *Service) getAuthority(ctx context.Context, rawSpec, op string) (*document.Document, error) {
	spec, err := specifier.Parse(rawSpec, op)
	if err != nil {
		return nil, err
	}
	if spec.IsName() {
		doc, err := s.repo.FindOne(ctx, s.resolver.WhereAuthorityByName(spec.Value))
		s.metrics.ObserveRepositoryCall("FindOne", err)
		if err != nil {
			return nil, s.mapLookupError(err, op, spec.Value)
		}
		return doc, nil
	}
	doc, err := s.repo.Get(ctx, s.cfg.AuthorityType, spec.Value)
	s.metrics.ObserveRepositoryCall("Get", err)
	if err != nil {
		return nil, s.mapLookupError(err, op, spec.Value)
	}
	return doc, nil
}

// ListAuthorities returns a display-name ordered window over authorities.
// Soft-deleted authorities are excluded.
func (s *Service) ListAuthorities(ctx context.Context, q ListQuery) (List, error) {
	const op = "ListAuthorities"

	where := document.Where{Type: s.cfg.AuthorityType}
	if q.RefName != "" {
		where = document.ByField(s.cfg.AuthorityType, document.FieldRefName, q.RefName)
	}

	docs, _, err := s.repo.FindAll(ctx, where, document.All)
	s.metrics.ObserveRepositoryCall("FindAll", err)
	if err != nil {
		return List{}, errors.ResolutionFailed(err, component, op, q.RefName)
	}

	docs = excludeDeleted(docs)
	sortByDisplayName(docs)
	return s.paginate(docs, q.PageSize, q.PageNum, q.ComputeTotal), nil
}

// UpdateAuthority merges caller fields into an existing authority. The
// short identifier and reference name are immutable; values supplied for
// them are ignored.
func (s *Service) UpdateAuthority(ctx context.Context, rawSpec string, updates *document.Document) (*document.Document, error) {
	const op = "UpdateAuthority"

	doc, err := s.getAuthority(ctx, rawSpec, op)
	if err != nil {
		return nil, err
	}
	mergeFields(doc, updates)

	err = s.repo.Update(ctx, doc)
	s.metrics.ObserveRepositoryCall("Update", err)
	if err != nil {
		return nil, errors.ResolutionFailed(err, component, op, rawSpec)
	}
	return doc, nil
}

// DeleteAuthority removes an authority and every item it contains.
func (s *Service) DeleteAuthority(ctx context.Context, rawSpec string) error {
	const op = "DeleteAuthority"

	doc, err := s.getAuthority(ctx, rawSpec, op)
	if err != nil {
		return err
	}

	items, _, err := s.repo.FindAll(ctx,
		document.ByField(s.cfg.ItemType, document.FieldInAuthority, doc.CSID), document.All)
	s.metrics.ObserveRepositoryCall("FindAll", err)
	if err != nil {
		return errors.ResolutionFailed(err, component, op, rawSpec)
	}
	for _, item := range items {
		if err := s.repo.Delete(ctx, s.cfg.ItemType, item.CSID); err != nil {
			s.metrics.ObserveRepositoryCall("Delete", err)
			return errors.ResolutionFailed(err, component, op, item.CSID)
		}
		s.metrics.ObserveRepositoryCall("Delete", nil)
	}

	err = s.repo.Delete(ctx, s.cfg.AuthorityType, doc.CSID)
	s.metrics.ObserveRepositoryCall("Delete", err)
	if err != nil {
		return errors.ResolutionFailed(err, component, op, rawSpec)
	}

	s.logger.Info("authority deleted", "csid", doc.CSID, "items", len(items))
	return nil
}

// CreateItem stores a new item under the authority named by parentSpec. The
// item reference name is derived from the parent's reference-name base,
// fetching the parent short identifier lazily when the parent was addressed
// by CSID.
func (s *Service) CreateItem(ctx context.Context, parentSpec string, doc *document.Document) (string, error) {
	const op = "CreateItem"
	start := time.Now()

	csid, err := s.createItem(ctx, op, parentSpec, doc)
	s.metrics.ObserveResolution(op, start, err)
	return csid, err
}

func (s *Service) createItem(ctx context.Context, op, parentSpec string, doc *document.Document) (string, error) {
	shortID := doc.GetString(document.FieldShortIdentifier)
	if err := refname.CheckShortID(shortID); err != nil {
		return "", errors.WrapInvalid(err, component, op, "validate short identifier")
	}

	parent, err := s.resolver.ResolveParent(ctx, parentSpec, op)
	if err != nil {
		return "", err
	}
	base, err := s.resolver.RefNameBase(ctx, parent)
	if err != nil {
		return "", err
	}

	doc.Type = s.cfg.ItemType
	doc.Set(document.FieldInAuthority, parent.CSID)
	doc.Set(document.FieldRefName, base.Item(shortID).String())
	if doc.GetString(document.FieldWorkflowState) == "" {
		doc.Set(document.FieldWorkflowState, document.StateProject)
	}

	csid, err := s.repo.Create(ctx, doc)
	s.metrics.ObserveRepositoryCall("Create", err)
	if err != nil {
		if stderrors.Is(err, document.ErrDuplicateKey) {
			return "", errors.WrapInvalid(errors.ErrConflict, component, op, "store item")
		}
		return "", errors.ResolutionFailed(err, component, op, shortID)
	}

	s.logger.Info("item created", "csid", csid, "shortId", shortID, "inAuthority", parent.CSID)
	return csid, nil
}

// GetItem loads an item by parent and item specifiers.
func (s *Service) GetItem(ctx context.Context, parentSpec, itemSpec string) (*document.Document, error) {
	const op = "GetItem"

	csid, err := s.resolveItem(ctx, op, parentSpec, itemSpec)
	if err != nil {
		return nil, err
	}
	doc, err := s.repo.Get(ctx, s.cfg.ItemType, csid)
	s.metrics.ObserveRepositoryCall("Get", err)
	if err != nil {
		return nil, s.mapLookupError(err, op, itemSpec)
	}
	return doc, nil
}

// ListItems returns a display-name ordered window over an authority's
// items, optionally narrowed by a partial display-name term. Soft-deleted
// items are excluded.
func (s *Service) ListItems(ctx context.Context, parentSpec string, q ItemsQuery) (List, error) {
	const op = "ListItems"

	parent, err := s.resolver.ResolveParent(ctx, parentSpec, op)
	if err != nil {
		return List{}, err
	}

	docs, _, err := s.repo.FindAll(ctx,
		document.ByField(s.cfg.ItemType, document.FieldInAuthority, parent.CSID), document.All)
	s.metrics.ObserveRepositoryCall("FindAll", err)
	if err != nil {
		return List{}, errors.ResolutionFailed(err, component, op, parentSpec)
	}

	docs = excludeDeleted(docs)
	if q.PartialTerm != "" {
		term := strings.ToLower(q.PartialTerm)
		filtered := docs[:0]
		for _, d := range docs {
			if strings.Contains(strings.ToLower(d.GetString(document.FieldDisplayName)), term) {
				filtered = append(filtered, d)
			}
		}
		docs = filtered
	}

	sortByDisplayName(docs)
	return s.paginate(docs, q.PageSize, q.PageNum, q.ComputeTotal), nil
}

// UpdateItem merges caller fields into an existing item. Short identifier,
// reference name, and parent linkage are immutable.
func (s *Service) UpdateItem(ctx context.Context, parentSpec, itemSpec string, updates *document.Document) (*document.Document, error) {
	const op = "UpdateItem"

	doc, err := s.GetItem(ctx, parentSpec, itemSpec)
	if err != nil {
		return nil, err
	}
	mergeFields(doc, updates)

	err = s.repo.Update(ctx, doc)
	s.metrics.ObserveRepositoryCall("Update", err)
	if err != nil {
		return nil, errors.ResolutionFailed(err, component, op, itemSpec)
	}
	return doc, nil
}

// DeleteItem removes an item permanently. Use TransitionItem with
// TransitionDelete for the recoverable soft delete.
func (s *Service) DeleteItem(ctx context.Context, parentSpec, itemSpec string) error {
	const op = "DeleteItem"

	csid, err := s.resolveItem(ctx, op, parentSpec, itemSpec)
	if err != nil {
		return err
	}
	err = s.repo.Delete(ctx, s.cfg.ItemType, csid)
	s.metrics.ObserveRepositoryCall("Delete", err)
	if err != nil {
		return s.mapLookupError(err, op, itemSpec)
	}
	s.logger.Info("item deleted", "csid", csid)
	return nil
}

// TransitionItem applies a lifecycle transition (delete, undelete, lock) to
// an item.
func (s *Service) TransitionItem(ctx context.Context, parentSpec, itemSpec, transition string) error {
	const op = "TransitionItem"

	csid, err := s.resolveItem(ctx, op, parentSpec, itemSpec)
	if err != nil {
		return err
	}
	err = s.repo.FollowTransition(ctx, s.cfg.ItemType, csid, transition)
	s.metrics.ObserveRepositoryCall("FollowTransition", err)
	if err != nil {
		if stderrors.Is(err, document.ErrNoSuchDocument) {
			return errors.NotFound(component, op, itemSpec)
		}
		return errors.ResolutionFailed(err, component, op, itemSpec)
	}
	return nil
}

// Hierarchy walks the item tree from the item named by the specifiers.
// direction is the raw query token; anything but "parents" descends.
func (s *Service) Hierarchy(ctx context.Context, parentSpec, itemSpec, direction string) (*hierarchy.Node, error) {
	const op = "Hierarchy"

	parent, err := s.resolver.ResolveParent(ctx, parentSpec, op)
	if err != nil {
		return nil, err
	}
	csid, err := s.resolver.ResolveItemSpec(ctx, itemSpec, parent.CSID, op)
	if err != nil {
		return nil, err
	}

	baseURI := "/" + s.cfg.Service + "/" + parent.CSID + "/items/" + csid
	return s.nav.Walk(ctx, csid, baseURI, hierarchy.ParseDirection(direction))
}

// ReferencingObjects lists the documents referencing an item.
func (s *Service) ReferencingObjects(ctx context.Context, parentSpec, itemSpec string, q refs.Query) (refs.RefDocList, error) {
	const op = "ReferencingObjects"

	csid, err := s.resolveItem(ctx, op, parentSpec, itemSpec)
	if err != nil {
		return refs.RefDocList{}, err
	}
	return s.tracker.ReferencingObjects(ctx, csid, q)
}

// AuthorityRefs lists the authority references held by an item's own
// fields.
func (s *Service) AuthorityRefs(ctx context.Context, parentSpec, itemSpec string) ([]refs.RefEntry, error) {
	const op = "AuthorityRefs"

	csid, err := s.resolveItem(ctx, op, parentSpec, itemSpec)
	if err != nil {
		return nil, err
	}
	return s.tracker.AuthorityRefs(ctx, csid)
}

// resolveItem resolves the parent specifier, then the item specifier under
// it.
func (s *Service) resolveItem(ctx context.Context, op, parentSpec, itemSpec string) (string, error) {
	parent, err := s.resolver.ResolveParent(ctx, parentSpec, op)
	if err != nil {
		return "", err
	}
	return s.resolver.ResolveItemSpec(ctx, itemSpec, parent.CSID, op)
}

func (s *Service) paginate(docs []*document.Document, pageSize, pageNum int, computeTotal bool) List {
	if pageSize <= 0 {
		pageSize = s.cfg.DefaultPageSize
	}
	if pageNum < 0 {
		pageNum = 0
	}
	total := -1
	if computeTotal {
		total = len(docs)
	}
	start := pageNum * pageSize
	if start > len(docs) {
		start = len(docs)
	}
	end := start + pageSize
	if end > len(docs) {
		end = len(docs)
	}
	return List{Items: docs[start:end], TotalItems: total, PageSize: pageSize, PageNum: pageNum}
}

func (s *Service) mapLookupError(err error, op, spec string) error {
	switch {
	case stderrors.Is(err, document.ErrNoSuchDocument):
		return errors.NotFound(component, op, spec)
	case stderrors.Is(err, document.ErrMultipleMatches):
		s.logger.Error("unique lookup matched multiple documents", "operation", op, "specifier", spec)
		return errors.Ambiguous(component, op, spec)
	default:
		return errors.ResolutionFailed(err, component, op, spec)
	}
}

// mergeFields copies caller-updatable fields, skipping the immutable
// identity fields.
func mergeFields(dst, src *document.Document) {
	if src == nil || src.Fields == nil {
		return
	}
	for field, value := range src.Fields {
		switch field {
		case document.FieldShortIdentifier, document.FieldRefName, document.FieldInAuthority:
			continue
		}
		dst.Set(field, value)
	}
}

func excludeDeleted(docs []*document.Document) []*document.Document {
	out := docs[:0]
	for _, d := range docs {
		if d.GetString(document.FieldWorkflowState) != document.StateDeleted {
			out = append(out, d)
		}
	}
	return out
}

func sortByDisplayName(docs []*document.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		di := docs[i].GetString(document.FieldDisplayName)
		dj := docs[j].GetString(document.FieldDisplayName)
		if di != dj {
			return di < dj
		}
		return docs[i].CSID < docs[j].CSID
	})
}
