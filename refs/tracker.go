// Package refs answers both directions of the authority-reference relation:
// which documents elsewhere in the system point at an item (referencing
// objects), and which authority references an item's own fields hold.
package refs

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sort"
	"time"

	"github.com/c360/authoritystore/config"
	"github.com/c360/authoritystore/document"
	"github.com/c360/authoritystore/errors"
	"github.com/c360/authoritystore/metric"
)

const component = "refs"

// Query controls a referencing-objects lookup. A zero ServiceType selects
// the configured default category; a zero PageSize selects the configured
// default and a negative PageNum means the first page. ComputeTotal asks
// for the total match count, which costs a full scan - callers opt in.
type Query struct {
	ServiceType  string
	PageSize     int
	PageNum      int
	ComputeTotal bool
}

// RefDoc describes one document whose authority-reference field points at
// the item being queried.
type RefDoc struct {
	CSID        string `json:"csid"`
	DocType     string `json:"docType"`
	Field       string `json:"field"`
	DisplayName string `json:"displayName,omitempty"`
}

// RefDocList is a page of referencing documents. TotalItems is -1 when the
// total was not computed.
type RefDocList struct {
	Items      []RefDoc `json:"items"`
	TotalItems int      `json:"totalItems"`
	PageSize   int      `json:"pageSize"`
	PageNum    int      `json:"pageNum"`
}

// RefEntry is one populated authority-reference field on an item: the
// schema field and the reference name it holds.
type RefEntry struct {
	Field   string `json:"field"`
	RefName string `json:"refName"`
}

// Tracker computes reference relations through the repository. All
// configuration (reference field names, service-type categories) is passed
// in explicitly.
type Tracker struct {
	cfg     *config.Config
	repo    document.Repository
	logger  *slog.Logger
	metrics *metric.Metrics
}

// New creates a Tracker. logger may be nil; metrics may be nil.
func New(cfg *config.Config, repo document.Repository, logger *slog.Logger, metrics *metric.Metrics) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		cfg:     cfg,
		repo:    repo,
		logger:  logger.With("component", component),
		metrics: metrics,
	}
}

// ReferencingObjects returns the documents in the queried service-type
// category whose authority-reference fields equal the item's reference
// name.
func (t *Tracker) ReferencingObjects(ctx context.Context, itemCSID string, q Query) (RefDocList, error) {
	const op = "ReferencingObjects"
	start := time.Now()

	list, err := t.referencingObjects(ctx, op, itemCSID, q)
	t.metrics.ObserveResolution(op, start, err)
	if err == nil && t.metrics != nil {
		t.metrics.ReferencingDocs.Observe(float64(len(list.Items)))
	}
	return list, err
}

func (t *Tracker) referencingObjects(ctx context.Context, op, itemCSID string, q Query) (RefDocList, error) {
	refName, err := t.itemRefName(ctx, op, itemCSID)
	if err != nil {
		return RefDocList{}, err
	}

	serviceType := q.ServiceType
	if serviceType == "" {
		serviceType = t.cfg.Refs.DefaultServiceType
	}
	docTypes := t.cfg.Refs.ServiceTypes[serviceType]
	if len(docTypes) == 0 {
		t.logger.Debug("no document types configured for service type", "serviceType", serviceType)
	}

	// One equality scan per (docType, field) pair; a document referencing
	// the item through several fields yields one RefDoc per field.
	var matches []RefDoc
	for _, docType := range docTypes {
		for _, field := range t.cfg.Refs.Fields {
			where := document.ByField(docType, field, refName)
			docs, _, err := t.repo.FindAll(ctx, where, document.All)
			t.metrics.ObserveRepositoryCall("FindAll", err)
			if err != nil {
				return RefDocList{}, errors.ResolutionFailed(err, component, op, refName)
			}
			for _, doc := range docs {
				matches = append(matches, RefDoc{
					CSID:        doc.CSID,
					DocType:     docType,
					Field:       field,
					DisplayName: doc.GetString(document.FieldDisplayName),
				})
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CSID != matches[j].CSID {
			return matches[i].CSID < matches[j].CSID
		}
		return matches[i].Field < matches[j].Field
	})

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = t.cfg.DefaultPageSize
	}
	pageNum := q.PageNum
	if pageNum < 0 {
		pageNum = 0
	}
	total := -1
	if q.ComputeTotal {
		total = len(matches)
	}

	startIdx := pageNum * pageSize
	if startIdx > len(matches) {
		startIdx = len(matches)
	}
	endIdx := startIdx + pageSize
	if endIdx > len(matches) {
		endIdx = len(matches)
	}

	return RefDocList{
		Items:      matches[startIdx:endIdx],
		TotalItems: total,
		PageSize:   pageSize,
		PageNum:    pageNum,
	}, nil
}

// AuthorityRefs returns every populated authority-reference value on the
// item's configured reference fields, in field-configuration order. An item
// with no populated reference fields yields an empty result, not an error.
func (t *Tracker) AuthorityRefs(ctx context.Context, itemCSID string) ([]RefEntry, error) {
	const op = "AuthorityRefs"
	start := time.Now()

	doc, err := t.repo.Get(ctx, t.cfg.ItemType, itemCSID)
	t.metrics.ObserveRepositoryCall("Get", err)
	if err != nil {
		if stderrors.Is(err, document.ErrNoSuchDocument) {
			err = errors.NotFound(component, op, itemCSID)
		} else {
			err = errors.ResolutionFailed(err, component, op, itemCSID)
		}
		t.metrics.ObserveResolution(op, start, err)
		return nil, err
	}

	entries := []RefEntry{}
	for _, field := range t.cfg.Refs.Fields {
		for _, value := range doc.GetStrings(field) {
			entries = append(entries, RefEntry{Field: field, RefName: value})
		}
	}

	t.metrics.ObserveResolution(op, start, nil)
	return entries, nil
}

// itemRefName loads an item and returns its stored reference name.
func (t *Tracker) itemRefName(ctx context.Context, op, itemCSID string) (string, error) {
	doc, err := t.repo.Get(ctx, t.cfg.ItemType, itemCSID)
	t.metrics.ObserveRepositoryCall("Get", err)
	if err != nil {
		if stderrors.Is(err, document.ErrNoSuchDocument) {
			return "", errors.NotFound(component, op, itemCSID)
		}
		return "", errors.ResolutionFailed(err, component, op, itemCSID)
	}
	refName := doc.GetString(document.FieldRefName)
	if refName == "" {
		return "", errors.WrapInvalid(errors.ErrBadRefName, component, op, "read item reference name")
	}
	return refName, nil
}
