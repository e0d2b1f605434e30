// Package testutil provides test doubles for the resource layer, chiefly an
// in-memory document.Repository.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/c360/authoritystore/document"
)

// Repo is an in-memory document.Repository. It is safe for concurrent use
// and deterministic: FindAll returns documents ordered by CSID.
//
// FailWith, when set, is returned by every call; use it to exercise
// repository-fault paths.
type Repo struct {
	mu       sync.RWMutex
	docs     map[string]*document.Document // key: type/csid
	FailWith error

	// Transitions records every FollowTransition call as "type/csid:transition".
	Transitions []string
}

// NewRepo creates an empty in-memory repository.
func NewRepo() *Repo {
	return &Repo{docs: make(map[string]*document.Document)}
}

func key(docType, csid string) string {
	return docType + "/" + csid
}

// Put stores a document directly, bypassing Create semantics. Returns the
// document for chained seeding.
func (r *Repo) Put(doc *document.Document) *document.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.CSID == "" {
		doc.CSID = uuid.NewString()
	}
	r.docs[key(doc.Type, doc.CSID)] = doc
	return doc
}

// SeedAuthority stores an authority document with the well-known fields set.
func (r *Repo) SeedAuthority(docType, csid, shortID, displayName, refName string) *document.Document {
	doc := document.New(docType)
	doc.CSID = csid
	doc.Set(document.FieldShortIdentifier, shortID)
	doc.Set(document.FieldDisplayName, displayName)
	doc.Set(document.FieldRefName, refName)
	doc.Set(document.FieldWorkflowState, document.StateProject)
	return r.Put(doc)
}

// SeedItem stores an item document under a parent authority.
func (r *Repo) SeedItem(docType, csid, shortID, displayName, inAuthority, refName string) *document.Document {
	doc := document.New(docType)
	doc.CSID = csid
	doc.Set(document.FieldShortIdentifier, shortID)
	doc.Set(document.FieldDisplayName, displayName)
	doc.Set(document.FieldInAuthority, inAuthority)
	doc.Set(document.FieldRefName, refName)
	doc.Set(document.FieldWorkflowState, document.StateProject)
	return r.Put(doc)
}

// Len returns the number of stored documents.
func (r *Repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

func (r *Repo) matching(where document.Where) []*document.Document {
	var out []*document.Document
	for _, doc := range r.docs {
		if where.Matches(doc) {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CSID < out[j].CSID })
	return out
}

// FindOne implements document.Repository.
func (r *Repo) FindOne(_ context.Context, where document.Where) (*document.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	matches := r.matching(where)
	switch len(matches) {
	case 0:
		return nil, document.ErrNoSuchDocument
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %d documents match %s", document.ErrMultipleMatches, len(matches), where)
	}
}

// FindAll implements document.Repository.
func (r *Repo) FindAll(_ context.Context, where document.Where, page document.Page) ([]*document.Document, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FailWith != nil {
		return nil, 0, r.FailWith
	}
	matches := r.matching(where)

	total := -1
	if page.ComputeTotal {
		total = len(matches)
	}
	if page.Size > 0 {
		num := page.Num
		if num < 0 {
			num = 0
		}
		start := num * page.Size
		if start >= len(matches) {
			return nil, total, nil
		}
		end := start + page.Size
		if end > len(matches) {
			end = len(matches)
		}
		matches = matches[start:end]
	}
	return matches, total, nil
}

// Get implements document.Repository.
func (r *Repo) Get(_ context.Context, docType, csid string) (*document.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	doc, ok := r.docs[key(docType, csid)]
	if !ok {
		return nil, document.ErrNoSuchDocument
	}
	return doc, nil
}

// Create implements document.Repository.
func (r *Repo) Create(_ context.Context, doc *document.Document) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return "", r.FailWith
	}
	if doc.CSID == "" {
		doc.CSID = uuid.NewString()
	}
	k := key(doc.Type, doc.CSID)
	if _, exists := r.docs[k]; exists {
		return "", document.ErrDuplicateKey
	}
	r.docs[k] = doc
	return doc.CSID, nil
}

// Update implements document.Repository.
func (r *Repo) Update(_ context.Context, doc *document.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	k := key(doc.Type, doc.CSID)
	if _, exists := r.docs[k]; !exists {
		return document.ErrNoSuchDocument
	}
	r.docs[k] = doc
	return nil
}

// Delete implements document.Repository.
func (r *Repo) Delete(_ context.Context, docType, csid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	k := key(docType, csid)
	if _, exists := r.docs[k]; !exists {
		return document.ErrNoSuchDocument
	}
	delete(r.docs, k)
	return nil
}

// FollowTransition implements document.Repository.
func (r *Repo) FollowTransition(_ context.Context, docType, csid, transition string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	doc, ok := r.docs[key(docType, csid)]
	if !ok {
		return document.ErrNoSuchDocument
	}
	switch transition {
	case document.TransitionDelete:
		doc.Set(document.FieldWorkflowState, document.StateDeleted)
	case document.TransitionUndelete:
		doc.Set(document.FieldWorkflowState, document.StateProject)
	case document.TransitionLock:
		doc.Set(document.FieldWorkflowState, document.StateLocked)
	default:
		return fmt.Errorf("unknown transition %q", transition)
	}
	r.Transitions = append(r.Transitions, key(docType, csid)+":"+transition)
	return nil
}

var _ document.Repository = (*Repo)(nil)
