package document

import "context"

// Page controls result windowing for FindAll. A zero Size means the
// implementation default; ComputeTotal asks for the (potentially expensive)
// total match count - when false, implementations return -1.
type Page struct {
	Size         int
	Num          int
	ComputeTotal bool
}

// All is the page value that disables windowing.
var All = Page{Size: -1}

// Repository is the pluggable persistence capability consumed by the
// resource layer.
//
// Each method is synchronous and context-aware; implementations own
// connection pooling, retries and timeouts. Uniqueness of short identifiers
// (per tenant+service for authorities, per parent for items) is an invariant
// the backing store enforces; this layer only defends against observing a
// violation (FindOne returning ErrMultipleMatches).
//
// Example implementations:
//   - natsrepo.Repository: NATS JetStream KV backend
//   - testutil.Repo: in-memory fake for unit tests
type Repository interface {
	// FindOne returns the single document matching the clause.
	// Zero matches returns ErrNoSuchDocument; more than one returns
	// ErrMultipleMatches with the first match still resolvable via FindAll.
	FindOne(ctx context.Context, where Where) (*Document, error)

	// FindAll returns documents matching the clause, windowed by page, plus
	// the total match count when page.ComputeTotal is set (-1 otherwise).
	FindAll(ctx context.Context, where Where, page Page) ([]*Document, int, error)

	// Get loads a document by type and CSID. Missing documents return
	// ErrNoSuchDocument.
	Get(ctx context.Context, docType, csid string) (*Document, error)

	// Create persists a new document and returns its CSID, minting one when
	// the document carries none. A uniqueness conflict returns
	// ErrDuplicateKey.
	Create(ctx context.Context, doc *Document) (string, error)

	// Update replaces the stored document identified by doc.Type/doc.CSID.
	Update(ctx context.Context, doc *Document) error

	// Delete removes a document. Deleting a missing document returns
	// ErrNoSuchDocument.
	Delete(ctx context.Context, docType, csid string) error

	// FollowTransition moves a document through a lifecycle transition
	// (delete, undelete, lock), updating its workflow state.
	FollowTransition(ctx context.Context, docType, csid, transition string) error
}
