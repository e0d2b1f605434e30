// Package natsrepo implements document.Repository on a NATS JetStream
// key-value bucket. Documents are stored as JSON under "<type>.<csid>"
// keys; equality queries are key-prefix scans over one document type.
package natsrepo

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/authoritystore/config"
	"github.com/c360/authoritystore/document"
	"github.com/c360/authoritystore/errors"
	"github.com/c360/authoritystore/pkg/retry"
)

const component = "natsrepo"

// Options tunes repository behavior.
type Options struct {
	// Timeout bounds each KV operation. Zero disables the per-call timeout.
	Timeout time.Duration
	// Retry absorbs transient KV faults before an error is surfaced.
	Retry retry.Config
}

// DefaultOptions returns the settings used when none are supplied.
func DefaultOptions() Options {
	return Options{
		Timeout: 5 * time.Second,
		Retry: retry.Config{
			MaxAttempts:  3,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2.0,
			AddJitter:    true,
		},
	}
}

// Repository is a document.Repository backed by one JetStream KV bucket.
// All documents of one tenant share a bucket; the document type is encoded
// in the key, so cross-type scans never happen.
type Repository struct {
	kv      jetstream.KeyValue
	conn    *nats.Conn
	logger  *slog.Logger
	options Options
}

// New wraps an existing KV bucket. Use Connect to dial NATS and create the
// bucket from configuration.
func New(kv jetstream.KeyValue, logger *slog.Logger, opts ...func(*Options)) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Repository{
		kv:      kv,
		logger:  logger.With("component", component),
		options: options,
	}
}

// Connect dials NATS, provisions the configured bucket, and returns a
// repository owning the connection. Close releases it.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...func(*Options)) (*Repository, error) {
	const op = "Connect"

	natsOpts := []nats.Option{
		nats.Name("authoritystore"),
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
	}
	if cfg.NATS.ReconnectWait > 0 {
		natsOpts = append(natsOpts, nats.ReconnectWait(cfg.NATS.ReconnectWait.Std()))
	}
	if cfg.NATS.Username != "" {
		natsOpts = append(natsOpts, nats.UserInfo(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		natsOpts = append(natsOpts, nats.Token(cfg.NATS.Token))
	}

	urls := strings.Join(cfg.NATS.URLs, ",")
	if urls == "" {
		urls = nats.DefaultURL
	}

	conn, err := nats.Connect(urls, natsOpts...)
	if err != nil {
		return nil, errors.WrapTransient(err, component, op, "connect to NATS")
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.WrapFatal(err, component, op, "initialize JetStream")
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "authority and item documents",
		History:     1,
	})
	if err != nil {
		conn.Close()
		return nil, errors.WrapFatal(err, component, op, "provision KV bucket")
	}

	repo := New(kv, logger, opts...)
	repo.conn = conn
	repo.logger.Info("connected", "bucket", cfg.Bucket, "urls", urls)
	return repo, nil
}

// Close releases the NATS connection when the repository owns one.
func (r *Repository) Close() {
	if r.conn != nil {
		r.conn.Close()
	}
}

// docKey builds the KV key for a document. "." is the KV key separator, so
// "<type>.>" filters one document type.
func docKey(docType, csid string) string {
	return docType + "." + csid
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.options.Timeout > 0 {
		return context.WithTimeout(ctx, r.options.Timeout)
	}
	return ctx, func() {}
}

// Get implements document.Repository.
func (r *Repository) Get(ctx context.Context, docType, csid string) (*document.Document, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	entry, err := retry.DoWithResult(ctx, r.options.Retry, func() (jetstream.KeyValueEntry, error) {
		e, err := r.kv.Get(ctx, docKey(docType, csid))
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, retry.NonRetryable(err)
		}
		return e, err
	})
	if err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, document.ErrNoSuchDocument
		}
		return nil, errors.WrapTransient(err, component, "Get", "read document")
	}

	return decode(entry.Value())
}

// Create implements document.Repository. A document without a CSID gets a
// freshly minted one.
func (r *Repository) Create(ctx context.Context, doc *document.Document) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if doc.CSID == "" {
		doc.CSID = uuid.NewString()
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", errors.WrapFatal(err, component, "Create", "encode document")
	}

	if _, err := r.kv.Create(ctx, docKey(doc.Type, doc.CSID), data); err != nil {
		if stderrors.Is(err, jetstream.ErrKeyExists) {
			return "", document.ErrDuplicateKey
		}
		return "", errors.WrapTransient(err, component, "Create", "store document")
	}

	r.logger.Debug("document created", "type", doc.Type, "csid", doc.CSID)
	return doc.CSID, nil
}

// Update implements document.Repository. Updating a missing document is an
// error, matching the in-memory repository.
func (r *Repository) Update(ctx context.Context, doc *document.Document) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	key := docKey(doc.Type, doc.CSID)
	if _, err := r.kv.Get(ctx, key); err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return document.ErrNoSuchDocument
		}
		return errors.WrapTransient(err, component, "Update", "read document")
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return errors.WrapFatal(err, component, "Update", "encode document")
	}
	if _, err := r.kv.Put(ctx, key, data); err != nil {
		return errors.WrapTransient(err, component, "Update", "store document")
	}

	r.logger.Debug("document updated", "type", doc.Type, "csid", doc.CSID)
	return nil
}

// Delete implements document.Repository. Purge removes history as well; a
// deleted document is gone, not tombstoned.
func (r *Repository) Delete(ctx context.Context, docType, csid string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	key := docKey(docType, csid)
	if _, err := r.kv.Get(ctx, key); err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return document.ErrNoSuchDocument
		}
		return errors.WrapTransient(err, component, "Delete", "read document")
	}
	if err := r.kv.Purge(ctx, key); err != nil {
		return errors.WrapTransient(err, component, "Delete", "purge document")
	}

	r.logger.Debug("document deleted", "type", docType, "csid", csid)
	return nil
}

// FindOne implements document.Repository.
func (r *Repository) FindOne(ctx context.Context, where document.Where) (*document.Document, error) {
	matches, _, err := r.FindAll(ctx, where, document.All)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, document.ErrNoSuchDocument
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %d documents match %s", document.ErrMultipleMatches, len(matches), where)
	}
}

// FindAll implements document.Repository. The scan walks every key of the
// where clause's document type; authority and item populations are small
// enough that a KV scan beats maintaining secondary indexes.
func (r *Repository) FindAll(ctx context.Context, where document.Where, page document.Page) ([]*document.Document, int, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	lister, err := r.kv.ListKeysFiltered(ctx, where.Type+".>")
	if err != nil {
		return nil, 0, errors.WrapTransient(err, component, "FindAll", "list keys")
	}
	defer lister.Stop()

	var matches []*document.Document
	for key := range lister.Keys() {
		entry, err := r.kv.Get(ctx, key)
		if err != nil {
			if stderrors.Is(err, jetstream.ErrKeyNotFound) {
				// Deleted between list and get.
				continue
			}
			return nil, 0, errors.WrapTransient(err, component, "FindAll", "read document")
		}
		doc, err := decode(entry.Value())
		if err != nil {
			return nil, 0, err
		}
		if where.Matches(doc) {
			matches = append(matches, doc)
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].CSID < matches[j].CSID })

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

// FollowTransition implements document.Repository.
func (r *Repository) FollowTransition(ctx context.Context, docType, csid, transition string) error {
	doc, err := r.Get(ctx, docType, csid)
	if err != nil {
		return err
	}

	switch transition {
	case document.TransitionDelete:
		doc.Set(document.FieldWorkflowState, document.StateDeleted)
	case document.TransitionUndelete:
		doc.Set(document.FieldWorkflowState, document.StateProject)
	case document.TransitionLock:
		doc.Set(document.FieldWorkflowState, document.StateLocked)
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown transition %q", transition),
			component, "FollowTransition", "apply lifecycle transition")
	}

	if err := r.Update(ctx, doc); err != nil {
		return err
	}
	r.logger.Info("lifecycle transition", "type", docType, "csid", csid, "transition", transition)
	return nil
}

func decode(data []byte) (*document.Document, error) {
	doc := &document.Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, errors.WrapFatal(err, component, "decode", "decode document")
	}
	return doc, nil
}

var _ document.Repository = (*Repository)(nil)
