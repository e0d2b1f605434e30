// Package hierarchy walks the item parent/child tree in either direction:
// dive toward descendants, surface toward ancestors.
//
// Traversal is state-free and request-scoped. The parent relation is
// expected to be acyclic, but the navigator does not trust the invariant: a
// visited-set guard turns a cycle into ErrHierarchyCycle and a depth bound
// turns a runaway tree into ErrDepthExceeded instead of looping.
package hierarchy

import (
	"context"
	stderrors "errors"
	"log/slog"
	"path"

	"github.com/c360/authoritystore/config"
	"github.com/c360/authoritystore/document"
	"github.com/c360/authoritystore/errors"
	"github.com/c360/authoritystore/metric"
)

const component = "hierarchy"

// Direction selects the traversal direction.
type Direction int

const (
	// Descend walks toward children (dive).
	Descend Direction = iota
	// Ascend walks toward parents (surface).
	Ascend
)

// DirectionParam is the query parameter value selecting Ascend. Anything
// else, including absence, selects Descend.
const DirectionParam = "parents"

// ParseDirection maps the caller-supplied direction token onto a Direction.
func ParseDirection(s string) Direction {
	if s == DirectionParam {
		return Ascend
	}
	return Descend
}

// Node is an addressable view over one item in a traversal. For a dive the
// Children field holds the subtree; for a surface the returned slice is the
// ancestor chain and Children stays nil.
type Node struct {
	CSID        string  `json:"csid"`
	URI         string  `json:"uri"`
	DisplayName string  `json:"displayName,omitempty"`
	RefName     string  `json:"refName,omitempty"`
	Children    []*Node `json:"children,omitempty"`
}

// Navigator performs dive/surface traversals through the repository.
type Navigator struct {
	cfg     *config.Config
	repo    document.Repository
	logger  *slog.Logger
	metrics *metric.Metrics
}

// New creates a Navigator. logger may be nil; metrics may be nil.
func New(cfg *config.Config, repo document.Repository, logger *slog.Logger, metrics *metric.Metrics) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{
		cfg:     cfg,
		repo:    repo,
		logger:  logger.With("component", component),
		metrics: metrics,
	}
}

// Walk traverses from itemCSID in the given direction. Dive returns the
// subtree root; surface returns a single-chain tree whose children links
// point at successive ancestors, ending at the root item.
func (n *Navigator) Walk(ctx context.Context, itemCSID, baseURI string, dir Direction) (*Node, error) {
	if dir == Ascend {
		return n.Surface(ctx, itemCSID, baseURI)
	}
	return n.Dive(ctx, itemCSID, baseURI)
}

// Dive produces the descendant tree of an item. Each node's URI is its
// parent's URI with its own CSID appended; the starting node is anchored at
// baseURI.
func (n *Navigator) Dive(ctx context.Context, itemCSID, baseURI string) (*Node, error) {
	const op = "Dive"

	root, err := n.loadNode(ctx, op, itemCSID, baseURI)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{itemCSID: true}
	nodes := 1

	// Iterative level-order expansion; depth bound counts levels below the
	// starting item. A tree whose deepest nodes sit exactly at the bound is
	// accepted; the error fires only when nodes exist beyond it.
	level := []*Node{root}
	for depth := 0; len(level) > 0; depth++ {
		var next []*Node
		for _, parent := range level {
			children, err := n.childrenOf(ctx, op, parent)
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				if visited[child.CSID] {
					n.logger.Error("hierarchy cycle detected", "csid", child.CSID)
					return nil, errors.WrapFatal(errors.ErrHierarchyCycle, component, op, "expand hierarchy level")
				}
				visited[child.CSID] = true
				nodes++
			}
			parent.Children = children
			next = append(next, children...)
		}
		if len(next) > 0 && depth+1 > n.cfg.MaxHierarchyDepth {
			return nil, errors.WrapFatal(errors.ErrDepthExceeded, component, op, "expand hierarchy level")
		}
		level = next
	}

	if n.metrics != nil {
		n.metrics.HierarchyNodes.Observe(float64(nodes))
	}
	return root, nil
}

// Surface produces the ancestor chain of an item, from the item itself up
// to the root item of its authority. The chain is returned root-of-walk
// first: the starting item, then its parent, and so on.
func (n *Navigator) Surface(ctx context.Context, itemCSID, baseURI string) (*Node, error) {
	const op = "Surface"

	doc, err := n.get(ctx, op, itemCSID)
	if err != nil {
		return nil, err
	}
	start := &Node{
		CSID:        itemCSID,
		URI:         baseURI,
		DisplayName: doc.GetString(document.FieldDisplayName),
		RefName:     doc.GetString(document.FieldRefName),
	}

	visited := map[string]bool{itemCSID: true}
	nodes := 1

	cur := start
	uriDir := path.Dir(baseURI)
	for depth := 0; ; depth++ {
		parentCSID := doc.GetString(document.FieldParentItem)
		if parentCSID == "" {
			break
		}
		// A chain of exactly MaxHierarchyDepth ancestors is accepted; the
		// bound fires only when more remain beyond it.
		if depth >= n.cfg.MaxHierarchyDepth {
			return nil, errors.WrapFatal(errors.ErrDepthExceeded, component, op, "walk ancestor chain")
		}
		if visited[parentCSID] {
			n.logger.Error("hierarchy cycle detected", "csid", parentCSID)
			return nil, errors.WrapFatal(errors.ErrHierarchyCycle, component, op, "walk ancestor chain")
		}
		visited[parentCSID] = true

		if doc, err = n.get(ctx, op, parentCSID); err != nil {
			return nil, err
		}
		// Ancestors live beside the starting item under the same items
		// collection, so their URIs are siblings of baseURI.
		parent := &Node{
			CSID:        parentCSID,
			URI:         path.Join(uriDir, parentCSID),
			DisplayName: doc.GetString(document.FieldDisplayName),
			RefName:     doc.GetString(document.FieldRefName),
		}
		cur.Children = []*Node{parent}
		cur = parent
		nodes++
	}

	if n.metrics != nil {
		n.metrics.HierarchyNodes.Observe(float64(nodes))
	}
	return start, nil
}

// childrenOf finds the direct children of a node and assigns their URIs.
func (n *Navigator) childrenOf(ctx context.Context, op string, parent *Node) ([]*Node, error) {
	where := document.ByField(n.cfg.ItemType, document.FieldParentItem, parent.CSID)
	docs, _, err := n.repo.FindAll(ctx, where, document.All)
	n.metrics.ObserveRepositoryCall("FindAll", err)
	if err != nil {
		return nil, errors.ResolutionFailed(err, component, op, parent.CSID)
	}

	children := make([]*Node, 0, len(docs))
	for _, doc := range docs {
		children = append(children, &Node{
			CSID:        doc.CSID,
			URI:         parent.URI + "/" + doc.CSID,
			DisplayName: doc.GetString(document.FieldDisplayName),
			RefName:     doc.GetString(document.FieldRefName),
		})
	}
	return children, nil
}

func (n *Navigator) loadNode(ctx context.Context, op, csid, uri string) (*Node, error) {
	doc, err := n.get(ctx, op, csid)
	if err != nil {
		return nil, err
	}
	return &Node{
		CSID:        csid,
		URI:         uri,
		DisplayName: doc.GetString(document.FieldDisplayName),
		RefName:     doc.GetString(document.FieldRefName),
	}, nil
}

func (n *Navigator) get(ctx context.Context, op, csid string) (*document.Document, error) {
	doc, err := n.repo.Get(ctx, n.cfg.ItemType, csid)
	n.metrics.ObserveRepositoryCall("Get", err)
	if err != nil {
		if stderrors.Is(err, document.ErrNoSuchDocument) {
			return nil, errors.NotFound(component, op, csid)
		}
		return nil, errors.ResolutionFailed(err, component, op, csid)
	}
	return doc, nil
}
