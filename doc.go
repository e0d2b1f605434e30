// Package authoritystore provides a resource layer for authorities
// (controlled vocabularies) and their items (individual terms).
//
// # Overview
//
// An authority is a named, tenant-scoped collection of terms: a person-name
// list, a material list, a storage-location hierarchy. Every term carries two
// identities: an opaque, globally unique CSID assigned by the repository, and
// a canonical reference name of the form
//
//	urn:cspace:<tenant>:<service>:<short-id>[:item:name(<item-short-id>)]
//
// which is stable across exports, migrations and federated deployments.
// The packages in this module translate loosely-specified caller identifiers
// into concrete document identities and answer the two integrity questions
// that come with reference names: "what else references this term" and
// "what does this term reference".
//
// # Packages
//
//   - specifier: parses raw caller identifiers (opaque CSID, urn:cspace:name(...)
//     or urn:cspace:id(...)) into typed specifiers.
//   - refname: builds and parses canonical reference names. Pure string
//     construction, the exact inverse of the specifier name() form.
//   - document: the repository capability consumed by everything else - an
//     opaque field/value document plus a small find/get/create interface.
//   - natsrepo: a NATS JetStream KV implementation of document.Repository.
//   - resolve: turns specifiers (plus parent context for items) into CSIDs.
//   - hierarchy: dive/surface traversal over the item parent/child relation.
//   - refs: referencing-objects and authority-refs-of-item queries.
//   - authority: the resource service tying the above together - authority
//     and item CRUD, lifecycle transitions, hierarchy and reference queries.
//
// # Layering
//
//	┌─────────────────────────────────────┐
//	│        authority.Service            │  resource operations
//	└─────────────────────────────────────┘
//	           ↓ resolves via
//	┌─────────────────────────────────────┐
//	│   resolve / hierarchy / refs        │  identity + traversal
//	└─────────────────────────────────────┘
//	           ↓ reads/writes through
//	┌─────────────────────────────────────┐
//	│   document.Repository (natsrepo)    │  pluggable persistence
//	└─────────────────────────────────────┘
//
// Resolution calls are synchronous and request-scoped: no caching, no
// locking, no background work. Concurrency and uniqueness enforcement live
// in the repository backend.
package authoritystore
