// Package itemgate provides an access-controlled item storage gateway.
//
// Owners, identified by an (ownerName, ownerId) pair, upload, list and fetch
// named items kept in a pluggable object-storage backend. Every request is
// authorized against a remote credential oracle whose verdicts are memoized
// in a bounded, time-expiring cache.
//
// # Key Components
//
//   - ValidationCache: LRU-bounded, TTL-expiring memo of oracle verdicts
//   - Authorizer: extracts the bearer credential and consults the cache
//   - ItemStore: per-owner facade over an ObjectBackend; owns key naming,
//     quota accounting, presentation variants and encodings
//   - ObjectBackend: interface for object persistence (filesystem, S3,
//     SQLite, PostgreSQL)
//   - CredentialOracle: interface for the remote credential check
//
// # Key Scheme
//
// Every stored object lives under
//
//	{ownerName}/{ownerId}/{PRESENTATION}/{itemName}
//
// so an owner's whole namespace is a single prefix listing.
//
// # Example Usage
//
//	cache, err := itemgate.NewValidationCache(oracle, itemgate.CacheConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	authorizer := itemgate.NewAuthorizer(cache)
//
//	store, err := itemgate.NewItemStore(backend, itemgate.StoreConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	owner := itemgate.OwnerIdentity{Name: "alice", ID: "1"}
//	meta, err := store.AddItem(ctx, owner, "notes.txt", []byte("hello"))
//
// See the http package for the REST surface and the filesystem, s3store and
// database packages for backend implementations.
package itemgate
