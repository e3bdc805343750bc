// Package datacache is a content-addressed cache for byte blobs.
//
// A blob is stored under a lookup key,
// usually the string form of the URL it was fetched from.
// The key is hashed with sha2-256,
// and the hex form of the hash,
// called the key's _token_,
// is the name of the file holding the blob.
// Tokens contain only hex digits,
// so whatever slashes, colons and query strings a URL contains,
// it cannot escape the cache directory.
//
// The cache is only an optimization.
// A miss is never an error,
// a failed write costs nothing but a future miss,
// and failing to create the cache directory does not stop a Cache from being constructed.
// There is no eviction:
// entries stay until something outside the cache removes them.
//
// Storage is abstracted by the Backend interface,
// which has just enough of a filesystem for the cache's needs.
// Implementations live in subpackages of backend:
// a real filesystem,
// memory,
// SQLite,
// Postgresql,
// Google Cloud Storage,
// and Amazon S3,
// plus wrappers that add an LRU memory layer,
// compression,
// logging,
// or fan-out to several backends.
//
// The recipe subpackage is a client that uses a Cache
// for the thumbnails of a remote recipe list.
package datacache
