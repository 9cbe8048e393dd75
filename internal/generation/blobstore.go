package generation

import "context"

// BlobStore abstracts the object store that holds finalized result images.
type BlobStore interface {
	// Fetch downloads the asset at the given URL.
	Fetch(ctx context.Context, url string) ([]byte, error)

	// Put uploads data under the given key and returns its public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
