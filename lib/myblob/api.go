package myblob

import (
	"context"

	"github.com/gorilla/mux"
)

// BlobStore keeps uploaded files and tells where they can be fetched
type BlobStore interface {
	// Put stores data under name and returns its public url. An existing name is never overwritten.
	Put(c context.Context, name string, contentType string, data []byte) (string, error)
	// Delete removes the blob; an unknown name is not an error
	Delete(c context.Context, name string) error
	RegisterEndpoints(c context.Context, router *mux.Router)
}

// New returns a Cloud Storage backend when bucket is set, otherwise a local directory served under /receipts/
func New(c context.Context, bucket string, dir string, baseURL string) (BlobStore, func(), error) {
	if bucket != "" {
		return newGcloudBlobStore(c, bucket)
	}
	return newLocalBlobStore(dir, baseURL)
}
