package myblob

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/gorilla/mux"
	"google.golang.org/api/googleapi"

	"github.com/MarcGrol/manualcheckout/lib/myerrors"
)

type gcloudBlobStore struct {
	client *storage.Client
	bucket string
}

func newGcloudBlobStore(c context.Context, bucket string) (BlobStore, func(), error) {
	client, err := storage.NewClient(c)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating storage-client: %s", err)
	}
	return &gcloudBlobStore{
			client: client,
			bucket: bucket,
		}, func() {
			client.Close()
		}, nil
}

func (s *gcloudBlobStore) Put(c context.Context, name string, contentType string, data []byte) (string, error) {
	oh := s.client.Bucket(s.bucket).Object(name).If(storage.Conditions{DoesNotExist: true})
	w := oh.NewWriter(c)
	w.ContentType = contentType

	_, err := w.Write(data)
	if err != nil {
		w.Close()
		return "", fmt.Errorf("error writing object %s: %w", name, err)
	}

	err = w.Close()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return "", myerrors.NewConflictError(fmt.Errorf("object %s already exists", name))
		}
		return "", fmt.Errorf("error closing object %s: %w", name, err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, name), nil
}

func (s *gcloudBlobStore) Delete(c context.Context, name string) error {
	err := s.client.Bucket(s.bucket).Object(name).Delete(c)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("error deleting object %s: %w", name, err)
	}
	return nil
}

func (s *gcloudBlobStore) RegisterEndpoints(c context.Context, router *mux.Router) {
	// objects are served by Cloud Storage itself
}
