package myblob

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/manualcheckout/lib/myerrors"
)

const localPathPrefix = "/receipts/"

type localBlobStore struct {
	dir     string
	baseURL string
}

func newLocalBlobStore(dir string, baseURL string) (BlobStore, func(), error) {
	err := os.MkdirAll(dir, 0o750)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating blob directory %s: %s", dir, err)
	}
	return &localBlobStore{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, func() {}, nil
}

func (s *localBlobStore) filename(name string) (string, error) {
	cleaned := strings.TrimPrefix(path.Clean("/"+name), "/")
	if cleaned == "" || cleaned == "." {
		return "", myerrors.NewInvalidInputErrorf("invalid blob name %q", name)
	}
	return filepath.Join(s.dir, filepath.FromSlash(cleaned)), nil
}

func (s *localBlobStore) Put(c context.Context, name string, contentType string, data []byte) (string, error) {
	filename, err := s.filename(name)
	if err != nil {
		return "", err
	}

	err = os.MkdirAll(filepath.Dir(filename), 0o750)
	if err != nil {
		return "", fmt.Errorf("error creating directory for %s: %w", name, err)
	}

	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", myerrors.NewConflictError(fmt.Errorf("blob %s already exists", name))
		}
		return "", fmt.Errorf("error creating blob %s: %w", name, err)
	}

	_, err = f.Write(data)
	if err != nil {
		f.Close()
		os.Remove(filename)
		return "", fmt.Errorf("error writing blob %s: %w", name, err)
	}

	err = f.Close()
	if err != nil {
		return "", fmt.Errorf("error closing blob %s: %w", name, err)
	}

	return s.baseURL + localPathPrefix + strings.TrimPrefix(path.Clean("/"+name), "/"), nil
}

func (s *localBlobStore) Delete(c context.Context, name string) error {
	filename, err := s.filename(name)
	if err != nil {
		return err
	}

	err = os.Remove(filename)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error removing blob %s: %w", name, err)
	}
	return nil
}

func (s *localBlobStore) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.PathPrefix(localPathPrefix).Handler(s.serve()).Methods("GET")
}

func (s *localBlobStore) serve() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, err := s.filename(strings.TrimPrefix(r.URL.Path, localPathPrefix))
		if err != nil {
			http.NotFound(w, r)
			return
		}

		info, err := os.Stat(filename)
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filename)
	}
}
