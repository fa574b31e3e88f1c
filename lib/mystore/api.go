package mystore

import (
	"context"
	"fmt"
	"os"
	"strings"
)

type Filter struct {
	Field   string
	Compare string
	Value   any
}

// Store persists values of type T keyed by uid.
// Calls made with the context passed into RunInTransaction join that transaction.
//
//go:generate mockgen -source=api.go -package mystore -destination store_mock.go Store
type Store[T any] interface {
	RunInTransaction(c context.Context, f func(c context.Context) error) error
	Put(c context.Context, uid string, value T) error
	Get(c context.Context, uid string) (T, bool, error)
	List(c context.Context) ([]T, error)
	Query(c context.Context, filters []Filter, orderByField string) ([]T, error)
}

// New selects the backend from the environment: DATABASE_URL wins, then GOOGLE_CLOUD_PROJECT, otherwise memory.
func New[T any](c context.Context) (Store[T], func(), error) {
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		return NewSQLStore[T](c, databaseURL)
	}

	if os.Getenv("GOOGLE_CLOUD_PROJECT") != "" {
		return newGcloudStore[T](c)
	}

	return NewInMemoryStore[T](c)
}

func kindOf[T any]() string {
	val := new(T)
	kind := fmt.Sprintf("%T", *val)
	if idx := strings.LastIndex(kind, "."); idx >= 0 {
		kind = kind[idx+1:]
	}
	return kind
}
