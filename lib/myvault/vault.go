package myvault

import (
	"context"
	"fmt"

	"github.com/MarcGrol/manualcheckout/lib/mystore"
)

const (
	SessionSigningKey = "sessionSigningKey"
)

type Secret struct {
	Name  string
	Value string `datastore:",noindex"`
}

// Vault keeps secrets the application generates for itself and must survive restarts
type Vault struct {
	store mystore.Store[Secret]
}

func New(c context.Context) (*Vault, func(), error) {
	store, cleanup, err := mystore.New[Secret](c)
	if err != nil {
		return nil, nil, err
	}
	return NewWithStore(store), cleanup, nil
}

func NewWithStore(store mystore.Store[Secret]) *Vault {
	return &Vault{
		store: store,
	}
}

func (v *Vault) Get(c context.Context, name string) (string, bool, error) {
	secret, found, err := v.store.Get(c, name)
	if err != nil {
		return "", false, fmt.Errorf("error fetching secret %s: %w", name, err)
	}
	return secret.Value, found, nil
}

// GetOrCreate returns the stored secret or stores a freshly generated one; concurrent callers get the same value
func (v *Vault) GetOrCreate(c context.Context, name string, generate func() (string, error)) (string, error) {
	var value string
	err := v.store.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		secret, found, err := v.store.Get(c, name)
		if err != nil {
			return err
		}
		if found {
			value = secret.Value
			return nil
		}

		value, err = generate()
		if err != nil {
			return err
		}

		return v.store.Put(c, name, Secret{Name: name, Value: value})
	})
	if err != nil {
		return "", fmt.Errorf("error creating secret %s: %w", name, err)
	}
	return value, nil
}
