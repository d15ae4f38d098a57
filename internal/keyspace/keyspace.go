// Package keyspace is the local persistent key space: named string slots
// holding the cached admin settings and the fallback ledger.
package keyspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Slot names.
const (
	KeyTitle             = "mainTitle"
	KeyPhones            = "savedPhoneNumbers"
	KeyEmails            = "savedEmailAddresses"
	KeyLocalApplications = "localApplications"
	KeyApartmentName     = "apartment_name"
)

var ErrClosed = errors.New("keyspace: closed")

// KeySpace stores opaque string values by slot name.
type KeySpace interface {
	// Get returns ok=false when the slot has never been written.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// GetJSON decodes a JSON slot into dst. Missing slots leave dst untouched and
// return ok=false.
func GetJSON(ctx context.Context, ks KeySpace, key string, dst interface{}) (bool, error) {
	raw, ok, err := ks.Get(ctx, key)
	if err != nil || !ok || raw == "" {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("keyspace: decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, ks KeySpace, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("keyspace: encode %s: %w", key, err)
	}
	return ks.Set(ctx, key, string(raw))
}
