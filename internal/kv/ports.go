package kv

import (
	"context"
	"errors"
)

// Keys under which the ledger and its settings are persisted.
const (
	KeyBalance         = "balance"
	KeyTransactions    = "transactions"
	KeyBackgroundImage = "background-image"
	KeyDarkMode        = "dark-mode-flag"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("kv store closed")

// Ports for outbound adapters.
type (
	Reader interface {
		// Get returns the value stored under key and whether it was present.
		Get(ctx context.Context, key string) (value string, ok bool, err error)
	}

	Writer interface {
		Set(ctx context.Context, key, value string) error
		// SetMany writes every entry or none of them.
		SetMany(ctx context.Context, entries map[string]string) error
		Delete(ctx context.Context, key string) error
	}

	// GetFunc reads a key inside an Update.
	GetFunc func(key string) (value string, ok bool, err error)

	// UpdateFunc receives a reader bound to the running update and returns
	// the entries to write. An empty result writes nothing; an error aborts
	// the update and is returned from Update unchanged.
	UpdateFunc func(get GetFunc) (map[string]string, error)

	Updater interface {
		// Update runs fn and writes its result as one transaction. No other
		// Update, in this process or another one sharing the backend, can
		// interleave between the reads fn makes and the write. fn must not
		// call back into the store.
		Update(ctx context.Context, fn UpdateFunc) error
	}

	// Store is the persistence port of the ledger: a flat string map.
	Store interface {
		Reader
		Writer
		Updater
	}
)
