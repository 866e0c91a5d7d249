// Copyright (c) 2025 BVK Chaitanya

package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/bvk/gembot/gobs"
	"github.com/bvk/gembot/kvutil"

	"github.com/bvkgo/kv"
)

// NonceStore hands out strictly increasing nonces for signed exchange
// requests. Every value is persisted before it is returned, so a restarted
// process can never reuse or decrease a nonce. The floor lets operators
// jump past nonces consumed outside this datastore.
type NonceStore struct {
	db kv.Database

	floor uint64
}

func NewNonceStore(db kv.Database, floor uint64) *NonceStore {
	return &NonceStore{db: db, floor: floor}
}

// Last returns the last persisted nonce, adjusted up to the floor. A
// missing nonce record reads as the floor.
func (s *NonceStore) Last(ctx context.Context) (uint64, error) {
	gv, err := kvutil.GetDB[gobs.NonceState](ctx, s.db, nonceKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s.floor, nil
		}
		return 0, fmt.Errorf("could not load the nonce counter: %w", err)
	}
	if gv.Last < s.floor {
		return s.floor, nil
	}
	return gv.Last, nil
}

// NextNonce increments the counter and persists it, in one transaction.
// The returned nonce is durable before any request is signed with it.
func (s *NonceStore) NextNonce(ctx context.Context) (nonce uint64, err error) {
	err = kv.WithReadWriter(ctx, s.db, func(ctx context.Context, rw kv.ReadWriter) error {
		last := s.floor
		gv, err := kvutil.Get[gobs.NonceState](ctx, rw, nonceKey)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return err
			}
		} else if gv.Last > last {
			last = gv.Last
		}
		nonce = last + 1
		return kvutil.Set(ctx, rw, nonceKey, &gobs.NonceState{Last: nonce})
	})
	if err != nil {
		return 0, fmt.Errorf("could not advance the nonce counter: %w", err)
	}
	return nonce, nil
}
