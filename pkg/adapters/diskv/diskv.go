// Package diskv implements a snapshot store backed by the diskv key-value store.
package diskv

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/aretw0/actorflow/pkg/domain"
	"github.com/peterbourgon/diskv/v3"
)

// Store is an on-disk ports.StateStore with an in-memory read cache.
type Store struct {
	diskv *diskv.Diskv
}

// New creates a Store keeping one file per session under path/snapshots.
func New(path string) *Store {
	flatTransform := func(s string) []string { return []string{} }
	return &Store{
		diskv: diskv.New(diskv.Options{
			BasePath:     filepath.Join(path, "snapshots"),
			Transform:    flatTransform,
			CacheSizeMax: 1024 * 1024,
		}),
	}
}

// Save stores the snapshot as JSON.
func (s *Store) Save(_ context.Context, sessionID string, snap *domain.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.diskv.Write(sessionID, raw); err != nil {
		return fmt.Errorf("write snapshot %s: %w", sessionID, err)
	}
	return nil
}

// Load returns domain.ErrSnapshotNotFound for unknown sessions.
func (s *Store) Load(_ context.Context, sessionID string) (*domain.Snapshot, error) {
	if !s.diskv.Has(sessionID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, sessionID)
	}
	raw, err := s.diskv.Read(sessionID)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", sessionID, err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %s: %w", sessionID, err)
	}
	return &snap, nil
}

// Delete erases the session. Unknown sessions are ignored.
func (s *Store) Delete(_ context.Context, sessionID string) error {
	if !s.diskv.Has(sessionID) {
		return nil
	}
	return s.diskv.Erase(sessionID)
}

// List returns the stored session IDs, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var ids []string
	for key := range s.diskv.Keys(ctx.Done()) {
		ids = append(ids, key)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}
