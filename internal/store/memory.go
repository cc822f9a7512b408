package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/google/uuid"

	"github.com/agentic-research/monfs/api"
)

// MemoryStore keeps records in insertion order with roaring bitmap indexes
// on type and template flag, so Find is a bitmap intersection.
type MemoryStore struct {
	mu        sync.RWMutex
	records   []*api.Record     // slot -> record
	slots     map[string]uint32 // record ID -> slot
	byType    map[string]*roaring.Bitmap
	templates *roaring.Bitmap
	newID     func() string
}

// NewMemoryStore returns an empty store that assigns UUID identifiers.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots:     make(map[string]uint32),
		byType:    make(map[string]*roaring.Bitmap),
		templates: roaring.New(),
		newID:     uuid.NewString,
	}
}

func (s *MemoryStore) FindOne(_ context.Context, id string) (*api.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slots[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.records[slot].Clone(), nil
}

func (s *MemoryStore) Find(_ context.Context, f Filter) ([]*api.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bm, ok := s.byType[f.Type]
	if !ok {
		return nil, nil
	}
	var sel *roaring.Bitmap
	if f.Template {
		sel = roaring.And(bm, s.templates)
	} else {
		sel = roaring.AndNot(bm, s.templates)
	}
	out := make([]*api.Record, 0, sel.GetCardinality())
	it := sel.Iterator()
	for it.HasNext() {
		out = append(out, s.records[it.Next()].Clone())
	}
	return out, nil
}

func (s *MemoryStore) All(_ context.Context) ([]*api.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*api.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (s *MemoryStore) Insert(_ context.Context, rec *api.Record) (string, error) {
	if err := checkInsert(rec); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := rec.Clone()
	if stored.ID == "" {
		stored.ID = s.newID()
	}
	if _, taken := s.slots[stored.ID]; taken {
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, stored.ID)
	}

	slot := uint32(len(s.records))
	s.records = append(s.records, stored)
	s.slots[stored.ID] = slot

	bm, ok := s.byType[stored.Meta.Type]
	if !ok {
		bm = roaring.New()
		s.byType[stored.Meta.Type] = bm
	}
	bm.Add(slot)
	if stored.IsTemplate() {
		s.templates.Add(slot)
	}
	return stored.ID, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
