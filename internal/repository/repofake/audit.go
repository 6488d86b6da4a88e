package repofake

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/carpool-identity/internal/model"
	"github.com/iliyamo/carpool-identity/internal/service"
)

var _ service.AuditStore = (*Audit)(nil)

type Audit struct {
	Faults
	lock    sync.RWMutex
	entries []model.AuditEntry
	nextID  uint64
}

func NewAudit() *Audit { return &Audit{} }

func (r *Audit) Append(_ context.Context, e *model.AuditEntry) error {
	if err := r.check("Append"); err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.nextID++
	e.ID = r.nextID
	r.entries = append(r.entries, *e)
	return nil
}

func (r *Audit) List(_ context.Context, limit, offset int) ([]model.AuditEntry, error) {
	if err := r.check("List"); err != nil {
		return nil, err
	}
	r.lock.RLock()
	out := make([]model.AuditEntry, len(r.entries))
	copy(out, r.entries)
	r.lock.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if offset >= len(out) {
		return []model.AuditEntry{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// All returns every entry in insertion order.
func (r *Audit) All() []model.AuditEntry {
	r.lock.RLock()
	defer r.lock.RUnlock()
	out := make([]model.AuditEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
