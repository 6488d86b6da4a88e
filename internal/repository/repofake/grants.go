package repofake

import (
	"context"
	"sync"

	"github.com/iliyamo/carpool-identity/internal/model"
	"github.com/iliyamo/carpool-identity/internal/service"
)

var _ service.GrantStore = (*Grants)(nil)

type Grants struct {
	Faults
	lock sync.RWMutex
	rows map[string][]model.Permission
	// Reads counts every Has and ListByIdentity call.
	Reads int
}

func NewGrants() *Grants {
	return &Grants{rows: map[string][]model.Permission{}}
}

func (r *Grants) ListByIdentity(_ context.Context, identityID string) ([]model.Permission, error) {
	r.lock.Lock()
	r.Reads++
	r.lock.Unlock()
	if err := r.check("ListByIdentity"); err != nil {
		return nil, err
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	out := make([]model.Permission, len(r.rows[identityID]))
	copy(out, r.rows[identityID])
	return out, nil
}

func (r *Grants) Has(_ context.Context, identityID string, p model.Permission) (bool, error) {
	r.lock.Lock()
	r.Reads++
	r.lock.Unlock()
	if err := r.check("Has"); err != nil {
		return false, err
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	for _, g := range r.rows[identityID] {
		if g == p {
			return true, nil
		}
	}
	return false, nil
}

func (r *Grants) Replace(_ context.Context, identityID string, perms []model.Permission, _ string) error {
	if err := r.check("Replace"); err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	set := make([]model.Permission, len(perms))
	copy(set, perms)
	r.rows[identityID] = set
	return nil
}

func (r *Grants) DeleteAll(_ context.Context, identityID string) error {
	if err := r.check("DeleteAll"); err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.rows, identityID)
	return nil
}
