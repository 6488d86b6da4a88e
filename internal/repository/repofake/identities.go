package repofake

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/carpool-identity/internal/model"
	"github.com/iliyamo/carpool-identity/internal/repository"
	"github.com/iliyamo/carpool-identity/internal/service"
)

var _ service.IdentityStore = (*Identities)(nil)

type Identities struct {
	Faults
	lock sync.RWMutex
	rows map[string]model.Identity
}

func NewIdentities() *Identities {
	return &Identities{rows: map[string]model.Identity{}}
}

// Put stores i as is, bypassing uniqueness checks (test setup).
func (r *Identities) Put(i model.Identity) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.rows[i.ID] = i
}

func (r *Identities) GetByID(_ context.Context, id string) (model.Identity, error) {
	if err := r.check("GetByID"); err != nil {
		return model.Identity{}, err
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	i, ok := r.rows[id]
	if !ok {
		return model.Identity{}, repository.ErrNotFound
	}
	return i, nil
}

func (r *Identities) GetByPhone(_ context.Context, phone string) (model.Identity, error) {
	if err := r.check("GetByPhone"); err != nil {
		return model.Identity{}, err
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	for _, i := range r.rows {
		if i.Phone == phone {
			return i, nil
		}
	}
	return model.Identity{}, repository.ErrNotFound
}

func (r *Identities) PhoneExists(ctx context.Context, phone string) (bool, error) {
	if err := r.check("PhoneExists"); err != nil {
		return false, err
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.phoneTaken(phone, ""), nil
}

func (r *Identities) EmailExists(_ context.Context, email string) (bool, error) {
	if err := r.check("EmailExists"); err != nil {
		return false, err
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.emailTaken(email, ""), nil
}

func (r *Identities) phoneTaken(phone, except string) bool {
	for id, i := range r.rows {
		if id != except && i.Phone == phone {
			return true
		}
	}
	return false
}

func (r *Identities) emailTaken(email, except string) bool {
	for id, i := range r.rows {
		if id != except && i.Email != nil && strings.EqualFold(*i.Email, email) {
			return true
		}
	}
	return false
}

func (r *Identities) Insert(_ context.Context, i model.Identity) error {
	if err := r.check("Insert"); err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.rows[i.ID]; ok || r.phoneTaken(i.Phone, "") {
		return repository.ErrDuplicate
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now().UTC()
	}
	r.rows[i.ID] = i
	return nil
}

func (r *Identities) UpdateProfile(_ context.Context, id, fullName, phone string) error {
	if err := r.check("UpdateProfile"); err != nil {
		return err
	}
	return r.mutate(id, func(i *model.Identity) error {
		if r.phoneTaken(phone, id) {
			return repository.ErrDuplicate
		}
		i.FullName, i.Phone = fullName, phone
		return nil
	})
}

func (r *Identities) SetRole(_ context.Context, id string, role model.Role) error {
	if err := r.check("SetRole"); err != nil {
		return err
	}
	return r.mutate(id, func(i *model.Identity) error { i.Role = role; return nil })
}

func (r *Identities) SetPremium(_ context.Context, id string, premium bool, until *time.Time) error {
	if err := r.check("SetPremium"); err != nil {
		return err
	}
	return r.mutate(id, func(i *model.Identity) error {
		i.IsPremium, i.PremiumExpiresAt = premium, until
		return nil
	})
}

func (r *Identities) SetVerified(_ context.Context, id string, verified bool) error {
	if err := r.check("SetVerified"); err != nil {
		return err
	}
	return r.mutate(id, func(i *model.Identity) error { i.IsVerified = verified; return nil })
}

func (r *Identities) Delete(_ context.Context, id string) error {
	if err := r.check("Delete"); err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *Identities) SetSessionToken(_ context.Context, id string, token *string, at time.Time) error {
	if err := r.check("SetSessionToken"); err != nil {
		return err
	}
	return r.mutate(id, func(i *model.Identity) error {
		if token != nil {
			t := *token
			token = &t
		}
		i.ActiveSessionToken = token
		i.LastActiveAt = &at
		return nil
	})
}

func (r *Identities) GetSessionToken(_ context.Context, id string) (*string, error) {
	if err := r.check("GetSessionToken"); err != nil {
		return nil, err
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	i, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if i.ActiveSessionToken == nil {
		return nil, nil
	}
	t := *i.ActiveSessionToken
	return &t, nil
}

func (r *Identities) mutate(id string, fn func(*model.Identity) error) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	i, ok := r.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if err := fn(&i); err != nil {
		return err
	}
	r.rows[id] = i
	return nil
}
