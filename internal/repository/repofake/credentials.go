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

var _ service.CredentialStore = (*Credentials)(nil)

type Credentials struct {
	Faults
	lock sync.RWMutex
	rows map[string]model.Credential
}

func NewCredentials() *Credentials {
	return &Credentials{rows: map[string]model.Credential{}}
}

// Put stores c as is (test setup).
func (r *Credentials) Put(c model.Credential) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.rows[c.ID] = c
}

func (r *Credentials) Create(_ context.Context, c model.Credential) error {
	if err := r.check("Create"); err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.rows[c.ID]; ok {
		return repository.ErrDuplicate
	}
	if c.Email != nil && r.emailTaken(*c.Email) {
		return repository.ErrDuplicate
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	r.rows[c.ID] = c
	return nil
}

func (r *Credentials) GetByID(_ context.Context, id string) (model.Credential, error) {
	if err := r.check("GetByID"); err != nil {
		return model.Credential{}, err
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	c, ok := r.rows[id]
	if !ok {
		return model.Credential{}, repository.ErrNotFound
	}
	return c, nil
}

func (r *Credentials) EmailExists(_ context.Context, email string) (bool, error) {
	if err := r.check("EmailExists"); err != nil {
		return false, err
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.emailTaken(email), nil
}

func (r *Credentials) emailTaken(email string) bool {
	for _, c := range r.rows {
		if c.Email != nil && strings.EqualFold(*c.Email, email) {
			return true
		}
	}
	return false
}

func (r *Credentials) SetPasswordHash(_ context.Context, id, hash string) error {
	if err := r.check("SetPasswordHash"); err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.PasswordHash = hash
	c.UpdatedAt = time.Now().UTC()
	r.rows[id] = c
	return nil
}

func (r *Credentials) SetPhone(_ context.Context, id, phone string) error {
	if err := r.check("SetPhone"); err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Phone = phone
	c.UpdatedAt = time.Now().UTC()
	r.rows[id] = c
	return nil
}

func (r *Credentials) Delete(_ context.Context, id string) error {
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
