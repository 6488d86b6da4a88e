package repofake

import (
	"context"
	"sync"

	"github.com/iliyamo/carpool-identity/internal/model"
	"github.com/iliyamo/carpool-identity/internal/repository"
	"github.com/iliyamo/carpool-identity/internal/service"
)

var _ service.CodeStore = (*Codes)(nil)

type Codes struct {
	Faults
	lock   sync.Mutex
	rows   []model.OneTimeCode
	nextID uint64
}

func NewCodes() *Codes { return &Codes{} }

func (r *Codes) Insert(_ context.Context, c model.OneTimeCode) error {
	if err := r.check("Insert"); err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	r.nextID++
	c.ID = r.nextID
	c.Used = false
	r.rows = append(r.rows, c)
	return nil
}

func (r *Codes) FindUnused(_ context.Context, phone, code string) (model.OneTimeCode, error) {
	if err := r.check("FindUnused"); err != nil {
		return model.OneTimeCode{}, err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		c := r.rows[i]
		if c.Phone == phone && c.Code == code && !c.Used {
			return c, nil
		}
	}
	return model.OneTimeCode{}, repository.ErrNotFound
}

func (r *Codes) MarkUsed(_ context.Context, id uint64) (bool, error) {
	if err := r.check("MarkUsed"); err != nil {
		return false, err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id {
			if r.rows[i].Used {
				return false, nil
			}
			r.rows[i].Used = true
			return true, nil
		}
	}
	return false, nil
}

// Latest returns the most recently issued code for phone.
func (r *Codes) Latest(phone string) (model.OneTimeCode, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].Phone == phone {
			return r.rows[i], true
		}
	}
	return model.OneTimeCode{}, false
}
