package repofake

import (
	"context"
	"sync"

	"github.com/iliyamo/carpool-identity/internal/model"
	"github.com/iliyamo/carpool-identity/internal/repository"
	"github.com/iliyamo/carpool-identity/internal/service"
)

var _ service.ModerationStore = (*Moderation)(nil)

// Moderation tracks which banner, review and message ids exist.
type Moderation struct {
	Faults
	lock     sync.Mutex
	Banners  map[uint64]bool
	Reviews  map[uint64]bool
	Messages map[uint64]model.MessageStatus
}

func NewModeration() *Moderation {
	return &Moderation{
		Banners:  map[uint64]bool{},
		Reviews:  map[uint64]bool{},
		Messages: map[uint64]model.MessageStatus{},
	}
}

func (r *Moderation) DeleteBanner(_ context.Context, id uint64) error {
	if err := r.check("DeleteBanner"); err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if !r.Banners[id] {
		return repository.ErrNotFound
	}
	delete(r.Banners, id)
	return nil
}

func (r *Moderation) DeleteReview(_ context.Context, id uint64) error {
	if err := r.check("DeleteReview"); err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if !r.Reviews[id] {
		return repository.ErrNotFound
	}
	delete(r.Reviews, id)
	return nil
}

func (r *Moderation) DeleteMessage(_ context.Context, id uint64) error {
	if err := r.check("DeleteMessage"); err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.Messages[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.Messages, id)
	return nil
}

func (r *Moderation) SetMessageStatus(_ context.Context, id uint64, status model.MessageStatus) (model.MessageStatus, error) {
	if err := r.check("SetMessageStatus"); err != nil {
		return "", err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	old, ok := r.Messages[id]
	if !ok {
		return "", repository.ErrNotFound
	}
	r.Messages[id] = status
	return old, nil
}
