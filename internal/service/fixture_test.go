package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/carpool-identity/internal/model"
	"github.com/iliyamo/carpool-identity/internal/repository/repofake"
	"github.com/iliyamo/carpool-identity/internal/utils"
)

var (
	ctx    = context.Background()
	hasher = utils.NewPasswordHasher(bcrypt.MinCost)
	nop    = zap.NewNop().Sugar()
)

type stores struct {
	identities  *repofake.Identities
	credentials *repofake.Credentials
	grants      *repofake.Grants
	audit       *repofake.Audit
	codes       *repofake.Codes
	moderation  *repofake.Moderation
}

func newStores() *stores {
	return &stores{
		identities:  repofake.NewIdentities(),
		credentials: repofake.NewCredentials(),
		grants:      repofake.NewGrants(),
		audit:       repofake.NewAudit(),
		codes:       repofake.NewCodes(),
		moderation:  repofake.NewModeration(),
	}
}

// seed stores an identity with a credential holding password as is, so a
// plain string gives a legacy account and a bcrypt hash a modern one.
func (s *stores) seed(t *testing.T, id, phone string, role model.Role, password string) model.Identity {
	t.Helper()
	i := model.Identity{
		ID:        id,
		Phone:     phone,
		FullName:  "User " + id,
		Role:      role,
		IsDriver:  role == model.RoleDriver,
		CreatedAt: time.Now().UTC(),
	}
	s.identities.Put(i)
	s.credentials.Put(model.Credential{ID: id, Phone: phone, PasswordHash: password})
	return i
}

func (s *stores) seedHashed(t *testing.T, id, phone string, role model.Role, password string) model.Identity {
	t.Helper()
	hash, err := hasher.Hash(password)
	require.NoError(t, err)
	return s.seed(t, id, phone, role, hash)
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
