package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/carpool-identity/internal/model"
)

// Authorizer resolves what an identity may do. It is a pure function of the
// stored role and grants, re-read on every call: a staff member whose
// grants change mid-session sees the change on the next request. Any read
// failure denies.
type Authorizer struct {
	identities IdentityStore
	grants     GrantStore
}

// NewAuthorizer reads roles and grants live from the stores on every check.
func NewAuthorizer(identities IdentityStore, grants GrantStore) *Authorizer {
	if identities == nil || grants == nil {
		panic("nil store passed to NewAuthorizer")
	}
	return &Authorizer{identities: identities, grants: grants}
}

// Role re-reads the identity's role.
func (a *Authorizer) Role(ctx context.Context, identityID string) (model.Role, error) {
	i, err := a.identities.GetByID(ctx, identityID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthzUnavailable, err)
	}
	return i.Role, nil
}

// Check reports whether the identity holds p.
//
// A plain denial returns (false, nil). An unknown key returns
// (false, ErrUnknownPermission) and a store failure returns
// (false, ErrAuthzUnavailable); both are denials.
func (a *Authorizer) Check(ctx context.Context, identityID string, p model.Permission) (bool, error) {
	if !p.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownPermission, p)
	}
	role, err := a.Role(ctx, identityID)
	if err != nil {
		return false, err
	}
	switch role {
	case model.RoleAdmin:
		return true, nil
	case model.RoleStaff:
		ok, err := a.grants.Has(ctx, identityID, p)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrAuthzUnavailable, err)
		}
		return ok, nil
	}
	// driver, passenger and anything unrecognised never consult grants
	return false, nil
}

// Can is Check without the reason.
func (a *Authorizer) Can(ctx context.Context, identityID string, p model.Permission) bool {
	ok, err := a.Check(ctx, identityID, p)
	return err == nil && ok
}

// EffectivePermissions lists what the identity may do: every key for admin,
// exactly the granted keys for staff, nothing otherwise.
func (a *Authorizer) EffectivePermissions(ctx context.Context, identityID string) ([]model.Permission, error) {
	role, err := a.Role(ctx, identityID)
	if err != nil {
		return nil, err
	}
	switch role {
	case model.RoleAdmin:
		return model.AllPermissions(), nil
	case model.RoleStaff:
		granted, err := a.grants.ListByIdentity(ctx, identityID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuthzUnavailable, err)
		}
		out := make([]model.Permission, 0, len(granted))
		for _, p := range granted {
			if p.Valid() {
				out = append(out, p)
			}
		}
		return out, nil
	}
	return []model.Permission{}, nil
}
