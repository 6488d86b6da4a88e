package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/carpool-identity/internal/model"
	"github.com/iliyamo/carpool-identity/internal/repository"
	"github.com/iliyamo/carpool-identity/internal/utils"
)

const staffResource = "staff"

// CreateStaffInput is the body of a create-staff request.
type CreateStaffInput struct {
	Email       string
	Password    string
	FullName    string
	Phone       string
	Permissions []string
	AdminID     string
}

// UpdateStaffInput is the body of an update-staff request. An empty
// Password leaves the credential untouched.
type UpdateStaffInput struct {
	StaffID     string
	FullName    string
	Phone       string
	Password    string
	Permissions []string
	AdminID     string
}

// StaffProvisioner creates, edits and removes staff accounts. It runs with
// elevated trust and must only be reachable by admins. Each operation is a
// sequence of single-statement writes; failures after the credential exists
// are compensated or reported as an explicit partial state.
type StaffProvisioner struct {
	identities  IdentityStore
	credentials CredentialStore
	grants      GrantStore
	audit       *AuditLogger
	hasher      utils.PasswordHasher
	newID       func() string
	log         *zap.SugaredLogger
}

// StaffOption configures a StaffProvisioner.
type StaffOption func(*StaffProvisioner)

// WithIDSource replaces uuid generation (tests).
func WithIDSource(gen func() string) StaffOption {
	return func(s *StaffProvisioner) { s.newID = gen }
}

// NewStaffProvisioner creates, edits and removes staff accounts across the
// credential, identity and grant stores, compensating on partial failure.
func NewStaffProvisioner(identities IdentityStore, credentials CredentialStore, grants GrantStore,
	audit *AuditLogger, hasher utils.PasswordHasher, log *zap.SugaredLogger, opts ...StaffOption) *StaffProvisioner {
	if identities == nil || credentials == nil || grants == nil || audit == nil {
		panic("nil dependency passed to NewStaffProvisioner")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &StaffProvisioner{
		identities:  identities,
		credentials: credentials,
		grants:      grants,
		audit:       audit,
		hasher:      hasher,
		newID:       uuid.NewString,
		log:         log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func parseGrantSet(raw []string) ([]model.Permission, error) {
	perms, bad, ok := model.ParsePermissions(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %w %q", ErrValidation, ErrUnknownPermission, bad)
	}
	return perms, nil
}

// Create provisions a new staff identity with its credential and grants.
func (s *StaffProvisioner) Create(ctx context.Context, in CreateStaffInput) (model.Identity, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.FullName = strings.TrimSpace(in.FullName)
	switch {
	case in.Email == "":
		return model.Identity{}, validationError("email required")
	case in.Password == "":
		return model.Identity{}, validationError("password required")
	case utils.PasswordTooLong(in.Password):
		return model.Identity{}, validationError("password must be at most %d bytes", utils.MaxPasswordBytes)
	case in.FullName == "":
		return model.Identity{}, validationError("full_name required")
	case in.Phone == "":
		return model.Identity{}, validationError("phone required")
	case in.AdminID == "":
		return model.Identity{}, validationError("admin_id required")
	}
	perms, err := parseGrantSet(in.Permissions)
	if err != nil {
		return model.Identity{}, err
	}

	// 1. uniqueness, before anything is written
	if err := s.checkPhone(ctx, in.Phone); err != nil {
		return model.Identity{}, err
	}
	if err := s.checkEmail(ctx, in.Email); err != nil {
		return model.Identity{}, err
	}

	// 2. credential
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return model.Identity{}, fmt.Errorf("hash password: %w", err)
	}
	id := s.newID()
	email := in.Email
	if err := s.credentials.Create(ctx, model.Credential{ID: id, Email: &email, Phone: in.Phone, PasswordHash: hash}); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Identity{}, ErrDuplicate
		}
		return model.Identity{}, fmt.Errorf("create credential: %w", err)
	}

	// 3. identity, role forced to staff whatever the client asked for
	identity := model.Identity{
		ID:       id,
		Phone:    in.Phone,
		Email:    &email,
		FullName: in.FullName,
		Role:     model.RoleStaff,
	}
	if err := s.identities.Insert(ctx, identity); err != nil {
		// 4. compensate: no login-capable credential without an identity
		cause := err
		if errors.Is(err, repository.ErrDuplicate) {
			cause = fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return model.Identity{}, s.compensate(ctx, id, cause)
	}

	// 5. re-assert the role in case a column default won
	if err := s.identities.SetRole(ctx, id, model.RoleStaff); err != nil {
		s.recordCreate(ctx, in, id, 0)
		return identity, &IncompleteStaffError{IdentityID: id, Step: "role", Err: err}
	}

	// 6. grants, replaced wholesale
	if err := s.grants.Replace(ctx, id, perms, in.AdminID); err != nil {
		s.recordCreate(ctx, in, id, 0)
		return identity, &IncompleteStaffError{IdentityID: id, Step: "permissions", Err: err}
	}

	// 7. audit
	s.recordCreate(ctx, in, id, len(perms))
	return identity, nil
}

func (s *StaffProvisioner) compensate(ctx context.Context, credentialID string, cause error) error {
	cerr := &CompensationError{CredentialID: credentialID, Cause: cause}
	if err := s.credentials.Delete(ctx, credentialID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		cerr.Cleanup = err
		s.log.Errorw("staff compensation failed, orphaned credential",
			"credential_id", credentialID, "cause", cause, "error", err)
	}
	return cerr
}

func (s *StaffProvisioner) recordCreate(ctx context.Context, in CreateStaffInput, id string, granted int) {
	_ = s.audit.Record(ctx, in.AdminID, model.AuditCreate, staffResource, ID(id), model.AuditDetail{
		"full_name":        in.FullName,
		"email":            in.Email,
		"phone":            in.Phone,
		"permission_count": granted,
		"performed_by":     in.AdminID,
	})
}

func (s *StaffProvisioner) checkPhone(ctx context.Context, phone string) error {
	taken, err := s.identities.PhoneExists(ctx, phone)
	if err != nil {
		return fmt.Errorf("check phone: %w", err)
	}
	if taken {
		return ErrPhoneTaken
	}
	return nil
}

func (s *StaffProvisioner) checkEmail(ctx context.Context, email string) error {
	taken, err := s.identities.EmailExists(ctx, email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if !taken {
		if taken, err = s.credentials.EmailExists(ctx, email); err != nil {
			return fmt.Errorf("check email: %w", err)
		}
	}
	if taken {
		return ErrEmailTaken
	}
	return nil
}

// loadStaff fetches the identity and insists it is a staff account.
func (s *StaffProvisioner) loadStaff(ctx context.Context, id string) (model.Identity, error) {
	identity, err := s.identities.GetByID(ctx, id)
	if err != nil {
		return model.Identity{}, err
	}
	if identity.Role != model.RoleStaff {
		return model.Identity{}, ErrNotStaff
	}
	return identity, nil
}

// Update edits a staff identity's profile, optionally rotates its password
// and replaces its grants.
func (s *StaffProvisioner) Update(ctx context.Context, in UpdateStaffInput) error {
	in.Phone = strings.TrimSpace(in.Phone)
	in.FullName = strings.TrimSpace(in.FullName)
	switch {
	case in.StaffID == "":
		return validationError("staff_id required")
	case in.FullName == "":
		return validationError("full_name required")
	case in.Phone == "":
		return validationError("phone required")
	case in.AdminID == "":
		return validationError("admin_id required")
	case utils.PasswordTooLong(in.Password):
		return validationError("password must be at most %d bytes", utils.MaxPasswordBytes)
	}
	perms, err := parseGrantSet(in.Permissions)
	if err != nil {
		return err
	}

	current, err := s.loadStaff(ctx, in.StaffID)
	if err != nil {
		return err
	}
	if in.Phone != current.Phone {
		if err := s.checkPhone(ctx, in.Phone); err != nil {
			return err
		}
	}
	if err := s.identities.UpdateProfile(ctx, in.StaffID, in.FullName, in.Phone); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrPhoneTaken
		}
		return fmt.Errorf("update profile: %w", err)
	}
	if in.Phone != current.Phone {
		if err := s.credentials.SetPhone(ctx, in.StaffID, in.Phone); err != nil {
			// login resolves phone through the identity row, so a stale
			// mirror is logged rather than failing the edit
			s.log.Errorw("credential phone sync failed", "staff_id", in.StaffID, "error", err)
		}
	}

	rotated := false
	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		if err := s.credentials.SetPasswordHash(ctx, in.StaffID, hash); err != nil {
			s.recordUpdate(ctx, in, current, false, -1)
			return fmt.Errorf("rotate password: %w", err)
		}
		rotated = true
	}

	if err := s.grants.Replace(ctx, in.StaffID, perms, in.AdminID); err != nil {
		s.recordUpdate(ctx, in, current, rotated, -1)
		return &IncompleteStaffError{IdentityID: in.StaffID, Step: "permissions", Err: err}
	}
	s.recordUpdate(ctx, in, current, rotated, len(perms))
	return nil
}

// recordUpdate writes the audit entry; granted < 0 means grants were not
// replaced.
func (s *StaffProvisioner) recordUpdate(ctx context.Context, in UpdateStaffInput, before model.Identity, rotated bool, granted int) {
	detail := model.AuditDetail{
		"full_name":        in.FullName,
		"old_phone":        before.Phone,
		"new_phone":        in.Phone,
		"password_rotated": rotated,
		"performed_by":     in.AdminID,
	}
	if granted >= 0 {
		detail["permission_count"] = granted
	} else {
		detail["permissions_replaced"] = false
	}
	_ = s.audit.Record(ctx, in.AdminID, model.AuditUpdate, staffResource, ID(in.StaffID), detail)
}

// Remove deletes a staff account: grants, identity, then credential.
func (s *StaffProvisioner) Remove(ctx context.Context, staffID, adminID string) error {
	if staffID == "" || adminID == "" {
		return validationError("staff_id/admin_id required")
	}
	identity, err := s.loadStaff(ctx, staffID)
	if err != nil {
		return err
	}
	if err := s.grants.DeleteAll(ctx, staffID); err != nil {
		return fmt.Errorf("delete grants: %w", err)
	}
	if err := s.identities.Delete(ctx, staffID); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if err := s.credentials.Delete(ctx, staffID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		// the identity is already gone; log the stray credential for cleanup
		s.log.Errorw("staff credential removal failed", "credential_id", staffID, "error", err)
	}
	_ = s.audit.Record(ctx, adminID, model.AuditDelete, staffResource, ID(staffID), model.AuditDetail{
		"full_name":    identity.FullName,
		"phone":        identity.Phone,
		"performed_by": adminID,
	})
	return nil
}
