package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/repository"
	"github.com/fitclub/club-service/pkg/email"
)

var (
	ErrInviteNotFound      = errors.New("invitation not found")
	ErrInviteAlreadyUsed   = errors.New("invitation already used")
	ErrInviteExpired       = errors.New("invitation expired")
	ErrInviteEmailMismatch = errors.New("invitation is bound to a different email")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrGymMismatch         = errors.New("invitation gym does not match caller's gym")
)

// codeAlphabet deliberately excludes nothing: codes are uppercase
// alphanumeric and compared case-insensitively on lookup.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ValidationStatus is the outcome of validating an invitation against a
// candidate registrant.
type ValidationStatus int

const (
	InviteValid ValidationStatus = iota
	InviteAlreadyUsed
	InviteExpired
	InviteEmailMismatch
)

type InviteService struct {
	invitations repository.InvitationRepository
	gyms        repository.GymRepository
	mail        email.Service
	codeLength  int
	now         func() time.Time
}

func NewInviteService(
	invitations repository.InvitationRepository,
	gyms repository.GymRepository,
	mail email.Service,
	codeLength int,
) *InviteService {
	if codeLength <= 0 {
		codeLength = 8
	}
	return &InviteService{
		invitations: invitations,
		gyms:        gyms,
		mail:        mail,
		codeLength:  codeLength,
		now:         time.Now,
	}
}

// Generate creates a new invitation for a gym. The caller must belong to
// that gym (or be a superadmin) and hold the manage-invitations
// capability; a mismatch rejects before any code is produced. Codes come
// from a cryptographically secure source; uniqueness is probabilistic by
// construction and not checked against existing rows.
func (s *InviteService) Generate(
	ctx context.Context,
	actor *domain.User,
	gymID uuid.UUID,
	roles domain.RoleSet,
	description, boundEmail *string,
	ttlDays int,
) (*domain.Invitation, error) {
	if err := s.authorize(actor, gymID); err != nil {
		return nil, err
	}

	gym, err := s.gyms.GetByID(ctx, gymID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("gym not found")
		}
		return nil, fmt.Errorf("failed to load gym: %w", err)
	}

	code, err := s.generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invitation code: %w", err)
	}

	now := s.now()
	used := false
	inv := &domain.Invitation{
		ID:          uuid.New(),
		Code:        code,
		GymID:       gymID,
		Roles:       domain.NormalizeRoles(roles, ""),
		Description: description,
		Used:        &used,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if boundEmail != nil && *boundEmail != "" {
		normalized := strings.ToLower(strings.TrimSpace(*boundEmail))
		inv.Email = &normalized
	}
	if ttlDays > 0 {
		expires := now.AddDate(0, 0, ttlDays)
		inv.ExpiresAt = &expires
	}

	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, err
	}

	if s.mail != nil && inv.Email != nil {
		if err := s.mail.SendInvitation(ctx, *inv.Email, gym.Name, inv.Code, inv.ExpiresAt); err != nil {
			log.Printf("[INVITE] Failed to mail invitation %s: %v", inv.ID, err)
		}
	}

	return inv, nil
}

// Lookup finds an invitation by code: a targeted indexed query, never a
// collection scan. Legacy records are normalized on the way out and the
// migrated shape written back in the background; the caller never waits
// on that write.
func (s *InviteService) Lookup(ctx context.Context, code string) (*domain.Invitation, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))

	inv, err := s.invitations.GetByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}

	s.migrateLegacy(inv)

	return inv, nil
}

// migrateLegacy folds the old used_count counter into the boolean shape
// in place and writes the migrated record back in the background; callers
// never wait on that write.
func (s *InviteService) migrateLegacy(inv *domain.Invitation) {
	if !inv.NeedsMigration() {
		return
	}
	migrated := inv.UsedCount > 0
	inv.Used = &migrated

	writeBack := *inv
	go func() {
		if err := s.invitations.Update(context.Background(), &writeBack); err != nil {
			log.Printf("[INVITE] Legacy shape write-back failed for %s: %v", writeBack.ID, err)
		}
	}()
}

// Validate checks an invitation against an optional candidate email.
// AlreadyUsed takes precedence over Expired; the email binding only
// applies when the invitation carries one, compared case-insensitively.
func (s *InviteService) Validate(inv *domain.Invitation, candidateEmail string) ValidationStatus {
	if inv.IsUsed() {
		return InviteAlreadyUsed
	}
	if inv.IsExpired(s.now()) {
		return InviteExpired
	}
	if inv.Email != nil && candidateEmail != "" &&
		!strings.EqualFold(*inv.Email, strings.TrimSpace(candidateEmail)) {
		return InviteEmailMismatch
	}
	return InviteValid
}

// StatusError maps a validation status onto the service's error set.
func StatusError(status ValidationStatus) error {
	switch status {
	case InviteAlreadyUsed:
		return ErrInviteAlreadyUsed
	case InviteExpired:
		return ErrInviteExpired
	case InviteEmailMismatch:
		return ErrInviteEmailMismatch
	default:
		return nil
	}
}

// Redeem marks the invitation used, recording who redeemed it. The flip
// happens at most once; losing the race reports ErrInviteAlreadyUsed.
// Call only after the registrant's profile was successfully created.
func (s *InviteService) Redeem(ctx context.Context, inv *domain.Invitation, newUserID uuid.UUID, name, registrantEmail string) error {
	gymName := ""
	if gym, err := s.gyms.GetByID(ctx, inv.GymID); err == nil {
		gymName = gym.Name
	}

	registered := domain.RegisteredUser{
		UserID:       newUserID,
		Name:         name,
		Email:        registrantEmail,
		GymID:        inv.GymID,
		GymName:      gymName,
		RegisteredAt: s.now(),
	}

	if err := s.invitations.MarkUsed(ctx, inv.ID, registered); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInviteAlreadyUsed
		}
		return err
	}

	used := true
	inv.Used = &used
	now := s.now()
	inv.UsedAt = &now
	inv.RegisteredUser = &registered
	return nil
}

// ListByGym returns a gym's invitations, subject to the same tenant and
// capability checks as Generate.
func (s *InviteService) ListByGym(ctx context.Context, actor *domain.User, gymID uuid.UUID, limit, offset int) ([]*domain.Invitation, int, error) {
	if err := s.authorize(actor, gymID); err != nil {
		return nil, 0, err
	}

	invitations, total, err := s.invitations.ListByGym(ctx, gymID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	for _, inv := range invitations {
		s.migrateLegacy(inv)
	}
	return invitations, total, nil
}

// authorize rejects tenant mismatches before any code is generated or
// listed. Superadmins may act on any gym.
func (s *InviteService) authorize(actor *domain.User, gymID uuid.UUID) error {
	if actor == nil || !actor.Roles.CanManageInvitations() {
		return ErrPermissionDenied
	}
	if actor.Roles.Has(domain.RoleSuperAdmin) {
		return nil
	}
	if actor.GymID == nil || *actor.GymID != gymID {
		return ErrGymMismatch
	}
	return nil
}

func (s *InviteService) generateCode() (string, error) {
	b := make([]byte, s.codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}
