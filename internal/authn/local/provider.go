// Package local is the self-hosted authentication provider: argon2id
// credentials in postgres, RSA JWT token pairs, redis-backed revocation.
package local

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fitclub/club-service/internal/authn"
	"github.com/fitclub/club-service/internal/domain"
	"github.com/fitclub/club-service/internal/repository"
	"github.com/fitclub/club-service/pkg/blacklist"
	"github.com/fitclub/club-service/pkg/email"
	"github.com/fitclub/club-service/pkg/hash"
	"github.com/fitclub/club-service/pkg/jwt"
)

type Provider struct {
	accounts      repository.AccountRepository
	sessions      repository.AuthSessionRepository
	tokens        *jwt.TokenService
	blacklist     *blacklist.TokenBlacklist
	mail          email.Service
	refreshExpiry time.Duration
}

var _ authn.Provider = (*Provider)(nil)

// NewProvider wires the local auth provider. mail may be nil; password
// reset sends are then skipped with a log line.
func NewProvider(
	accounts repository.AccountRepository,
	sessions repository.AuthSessionRepository,
	tokens *jwt.TokenService,
	tokenBlacklist *blacklist.TokenBlacklist,
	mail email.Service,
	refreshExpiry time.Duration,
) *Provider {
	return &Provider{
		accounts:      accounts,
		sessions:      sessions,
		tokens:        tokens,
		blacklist:     tokenBlacklist,
		mail:          mail,
		refreshExpiry: refreshExpiry,
	}
}

func (p *Provider) SignIn(ctx context.Context, emailAddr, password string) (*authn.Principal, *domain.TokenPair, error) {
	if _, err := mail.ParseAddress(emailAddr); err != nil {
		return nil, nil, authn.ErrInvalidEmail
	}

	account, err := p.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, authn.ErrUserNotFound
		}
		log.Printf("[AUTHN] Account lookup failed for %s: %v", emailAddr, err)
		return nil, nil, authn.ErrAuthUnavailable
	}

	valid, err := hash.Verify(password, account.PasswordHash)
	if err != nil {
		log.Printf("[AUTHN] Password verification error for %s: %v", account.ID, err)
		return nil, nil, authn.ErrAuthUnavailable
	}
	if !valid {
		return nil, nil, authn.ErrWrongCredential
	}

	pair, err := p.issueSession(ctx, account)
	if err != nil {
		return nil, nil, err
	}

	return &authn.Principal{ID: account.ID, Email: account.Email}, pair, nil
}

func (p *Provider) SignUp(ctx context.Context, emailAddr, password string) (*authn.Principal, *domain.TokenPair, error) {
	if _, err := mail.ParseAddress(emailAddr); err != nil {
		return nil, nil, authn.ErrInvalidEmail
	}

	if _, err := p.accounts.GetByEmail(ctx, emailAddr); err == nil {
		return nil, nil, authn.ErrEmailInUse
	} else if !errors.Is(err, repository.ErrNotFound) {
		log.Printf("[AUTHN] Account lookup failed for %s: %v", emailAddr, err)
		return nil, nil, authn.ErrAuthUnavailable
	}

	passwordHash, err := hash.Password(password)
	if err != nil {
		return nil, nil, authn.ErrAuthUnavailable
	}

	now := time.Now()
	account := &domain.Account{
		ID:           uuid.New(),
		Email:        strings.ToLower(emailAddr),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := p.accounts.Create(ctx, account); err != nil {
		log.Printf("[AUTHN] Account creation failed for %s: %v", emailAddr, err)
		return nil, nil, authn.ErrAuthUnavailable
	}

	pair, err := p.issueSession(ctx, account)
	if err != nil {
		return nil, nil, err
	}

	return &authn.Principal{ID: account.ID, Email: account.Email}, pair, nil
}

func (p *Provider) SignOut(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken != "" {
		if claims, err := p.tokens.ValidateToken(accessToken); err == nil && claims.ExpiresAt != nil {
			if err := p.blacklist.AddAccessToken(ctx, accessToken, claims.ExpiresAt.Time); err != nil {
				log.Printf("[AUTHN] Failed to blacklist access token: %v", err)
			}
		}
	}

	if refreshToken != "" {
		if err := p.sessions.DeleteByTokenHash(ctx, hashToken(refreshToken)); err != nil {
			return fmt.Errorf("failed to end session: %w", err)
		}
	}

	return nil
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := p.tokens.ValidateToken(refreshToken)
	if err != nil || claims.TokenType != "refresh" {
		return nil, authn.ErrWrongCredential
	}

	session, err := p.sessions.GetByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, authn.ErrWrongCredential
	}

	if time.Now().After(session.ExpiresAt) {
		_ = p.sessions.Delete(ctx, session.ID)
		return nil, authn.ErrWrongCredential
	}

	revoked, err := p.blacklist.IsUserBlacklisted(ctx, session.UserID.String(), claims.IssuedAt.Time)
	if err != nil {
		return nil, authn.ErrAuthUnavailable
	}
	if revoked {
		return nil, authn.ErrWrongCredential
	}

	account, err := p.accounts.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, authn.ErrUserNotFound
	}

	sessionID := session.ID
	pair, err := p.tokens.GenerateTokenPair(account, &sessionID)
	if err != nil {
		return nil, authn.ErrAuthUnavailable
	}

	session.RefreshTokenHash = hashToken(pair.RefreshToken)
	session.ExpiresAt = time.Now().Add(p.refreshExpiry)
	if err := p.sessions.Update(ctx, session); err != nil {
		return nil, authn.ErrAuthUnavailable
	}

	return pair, nil
}

func (p *Provider) VerifyToken(ctx context.Context, accessToken string) (*domain.Claims, error) {
	claims, err := p.tokens.ValidateToken(accessToken)
	if err != nil || claims.TokenType != "access" {
		return nil, jwt.ErrInvalidToken
	}

	revoked, err := p.blacklist.IsBlacklisted(ctx, accessToken)
	if err != nil {
		return nil, authn.ErrAuthUnavailable
	}
	if revoked {
		return nil, jwt.ErrInvalidToken
	}

	if claims.IssuedAt != nil {
		userRevoked, err := p.blacklist.IsUserBlacklisted(ctx, claims.UserID.String(), claims.IssuedAt.Time)
		if err != nil {
			return nil, authn.ErrAuthUnavailable
		}
		if userRevoked {
			return nil, jwt.ErrInvalidToken
		}
	}

	return claims, nil
}

func (p *Provider) SendPasswordReset(ctx context.Context, emailAddr string) error {
	account, err := p.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		// Do not leak whether the address exists.
		log.Printf("[AUTHN] Password reset requested for unknown email")
		return nil
	}

	if p.mail == nil {
		log.Printf("[AUTHN] Mail service disabled, skipping password reset for %s", account.ID)
		return nil
	}

	token := uuid.New().String()
	if err := p.mail.SendPasswordReset(ctx, account.Email, account.Email, token); err != nil {
		return fmt.Errorf("failed to send password reset: %w", err)
	}
	return nil
}

func (p *Provider) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	account, err := p.accounts.GetByID(ctx, userID)
	if err != nil {
		return authn.ErrUserNotFound
	}

	valid, err := hash.Verify(oldPassword, account.PasswordHash)
	if err != nil || !valid {
		return authn.ErrWrongCredential
	}

	newHash, err := hash.Password(newPassword)
	if err != nil {
		return authn.ErrAuthUnavailable
	}

	if err := p.accounts.UpdatePassword(ctx, userID, newHash); err != nil {
		return authn.ErrAuthUnavailable
	}

	return p.RevokeSessions(ctx, userID)
}

func (p *Provider) AdminSetPassword(ctx context.Context, userID uuid.UUID, password string) error {
	newHash, err := hash.Password(password)
	if err != nil {
		return authn.ErrAuthUnavailable
	}

	if err := p.accounts.UpdatePassword(ctx, userID, newHash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return authn.ErrUserNotFound
		}
		return authn.ErrAuthUnavailable
	}

	return p.RevokeSessions(ctx, userID)
}

// SetCustomClaims stores the projected claims on the account. They reach
// tokens on the next issuance, not retroactively.
func (p *Provider) SetCustomClaims(ctx context.Context, userID uuid.UUID, claims domain.ProjectedClaims) error {
	if err := p.accounts.UpdateClaims(ctx, userID, claims); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return authn.ErrUserNotFound
		}
		return fmt.Errorf("failed to set custom claims: %w", err)
	}
	return nil
}

// RevokeSessions drops all refresh sessions and invalidates every
// outstanding token for the user.
func (p *Provider) RevokeSessions(ctx context.Context, userID uuid.UUID) error {
	if err := p.sessions.DeleteByUserID(ctx, userID); err != nil {
		log.Printf("[AUTHN] Failed to delete sessions for %s: %v", userID, err)
	}
	return p.blacklist.BlacklistUser(ctx, userID.String(), 24*time.Hour)
}

func (p *Provider) issueSession(ctx context.Context, account *domain.Account) (*domain.TokenPair, error) {
	sessionID := uuid.New()

	pair, err := p.tokens.GenerateTokenPair(account, &sessionID)
	if err != nil {
		log.Printf("[AUTHN] Token generation failed for %s: %v", account.ID, err)
		return nil, authn.ErrAuthUnavailable
	}

	session := &domain.AuthSession{
		ID:               sessionID,
		UserID:           account.ID,
		RefreshTokenHash: hashToken(pair.RefreshToken),
		ExpiresAt:        time.Now().Add(p.refreshExpiry),
		CreatedAt:        time.Now(),
	}

	if err := p.sessions.Create(ctx, session); err != nil {
		log.Printf("[AUTHN] Session creation failed for %s: %v", account.ID, err)
		return nil, authn.ErrAuthUnavailable
	}

	return pair, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
