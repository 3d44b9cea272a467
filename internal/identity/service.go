package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AnshRaj112/rpd-backend/pkg/utils"
	"github.com/google/uuid"
)

// Service is the identity provider used by the HTTP layer.
type Service struct {
	accounts accountRepository
	cache    *RevocationCache
	tokens   *TokenSigner
	log      *slog.Logger
	now      func() time.Time
}

// NewService wires the account store, optional revocation cache and token
// signer. cache may be nil.
func NewService(accounts *PostgresAccounts, cache *RevocationCache, tokens *TokenSigner, log *slog.Logger) *Service {
	return newService(accounts, cache, tokens, log)
}

func newService(accounts accountRepository, cache *RevocationCache, tokens *TokenSigner, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		accounts: accounts,
		cache:    cache,
		tokens:   tokens,
		log:      log.With("module", "identity"),
		now:      time.Now,
	}
}

// VerifyIDToken validates idToken and, when checkRevoked is set, rejects
// tokens of deleted or disabled accounts and tokens issued before the
// account's last revocation.
func (s *Service) VerifyIDToken(ctx context.Context, idToken string, checkRevoked bool) (*Token, error) {
	tok, err := s.tokens.Parse(idToken)
	if err != nil {
		return nil, err
	}
	if !checkRevoked {
		return tok, nil
	}

	st, err := s.revocationState(ctx, tok.UID)
	if err != nil {
		return nil, err
	}
	if st.deleted {
		return nil, ErrUserNotFound
	}
	if st.disabled {
		return nil, ErrUserDisabled
	}
	if tok.IssuedAt.Before(st.validAfter) {
		return nil, ErrTokenRevoked
	}
	return tok, nil
}

func (s *Service) revocationState(ctx context.Context, uid string) (cachedState, error) {
	if s.cache != nil {
		st, ok, err := s.cache.Get(ctx, uid)
		if err != nil {
			s.log.WarnContext(ctx, "revocation cache read failed", "uid", uid, "error", err)
		} else if ok {
			return st, nil
		}
	}

	a, err := s.accounts.ByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return cachedState{}, err
		}
		return cachedState{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// A revocation that committed after the read above has already stored a
	// newer state; Set leaves it in place.
	st := cachedState{validAfter: a.TokensValidAfter, disabled: a.Disabled}
	if s.cache != nil {
		if _, err := s.cache.Set(ctx, uid, st); err != nil {
			s.log.WarnContext(ctx, "revocation cache write failed", "uid", uid, "error", err)
		}
	}
	return st, nil
}

// CreateUser registers a new account. The email is lower-cased.
func (s *Service) CreateUser(ctx context.Context, u UserToCreate) (*UserRecord, error) {
	email := utils.NormalizeEmail(u.Email)
	if err := utils.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err := utils.ValidatePassword(u.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	hash, err := utils.HashPassword(u.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", ErrUnavailable, err)
	}

	now := s.now().UTC()
	a := account{
		UID:              uuid.NewString(),
		Email:            email,
		PasswordHash:     hash,
		TokensValidAfter: now.Truncate(time.Second),
		CreatedAt:        now,
	}
	if err := s.accounts.Insert(ctx, a); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &UserRecord{
		UID:              a.UID,
		Email:            a.Email,
		TokensValidAfter: a.TokensValidAfter,
		CreatedAt:        a.CreatedAt,
	}, nil
}

// DeleteUser removes the account. Unknown uids return ErrUserNotFound.
// The cache is marked first: if Redis cannot be written the account is
// left in place and ErrUnavailable is returned.
func (s *Service) DeleteUser(ctx context.Context, uid string) error {
	if uid == "" {
		return fmt.Errorf("%w: uid must be a non-empty string", ErrInvalidArgument)
	}
	if err := s.storeRevocation(ctx, uid, cachedState{deleted: true}); err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, uid); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// RevokeRefreshTokens invalidates every token issued to uid before now.
// The timestamp has second resolution, matching the iat claim.
func (s *Service) RevokeRefreshTokens(ctx context.Context, uid string) error {
	if uid == "" {
		return fmt.Errorf("%w: uid must be a non-empty string", ErrInvalidArgument)
	}
	validAfter := s.now().UTC().Truncate(time.Second)
	if err := s.accounts.SetTokensValidAfter(ctx, uid, validAfter); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return s.storeRevocation(ctx, uid, cachedState{validAfter: validAfter})
}

// SignInWithPassword checks the credentials and issues an ID token.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*SignInResult, error) {
	email = utils.NormalizeEmail(email)
	a, err := s.accounts.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrWrongPassword
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if a.Disabled {
		return nil, ErrUserDisabled
	}

	ok, err := utils.VerifyPassword(password, a.PasswordHash)
	if err != nil || !ok {
		return nil, ErrWrongPassword
	}

	idToken, expiresAt, err := s.tokens.Issue(a.UID, a.Email, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: sign token: %v", ErrUnavailable, err)
	}
	return &SignInResult{IDToken: idToken, ExpiresAt: expiresAt, UID: a.UID, Email: a.Email}, nil
}

// storeRevocation pushes st into the cache. A failure is returned so the
// caller does not report a revocation that verifiers may not see.
func (s *Service) storeRevocation(ctx context.Context, uid string, st cachedState) error {
	if s.cache == nil {
		return nil
	}
	if _, err := s.cache.Set(ctx, uid, st); err != nil {
		s.log.ErrorContext(ctx, "revocation cache update failed", "uid", uid, "error", err)
		return fmt.Errorf("%w: revocation cache: %v", ErrUnavailable, err)
	}
	return nil
}
