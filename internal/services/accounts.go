package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/AnshRaj112/rpd-backend/internal/apperr"
	"github.com/AnshRaj112/rpd-backend/internal/identity"
	"github.com/AnshRaj112/rpd-backend/internal/models"
	"github.com/AnshRaj112/rpd-backend/pkg/utils"
)

// AccountDirectory is the part of the identity service that manages
// accounts.
type AccountDirectory interface {
	CreateUser(ctx context.Context, u identity.UserToCreate) (*identity.UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
}

type ProfileWriter interface {
	Set(ctx context.Context, p models.UserProfile) error
	Delete(ctx context.Context, uid string) error
}

type ProfileQueue interface {
	Enqueue(ctx context.Context, p models.UserProfile) error
	Forget(ctx context.Context, uid string) error
}

type NewAccount struct {
	Email    string
	Password string
	Role     string
	Name     string
}

// AccountService keeps the identity account and the profile document of a
// user in step. The two stores are not transactional: the account is
// always written first and removed first.
type AccountService struct {
	directory AccountDirectory
	profiles  ProfileWriter
	queue     ProfileQueue
	log       *slog.Logger
}

func NewAccountService(directory AccountDirectory, profiles ProfileWriter, queue ProfileQueue, log *slog.Logger) *AccountService {
	if log == nil {
		log = slog.Default()
	}
	return &AccountService{
		directory: directory,
		profiles:  profiles,
		queue:     queue,
		log:       log.With("module", "accounts"),
	}
}

// Create registers the account and then its profile. A failed profile
// write does not fail the call; it is queued for retry.
func (s *AccountService) Create(ctx context.Context, in NewAccount) (*models.UserProfile, error) {
	email := utils.NormalizeEmail(in.Email)

	rec, err := s.directory.CreateUser(ctx, identity.UserToCreate{Email: email, Password: in.Password})
	if err != nil {
		return nil, apperr.IdentityService("users.create", err)
	}

	profile := models.UserProfile{ID: rec.UID, Email: rec.Email, Role: in.Role, Name: in.Name}
	if err := s.profiles.Set(ctx, profile); err != nil {
		s.log.ErrorContext(ctx, "profile write failed after account creation", "uid", rec.UID, "error", err)
		if s.queue == nil {
			return &profile, nil
		}
		if qerr := s.queue.Enqueue(ctx, profile); qerr != nil {
			s.log.ErrorContext(ctx, "profile could not be queued for retry", "uid", rec.UID, "error", qerr)
		}
	}
	return &profile, nil
}

// Delete removes the account, then its profile. If the account cannot be
// removed the profile is left alone.
func (s *AccountService) Delete(ctx context.Context, uid string) error {
	if err := s.directory.DeleteUser(ctx, uid); err != nil {
		if errors.Is(err, identity.ErrInvalidArgument) {
			return apperr.Validation("users.delete", "id is required")
		}
		return apperr.IdentityService("users.delete", err)
	}

	if s.queue != nil {
		if err := s.queue.Forget(ctx, uid); err != nil {
			s.log.WarnContext(ctx, "pending profile write not cleared", "uid", uid, "error", err)
		}
	}
	return s.profiles.Delete(ctx, uid)
}
