package services

import (
	"context"
	"errors"
	"testing"

	"github.com/AnshRaj112/rpd-backend/internal/apperr"
	"github.com/AnshRaj112/rpd-backend/internal/identity"
	"github.com/AnshRaj112/rpd-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	accounts  map[string]string // uid -> email
	nextUID   string
	createErr error
	deleteErr error
}

func (f *fakeDirectory) CreateUser(_ context.Context, u identity.UserToCreate) (*identity.UserRecord, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, email := range f.accounts {
		if email == u.Email {
			return nil, identity.ErrEmailExists
		}
	}
	f.accounts[f.nextUID] = u.Email
	return &identity.UserRecord{UID: f.nextUID, Email: u.Email}, nil
}

func (f *fakeDirectory) DeleteUser(_ context.Context, uid string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if uid == "" {
		return identity.ErrInvalidArgument
	}
	if _, ok := f.accounts[uid]; !ok {
		return identity.ErrUserNotFound
	}
	delete(f.accounts, uid)
	return nil
}

type fakeProfiles struct {
	docs      map[string]models.UserProfile
	setErr    error
	deleteErr error
}

func (f *fakeProfiles) Set(_ context.Context, p models.UserProfile) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.docs[p.ID] = p
	return nil
}

func (f *fakeProfiles) Delete(_ context.Context, uid string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.docs, uid)
	return nil
}

type fakeQueue struct {
	queued    map[string]models.UserProfile
	forgotten []string
}

func (f *fakeQueue) Enqueue(_ context.Context, p models.UserProfile) error {
	f.queued[p.ID] = p
	return nil
}

func (f *fakeQueue) Forget(_ context.Context, uid string) error {
	f.forgotten = append(f.forgotten, uid)
	delete(f.queued, uid)
	return nil
}

func newAccountFixture() (*AccountService, *fakeDirectory, *fakeProfiles, *fakeQueue) {
	dir := &fakeDirectory{accounts: map[string]string{}, nextUID: "uid-1"}
	profiles := &fakeProfiles{docs: map[string]models.UserProfile{}}
	queue := &fakeQueue{queued: map[string]models.UserProfile{}}
	return NewAccountService(dir, profiles, queue, nil), dir, profiles, queue
}

func TestAccountService_Create(t *testing.T) {
	svc, dir, profiles, _ := newAccountFixture()

	p, err := svc.Create(context.Background(), NewAccount{Email: "Ana@Example.COM", Password: "secret1", Role: "patient", Name: "Ana"})
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", dir.accounts["uid-1"])
	assert.Equal(t, models.UserProfile{ID: "uid-1", Email: "ana@example.com", Role: "patient", Name: "Ana"}, profiles.docs["uid-1"])
	assert.Equal(t, "uid-1", p.ID)
}

func TestAccountService_Create_DuplicateEmailWritesNoProfile(t *testing.T) {
	svc, dir, profiles, _ := newAccountFixture()
	dir.accounts["existing"] = "ana@example.com"

	_, err := svc.Create(context.Background(), NewAccount{Email: "ANA@example.com", Password: "secret1"})
	require.Error(t, err)

	assert.Equal(t, apperr.KindIdentityService, apperr.KindOf(err))
	assert.ErrorIs(t, err, identity.ErrEmailExists)
	assert.Empty(t, profiles.docs)
}

func TestAccountService_Create_ProfileFailureIsQueued(t *testing.T) {
	svc, dir, profiles, queue := newAccountFixture()
	profiles.setErr = apperr.Store("profiles.set", errors.New("timeout"))

	p, err := svc.Create(context.Background(), NewAccount{Email: "ana@example.com", Password: "secret1", Role: "admin", Name: "Ana"})
	require.NoError(t, err)

	assert.Contains(t, dir.accounts, "uid-1")
	assert.Empty(t, profiles.docs)
	assert.Equal(t, *p, queue.queued["uid-1"])
}

func TestAccountService_Delete(t *testing.T) {
	svc, dir, profiles, queue := newAccountFixture()
	dir.accounts["uid-1"] = "ana@example.com"
	profiles.docs["uid-1"] = models.UserProfile{ID: "uid-1"}

	require.NoError(t, svc.Delete(context.Background(), "uid-1"))

	assert.Empty(t, dir.accounts)
	assert.Empty(t, profiles.docs)
	assert.Equal(t, []string{"uid-1"}, queue.forgotten)
}

func TestAccountService_Delete_UnknownIDLeavesProfile(t *testing.T) {
	svc, _, profiles, _ := newAccountFixture()
	profiles.docs["orphan"] = models.UserProfile{ID: "orphan"}

	err := svc.Delete(context.Background(), "orphan")
	require.Error(t, err)

	assert.Equal(t, apperr.KindIdentityService, apperr.KindOf(err))
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
	assert.Contains(t, profiles.docs, "orphan")
}

func TestAccountService_Delete_ProfileFailure(t *testing.T) {
	svc, dir, profiles, _ := newAccountFixture()
	dir.accounts["uid-1"] = "ana@example.com"
	profiles.deleteErr = apperr.Store("profiles.delete", errors.New("timeout"))

	err := svc.Delete(context.Background(), "uid-1")
	assert.Equal(t, apperr.KindStore, apperr.KindOf(err))
}

func TestAccountService_Delete_EmptyID(t *testing.T) {
	svc, _, _, _ := newAccountFixture()

	err := svc.Delete(context.Background(), "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
