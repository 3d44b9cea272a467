package services

import (
	"context"

	"github.com/AnshRaj112/rpd-backend/internal/apperr"
	"github.com/AnshRaj112/rpd-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProfileStore is the users collection.
type ProfileStore struct {
	coll *mongo.Collection
}

func NewProfileStore(coll *mongo.Collection) *ProfileStore {
	return &ProfileStore{coll: coll}
}

// Set writes the profile at users/<p.ID>, replacing any previous version.
func (s *ProfileStore) Set(ctx context.Context, p models.UserProfile) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return apperr.Store("profiles.set", err)
	}
	return nil
}

// Delete removes the profile at users/<uid>; a missing profile is fine.
func (s *ProfileStore) Delete(ctx context.Context, uid string) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": uid}); err != nil {
		return apperr.Store("profiles.delete", err)
	}
	return nil
}
