package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AnshRaj112/rpd-backend/internal/apperr"
	"github.com/AnshRaj112/rpd-backend/internal/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	storeTimeout = 5 * time.Second
	// maxCreateAttempts bounds the duplicate-id retries of Create.
	maxCreateAttempts = 5
)

// errNotOwned is returned when a scoped write names another user's record.
var errNotOwned = errors.New("record belongs to another user")

// RecordStore is the thought-record collection. When scoped, every
// operation only sees the caller's own records; otherwise reads and
// writes span the whole collection and the caller is only recorded as
// the owner of records it creates.
type RecordStore struct {
	coll   *mongo.Collection
	ids    *RecordIDGenerator
	scoped bool
}

// NewRecordStore returns a store over coll. scope is config.ScopeGlobal
// or config.ScopeOwner.
func NewRecordStore(coll *mongo.Collection, ids *RecordIDGenerator, scope string) *RecordStore {
	return &RecordStore{coll: coll, ids: ids, scoped: scope == config.ScopeOwner}
}

// filter selects the record at id, restricted to caller when scoped. A
// zero id selects every visible record.
func (s *RecordStore) filter(id, caller string) bson.M {
	f := bson.M{}
	if id != "" {
		f["_id"] = id
	}
	if s.scoped {
		f["user"] = caller
	}
	return f
}

// List returns the records visible to caller. Each item is the stored
// document with _id exposed as "id".
func (s *RecordStore) List(ctx context.Context, caller string) ([]map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	cursor, err := s.coll.Find(ctx, s.filter("", caller))
	if err != nil {
		return nil, apperr.Store("rpd.list", err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperr.Store("rpd.list", err)
	}

	items := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		items = append(items, recordItem(doc))
	}
	return items, nil
}

// Merge overlays fields onto the record at id, creating it when absent.
// Stored fields missing from fields are left untouched, and the owner is
// only written when the record is created.
func (s *RecordStore) Merge(ctx context.Context, id string, fields map[string]string, caller string) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	_, err := s.coll.UpdateOne(ctx,
		s.filter(id, caller),
		mergeUpdate(fields, caller),
		options.Update().SetUpsert(true),
	)
	if err != nil {
		// Scoped: the id exists but the owner filter did not match it.
		if s.scoped && mongo.IsDuplicateKeyError(err) {
			return apperr.Authentication("rpd.merge", errNotOwned)
		}
		return apperr.Store("rpd.merge", err)
	}
	return nil
}

// Create inserts a new record owned by caller under a generated id and
// returns the id. It never overwrites an existing document.
func (s *RecordStore) Create(ctx context.Context, fields map[string]string, caller string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		id := s.ids.Next(attempt)
		doc := newRecordDoc(fields, caller)
		doc["_id"] = id

		_, err := s.coll.InsertOne(ctx, doc)
		if err == nil {
			return id, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return "", apperr.Store("rpd.create", err)
		}
	}
	return "", apperr.Store("rpd.create", fmt.Errorf("no free id after %d attempts", maxCreateAttempts))
}

// Delete removes the record at id. Deleting a missing id, or when scoped
// another user's id, is not an error.
func (s *RecordStore) Delete(ctx context.Context, id, caller string) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if _, err := s.coll.DeleteOne(ctx, s.filter(id, caller)); err != nil {
		return apperr.Store("rpd.delete", err)
	}
	return nil
}

func mergeUpdate(fields map[string]string, owner string) bson.M {
	update := bson.M{}
	if len(fields) > 0 {
		set := make(bson.M, len(fields))
		for k, v := range fields {
			set[k] = v
		}
		update["$set"] = set
	}
	if owner != "" {
		update["$setOnInsert"] = bson.M{"user": owner}
	}
	return update
}

func newRecordDoc(fields map[string]string, owner string) bson.M {
	doc := make(bson.M, len(fields)+2)
	for k, v := range fields {
		doc[k] = v
	}
	if owner != "" {
		doc["user"] = owner
	}
	return doc
}

func recordItem(doc bson.M) map[string]interface{} {
	item := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		item[k] = v
	}
	item["id"] = idString(doc["_id"])
	return item
}

func idString(v interface{}) interface{} {
	type hexer interface{ Hex() string }
	if h, ok := v.(hexer); ok {
		return h.Hex()
	}
	return v
}
