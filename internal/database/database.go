package database

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultMongoDatabase = "rpd"

// Connect opens a MongoDB client, pings it, and returns the database the
// document store lives in. dbName overrides the name found in the URI.
func Connect(ctx context.Context, mongoURI, dbName string) (*mongo.Client, *mongo.Database, error) {
	// Use longer timeout for Atlas connections
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(mongoURI)
	clientOptions.SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	if dbName == "" {
		dbName = DatabaseNameFromURI(mongoURI)
	}
	return client, client.Database(dbName), nil
}

// DatabaseNameFromURI extracts the path component of a mongodb:// or
// mongodb+srv:// URI, falling back to "rpd".
func DatabaseNameFromURI(mongoURI string) string {
	rest := mongoURI
	if idx := strings.Index(rest, "://"); idx != -1 {
		rest = rest[idx+3:]
	}
	idx := strings.Index(rest, "/")
	if idx == -1 {
		return defaultMongoDatabase
	}
	name := strings.Split(rest[idx+1:], "?")[0]
	if name == "" {
		return defaultMongoDatabase
	}
	return name
}

func Disconnect(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return client.Disconnect(ctx)
}

// MaskURI hides the password of a connection string for logging.
func MaskURI(uri string) string {
	schemeEnd := strings.Index(uri, "://")
	at := strings.LastIndex(uri, "@")
	if schemeEnd == -1 || at == -1 || at < schemeEnd {
		return uri
	}
	userInfo := uri[schemeEnd+3 : at]
	colon := strings.Index(userInfo, ":")
	if colon == -1 {
		return uri
	}
	return uri[:schemeEnd+3] + userInfo[:colon] + ":***" + uri[at:]
}
