package services

import (
	"strconv"
	"time"

	"github.com/AnshRaj112/rpd-backend/internal/config"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const recordIDLayout = "20060102150405"

// RecordIDGenerator produces identifiers for records created without one.
type RecordIDGenerator struct {
	strategy string
	now      func() time.Time
}

func NewRecordIDGenerator(strategy string) *RecordIDGenerator {
	if strategy != config.IDStrategyObjectID {
		strategy = config.IDStrategyTimestamp
	}
	return &RecordIDGenerator{strategy: strategy, now: time.Now}
}

// Next returns the identifier to try on the given attempt (1-based).
// Timestamp ids are YYYYMMDDHHMMSS in UTC; later attempts in the same
// second get a "-<attempt>" suffix.
func (g *RecordIDGenerator) Next(attempt int) string {
	if g.strategy == config.IDStrategyObjectID {
		return primitive.NewObjectID().Hex()
	}
	id := TimestampID(g.now())
	if attempt > 1 {
		id += "-" + strconv.Itoa(attempt)
	}
	return id
}

// TimestampID formats t as a fixed-width YYYYMMDDHHMMSS string in UTC.
func TimestampID(t time.Time) string {
	return t.UTC().Format(recordIDLayout)
}
