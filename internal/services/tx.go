package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"
)

const orderingRetries = 3

// withOrderingTx runs fn inside a transaction and retries a bounded number of
// times when the database reports serialization contention. Concurrent
// reorders on one scope serialize on row locks; the loser of a deadlock or
// serialization failure replays against the committed state.
func withOrderingTx(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < orderingRetries; attempt++ {
		err = db.Transaction(fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		log.Printf("ordering transaction contention (attempt %d/%d): %v", attempt+1, orderingRetries, err)
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	return fmt.Errorf("%w: %v", ErrConflict, err)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "40001") || // serialization_failure
		strings.Contains(msg, "40P01") || // deadlock_detected
		strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "database is locked")
}
