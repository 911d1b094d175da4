package postgres

import (
	"time"
)

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

// nullJSON keeps nil payloads as SQL NULL instead of an empty bytea.
func nullJSON(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return string(b)
}
