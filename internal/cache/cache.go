// Package cache provides the content-addressed key-value store consulted by
// the transcript extractor and the quality scorer before any network work.
//
// Keys follow the <namespace>:<id> pattern, e.g. transcript:<video_id> and
// trusted_score:<video_id>. Backend failures are non-fatal by contract: a
// read error behaves as a miss and a write error is dropped.
package cache

import (
	"context"
	"time"
)

// Cache is the key-value interface shared by both backends. Values are
// serialized by the caller (JSON for structured entries).
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool)

	// Set stores value under key for ttl. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, value string, ttl time.Duration)

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string)
}
