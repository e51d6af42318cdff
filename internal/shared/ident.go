// Package shared holds small helpers used across mission-control:
// identifier generation, run identity, and human time formatting.
package shared

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// NewID returns a collision-resistant identifier of the form
// PREFIX-<base36 millisecond timestamp>-<8 hex chars>, uppercased.
// Good enough for single-process use; there is no persisted sequence.
func NewID(prefix string) string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	buf := make([]byte, 4)
	// rand.Read never fails on supported platforms.
	_, _ = rand.Read(buf)
	return strings.ToUpper(prefix + "-" + ts + "-" + hex.EncodeToString(buf))
}
