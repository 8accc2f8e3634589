// Package xid mints prefixed identifiers for new records. The entity
// prefix ("cust", "bill", "svc") keeps ids greppable in logs and API
// payloads.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// New returns an id of the form "<prefix>-<unix-ms base36>-<random hex>".
// If the random source fails the timestamp alone is used; uniqueness then
// rests on the millisecond clock, which is acceptable single-process.
func New(prefix string) string {
	ms := strconv.FormatInt(time.Now().UnixMilli(), 36)
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%s", prefix, ms)
	}
	return fmt.Sprintf("%s-%s-%s", prefix, ms, hex.EncodeToString(buf))
}
