// Package window implements the correction window for destructive edits.
// A loan may only be deleted, and a payment only reversed, during the first
// five minutes after the record was created.
package window

import "time"

// EditWindow is how long after creation a record stays deletable. The window
// is anchored to the original creation instant and never resets.
const EditWindow = 5 * time.Minute

// IsMutable reports whether a record created at createdAt may still be
// deleted as of now. The boundary is inclusive: a record exactly EditWindow
// old is still mutable. A zero createdAt means the anchor timestamp was
// missing or unparsable, which fails closed.
func IsMutable(createdAt, now time.Time) bool {
	if createdAt.IsZero() {
		return false
	}
	return now.Sub(createdAt) <= EditWindow
}
