package engine

import (
	"strconv"
	"time"

	"github.com/AccountantBot/AccountantBot-Backend/internal/core"
)

// parseDeadline implements the deadline resolution rules of
// "Generate Approve Intent" (spec.md §4.3): "0" means no expiry,
// a bare numeric string is Unix seconds, anything else is parsed as
// ISO-8601. Returns (unixSeconds, asTime-or-nil).
func parseDeadline(raw string) (uint64, *time.Time, error) {
	if raw == "0" {
		return 0, nil, nil
	}
	if unix, err := strconv.ParseUint(raw, 10, 64); err == nil {
		t := time.Unix(int64(unix), 0).UTC()
		return unix, &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0, nil, core.Wrap(core.KindInvalidInput, "deadline is neither \"0\", a unix-seconds integer, nor ISO-8601", err)
	}
	return uint64(t.Unix()), &t, nil
}

// unixToTime converts Unix seconds to a UTC time.Time for storage.
func unixToTime(unix uint64) time.Time {
	return time.Unix(int64(unix), 0).UTC()
}

// deadlineUnix converts a stored *time.Time back to the Unix-seconds
// form used for on-the-wire equality checks and contract calls. A nil
// deadline means no expiry (0).
func deadlineUnix(t *time.Time) uint64 {
	if t == nil {
		return 0
	}
	return uint64(t.Unix())
}
