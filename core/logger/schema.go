package logger

import "strings"

// keyOrder lists the fields printed first, in this order. The rest follow
// alphabetically.
var keyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"admin_id",
	"target_chat_id",
	"setting",
	"action",
	"cb_key",
	"kind",
	"old_role",
	"new_role",
	"edit_id",
	"backend",
	"outcome",
	"duration_ms",
	"elapsed_ms",
	"attempt",
	"attempts",
	"delay_ms",
	"err",
	"err_code",
	"error_kind",
	"cause",
	"reason",
	"ts_unix_nano",
}

var knownOutcomes = map[string]bool{
	"ok":           true,
	"fail":         true,
	"denied":       true,
	"invalid":      true,
	"rate_limited": true,
	"cancelled":    true,
}

// cleanEnums lowercases status and drops outcomes nobody graphs.
func cleanEnums(f fields) {
	if s := f.text("status"); s != "" {
		f["status"] = strings.ToLower(s)
	}
	if o := f.text("outcome"); o != "" {
		o = strings.ToLower(o)
		if knownOutcomes[o] {
			f["outcome"] = o
		} else {
			delete(f, "outcome")
		}
	}
}
