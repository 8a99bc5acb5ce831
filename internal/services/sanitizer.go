package services

import (
	"encoding/json"
	"strconv"
	"strings"

	"focustrack-backend/internal/models"
)

// SanitizeSession normalizes a possibly-corrupted raw record into a
// structurally valid SessionRecord. nil in, nil out. Unknown fields are
// dropped by construction; recognized fields already valid pass through
// untouched.
func SanitizeSession(raw map[string]interface{}) *models.SessionRecord {
	if raw == nil {
		return nil
	}

	record := &models.SessionRecord{
		ID:           coerceString(raw["id"]),
		Domain:       strings.ToLower(coerceString(raw["domain"])),
		UserID:       coerceString(raw["userId"]),
		StartTime:    coerceInt(raw["startTime"], 0),
		StartTimeUTC: coerceString(raw["startTimeUTC"]),
		Timezone:     coerceString(raw["timezone"]),
		UTCDate:      coerceString(raw["utcDate"]),
		// Invalid or non-numeric durations fall back to zero rather than
		// poisoning aggregates.
		DurationSeconds: maxInt64(coerceInt(raw["duration"], 0), 0),
		Visits:          int(maxInt64(coerceInt(raw["visits"], 0), 0)),
		CurrentlyActive: coerceBool(raw["currentlyActive"]),
		CreatedAt:       coerceInt(raw["createdAt"], 0),
		UpdatedAt:       coerceInt(raw["updatedAt"], 0),
		Synced:          coerceBool(raw["synced"]),
	}

	status := models.SessionStatus(coerceString(raw["status"]))
	if !status.Valid() {
		status = models.StatusActive
	}
	record.Status = status

	if record.UpdatedAt < record.CreatedAt {
		record.UpdatedAt = record.CreatedAt
	}

	return record
}

func coerceString(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func coerceInt(v interface{}, fallback int64) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int:
		return int64(n)
	case int64:
		return n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return int64(f)
		}
		return fallback
	case string:
		trimmed := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return int64(f)
		}
		return fallback
	default:
		return fallback
	}
}

func coerceBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	default:
		return false
	}
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
