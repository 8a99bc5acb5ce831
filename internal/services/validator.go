package services

import (
	"encoding/json"
	"fmt"

	"focustrack-backend/internal/models"
)

// ValidateSession structurally checks a raw session record. It always
// returns a result, even for inputs that are not objects at all; validation
// runs on paths that must survive corrupted legacy data, so it never panics.
func ValidateSession(raw interface{}) (result models.ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = models.ValidationResult{Valid: false, Error: fmt.Sprintf("validation failed: %v", r)}
		}
	}()

	record, ok := raw.(map[string]interface{})
	if !ok || record == nil {
		return invalid("session data must be an object")
	}

	if stringField(record, "id") == "" {
		return invalid("missing required field: id")
	}
	// Current records carry "domain"; legacy records carried "userId".
	if stringField(record, "domain") == "" && stringField(record, "userId") == "" {
		return invalid("missing required field: domain (or userId)")
	}
	startTime, ok := numericField(record, "startTime")
	if !ok {
		return invalid("missing or non-numeric field: startTime")
	}
	if startTime < 0 {
		return invalid("startTime must not be negative")
	}
	if stringField(record, "startTimeUTC") == "" {
		return invalid("missing required field: startTimeUTC")
	}

	if _, present := record["duration"]; present {
		duration, ok := numericField(record, "duration")
		if !ok {
			return invalid("duration must be numeric")
		}
		if duration < 0 {
			return invalid("duration must not be negative")
		}
	}

	if rawStatus, present := record["status"]; present {
		status, ok := rawStatus.(string)
		if !ok || !models.SessionStatus(status).Valid() {
			return invalid(fmt.Sprintf("status must be %q or %q", models.StatusActive, models.StatusCompleted))
		}
	}

	return models.ValidationResult{Valid: true}
}

func invalid(reason string) models.ValidationResult {
	return models.ValidationResult{Valid: false, Error: reason}
}

func stringField(record map[string]interface{}, key string) string {
	s, _ := record[key].(string)
	return s
}

// numericField accepts JSON numbers in any of the decoder's shapes.
func numericField(record map[string]interface{}, key string) (float64, bool) {
	switch v := record[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
