package services

import (
	"testing"

	"focustrack-backend/internal/models"
)

func TestSanitizeSession_Nil(t *testing.T) {
	if got := SanitizeSession(nil); got != nil {
		t.Fatalf("Expected nil for nil input, got %+v", got)
	}
}

func TestSanitizeSession_CorruptedRecord(t *testing.T) {
	raw := map[string]interface{}{
		"id":        "  x  ",
		"startTime": "1692739200000",
		"status":    "unknown",
		"duration":  "fifteen",
	}

	rec := SanitizeSession(raw)
	if rec == nil {
		t.Fatal("Expected a record, got nil")
	}
	if rec.ID != "x" {
		t.Errorf("Expected trimmed id 'x', got %q", rec.ID)
	}
	if rec.StartTime != 1692739200000 {
		t.Errorf("Expected coerced startTime 1692739200000, got %d", rec.StartTime)
	}
	if rec.Status != models.StatusActive {
		t.Errorf("Expected unrecognized status to default to active, got %q", rec.Status)
	}
	if rec.DurationSeconds != 0 {
		t.Errorf("Expected non-numeric duration to default to 0, got %d", rec.DurationSeconds)
	}
}

func TestSanitizeSession_ValidFieldsPassThrough(t *testing.T) {
	raw := map[string]interface{}{
		"id":           "session_1692739200000",
		"domain":       "Example.COM",
		"startTime":    float64(1692739200000),
		"startTimeUTC": "2023-08-22T20:00:00Z",
		"timezone":     "Asia/Tokyo",
		"utcDate":      "2023-08-22",
		"duration":     float64(90),
		"visits":       float64(2),
		"status":       "completed",
		"synced":       true,
		"mystery":      "dropped",
	}

	rec := SanitizeSession(raw)
	if rec.Domain != "example.com" {
		t.Errorf("Expected lower-cased domain, got %q", rec.Domain)
	}
	if rec.DurationSeconds != 90 {
		t.Errorf("Expected duration 90, got %d", rec.DurationSeconds)
	}
	if rec.Visits != 2 {
		t.Errorf("Expected visits 2, got %d", rec.Visits)
	}
	if rec.Status != models.StatusCompleted {
		t.Errorf("Expected completed status preserved, got %q", rec.Status)
	}
	if !rec.Synced {
		t.Error("Expected synced flag preserved")
	}
}

func TestSanitizeSession_NegativeDurationClamped(t *testing.T) {
	rec := SanitizeSession(map[string]interface{}{"duration": float64(-30)})
	if rec.DurationSeconds != 0 {
		t.Errorf("Expected negative duration clamped to 0, got %d", rec.DurationSeconds)
	}
}

func TestSanitizeSession_UpdatedAtNotBeforeCreatedAt(t *testing.T) {
	rec := SanitizeSession(map[string]interface{}{
		"createdAt": float64(2000),
		"updatedAt": float64(1000),
	})
	if rec.UpdatedAt != rec.CreatedAt {
		t.Errorf("Expected updatedAt raised to createdAt, got createdAt=%d updatedAt=%d", rec.CreatedAt, rec.UpdatedAt)
	}
}
