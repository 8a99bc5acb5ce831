package tracker

import (
	"strings"
	"time"
)

type EventType string

const (
	// EventTabActivated switches tracking to a domain (or resumes it).
	EventTabActivated EventType = "tab_activated"
	// EventTick is the periodic heartbeat and the only source of duration
	// increments.
	EventTick EventType = "tick"
	// EventIdle suspends tracking (user idle or device going to sleep).
	EventIdle EventType = "idle"
	// EventActive resumes the last-known domain after a suspension.
	EventActive EventType = "active"
	// EventShutdown flushes the current record; no events are accepted
	// afterwards.
	EventShutdown EventType = "shutdown"
)

// Event is the single intake shape for every external signal. A zero At is
// stamped with the tracker clock on arrival.
type Event struct {
	Type   EventType `json:"type"`
	Domain string    `json:"domain,omitempty"`
	At     time.Time `json:"-"`
}

// NormalizeDomain lower-cases and strips scheme, path, and port so the same
// site always lands in the same domain-day bucket.
func NormalizeDomain(raw string) string {
	domain := strings.TrimSpace(strings.ToLower(raw))
	if i := strings.Index(domain, "://"); i >= 0 {
		domain = domain[i+3:]
	}
	if i := strings.IndexAny(domain, "/?#"); i >= 0 {
		domain = domain[:i]
	}
	if i := strings.Index(domain, ":"); i >= 0 {
		domain = domain[:i]
	}
	return strings.TrimPrefix(domain, "www.")
}
