package models

// UserInfo is the identity stored under the "userInfo" key. It originates
// from the remote account service; the core only checks for its presence.
type UserInfo struct {
	UID      string `json:"uid"`
	Email    string `json:"email"`
	Timezone string `json:"timezone"`
}

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
