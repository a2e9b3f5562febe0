package dto

// APIErrorResponse is the failure shape shared by every endpoint. Status is
// set for decisions that are not errors in the transport sense, e.g.
// "expired".
type APIErrorResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Status  string      `json:"status,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
