package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"
	ErrCodeLoginFailed            = "login_failed"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"
	ErrCodeInvalidProfile   = "invalid_profile"

	// Resource errors
	ErrCodeNotFound         = "not_found"
	ErrCodeQuestionNotFound = "question_not_found"

	// Practice session errors
	ErrCodeSessionNotStarted       = "session_not_started"
	ErrCodeSessionChanged          = "session_changed"
	ErrCodeQuestionNotSubmitted    = "question_not_submitted"
	ErrCodeUnknownJurisdiction     = "unknown_jurisdiction"
	ErrCodeJurisdictionUnavailable = "jurisdiction_unavailable"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
)
