package attendance

import "errors"

// Code is a stable, enumerable error code the API layer can branch on
// without string-matching messages.
type Code string

const (
	CodeNoFacesEnrolled     Code = "NO_FACES_ENROLLED"
	CodeFaceNotRecognized   Code = "FACE_NOT_RECOGNIZED"
	CodeLowConfidence       Code = "LOW_CONFIDENCE"
	CodeFailedToMatch       Code = "FAILED_TO_MATCH"
	CodeAlreadyCheckedIn    Code = "ALREADY_CHECKED_IN"
	CodeAlreadyCheckedOut   Code = "ALREADY_CHECKED_OUT"
	CodeNotCheckedIn        Code = "NOT_CHECKED_IN"
	CodeBreakInProgress     Code = "BREAK_IN_PROGRESS"
	CodeNoActiveBreak       Code = "NO_ACTIVE_BREAK"
	CodeUserInactive        Code = "USER_INACTIVE"
	CodeUserNotFound        Code = "USER_NOT_FOUND"
	CodePolicyNotConfigured Code = "POLICY_NOT_CONFIGURED"
	CodeValidationFailed    Code = "VALIDATION_FAILED"
	CodeInternal            Code = "INTERNAL_ERROR"
)

// Error is a business-rule rejection carrying a stable code. These are
// expected conditions; only storage faults propagate as plain errors.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// E constructs an attendance error.
func E(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// CodeOf extracts the code from an error, or CodeInternal for plain errors.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}
