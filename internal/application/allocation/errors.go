package allocation

import "errors"

// Kind classifies allocation failures. Handlers map kinds to HTTP status codes.
type Kind string

const (
	KindNotFound        Kind = "NotFound"
	KindConflict        Kind = "Conflict"
	KindInvalidArgument Kind = "InvalidArgument"
	KindForbidden       Kind = "Forbidden"
	KindInternal        Kind = "Internal"
)

// Conflict and not-found reasons, reported to clients as details.reason.
const (
	ReasonAlreadyProcessed   = "AlreadyProcessed"
	ReasonOutOfStock         = "OutOfStock"
	ReasonAssetUnavailable   = "AssetUnavailable"
	ReasonInvalidReturn      = "InvalidReturn"
	ReasonRequestNotFound    = "RequestNotFound"
	ReasonAssignmentNotFound = "AssignmentNotFound"
	ReasonAssetNotFound      = "AssetNotFound"
	ReasonEmployeeNotFound   = "EmployeeNotFound"
)

// Error is the typed result of a failed allocation call. Two Errors match under errors.Is
// when Kind and Reason are equal, so callers compare against the package sentinels.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

var (
	ErrRequestNotFound    = &Error{Kind: KindNotFound, Reason: ReasonRequestNotFound, Message: "Request not found"}
	ErrAssignmentNotFound = &Error{Kind: KindNotFound, Reason: ReasonAssignmentNotFound, Message: "Assignment not found"}
	ErrAssetNotFound      = &Error{Kind: KindNotFound, Reason: ReasonAssetNotFound, Message: "Asset not found"}
	ErrEmployeeNotFound   = &Error{Kind: KindNotFound, Reason: ReasonEmployeeNotFound, Message: "Active employee affiliation not found"}

	ErrAlreadyProcessed = &Error{Kind: KindConflict, Reason: ReasonAlreadyProcessed, Message: "Request already processed"}
	ErrOutOfStock       = &Error{Kind: KindConflict, Reason: ReasonOutOfStock, Message: "Asset out of stock"}
	ErrAssetUnavailable = &Error{Kind: KindConflict, Reason: ReasonAssetUnavailable, Message: "Asset no longer available"}
	ErrInvalidReturn    = &Error{Kind: KindConflict, Reason: ReasonInvalidReturn, Message: "Assignment is not currently assigned"}

	ErrForbidden       = &Error{Kind: KindForbidden, Message: "Forbidden"}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument, Message: "Invalid argument"}
	ErrCompanyRequired = &Error{Kind: KindInvalidArgument, Message: "company_name is required"}
	ErrInternal        = &Error{Kind: KindInternal, Message: "Internal server error"}
)

func invalidArgument(err error) *Error {
	return &Error{Kind: KindInvalidArgument, Message: err.Error()}
}

func internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the Kind of err, or KindInternal for errors not produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ReasonOf returns the Reason of err, or "" when it has none.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
