package models

import "errors"

// Error is a user-facing domain error with a stable machine code. Domain
// errors are raised synchronously from validation inside a transaction and
// are never retried automatically.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Stable machine codes.
const (
	CodeNotYourTurn          = "NOT_YOUR_TURN"
	CodeDraftNotActive       = "DRAFT_NOT_ACTIVE"
	CodePlayerAlreadyDrafted = "PLAYER_ALREADY_DRAFTED"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeTradeError           = "TRADE_ERROR"
	CodeTradeNotFound        = "TRADE_NOT_FOUND"
	CodeTradeNotPending      = "TRADE_NOT_PENDING"
	CodeDraftNotFound        = "DRAFT_NOT_FOUND"
	CodeRateLimited          = "RATE_LIMITED"
)

func NotYourTurn(msg string) error          { return &Error{Code: CodeNotYourTurn, Message: msg} }
func DraftNotActive(msg string) error       { return &Error{Code: CodeDraftNotActive, Message: msg} }
func PlayerAlreadyDrafted(msg string) error { return &Error{Code: CodePlayerAlreadyDrafted, Message: msg} }
func Unauthorized(msg string) error         { return &Error{Code: CodeUnauthorized, Message: msg} }
func TradeError(msg string) error           { return &Error{Code: CodeTradeError, Message: msg} }
func TradeNotFound(msg string) error        { return &Error{Code: CodeTradeNotFound, Message: msg} }
func TradeNotPending(msg string) error      { return &Error{Code: CodeTradeNotPending, Message: msg} }
func DraftNotFound(msg string) error        { return &Error{Code: CodeDraftNotFound, Message: msg} }
func RateLimited(msg string) error          { return &Error{Code: CodeRateLimited, Message: msg} }

// ErrorCode extracts the machine code from err, or "" if err is not a domain
// error.
func ErrorCode(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsDomainError reports whether err carries a stable machine code.
func IsDomainError(err error) bool {
	var de *Error
	return errors.As(err, &de)
}
