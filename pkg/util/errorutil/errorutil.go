package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

const (
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeInternal          = "INTERNAL_ERROR"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeActionNotAllowed  = "ACTION_NOT_ALLOWED"
	CodeMissingMessage    = "MISSING_MESSAGE"
	CodeMissingRecipient  = "MISSING_RECIPIENT"
	CodeNoResponsibleUser = "NO_RESPONSIBLE_USER"
	CodeInvalidAddress    = "INVALID_ADDRESS"
	CodeDeliveryFailed    = "DELIVERY_FAILED"
	CodeNoSMTPServer      = "NO_SMTP_SERVER"
	CodeTicketReadOnly    = "TICKET_READONLY"
)

// Sentinels for errors.Is checks. DomainError.Is compares codes, so any
// error built with the same code matches.
var (
	ErrNotFound          = &DomainError{Code: CodeNotFound}
	ErrInvalidTransition = &DomainError{Code: CodeInvalidTransition}
	ErrActionNotAllowed  = &DomainError{Code: CodeActionNotAllowed}
	ErrMissingMessage    = &DomainError{Code: CodeMissingMessage}
	ErrMissingRecipient  = &DomainError{Code: CodeMissingRecipient}
	ErrNoResponsibleUser = &DomainError{Code: CodeNoResponsibleUser}
	ErrInvalidAddress    = &DomainError{Code: CodeInvalidAddress}
	ErrDeliveryFailed    = &DomainError{Code: CodeDeliveryFailed}
	ErrNoSMTPServer      = &DomainError{Code: CodeNoSMTPServer}
	ErrTicketReadOnly    = &DomainError{Code: CodeTicketReadOnly}
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInvalidTransition(from, to string) error {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("cannot move ticket from %s to %s", from, to),
		http.StatusConflict,
		map[string]any{"from": from, "to": to})
}

func NewActionNotAllowed(action, state string) error {
	return NewDomainError(CodeActionNotAllowed,
		fmt.Sprintf("%s is not available while the ticket is %s", action, state),
		http.StatusConflict,
		map[string]any{"action": action, "state": state})
}

func NewMissingMessage() error {
	return NewDomainError(CodeMissingMessage, "the ticket has no message to send", http.StatusUnprocessableEntity, nil)
}

func NewMissingRecipient() error {
	return NewDomainError(CodeMissingRecipient, "the ticket has no requester email", http.StatusUnprocessableEntity, nil)
}

func NewNoResponsibleUser() error {
	return NewDomainError(CodeNoResponsibleUser, "no employee is linked to the current user", http.StatusUnprocessableEntity, nil)
}

func NewInvalidAddress(address string) error {
	return NewDomainError(CodeInvalidAddress,
		fmt.Sprintf("invalid email address %q", address),
		http.StatusUnprocessableEntity,
		map[string]any{"address": address})
}

func NewDeliveryFailed(err error) error {
	return &DomainError{
		Code:       CodeDeliveryFailed,
		Message:    "email delivery failed",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewNoSMTPServer(kind string) error {
	return NewDomainError(CodeNoSMTPServer,
		fmt.Sprintf("no outgoing mail server configured for kind %q", kind),
		http.StatusUnprocessableEntity,
		map[string]any{"kind": kind})
}

func NewTicketReadOnly(ticketID string) error {
	return NewDomainError(CodeTicketReadOnly,
		"the ticket is done; reopen it before editing",
		http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return NewConflict("resource already exists", map[string]any{"constraint": pgErr.ConstraintName}).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	return ToDomainError(err)
}
