// Package services defines the business logic for vendor matching,
// conversations, and messaging. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

var (
	// ErrInvalidCategory is returned when a vendor category is outside the
	// known set.
	ErrInvalidCategory = errors.New("unknown vendor category")

	// ErrVendorNotFound indicates that the requested vendor does not exist.
	ErrVendorNotFound = errors.New("vendor not found")

	// ErrEmptyQuery is returned when a search request contains an empty
	// query string.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrConversationNotFound indicates that the requested conversation does
	// not exist or is not accessible to the current couple.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrMessageNotFound indicates that the requested message does not exist
	// or is not accessible to the current couple.
	ErrMessageNotFound = errors.New("message not found")

	// ErrEmptyBody is returned when a request to send a message contains
	// neither a body nor an attachment.
	ErrEmptyBody = errors.New("message body is empty")

	// ErrTooLong is returned when a message body exceeds the maximum
	// configured length limit.
	ErrTooLong = errors.New("message body too long")

	// ErrForbiddenMessage is returned when a couple attempts to edit or
	// delete a message they did not send.
	ErrForbiddenMessage = errors.New("cannot modify this message")
)
