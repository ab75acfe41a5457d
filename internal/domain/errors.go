// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates the request failed domain validation.
var ErrValidation = errors.New("validation failed")

// ErrInvalidTransition indicates a queue status change that is not
// allowed from the record's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrNotConfigured indicates no WhatsApp gateway has both a base URL
// and an API key set for the tenant.
var ErrNotConfigured = errors.New("whatsapp gateway not configured")

// ErrPairingInProgress indicates a QR pairing flow is already running
// for the tenant.
var ErrPairingInProgress = errors.New("pairing already in progress")

// ErrNotConnected indicates an operation that needs an active WhatsApp
// session while the tenant is not connected.
var ErrNotConnected = errors.New("whatsapp is not connected")
