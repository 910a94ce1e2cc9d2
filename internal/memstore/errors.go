package memstore

import "fmt"

// ImmutabilityError is returned for any attempt to alter a foundational
// layer (0–2). Consent cannot override it; the error is the contract, a
// silent no-op would hide the violation.
type ImmutabilityError struct {
	Layer  int
	Target string
}

func (e *ImmutabilityError) Error() string {
	return fmt.Sprintf("memstore: layer %d is permanently immutable (target %q)", e.Layer, e.Target)
}

// ConsentRequiredError is returned for an operational-layer write that has
// no matching approved consent. It carries the pending request ID the
// caller must have the user resolve.
type ConsentRequiredError struct {
	RequestID string
}

func (e *ConsentRequiredError) Error() string {
	return fmt.Sprintf("memstore: consent required (pending request %s)", e.RequestID)
}

// ConsentScopeError is returned when a consent is presented together with
// a write that differs from the one the user approved. The consent is not
// consumed; it stays bound to the write its scope names.
type ConsentScopeError struct {
	RequestID string
	Scope     string
}

func (e *ConsentScopeError) Error() string {
	return fmt.Sprintf("memstore: consent %s authorizes a different write (%s)", e.RequestID, e.Scope)
}

// ConsentRejectedError is returned when the referenced consent request was
// denied or cancelled. The write can only be retried with a new request.
type ConsentRejectedError struct {
	RequestID string
	Status    string
}

func (e *ConsentRejectedError) Error() string {
	return fmt.Sprintf("memstore: consent request %s was %s", e.RequestID, e.Status)
}
