// Package workflow implements the encrypted document workflow.
//
// A document owner uploads a file for one or more recipients. The payload is sealed with a
// per-document key (see crypto.Box) and the document enters PendingSignature with an expiry
// one week out. Recipients accept, reject or delay it, the owner places signature fields, and a
// recipient finally submits a signed copy which replaces the stored payload.
//
// State machine (see transitions.go):
//
//	PendingSignature --accept-->             Accepted
//	PendingSignature, Delayed --reject-->    Rejected   (expiry moved into the past)
//	PendingSignature, Delayed --delay-->     Delayed    (expiry extended from its current value)
//	Accepted, Delayed --submit-signed-copy--> Signed    (requires signature fields)
//
// Expired is not a stored state. Every operation compares the stored expiry with the clock at
// the time of the call and fails with an expired error once it has passed.
//
// All mutations go through Engine.mutate, which holds the per-document lock and saves with an
// optimistic version check, retrying the whole read-modify-write on conflict. Events are
// emitted to the Notifier only after the save has committed.
package workflow
