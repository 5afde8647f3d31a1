package workflow

import "time"

// Action is a caller-invoked workflow action.
type Action string

const (
	ActionAccept           Action = "accept"
	ActionReject           Action = "reject"
	ActionDelay            Action = "delay"
	ActionSubmitSignedCopy Action = "submit-signed-copy"
)

// transitions is the complete state machine: from state -> action -> to state.
// An action missing from a state's row is an invalid transition.
var transitions = map[State]map[Action]State{
	StatePendingSignature: {
		ActionAccept: StateAccepted,
		ActionReject: StateRejected,
		ActionDelay:  StateDelayed,
	},
	StateDelayed: {
		ActionReject:           StateRejected,
		ActionDelay:            StateDelayed,
		ActionSubmitSignedCopy: StateSigned,
	},
	StateAccepted: {
		ActionSubmitSignedCopy: StateSigned,
	},
}

// NextState returns the state reached by applying action in state from.
func NextState(from State, action Action) (State, error) {
	to, ok := transitions[from][action]
	if !ok {
		return "", NewInvalidTransitionError(from, action)
	}
	return to, nil
}

// Allowed reports whether action is legal in state from.
func Allowed(from State, action Action) bool {
	_, ok := transitions[from][action]
	return ok
}

// applyTransition moves doc to the next state for action and applies the expiry side effects.
// Payload replacement for submit-signed-copy is done by the caller before applying.
func applyTransition(doc *Document, action Action, now time.Time, cfg Config) error {
	to, err := NextState(doc.State, action)
	if err != nil {
		return err
	}

	switch action {
	case ActionAccept:
		doc.ExpiryAt = nil
	case ActionReject:
		// immediate and irreversible lock-out
		past := now.Add(-cfg.RejectBackdate)
		doc.ExpiryAt = &past
	case ActionDelay:
		// extend from the current deadline so repeated delays compound
		base := now
		if doc.ExpiryAt != nil {
			base = *doc.ExpiryAt
		}
		extended := base.Add(cfg.DelayExtension)
		doc.ExpiryAt = &extended
	case ActionSubmitSignedCopy:
		signedAt := now
		doc.SignedAt = &signedAt
		doc.ExpiryAt = nil
	}

	doc.State = to
	return nil
}
