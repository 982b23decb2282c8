package domain

// Action names an operation an agent can trigger on a ticket.
type Action string

const (
	ActionOpen      Action = "open"
	ActionPending   Action = "pending"
	ActionDraft     Action = "draft"
	ActionDone      Action = "done"
	ActionAddReply  Action = "add_reply"
	ActionTalkNote  Action = "talk_note"
	ActionTalkEmail Action = "talk_email"
)

var allowedTransitions = map[TicketState][]TicketState{
	TicketStateDraft:   {TicketStateOpen, TicketStatePending, TicketStateDone},
	TicketStateOpen:    {TicketStatePending, TicketStateDone},
	TicketStatePending: {TicketStateOpen, TicketStateDone},
	TicketStateDone:    {TicketStateDraft, TicketStatePending},
}

// transitionOrder keeps AllowedActions output stable.
var transitionOrder = []TicketState{TicketStateOpen, TicketStatePending, TicketStateDraft, TicketStateDone}

// CanTransition reports whether the workflow permits moving from current to next.
func CanTransition(current, next TicketState) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// TransitionTargets lists the states reachable from current in one step.
func TransitionTargets(current TicketState) []TicketState {
	return append([]TicketState(nil), allowedTransitions[current]...)
}

// ActionForState maps a target state to the action that reaches it.
func ActionForState(target TicketState) Action {
	return Action(target)
}

// StateForAction returns the target state of a transition action.
func StateForAction(action Action) (TicketState, bool) {
	switch action {
	case ActionOpen:
		return TicketStateOpen, true
	case ActionPending:
		return TicketStatePending, true
	case ActionDraft:
		return TicketStateDraft, true
	case ActionDone:
		return TicketStateDone, true
	}
	return "", false
}

// AllowedActions lists what can be done to a ticket in the given state.
func AllowedActions(state TicketState) []Action {
	actions := make([]Action, 0, 6)
	for _, target := range transitionOrder {
		if CanTransition(state, target) {
			actions = append(actions, ActionForState(target))
		}
	}
	if state == TicketStateOpen {
		actions = append(actions, ActionAddReply, ActionTalkNote, ActionTalkEmail)
	}
	return actions
}

// IsActionAllowed reports whether action appears in AllowedActions(state).
func IsActionAllowed(state TicketState, action Action) bool {
	for _, candidate := range AllowedActions(state) {
		if candidate == action {
			return true
		}
	}
	return false
}

// LogAction is the keyword recorded in the audit trail for a transition.
func LogAction(target TicketState) LogKeyword {
	switch target {
	case TicketStateOpen:
		return LogOpened
	case TicketStatePending:
		return LogPending
	case TicketStateDraft:
		return LogDrafted
	case TicketStateDone:
		return LogClosed
	}
	return LogKeyword(target)
}
