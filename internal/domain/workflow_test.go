package domain

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

var allStates = []TicketState{TicketStateDraft, TicketStateOpen, TicketStatePending, TicketStateDone}

func genState() gopter.Gen {
	return gen.OneConstOf(TicketStateDraft, TicketStateOpen, TicketStatePending, TicketStateDone)
}

func TestCanTransitionTable(t *testing.T) {
	expected := map[TicketState]map[TicketState]bool{
		TicketStateDraft:   {TicketStateOpen: true, TicketStatePending: true, TicketStateDone: true},
		TicketStateOpen:    {TicketStatePending: true, TicketStateDone: true},
		TicketStatePending: {TicketStateOpen: true, TicketStateDone: true},
		TicketStateDone:    {TicketStateDraft: true, TicketStatePending: true},
	}
	for _, from := range allStates {
		for _, to := range allStates {
			assert.Equal(t, expected[from][to], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestProperty_NoSelfTransitions(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("a state never transitions to itself", prop.ForAll(
		func(s TicketState) bool {
			return !CanTransition(s, s)
		},
		genState(),
	))

	properties.Property("allowed actions agree with the transition table", prop.ForAll(
		func(from, to TicketState) bool {
			return IsActionAllowed(from, ActionForState(to)) == CanTransition(from, to)
		},
		genState(), genState(),
	))

	properties.Property("conversation actions only while open", prop.ForAll(
		func(s TicketState) bool {
			allowed := IsActionAllowed(s, ActionAddReply) &&
				IsActionAllowed(s, ActionTalkNote) &&
				IsActionAllowed(s, ActionTalkEmail)
			return allowed == (s == TicketStateOpen)
		},
		genState(),
	))

	properties.TestingRun(t)
}

func TestAllowedActionsOrder(t *testing.T) {
	assert.Equal(t, []Action{ActionPending, ActionDone, ActionAddReply, ActionTalkNote, ActionTalkEmail}, AllowedActions(TicketStateOpen))
	assert.Equal(t, []Action{ActionPending, ActionDraft}, AllowedActions(TicketStateDone))
	assert.Equal(t, []Action{ActionOpen, ActionPending, ActionDone}, AllowedActions(TicketStateDraft))
	assert.Empty(t, AllowedActions(TicketState("archived")))
}

func TestStateForAction(t *testing.T) {
	for _, s := range allStates {
		got, ok := StateForAction(ActionForState(s))
		assert.True(t, ok)
		assert.Equal(t, s, got)
	}
	_, ok := StateForAction(ActionTalkNote)
	assert.False(t, ok)
}

func TestLogAction(t *testing.T) {
	assert.Equal(t, LogOpened, LogAction(TicketStateOpen))
	assert.Equal(t, LogPending, LogAction(TicketStatePending))
	assert.Equal(t, LogDrafted, LogAction(TicketStateDraft))
	assert.Equal(t, LogClosed, LogAction(TicketStateDone))
}
