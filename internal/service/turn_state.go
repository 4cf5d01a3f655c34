package service

import (
	"context"

	"own-ai-chat/pkg/apperr"

	"github.com/qmuntal/stateless"
)

// TurnState is the lifecycle of one user message.
type TurnState string

const (
	TurnReceived           TurnState = "Received"
	TurnPersistedUser      TurnState = "PersistedUser"
	TurnGenerating         TurnState = "Generating"
	TurnPersistedAssistant TurnState = "PersistedAssistant"
	TurnBroadcast          TurnState = "Broadcast" // terminal: success
	TurnFailed             TurnState = "Failed"    // terminal: failure
)

type turnTrigger string

const (
	triggerUserPersisted      turnTrigger = "UserPersisted"
	triggerGenerate           turnTrigger = "Generate"
	triggerAssistantPersisted turnTrigger = "AssistantPersisted"
	triggerBroadcast          turnTrigger = "Broadcast"
	triggerFail               turnTrigger = "Fail"
)

type turnMachine struct {
	sm    *stateless.StateMachine
	trail []TurnState
}

func newTurnMachine() *turnMachine {
	m := &turnMachine{trail: []TurnState{TurnReceived}}
	sm := stateless.NewStateMachine(TurnReceived)

	sm.Configure(TurnReceived).
		Permit(triggerUserPersisted, TurnPersistedUser).
		Permit(triggerFail, TurnFailed)
	sm.Configure(TurnPersistedUser).
		Permit(triggerGenerate, TurnGenerating).
		Permit(triggerFail, TurnFailed)
	sm.Configure(TurnGenerating).
		Permit(triggerAssistantPersisted, TurnPersistedAssistant).
		Permit(triggerFail, TurnFailed)
	sm.Configure(TurnPersistedAssistant).
		Permit(triggerBroadcast, TurnBroadcast).
		Permit(triggerFail, TurnFailed)
	sm.Configure(TurnBroadcast)
	sm.Configure(TurnFailed)

	sm.OnTransitioned(func(_ context.Context, t stateless.Transition) {
		m.trail = append(m.trail, t.Destination.(TurnState))
	})

	m.sm = sm
	return m
}

func (m *turnMachine) fire(ctx context.Context, trigger turnTrigger) error {
	if err := m.sm.FireCtx(ctx, trigger); err != nil {
		return apperr.Wrap(apperr.Internal, "turn."+string(trigger), err)
	}
	return nil
}

// fail moves the turn to Failed. Terminal states stay where they are.
func (m *turnMachine) fail(ctx context.Context) {
	switch m.State() {
	case TurnBroadcast, TurnFailed:
		return
	}
	_ = m.sm.FireCtx(ctx, triggerFail)
}

func (m *turnMachine) State() TurnState {
	return m.sm.MustState().(TurnState)
}

func (m *turnMachine) Trail() []TurnState {
	out := make([]TurnState, len(m.trail))
	copy(out, m.trail)
	return out
}
