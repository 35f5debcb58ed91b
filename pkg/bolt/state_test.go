package bolt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateAcceptsNegotiationOnlyHello(t *testing.T) {
	assert.True(t, StateNegotiation.Accepts(MsgHello))
	assert.False(t, StateNegotiation.Accepts(MsgRun))
}

func TestStateAcceptsDefunctAcceptsNothing(t *testing.T) {
	for _, kind := range []ClientMessageKind{MsgHello, MsgRun, MsgGoodbye, MsgReset} {
		assert.False(t, StateDefunct.Accepts(kind))
	}
}

func TestTransitionSuccessHelloThenLogon(t *testing.T) {
	s := StateNegotiation
	s = s.TransitionSuccess(MsgHello)
	assert.Equal(t, StateAuthentication, s)
	s = s.TransitionSuccess(MsgLogon)
	assert.Equal(t, StateReady, s)
}

func TestTransitionSuccessRunPullDiscardCycle(t *testing.T) {
	s := StateReady
	s = s.TransitionSuccess(MsgRun)
	assert.Equal(t, StateStreaming, s)
	s = s.TransitionSuccess(MsgPull)
	assert.Equal(t, StateStreaming, s)
	s = s.TransitionSuccess(MsgDiscard)
	assert.Equal(t, StateStreaming, s)
	s = s.CompleteStreaming()
	assert.Equal(t, StateReady, s)
}

func TestTransitionSuccessTransactionCycle(t *testing.T) {
	s := StateReady
	s = s.TransitionSuccess(MsgBegin)
	assert.Equal(t, StateTxReady, s)
	s = s.TransitionSuccess(MsgRun)
	assert.Equal(t, StateTxStreaming, s)
	s = s.CompleteStreaming()
	assert.Equal(t, StateTxReady, s)
	s = s.TransitionSuccess(MsgCommit)
	assert.Equal(t, StateReady, s)
}

func TestTransitionSuccessResetAlwaysReady(t *testing.T) {
	assert.Equal(t, StateReady, StateFailed.TransitionSuccess(MsgReset))
	assert.Equal(t, StateReady, StateTxStreaming.TransitionSuccess(MsgReset))
}

func TestTransitionSuccessGoodbyeAlwaysDefunct(t *testing.T) {
	assert.Equal(t, StateDefunct, StateReady.TransitionSuccess(MsgGoodbye))
	assert.Equal(t, StateDefunct, StateFailed.TransitionSuccess(MsgGoodbye))
}

func TestTransitionFailureGoesToFailedExceptGoodbyeAndReset(t *testing.T) {
	assert.Equal(t, StateFailed, StateReady.TransitionFailure(MsgRun))
	assert.Equal(t, StateDefunct, StateReady.TransitionFailure(MsgGoodbye))
	assert.Equal(t, StateDefunct, StateFailed.TransitionFailure(MsgReset))
}

func TestCompleteStreamingLeavesOtherStatesUnchanged(t *testing.T) {
	assert.Equal(t, StateReady, StateReady.CompleteStreaming())
}
