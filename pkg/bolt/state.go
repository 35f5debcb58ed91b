package bolt

// ConnectionState is a node in the per-connection Bolt protocol state
// machine. Every transition is a pure function of the current state and
// the message kind being processed.
type ConnectionState int

const (
	StateNegotiation ConnectionState = iota
	StateAuthentication
	StateReady
	StateStreaming
	StateTxReady
	StateTxStreaming
	StateFailed
	StateDefunct
)

func (s ConnectionState) String() string {
	switch s {
	case StateNegotiation:
		return "negotiation"
	case StateAuthentication:
		return "authentication"
	case StateReady:
		return "ready"
	case StateStreaming:
		return "streaming"
	case StateTxReady:
		return "tx_ready"
	case StateTxStreaming:
		return "tx_streaming"
	case StateFailed:
		return "failed"
	case StateDefunct:
		return "defunct"
	default:
		return "unknown"
	}
}

// Accepts reports whether a message of kind may be processed while in
// state s. Defunct accepts nothing; every other state has a fixed set of
// legal next messages.
func (s ConnectionState) Accepts(kind ClientMessageKind) bool {
	switch s {
	case StateNegotiation:
		return kind == MsgHello
	case StateAuthentication:
		return kind == MsgLogon || kind == MsgGoodbye
	case StateReady:
		return kind == MsgRun || kind == MsgBegin || kind == MsgReset || kind == MsgGoodbye || kind == MsgLogoff
	case StateStreaming:
		return kind == MsgPull || kind == MsgDiscard || kind == MsgReset || kind == MsgGoodbye
	case StateTxReady:
		return kind == MsgRun || kind == MsgCommit || kind == MsgRollback || kind == MsgReset || kind == MsgGoodbye
	case StateTxStreaming:
		return kind == MsgPull || kind == MsgDiscard || kind == MsgReset || kind == MsgGoodbye
	case StateFailed:
		return kind == MsgReset || kind == MsgGoodbye
	case StateDefunct:
		return false
	default:
		return false
	}
}

// TransitionSuccess returns the next state after kind is handled
// successfully from s. RESET always returns to Ready (even resetting a
// Failed connection); GOODBYE always moves to Defunct.
func (s ConnectionState) TransitionSuccess(kind ClientMessageKind) ConnectionState {
	if kind == MsgReset {
		return StateReady
	}
	if kind == MsgGoodbye {
		return StateDefunct
	}

	switch {
	case s == StateNegotiation && kind == MsgHello:
		return StateAuthentication
	case s == StateAuthentication && kind == MsgLogon:
		return StateReady
	case s == StateReady && kind == MsgRun:
		return StateStreaming
	case s == StateStreaming && (kind == MsgPull || kind == MsgDiscard):
		return StateStreaming
	case s == StateReady && kind == MsgBegin:
		return StateTxReady
	case s == StateTxReady && kind == MsgRun:
		return StateTxStreaming
	case s == StateTxStreaming && (kind == MsgPull || kind == MsgDiscard):
		return StateTxStreaming
	case s == StateTxReady && (kind == MsgCommit || kind == MsgRollback):
		return StateReady
	case s == StateReady && kind == MsgLogoff:
		return StateAuthentication
	default:
		return s
	}
}

// TransitionFailure returns the next state after kind fails to process
// from s. A failed GOODBYE or RESET is fatal and moves to Defunct;
// anything else moves to Failed so the client can RESET to recover.
func (s ConnectionState) TransitionFailure(kind ClientMessageKind) ConnectionState {
	switch kind {
	case MsgGoodbye, MsgReset:
		return StateDefunct
	default:
		return StateFailed
	}
}

// CompleteStreaming returns the state reached once a streaming phase has
// exhausted its pending result (has_more is false).
func (s ConnectionState) CompleteStreaming() ConnectionState {
	switch s {
	case StateStreaming:
		return StateReady
	case StateTxStreaming:
		return StateTxReady
	default:
		return s
	}
}
