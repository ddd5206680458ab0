package chat

// Mode says whether a conversation is talking to the assistant service
// or running locally without one.
type Mode string

const (
	// ModeLive means sends go to the assistant service.
	ModeLive Mode = "live"

	// ModeDegraded means no service client is available; sends produce
	// a local reply naming the reason until settings are fixed.
	ModeDegraded Mode = "degraded"
)

// State is the connection state of a conversation. The mode tag is
// explicit so send and render logic branch on it instead of probing
// for magic assistant IDs.
type State struct {
	Mode        Mode
	AssistantID string
	SessionID   string

	// Reason says why the conversation is degraded. Empty when live.
	Reason string
}

// LiveState returns a State connected to the given assistant.
func LiveState(assistantID, sessionID string) State {
	return State{
		Mode:        ModeLive,
		AssistantID: assistantID,
		SessionID:   sessionID,
	}
}

// DegradedState returns a State that answers locally, keeping the
// reason for display.
func DegradedState(reason string) State {
	return State{
		Mode:   ModeDegraded,
		Reason: reason,
	}
}

// Live reports whether sends reach the assistant service.
func (s State) Live() bool {
	return s.Mode == ModeLive
}
