package calls

import "time"

// Attempt statuses. An attempt is written as StatusInitiated when
// orchestration starts and moved exactly once to its terminal status.
const (
	// StatusInitiated marks a freshly created attempt.
	StatusInitiated = "initiated"
	// StatusRealCallInitiated means the conversational agent is calling.
	StatusRealCallInitiated = "real_call_initiated"
	// StatusDirectCallGenerated means audio was synthesized but the relay
	// call has not been placed yet.
	StatusDirectCallGenerated = "direct_call_generated"
	// StatusCallInitiated means the relay accepted the bridged call.
	StatusCallInitiated = "call_initiated"
	// StatusAudioGenerated means audio exists but the relay declined the
	// call: a soft success.
	StatusAudioGenerated = "audio_generated"
	// StatusFailed marks an exhausted attempt.
	StatusFailed = "failed"
	// StatusEnded marks a conversation terminated on request.
	StatusEnded = "ended"
)

// AgentDirect is the sentinel agent id recorded for attempts that never
// involve a hosted agent (TTS-relay and physical paths).
const AgentDirect = "direct"

// Attempt is the durable record for one orchestration invocation, keyed by
// its unique conversation id.
type Attempt struct {
	ConversationID string
	AgentID        string
	PhoneNumber    string
	PatientID      *string
	AppointmentID  *string
	Status         string
	Metadata       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ErrorRecord is an append-only audit row for a failed call path. It is
// never updated or joined back into attempts.
type ErrorRecord struct {
	ID          string
	PhoneNumber string
	PatientID   *string
	Details     map[string]any
	CreatedAt   time.Time
}
