package models

import "time"

type SessionState string

const (
	StateAwaitingChoice              SessionState = "awaiting_choice"
	StateAwaitingFreeformChat        SessionState = "awaiting_freeform_chat"
	StateAwaitingDiagnosisImage      SessionState = "awaiting_diagnosis_image"
	StateAwaitingLocation            SessionState = "awaiting_location"
	StateAwaitingWaterSchedule       SessionState = "awaiting_water_schedule"
	StateAwaitingSunlightExposure    SessionState = "awaiting_sunlight_exposure"
	StateAwaitingSolutionsDecision   SessionState = "awaiting_solutions_decision"
	StateAwaitingIdentificationImage SessionState = "awaiting_identification_image"
)

// Guided reports whether messages in this state belong to the guided plant
// flow rather than the intent router.
func (s SessionState) Guided() bool {
	switch s {
	case "", StateAwaitingFreeformChat:
		return false
	default:
		return true
	}
}

// CollectedAttributes accumulates what the guided flow has asked for so far.
type CollectedAttributes struct {
	Location              string                 `json:"location,omitempty"`
	Water                 *int                   `json:"water,omitempty"`
	Sunlight              *int                   `json:"sunlight,omitempty"`
	PendingImageReference string                 `json:"pendingImageReference,omitempty"`
	LastDiagnosis         map[string]interface{} `json:"lastDiagnosis,omitempty"`
}

type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

type Turn struct {
	Role TurnRole `json:"role"`
	Text string   `json:"text"`
}

// Session is the per-conversation state. It is only mutated while the
// dispatcher holds the session's lock.
type Session struct {
	Key        string              `json:"key"`
	State      SessionState        `json:"state"`
	Attributes CollectedAttributes `json:"attributes"`
	History    []Turn              `json:"history,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

func NewSession(key string, now time.Time) *Session {
	return &Session{
		Key:       key,
		State:     StateAwaitingChoice,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Reset returns the session to the main menu and forgets the flow.
func (s *Session) Reset(now time.Time) {
	s.State = StateAwaitingChoice
	s.Attributes = CollectedAttributes{}
	s.History = nil
	s.UpdatedAt = now
}

func (s *Session) Expired(now time.Time, idle time.Duration) bool {
	return idle > 0 && now.Sub(s.UpdatedAt) > idle
}

// AppendTurn keeps at most limit turns, dropping the oldest.
func (s *Session) AppendTurn(t Turn, limit int) {
	s.History = append(s.History, t)
	if limit > 0 && len(s.History) > limit {
		s.History = append([]Turn(nil), s.History[len(s.History)-limit:]...)
	}
}

// Clone copies the session so stores never share mutable state with callers.
func (s *Session) Clone() *Session {
	cp := *s
	if s.Attributes.Water != nil {
		w := *s.Attributes.Water
		cp.Attributes.Water = &w
	}
	if s.Attributes.Sunlight != nil {
		v := *s.Attributes.Sunlight
		cp.Attributes.Sunlight = &v
	}
	if s.Attributes.LastDiagnosis != nil {
		cp.Attributes.LastDiagnosis = make(map[string]interface{}, len(s.Attributes.LastDiagnosis))
		for k, v := range s.Attributes.LastDiagnosis {
			cp.Attributes.LastDiagnosis[k] = v
		}
	}
	cp.History = append([]Turn(nil), s.History...)
	return &cp
}
