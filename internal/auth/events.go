package auth

// Events receives security relevant outcomes of the auth flows.
type Events interface {
	LoginFailed()
	RequestRejected(reason string)
	RecoveryRequested(outcome string)
}

// Reasons passed to Events.RequestRejected.
const (
	RejectMissingToken = "missing_token"
	RejectInvalidToken = "invalid_token"
)

// Outcomes passed to Events.RecoveryRequested.
const (
	RecoveryIssued    = "issued"
	RecoveryUnknown   = "unknown_email"
	RecoveryThrottled = "throttled"
	RecoveryFailed    = "failed"
)

type nopEvents struct{}

func (nopEvents) LoginFailed()                     {}
func (nopEvents) RequestRejected(reason string)    {}
func (nopEvents) RecoveryRequested(outcome string) {}
