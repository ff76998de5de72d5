package enums

// FailureReason is the machine-readable reason attached to a rejected operation.
type FailureReason string

const (
	ReasonInsufficientCooldown FailureReason = "insufficient-cooldown"
	ReasonNoCredits            FailureReason = "no-credits"
	ReasonVerificationFailed   FailureReason = "verification-failed"
	ReasonAlreadySettled       FailureReason = "already-settled"
	ReasonInternalError        FailureReason = "internal-error"
)

// String implements fmt.Stringer.
func (r FailureReason) String() string {
	return string(r)
}
