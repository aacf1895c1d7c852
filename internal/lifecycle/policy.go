package lifecycle

import "time"

// Decision classifies an object's deliverability at a point in time.
type Decision int

const (
	// Deliverable means the object may be decrypted and served now.
	Deliverable Decision = iota
	// Expired means the absolute deadline has passed.
	Expired
	// PasswordRequired means the supplied password did not match.
	PasswordRequired
	// QuotaExhausted means the download budget is used up.
	QuotaExhausted
)

func (d Decision) String() string {
	switch d {
	case Deliverable:
		return "deliverable"
	case Expired:
		return "expired"
	case PasswordRequired:
		return "password_required"
	case QuotaExhausted:
		return "quota_exhausted"
	default:
		return "unknown"
	}
}

// Evaluation carries a Decision plus the remaining budget for a
// deliverable object.
type Evaluation struct {
	Decision Decision
	// RemainingDownloads is -1 when no quota is set. Only meaningful for
	// Deliverable.
	RemainingDownloads int
	// RemainingSeconds until the absolute deadline. Only meaningful for
	// Deliverable.
	RemainingSeconds int64
}

// Evaluate is the single source of truth for the three expiry signals.
// Precedence is fixed: expiry first (so an expired object never reveals
// that it was password protected), then the password gate, then quota.
// The caller handles "object not found" before calling Evaluate.
//
// Every consumer of these checks (download, info, sweeper) must go
// through this function.
func Evaluate(obj *Object, now time.Time, password string) Evaluation {
	if !obj.ExpireAt.After(now) {
		return Evaluation{Decision: Expired}
	}

	if obj.Protected() && password != obj.Password {
		return Evaluation{Decision: PasswordRequired}
	}

	if obj.MaxDownloads > 0 && obj.Downloads >= obj.MaxDownloads {
		return Evaluation{Decision: QuotaExhausted}
	}

	remaining := -1
	if obj.MaxDownloads > 0 {
		remaining = obj.MaxDownloads - obj.Downloads
	}

	return Evaluation{
		Decision:           Deliverable,
		RemainingDownloads: remaining,
		RemainingSeconds:   int64(obj.ExpireAt.Sub(now).Seconds()),
	}
}
