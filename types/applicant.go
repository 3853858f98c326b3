package types

import "time"

// Applicant statuses. Decided applications are retained for audit rather
// than deleted.
const (
	ApplicantPending  = "pending"
	ApplicantApproved = "approved"
	ApplicantRejected = "rejected"
)

// Applicant is a pending request by a user to be granted host privileges.
// Username and email are snapshots taken when the application was filed.
type Applicant struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	Reason    string    `json:"reason" db:"reason"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
