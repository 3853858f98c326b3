package types

import "time"

// User represents an account in the system.
// It contains identity, social graph, and audit metadata. The embedded
// collections (follows, reviews, notifications, competitions) are stored
// as JSONB documents alongside the row.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Fullname is the user's full display name.
	Fullname string `json:"fullname" db:"fullname"`

	// Username is the unique handle chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's email address, unique across accounts.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// DOB is the user's date of birth.
	DOB time.Time `json:"dob" db:"dob"`

	// JoiningDate is when the account was registered.
	JoiningDate time.Time `json:"joining_date" db:"joining_date"`

	// HostAuth marks whether the user may host competitions.
	HostAuth bool `json:"host_auth" db:"host_auth"`

	// IsAdmin marks administrative accounts kept in the users table.
	IsAdmin bool `json:"is_admin" db:"is_admin"`

	// SecurityQuestion and SecurityAnswer back the password-reset flow.
	// Neither is exposed in API responses.
	SecurityQuestion string `json:"-" db:"security_question"`
	SecurityAnswer   string `json:"-" db:"security_answer"`

	// Follows and Followers hold user ids for each side of the social graph.
	Follows   []int `json:"follows" db:"follows"`
	Followers []int `json:"followers" db:"followers"`

	// Competitions holds the ids of competitions the user joined or hosts.
	Competitions []int `json:"competitions" db:"competitions"`

	// AvgRating is the arithmetic mean of all review ratings.
	AvgRating float64 `json:"avg_rating" db:"avg_rating"`

	// Reviews holds host reviews left by other users.
	Reviews []Review `json:"reviews" db:"reviews"`

	// Notifications is the user's notification inbox, newest last.
	Notifications []Notification `json:"notifications" db:"notifications"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Review is a rating left on a host by another user. The reviewer's
// username is snapshotted so the review survives later renames.
type Review struct {
	ReviewerID       int    `json:"reviewer_id"`
	ReviewerUsername string `json:"reviewer_username"`
	Content          string `json:"content"`
	Rating           int    `json:"rating"`
}

// Admin is the parallel administrator record. Admins authenticate through
// the same login path as users by secondary lookup.
type Admin struct {
	ID           int       `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	HostAuth     bool      `json:"host_auth" db:"host_auth"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
