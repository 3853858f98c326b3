package types

import "time"

// Notification types describe why an entry landed in a user's inbox.
const (
	NotificationJudgeRequest      = "judge-request"
	NotificationJudgeAccept       = "judge-accept"
	NotificationJudgeReject       = "judge-reject"
	NotificationParticipantJoined = "participant-joined"
	NotificationAnnouncement      = "announcement"
	NotificationCompetitionEnded  = "competition-ended"
	NotificationHostApproved      = "host-approved"
	NotificationHostRejected      = "host-rejected"
)

// Notification is an inbox entry embedded in a user record. Judge-request
// notifications carry the competition id so the recipient can resolve the
// invitation they refer to; the entry is rewritten in place (not removed)
// when the invitation is resolved, keeping the inbox as history.
type Notification struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Content       string    `json:"content"`
	CompetitionID int       `json:"competition_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NotificationEvent is the payload published to the notifications channel
// whenever a notification is stored, for downstream consumers such as
// mailers or websocket pushers.
type NotificationEvent struct {
	UserID       int          `json:"user_id"`
	Notification Notification `json:"notification"`
}
