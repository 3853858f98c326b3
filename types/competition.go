package types

import "time"

// Judge invitation states. Resolved records are retained for history
// rather than removed, so a candidate is never silently re-invitable.
const (
	JudgeStatusPending  = "pending"
	JudgeStatusAccepted = "accepted"
	JudgeStatusRejected = "rejected"
)

// Question set kinds attached to announcements.
const (
	QuestionSetSubmission = "submission"
	QuestionSetShort      = "short"
	QuestionSetMCQ        = "mcq"
)

// Competition represents a contest hosted by a user. The embedded
// collections (participants, judges, announcements, question sets) are
// stored as JSONB documents alongside the row and persisted as a whole.
type Competition struct {
	// ID is the unique identifier of the competition.
	ID int `json:"id" db:"id"`

	// Title names the competition.
	Title string `json:"title" db:"title"`

	// Genre is a free-text category used by search.
	Genre string `json:"genre" db:"genre"`

	// About is the free-text description.
	About string `json:"about" db:"about"`

	// Finished marks a concluded competition.
	Finished bool `json:"finished" db:"finished"`

	// HostID references the hosting user. HostUsername is a snapshot of
	// the host's username at creation time.
	HostID       int    `json:"host_id" db:"host_id"`
	HostUsername string `json:"host_username" db:"host_username"`

	// Participants holds the ids of users who joined.
	Participants []int `json:"participants" db:"participants"`

	// Judges holds the invitation records for the competition.
	Judges []Judge `json:"judges" db:"judges"`

	// Announcements is the competition feed, addressed by stable ids.
	Announcements []Announcement `json:"announcements" db:"announcements"`

	// QuestionSets holds quiz definitions posted at competition level.
	QuestionSets []QuestionSet `json:"question_sets" db:"question_sets"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Judge is an invitation record embedded in a competition. The username is
// snapshotted at invitation time.
type Judge struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

// Announcement is a timestamped message in a competition feed. Each entry
// carries an immutable id assigned at creation; ordering comes from the
// creation timestamp, never from array position.
type Announcement struct {
	ID             string       `json:"id"`
	Content        string       `json:"content"`
	AuthorID       int          `json:"author_id"`
	AuthorUsername string       `json:"author_username"`
	CreatedAt      time.Time    `json:"created_at"`
	Comments       []Comment    `json:"comments"`
	QuestionSet    *QuestionSet `json:"question_set,omitempty"`
	Attachment     *Attachment  `json:"attachment,omitempty"`
}

// Comment is a reply embedded in an announcement.
type Comment struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	AuthorID       int       `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	CreatedAt      time.Time `json:"created_at"`
}

// QuestionSet is an embedded quiz definition.
type QuestionSet struct {
	Title     string     `json:"title"`
	Deadline  time.Time  `json:"deadline"`
	Type      string     `json:"type"`
	Questions []Question `json:"questions"`
}

// Question is a single entry in a question set. Options and Answer are
// only meaningful for mcq sets.
type Question struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options,omitempty"`
	Answer  string   `json:"answer,omitempty"`
}

// Attachment records a file stored in object storage for an announcement.
type Attachment struct {
	ID          string `json:"id"`
	ObjectKey   string `json:"object_key"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}
