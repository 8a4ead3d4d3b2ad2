package notification

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// notification kinds
const (
	KindAnnouncement = "announcement"
	KindAssessment   = "assessment"
	KindSubmission   = "submission"
	KindResult       = "result"
)

var AllKinds = []string{KindAnnouncement, KindAssessment, KindSubmission, KindResult}

type (
	// Audience designates who an Event should reach. It is a closed set;
	// ResolveRecipients rejects anything outside this file.
	Audience interface {
		audience()
	}

	// CourseStudents targets users with a live enrollment in CourseID.
	CourseStudents struct {
		CourseID string
	}

	// AllUsers targets every live user.
	AllUsers struct{}

	// FacultyOnly targets live users with the faculty role.
	FacultyOnly struct{}

	// ExplicitUsers targets exactly the given user IDs.
	ExplicitUsers struct {
		UserIDs []string
	}

	// CreatorOnly targets the event's creator. It is also the fallback
	// when an Event carries no Audience.
	CreatorOnly struct{}

	// Event is a domain occurrence to fan out as per-recipient notifications.
	Event struct {
		Kind      string
		Title     string
		CreatorID string
		Audience  Audience
		ExpiresAt null.Time
	}

	// Notification is a single recipient's copy of an event. One row per
	// recipient; read state never leaks across recipients.
	Notification struct {
		ID          string    `json:"id"`
		Message     string    `json:"message"`
		Kind        string    `json:"kind"`
		CreatorID   string    `json:"creatorId"`
		RecipientID string    `json:"recipientId"`
		IsRead      bool      `json:"isRead"`
		ReadAt      null.Time `json:"readAt,omitempty"`
		ExpiresAt   null.Time `json:"expiresAt,omitempty"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
		DeletedAt   null.Time `json:"-"`
	}

	// FanOutResult reports what a Broadcast attempted and how it went.
	// Callers may ignore it; a failed batch never bubbles up as an error.
	FanOutResult struct {
		Attempted   int
		Created     int
		BatchErrors []error
	}

	QueryFilter struct {
		Search string `json:"search" query:"search"` // matches Message
		Kind   string `json:"kind" query:"kind"`
		IsRead *bool  `json:"isRead" query:"is_read"`
	}
)

func (CourseStudents) audience() {}
func (AllUsers) audience()       {}
func (FacultyOnly) audience()    {}
func (ExplicitUsers) audience()  {}
func (CreatorOnly) audience()    {}

func (n *Notification) IsDeleted() bool {
	return n.DeletedAt.Valid
}
