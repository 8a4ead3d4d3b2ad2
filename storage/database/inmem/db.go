package inmemdb

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/campushub/backend/core"
	"github.com/campushub/backend/core/announcement"
	"github.com/campushub/backend/core/assessment"
	"github.com/campushub/backend/core/course"
	"github.com/campushub/backend/core/institution"
	"github.com/campushub/backend/core/notification"
	"github.com/campushub/backend/core/user"
)

// DB is a mutex-guarded map store for tests and local hacking.
type (
	DB struct {
		user         *userTable
		institution  *institutionTable
		course       *courseTable
		material     *materialTable
		enrollment   *enrollmentTable
		announcement *announcementTable
		assessment   *assessmentTable
		submission   *submissionTable
		result       *resultTable
		notification *notificationTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}
	institutionTable struct {
		sync.RWMutex
		table map[string]*institution.Institution
	}
	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}
	materialTable struct {
		sync.RWMutex
		table map[string]*course.Material
	}
	enrollmentTable struct {
		sync.RWMutex
		table map[string]*course.Enrollment
	}
	announcementTable struct {
		sync.RWMutex
		table map[string]*announcement.Announcement
	}
	assessmentTable struct {
		sync.RWMutex
		table map[string]*assessment.Assessment
	}
	submissionTable struct {
		sync.RWMutex
		table map[string]*assessment.Submission
	}
	resultTable struct {
		sync.RWMutex
		table map[string]*assessment.Result
	}
	notificationTable struct {
		sync.RWMutex
		table map[string]*notification.Notification

		// FailCreate, when set, makes CreateNotifications reject a batch.
		FailCreate func(batch []notification.Notification) error
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		institution:  &institutionTable{table: make(map[string]*institution.Institution)},
		course:       &courseTable{table: make(map[string]*course.Course)},
		material:     &materialTable{table: make(map[string]*course.Material)},
		enrollment:   &enrollmentTable{table: make(map[string]*course.Enrollment)},
		announcement: &announcementTable{table: make(map[string]*announcement.Announcement)},
		assessment:   &assessmentTable{table: make(map[string]*assessment.Assessment)},
		submission:   &submissionTable{table: make(map[string]*assessment.Submission)},
		result:       &resultTable{table: make(map[string]*assessment.Result)},
		notification: &notificationTable{table: make(map[string]*notification.Notification)},
	}
	return db, nil
}

// NotificationTable exposes the notification table's failure hook to tests.
func (db *DB) NotificationTable() *notificationTable { return db.notification }

func newPK() string { return uuid.New().String() }

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// paginate slices idx-sorted results the way a LIMIT/OFFSET query would.
func paginate(n int, page *core.Pagination) (lo, hi int) {
	if page == nil {
		return 0, n
	}
	page.Clean()
	lo = page.Offset()
	if lo > n {
		lo = n
	}
	hi = lo + page.Limit
	if hi > n {
		hi = n
	}
	return lo, hi
}

