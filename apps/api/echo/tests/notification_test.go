package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"

	echoapi "github.com/campushub/backend/apps/api/echo"
	"github.com/campushub/backend/core/announcement"
	"github.com/campushub/backend/core/course"
	"github.com/campushub/backend/core/notification"
	"github.com/campushub/backend/core/user"
)

// Exercises the whole fan-out path over HTTP: a faculty member publishes a
// course announcement and every live enrollee gets exactly one
// notification, invisible to anyone else.
func Test_notificationApi_fanOut(t *testing.T) {
	faculty := createUser(t, "fanfac", "fanfac@test.cd", "LePass123", user.RoleFaculty, true)
	stud1 := createUser(t, "fanstud1", "fanstud1@test.cd", "LePass123", user.RoleStudent, true)
	stud2 := createUser(t, "fanstud2", "fanstud2@test.cd", "LePass123", user.RoleStudent, true)
	quitter := createUser(t, "fanquit", "fanquit@test.cd", "LePass123", user.RoleStudent, true)
	outsider := createUser(t, "fanout", "fanout@test.cd", "LePass123", user.RoleStudent, true)

	crs := createCourse(t, "Distributed Systems", faculty.ID)
	enroll(t, crs, stud1)
	// a finished course still counts; only unenrolling opts a student out
	finished := enroll(t, crs, stud2)
	if _, err := crsSvc.UpdateEnrollmentStatus(ctxBg(), finished.ID, course.EnrollmentCompleted); err != nil {
		t.Fatalf("completing enrollment: %v", err)
	}
	quit := enroll(t, crs, quitter)
	if err := crsSvc.Unenroll(ctxBg(), quit.ID); err != nil {
		t.Fatalf("unenrolling: %v", err)
	}

	facultyToken := getToken(t, faculty)
	stud1Token := getToken(t, stud1)
	stud2Token := getToken(t, stud2)
	outsiderToken := getToken(t, outsider)

	// create the announcement
	body := marchallObj(t, announcement.NewAnnouncement{
		Title:    "Exam moved",
		Message:  "The final exam moves to Friday.",
		Type:     announcement.TypeUrgent,
		CourseID: crs.ID,
		Target:   announcement.TargetCourseStudents,
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/announcements", facultyToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("creating announcement: code = %v; body %s", rec.Code, rec.Body.String())
	}
	var ann announcement.Announcement
	if err := json.Unmarshal(rec.Body.Bytes(), &ann); err != nil {
		t.Fatalf("decoding announcement: %v", err)
	}

	// publish it; only the two live enrollments are notified
	req, rec = newAuthRequest(http.MethodPost, "/v1/announcements/"+ann.ID+"/publish", facultyToken, []byte("{}"))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("publishing announcement: code = %v; body %s", rec.Code, rec.Body.String())
	}
	var pub echoapi.PublishResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &pub); err != nil {
		t.Fatalf("decoding publish response: %v", err)
	}
	if pub.Notified != 2 {
		t.Errorf("Notified = %d, want 2", pub.Notified)
	}

	// each enrolled student sees exactly one notification
	var notifID string
	for _, token := range []string{stud1Token, stud2Token} {
		req, rec = newAuthRequest(http.MethodGet, "/v1/notifications", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("listing notifications: code = %v; body %s", rec.Code, rec.Body.String())
		}
		var page struct {
			Results []notification.Notification `json:"results"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
			t.Fatalf("decoding notifications: %v", err)
		}
		if len(page.Results) != 1 {
			t.Fatalf("len(Results) = %d, want 1", len(page.Results))
		}
		if page.Results[0].Kind != notification.KindAnnouncement {
			t.Errorf("Kind = %s, want %s", page.Results[0].Kind, notification.KindAnnouncement)
		}
		if token == stud1Token {
			notifID = page.Results[0].ID
		}
	}

	// the unenrolled student and the outsider see nothing
	for _, token := range []string{getToken(t, quitter), outsiderToken} {
		req, rec = newAuthRequest(http.MethodGet, "/v1/notifications", token)
		app.ServeHTTP(rec, req)
		var page struct {
			Results []notification.Notification `json:"results"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
			t.Fatalf("decoding notifications: %v", err)
		}
		if len(page.Results) != 0 {
			t.Errorf("len(Results) = %d, want 0", len(page.Results))
		}
	}

	// notifications are private to their recipient
	req, rec = newAuthRequest(http.MethodGet, "/v1/notifications/"+notifID, stud2Token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-recipient fetch: code = %v, want %v", rec.Code, http.StatusNotFound)
	}
	req, rec = newAuthRequest(http.MethodGet, "/v1/notifications/"+notifID, stud1Token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("recipient fetch: code = %v, want %v", rec.Code, http.StatusOK)
	}

	// mark-read only touches the caller's own unread notifications
	body = marchallObj(t, echoapi.MarkReadRequest{IDs: []string{notifID}})
	req, rec = newAuthRequest(http.MethodPost, "/v1/notifications/mark-read", stud2Token, body)
	app.ServeHTTP(rec, req)
	checkMarked(t, rec, 0)

	req, rec = newAuthRequest(http.MethodPost, "/v1/notifications/mark-read", stud1Token, body)
	app.ServeHTTP(rec, req)
	checkMarked(t, rec, 1)

	// already read; second pass is a no-op
	req, rec = newAuthRequest(http.MethodPost, "/v1/notifications/mark-read", stud1Token, body)
	app.ServeHTTP(rec, req)
	checkMarked(t, rec, 0)
}

// An explicitly empty id list deletes nothing and still succeeds.
func Test_notificationApi_destroyMultipleEmpty(t *testing.T) {
	admin := createUser(t, "notifadm", "notifadm@test.cd", "LePass123", user.RoleAdmin, true)

	body := marchallObj(t, echoapi.DestroyMultipleRequest{IDs: []string{}})
	req, rec := newAuthRequest(http.MethodDelete, "/v1/notifications", getToken(t, admin), body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("code = %v, want %v; body %s", rec.Code, http.StatusNoContent, rec.Body.String())
	}
}

// A failing notification store must never fail the publish itself.
func Test_notificationApi_fanOutFailureDoesNotFailPublish(t *testing.T) {
	faculty := createUser(t, "failfac", "failfac@test.cd", "LePass123", user.RoleFaculty, true)
	stud := createUser(t, "failstud", "failstud@test.cd", "LePass123", user.RoleStudent, true)

	crs := createCourse(t, "Operating Systems", faculty.ID)
	enroll(t, crs, stud)

	db.NotificationTable().FailCreate = func([]notification.Notification) error {
		return errors.New("store down")
	}
	defer func() { db.NotificationTable().FailCreate = nil }()

	facultyToken := getToken(t, faculty)

	body := marchallObj(t, announcement.NewAnnouncement{
		Title:    "Lab cancelled",
		Message:  "No lab this week.",
		Type:     announcement.TypeInfo,
		CourseID: crs.ID,
		Target:   announcement.TargetCourseStudents,
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/announcements", facultyToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("creating announcement: code = %v; body %s", rec.Code, rec.Body.String())
	}
	var ann announcement.Announcement
	if err := json.Unmarshal(rec.Body.Bytes(), &ann); err != nil {
		t.Fatalf("decoding announcement: %v", err)
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/announcements/"+ann.ID+"/publish", facultyToken, []byte("{}"))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("publishing announcement: code = %v; body %s", rec.Code, rec.Body.String())
	}
	var pub echoapi.PublishResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &pub); err != nil {
		t.Fatalf("decoding publish response: %v", err)
	}
	if pub.Notified != 0 {
		t.Errorf("Notified = %d, want 0", pub.Notified)
	}
	if !pub.Announcement.IsPublished() {
		t.Errorf("announcement not published")
	}
}

func checkMarked(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("mark-read: code = %v; body %s", rec.Code, rec.Body.String())
	}
	var resp echoapi.MarkReadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding mark-read response: %v", err)
	}
	if resp.Marked != want {
		t.Errorf("Marked = %d, want %d", resp.Marked, want)
	}
}

func ctxBg() context.Context { return context.Background() }
