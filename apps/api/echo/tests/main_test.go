package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	echoapi "github.com/campushub/backend/apps/api/echo"
	"github.com/campushub/backend/core"
	"github.com/campushub/backend/core/announcement"
	"github.com/campushub/backend/core/assessment"
	"github.com/campushub/backend/core/course"
	"github.com/campushub/backend/core/institution"
	"github.com/campushub/backend/core/notification"
	"github.com/campushub/backend/core/user"
	emailsvc "github.com/campushub/backend/services/email"
	inmemdb "github.com/campushub/backend/storage/database/inmem"
)

var (
	conf *core.Config
	db   *inmemdb.DB
	app  *echoapi.Server

	usrRepo   user.Repository
	crsRepo   course.Repository
	notifRepo notification.Repository

	crsSvc   *course.Service
	notifSvc *notification.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func TestMain(m *testing.M) {
	var err error

	conf = &core.Config{
		AppName:   "CampusHub",
		Env:       "TEST",
		TestMode:  true,
		SecretKey: "poof",
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: time.Hour,
		},
		Notify: core.NotifyConfig{Timeout: time.Second},
	}

	logger := nopLogger{}

	// set up DB & repos
	if db, err = inmemdb.Open(); err != nil {
		fmt.Printf("inmemdb.Open(): %v", err)
		os.Exit(1)
	}
	usrRepo = inmemdb.NewUserRepository(db)
	instRepo := inmemdb.NewInstitutionRepository(db)
	crsRepo = inmemdb.NewCourseRepository(db)
	annRepo := inmemdb.NewAnnouncementRepository(db)
	asmRepo := inmemdb.NewAssessmentRepository(db)
	notifRepo = inmemdb.NewNotificationRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	instSvc := institution.NewService(instRepo)
	crsSvc = course.NewService(crsRepo)
	notifSvc = notification.NewService(notifRepo, inmemdb.NewUserRepository(db), inmemdb.NewCourseRepository(db), logger)
	annSvc := announcement.NewService(annRepo, crsSvc, notifSvc, conf, logger)
	asmSvc := assessment.NewService(asmRepo, crsSvc, notifSvc, conf, logger)

	validate, translator := core.NewValidators()
	user.RegisterValidators(validate, translator)
	institution.RegisterValidators(validate, translator)
	course.RegisterValidators(validate, translator)
	announcement.RegisterValidators(validate, translator)
	assessment.RegisterValidators(validate, translator)

	// set up server
	app = echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			UserSvc:         usrSvc,
			InstitutionSvc:  instSvc,
			CourseSvc:       crsSvc,
			AnnouncementSvc: annSvc,
			AssessmentSvc:   asmSvc,
			NotificationSvc: notifSvc,
			Validate:        validate,
			Translator:      translator,
			DisableReqLogs:  true,
		},
	)

	os.Exit(m.Run())
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := app.GenerateUserToken(usr)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func createUser(t *testing.T, uname, email, pwd, role string, isActive bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Username:  uname,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser(): %v", err)
		}
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser(): %v", err)
	}
	return usr
}

func createCourse(t *testing.T, title, creatorID string) course.Course {
	t.Helper()
	crs, err := crsSvc.Create(context.Background(), course.NewCourse{Title: title}, creatorID)
	if err != nil {
		t.Fatalf("createCourse(): %v", err)
	}
	return crs
}

func enroll(t *testing.T, crs course.Course, usr user.User) course.Enrollment {
	t.Helper()
	enr, err := crsSvc.Enroll(context.Background(), crs.ID, course.NewEnrollment{UserID: usr.ID, Role: usr.Role})
	if err != nil {
		t.Fatalf("enroll(): %v", err)
	}
	return enr
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
