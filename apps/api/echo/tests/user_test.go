package tests

import (
	"net/http"
	"testing"

	echoapi "github.com/campushub/backend/apps/api/echo"
	"github.com/campushub/backend/core/user"
)

func Test_userApi_login(t *testing.T) {
	usr := createUser(t, "awe", "awe@test.cd", "LePass123", user.RoleStudent, true)
	naughty := createUser(t, "ndog", "ndog@test.cd", "LePass123", user.RoleStudent, false)

	tests := []httpTest{
		{
			name: "empty credentials", body: marchallObj(t, echoapi.LoginRequest{}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown user", body: marchallObj(t, echoapi.LoginRequest{Username: "lol", Password: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: marchallObj(t, echoapi.LoginRequest{Username: usr.Username, Password: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: marchallObj(t, echoapi.LoginRequest{Username: naughty.Username, Password: "LePass123"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "login with username", body: marchallObj(t, echoapi.LoginRequest{Username: usr.Username, Password: "LePass123"}),
			wantCode: http.StatusOK,
		},
		{
			name: "login with email", body: marchallObj(t, echoapi.LoginRequest{Username: usr.Email, Password: "LePass123"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
		})
	}
}

func Test_userApi_rbac(t *testing.T) {
	student := createUser(t, "rbacstud", "rbacstud@test.cd", "LePass123", user.RoleStudent, true)
	faculty := createUser(t, "rbacfac", "rbacfac@test.cd", "LePass123", user.RoleFaculty, true)
	admin := createUser(t, "rbacadmin", "rbacadmin@test.cd", "LePass123", user.RoleAdmin, true)

	studentToken := getToken(t, student)
	facultyToken := getToken(t, faculty)
	adminToken := getToken(t, admin)

	tests := []httpTest{
		{
			name: "anon cannot list users", method: http.MethodGet, path: "/v1/users",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "student cannot list users", method: http.MethodGet, path: "/v1/users", token: studentToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "faculty cannot list users", method: http.MethodGet, path: "/v1/users", token: facultyToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "admin can list users", method: http.MethodGet, path: "/v1/users", token: adminToken,
			wantCode: http.StatusOK,
		},
		{
			name: "student can fetch own profile", method: http.MethodGet, path: "/v1/users/" + student.ID, token: studentToken,
			wantCode: http.StatusOK,
		},
		{
			name: "student cannot fetch another profile", method: http.MethodGet, path: "/v1/users/" + faculty.ID, token: studentToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "admin can fetch any profile", method: http.MethodGet, path: "/v1/users/" + student.ID, token: adminToken,
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
		})
	}
}

func Test_userApi_register(t *testing.T) {
	admin := createUser(t, "regadmin", "regadmin@test.cd", "LePass123", user.RoleAdmin, true)
	faculty := createUser(t, "regfac", "regfac@test.cd", "LePass123", user.RoleFaculty, true)

	adminToken := getToken(t, admin)
	facultyToken := getToken(t, faculty)

	body := func(uname, email, role string) []byte {
		return marchallObj(t, user.NewUser{
			Username:        uname,
			Email:           email,
			Password:        "An0therPass!",
			PasswordConfirm: "An0therPass!",
			Role:            role,
		})
	}

	tests := []httpTest{
		{
			name: "faculty cannot register users", token: facultyToken,
			body:     body("newbie", "newbie@test.cd", user.RoleStudent),
			wantCode: http.StatusForbidden,
		},
		{
			name: "admin registers a student", token: adminToken,
			body:     body("newbie", "newbie@test.cd", user.RoleStudent),
			wantCode: http.StatusCreated,
		},
		{
			name: "duplicate username rejected", token: adminToken,
			body:     body("newbie", "other@test.cd", user.RoleStudent),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}
