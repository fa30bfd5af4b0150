package tests

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	. "github.com/darasa-lms/darasa/apps/api/echo"
	"github.com/darasa-lms/darasa/core/user"
	"github.com/darasa-lms/darasa/services/email"
	"github.com/darasa-lms/darasa/tests"
)

const testPassword = "Tukufu#2024"

func Test_userApi_register(t *testing.T) {
	resetDB(t)

	t.Run("student sign up", func(t *testing.T) {
		emailsvc.SentMessages = nil

		body := marchallObj(t, map[string]interface{}{
			"name":             "Jina Moja",
			"username":         "jinamoja",
			"email":            "jina@test.cd",
			"password":         testPassword,
			"password_confirm": testPassword,
		})
		req, rec := newRequest(http.MethodPost, "/v1/users/register", body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %d; want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var resp RegisterResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if resp.Token == "" {
			t.Error("no token issued")
		}
		if resp.User.Username != "jinamoja" || !resp.User.IsStudent() {
			t.Errorf("user = %+v; want a student named jinamoja", resp.User)
		}
		if !resp.User.Active() {
			t.Error("new account is not active")
		}
		if len(emailsvc.SentMessages) != 1 {
			t.Errorf("got %d welcome emails; want 1", len(emailsvc.SentMessages))
		}
	})

	t.Run("instructor sign up", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{
			"name":             "Mwalimu Mkuu",
			"username":         "mwalimu",
			"email":            "mwalimu@test.cd",
			"password":         testPassword,
			"password_confirm": testPassword,
			"roles":            []string{user.RoleInstructor},
		})
		req, rec := newRequest(http.MethodPost, "/v1/users/register", body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %d; want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var resp RegisterResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if !resp.User.IsInstructor() {
			t.Errorf("roles = %v; want instructor", resp.User.Roles)
		}
	})

	t.Run("admin role cannot be self-assigned", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{
			"name":             "Sneaky",
			"username":         "sneaky1",
			"email":            "sneaky@test.cd",
			"password":         testPassword,
			"password_confirm": testPassword,
			"roles":            []string{user.RoleAdmin},
		})
		req, rec := newRequest(http.MethodPost, "/v1/users/register", body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("code = %d; want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{
			"name":             "Jina Mbili",
			"username":         "jinamoja",
			"email":            "jina2@test.cd",
			"password":         testPassword,
			"password_confirm": testPassword,
		})
		req, rec := newRequest(http.MethodPost, "/v1/users/register", body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("code = %d; want %d", rec.Code, http.StatusBadRequest)
		}
		var fldErrs map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &fldErrs); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if !strings.Contains(fldErrs["username"], "already exists") {
			t.Errorf("body = %v; want a username uniqueness error", fldErrs)
		}
	})

	t.Run("weak password", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{
			"name":             "Weak",
			"username":         "weakpwd",
			"email":            "weak@test.cd",
			"password":         "short",
			"password_confirm": "short",
		})
		req, rec := newRequest(http.MethodPost, "/v1/users/register", body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("code = %d; want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func Test_userApi_login(t *testing.T) {
	resetDB(t)

	testutil.CreateUser(t, usrRepo, "Student", "student1", "student1@test.cd", testPassword, user.StudentRoles, true)
	testutil.CreateUser(t, usrRepo, "Gone", "deactivated", "gone@test.cd", testPassword, user.StudentRoles, false)

	authFailed := marchallObj(t, httpErr{Error: "authentication failed"})

	tests := []httpTest{
		{
			name: "username", body: marchallObj(t, LoginRequest{Username: "student1", Password: testPassword}),
			wantCode: http.StatusOK,
		},
		{
			name: "email", body: marchallObj(t, LoginRequest{Username: "student1@test.cd", Password: testPassword}),
			wantCode: http.StatusOK,
		},
		{
			name: "username is case-insensitive", body: marchallObj(t, LoginRequest{Username: "STUDENT1", Password: testPassword}),
			wantCode: http.StatusOK,
		},
		{
			name: "wrong password", body: marchallObj(t, LoginRequest{Username: "student1", Password: "Wrong#2024"}),
			wantCode: http.StatusBadRequest, wantData: authFailed,
		},
		{
			name: "unknown user", body: marchallObj(t, LoginRequest{Username: "nobody1", Password: testPassword}),
			wantCode: http.StatusBadRequest, wantData: authFailed,
		},
		{
			name: "deactivated account", body: marchallObj(t, LoginRequest{Username: "deactivated", Password: testPassword}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d; want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshalling response: %v", err)
				}
				if resp.Token == "" {
					t.Error("no token issued")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userQuery(t *testing.T) {
	resetDB(t)

	student := testutil.CreateUser(t, usrRepo, "Student", "student1", "student1@test.cd", "", user.StudentRoles, true)
	instructor := testutil.CreateUser(t, usrRepo, "Teacher", "teacher1", "teacher1@test.cd", "", user.InstructorRoles, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin1@test.cd", "", user.AdminRoles, true)
	adminToken := getToken(t, admin)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Get all", path: "/v1/users", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, student, instructor, admin),
		},
		{
			name: "search", path: "/v1/users?search=teach", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, instructor),
		},
		{
			name: "filter by role", path: "/v1/users?role=" + user.RoleStudent, token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, student),
		},
		{
			name: "roles catalog", path: "/v1/users/roles", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userDetail(t *testing.T) {
	resetDB(t)

	student := testutil.CreateUser(t, usrRepo, "Student", "student1", "student1@test.cd", "", user.StudentRoles, true)
	other := testutil.CreateUser(t, usrRepo, "Other", "student2", "student2@test.cd", "", user.StudentRoles, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin1@test.cd", "", user.AdminRoles, true)

	t.Run("own profile", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+student.ID, getToken(t, student))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, student)}, rec)
	})

	t.Run("someone else's profile is hidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+other.ID, getToken(t, student))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		}, rec)
	})

	t.Run("admin sees anyone", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+other.ID, getToken(t, admin))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, other)}, rec)
	})

	t.Run("self update", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"name": "Student Renamed"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+student.ID, getToken(t, student), body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d; want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var got user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if got.Name != "Student Renamed" {
			t.Errorf("Name = %q; want Student Renamed", got.Name)
		}
	})

	t.Run("self role escalation is refused", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"roles": user.AdminRoles})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+student.ID, getToken(t, student), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("admin cannot delete themselves", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+admin.ID, getToken(t, admin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %d; want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("admin deletes a user", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+other.ID, getToken(t, admin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %d; want %d: %s", rec.Code, http.StatusNoContent, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/users/"+other.ID, getToken(t, admin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %d; want %d after delete", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_userApi_userCreate(t *testing.T) {
	resetDB(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin1@test.cd", "", []string{user.RoleAdmin}, true)

	t.Run("admin creates an instructor", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{
			"name":             "Mwalimu",
			"username":         "mwalimu",
			"email":            "mwalimu@test.cd",
			"password":         testPassword,
			"password_confirm": testPassword,
			"roles":            []string{user.RoleInstructor},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/users", getToken(t, admin), body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %d; want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
	})

	t.Run("cannot grant a role above their own", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{
			"name":             "Boss",
			"username":         "bigboss",
			"email":            "boss@test.cd",
			"password":         testPassword,
			"password_confirm": testPassword,
			"roles":            []string{user.RoleAdminOwner},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/users", getToken(t, admin), body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("code = %d; want %d", rec.Code, http.StatusBadRequest)
		}
		var fldErrs map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &fldErrs); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if fldErrs["roles"] == "" {
			t.Errorf("body = %v; want a roles error", fldErrs)
		}
	})
}

func Test_userApi_passwordReset(t *testing.T) {
	resetDB(t)

	usr := testutil.CreateUser(t, usrRepo, "Student", "student1", "student1@test.cd", testPassword, user.StudentRoles, true)

	t.Run("known email sends instructions", func(t *testing.T) {
		emailsvc.SentMessages = nil

		body := marchallObj(t, PasswordResetRequest{Email: usr.Email})
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d; want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		if len(emailsvc.SentMessages) != 1 {
			t.Fatalf("got %d reset emails; want 1", len(emailsvc.SentMessages))
		}
		if to := emailsvc.SentMessages[0].To[0].Address; to != usr.Email {
			t.Errorf("email sent to %q; want %q", to, usr.Email)
		}
	})

	t.Run("unknown email does not leak account existence", func(t *testing.T) {
		emailsvc.SentMessages = nil

		body := marchallObj(t, PasswordResetRequest{Email: "nobody@test.cd"})
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d; want %d", rec.Code, http.StatusOK)
		}
		if len(emailsvc.SentMessages) != 0 {
			t.Errorf("got %d emails; want 0", len(emailsvc.SentMessages))
		}
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	resetDB(t)

	usr := testutil.CreateUser(t, usrRepo, "Student", "student1", "student1@test.cd", "", user.StudentRoles, true)

	req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", getToken(t, usr))
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d; want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if resp.Token == "" {
		t.Error("no token issued")
	}
}
