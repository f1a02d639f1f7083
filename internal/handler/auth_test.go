package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/DukeRupert/loadshare/internal/form"
	"github.com/DukeRupert/loadshare/internal/session"
)

func newTestAuthHandler(t *testing.T, users *mockUserService) *AuthHandler {
	t.Helper()
	return NewAuthHandler(users, form.NewGuard(time.Minute), testRenderer(t), testLogger(), AuthConfig{
		SessionTTL:   24 * time.Hour,
		SuccessDelay: 1500 * time.Millisecond,
	})
}

func ownerRegistration() url.Values {
	return url.Values{
		"role":            {"load_owner"},
		"name":            {"Olivia Owner"},
		"email":           {"Owner@Example.com"},
		"phone":           {"+1-555-0100"},
		"location":        {"Seattle, WA"},
		"password":        {"hunter2hunter2"},
		"confirmPassword": {"hunter2hunter2"},
		form.KeyField:     {form.NewKey()},
	}
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, formBody(values))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

// =============================================================================
// Registration
// =============================================================================

func TestShowRegister_PreselectsRoleFromQuery(t *testing.T) {
	h := newTestAuthHandler(t, &mockUserService{})

	rec := httptest.NewRecorder()
	h.ShowRegister(rec, httptest.NewRequest(http.MethodGet, "/register?role=driver", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `name="role" value="driver"`)
	assert.Contains(t, body, `name="licenseInfo"`)
	assert.Contains(t, body, `name="serviceArea"`)
	assert.NotContains(t, body, `name="location"`)
	assert.Contains(t, body, `name="`+form.KeyField+`"`)
}

func TestShowRegister_ClientFormHooks(t *testing.T) {
	h := newTestAuthHandler(t, &mockUserService{})

	rec := httptest.NewRecorder()
	h.ShowRegister(rec, httptest.NewRequest(http.MethodGet, "/register", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<script src="/static/js/forms.js" defer></script>`)
	assert.Contains(t, body, `data-busy-label="Creating Account..."`)
	assert.Contains(t, body, "Create Account")
	assert.Contains(t, body, `data-clears="field-email-error"`)
	assert.Contains(t, body, `data-clears="field-location-error"`)
}

func TestShowRegister_UnknownRoleFallsBackToLoadOwner(t *testing.T) {
	h := newTestAuthHandler(t, &mockUserService{})

	rec := httptest.NewRecorder()
	h.ShowRegister(rec, httptest.NewRequest(http.MethodGet, "/register?role=dispatcher", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="role" value="load_owner"`)
	assert.Contains(t, rec.Body.String(), `name="location"`)
}

func TestShowRegister_SignedInUserGoesToDashboard(t *testing.T) {
	h := newTestAuthHandler(t, &mockUserService{})

	rec := httptest.NewRecorder()
	req := withUser(httptest.NewRequest(http.MethodGet, "/register", nil), testDriver())
	h.ShowRegister(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, PathDriverDashboard, rec.Header().Get("Location"))
}

func TestRegisterFields_SwitchKeepsOtherRoleValuesHidden(t *testing.T) {
	h := newTestAuthHandler(t, &mockUserService{})

	q := url.Values{
		"role":     {"load_owner"},
		"switch":   {"driver"},
		"location": {"Tacoma, WA"},
	}
	rec := httptest.NewRecorder()
	h.RegisterFields(rec, httptest.NewRequest(http.MethodGet, "/register/fields?"+q.Encode(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="role-fields"`)
	assert.Contains(t, body, `name="role" value="driver"`)
	assert.Contains(t, body, `name="vehicleType"`)
	assert.Contains(t, body, `<input type="hidden" name="location" value="Tacoma, WA">`)
	assert.NotContains(t, body, "<html")
}

func TestRegister_Success(t *testing.T) {
	var got domain.RegisterParams
	users := &mockUserService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.LoginResult, error) {
			got = params
			user := testOwner()
			return &domain.LoginResult{User: user, Token: "raw-session-token"}, nil
		},
	}
	h := newTestAuthHandler(t, users)

	rec := httptest.NewRecorder()
	h.Register(rec, postForm("/register", ownerRegistration()))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "owner@example.com", got.Email)
	assert.Equal(t, domain.LoadOwnerProfile{Location: "Seattle, WA"}, got.Profile)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, "raw-session-token", cookie.Value)
	assert.True(t, cookie.HttpOnly)

	body := rec.Body.String()
	assert.Contains(t, body, "Account created!")
	assert.Contains(t, body, `content="2;url=/dashboard/load-owner"`)
	assert.Contains(t, body, `hx-get="/dashboard/load-owner"`)
	assert.Contains(t, body, "delay:1500ms")
}

func TestRegister_DriverProfile(t *testing.T) {
	var got domain.RegisterParams
	users := &mockUserService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.LoginResult, error) {
			got = params
			return &domain.LoginResult{User: testDriver(), Token: "t"}, nil
		},
	}
	h := newTestAuthHandler(t, users)

	values := ownerRegistration()
	values.Set("role", "driver")
	values.Set("licenseInfo", "CDL-A")
	values.Set("vehicleType", "Box Truck")
	values.Set("vehicleCapacity", "5000")
	values.Set("serviceArea", "Seattle Metro Area")

	rec := httptest.NewRecorder()
	h.Register(rec, postForm("/register", values))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.DriverProfile{
		LicenseInfo: "CDL-A",
		ServiceArea: "Seattle Metro Area",
		Vehicle:     domain.VehicleInfo{Type: "Box Truck", Capacity: "5000"},
	}, got.Profile)
	assert.Contains(t, rec.Body.String(), `hx-get="/dashboard/driver"`)
}

func TestRegister_ValidationErrors(t *testing.T) {
	called := false
	users := &mockUserService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.LoginResult, error) {
			called = true
			return nil, nil
		},
	}
	h := newTestAuthHandler(t, users)

	values := ownerRegistration()
	values.Set("name", "")
	values.Set("email", "not-an-email")
	values.Set("confirmPassword", "something-else")

	rec := httptest.NewRecorder()
	h.Register(rec, postForm("/register", values))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.False(t, called)
	body := rec.Body.String()
	assert.Contains(t, body, "Name is required")
	assert.Contains(t, body, form.MsgInvalidEmail)
	assert.Contains(t, body, form.MsgPasswordMismatch)
	assert.NotContains(t, body, "hunter2hunter2")
	assert.Contains(t, body, `value="not-an-email"`)
	// the message an edit removes is the one the input points at
	assert.Contains(t, body, `id="field-email-error"`)
	assert.Contains(t, body, `data-clears="field-email-error"`)
	assert.Nil(t, sessionCookie(rec))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	users := &mockUserService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.LoginResult, error) {
			return nil, domain.Conflict("UserService.Register", "Email already registered")
		},
	}
	h := newTestAuthHandler(t, users)

	rec := httptest.NewRecorder()
	h.Register(rec, postForm("/register", ownerRegistration()))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="field-email-error"`)
	assert.Contains(t, rec.Body.String(), "Email already registered")
}

func TestRegister_RepeatedSubmissionCallsServiceOnce(t *testing.T) {
	calls := 0
	users := &mockUserService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.LoginResult, error) {
			calls++
			return &domain.LoginResult{User: testOwner(), Token: "t"}, nil
		},
	}
	h := newTestAuthHandler(t, users)
	values := ownerRegistration()

	first := httptest.NewRecorder()
	h.Register(first, postForm("/register", values))
	second := httptest.NewRecorder()
	h.Register(second, postForm("/register", values))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusSeeOther, second.Code)
	assert.Equal(t, PathDashboard, second.Header().Get("Location"))
	assert.Equal(t, 1, calls)
}

func TestRegister_FailedSubmissionCanBeRetried(t *testing.T) {
	calls := 0
	users := &mockUserService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.LoginResult, error) {
			calls++
			if calls == 1 {
				return nil, domain.Internal(nil, "UserService.Register", "database unavailable")
			}
			return &domain.LoginResult{User: testOwner(), Token: "t"}, nil
		},
	}
	h := newTestAuthHandler(t, users)
	values := ownerRegistration()

	first := httptest.NewRecorder()
	h.Register(first, postForm("/register", values))
	require.Equal(t, http.StatusInternalServerError, first.Code)
	assert.Contains(t, first.Body.String(), "Registration failed. Please try again.")

	second := httptest.NewRecorder()
	h.Register(second, postForm("/register", values))
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 2, calls)
}

// =============================================================================
// Login and logout
// =============================================================================

func loginValues(password string) url.Values {
	return url.Values{
		"email":       {"driver@example.com"},
		"password":    {password},
		form.KeyField: {form.NewKey()},
	}
}

func TestLogin_Success(t *testing.T) {
	users := &mockUserService{
		LoginFunc: func(ctx context.Context, params domain.LoginParams) (*domain.LoginResult, error) {
			assert.Equal(t, "driver@example.com", params.Email)
			assert.Equal(t, "demo1234", params.Password)
			return &domain.LoginResult{User: testDriver(), Token: "driver-token"}, nil
		},
	}
	h := newTestAuthHandler(t, users)

	rec := httptest.NewRecorder()
	h.Login(rec, postForm("/login", loginValues("demo1234")))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, sessionCookie(rec))
	assert.Equal(t, "driver-token", sessionCookie(rec).Value)
	assert.Contains(t, rec.Body.String(), `hx-get="/dashboard/driver"`)
}

func TestLogin_ReturnToOverridesDashboard(t *testing.T) {
	users := &mockUserService{
		LoginFunc: func(ctx context.Context, params domain.LoginParams) (*domain.LoginResult, error) {
			return &domain.LoginResult{User: testDriver(), Token: "t"}, nil
		},
	}
	h := newTestAuthHandler(t, users)

	values := loginValues("demo1234")
	values.Set("return_to", "/loads/123")
	rec := httptest.NewRecorder()
	h.Login(rec, postForm("/login", values))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hx-get="/loads/123"`)
}

func TestLogin_IgnoresExternalReturnTo(t *testing.T) {
	users := &mockUserService{
		LoginFunc: func(ctx context.Context, params domain.LoginParams) (*domain.LoginResult, error) {
			return &domain.LoginResult{User: testOwner(), Token: "t"}, nil
		},
	}
	h := newTestAuthHandler(t, users)

	values := loginValues("demo1234")
	values.Set("return_to", "//evil.example.com")
	rec := httptest.NewRecorder()
	h.Login(rec, postForm("/login", values))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hx-get="/dashboard/load-owner"`)
	assert.NotContains(t, rec.Body.String(), "evil.example.com")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	users := &mockUserService{
		LoginFunc: func(ctx context.Context, params domain.LoginParams) (*domain.LoginResult, error) {
			return nil, domain.Unauthorized("UserService.Login", "Invalid email or password")
		},
	}
	h := newTestAuthHandler(t, users)

	rec := httptest.NewRecorder()
	h.Login(rec, postForm("/login", loginValues("wrong-password")))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password")
	assert.NotContains(t, rec.Body.String(), "wrong-password")
	assert.Nil(t, sessionCookie(rec))
}

func TestLogin_ShortPasswordIsNotRejectedLocally(t *testing.T) {
	called := false
	users := &mockUserService{
		LoginFunc: func(ctx context.Context, params domain.LoginParams) (*domain.LoginResult, error) {
			called = true
			return nil, domain.Unauthorized("UserService.Login", "Invalid email or password")
		},
	}
	h := newTestAuthHandler(t, users)

	rec := httptest.NewRecorder()
	h.Login(rec, postForm("/login", loginValues("short")))

	assert.True(t, called)
	assert.NotContains(t, rec.Body.String(), form.MsgPasswordTooShort)
}

func TestShowLogin_CarriesReturnTo(t *testing.T) {
	h := newTestAuthHandler(t, &mockUserService{})

	rec := httptest.NewRecorder()
	h.ShowLogin(rec, httptest.NewRequest(http.MethodGet, "/login?return_to=%2Floads%2Fnew", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="return_to" value="/loads/new"`)
}

func TestLogout_InvalidatesSessionAndClearsCookie(t *testing.T) {
	var invalidated string
	users := &mockUserService{
		LogoutFunc: func(ctx context.Context, token string) error {
			invalidated = token
			return nil
		},
	}
	h := newTestAuthHandler(t, users)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "live-token"})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?notice=logout", rec.Header().Get("Location"))
	assert.Equal(t, "live-token", invalidated)
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, -1, cookie.MaxAge)
}
