package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/examexperts/internal/auth"
	"github.com/hitoshi/examexperts/internal/middleware"
	"github.com/hitoshi/examexperts/internal/model"
	"github.com/hitoshi/examexperts/internal/password"
	"github.com/hitoshi/examexperts/internal/token"
)

// --- モック ---

type mockAuthService struct {
	loginFn          func(ctx context.Context, email, password string) (*auth.Result, error)
	registerFn       func(ctx context.Context, in auth.RegisterInput) (*auth.Result, error)
	changePasswordFn func(ctx context.Context, userID int64, in auth.ChangePasswordInput) error
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.Result, error) {
	return m.loginFn(ctx, email, password)
}

func (m *mockAuthService) Register(ctx context.Context, in auth.RegisterInput) (*auth.Result, error) {
	return m.registerFn(ctx, in)
}

func (m *mockAuthService) ChangePassword(ctx context.Context, userID int64, in auth.ChangePasswordInput) error {
	return m.changePasswordFn(ctx, userID, in)
}

// --- ヘルパー ---

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withClaims(req *http.Request, userID int64, role string) *http.Request {
	ctx := middleware.ContextWithClaims(req.Context(), &token.Claims{
		UserID: userID,
		Email:  "user@example.com",
		Role:   role,
	})
	return req.WithContext(ctx)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body %q: %v", w.Body.String(), err)
	}
	return body
}

func sampleResult() *auth.Result {
	return &auth.Result{
		User: model.PublicUser{
			ID:        1,
			Email:     "tutor@example.com",
			Name:      "Jane Tutor",
			Role:      model.RoleTutor,
			CreatedAt: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		Token: "signed-token",
	}
}

// --- Login ---

func TestAuthHandler_Login_Success(t *testing.T) {
	var gotEmail, gotPassword string
	h := NewAuthHandler(&mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*auth.Result, error) {
			gotEmail, gotPassword = email, password
			return sampleResult(), nil
		},
	})

	req := jsonRequest(http.MethodPost, "/api/login", `{"email":"tutor@example.com","password":"Password123!"}`)
	w := httptest.NewRecorder()
	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotEmail != "tutor@example.com" || gotPassword != "Password123!" {
		t.Errorf("service called with (%q, %q)", gotEmail, gotPassword)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	body := decodeBody(t, w)
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if body["message"] != "Login successful" {
		t.Errorf("message = %v, want %q", body["message"], "Login successful")
	}
	if body["token"] != "signed-token" {
		t.Errorf("token = %v, want signed-token", body["token"])
	}
	u, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("user = %v, want object", body["user"])
	}
	if u["id"] != float64(1) || u["email"] != "tutor@example.com" || u["name"] != "Jane Tutor" || u["role"] != "Tutor" {
		t.Errorf("user = %v", u)
	}
	for _, forbidden := range []string{"password", "passwordHash", "PasswordHash", "createdAt"} {
		if _, exists := u[forbidden]; exists {
			t.Errorf("user should not contain %q", forbidden)
		}
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*auth.Result, error) {
			return nil, model.NewInvalidCredentialsError()
		},
	})

	w := httptest.NewRecorder()
	h.Login(w, jsonRequest(http.MethodPost, "/api/login", `{"email":"a@b.com","password":"x"}`))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	body := decodeBody(t, w)
	if body["error"] != "Invalid email or password" {
		t.Errorf("error = %v, want %q", body["error"], "Invalid email or password")
	}
}

func TestAuthHandler_Login_InvalidJSON(t *testing.T) {
	called := false
	h := NewAuthHandler(&mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*auth.Result, error) {
			called = true
			return nil, nil
		},
	})

	w := httptest.NewRecorder()
	h.Login(w, jsonRequest(http.MethodPost, "/api/login", `{"email":`))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if called {
		t.Error("service should not be called for malformed JSON")
	}
	body := decodeBody(t, w)
	if body["error"] != "Invalid JSON body" {
		t.Errorf("error = %v, want %q", body["error"], "Invalid JSON body")
	}
}

func TestAuthHandler_Login_EmptyBodyReachesService(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*auth.Result, error) {
			if email != "" || password != "" {
				t.Errorf("expected empty fields, got (%q, %q)", email, password)
			}
			return nil, model.NewMissingFieldsError("Email and password required")
		},
	})

	w := httptest.NewRecorder()
	h.Login(w, jsonRequest(http.MethodPost, "/api/login", ""))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	body := decodeBody(t, w)
	if body["error"] != "Email and password required" {
		t.Errorf("error = %v", body["error"])
	}
}

// --- Signup ---

func TestAuthHandler_Signup_Success(t *testing.T) {
	var got auth.RegisterInput
	h := NewAuthHandler(&mockAuthService{
		registerFn: func(ctx context.Context, in auth.RegisterInput) (*auth.Result, error) {
			got = in
			return sampleResult(), nil
		},
	})

	w := httptest.NewRecorder()
	h.Signup(w, jsonRequest(http.MethodPost, "/api/signup",
		`{"email":"new@example.com","password":"Abcdef1!","passwordConfirm":"Abcdef1!","name":"New","role":"Manager"}`))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	want := auth.RegisterInput{
		Email:           "new@example.com",
		Password:        "Abcdef1!",
		PasswordConfirm: "Abcdef1!",
		Name:            "New",
		Role:            "Manager",
	}
	if got != want {
		t.Errorf("RegisterInput = %+v, want %+v", got, want)
	}

	body := decodeBody(t, w)
	if body["message"] != "Account created successfully" {
		t.Errorf("message = %v", body["message"])
	}
	if body["token"] != "signed-token" {
		t.Errorf("token = %v", body["token"])
	}
}

func TestAuthHandler_Signup_WeakPasswordIncludesRequirements(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		registerFn: func(ctx context.Context, in auth.RegisterInput) (*auth.Result, error) {
			return nil, model.NewWeakPasswordError(password.Evaluate(in.Password).Requirements)
		},
	})

	w := httptest.NewRecorder()
	h.Signup(w, jsonRequest(http.MethodPost, "/api/signup",
		`{"email":"a@b.com","password":"abc","passwordConfirm":"abc","name":"A"}`))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	body := decodeBody(t, w)
	if body["error"] != "Password does not meet requirements" {
		t.Errorf("error = %v", body["error"])
	}
	reqs, ok := body["requirements"].(map[string]any)
	if !ok {
		t.Fatalf("requirements = %v, want object", body["requirements"])
	}
	want := map[string]bool{
		"minLength": false,
		"uppercase": false,
		"lowercase": true,
		"number":    false,
		"special":   false,
	}
	for k, v := range want {
		if reqs[k] != v {
			t.Errorf("requirements[%s] = %v, want %v", k, reqs[k], v)
		}
	}
}

func TestAuthHandler_Signup_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"missing fields", model.NewMissingFieldsError("Email, password, and name are required"), http.StatusBadRequest, "Email, password, and name are required"},
		{"invalid email", model.NewInvalidEmailError(), http.StatusBadRequest, "Invalid email format"},
		{"mismatch", model.NewPasswordMismatchError("Passwords do not match"), http.StatusBadRequest, "Passwords do not match"},
		{"duplicate", model.NewDuplicateEmailError(), http.StatusBadRequest, "Email already registered"},
		{"too long", model.NewPasswordTooLongError(password.MaxBytes), http.StatusBadRequest, "Password must be at most 72 bytes"},
		{"store failure", errors.New("connection refused"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&mockAuthService{
				registerFn: func(ctx context.Context, in auth.RegisterInput) (*auth.Result, error) {
					return nil, tt.err
				},
			})

			w := httptest.NewRecorder()
			h.Signup(w, jsonRequest(http.MethodPost, "/api/signup", `{}`))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			body := decodeBody(t, w)
			if body["error"] != tt.wantError {
				t.Errorf("error = %v, want %q", body["error"], tt.wantError)
			}
			if strings.Contains(w.Body.String(), "connection refused") {
				t.Error("internal error details must not leak to the client")
			}
		})
	}
}

// --- ValidatePassword ---

func TestAuthHandler_ValidatePassword(t *testing.T) {
	tests := []struct {
		name         string
		password     string
		wantStrength string
		wantScore    float64
		wantValid    bool
	}{
		{"strong", "Password123!", "strong", 100, true},
		{"weak", "abc", "weak", 20, false},
		{"medium", "abcdefgh", "medium", 40, false},
	}

	h := NewAuthHandler(&mockAuthService{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := json.Marshal(map[string]string{"password": tt.password})
			w := httptest.NewRecorder()
			h.ValidatePassword(w, jsonRequest(http.MethodPost, "/api/validate-password", string(b)))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			body := decodeBody(t, w)
			if body["strength"] != tt.wantStrength {
				t.Errorf("strength = %v, want %s", body["strength"], tt.wantStrength)
			}
			if body["score"] != tt.wantScore {
				t.Errorf("score = %v, want %v", body["score"], tt.wantScore)
			}
			if body["isValid"] != tt.wantValid {
				t.Errorf("isValid = %v, want %v", body["isValid"], tt.wantValid)
			}
			if _, ok := body["requirements"].(map[string]any); !ok {
				t.Errorf("requirements = %v, want object", body["requirements"])
			}
		})
	}
}

func TestAuthHandler_ValidatePassword_Empty(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	h.ValidatePassword(w, jsonRequest(http.MethodPost, "/api/validate-password", `{"password":""}`))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	body := decodeBody(t, w)
	if body["error"] != "Password required" {
		t.Errorf("error = %v, want %q", body["error"], "Password required")
	}
}

// --- ChangePassword ---

func TestAuthHandler_ChangePassword_Success(t *testing.T) {
	var gotID int64
	var gotIn auth.ChangePasswordInput
	h := NewAuthHandler(&mockAuthService{
		changePasswordFn: func(ctx context.Context, userID int64, in auth.ChangePasswordInput) error {
			gotID, gotIn = userID, in
			return nil
		},
	})

	req := jsonRequest(http.MethodPost, "/api/user/change-password",
		`{"currentPassword":"Password123!","newPassword":"NewPass1!","confirmPassword":"NewPass1!"}`)
	w := httptest.NewRecorder()
	h.ChangePassword(w, withClaims(req, 5, model.RoleTutor))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotID != 5 {
		t.Errorf("userID = %d, want 5", gotID)
	}
	if gotIn.CurrentPassword != "Password123!" || gotIn.NewPassword != "NewPass1!" || gotIn.ConfirmPassword != "NewPass1!" {
		t.Errorf("input = %+v", gotIn)
	}
	body := decodeBody(t, w)
	if body["message"] != "Password changed successfully" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestAuthHandler_ChangePassword_WrongCurrent(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{
		changePasswordFn: func(ctx context.Context, userID int64, in auth.ChangePasswordInput) error {
			return model.NewWrongPasswordError()
		},
	})

	w := httptest.NewRecorder()
	h.ChangePassword(w, withClaims(jsonRequest(http.MethodPost, "/api/user/change-password", `{}`), 1, model.RoleTutor))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	body := decodeBody(t, w)
	if body["error"] != "Current password is incorrect" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestAuthHandler_ChangePassword_NoClaims(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	h.ChangePassword(w, jsonRequest(http.MethodPost, "/api/user/change-password", `{}`))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- Logout ---

func TestAuthHandler_Logout(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	h.Logout(w, httptest.NewRequest(http.MethodPost, "/api/logout", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w)
	if body["success"] != true || body["message"] != "Logged out successfully" {
		t.Errorf("body = %v", body)
	}
}
