package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth-api-nosql/internal/application/auth"
	"github.com/auth-api-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthService struct{ mock.Mock }

func (m *mockAuthService) Register(ctx context.Context, req domain.RegisterRequest) (*auth.Result, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*auth.Result); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAuthService) VerifyOTP(ctx context.Context, req domain.VerifyOTPRequest) (*auth.Result, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*auth.Result); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAuthService) ResendOTP(ctx context.Context, req domain.ResendOTPRequest) (*auth.Result, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*auth.Result); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAuthService) Login(ctx context.Context, req domain.LoginRequest) (*auth.Result, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*auth.Result); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAuthService) ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) (*auth.Result, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*auth.Result); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAuthService) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) (*auth.Result, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*auth.Result); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAuthService) WhoAmI(ctx context.Context, token string) (*domain.User, error) {
	args := m.Called(ctx, token)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestRegister_Created(t *testing.T) {
	svc := &mockAuthService{}
	svc.On("Register", mock.Anything, domain.RegisterRequest{
		FullName: "Alice", Email: "a@x.com", Password: "secret1",
	}).Return(&auth.Result{Message: "Registration successful. Please check your email for verification code."}, nil)

	h := NewAuthHandler(svc)
	rr := postJSON(t, h.Register, `{"full_name":"Alice","email":"a@x.com","password":"secret1"}`)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), "Registration successful")
	assert.NotContains(t, rr.Body.String(), "access_token")
}

func TestRegister_MalformedBody(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})
	rr := postJSON(t, h.Register, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegister_ValidationFailures(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	cases := map[string]string{
		"bad email":      `{"full_name":"Alice","email":"not-an-email","password":"secret1"}`,
		"short password": `{"full_name":"Alice","email":"a@x.com","password":"12345"}`,
		"short name":     `{"full_name":"A","email":"a@x.com","password":"secret1"}`,
	}
	for name, body := range cases {
		rr := postJSON(t, h.Register, body)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, name)
	}
}

func TestRegister_EmailTaken_BadRequest(t *testing.T) {
	svc := &mockAuthService{}
	svc.On("Register", mock.Anything, mock.Anything).Return(nil, domain.ErrConflict)

	h := NewAuthHandler(svc)
	rr := postJSON(t, h.Register, `{"full_name":"Alice","email":"a@x.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegister_RateLimited(t *testing.T) {
	svc := &mockAuthService{}
	svc.On("Register", mock.Anything, mock.Anything).Return(nil, domain.ErrTooManyRequests)

	h := NewAuthHandler(svc)
	rr := postJSON(t, h.Register, `{"full_name":"Alice","email":"a@x.com","password":"secret1"}`)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestVerifyOTP_Invalid_BadRequest(t *testing.T) {
	svc := &mockAuthService{}
	svc.On("VerifyOTP", mock.Anything, mock.Anything).Return(nil, domain.ErrInvalidOTP)

	h := NewAuthHandler(svc)
	rr := postJSON(t, h.VerifyOTP, `{"email":"a@x.com","otp":"000000"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogin_InvalidCredentials_Unauthorized(t *testing.T) {
	svc := &mockAuthService{}
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, domain.ErrUnauthorized)

	h := NewAuthHandler(svc)
	rr := postJSON(t, h.Login, `{"email":"a@x.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogin_NotVerified_Forbidden(t *testing.T) {
	svc := &mockAuthService{}
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, domain.ErrForbidden)

	h := NewAuthHandler(svc)
	rr := postJSON(t, h.Login, `{"email":"a@x.com","password":"secret1"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestLogin_ReturnsTokenAndUser(t *testing.T) {
	svc := &mockAuthService{}
	svc.On("Login", mock.Anything, mock.Anything).Return(&auth.Result{
		Message:     "Login successful",
		AccessToken: "bearer-token",
		User:        &domain.User{UserID: "u1", Email: "a@x.com", IsVerified: true, PasswordHash: "$2a$10$hash"},
	}, nil)

	h := NewAuthHandler(svc)
	rr := postJSON(t, h.Login, `{"email":"a@x.com","password":"secret1"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "bearer-token")
	assert.Contains(t, rr.Body.String(), `"is_verified":true`)
	assert.NotContains(t, rr.Body.String(), "$2a$10$hash", "password hash must never leave the server")
}

func TestForgotPassword_BranchesIndistinguishable(t *testing.T) {
	msg := "If the email exists, a password reset code has been sent."
	svc := &mockAuthService{}
	svc.On("ForgotPassword", mock.Anything, domain.ForgotPasswordRequest{Email: "missing@x.com"}).
		Return(&auth.Result{Message: msg}, nil)
	svc.On("ForgotPassword", mock.Anything, domain.ForgotPasswordRequest{Email: "a@x.com"}).
		Return(&auth.Result{Message: msg}, nil)

	h := NewAuthHandler(svc)
	rrMissing := postJSON(t, h.ForgotPassword, `{"email":"missing@x.com"}`)
	rrPresent := postJSON(t, h.ForgotPassword, `{"email":"a@x.com"}`)

	require.Equal(t, http.StatusOK, rrMissing.Code)
	require.Equal(t, http.StatusOK, rrPresent.Code)
	assert.Equal(t, rrMissing.Body.Bytes(), rrPresent.Body.Bytes())
}

func TestMe_StripsBearerPrefix(t *testing.T) {
	svc := &mockAuthService{}
	svc.On("WhoAmI", mock.Anything, "tok123").
		Return(&domain.User{UserID: "u1", Email: "a@x.com", IsVerified: true}, nil)

	h := NewAuthHandler(svc)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok123")
	rr := httptest.NewRecorder()
	h.Me(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"email":"a@x.com"`)
	svc.AssertExpectations(t)
}

func TestMe_InvalidToken(t *testing.T) {
	svc := &mockAuthService{}
	svc.On("WhoAmI", mock.Anything, mock.Anything).Return(nil, domain.ErrUnauthorized)

	h := NewAuthHandler(svc)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rr := httptest.NewRecorder()
	h.Me(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
