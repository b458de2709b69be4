package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/procura/internal/dto"
	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/identity"
	"github.com/Additional-Code/procura/internal/transport/http/middleware"
	"github.com/Additional-Code/procura/pkg/errorbank"
)

type tokens map[string]identity.Principal

func (t tokens) Verify(token string) (identity.Principal, error) {
	if p, ok := t[token]; ok {
		return p, nil
	}
	return identity.Principal{}, errorbank.Unauthorized("invalid or expired token")
}

type fakeService struct {
	registered identity.RegisterInput
	approver   identity.Principal
}

func (f *fakeService) Register(_ context.Context, in identity.RegisterInput) (*entity.User, error) {
	f.registered = in
	return &entity.User{ID: 9, Name: in.Name, Email: in.Email, Role: in.Role, Company: in.Company, Approved: in.Role.ApprovedOnRegistration()}, nil
}

func (f *fakeService) Authenticate(_ context.Context, email, password string) (*identity.Session, error) {
	if password != "secret123" {
		return nil, errorbank.Unauthorized("invalid credentials")
	}
	return &identity.Session{
		Token:     "jwt-token",
		ExpiresAt: time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC),
		User:      &entity.User{ID: 1, Email: email, Role: entity.RoleBuyer, Approved: true},
	}, nil
}

func (f *fakeService) Approve(_ context.Context, admin identity.Principal, userID int64) (*entity.User, error) {
	f.approver = admin
	if admin.Role != entity.RoleAdmin {
		return nil, errorbank.Forbidden("only administrators can approve users")
	}
	return &entity.User{ID: userID, Role: entity.RoleVendor, Approved: true}, nil
}

var (
	admin = identity.Principal{UserID: 4, Role: entity.RoleAdmin}
	buyer = identity.Principal{UserID: 1, Role: entity.RoleBuyer}
)

func newServer(svc Service) *echo.Echo {
	e := echo.New()
	Register(e, NewHandler(svc), middleware.NewAuthenticator(tokens{"admin": admin, "buyer": buyer}))
	return e
}

func do(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Kind string `json:"kind"`
	} `json:"error"`
	Meta map[string]any `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestRegisterVendorIsPending(t *testing.T) {
	svc := &fakeService{}
	body := `{"name":"Acme","email":"sales@acme.test","password":"secret123","role":"vendor","company":"Acme"}`

	rec := do(newServer(svc), http.MethodPost, "/auth/register", "", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, entity.RoleVendor, svc.registered.Role)
	env := decode(t, rec)
	assert.Equal(t, "account pending administrator approval", env.Meta["notice"])

	var user dto.UserResponse
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.False(t, user.Approved)
	assert.NotContains(t, string(env.Data), "password")
}

func TestRegisterBuyerHasNoNotice(t *testing.T) {
	body := `{"name":"Bo","email":"bo@corp.test","password":"secret123","role":"buyer","company":"Corp"}`

	rec := do(newServer(&fakeService{}), http.MethodPost, "/auth/register", "", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, decode(t, rec).Meta, "notice")
}

func TestLogin(t *testing.T) {
	rec := do(newServer(&fakeService{}), http.MethodPost, "/auth/login", "", `{"email":"bo@corp.test","password":"secret123"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var session dto.SessionResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &session))
	assert.Equal(t, "jwt-token", session.Token)
	assert.Equal(t, "bo@corp.test", session.User.Email)
}

func TestLoginRejectsMissingFieldsAndBadPassword(t *testing.T) {
	e := newServer(&fakeService{})

	rec := do(e, http.MethodPost, "/auth/login", "", `{"email":"bo@corp.test"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/auth/login", "", `{"email":"bo@corp.test","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode(t, rec).Error.Kind)
}

func TestApproveUser(t *testing.T) {
	svc := &fakeService{}

	rec := do(newServer(svc), http.MethodPost, "/users/12/approve", "admin", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, admin, svc.approver)
	var user dto.UserResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &user))
	assert.Equal(t, int64(12), user.ID)
	assert.True(t, user.Approved)
}

func TestApproveUserGuards(t *testing.T) {
	e := newServer(&fakeService{})

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPost, "/users/12/approve", "", "").Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodPost, "/users/12/approve", "buyer", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/users/x/approve", "admin", "").Code)
}
