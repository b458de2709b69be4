package rfp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/procura/internal/entity"
	"github.com/Additional-Code/procura/internal/identity"
	service "github.com/Additional-Code/procura/internal/service/rfp"
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
	created  service.CreateInput
	rfp      entity.RFP
	uploaded string
	upload   []byte
	err      error
}

func (f *fakeService) Create(_ context.Context, _ identity.Principal, in service.CreateInput) (*entity.RFP, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = in
	r := f.rfp
	return &r, nil
}

func (f *fakeService) Publish(_ context.Context, p identity.Principal, id int64) (*entity.RFP, error) {
	if p.Role != entity.RoleBuyer || id != f.rfp.ID {
		return nil, errorbank.NotFoundOrForbidden("rfp")
	}
	r := f.rfp
	r.Status = entity.RFPPublished
	return &r, nil
}

func (f *fakeService) List(context.Context, identity.Principal) ([]entity.RFP, error) {
	return []entity.RFP{f.rfp}, nil
}

func (f *fakeService) Get(_ context.Context, _ identity.Principal, id int64) (*entity.RFP, error) {
	if id != f.rfp.ID {
		return nil, errorbank.NotFoundOrForbidden("rfp")
	}
	r := f.rfp
	return &r, nil
}

func (f *fakeService) AttachFile(_ context.Context, _ identity.Principal, _ int64, name string, body io.Reader) (*entity.RFP, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.uploaded, f.upload = name, data
	r := f.rfp
	r.Attachments = append(r.Attachments, "key.pdf")
	return &r, nil
}

func sampleRFP() entity.RFP {
	return entity.RFP{
		ID: 3, Title: "Laptops", Description: "Twenty laptops", Category: "IT",
		Budget:    decimal.NewFromInt(40000),
		Deadline:  time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		Status:    entity.RFPDraft,
		CreatedBy: 1,
	}
}

func newServer(svc Service) *echo.Echo {
	e := echo.New()
	auth := middleware.NewAuthenticator(tokens{
		"buyer":  {UserID: 1, Role: entity.RoleBuyer},
		"vendor": {UserID: 5, Role: entity.RoleVendor},
	})
	Register(e, NewHandler(svc), auth)
	return e
}

func send(e *echo.Echo, req *http.Request, token string) *httptest.ResponseRecorder {
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreate(t *testing.T) {
	svc := &fakeService{rfp: sampleRFP()}
	req := httptest.NewRequest(http.MethodPost, "/rfps", strings.NewReader(
		`{"title":"Laptops","description":"Twenty laptops","category":"IT","budget":"40000","deadline":"2026-07-01","requirements":["16GB RAM"]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := send(newServer(svc), req, "buyer")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, svc.created.Budget.Equal(decimal.NewFromInt(40000)))
	assert.Equal(t, "2026-07-01", svc.created.Deadline)
	assert.Equal(t, []string{"16GB RAM"}, svc.created.Requirements)

	var body struct {
		Data struct {
			Budget   json.Number `json:"budget"`
			Deadline string      `json:"deadline"`
			Status   string      `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "40000.00", body.Data.Budget.String())
	assert.Equal(t, "2026-07-01", body.Data.Deadline)
	assert.Equal(t, "draft", body.Data.Status)
}

func TestCreateValidationError(t *testing.T) {
	svc := &fakeService{err: errorbank.BadRequest("missing required fields", errorbank.WithDetail("fields", []string{"title"}))}
	req := httptest.NewRequest(http.MethodPost, "/rfps", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := send(newServer(svc), req, "buyer")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fields":["title"]`)
}

func TestPublishHidesForeignRFP(t *testing.T) {
	e := newServer(&fakeService{rfp: sampleRFP()})

	rec := send(e, httptest.NewRequest(http.MethodPut, "/rfps/3/publish", nil), "buyer")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"published"`)

	rec = send(e, httptest.NewRequest(http.MethodPut, "/rfps/3/publish", nil), "vendor")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAndGet(t *testing.T) {
	e := newServer(&fakeService{rfp: sampleRFP()})

	rec := send(e, httptest.NewRequest(http.MethodGet, "/rfps", nil), "buyer")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
	assert.Contains(t, rec.Body.String(), `"requirements":[]`)

	rec = send(e, httptest.NewRequest(http.MethodGet, "/rfps/4", nil), "buyer")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttach(t *testing.T) {
	svc := &fakeService{rfp: sampleRFP()}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "spec.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.7"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/rfps/3/attachments", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())

	rec := send(newServer(svc), req, "buyer")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "spec.pdf", svc.uploaded)
	assert.Equal(t, []byte("%PDF-1.7"), svc.upload)
	assert.Contains(t, rec.Body.String(), `"attachments":["key.pdf"]`)
}

func TestAttachWithoutFile(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/rfps/3/attachments", strings.NewReader(""))
	rec := send(newServer(&fakeService{rfp: sampleRFP()}), req, "buyer")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
