package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v7/linebot"

	"github.com/Nakkasenp65/register-item-delivery/internal/addressform"
	"github.com/Nakkasenp65/register-item-delivery/internal/api/middleware"
	"github.com/Nakkasenp65/register-item-delivery/internal/dto"
	"github.com/Nakkasenp65/register-item-delivery/internal/service"
	pkgerrors "github.com/Nakkasenp65/register-item-delivery/pkg/errors"
	"github.com/Nakkasenp65/register-item-delivery/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testLineUserID = "U4af4980629a0b1c2d3e4f5a6b7c8d9e0"

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock LocationService ──

type mockLocationService struct {
	options    []dto.LocationOptionResponse
	postal     []dto.PostalCodeResponse
	resolved   *dto.ResolvePostalCodeResponse
	err        error
	provinceID int
	districtID int
}

func (m *mockLocationService) ListProvinces(_ context.Context, _ *dto.LocationSearchRequest) ([]dto.LocationOptionResponse, error) {
	return m.options, m.err
}
func (m *mockLocationService) ListDistricts(_ context.Context, provinceID int, _ *dto.LocationSearchRequest) ([]dto.LocationOptionResponse, error) {
	m.provinceID = provinceID
	return m.options, m.err
}
func (m *mockLocationService) ListSubDistricts(_ context.Context, provinceID, districtID int, _ *dto.LocationSearchRequest) ([]dto.LocationOptionResponse, error) {
	m.provinceID, m.districtID = provinceID, districtID
	return m.options, m.err
}
func (m *mockLocationService) ListPostalCodesByPrefix(_ context.Context, _ *dto.PostalCodeListRequest) ([]dto.PostalCodeResponse, error) {
	return m.postal, m.err
}
func (m *mockLocationService) ResolvePostalCode(_ context.Context, _ *dto.ResolvePostalCodeRequest) (*dto.ResolvePostalCodeResponse, error) {
	return m.resolved, m.err
}
func (m *mockLocationService) VerifyAddress(_ context.Context, _ service.AddressFields) error {
	return m.err
}
func (m *mockLocationService) FormSource() addressform.Source {
	return addressform.Source{}
}

// ── Mock DeliveryService ──

type mockDeliveryService struct {
	createResult *dto.CreateDeliveryResponse
	result       *dto.DeliveryResponse
	list         []dto.DeliveryResponse
	err          error

	gotCreate  *dto.CreateDeliveryRequest
	gotSlip    *dto.SlipFile
	gotFind    *dto.FindDeliveryRequest
	gotCurrent string
	gotStatus  string
}

func (m *mockDeliveryService) Create(_ context.Context, req *dto.CreateDeliveryRequest, slip *dto.SlipFile) (*dto.CreateDeliveryResponse, error) {
	m.gotCreate, m.gotSlip = req, slip
	return m.createResult, m.err
}
func (m *mockDeliveryService) GetByID(_ context.Context, _ string) (*dto.DeliveryResponse, error) {
	return m.result, m.err
}
func (m *mockDeliveryService) Find(_ context.Context, req *dto.FindDeliveryRequest) ([]dto.DeliveryResponse, error) {
	m.gotFind = req
	return m.list, m.err
}
func (m *mockDeliveryService) GetCurrent(_ context.Context, lineUserID string) (*dto.DeliveryResponse, error) {
	m.gotCurrent = lineUserID
	return m.result, m.err
}
func (m *mockDeliveryService) Update(_ context.Context, _ string, _ *dto.UpdateDeliveryRequest) (*dto.DeliveryResponse, error) {
	return m.result, m.err
}
func (m *mockDeliveryService) UpdateAddress(_ context.Context, _ string, _ *dto.UpdateAddressRequest) (*dto.DeliveryResponse, error) {
	return m.result, m.err
}
func (m *mockDeliveryService) UpdateStatus(_ context.Context, _ string, status string) (*dto.DeliveryResponse, error) {
	m.gotStatus = status
	return m.result, m.err
}

// ── Mock MessageService ──

type mockMessageService struct {
	msg    *linebot.FlexMessage
	err    error
	pushTo string
}

func (m *mockMessageService) BuildSummary(_ context.Context, _ string) (*linebot.FlexMessage, error) {
	return m.msg, m.err
}
func (m *mockMessageService) PushSummary(_ context.Context, _, caller string) error {
	m.pushTo = caller
	return m.err
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportDeliveries(_ context.Context, _ *dto.ExportDeliveriesRequest) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// withLIFF simulates a verified LIFF ID token
func withLIFF(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.LineUserIDKey, testLineUserID)
		h(c)
	}
}

func multipartCreate(t *testing.T, data string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if data != "" {
		if err := mw.WriteField("data", data); err != nil {
			t.Fatal(err)
		}
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", "slip.png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(file)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/deliveries", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var homeRequest = dto.CreateDeliveryRequest{
	CustomerName:   "A",
	Phone:          "0800000000",
	LocationType:   "home",
	AddressDetails: "1 Road",
	SubDistrict:    "X",
	District:       "Y",
	Province:       "Z",
	PostalCode:     "10110",
}

// ═══════════════════════════════════════════════════════════
// LocationHandler Tests
// ═══════════════════════════════════════════════════════════

func TestLocationHandler_ListProvinces(t *testing.T) {
	mock := &mockLocationService{options: []dto.LocationOptionResponse{{ID: 10, Name: "กรุงเทพมหานคร"}}}
	h := NewLocationHandler(mock)

	w := httptest.NewRecorder()
	r := gin.New()
	r.GET("/provinces", h.ListProvinces)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/provinces?limit=5", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Count == nil || *resp.Count != 1 {
		t.Errorf("expected count 1, got %v", resp.Count)
	}
}

func TestLocationHandler_ListProvinces_BadLang(t *testing.T) {
	h := NewLocationHandler(&mockLocationService{})

	w := httptest.NewRecorder()
	r := gin.New()
	r.GET("/provinces", h.ListProvinces)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/provinces?lang=fr", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestLocationHandler_ListSubDistricts_PathIDs(t *testing.T) {
	mock := &mockLocationService{options: []dto.LocationOptionResponse{}}
	h := NewLocationHandler(mock)

	w := httptest.NewRecorder()
	r := gin.New()
	r.GET("/provinces/:provinceId/districts/:districtId/sub-districts", h.ListSubDistricts)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/provinces/10/districts/1039/sub-districts", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.provinceID != 10 || mock.districtID != 1039 {
		t.Errorf("expected ids 10/1039, got %d/%d", mock.provinceID, mock.districtID)
	}
}

func TestLocationHandler_ListDistricts_BadPathID(t *testing.T) {
	h := NewLocationHandler(&mockLocationService{})

	w := httptest.NewRecorder()
	r := gin.New()
	r.GET("/provinces/:provinceId/districts", h.ListDistricts)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/provinces/abc/districts", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Details != "provinceId" {
		t.Errorf("expected details provinceId, got %q", resp.Details)
	}
}

func TestLocationHandler_ListPostalCodes_ValidationError(t *testing.T) {
	h := NewLocationHandler(&mockLocationService{err: pkgerrors.Invalid("prefix", "must contain digits only")})

	w := httptest.NewRecorder()
	r := gin.New()
	r.GET("/postal-codes", h.ListPostalCodes)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/postal-codes?prefix=1a", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Details != "prefix" {
		t.Errorf("expected details prefix, got %q", resp.Details)
	}
}

func TestLocationHandler_ResolvePostalCode_NotFoundIsOK(t *testing.T) {
	h := NewLocationHandler(&mockLocationService{resolved: &dto.ResolvePostalCodeResponse{Found: false}})

	w := httptest.NewRecorder()
	r := gin.New()
	r.GET("/resolve", h.ResolvePostalCode)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resolve?province_id=1&district_id=2&sub_district_id=99", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"found":false`) {
		t.Errorf("expected found=false in body, got %s", w.Body.String())
	}
}

func TestLocationHandler_ResolvePostalCode_MissingParams(t *testing.T) {
	h := NewLocationHandler(&mockLocationService{})

	w := httptest.NewRecorder()
	r := gin.New()
	r.GET("/resolve", h.ResolvePostalCode)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resolve?province_id=1", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestLocationHandler_UpstreamFailure(t *testing.T) {
	h := NewLocationHandler(&mockLocationService{err: pkgerrors.Upstream("list provinces", errors.New("db down"))})

	w := httptest.NewRecorder()
	r := gin.New()
	r.GET("/provinces", h.ListProvinces)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/provinces", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 50000 {
		t.Errorf("expected code 50000, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// DeliveryHandler Tests
// ═══════════════════════════════════════════════════════════

func TestDeliveryHandler_Create_JSON(t *testing.T) {
	mock := &mockDeliveryService{createResult: &dto.CreateDeliveryResponse{ID: "abc", TrackingID: "RET-1A2B3C4D"}}
	h := NewDeliveryHandler(mock, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/deliveries", jsonBody(homeRequest))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r := gin.New()
	r.POST("/deliveries", h.Create)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if mock.gotSlip != nil {
		t.Error("expected no slip for a JSON body")
	}
	if mock.gotCreate.PostalCode != "10110" {
		t.Errorf("expected postal code to be bound, got %q", mock.gotCreate.PostalCode)
	}
	if !strings.Contains(w.Body.String(), `"slipImageUrl":null`) {
		t.Errorf("expected slipImageUrl null, got %s", w.Body.String())
	}
}

func TestDeliveryHandler_Create_MultipartWithSlip(t *testing.T) {
	mock := &mockDeliveryService{createResult: &dto.CreateDeliveryResponse{ID: "abc"}}
	h := NewDeliveryHandler(mock, 1<<20)

	data, _ := json.Marshal(homeRequest)
	w := httptest.NewRecorder()
	r := gin.New()
	r.POST("/deliveries", h.Create)
	r.ServeHTTP(w, multipartCreate(t, string(data), []byte("png-bytes")))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if mock.gotSlip == nil || string(mock.gotSlip.Data) != "png-bytes" {
		t.Fatalf("expected slip bytes to be passed through, got %+v", mock.gotSlip)
	}
	if mock.gotSlip.Filename != "slip.png" {
		t.Errorf("expected filename slip.png, got %q", mock.gotSlip.Filename)
	}
}

func TestDeliveryHandler_Create_BodyTooLarge(t *testing.T) {
	mock := &mockDeliveryService{createResult: &dto.CreateDeliveryResponse{ID: "abc"}}
	h := NewDeliveryHandler(mock, 1<<20)

	data, _ := json.Marshal(homeRequest)
	w := httptest.NewRecorder()
	r := gin.New()
	r.POST("/deliveries", middleware.BodyLimit(4<<10), h.Create)
	r.ServeHTTP(w, multipartCreate(t, string(data), bytes.Repeat([]byte{0x89}, 64<<10)))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", w.Code, w.Body.String())
	}
	if resp := parseResponse(w); resp.Code != 10005 {
		t.Errorf("expected code 10005, got %d", resp.Code)
	}
	if mock.gotCreate != nil {
		t.Error("expected service not to be called")
	}
}

func TestDeliveryHandler_Create_JSONBodyTooLarge(t *testing.T) {
	h := NewDeliveryHandler(&mockDeliveryService{}, 1<<20)

	body := `{"customerName":"` + strings.Repeat("ก", 4<<10) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/deliveries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r := gin.New()
	r.POST("/deliveries", middleware.BodyLimit(1<<10), h.Create)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
}

func TestDeliveryHandler_Create_MultipartMissingData(t *testing.T) {
	h := NewDeliveryHandler(&mockDeliveryService{}, 1<<20)

	w := httptest.NewRecorder()
	r := gin.New()
	r.POST("/deliveries", h.Create)
	r.ServeHTTP(w, multipartCreate(t, "", []byte("x")))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Details != "data" {
		t.Errorf("expected details data, got %q", resp.Details)
	}
}

func TestDeliveryHandler_Create_SlipTooLarge(t *testing.T) {
	mock := &mockDeliveryService{}
	h := NewDeliveryHandler(mock, 4)

	data, _ := json.Marshal(homeRequest)
	w := httptest.NewRecorder()
	r := gin.New()
	r.POST("/deliveries", h.Create)
	r.ServeHTTP(w, multipartCreate(t, string(data), []byte("too-many-bytes")))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if mock.gotCreate != nil {
		t.Error("service must not be called for an oversized slip")
	}
}

func TestDeliveryHandler_Create_LIFFIdentityOverridesBody(t *testing.T) {
	mock := &mockDeliveryService{createResult: &dto.CreateDeliveryResponse{}}
	h := NewDeliveryHandler(mock, 1<<20)

	body := homeRequest
	body.LineUserID = "Uffffffffffffffffffffffffffffffff"
	req := httptest.NewRequest(http.MethodPost, "/deliveries", jsonBody(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r := gin.New()
	r.POST("/deliveries", withLIFF(h.Create))
	r.ServeHTTP(w, req)

	if mock.gotCreate == nil || mock.gotCreate.LineUserID != testLineUserID {
		t.Errorf("expected verified identifier %s, got %+v", testLineUserID, mock.gotCreate)
	}
}

func TestDeliveryHandler_Create_ValidationError(t *testing.T) {
	h := NewDeliveryHandler(&mockDeliveryService{err: pkgerrors.Required("addressDetails")}, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/deliveries", jsonBody(homeRequest))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r := gin.New()
	r.POST("/deliveries", h.Create)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 10001 || resp.Details != "addressDetails" {
		t.Errorf("expected 10001/addressDetails, got %d/%q", resp.Code, resp.Details)
	}
}

func TestDeliveryHandler_Create_SlipRejected(t *testing.T) {
	err := fmt.Errorf("%w: %s", service.ErrSlipRejected, "unsupported image type")
	h := NewDeliveryHandler(&mockDeliveryService{err: err}, 1<<20)

	data, _ := json.Marshal(homeRequest)
	w := httptest.NewRecorder()
	r := gin.New()
	r.POST("/deliveries", h.Create)
	r.ServeHTTP(w, multipartCreate(t, string(data), []byte("gif")))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 20002 {
		t.Errorf("expected code 20002, got %d", resp.Code)
	}
	if !strings.Contains(resp.Message, "unsupported image type") {
		t.Errorf("expected upload message to be surfaced, got %q", resp.Message)
	}
}

func TestDeliveryHandler_Create_UpstreamFailure(t *testing.T) {
	h := NewDeliveryHandler(&mockDeliveryService{err: pkgerrors.Upstream("insert delivery", errors.New("timeout"))}, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/deliveries", jsonBody(homeRequest))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r := gin.New()
	r.POST("/deliveries", h.Create)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestDeliveryHandler_Get_NotFound(t *testing.T) {
	h := NewDeliveryHandler(&mockDeliveryService{err: service.ErrDeliveryNotFound}, 0)

	w := httptest.NewRecorder()
	r := gin.New()
	r.GET("/deliveries/:id", h.Get)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/deliveries/65f0a1b2c3d4e5f607182930", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 20001 {
		t.Errorf("expected code 20001, got %d", resp.Code)
	}
}

func TestDeliveryHandler_Get_MalformedID(t *testing.T) {
	h := NewDeliveryHandler(&mockDeliveryService{err: pkgerrors.Invalid("id", "malformed record ID")}, 0)

	w := httptest.NewRecorder()
	r := gin.New()
	r.GET("/deliveries/:id", h.Get)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/deliveries/nope", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestDeliveryHandler_Update(t *testing.T) {
	mock := &mockDeliveryService{result: &dto.DeliveryResponse{ID: "abc", Phone: "0811111111"}}
	h := NewDeliveryHandler(mock, 0)

	req := httptest.NewRequest(http.MethodPut, "/deliveries/abc", jsonBody(map[string]string{"phone": "0811111111"}))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r := gin.New()
	r.PUT("/deliveries/:id", h.Update)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestDeliveryHandler_UpdateAddress_BadBody(t *testing.T) {
	h := NewDeliveryHandler(&mockDeliveryService{}, 0)

	req := httptest.NewRequest(http.MethodPut, "/deliveries/abc/address", jsonBody(map[string]string{"postal_code": "12"}))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r := gin.New()
	r.PUT("/deliveries/:id/address", h.UpdateAddress)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestDeliveryHandler_Find_EmptyIs404WithEmptyList(t *testing.T) {
	h := NewDeliveryHandler(&mockDeliveryService{list: []dto.DeliveryResponse{}}, 0)

	w := httptest.NewRecorder()
	r := gin.New()
	r.GET("/find", h.Find)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/find?phone=0800000000", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"data":[]`) {
		t.Errorf("expected explicit empty list, got %s", w.Body.String())
	}
	if resp := parseResponse(w); resp.Count == nil || *resp.Count != 0 {
		t.Errorf("expected count 0, got %v", resp.Count)
	}
}

func TestDeliveryHandler_Find_PostJSON(t *testing.T) {
	mock := &mockDeliveryService{list: []dto.DeliveryResponse{{ID: "b"}, {ID: "a"}}}
	h := NewDeliveryHandler(mock, 0)

	req := httptest.NewRequest(http.MethodPost, "/find", jsonBody(dto.FindDeliveryRequest{Phone: "0800000000"}))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r := gin.New()
	r.POST("/find", h.Find)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.gotFind.Phone != "0800000000" {
		t.Errorf("expected phone to be bound, got %q", mock.gotFind.Phone)
	}
	if resp := parseResponse(w); resp.Count == nil || *resp.Count != 2 {
		t.Errorf("expected count 2, got %v", resp.Count)
	}
}

func TestDeliveryHandler_Current_UsesLIFFIdentity(t *testing.T) {
	mock := &mockDeliveryService{result: &dto.DeliveryResponse{ID: "abc"}}
	h := NewDeliveryHandler(mock, 0)

	w := httptest.NewRecorder()
	r := gin.New()
	r.GET("/find/current", withLIFF(h.Current))
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/find/current?line_user_id=Uother", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.gotCurrent != testLineUserID {
		t.Errorf("expected verified identifier, got %q", mock.gotCurrent)
	}
}

func TestDeliveryHandler_UpdateStatus(t *testing.T) {
	mock := &mockDeliveryService{result: &dto.DeliveryResponse{ID: "abc", Status: "shipped"}}
	h := NewDeliveryHandler(mock, 0)

	req := httptest.NewRequest(http.MethodPatch, "/deliveries/abc/status", jsonBody(dto.UpdateStatusRequest{Status: "shipped"}))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r := gin.New()
	r.PATCH("/deliveries/:id/status", h.UpdateStatus)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.gotStatus != "shipped" {
		t.Errorf("expected status shipped, got %q", mock.gotStatus)
	}
}

func TestDeliveryHandler_UpdateStatus_UnknownStatus(t *testing.T) {
	h := NewDeliveryHandler(&mockDeliveryService{}, 0)

	req := httptest.NewRequest(http.MethodPatch, "/deliveries/abc/status", jsonBody(dto.UpdateStatusRequest{Status: "lost"}))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r := gin.New()
	r.PATCH("/deliveries/:id/status", h.UpdateStatus)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestDeliveryHandler_UpdateStatus_TransitionConflict(t *testing.T) {
	h := NewDeliveryHandler(&mockDeliveryService{err: service.ErrInvalidStatusTransition}, 0)

	req := httptest.NewRequest(http.MethodPatch, "/deliveries/abc/status", jsonBody(dto.UpdateStatusRequest{Status: "pending"}))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r := gin.New()
	r.PATCH("/deliveries/:id/status", h.UpdateStatus)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// MessageHandler Tests
// ═══════════════════════════════════════════════════════════

func TestMessageHandler_Summary(t *testing.T) {
	bubble := &linebot.BubbleContainer{
		Type: linebot.FlexContainerTypeBubble,
		Body: &linebot.BoxComponent{
			Type:     linebot.FlexComponentTypeBox,
			Layout:   linebot.FlexBoxLayoutTypeVertical,
			Contents: []linebot.FlexComponent{&linebot.TextComponent{Type: linebot.FlexComponentTypeText, Text: "RET-1A2B3C4D"}},
		},
	}
	h := NewMessageHandler(&mockMessageService{msg: linebot.NewFlexMessage("ข้อมูลการจัดส่ง", bubble)})

	w := httptest.NewRecorder()
	r := gin.New()
	r.GET("/deliveries/:id/summary", h.Summary)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/deliveries/abc/summary", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"type":"flex"`) {
		t.Errorf("expected flex message in body, got %s", w.Body.String())
	}
}

func TestMessageHandler_Push_UsesLIFFIdentity(t *testing.T) {
	mock := &mockMessageService{}
	h := NewMessageHandler(mock)

	w := httptest.NewRecorder()
	r := gin.New()
	r.POST("/deliveries/:id/summary/push", withLIFF(h.Push))
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/deliveries/abc/summary/push", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.pushTo != testLineUserID {
		t.Errorf("expected push to %s, got %q", testLineUserID, mock.pushTo)
	}
}

func TestMessageHandler_Push_Disabled(t *testing.T) {
	h := NewMessageHandler(&mockMessageService{err: service.ErrMessagingDisabled})

	w := httptest.NewRecorder()
	r := gin.New()
	r.POST("/deliveries/:id/summary/push", withLIFF(h.Push))
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/deliveries/abc/summary/push", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestMessageHandler_Push_NoRecipient(t *testing.T) {
	h := NewMessageHandler(&mockMessageService{err: service.ErrNoRecipient})

	w := httptest.NewRecorder()
	r := gin.New()
	r.POST("/deliveries/:id/summary/push", withLIFF(h.Push))
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/deliveries/abc/summary/push", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestMessageHandler_Push_AnonymousRejected(t *testing.T) {
	mock := &mockMessageService{}
	h := NewMessageHandler(mock)

	w := httptest.NewRecorder()
	r := gin.New()
	r.POST("/deliveries/:id/summary/push", h.Push)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/deliveries/abc/summary/push", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if mock.pushTo != "" {
		t.Errorf("expected no push, got one for %q", mock.pushTo)
	}
}

func TestMessageHandler_Push_NotOwner(t *testing.T) {
	h := NewMessageHandler(&mockMessageService{err: service.ErrRecipientMismatch})

	w := httptest.NewRecorder()
	r := gin.New()
	r.POST("/deliveries/:id/summary/push", withLIFF(h.Push))
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/deliveries/abc/summary/push", nil))

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_ExportDeliveries(t *testing.T) {
	h := NewExportHandler(&mockExportService{buf: bytes.NewBufferString("xlsx"), filename: "deliveries_20261019.xlsx"})

	w := httptest.NewRecorder()
	r := gin.New()
	r.GET("/export", h.ExportDeliveries)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/export?status=pending", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "deliveries_20261019.xlsx") {
		t.Errorf("unexpected content disposition %q", cd)
	}
}

func TestExportHandler_BadStatus(t *testing.T) {
	h := NewExportHandler(&mockExportService{})

	w := httptest.NewRecorder()
	r := gin.New()
	r.GET("/export", h.ExportDeliveries)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/export?status=lost", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestExportHandler_BadDate(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: pkgerrors.Invalid("from", "expected YYYY-MM-DD")})

	w := httptest.NewRecorder()
	r := gin.New()
	r.GET("/export", h.ExportDeliveries)
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/export?from=19-10-2026", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Details != "from" {
		t.Errorf("expected details from, got %q", resp.Details)
	}
}
