package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securelink-backend/internal/shared/server/middleware"
)

const testToken = "token-u"

func newTestRouter(t *testing.T) (*gin.Engine, *testEnv, *Tracker) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := newTestEnv(t)
	tracker := NewTracker(0)
	h := NewHandler(env.svc, tracker)

	authn := func(_ context.Context, token string) (middleware.Principal, error) {
		if token != testToken {
			return middleware.Principal{}, middleware.ErrUnauthenticated
		}
		return middleware.Principal{UID: "U", Verified: true, Token: token}, nil
	}
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.Auth(authn), middleware.RequireVerified())
	h.RegisterRoutes(api)
	return r, env, tracker
}

type formFilePart struct {
	name        string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, file *formFilePart) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+file.name+`"`)
		hdr.Set("Content-Type", file.contentType)
		part, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func doRequest(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func pngPart(name string, size int) *formFilePart {
	f := pngFile(name, size)
	return &formFilePart{name: name, contentType: f.ContentType, data: f.Content}
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	return env
}

func uploadRequest(t *testing.T, fields map[string]string, file *formFilePart) *http.Request {
	body, ct := multipartBody(t, fields, file)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", ct)
	return req
}

func TestUploadHandler(t *testing.T) {
	r, _, tracker := newTestRouter(t)

	req := uploadRequest(t, map[string]string{"docType": "PAN Card", "idNumber": "123456789012"}, pngPart("id1.png", 50*1024))
	req.Header.Set("X-Upload-Id", "up-1")
	resp := doRequest(r, req)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Equal(t, "up-1", resp.Header().Get("X-Upload-Id"))

	var body struct {
		Document documentResponse `json:"document"`
		Message  string           `json:"message"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "Document uploaded successfully!", body.Message)
	assert.Equal(t, "XXXXXXXX9012", body.Document.IDNumber)
	assert.Equal(t, "50 KiB", body.Document.FileSizeHuman)
	assert.NotNil(t, body.Document.CreatedAt)

	p, ok := tracker.Get("U", "up-1")
	require.True(t, ok)
	assert.Equal(t, UploadSucceeded, p.State)

	// Second upload of the same type.
	req = uploadRequest(t, map[string]string{"docType": "PAN Card", "aadhaar": "123456789012"}, pngPart("id2.png", 100))
	resp = doRequest(r, req)
	require.Equal(t, http.StatusConflict, resp.Code)
	env := decodeError(t, resp)
	assert.Equal(t, "duplicate_type", env.Error.Code)
	assert.Equal(t, "You have already uploaded a PAN Card. You can't upload more of the same type.", env.Error.Message)
}

func TestUploadHandlerValidationMessages(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		file   *formFilePart
		want   string
	}{
		{"no file", map[string]string{"docType": "Passport", "idNumber": "123456789012"}, nil, "Please fill all fields and upload a file."},
		{"bad id", map[string]string{"docType": "Passport", "idNumber": "123"}, pngPart("a.png", 10), "Aadhaar number must be exactly 12 digits."},
		{"too big", map[string]string{"docType": "Passport", "idNumber": "123456789012"}, pngPart("a.png", 200*1024), "File size exceeds 100 KiB limit."},
		{"gif", map[string]string{"docType": "Passport", "idNumber": "123456789012"}, &formFilePart{name: "a.gif", contentType: "image/gif", data: []byte("GIF89a")}, "Only JPG, PNG, and PDF files are allowed."},
		{"unknown type", map[string]string{"docType": "Library Card", "idNumber": "123456789012"}, pngPart("a.png", 10), "Please choose a valid document type."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, env, _ := newTestRouter(t)
			resp := doRequest(r, uploadRequest(t, tt.fields, tt.file))
			require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
			e := decodeError(t, resp)
			assert.Equal(t, "validation_error", e.Error.Code)
			assert.Equal(t, tt.want, e.Error.Message)
			assert.Empty(t, env.store.callLog())
		})
	}
}

func TestUploadHandlerRejectsOversizedBody(t *testing.T) {
	r, env, _ := newTestRouter(t)
	resp := doRequest(r, uploadRequest(t, map[string]string{"docType": "Passport", "idNumber": "123456789012"}, pngPart("a.png", 2*maxRequestSize)))
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	assert.Equal(t, "File size exceeds 100 KiB limit.", decodeError(t, resp).Error.Message)
	assert.Empty(t, env.store.callLog())
}

func TestUploadHandlerRequiresSession(t *testing.T) {
	r, _, _ := newTestRouter(t)
	req := uploadRequest(t, map[string]string{}, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestListDeleteShareHandlers(t *testing.T) {
	r, env, _ := newTestRouter(t)
	doc, err := env.svc.Upload(context.Background(), "U", validUpload(DocTypePassport, pngFile("p.png", 100)), nil)
	require.NoError(t, err)

	resp := doRequest(r, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	var list listResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "https://blobs.test/"+doc.FilePath, list.Documents[0].DownloadURL)

	resp = doRequest(r, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+doc.ID+"/share", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	var share shareResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &share))
	assert.Equal(t, "p.png", share.FileName)

	resp = doRequest(r, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+doc.ID+"/download", nil))
	require.Equal(t, http.StatusFound, resp.Code)
	assert.Equal(t, "https://blobs.test/"+doc.FilePath, resp.Header().Get("Location"))

	resp = doRequest(r, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+doc.ID, nil))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "confirmation_required", decodeError(t, resp).Error.Code)

	resp = doRequest(r, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+doc.ID+"?confirm=true", nil))
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = doRequest(r, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+doc.ID+"/share", nil))
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDeleteHandlerPartialFailure(t *testing.T) {
	r, env, _ := newTestRouter(t)
	doc, err := env.svc.Upload(context.Background(), "U", validUpload(DocTypePassport, pngFile("p.png", 100)), nil)
	require.NoError(t, err)
	env.repo.deleteErr = errBoom

	resp := doRequest(r, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+doc.ID+"?confirm=true", nil))
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	e := decodeError(t, resp)
	assert.Equal(t, "partial_failure", e.Error.Code)
	assert.Equal(t, "metadata", e.Error.Details["step"])
}

func TestReplaceHandler(t *testing.T) {
	r, env, _ := newTestRouter(t)
	doc, err := env.svc.Upload(context.Background(), "U", validUpload(DocTypePassport, pngFile("p.png", 100)), nil)
	require.NoError(t, err)

	body, ct := multipartBody(t, nil, pngPart("q.png", 200))
	req := httptest.NewRequest(http.MethodPut, "/api/v1/documents/"+doc.ID+"/file", body)
	req.Header.Set("Content-Type", ct)
	resp := doRequest(r, req)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var list listResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "q.png", list.Documents[0].FileName)
	assert.False(t, env.store.has(doc.FilePath))
}

func TestUploadProgressHandler(t *testing.T) {
	r, _, tracker := newTestRouter(t)
	tracker.Start("U", "up-9")(25, 100)
	tracker.Start("V", "up-other")

	resp := doRequest(r, httptest.NewRequest(http.MethodGet, "/api/v1/uploads/up-9", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	var p UploadProgress
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &p))
	assert.Equal(t, 25, p.Percent)

	resp = doRequest(r, httptest.NewRequest(http.MethodGet, "/api/v1/uploads/up-other", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestPolicyHandler(t *testing.T) {
	r, _, _ := newTestRouter(t)
	resp := doRequest(r, httptest.NewRequest(http.MethodGet, "/api/v1/policy/documents", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	var p policyResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &p))
	assert.Equal(t, int64(102400), p.MaxFileSize)
	assert.Equal(t, "100 KiB", p.MaxFileSizeHuman)
	assert.Len(t, p.DocTypes, 4)
}
