package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securelink-backend/internal/identity"
	"securelink-backend/internal/shared/config"
	"securelink-backend/internal/shared/events"
	localstore "securelink-backend/internal/shared/storage/object/local"
)

func devConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Env:             "dev",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		PublicBaseURL:   "http://api.test",
		JWTSecret:       "test-secret",
		InternalToken:   "internal",
		CORSAllowOrigin: []string{"http://localhost:5173"},
	}
}

func TestBuildInMemory(t *testing.T) {
	app, err := Build(devConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.Nil(t, app.DB)
	assert.Nil(t, app.Redis)
	assert.IsType(t, &localstore.Store{}, app.Store)
	assert.IsType(t, events.LogPublisher{}, app.Events)
	require.NotNil(t, app.Router)
}

func TestBuildRequiresDatabaseOutsideDev(t *testing.T) {
	cfg := devConfig(t)
	cfg.Env = "production"
	_, err := Build(cfg)
	require.Error(t, err)
}

func TestBuildRequiresBucketForS3(t *testing.T) {
	cfg := devConfig(t)
	cfg.ObjectStoreType = "s3"
	_, err := Build(cfg)
	require.Error(t, err)
}

func TestUploadListDownloadRoundTrip(t *testing.T) {
	app, err := Build(devConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	sess, err := app.IdentityService.SignInWithGoogle(context.Background(), identity.GoogleProfile{
		Sub: "g-1", Email: "asha@example.com", Name: "Asha", EmailVerified: true,
	})
	require.NoError(t, err)
	require.True(t, sess.Verified)

	content := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 512)...)
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("docType", "Passport"))
	require.NoError(t, w.WriteField("idNumber", "123456789012"))
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="passport.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	resp = httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var list struct {
		Documents []struct {
			ID          string `json:"id"`
			DownloadURL string `json:"downloadUrl"`
		} `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list.Documents, 1)

	link, err := url.Parse(list.Documents[0].DownloadURL)
	require.NoError(t, err)
	assert.Equal(t, "api.test", link.Host)

	resp = httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, link.RequestURI(), nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, content, resp.Body.Bytes())
}
