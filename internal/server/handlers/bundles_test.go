package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cryptoticket/rn-version-admin/internal/models"
	"github.com/cryptoticket/rn-version-admin/internal/server/middleware"
	"github.com/cryptoticket/rn-version-admin/internal/service"
	"github.com/cryptoticket/rn-version-admin/internal/services"
	"github.com/cryptoticket/rn-version-admin/internal/storage"
	"github.com/cryptoticket/rn-version-admin/internal/store"
)

type testApp struct {
	app     *fiber.App
	db      *gorm.DB
	issuer  *services.TokenIssuer
	users   *store.UserStore
	bundles *store.BundleStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Bundle{}))

	bundleStore := store.NewBundleStore(db)
	userStore := store.NewUserStore(db)
	backends := map[string]storage.Backend{
		models.StorageFile: storage.NewLocal(t.TempDir(), "http://localhost:8080"),
	}
	log := zap.NewNop()
	svc := service.NewBundles(bundleStore, backends, log)
	issuer := services.NewTokenIssuer("test-secret", time.Hour)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	registerTestRoutes(app, svc, bundleStore, userStore, issuer, log)
	return &testApp{app: app, db: db, issuer: issuer, users: userStore, bundles: bundleStore}
}

// registerTestRoutes mirrors server.RegisterRoutes without importing it
// (the server package imports handlers).
func registerTestRoutes(app *fiber.App, svc *service.Bundles, bundles *store.BundleStore, users *store.UserStore, issuer *services.TokenIssuer, log *zap.Logger) {
	bh := NewBundles(svc, 20, log)
	uh := NewUsers(users, 20, log)

	session := middleware.SessionRequired(issuer)
	apiToken := middleware.APITokenRequired(users)

	api := app.Group("/api/v1")
	api.Post("/bundles", apiToken, bh.Create)
	api.Get("/bundles", session, bh.List)
	api.Get("/bundles/latest/:platform", bh.Latest)
	api.Patch("/bundles/:id", session, bh.Update)
	api.Delete("/bundles/:id", session, bh.Delete)
	api.Post("/users", session, uh.Create)
	api.Get("/users", session, uh.List)
}

func (ta *testApp) adminToken(t *testing.T) string {
	t.Helper()
	token, err := ta.issuer.Sign(1, "admin@mail.com")
	require.NoError(t, err)
	return token
}

func (ta *testApp) seedBundle(t *testing.T, platform, version string, forced bool) *models.Bundle {
	t.Helper()
	b := &models.Bundle{
		Platform:         platform,
		Storage:          models.StorageFile,
		Version:          version,
		IsUpdateRequired: forced,
		URL:              "ANY",
	}
	require.NoError(t, ta.bundles.Create(context.Background(), b))
	return b
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, out))
}

func multipartBody(t *testing.T, fields map[string]string, withFile bool) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if withFile {
		fw, err := w.CreateFormFile("bundle", "bundle.js")
		require.NoError(t, err)
		_, err = fw.Write([]byte("var bundle = 1;"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestLatestInvalidPlatform(t *testing.T) {
	ta := newTestApp(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bundles/latest/INVALID", nil)
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLatestPrefersForced(t *testing.T) {
	ta := newTestApp(t)
	ta.seedBundle(t, "android", "1.0.0", true)
	ta.seedBundle(t, "android", "1.0.1", false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bundles/latest/android", nil)
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.Bundle
	decodeBody(t, resp, &got)
	assert.Equal(t, "1.0.0", got.Version)
}

func TestLatestReturnsMaxVersion(t *testing.T) {
	ta := newTestApp(t)
	ta.seedBundle(t, "android", "1.0.0", false)
	ta.seedBundle(t, "android", "2.0.0", false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bundles/latest/android", nil)
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)

	var got models.Bundle
	decodeBody(t, resp, &got)
	assert.Equal(t, "2.0.0", got.Version)
}

func TestLatestEmptyObjectWhenNoBundles(t *testing.T) {
	ta := newTestApp(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bundles/latest/android", nil)
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]interface{}
	decodeBody(t, resp, &got)
	assert.Empty(t, got)
}

func TestCreateRequiresAPIToken(t *testing.T) {
	ta := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bundles", nil)
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/bundles", nil)
	req.Header.Set("Authorization", "Bearer INVALID")
	resp, err = ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreateUploadsBundle(t *testing.T) {
	ta := newTestApp(t)
	admin, err := ta.users.Create(context.Background(), "admin@mail.com")
	require.NoError(t, err)

	body, contentType := multipartBody(t, map[string]string{
		"platform":           "android",
		"storage":            "file",
		"version":            "1.0.0",
		"is_update_required": "false",
	}, true)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bundles", body)
	req.Header.Set("Authorization", "Bearer "+admin.APIToken)
	req.Header.Set("Content-Type", contentType)

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.Bundle
	decodeBody(t, resp, &got)
	assert.Equal(t, "android", got.Platform)
	assert.Equal(t, "1.0.0", got.Version)
	assert.Contains(t, got.URL, "/static/bundles/1.0.0/android.bundle")
}

func TestCreateFieldValidation(t *testing.T) {
	ta := newTestApp(t)
	admin, err := ta.users.Create(context.Background(), "admin@mail.com")
	require.NoError(t, err)

	tests := []struct {
		name    string
		fields  map[string]string
		file    bool
		wantMsg string
	}{
		{
			"missing platform",
			map[string]string{"storage": "file", "version": "1.0.0", "is_update_required": "false"},
			true,
			"body should have required property 'platform'",
		},
		{
			"invalid version",
			map[string]string{"platform": "android", "storage": "file", "version": "INVALID", "is_update_required": "false"},
			true,
			"INVALID is not in a semver format",
		},
		{
			"invalid bool",
			map[string]string{"platform": "android", "storage": "file", "version": "1.0.0", "is_update_required": "INVALID"},
			true,
			"body.is_update_required should be boolean",
		},
		{
			"missing file",
			map[string]string{"platform": "android", "storage": "file", "version": "1.0.0", "is_update_required": "false"},
			false,
			"body should have required property 'bundle'",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartBody(t, tt.fields, tt.file)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/bundles", body)
			req.Header.Set("Authorization", "Bearer "+admin.APIToken)
			req.Header.Set("Content-Type", contentType)

			resp, err := ta.app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var got struct {
				Message string `json:"message"`
			}
			decodeBody(t, resp, &got)
			assert.Contains(t, got.Message, tt.wantMsg)
		})
	}
}

func TestCreateDuplicate(t *testing.T) {
	ta := newTestApp(t)
	admin, err := ta.users.Create(context.Background(), "admin@mail.com")
	require.NoError(t, err)
	ta.seedBundle(t, "android", "1.0.0", false)

	body, contentType := multipartBody(t, map[string]string{
		"platform":           "android",
		"storage":            "file",
		"version":            "1.0.0",
		"is_update_required": "false",
	}, true)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bundles", body)
	req.Header.Set("Authorization", "Bearer "+admin.APIToken)
	req.Header.Set("Content-Type", contentType)

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var got struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &got)
	assert.Contains(t, got.Error, "bundle is already uploaded for android platform and app version 1.0.0")
}

func TestListRequiresSession(t *testing.T) {
	ta := newTestApp(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bundles", nil)
	req.Header.Set("Authorization", "Bearer INVALID")
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListPaginationHeaders(t *testing.T) {
	ta := newTestApp(t)
	for i := 0; i < 25; i++ {
		ta.seedBundle(t, "android", fmt.Sprintf("1.0.%d", i), false)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bundles?page=0", nil)
	req.Header.Set("Authorization", "Bearer "+ta.adminToken(t))
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "25", resp.Header.Get("X-Total-Count"))
	assert.Equal(t, "20", resp.Header.Get("X-Limit"))
	assert.Equal(t, "0", resp.Header.Get("X-Page"))
	assert.Equal(t, "1", resp.Header.Get("X-Last-Page"))

	var got []models.Bundle
	decodeBody(t, resp, &got)
	assert.Len(t, got, 20)
	// version descending: 1.0.24 first
	assert.Equal(t, "1.0.24", got[0].Version)
}

func TestUpdateBundle(t *testing.T) {
	ta := newTestApp(t)
	b1 := ta.seedBundle(t, "android", "1.0.0", true)
	b2 := ta.seedBundle(t, "android", "2.0.0", false)
	token := ta.adminToken(t)

	patch := func(id uint, body string) *http.Response {
		req := httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/api/v1/bundles/%d", id), bytes.NewReader([]byte(body)))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		resp, err := ta.app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	// missing is_update_required
	resp := patch(b2.ID, `{"apply_from_version": "1.0.0"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var got struct {
		Message string `json:"message"`
	}
	decodeBody(t, resp, &got)
	assert.Equal(t, "body should have required property 'is_update_required'", got.Message)

	// apply_from_version not less than version
	resp = patch(b2.ID, `{"is_update_required": true, "apply_from_version": "2.0.0"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// unknown bundle
	resp = patch(999999, `{"is_update_required": true, "apply_from_version": "1.0.0"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	decodeBody(t, resp, &got)
	assert.Equal(t, "Bundle not found", got.Message)

	// forcing b2 clears the flag on b1
	resp = patch(b2.ID, `{"is_update_required": true, "apply_from_version": "1.0.0", "desc": "hotfix"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.Bundle
	decodeBody(t, resp, &updated)
	assert.True(t, updated.IsUpdateRequired)
	require.NotNil(t, updated.ApplyFromVersion)
	assert.Equal(t, "1.0.0", *updated.ApplyFromVersion)
	require.NotNil(t, updated.Desc)
	assert.Equal(t, "hotfix", *updated.Desc)

	other, err := ta.bundles.FindByID(context.Background(), b1.ID)
	require.NoError(t, err)
	assert.False(t, other.IsUpdateRequired)
}

func TestDeleteBundleNotFound(t *testing.T) {
	ta := newTestApp(t)
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/bundles/999999", nil)
	req.Header.Set("Authorization", "Bearer "+ta.adminToken(t))
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var got struct {
		Message string `json:"message"`
	}
	decodeBody(t, resp, &got)
	assert.Equal(t, "Bundle not found", got.Message)
}
