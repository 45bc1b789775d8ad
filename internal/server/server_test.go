package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gallery/internal/bucket"
	"gallery/internal/catalog"
	"gallery/internal/gallery"
	"gallery/internal/models"
	"gallery/internal/storage"
	"gallery/internal/upload"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRelay struct {
	sent []models.Inquiry
}

func (f *fakeRelay) Send(_ context.Context, inq models.Inquiry) error {
	if strings.TrimSpace(inq.Email) == "" {
		return fmt.Errorf("relay: %w", models.ErrInvalidInquiry)
	}
	f.sent = append(f.sent, inq)
	return nil
}

type fixture struct {
	srv     *Server
	client  *catalog.Client
	store   *storage.Memory
	relay   *fakeRelay
	handler http.Handler
}

func newFixture(t *testing.T, secret string) *fixture {
	t.Helper()
	cfg := models.DefaultConfig()
	cfg.AuthSecret = secret
	cfg.ContactRate = 2

	store := storage.NewMemory("http://localhost/files")
	client := catalog.New(store, catalog.Options{Group: cfg.Catalog.GroupPath})
	relay := &fakeRelay{}
	srv := NewServer(cfg, Deps{
		Catalog: client,
		Uploads: upload.New(client, upload.Config{}, discardLogger()),
		Relay:   relay,
		Files:   store,
	}, discardLogger())

	return &fixture{srv: srv, client: client, store: store, relay: relay, handler: srv.Handler()}
}

func (f *fixture) do(t *testing.T, req *http.Request, token string) *httptest.ResponseRecorder {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func chooseRequest(t *testing.T, data []byte, kind, category string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("bucket", kind))
	require.NoError(t, mw.WriteField("category", category))
	part, err := mw.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestUploadFlow(t *testing.T) {
	f := newFixture(t, testSecret)
	token, err := IssueToken(testSecret, "studio", time.Hour)
	require.NoError(t, err)

	rec := f.do(t, chooseRequest(t, pngBytes(t, 400, 300), "portfolio", "bridal"), token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decode[upload.Snapshot](t, rec)
	assert.Equal(t, "studio", snap.ID)
	assert.Equal(t, "file_chosen", snap.State)
	assert.Equal(t, "portfolio/Bridal", snap.Bucket)

	rec = f.do(t, jsonRequest(http.MethodPatch, "/api/uploads", `{"pan":{"x":0,"y":0},"zoom":1.5}`), token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	adjusted := decode[struct {
		Rect models.Rect `json:"rect"`
	}](t, rec)
	assert.Equal(t, models.Rect{X: 125, Y: 50, Width: 150, Height: 200}, adjusted.Rect)

	rec = f.do(t, httptest.NewRequest(http.MethodPost, "/api/uploads/confirm", nil), token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[upload.Result](t, rec)
	assert.Equal(t, []string{"Portfolio", "Bridal"}, res.Asset.Tags)
	require.Len(t, res.Images, 1)

	rec = f.do(t, httptest.NewRequest(http.MethodPost, "/api/uploads/confirm", nil), token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/images?category=Bridal", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[[]models.ImageAsset](t, rec)
	require.Len(t, listed, 1)
	assert.Equal(t, res.Asset.ID, listed[0].ID)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/files/"+res.Asset.ID+".jpg", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))

	rec = f.do(t, httptest.NewRequest(http.MethodDelete, "/api/images/"+res.Asset.ID, nil), token)
	require.Equal(t, http.StatusOK, rec.Code)
	after := decode[struct {
		Images []models.ImageAsset `json:"images"`
	}](t, rec)
	assert.Empty(t, after.Images)

	rec = f.do(t, httptest.NewRequest(http.MethodDelete, "/api/images/"+res.Asset.ID, nil), token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOperatorRoutesRequireToken(t *testing.T) {
	f := newFixture(t, testSecret)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/uploads", nil), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	forged, err := IssueToken("other-secret", "studio", time.Hour)
	require.NoError(t, err)
	rec = f.do(t, httptest.NewRequest(http.MethodDelete, "/api/images/x", nil), forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := IssueToken(testSecret, "studio", -time.Minute)
	require.NoError(t, err)
	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/uploads", nil), expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/images", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestSessionsArePerOperator(t *testing.T) {
	f := newFixture(t, testSecret)
	alice, err := IssueToken(testSecret, "alice", time.Hour)
	require.NoError(t, err)
	bob, err := IssueToken(testSecret, "bob", time.Hour)
	require.NoError(t, err)

	rec := f.do(t, chooseRequest(t, pngBytes(t, 20, 20), "hero", ""), alice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/uploads", nil), bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", decode[upload.Snapshot](t, rec).State)

	rec = f.do(t, httptest.NewRequest(http.MethodDelete, "/api/uploads", nil), alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", decode[upload.Snapshot](t, rec).State)
}

func TestChooseErrors(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, chooseRequest(t, pngBytes(t, 20, 20), "portfolio", "Wedding"), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, chooseRequest(t, []byte("garbage"), "hero", ""), "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, upload.StageDecode, body["stage"])

	rec = f.do(t, jsonRequest(http.MethodPatch, "/api/uploads", `{"zoom":2}`), "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, httptest.NewRequest(http.MethodPost, "/api/uploads/confirm", nil), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGalleryAndHero(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/hero", nil), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, err := f.client.Create(ctx, pngBytes(t, 8, 8), bucket.HeroBucket())
	require.NoError(t, err)
	newest, err := f.client.Create(ctx, pngBytes(t, 8, 8), bucket.HeroBucket())
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		_, err := f.client.Create(ctx, pngBytes(t, 6, 8), bucket.PortfolioBucket(bucket.Guest))
		require.NoError(t, err)
	}

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/hero", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, newest.ID, decode[models.ImageAsset](t, rec).ID)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/gallery?category=guest", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[gallery.Page](t, rec)
	assert.Equal(t, "Guest", page.Filter)
	assert.Len(t, page.Items, gallery.PageSize)
	assert.Equal(t, 8, page.Total)
	assert.True(t, page.HasMore)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/gallery?visible=12", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[gallery.Page](t, rec)
	assert.Len(t, page.Items, 8, "hero images stay out of the portfolio")
	assert.False(t, page.HasMore)
	assert.True(t, page.CanShowLess)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/gallery?category=Nope", nil), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/gallery?visible=many", nil), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGalleryFilters(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/gallery/filters", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[struct {
		Filters  []string `json:"filters"`
		PageSize int      `json:"pageSize"`
	}](t, rec)
	assert.Equal(t, []string{"All", "Bridal", "Guest", "Festival"}, got.Filters)
	assert.Equal(t, gallery.PageSize, got.PageSize)
}

func TestGalleryViewSteps(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	for i := 0; i < 14; i++ {
		_, err := f.client.Create(ctx, pngBytes(t, 6, 8), bucket.PortfolioBucket(bucket.Bridal))
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := f.client.Create(ctx, pngBytes(t, 6, 8), bucket.PortfolioBucket(bucket.Festival))
		require.NoError(t, err)
	}

	tests := []struct {
		name        string
		query       string
		wantFilter  string
		wantVisible int
		wantItems   int
		wantMore    bool
		wantLess    bool
	}{
		{"fresh view", "", "All", 6, 6, true, false},
		{"show more from fresh", "?action=more", "All", 12, 12, true, true},
		{"show more twice", "?visible=12&action=more", "All", 18, 17, false, true},
		{"show less resets", "?visible=18&action=less", "All", 6, 6, true, false},
		{"select resets visible", "?visible=18&select=festival", "Festival", 6, 3, false, false},
		{"select same filter keeps visible", "?category=bridal&visible=12&select=Bridal", "Bridal", 12, 12, true, true},
		{"select then more", "?category=festival&select=bridal&action=more", "Bridal", 12, 12, true, true},
		{"short visible raised to a page", "?category=bridal&visible=2", "Bridal", 6, 6, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/gallery"+tt.query, nil), "")
			require.Equal(t, http.StatusOK, rec.Code)

			page := decode[gallery.Page](t, rec)
			assert.Equal(t, tt.wantFilter, page.Filter)
			assert.Equal(t, tt.wantVisible, page.Visible)
			assert.Len(t, page.Items, tt.wantItems)
			assert.Equal(t, tt.wantMore, page.HasMore)
			assert.Equal(t, tt.wantLess, page.CanShowLess)
		})
	}

	for _, query := range []string{"?action=sideways", "?select=Nope"} {
		rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/gallery"+query, nil), "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestContact(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, jsonRequest(http.MethodPost, "/api/contact", `{"name":"Asha","email":"asha@example.com","message":"Hi"}`), "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, f.relay.sent, 1)

	rec = f.do(t, jsonRequest(http.MethodPost, "/api/contact", `{"name":"Asha","message":"Hi"}`), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Two per minute: the third request from the same IP is throttled.
	rec = f.do(t, jsonRequest(http.MethodPost, "/api/contact", `{"name":"Asha","email":"asha@example.com","message":"Hi"}`), "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Len(t, f.relay.sent, 1)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	f.srv.deps.Health = func(context.Context) error { return errors.New("db down") }
	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrInvalidSelection, http.StatusUnprocessableEntity},
		{&upload.StageError{Stage: upload.StageRasterize, Err: models.ErrEncodingFailed}, http.StatusUnprocessableEntity},
		{fmt.Errorf("catalog.Create: %w", models.ErrStoreRejected), http.StatusUnprocessableEntity},
		{fmt.Errorf("catalog.List: %w", models.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{models.ErrUploadInProgress, http.StatusConflict},
		{models.ErrInvalidTransition, http.StatusConflict},
		{models.ErrNotFound, http.StatusNotFound},
		{models.ErrInvalidInquiry, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestIPLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newIPLimiter(2)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("1.1.1.1"))
	assert.True(t, l.allow("1.1.1.1"))
	assert.False(t, l.allow("1.1.1.1"))
	assert.True(t, l.allow("2.2.2.2"))

	now = now.Add(30 * time.Second)
	assert.True(t, l.allow("1.1.1.1"))

	now = now.Add(limiterIdleTTL + time.Second)
	l.allow("3.3.3.3")
	assert.NotContains(t, l.visitors, "2.2.2.2")
}
