package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/photolog/internal/auth"
	"github.com/sakif/photolog/internal/model"
	sqliteRepo "github.com/sakif/photolog/internal/repository/sqlite"
	"github.com/sakif/photolog/internal/server"
)

// memAssets is an in-memory object store.
type memAssets struct {
	mu      sync.Mutex
	n       int
	deleted []string
}

func (m *memAssets) Upload(_ context.Context, folder string, data []byte, _ string) (model.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	key := fmt.Sprintf("%s/obj%d", folder, m.n)
	return model.Asset{
		URL:          "http://cdn.test/photolog/" + key + ".png",
		ThumbnailURL: "http://cdn.test/photolog/" + key + "-thumb.jpg",
		PublicID:     key,
		Size:         int64(len(data)),
	}, nil
}

func (m *memAssets) Delete(_ context.Context, publicID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, publicID)
	return nil
}

// sent is one notification the recorder saw.
type sent struct {
	Kind, To, Event string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (n *recordingNotifier) SendApproved(_ context.Context, to, eventName, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{"approved", to, eventName})
	return nil
}

func (n *recordingNotifier) SendRejected(_ context.Context, to, eventName, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{"rejected", to, eventName})
	return nil
}

type testApp struct {
	t        *testing.T
	handler  http.Handler
	tokens   *auth.HMACVerifier
	assets   *memAssets
	notifier *recordingNotifier
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqliteRepo.New(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewHMACVerifier("server-test-secret-0123456789")
	require.NoError(t, err)

	app := &testApp{t: t, tokens: tokens, assets: &memAssets{}, notifier: &recordingNotifier{}}
	srv, err := server.New(server.Config{
		Port:        8000,
		CORSOrigins: []string{"http://localhost:5173"},
		FrontendURL: "https://photolog.test",
		AdminEmails: []string{"admin@photolog.com"},
	}, server.Deps{
		DB:        db,
		Verifier:  tokens,
		Assets:    app.assets,
		Notifier:  app.notifier,
		Passwords: auth.NewPasswordServiceForTest(bcrypt.MinCost),
	}, logger)
	require.NoError(t, err)
	app.handler = srv.Handler()
	return app
}

func (a *testApp) token(subject, email string) string {
	a.t.Helper()
	tok, err := a.tokens.Issue(model.Identity{Subject: subject, Email: email, EmailVerified: true}, time.Hour)
	require.NoError(a.t, err)
	return tok
}

func (a *testApp) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func (a *testApp) doJSON(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(b)
	}
	return a.do(method, path, token, r, "application/json")
}

// upload posts a multipart form with an image part named "file".
func (a *testApp) upload(path, token string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(a.t, mw.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="photo.png"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	require.NoError(a.t, err)
	_, err = part.Write(data)
	require.NoError(a.t, err)
	require.NoError(a.t, mw.Close())
	return a.do(http.MethodPost, path, token, &buf, mw.FormDataContentType())
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}

type errorBody struct {
	Detail     string `json:"detail"`
	StatusCode int    `json:"status_code"`
}

type eventBody struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	HasPassword bool   `json:"has_password"`
	ShareLink   string `json:"share_link"`
	PhotoCount  int    `json:"photo_count"`
	IsArchived  bool   `json:"is_archived"`
}

type photoBody struct {
	ID         string  `json:"id"`
	Approved   bool    `json:"approved"`
	UploadedBy *string `json:"uploaded_by"`
}

type photoListBody struct {
	Photos  []photoBody `json:"photos"`
	Total   int         `json:"total"`
	HasMore bool        `json:"has_more"`
}

func (a *testApp) createEvent(token string, body map[string]any) eventBody {
	a.t.Helper()
	rr := a.doJSON(http.MethodPost, "/events", token, body)
	require.Equal(a.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[eventBody](a.t, rr)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/", "/health"} {
		rr := app.do(http.MethodGet, path, "", nil, "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"healthy","service":"PhotoLog API"}`, rr.Body.String())
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(http.MethodGet, "/nope", "", nil, "")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, errorBody{Detail: "Not Found", StatusCode: 404}, decode[errorBody](t, rr))
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	app := newTestApp(t)

	t.Run("missing header", func(t *testing.T) {
		rr := app.do(http.MethodGet, "/events", "", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
		assert.Equal(t, "Not authenticated", decode[errorBody](t, rr).Detail)
	})

	t.Run("bad token", func(t *testing.T) {
		rr := app.do(http.MethodGet, "/me", "not-a-jwt", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Invalid authentication credentials", decode[errorBody](t, rr).Detail)
	})

	t.Run("public routes are open", func(t *testing.T) {
		rr := app.do(http.MethodGet, "/public/events/missing", "", nil, "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "Event not found or not available for public access.", decode[errorBody](t, rr).Detail)
	})
}

func TestSigninKeepsStoredID(t *testing.T) {
	app := newTestApp(t)

	type signin struct {
		User struct {
			UID   string `json:"uid"`
			Email string `json:"email"`
		} `json:"user"`
	}

	rr := app.doJSON(http.MethodPost, "/auth/signin", "", map[string]string{"token": app.token("sub-1", "host@example.com")})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "sub-1", decode[signin](t, rr).User.UID)

	rr = app.doJSON(http.MethodPost, "/auth/signin", "", map[string]string{"token": app.token("sub-2", "host@example.com")})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "sub-1", decode[signin](t, rr).User.UID)

	// Events created under the new subject still belong to the stored user.
	ev := app.createEvent(app.token("sub-2", "host@example.com"), map[string]any{"name": "Party"})
	rr = app.doJSON(http.MethodGet, "/events/"+ev.ID, app.token("sub-1", "host@example.com"), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestEmailChangeKeepsAccount(t *testing.T) {
	app := newTestApp(t)
	ev := app.createEvent(app.token("sub-1", "old@example.com"), map[string]any{"name": "Party"})

	changed := app.token("sub-1", "new@example.com")

	rr := app.doJSON(http.MethodGet, "/me", changed, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	me := decode[map[string]any](t, rr)
	assert.Equal(t, "sub-1", me["uid"])
	assert.Equal(t, "new@example.com", me["email"])

	rr = app.doJSON(http.MethodGet, "/events/"+ev.ID, changed, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	app.createEvent(changed, map[string]any{"name": "Second"})
}

func TestAdminSignin(t *testing.T) {
	app := newTestApp(t)

	rr := app.doJSON(http.MethodPost, "/admin/auth/signin", "", map[string]string{"token": app.token("u1", "host@example.com")})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "Admin access required", decode[errorBody](t, rr).Detail)

	rr = app.doJSON(http.MethodPost, "/admin/auth/signin", "", map[string]string{"token": app.token("a1", "Admin@PhotoLog.com")})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = app.doJSON(http.MethodPost, "/admin/auth/refresh", app.token("u1", "host@example.com"),
		map[string]string{"token": app.token("u1", "host@example.com")})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestSigninValidation(t *testing.T) {
	app := newTestApp(t)

	rr := app.doJSON(http.MethodPost, "/auth/signin", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Field 'token' is required.", decode[errorBody](t, rr).Detail)

	rr = app.do(http.MethodPost, "/auth/signin", "", strings.NewReader("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEventAndModerationFlow(t *testing.T) {
	app := newTestApp(t)
	host := app.token("host-1", "host@example.com")

	ev := app.createEvent(host, map[string]any{"name": "  Wedding  ", "password": "letmein"})
	assert.Equal(t, "Wedding", ev.Name)
	assert.True(t, ev.HasPassword)
	assert.Equal(t, "https://photolog.test/e/"+ev.ID, ev.ShareLink)

	public := "/public/events/" + ev.ID

	rr := app.do(http.MethodGet, public, "", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	pub := decode[map[string]any](t, rr)
	assert.Equal(t, true, pub["has_password"])
	assert.NotContains(t, pub, "share_link")

	// The password gate runs before anything about the file.
	rr = app.upload(public+"/photos", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Password required to upload photos to this event.", decode[errorBody](t, rr).Detail)

	rr = app.upload(public+"/photos", "", []byte("png"), map[string]string{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Incorrect password.", decode[errorBody](t, rr).Detail)

	rr = app.upload(public+"/photos", "", []byte("png"), map[string]string{
		"password": "letmein",
		"email":    "  guest@example.com ",
		"caption":  "us!",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	guestPhoto := decode[photoBody](t, rr)
	assert.False(t, guestPhoto.Approved)
	require.NotNil(t, guestPhoto.UploadedBy)
	assert.Equal(t, "guest@example.com", *guestPhoto.UploadedBy)

	rr = app.do(http.MethodGet, public+"/photos", "", nil, "")
	assert.Equal(t, 0, decode[photoListBody](t, rr).Total)

	rr = app.doJSON(http.MethodGet, "/events/"+ev.ID, host, nil)
	assert.Equal(t, 1, decode[eventBody](t, rr).PhotoCount)

	photoPath := "/events/" + ev.ID + "/photos/" + guestPhoto.ID

	rr = app.doJSON(http.MethodPatch, photoPath, host, map[string]any{"approved": true})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, decode[photoBody](t, rr).Approved)

	// Same value again: no second notification.
	rr = app.doJSON(http.MethodPatch, photoPath, host, map[string]any{"approved": true})
	require.Equal(t, http.StatusOK, rr.Code)

	// Caption only: approved absent, no notification.
	rr = app.doJSON(http.MethodPatch, photoPath, host, map[string]any{"caption": nil})
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, []sent{{"approved", "guest@example.com", "Wedding"}}, app.notifier.sent)

	rr = app.do(http.MethodGet, public, "", nil, "")
	assert.Equal(t, float64(1), decode[map[string]any](t, rr)["photo_count"])

	rr = app.do(http.MethodGet, public+"/photos", "", nil, "")
	list := decode[photoListBody](t, rr)
	assert.Equal(t, 1, list.Total)
	assert.False(t, list.HasMore)
}

func TestPatchRejectsNullForNonNullableFields(t *testing.T) {
	app := newTestApp(t)
	host := app.token("host-1", "host@example.com")
	ev := app.createEvent(host, map[string]any{"name": "Open"})
	public := "/public/events/" + ev.ID

	rr := app.upload(public+"/photos", "", []byte("png"), map[string]string{"email": "guest@example.com"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	photoPath := "/events/" + ev.ID + "/photos/" + decode[photoBody](t, rr).ID

	rr = app.doJSON(http.MethodPatch, photoPath, host, map[string]any{"approved": true})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = app.doJSON(http.MethodPatch, photoPath, host, map[string]any{"approved": nil})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Len(t, app.notifier.sent, 1, "no rejection mail for a null approval")
	rr = app.do(http.MethodGet, public+"/photos", "", nil, "")
	assert.Equal(t, 1, decode[photoListBody](t, rr).Total)

	for _, field := range []string{"name", "is_active", "is_archived"} {
		rr = app.doJSON(http.MethodPatch, "/events/"+ev.ID, host, map[string]any{field: nil})
		assert.Equal(t, http.StatusBadRequest, rr.Code, field)
	}
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, public, "", nil, "").Code)
}

func TestMultiBytePasswordOverBcryptLimit(t *testing.T) {
	app := newTestApp(t)
	host := app.token("host-1", "host@example.com")

	rr := app.doJSON(http.MethodPost, "/events", host, map[string]any{
		"name":     "Locked",
		"password": strings.Repeat("密", 30),
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())

	ev := app.createEvent(host, map[string]any{"name": "Locked", "password": strings.Repeat("密", 24)})
	assert.True(t, ev.HasPassword)

	rr = app.doJSON(http.MethodPatch, "/events/"+ev.ID, host, map[string]any{"password": strings.Repeat("密", 30)})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHostUploadIsApprovedAndCountsToStorage(t *testing.T) {
	app := newTestApp(t)
	host := app.token("host-1", "host@example.com")
	ev := app.createEvent(host, map[string]any{"name": "Gala"})

	rr := app.upload("/events/"+ev.ID+"/photos", host, bytes.Repeat([]byte{1}, 2048), map[string]string{"caption": "stage"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	p := decode[photoBody](t, rr)
	assert.True(t, p.Approved)
	require.NotNil(t, p.UploadedBy)
	assert.Equal(t, "host-1", *p.UploadedBy)

	rr = app.doJSON(http.MethodGet, "/me/storage", host, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	storage := decode[map[string]any](t, rr)
	assert.Equal(t, float64(2048), storage["used_bytes"])
	assert.Equal(t, float64(1<<30), storage["limit_bytes"])
}

func TestOwnershipIsEnforced(t *testing.T) {
	app := newTestApp(t)
	owner := app.token("owner", "owner@example.com")
	other := app.token("other", "other@example.com")
	ev := app.createEvent(owner, map[string]any{"name": "Private"})

	rr := app.doJSON(http.MethodGet, "/events/"+ev.ID, other, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, errorBody{
		Detail:     "You do not have permission to perform this action on the specified event.",
		StatusCode: 403,
	}, decode[errorBody](t, rr))

	rr = app.doJSON(http.MethodDelete, "/events/"+ev.ID, other, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = app.doJSON(http.MethodGet, "/events/does-not-exist", owner, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBulkArchiveHidesEvent(t *testing.T) {
	app := newTestApp(t)
	host := app.token("host-1", "host@example.com")
	a := app.createEvent(host, map[string]any{"name": "A"})
	b := app.createEvent(host, map[string]any{"name": "B"})

	rr := app.doJSON(http.MethodPost, "/events/actions/bulk", host, map[string]any{
		"event_ids": []string{a.ID, "unknown"},
		"action":    "archive",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"message":"Successfully performed action 'archive' on 1 event(s).","affected":1}`, rr.Body.String())

	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/public/events/"+a.ID, "", nil, "").Code)
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/public/events/"+b.ID, "", nil, "").Code)

	rr = app.doJSON(http.MethodPost, "/events/actions/bulk", host, map[string]any{
		"event_ids": []string{b.ID},
		"action":    "explode",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/public/events/"+b.ID, "", nil, "").Code)
}

func TestEventListPagination(t *testing.T) {
	app := newTestApp(t)
	host := app.token("host-1", "host@example.com")
	for i := 0; i < 12; i++ {
		app.createEvent(host, map[string]any{"name": fmt.Sprintf("E%d", i)})
	}

	rr := app.doJSON(http.MethodGet, "/events", host, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[map[string]any](t, rr)
	assert.Equal(t, float64(12), body["total"])
	assert.Equal(t, float64(10), body["page_size"])
	assert.Equal(t, true, body["has_more"])
	assert.Len(t, body["events"], 10)

	rr = app.doJSON(http.MethodGet, "/events?page=2", host, nil)
	body = decode[map[string]any](t, rr)
	assert.Len(t, body["events"], 2)
	assert.Equal(t, false, body["has_more"])

	for _, q := range []string{"page=0", "page_size=101", "page=abc"} {
		rr = app.doJSON(http.MethodGet, "/events?"+q, host, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

func TestQRCodeAndExport(t *testing.T) {
	app := newTestApp(t)
	host := app.token("host-1", "host@example.com")
	ev := app.createEvent(host, map[string]any{"name": "QR"})

	rr := app.doJSON(http.MethodGet, "/events/"+ev.ID+"/qr", host, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")))

	rr = app.doJSON(http.MethodGet, "/events/"+ev.ID+"/qr?box_size=41", host, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = app.doJSON(http.MethodPost, "/events/"+ev.ID+"/download", host, nil)
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
	assert.Equal(t, "ZIP export functionality is not yet implemented.", decode[errorBody](t, rr).Detail)
}

func TestDeleteEventRemovesAssets(t *testing.T) {
	app := newTestApp(t)
	host := app.token("host-1", "host@example.com")
	ev := app.createEvent(host, map[string]any{"name": "Gone"})

	require.Equal(t, http.StatusCreated, app.upload("/events/"+ev.ID+"/photos", host, []byte("a"), nil).Code)
	require.Equal(t, http.StatusOK, app.upload("/events/"+ev.ID+"/cover", host, []byte("b"), nil).Code)

	rr := app.doJSON(http.MethodDelete, "/events/"+ev.ID, host, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"message":"Event '%s' and all associated assets have been deleted."}`, ev.ID), rr.Body.String())
	assert.ElementsMatch(t, []string{"photos/obj1", "covers/obj2"}, app.assets.deleted)

	assert.Equal(t, http.StatusNotFound, app.doJSON(http.MethodGet, "/events/"+ev.ID, host, nil).Code)
}

func TestPublicUploadSizeLimit(t *testing.T) {
	app := newTestApp(t)
	host := app.token("host-1", "host@example.com")
	ev := app.createEvent(host, map[string]any{"name": "Open"})

	rr := app.upload("/public/events/"+ev.ID+"/photos", "", make([]byte, 10<<20+1), nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "File size exceeds maximum allowed size (10MB).", decode[errorBody](t, rr).Detail)

	rr = app.upload("/public/events/"+ev.ID+"/photos", "", make([]byte, 10<<20), nil)
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestPublicUploadToHiddenEventIsNotFoundBeforeSizeCheck(t *testing.T) {
	app := newTestApp(t)
	host := app.token("host-1", "host@example.com")
	ev := app.createEvent(host, map[string]any{"name": "Done"})
	rr := app.doJSON(http.MethodPatch, "/events/"+ev.ID, host, map[string]any{"is_archived": true})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	for _, slug := range []string{ev.ID, "missing"} {
		rr = app.upload("/public/events/"+slug+"/photos", "", make([]byte, 12<<20), nil)
		assert.Equal(t, http.StatusNotFound, rr.Code, slug)
		assert.Equal(t, "Event not found or not available for public access.", decode[errorBody](t, rr).Detail)
	}
}

func TestVerifyPassword(t *testing.T) {
	app := newTestApp(t)
	host := app.token("host-1", "host@example.com")
	locked := app.createEvent(host, map[string]any{"name": "Locked", "password": "pass"})
	open := app.createEvent(host, map[string]any{"name": "Open"})

	form := func(pw string) io.Reader { return strings.NewReader("password=" + pw) }
	const ct = "application/x-www-form-urlencoded"

	rr := app.do(http.MethodPost, "/public/events/"+open.ID+"/verify-password", "", form(""), ct)
	assert.JSONEq(t, `{"message":"No password required for this event."}`, rr.Body.String())

	rr = app.do(http.MethodPost, "/public/events/"+locked.ID+"/verify-password", "", form("pass"), ct)
	assert.JSONEq(t, `{"message":"Password verified successfully."}`, rr.Body.String())

	rr = app.do(http.MethodPost, "/public/events/"+locked.ID+"/verify-password", "", form("nope"), ct)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestProfile(t *testing.T) {
	app := newTestApp(t)
	host := app.token("host-1", "host@example.com")

	rr := app.doJSON(http.MethodGet, "/me", host, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	me := decode[map[string]any](t, rr)
	assert.Equal(t, "host-1", me["uid"])
	assert.Equal(t, true, me["email_verified"])

	rr = app.doJSON(http.MethodPatch, "/me", host, map[string]any{"name": "  Sam  "})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Sam", decode[map[string]any](t, rr)["name"])

	rr = app.doJSON(http.MethodPatch, "/me", host, map[string]any{})
	assert.Equal(t, "Sam", decode[map[string]any](t, rr)["name"])

	rr = app.doJSON(http.MethodPatch, "/me", host, map[string]any{"name": nil})
	assert.Nil(t, decode[map[string]any](t, rr)["name"])
}

func TestCORSPreflight(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/events", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	app.handler.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := server.New(server.Config{}, server.Deps{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
