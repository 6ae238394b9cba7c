package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ovoice-go/internal/auth"
	"github.com/olegiv/ovoice-go/internal/cache"
	"github.com/olegiv/ovoice-go/internal/degrade"
	"github.com/olegiv/ovoice-go/internal/middleware"
	"github.com/olegiv/ovoice-go/internal/moderation"
	"github.com/olegiv/ovoice-go/internal/store"
	"github.com/olegiv/ovoice-go/internal/testutil"
)

const testPassword = "correct-horse-battery"

type testEnv struct {
	q      *store.Queries
	auth   *auth.Service
	router http.Handler
}

type envelope struct {
	OK       bool            `json:"ok"`
	Data     json.RawMessage `json:"data"`
	Error    *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Degraded bool `json:"degraded"`
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	return newTestEnvWithDB(t, db)
}

func newTestEnvWithDB(t *testing.T, db *sql.DB) *testEnv {
	t.Helper()
	q := store.New(db)
	as := auth.NewService(q, auth.NewTokenCodec("test-secret"), auth.ServiceConfig{SeedPassword: testPassword})
	mc := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute, MaxSize: 100})
	t.Cleanup(func() { _ = mc.Close() })
	ms := moderation.NewService(q, mc, time.Minute)

	lp := middleware.NewLoginProtection(middleware.LoginProtectionConfig{IPRateLimit: 100, IPBurst: 100})
	t.Cleanup(lp.Close)

	h := NewHandler(as, ms, lp).WithEvents(q)
	return &testEnv{
		q:    q,
		auth: as,
		router: h.Routes(RoutesConfig{
			SubmitRate: 100,
			CSRF:       middleware.DefaultCSRFConfig("test-secret", false),
		}),
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return rec, env
}

func (e *testEnv) adminCookie() *http.Cookie {
	return &http.Cookie{Name: auth.CookieName, Value: e.auth.Codec().Issue()}
}

func (e *testEnv) seedVoice(t *testing.T, id, status string, at time.Time) {
	t.Helper()
	_, err := e.q.CreateVoice(context.Background(), store.CreateVoiceParams{
		ID:        id,
		Message:   "a seeded voice " + id + " with enough characters",
		TopicTags: sql.NullString{String: "parks", Valid: true},
		Status:    status,
		CreatedAt: at,
	})
	require.NoError(t, err)
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestCreateVoice(t *testing.T) {
	e := newTestEnv(t)

	rec, env := e.do(t, http.MethodPost, "/voices",
		`{"message":"  <b>Hello</b> from the riverside, thank you all  ","topicTags":["parks"," <benches>",""]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.OK)
	assert.False(t, env.Degraded)

	ack := decodeData[SubmitResponse](t, env)
	assert.True(t, ack.Pending)
	assert.Equal(t, moderation.AckMessage, ack.Message)
	require.NotEmpty(t, ack.ID)

	v, err := e.q.GetVoice(context.Background(), ack.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPending, v.Status)
	assert.Equal(t, "Hello from the riverside, thank you all", v.Message)
	assert.Equal(t, "parks,benches", v.TopicTags.String)
}

func TestCreateVoice_TagsAsString(t *testing.T) {
	e := newTestEnv(t)

	_, env := e.do(t, http.MethodPost, "/voices", `{"message":"a message that is long enough to pass","topicTags":"a, b"}`)
	ack := decodeData[SubmitResponse](t, env)

	v, err := e.q.GetVoice(context.Background(), ack.ID)
	require.NoError(t, err)
	assert.Equal(t, "a,b", v.TopicTags.String)
}

func TestCreateVoice_Validation(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"missing message", `{}`, "Message is required"},
		{"too short", `{"message":"too short"}`, "Message must be at least 20 characters"},
		{"too long", `{"message":"` + strings.Repeat("x", 2001) + `"}`, "Message must be at most 2000 characters"},
		{"malformed JSON", `{"message":`, "Invalid request body format"},
		{"trailing data", `{"message":"a message that is long enough"} {}`, "Invalid request body format"},
		{"wrong tag type", `{"message":"a message that is long enough","topicTags":7}`, "Invalid request body format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := e.do(t, http.MethodPost, "/voices", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, env.OK)
			require.NotNil(t, env.Error)
			assert.Equal(t, CodeValidation, env.Error.Code)
			assert.Equal(t, tt.message, env.Error.Message)
		})
	}
}

func TestCreateVoice_BodyTooLarge(t *testing.T) {
	e := newTestEnv(t)

	rec, env := e.do(t, http.MethodPost, "/voices", `{"message":"`+strings.Repeat("x", maxBodyBytes)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeValidation, env.Error.Code)
}

func TestListVoices(t *testing.T) {
	e := newTestEnv(t)
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	e.seedVoice(t, "old", store.StatusApproved, base)
	e.seedVoice(t, "new", store.StatusApproved, base.Add(time.Hour))
	e.seedVoice(t, "hidden", store.StatusPending, base.Add(2*time.Hour))

	rec, env := e.do(t, http.MethodGet, "/voices?size=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.OK)

	page := decodeData[PageResponse[VoiceResponse]](t, env)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "new", page.Items[0].ID)
	assert.Equal(t, "parks", *page.Items[0].TopicTags)
	assert.Empty(t, page.Items[0].Status, "public listing must not expose status")
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, int64(2), page.TotalPages)
	assert.True(t, page.HasMore)

	_, env = e.do(t, http.MethodGet, "/voices?sort=oldest&page=abc&size=0", "")
	page = decodeData[PageResponse[VoiceResponse]](t, env)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 12, page.Size)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "old", page.Items[0].ID)
}

func TestComments(t *testing.T) {
	e := newTestEnv(t)

	rec, env := e.do(t, http.MethodPost, "/comments", `{"message":"a comment sent with the message field"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	ack := decodeData[SubmitResponse](t, env)

	_, env = e.do(t, http.MethodGet, "/comments", "")
	page := decodeData[PageResponse[CommentResponse]](t, env)
	assert.Empty(t, page.Items, "pending comments must not be listed")
	assert.Equal(t, 20, page.Size)

	rec, _ = e.do(t, http.MethodPatch, "/admin/comments/"+ack.ID, `{"status":"approved"}`, e.adminCookie())
	require.Equal(t, http.StatusOK, rec.Code)

	_, env = e.do(t, http.MethodGet, "/comments", "")
	page = decodeData[PageResponse[CommentResponse]](t, env)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "a comment sent with the message field", page.Items[0].Message)
	assert.Equal(t, page.Items[0].Message, page.Items[0].Content)

	rec, env = e.do(t, http.MethodPost, "/comments", `{"content":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Content must be at least 20 characters", env.Error.Message)
}

func TestPublicEndpoints_Degraded(t *testing.T) {
	e := newTestEnvWithDB(t, testutil.ClosedDB(t))

	for _, path := range []string{"/voices", "/comments"} {
		rec, env := e.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.True(t, env.OK, path)
		assert.True(t, env.Degraded, path)
		page := decodeData[PageResponse[json.RawMessage]](t, env)
		assert.Empty(t, page.Items, path)
		assert.NotNil(t, page.Items, "items must encode as [] for %s", path)
		assert.Zero(t, page.Total, path)
	}

	rec, env := e.do(t, http.MethodPost, "/voices", `{"message":"a message written while storage is down"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, env.OK)
	assert.True(t, env.Degraded)
	require.NotNil(t, env.Error)
	assert.Equal(t, degrade.CodeConnection, env.Error.Code)
	ack := decodeData[SubmitResponse](t, env)
	assert.True(t, ack.Pending)
	assert.Equal(t, moderation.DegradedMessage, ack.Message)
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)

	rec, env := e.do(t, http.MethodPost, "/admin/login", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Password is required", env.Error.Message)

	rec, env = e.do(t, http.MethodPost, "/admin/login", `{"password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, middleware.CodeUnauthorized, env.Error.Code)
	assert.Empty(t, rec.Result().Cookies())

	rec, env = e.do(t, http.MethodPost, "/admin/login", `{"password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.OK)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, auth.CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, int(auth.MaxAge.Seconds()), c.MaxAge)
	assert.True(t, e.auth.Codec().Verify(c.Value))

	_, env = e.do(t, http.MethodGet, "/admin/session", "", c)
	sess := decodeData[SessionResponse](t, env)
	assert.True(t, sess.Authenticated)
	require.NotNil(t, sess.ExpiresAt)
	assert.Equal(t, auth.MaxAge, sess.ExpiresAt.Sub(*sess.IssuedAt))
}

func TestLogin_Lockout(t *testing.T) {
	e := newTestEnv(t)

	for i := 0; i < 4; i++ {
		rec, env := e.do(t, http.MethodPost, "/admin/login", `{"password":"wrong-password"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
		assert.Equal(t, 4-i, decodeData[LoginFailureResponse](t, env).RemainingAttempts)
	}

	rec, env := e.do(t, http.MethodPost, "/admin/login", `{"password":"wrong-password"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code, "fifth failure locks")
	assert.Equal(t, middleware.CodeRateLimited, env.Error.Code)
	assert.Equal(t, "900", rec.Header().Get("Retry-After"))

	rec, env = e.do(t, http.MethodPost, "/admin/login", `{"password":"`+testPassword+`"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, middleware.CodeRateLimited, env.Error.Code)
}

func TestLogin_StorageDown(t *testing.T) {
	e := newTestEnvWithDB(t, testutil.ClosedDB(t))

	rec, env := e.do(t, http.MethodPost, "/admin/login", `{"password":"`+testPassword+`"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, CodeStorageUnavailable, env.Error.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogout(t *testing.T) {
	e := newTestEnv(t)

	rec, env := e.do(t, http.MethodPost, "/admin/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.OK)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")

	_, env = e.do(t, http.MethodGet, "/admin/session", "")
	assert.False(t, decodeData[SessionResponse](t, env).Authenticated)
}

func TestAdminRoutes_RequireSession(t *testing.T) {
	e := newTestEnv(t)

	routes := []struct{ method, path, body string }{
		{http.MethodGet, "/admin/voices", ""},
		{http.MethodGet, "/admin/comments", ""},
		{http.MethodGet, "/admin/stats", ""},
		{http.MethodGet, "/admin/password", ""},
		{http.MethodPost, "/admin/password", `{"currentPassword":"x","newPassword":"y"}`},
		{http.MethodPatch, "/admin/voices/v1", `{"status":"APPROVED"}`},
		{http.MethodPut, "/admin/comments/c1", `{"status":"APPROVED"}`},
	}
	forged := &http.Cookie{Name: auth.CookieName, Value: "YWRtaW46MQ==.bm90LWEtc2lnbmF0dXJl"}
	for _, rt := range routes {
		rec, env := e.do(t, rt.method, rt.path, rt.body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, rt.path)
		assert.Equal(t, middleware.CodeUnauthorized, env.Error.Code, rt.path)

		rec, _ = e.do(t, rt.method, rt.path, rt.body, forged)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "forged cookie on %s", rt.path)
	}
}

func TestAdminListVoices(t *testing.T) {
	e := newTestEnv(t)
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	e.seedVoice(t, "p1", store.StatusPending, base)
	e.seedVoice(t, "a1", store.StatusApproved, base.Add(time.Minute))
	e.seedVoice(t, "r1", store.StatusRejected, base.Add(2*time.Minute))

	rec, env := e.do(t, http.MethodGet, "/admin/voices", "", e.adminCookie())
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeData[AdminVoicesResponse](t, env)
	require.Len(t, list.Voices, 3)
	assert.Equal(t, store.StatusRejected, list.Voices[0].Status)
	assert.Equal(t, 20, list.Pagination.Size)
	assert.Equal(t, int64(3), list.Pagination.Total)

	_, env = e.do(t, http.MethodGet, "/admin/voices?status=pending", "", e.adminCookie())
	list = decodeData[AdminVoicesResponse](t, env)
	require.Len(t, list.Voices, 1)
	assert.Equal(t, "p1", list.Voices[0].ID)

	_, env = e.do(t, http.MethodGet, "/admin/voices?search=a1", "", e.adminCookie())
	list = decodeData[AdminVoicesResponse](t, env)
	require.Len(t, list.Voices, 1)
	assert.Equal(t, "a1", list.Voices[0].ID)

	rec, env = e.do(t, http.MethodGet, "/admin/voices?status=archived", "", e.adminCookie())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, env.Error.Code)
}

func TestAdminListVoices_Degraded(t *testing.T) {
	e := newTestEnvWithDB(t, testutil.ClosedDB(t))

	rec, env := e.do(t, http.MethodGet, "/admin/voices", "", e.adminCookie())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Degraded)
	list := decodeData[AdminVoicesResponse](t, env)
	assert.Empty(t, list.Voices)
	assert.Zero(t, list.Pagination.Total)
}

func TestSetVoiceStatus(t *testing.T) {
	e := newTestEnv(t)
	e.seedVoice(t, "v1", store.StatusPending, time.Now().UTC())

	// Warm the public listing cache before approving.
	_, env := e.do(t, http.MethodGet, "/voices", "")
	assert.Empty(t, decodeData[PageResponse[VoiceResponse]](t, env).Items)

	rec, env := e.do(t, http.MethodPatch, "/admin/voices/v1", `{"status":"approved"}`, e.adminCookie())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusResponse{ID: "v1", Status: store.StatusApproved}, decodeData[StatusResponse](t, env))

	_, env = e.do(t, http.MethodGet, "/voices", "")
	items := decodeData[PageResponse[VoiceResponse]](t, env).Items
	require.Len(t, items, 1, "approving must invalidate the cached listing")
	assert.Equal(t, "v1", items[0].ID)

	rec, env = e.do(t, http.MethodPut, "/admin/voices/missing", `{"status":"REJECTED"}`, e.adminCookie())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, env.Error.Code)

	rec, env = e.do(t, http.MethodPatch, "/admin/voices/v1", `{"status":"published"}`, e.adminCookie())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, env.Error.Code)
}

func TestAdminGetVoice(t *testing.T) {
	e := newTestEnv(t)
	e.seedVoice(t, "v1", store.StatusPending, time.Now().UTC())

	rec, _ := e.do(t, http.MethodGet, "/admin/voices/v1", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := e.do(t, http.MethodGet, "/admin/voices/v1", "", e.adminCookie())
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeData[VoiceResponse](t, env)
	assert.Equal(t, "v1", v.ID)
	assert.Equal(t, store.StatusPending, v.Status)
	require.NotNil(t, v.TopicTags)
	assert.Equal(t, "parks", *v.TopicTags)

	rec, env = e.do(t, http.MethodGet, "/admin/comments/v1", "", e.adminCookie())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, env.Error.Code)
}

func TestAdminGetVoice_StorageDown(t *testing.T) {
	e := newTestEnvWithDB(t, testutil.ClosedDB(t))

	rec, env := e.do(t, http.MethodGet, "/admin/voices/v1", "", e.adminCookie())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, CodeStorageUnavailable, env.Error.Code)
}

func TestSetVoiceStatus_StorageDown(t *testing.T) {
	e := newTestEnvWithDB(t, testutil.ClosedDB(t))

	rec, env := e.do(t, http.MethodPatch, "/admin/voices/v1", `{"status":"APPROVED"}`, e.adminCookie())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, CodeStorageUnavailable, env.Error.Code)
}

func TestStats(t *testing.T) {
	e := newTestEnv(t)
	now := time.Now().UTC()
	e.seedVoice(t, "p1", store.StatusPending, now)
	e.seedVoice(t, "a1", store.StatusApproved, now)
	e.seedVoice(t, "a2", store.StatusApproved, now)

	rec, env := e.do(t, http.MethodGet, "/admin/stats", "", e.adminCookie())
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeData[StatsResponse](t, env)
	assert.Equal(t, moderation.StatusCounts{Pending: 1, Approved: 2, Total: 3}, stats.Voices)
	assert.Zero(t, stats.Comments.Total)
}

func TestChangePassword(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.adminCookie()

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing fields", `{"newPassword":"another-password"}`, http.StatusBadRequest, CodeValidation},
		{"wrong current", `{"currentPassword":"nope-nope","newPassword":"another-password"}`, http.StatusUnauthorized, auth.CodeIncorrectCurrent},
		{"too short", `{"currentPassword":"` + testPassword + `","newPassword":"short"}`, http.StatusBadRequest, auth.CodeTooShort},
		{"reserved", `{"currentPassword":"` + testPassword + `","newPassword":"Taha2005"}`, http.StatusBadRequest, auth.CodeReservedValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := e.do(t, http.MethodPost, "/admin/password", tt.body, cookie)
			assert.Equal(t, tt.status, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}

	rec, env := e.do(t, http.MethodPost, "/admin/password",
		`{"oldPassword":"`+testPassword+`","newPassword":"a-brand-new-secret"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	assert.True(t, env.OK)

	rec, _ = e.do(t, http.MethodPost, "/admin/login", `{"password":"`+testPassword+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "old password must stop working")
	rec, _ = e.do(t, http.MethodPost, "/admin/login", `{"password":"a-brand-new-secret"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, env = e.do(t, http.MethodGet, "/admin/password", "", cookie)
	st := decodeData[PasswordStatusResponse](t, env)
	assert.True(t, st.Configured)
	assert.NotNil(t, st.UpdatedAt)
	assert.Equal(t, auth.MinPasswordLength, st.MinLength)
	assert.True(t, st.Session.Authenticated)
}

func TestChangePassword_StorageDown(t *testing.T) {
	e := newTestEnvWithDB(t, testutil.ClosedDB(t))

	rec, env := e.do(t, http.MethodPost, "/admin/password",
		`{"currentPassword":"`+testPassword+`","newPassword":"a-brand-new-secret"}`, e.adminCookie())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, auth.CodeStorageUnavailable, env.Error.Code)
}

func TestAdmin_CrossSiteRejected(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/logout", nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestNotFound(t *testing.T) {
	e := newTestEnv(t)

	rec, env := e.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, env.Error.Code)
}

func TestListEvents(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, msg := range []string{"first", "second", "third"} {
		_, err := e.q.CreateEvent(ctx, store.CreateEventParams{
			Level:     "warning",
			Category:  "database",
			Message:   msg,
			Metadata:  `{"op":"voices.list"}`,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	rec, _ := e.do(t, http.MethodGet, "/admin/events", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := e.do(t, http.MethodGet, "/admin/events?size=2", "", e.adminCookie())
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeData[EventsResponse](t, env)
	require.Len(t, resp.Events, 2)
	assert.Equal(t, "third", resp.Events[0].Message)
	assert.JSONEq(t, `{"op":"voices.list"}`, string(resp.Events[0].Metadata))
	assert.Equal(t, int64(3), resp.Pagination.Total)
	assert.Equal(t, int64(2), resp.Pagination.TotalPages)
	assert.True(t, resp.Pagination.HasMore)

	_, env = e.do(t, http.MethodGet, "/admin/events?size=2&page=2", "", e.adminCookie())
	resp = decodeData[EventsResponse](t, env)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "first", resp.Events[0].Message)
	assert.False(t, resp.Pagination.HasMore)

	rec, env = e.do(t, http.MethodGet, "/admin/events?size=200&page=9223372036854775807", "", e.adminCookie())
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeData[EventsResponse](t, env)
	assert.Empty(t, resp.Events)
	assert.Equal(t, math.MaxInt32, resp.Pagination.Page)
	assert.False(t, resp.Pagination.HasMore)
}

func TestListEvents_Degraded(t *testing.T) {
	e := newTestEnvWithDB(t, testutil.ClosedDB(t))

	rec, env := e.do(t, http.MethodGet, "/admin/events", "", e.adminCookie())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Degraded)
	resp := decodeData[EventsResponse](t, env)
	assert.Empty(t, resp.Events)
}
