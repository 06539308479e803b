package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/mcdev12/timekeeper/go/internal/models"
	"github.com/mcdev12/timekeeper/go/internal/sessions"
	"github.com/mcdev12/timekeeper/go/internal/timers"
	"github.com/mcdev12/timekeeper/go/internal/timers/timerstest"
	"github.com/mcdev12/timekeeper/go/internal/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeUsers struct {
	mu     sync.Mutex
	byName map[string]models.User
	pass   map[string]string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byName: make(map[string]models.User), pass: make(map[string]string)}
}

func (f *fakeUsers) SignUp(_ context.Context, req users.SignUpRequest) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.Username == "" || req.Password == "" {
		return nil, users.ErrInvalidInput
	}
	if _, ok := f.byName[req.Username]; ok {
		return nil, users.ErrUserExists
	}
	user := models.User{ID: models.UserID(len(f.byName) + 1), Username: req.Username}
	f.byName[req.Username] = user
	f.pass[req.Username] = req.Password
	return &user, nil
}

func (f *fakeUsers) Authenticate(_ context.Context, username, password string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byName[username]
	if !ok || f.pass[username] != password {
		return nil, users.ErrInvalidCredentials
	}
	return &user, nil
}

type fakeSessions struct {
	mu      sync.Mutex
	tokens  map[string]models.UserID
	next    int
	ended   []string
	failing bool
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: make(map[string]models.UserID)}
}

func (f *fakeSessions) Start(_ context.Context, userID models.UserID) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	token := "token-" + string(rune('a'+f.next))
	f.tokens[token] = userID
	return &models.Session{Token: token, UserID: userID}, nil
}

func (f *fakeSessions) Resolve(_ context.Context, token string) (models.UserID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return 0, errors.New("redis: connection refused")
	}
	userID, ok := f.tokens[token]
	if !ok {
		return 0, sessions.ErrSessionNotFound
	}
	return userID, nil
}

func (f *fakeSessions) End(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	f.ended = append(f.ended, token)
	return nil
}

type apiFixture struct {
	users    *fakeUsers
	sessions *fakeSessions
	repo     *timerstest.Repository
	handler  http.Handler
}

func newAPIFixture(t *testing.T, mutate func(*Config)) *apiFixture {
	t.Helper()
	f := &apiFixture{
		users:    newFakeUsers(),
		sessions: newFakeSessions(),
		repo:     timerstest.NewRepository(),
	}
	cfg := Config{
		Users:    f.users,
		Sessions: f.sessions,
		Timers:   timers.NewApp(f.repo, nil, nil),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	f.handler = NewRouter(cfg)
	return f
}

func (f *apiFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) postForm(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(req)
}

// login signs up a user and returns its session token.
func (f *apiFixture) login(t *testing.T, username string) string {
	t.Helper()
	rec := f.postForm("/signup", url.Values{"username": {username}, "password": {"pw"}})
	require.Equal(t, http.StatusFound, rec.Code)
	return sessionCookie(t, rec).Value
}

func (f *apiFixture) authed(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: sessions.CookieName, Value: token})
	}
	return f.do(req)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessions.CookieName {
			return c
		}
	}
	require.FailNow(t, "no session cookie set")
	return nil
}

func TestSignUp_SetsCookieAndRedirects(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.postForm("/signup", url.Values{"username": {"alice"}, "password": {"pw"}})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)
}

func TestSignUp_Errors(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.login(t, "alice")

	rec := f.postForm("/signup", url.Values{"username": {"bob"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username and password are required")

	rec = f.postForm("/signup", url.Values{"username": {"alice"}, "password": {"x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")
}

func TestLogin(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.login(t, "alice")

	rec := f.postForm("/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/?authError=true", rec.Header().Get("Location"))

	rec = f.postForm("/login", url.Values{"username": {"alice"}, "password": {"pw"}})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.NotEmpty(t, sessionCookie(t, rec).Value)
}

func TestLogout_EndsSession(t *testing.T) {
	f := newAPIFixture(t, nil)
	token := f.login(t, "alice")

	rec := f.authed(http.MethodGet, "/logout", "", token)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/?authError=false", rec.Header().Get("Location"))
	assert.Equal(t, []string{token}, f.sessions.ended)
	assert.True(t, sessionCookie(t, rec).MaxAge < 0)

	rec = f.authed(http.MethodGet, "/api/timers", "", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTimersAPI_RequiresSession(t *testing.T) {
	f := newAPIFixture(t, nil)

	assert.Equal(t, http.StatusUnauthorized, f.authed(http.MethodGet, "/api/timers", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.authed(http.MethodGet, "/api/timers", "", "forged").Code)

	f.sessions.failing = true
	assert.Equal(t, http.StatusInternalServerError, f.authed(http.MethodGet, "/api/timers", "", "forged").Code)
}

func TestTimersAPI_Lifecycle(t *testing.T) {
	f := newAPIFixture(t, nil)
	token := f.login(t, "alice")

	rec := f.authed(http.MethodGet, "/api/timers", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = f.authed(http.MethodPost, "/api/timers", `{"description":"Writing docs"}`, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Writing docs", created["timerDescription"])
	assert.Equal(t, true, created["isActive"])
	assert.Nil(t, created["timerEnd"])
	id := created["timerId"].(string)

	rec = f.authed(http.MethodPost, "/api/timers/"+id+"/stop", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Timer stopped","id":"`+id+`"}`, rec.Body.String())

	rec = f.authed(http.MethodPost, "/api/timers/"+id+"/stop", "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Timer not found or already stopped"}`, rec.Body.String())

	rec = f.authed(http.MethodGet, "/api/timers", "", token)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, false, list[0]["isActive"])
	assert.NotNil(t, list[0]["duration"])
}

func TestTimersAPI_CannotStopOtherUsersTimer(t *testing.T) {
	f := newAPIFixture(t, nil)
	alice := f.login(t, "alice")
	bob := f.login(t, "bob")

	rec := f.authed(http.MethodPost, "/api/timers", `{"description":"mine"}`, alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Timer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = f.authed(http.MethodPost, "/api/timers/"+created.ID+"/stop", "", bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	stored, ok := f.repo.Get(created.ID)
	require.True(t, ok)
	assert.True(t, stored.Active)
}

func TestTimersAPI_BadInput(t *testing.T) {
	f := newAPIFixture(t, nil)
	token := f.login(t, "alice")

	assert.Equal(t, http.StatusBadRequest, f.authed(http.MethodPost, "/api/timers", `{`, token).Code)

	long := strings.Repeat("x", timers.MaxDescriptionLength+1)
	assert.Equal(t, http.StatusBadRequest, f.authed(http.MethodPost, "/api/timers", `{"description":"`+long+`"}`, token).Code)
}

func TestTimersAPI_StorageError(t *testing.T) {
	f := newAPIFixture(t, nil)
	token := f.login(t, "alice")
	f.repo.SetErr(errors.New("db down"))

	rec := f.authed(http.MethodGet, "/api/timers", "", token)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	healthy := newAPIFixture(t, func(cfg *Config) {
		cfg.Health = map[string]HealthChecker{
			"postgres": HealthCheckFunc(func(context.Context) error { return nil }),
		}
	})
	rec := healthy.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"postgres":"ok"}}`, rec.Body.String())

	failing := newAPIFixture(t, func(cfg *Config) {
		cfg.Health = map[string]HealthChecker{
			"redis": HealthCheckFunc(func(context.Context) error { return errors.New("refused") }),
		}
	})
	rec = failing.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","checks":{"redis":"error: refused"}}`, rec.Body.String())
}

func TestMetricsRoute(t *testing.T) {
	f := newAPIFixture(t, func(cfg *Config) {
		cfg.Metrics = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("metrics"))
		})
	})

	rec := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "metrics", rec.Body.String())
}

func TestRateLimit_AuthRoutes(t *testing.T) {
	f := newAPIFixture(t, func(cfg *Config) {
		cfg.AuthLimiter = NewIPRateLimiter(rate.Limit(0.001), 1)
	})

	first := f.postForm("/login", url.Values{"username": {"a"}, "password": {"b"}})
	assert.Equal(t, http.StatusFound, first.Code)

	second := f.postForm("/login", url.Values{"username": {"a"}, "password": {"b"}})
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestNotFound(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"resource not found"}`, rec.Body.String())
}
