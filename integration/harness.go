package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kasuganosora/codepals/api"
	"github.com/kasuganosora/codepals/cache"
	"github.com/kasuganosora/codepals/config"
	"github.com/kasuganosora/codepals/engine"
	"github.com/kasuganosora/codepals/game/session"
	"github.com/kasuganosora/codepals/journal"
	mw "github.com/kasuganosora/codepals/middleware"
	"github.com/kasuganosora/codepals/save"
	"github.com/kasuganosora/codepals/scheduler"
	"github.com/kasuganosora/codepals/store"
	"github.com/kasuganosora/codepals/testutil"
)

const notifyChannel = "codepals:notify"

// Clock is a settable time source shared by every server started on a
// Backing, so a restart can observe idle time.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{t: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// Backing holds the durable state that outlives a server: the database and
// the cache. Starting several servers on one Backing simulates restarts.
type Backing struct {
	DB     *gorm.DB
	Cache  cache.Cache
	PubSub cache.PubSub
	Clock  *Clock
	Sec    config.SecurityConfig
}

func NewBacking(t *testing.T) *Backing {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)
	return &Backing{
		DB:     db,
		Cache:  c,
		PubSub: ps,
		Clock:  NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Sec: config.SecurityConfig{
			JWTSecret:      "integration-test-secret",
			JWTTTLH:        72 * time.Hour,
			RateLimitRPS:   1000,
			RateLimitBurst: 2000,
		},
	}
}

// PrimaryStore is the slot the servers save to first.
func (b *Backing) PrimaryStore() store.Store { return store.NewCacheStore(b.Cache) }

// TestServer is one running instance wired the way serve wires it.
type TestServer struct {
	Engine  *engine.Engine
	Sched   *scheduler.Scheduler
	Outcome engine.LoadOutcome
	Server  *httptest.Server
	URL     string
	Token   string

	stopOnce sync.Once
}

// Start loads the saved game and serves the API. rnd may be nil.
func (b *Backing) Start(t *testing.T, rnd session.Rand) *TestServer {
	t.Helper()
	logger := zap.NewNop()

	gw := save.NewGateway(b.PrimaryStore(), store.NewDBStore(b.DB), 3, b.Clock.Now, logger)
	j := journal.New(b.DB, journal.Config{BatchSize: 1, FlushInterval: 10 * time.Millisecond}, logger)
	eng := engine.New(engine.Options{
		Gateway: gw,
		Journal: j,
		PubSub:  b.PubSub,
		Config:  config.EngineConfig{NotifyChannel: notifyChannel, TickInterval: time.Hour},
		Now:     b.Clock.Now,
		Rand:    rnd,
		Logger:  logger,
	})
	outcome := eng.InitializeOrLoad(context.Background())
	sched := scheduler.New(logger)
	eng.Start(sched)

	router := api.NewRouter(api.Deps{
		Engine:    eng,
		Scheduler: sched,
		Cache:     b.Cache,
		PubSub:    b.PubSub,
		Security:  b.Sec,
		Channel:   notifyChannel,
		Logger:    logger,
	})
	server := httptest.NewServer(router)

	token, err := mw.IssueToken("integration", b.Sec.JWTSecret, b.Sec.JWTTTLH)
	require.NoError(t, err)

	ts := &TestServer{
		Engine:  eng,
		Sched:   sched,
		Outcome: outcome,
		Server:  server,
		URL:     server.URL,
		Token:   token,
	}
	t.Cleanup(ts.Stop)
	return ts
}

// Stop closes the listener and disposes the engine, which saves once more.
func (ts *TestServer) Stop() {
	ts.stopOnce.Do(func() {
		ts.Server.Close()
		ts.Engine.Dispose(context.Background())
		ts.Sched.Stop()
	})
}

// --- HTTP helpers ---

// Do sends a request with the server's bearer token. A non-nil body is sent
// as JSON unless it is already a string.
func (ts *TestServer) Do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var rdr io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(v)
	default:
		data, err := json.Marshal(v)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ts.Token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// DoJSON is Do followed by a status check and a decode into out.
func (ts *TestServer) DoJSON(t *testing.T, method, path string, body any, wantStatus int, out any) {
	t.Helper()
	resp := ts.Do(t, method, path, body)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode, "%s %s: %s", method, path, data)
	if out != nil {
		require.NoError(t, json.Unmarshal(data, out))
	}
}

func (ts *TestServer) Snapshot(t *testing.T) session.Snapshot {
	t.Helper()
	var snap session.Snapshot
	ts.DoJSON(t, http.MethodGet, "/api/snapshot", nil, http.StatusOK, &snap)
	return snap
}

// --- notification stream ---

// Stream reads server-sent events from /api/notifications.
type Stream struct {
	resp   *http.Response
	lines  *bufio.Scanner
	cancel context.CancelFunc
}

// Event is one received server-sent event.
type Event struct {
	Name string
	Data engine.Notification
}

// Subscribe opens the notification stream with the token in the query, the
// way a browser EventSource would. It returns after the connected event.
func (ts *TestServer) Subscribe(t *testing.T) *Stream {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/notifications?token="+ts.Token, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	s := &Stream{resp: resp, lines: bufio.NewScanner(resp.Body), cancel: cancel}
	t.Cleanup(s.Close)
	ev, ok := s.next()
	require.True(t, ok, "stream closed before connected event")
	require.Equal(t, "connected", ev.Name)
	return s
}

func (s *Stream) next() (Event, bool) {
	var ev Event
	for s.lines.Scan() {
		line := s.lines.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			ev.Name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			_ = json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev.Data)
		case line == "" && ev.Name != "":
			return ev, true
		}
	}
	return ev, false
}

// Expect reads events until one named kind arrives.
func (s *Stream) Expect(t *testing.T, kind string) Event {
	t.Helper()
	for {
		ev, ok := s.next()
		require.True(t, ok, "stream closed before %q", kind)
		if ev.Name == kind {
			return ev
		}
	}
}

func (s *Stream) Close() {
	s.cancel()
	s.resp.Body.Close()
}
