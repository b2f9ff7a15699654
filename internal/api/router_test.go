package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swellmap/swellmap/internal/api"
	"github.com/swellmap/swellmap/internal/api/models"
	"github.com/swellmap/swellmap/internal/news"
	"github.com/swellmap/swellmap/internal/provider/resilience"
	"github.com/swellmap/swellmap/internal/settings"
	"github.com/swellmap/swellmap/internal/spot"
	"github.com/swellmap/swellmap/internal/spotsync"
	"github.com/swellmap/swellmap/internal/worker"
)

// stubSource serves two spots for any region and a fair report for any id.
type stubSource struct {
	mu      sync.Mutex
	regions int
}

func (s *stubSource) SpotsInRegion(_ context.Context, _ spot.Region) ([]spot.Update, error) {
	s.mu.Lock()
	s.regions++
	s.mu.Unlock()

	name1, name2 := "Bournemouth Pier", "Boscombe"
	lat, lon := 50.716, -1.875
	return []spot.Update{
		{ID: "b2", Shape: spot.ShapeMapview, Name: &name2, Lat: &lat, Lon: &lon},
		{ID: "a1", Shape: spot.ShapeMapview, Name: &name1, Lat: &lat, Lon: &lon},
	}, nil
}

func (s *stubSource) Report(_ context.Context, id string) (spot.Update, error) {
	rating := spot.RatingFair
	return spot.Update{ID: id, Shape: spot.ShapeReport, Rating: &rating, WaveHeight: &spot.WaveHeight{Min: 1, Max: 2}}, nil
}

func (s *stubSource) SurfForecast(_ context.Context, _ string) ([]spot.SurfPeriod, error) {
	periods := make([]spot.SurfPeriod, spot.PeriodsPerDay)
	for i := range periods {
		periods[i] = spot.SurfPeriod{Min: 1, Max: 2}
	}
	return periods, nil
}

type testEnv struct {
	router   http.Handler
	engine   *spotsync.Engine
	settings *settings.Service
	news     *news.Service
	registry *resilience.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zerolog.New(io.Discard)
	registry := resilience.NewRegistry()
	resilience.NewClient(resilience.ClientConfig{Name: "surfline", Registry: registry})

	engine := spotsync.NewEngine(spotsync.Config{Source: &stubSource{}, Logger: logger})
	feed := news.NewService(news.ServiceConfig{Live: news.DemoFetcher{}, Logger: logger})
	svc := settings.NewService(settings.ServiceConfig{Repository: settings.NewMemoryRepository(), Logger: logger})
	svc.OnChange(func(s settings.Settings) {
		engine.SetDemoMode(s.DemoMode())
		feed.SetDemoMode(s.DemoMode())
	})
	warmer := worker.NewFavoritesWarmer(worker.FavoritesWarmerConfig{
		Settings:  svc,
		Requester: engine,
		Logger:    logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = engine.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		_ = warmer.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	router := api.NewRouter(api.RouterConfig{
		Version:   "test",
		BuildTime: "2024-06-01T00:00:00Z",
		Logger:    logger,
		Registry:  registry,
		Sync:      engine,
		Settings:  svc,
		News:      feed,
		Warmer:    warmer,
	})

	return &testEnv{router: router, engine: engine, settings: svc, news: feed, registry: registry}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) waitIdle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.engine.WaitIdle(ctx))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRouter_Health(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/ops/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	health := decode[models.Health](t, rec)
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
	require.Len(t, health.Providers, 1)
	assert.Equal(t, "surfline", health.Providers[0].Provider)
	assert.Equal(t, models.HealthStatusOK, health.Providers[0].Status)
	assert.Equal(t, "closed", health.Providers[0].CircuitState)
	assert.Zero(t, health.Providers[0].Trips)
	assert.Nil(t, health.Providers[0].StateChangedAt)
}

func TestRouter_RegionFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/spots:region",
		`{"latitude":50.7,"longitude":-1.9,"latitudeDelta":0.2,"longitudeDelta":0.3}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	env.waitIdle(t)

	list := decode[models.SpotList](t, env.do(t, http.MethodGet, "/v1/spots", ""))
	require.Len(t, list.Spots, 2)
	assert.Equal(t, "a1", list.Spots[0].ID)
	assert.Equal(t, "Boscombe", list.Spots[1].Name)

	state := decode[models.SyncState](t, env.do(t, http.MethodGet, "/v1/sync/state", ""))
	assert.False(t, state.DemoMode)
	assert.Equal(t, 2, state.SpotCount)
	require.Len(t, state.StoredRegions, 1)
	assert.InDelta(t, 50.8+spot.RegionPadding, state.StoredRegions[0].Top, 1e-9)
	assert.Empty(t, state.QueuedRegions)
	assert.Empty(t, state.StoredReports)
}

func TestRouter_RegionValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/spots:region",
		`{"latitude":100,"longitude":-1.9,"latitudeDelta":0.2,"longitudeDelta":0.3}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	problem := decode[models.Problem](t, rec)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "latitude", problem.Errors[0].Field)
	assert.Equal(t, "/v1/spots:region", problem.Instance)

	rec = env.do(t, http.MethodPost, "/v1/spots:region", `{"lat":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")

	req := httptest.NewRequest(http.MethodPost, "/v1/spots:region", strings.NewReader(`latitude=1`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRouter_ReportsFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/spots:reports", `{"spotIds":["a1"," ",""]}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	env.waitIdle(t)

	s := decode[spot.Spot](t, env.do(t, http.MethodGet, "/v1/spots/a1", ""))
	assert.Equal(t, "a1", s.ID)
	assert.Equal(t, spot.RatingFair, s.Rating)
	assert.Equal(t, 3.0, s.StarCount)
	assert.Len(t, s.Surf, 1)

	state := decode[models.SyncState](t, env.do(t, http.MethodGet, "/v1/sync/state", ""))
	assert.Equal(t, []string{"a1"}, state.StoredReports)

	rec = env.do(t, http.MethodPost, "/v1/spots:reports", `{"spotIds":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_SpotPlaceholders(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/spots/unknown", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"unknown","photo":null,"starCount":0}`, rec.Body.String())

	list := decode[models.SpotList](t, env.do(t, http.MethodGet, "/v1/spots?ids=x,,y", ""))
	require.Len(t, list.Spots, 2)
	assert.Equal(t, "x", list.Spots[0].ID)
	assert.True(t, list.Spots[1].IsPlaceholder())
}

func TestRouter_Featured(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/spots/featured", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"spots":[]}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/v1/spots/featured?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.NoError(t, env.settings.SetDemoMode(context.Background(), true))

	list := decode[models.SpotList](t, env.do(t, http.MethodGet, "/v1/spots/featured?limit=2", ""))
	require.Len(t, list.Spots, 2)
	assert.GreaterOrEqual(t, list.Spots[0].StarCount, list.Spots[1].StarCount)
}

func TestRouter_DemoModeSetting(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/v1/settings/demo-mode", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[settings.Settings](t, rec).UseRealAPI)

	assert.True(t, env.engine.DemoMode())
	list := decode[models.SpotList](t, env.do(t, http.MethodGet, "/v1/spots", ""))
	assert.Len(t, list.Spots, len(spot.DemoSpots()))

	rec = env.do(t, http.MethodPost, "/v1/news:more", "")
	require.Equal(t, http.StatusOK, rec.Code)
	feed := decode[news.Feed](t, rec)
	assert.True(t, feed.DemoMode)
	assert.Len(t, feed.Posts, len(news.DemoPosts))
	assert.False(t, feed.MoreAvailable)

	rec = env.do(t, http.MethodPut, "/v1/settings/demo-mode", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, env.engine.DemoMode())
	assert.JSONEq(t, `{"spots":[]}`, env.do(t, http.MethodGet, "/v1/spots", "").Body.String())
	assert.Empty(t, decode[news.Feed](t, env.do(t, http.MethodGet, "/v1/news", "")).Posts)

	rec = env.do(t, http.MethodPut, "/v1/settings/demo-mode", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	all := decode[settings.Settings](t, env.do(t, http.MethodGet, "/v1/settings", ""))
	assert.Equal(t, settings.Defaults(), all)
}

func TestRouter_Favorites(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/v1/settings/favorites", `{"spotIds":["b","a","b"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"spotIds":["b","a"]}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/v1/settings/favorites/a:toggle", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"spotId":"a","favorite":false}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/v1/settings/favorites/c:toggle", "")
	assert.JSONEq(t, `{"spotId":"c","favorite":true}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/v1/settings/favorites", "")
	assert.JSONEq(t, `{"spotIds":["b","c"]}`, rec.Body.String())
}

func TestRouter_SyncStateShowsFavoritesWarmer(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/v1/settings/favorites", `{"spotIds":["a1","b2"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Eventually(t, func() bool {
		state := decode[models.SyncState](t, env.do(t, http.MethodGet, "/v1/sync/state", ""))
		return state.FavoritesWarmer != nil && state.FavoritesWarmer.SpotsRequested >= 2
	}, 2*time.Second, 10*time.Millisecond)

	env.waitIdle(t)
	state := decode[models.SyncState](t, env.do(t, http.MethodGet, "/v1/sync/state", ""))
	require.NotNil(t, state.FavoritesWarmer)
	assert.GreaterOrEqual(t, state.FavoritesWarmer.Runs, int64(2), "start-up run plus the change")
	assert.NotNil(t, state.FavoritesWarmer.LastRunAt)
	assert.Equal(t, []string{"a1", "b2"}, state.StoredReports)
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, models.ProblemTypeNotFound, decode[models.Problem](t, rec).Type)

	rec = env.do(t, http.MethodDelete, "/v1/sync/state", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, models.ProblemTypeMethodNotAllowed, decode[models.Problem](t, rec).Type)
}

func readEvent(t *testing.T, conn *websocket.Conn) models.StreamEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var event models.StreamEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestRouter_Stream(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/spots/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	resp.Body.Close()

	first := readEvent(t, conn)
	assert.Equal(t, models.StreamEventInit, first.Type)
	assert.Empty(t, first.Spots)

	rec := env.do(t, http.MethodPost, "/v1/spots:reports", `{"spotIds":["a1"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	// Report and forecast each commit once.
	for i := 0; i < 2; i++ {
		event := readEvent(t, conn)
		assert.Equal(t, models.StreamEventMerged, event.Type)
		assert.Equal(t, []string{"a1"}, event.SpotIDs)
		require.Len(t, event.Spots, 1)
		assert.Equal(t, spot.RatingFair, event.Spots[0].Rating)
	}

	env.engine.SetDemoMode(true)
	reset := readEvent(t, conn)
	assert.Equal(t, models.StreamEventReset, reset.Type)
	assert.Len(t, reset.Spots, len(spot.DemoSpots()))
}

func TestRouter_StreamRejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/spots/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
