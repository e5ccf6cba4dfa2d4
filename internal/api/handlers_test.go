package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/VoidMesh/terrain/internal/api/mocks"
	"github.com/VoidMesh/terrain/internal/biome"
	"github.com/VoidMesh/terrain/internal/chunk"
	"github.com/VoidMesh/terrain/internal/driver"
	"github.com/VoidMesh/terrain/internal/grid"
	"github.com/VoidMesh/terrain/internal/mesh"
	"github.com/VoidMesh/terrain/internal/noise"
	assets "github.com/VoidMesh/terrain/internal/render"
	"github.com/VoidMesh/terrain/internal/testutil"
	"github.com/VoidMesh/terrain/internal/viewer"
)

type testEnv struct {
	server *httptest.Server
	loop   *driver.Loop
	store  *assets.Store
	hub    *assets.Hub
	stop   context.CancelFunc
}

// newTestEnv serves the full router over a running loop. biomes may be nil
// to use the generator itself.
func newTestEnv(t *testing.T, biomes BiomeSource) *testEnv {
	t.Helper()

	gen := chunk.NewGenerator(noise.NewSampler(testutil.TestNoiseParams), testutil.SmallChunkSize, 3, 16)
	hub := assets.NewHub(64)
	store := assets.NewStore(hub)
	m := chunk.NewManager(gen, store, chunk.DefaultOptions())
	m.Initialize(testutil.TwoBiomeTable())
	t.Cleanup(m.Close)

	policy := viewer.Policy{
		MaxViewDistance: 2,
		UpdateThreshold: 10,
		LODCurve:        biome.LinearCurve(),
		ChunkSize:       testutil.SmallChunkSize - 1,
	}
	loop := driver.New(m, viewer.New(policy, m), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	<-loop.Running()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	if biomes == nil {
		biomes = gen
	}
	srv := httptest.NewServer(SetupRoutes(NewHandler(loop, store, biomes, hub), NewEventStream(hub)))
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, loop: loop, store: store, hub: hub, stop: cancel}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (e *testEnv) waitForChunk(t *testing.T, coord grid.ChunkCoord) {
	t.Helper()
	ok := testutil.WaitFor(10*time.Second, func() bool {
		_, err := e.store.ByCoord(coord)
		return err == nil
	})
	require.True(t, ok, "chunk %s never materialized", coord)
}

func decodeError(t *testing.T, raw []byte) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

func TestHandler_HealthCheck(t *testing.T) {
	testutil.SetupTest(t, testutil.DefaultTestConfig())

	env := newTestEnv(t, nil)
	resp, raw := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "voidmesh-terrain", body["service"])
}

func TestHandler_RequestChunk(t *testing.T) {
	testutil.SetupTest(t, testutil.DefaultTestConfig())

	env := newTestEnv(t, nil)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{name: "valid request", path: "/api/v1/chunks/2/-3/request", body: `{"lod": 2}`, wantStatus: http.StatusAccepted},
		{name: "unload of unknown chunk", path: "/api/v1/chunks/9/9/request", body: `{"lod": -1}`, wantStatus: http.StatusAccepted},
		{name: "lod out of range", path: "/api/v1/chunks/0/0/request", body: `{"lod": 7}`, wantStatus: http.StatusBadRequest},
		{name: "lod zero", path: "/api/v1/chunks/0/0/request", body: `{"lod": 0}`, wantStatus: http.StatusBadRequest},
		{name: "missing lod", path: "/api/v1/chunks/0/0/request", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "malformed body", path: "/api/v1/chunks/0/0/request", body: `{"lod":`, wantStatus: http.StatusBadRequest},
		{name: "invalid x", path: "/api/v1/chunks/a/0/request", body: `{"lod": 1}`, wantStatus: http.StatusBadRequest},
		{name: "invalid z", path: "/api/v1/chunks/0/1.5/request", body: `{"lod": 1}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := env.do(t, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.wantStatus, resp.StatusCode, string(raw))
			if tt.wantStatus >= 400 {
				assert.Equal(t, tt.wantStatus, decodeError(t, raw).Code)
			}
		})
	}

	env.waitForChunk(t, grid.ChunkCoord{X: 2, Z: -3})
}

func TestHandler_GetChunk(t *testing.T) {
	testutil.SetupTest(t, testutil.DefaultTestConfig())

	env := newTestEnv(t, nil)

	resp, raw := env.do(t, http.MethodGet, "/api/v1/chunks/1/1", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "chunk not materialized", decodeError(t, raw).Error)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/chunks/1/1/request", `{"lod": 1}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	env.waitForChunk(t, grid.ChunkCoord{X: 1, Z: 1})

	// the record lands in the same drain as the asset
	resp, raw = env.do(t, http.MethodGet, "/api/v1/chunks/1/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var detail struct {
		Coord    grid.ChunkCoord `json:"coord"`
		LOD      int             `json:"lod"`
		AssetID  string          `json:"asset_id"`
		Location [2]float64      `json:"location"`
		Vertices int             `json:"vertices"`
	}
	require.NoError(t, json.Unmarshal(raw, &detail))
	assert.Equal(t, grid.ChunkCoord{X: 1, Z: 1}, detail.Coord)
	assert.Equal(t, chunk.FinestLOD, detail.LOD)
	assert.NotEmpty(t, detail.AssetID)
	row := mesh.RowLength(testutil.SmallChunkSize, chunk.FinestLOD)
	assert.Equal(t, row*row, detail.Vertices)

	want := grid.ChunkCoord{X: 1, Z: 1}.Location(testutil.SmallChunkSize)
	assert.Equal(t, [2]float64{want.X(), want.Y()}, detail.Location)

	resp, raw = env.do(t, http.MethodGet, "/api/v1/chunks", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Count  int `json:"count"`
		Chunks []struct {
			Coord grid.ChunkCoord `json:"coord"`
		} `json:"chunks"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, grid.ChunkCoord{X: 1, Z: 1}, list.Chunks[0].Coord)
}

func TestHandler_ChunkAssets(t *testing.T) {
	testutil.SetupTest(t, testutil.DefaultTestConfig())

	env := newTestEnv(t, nil)
	resp, _ := env.do(t, http.MethodPost, "/api/v1/chunks/0/-1/request", `{"lod": 2}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	env.waitForChunk(t, grid.ChunkCoord{X: 0, Z: -1})

	resp, raw := env.do(t, http.MethodGet, "/api/v1/chunks/0/-1/mesh", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Asset-ID"))
	m, err := mesh.Decode(raw)
	require.NoError(t, err)
	row := mesh.RowLength(testutil.SmallChunkSize, 2)
	assert.Len(t, m.Vertices, row*row)

	for _, path := range []string{"/api/v1/chunks/0/-1/texture.png", "/api/v1/chunks/0/-1/heightmap.png"} {
		resp, raw := env.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		img, err := png.Decode(bytes.NewReader(raw))
		require.NoError(t, err)
		assert.Equal(t, testutil.SmallChunkSize, img.Bounds().Dx())
	}

	resp, _ = env.do(t, http.MethodGet, "/api/v1/chunks/5/5/mesh", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_MoveViewer(t *testing.T) {
	testutil.SetupTest(t, testutil.DefaultTestConfig())

	env := newTestEnv(t, nil)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantMapped bool
	}{
		{name: "first position maps", body: `{"x": 0, "z": 0}`, wantStatus: http.StatusOK, wantMapped: true},
		{name: "short move", body: `{"x": 3, "z": 4}`, wantStatus: http.StatusOK, wantMapped: false},
		{name: "long move", body: `{"x": 40, "z": -8}`, wantStatus: http.StatusOK, wantMapped: true},
		{name: "missing z", body: `{"x": 1}`, wantStatus: http.StatusBadRequest},
		{name: "malformed", body: `not json`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := env.do(t, http.MethodPost, "/api/v1/viewer", tt.body)
			require.Equal(t, tt.wantStatus, resp.StatusCode, string(raw))
			if tt.wantStatus != http.StatusOK {
				return
			}
			var body struct {
				Mapped bool `json:"mapped"`
			}
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, tt.wantMapped, body.Mapped)
		})
	}

	ok := testutil.WaitFor(10*time.Second, func() bool {
		s, err := env.loop.Stats(context.Background())
		return err == nil && s.Pending == 0 && s.Records > 0
	})
	require.True(t, ok)

	resp, raw := env.do(t, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats struct {
		Loop   driver.Stats `json:"loop"`
		Assets int          `json:"assets"`
	}
	require.NoError(t, json.Unmarshal(raw, &stats))
	assert.Equal(t, stats.Loop.Records, stats.Assets)
}

func TestHandler_LoopStopped(t *testing.T) {
	testutil.SetupTest(t, testutil.DefaultTestConfig())

	env := newTestEnv(t, nil)
	env.stop()
	ok := testutil.WaitFor(5*time.Second, func() bool {
		_, err := env.loop.Stats(context.Background())
		return err != nil
	})
	require.True(t, ok)

	resp, raw := env.do(t, http.MethodGet, "/api/v1/chunks", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "Internal server error", decodeError(t, raw).Error, "5xx details are hidden")
}

func TestHandler_ListBiomes(t *testing.T) {
	testutil.SetupTest(t, testutil.DefaultTestConfig())

	ctrl := gomock.NewController(t)

	tests := []struct {
		name       string
		setupMocks func(src *mocks.MockBiomeSource)
		wantStatus int
		validate   func(t *testing.T, raw []byte)
	}{
		{
			name: "normalised table",
			setupMocks: func(src *mocks.MockBiomeSource) {
				table := testutil.TwoBiomeTable()
				table.Normalize()
				src.EXPECT().Table().Return(table)
			},
			wantStatus: http.StatusOK,
			validate: func(t *testing.T, raw []byte) {
				var body struct {
					Count  int         `json:"count"`
					Biomes []biomeView `json:"biomes"`
				}
				require.NoError(t, json.Unmarshal(raw, &body))
				require.Equal(t, 2, body.Count)
				assert.Equal(t, "lowlands", body.Biomes[0].Name)
				assert.Equal(t, 1, body.Biomes[1].Index)
				assert.InDelta(t, 0.5, body.Biomes[0].Commonness, 1e-9)
				require.NotEmpty(t, body.Biomes[0].Regions)
				assert.True(t, strings.HasPrefix(body.Biomes[0].Regions[0].Color, "#"))
			},
		},
		{
			name: "misconfigured table",
			setupMocks: func(src *mocks.MockBiomeSource) {
				src.EXPECT().Table().Return(nil)
			},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := mocks.NewMockBiomeSource(ctrl)
			tt.setupMocks(src)
			env := newTestEnv(t, src)

			resp, raw := env.do(t, http.MethodGet, "/api/v1/biomes", "")
			require.Equal(t, tt.wantStatus, resp.StatusCode, string(raw))
			if tt.validate != nil {
				tt.validate(t, raw)
			}
		})
	}
}

func TestHandler_GetBiomeMap(t *testing.T) {
	testutil.SetupTest(t, testutil.DefaultTestConfig())

	ctrl := gomock.NewController(t)
	src := mocks.NewMockBiomeSource(ctrl)
	src.EXPECT().Table().Return(testutil.TwoBiomeTable()).AnyTimes()
	src.EXPECT().BiomeAt(gomock.Any()).DoAndReturn(func(c grid.ChunkCoord) int {
		if c.X >= 12 {
			return 1
		}
		return 0
	}).Times(4 * 3)

	env := newTestEnv(t, src)

	resp, raw := env.do(t, http.MethodGet, "/api/v1/biomes/map.png?x=10&z=0&width=4&height=3&cell=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 6, img.Bounds().Dy())

	r, _, _, _ := img.At(0, 0).RGBA()
	assert.Zero(t, r, "x=10 is biome 0")
	r, _, _, _ = img.At(7, 5).RGBA()
	assert.Equal(t, uint32(0xffff), r, "x=13 is biome 1")

	for _, query := range []string{"width=0", "height=1000", "cell=99", "x=abc"} {
		resp, _ := env.do(t, http.MethodGet, "/api/v1/biomes/map.png?"+query, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
	}
}

func TestEventStream(t *testing.T) {
	testutil.SetupTest(t, testutil.DefaultTestConfig())

	env := newTestEnv(t, nil)

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.True(t, testutil.WaitFor(5*time.Second, func() bool {
		return env.hub.Subscribers() == 1
	}))

	resp, _ := env.do(t, http.MethodPost, "/api/v1/chunks/-2/4/request", `{"lod": 3}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	var ev assets.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, assets.EventChunkMaterialized, ev.Type)
	assert.Equal(t, grid.ChunkCoord{X: -2, Z: 4}, ev.Coord)
	assert.Equal(t, 3, ev.LOD)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/chunks/-2/4/request", `{"lod": -1}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, assets.EventChunkReleased, ev.Type)

	require.NoError(t, conn.Close())
	assert.True(t, testutil.WaitFor(5*time.Second, func() bool {
		return env.hub.Subscribers() == 0
	}), "closing the socket unsubscribes")
}
