package api

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fosdem/glbacking/lib/backing"
	"github.com/fosdem/glbacking/lib/config"
	"github.com/fosdem/glbacking/lib/metrics"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackings struct {
	infos []backing.Info
}

func (f *fakeBackings) Infos() []backing.Info {
	return f.infos
}

func (f *fakeBackings) Len() int {
	return len(f.infos)
}

func (f *fakeBackings) Snapshot(_ context.Context, wid uint64) (*image.RGBA, error) {
	for _, i := range f.infos {
		if i.ID == wid {
			img := image.NewRGBA(image.Rect(0, 0, 4, 2))
			img.SetRGBA(1, 1, color.RGBA{200, 100, 50, 255})
			return img, nil
		}
	}
	return nil, errors.New("no such backing")
}

func newTestApi(t *testing.T) (*Api, *httptest.Server) {
	t.Helper()
	b := &fakeBackings{infos: []backing.Info{
		{ID: 0x10, PixelFormat: "RGB", InternalFormat: "RGB8", BackingSize: [2]int{4, 2}, Allocated: true},
		{ID: 0x20, BitDepth: 30},
	}}
	a := New(&config.ApiCfg{Bind: "127.0.0.1:0"}, b, nil)
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return a, srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestInfo(t *testing.T) {
	_, srv := newTestApi(t)

	resp, body := get(t, srv.URL+"/api/info")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var infos []map[string]any
	require.NoError(t, json.Unmarshal(body, &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, "RGB", infos[0]["pixel_format"])
	assert.Equal(t, "RGB8", infos[0]["internal_format"])
	assert.Equal(t, []any{4.0, 2.0}, infos[0]["backing_size"])

	resp, body = get(t, srv.URL+"/api/info/0x20")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var info backing.Info
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, 30, info.BitDepth)

	resp, _ = get(t, srv.URL+"/api/info/16")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = get(t, srv.URL+"/api/info/0x99")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = get(t, srv.URL+"/api/info/window")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStats(t *testing.T) {
	_, srv := newTestApi(t)
	resp, body := get(t, srv.URL+"/api/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var s map[string]any
	require.NoError(t, json.Unmarshal(body, &s))
	assert.Equal(t, 2.0, s["backings"])
	assert.Contains(t, s, "texture_upload")
}

func TestSnapshot(t *testing.T) {
	_, srv := newTestApi(t)

	resp, body := get(t, srv.URL+"/api/snapshot/0x10")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(strings.NewReader(string(body)))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 2), img.Bounds())
	r, g, b, _ := img.At(1, 1).RGBA()
	assert.Equal(t, []uint32{200, 100, 50}, []uint32{r >> 8, g >> 8, b >> 8})

	resp, body = get(t, srv.URL+"/api/snapshot/0x10/jpeg")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, err = jpeg.Decode(strings.NewReader(string(body)))
	assert.NoError(t, err)

	resp, _ = get(t, srv.URL+"/api/snapshot/0x10/gif")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = get(t, srv.URL+"/api/snapshot/0x30")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestKill(t *testing.T) {
	a, srv := newTestApi(t)
	killed := make(chan struct{})
	a.OnKill(func() { close(killed) })

	for i := 0; i < 2; i++ {
		resp, err := http.Post(srv.URL+"/api/kill", "application/json", nil)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	select {
	case <-killed:
	case <-time.After(time.Second):
		t.Fatal("kill handler not called")
	}
}

func TestMetricsAndDocs(t *testing.T) {
	_, srv := newTestApi(t)
	m := metrics.NewBackingMetrics("api-test")
	m.Presentations.Inc()
	t.Cleanup(m.Forget)

	resp, body := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `glbacking_presentations_total{name="api-test"} 1`)

	resp, body = get(t, srv.URL+"/swagger/doc.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "glbacking API")
	assert.Contains(t, string(body), "/api/info/{wid}")
}

func TestProfilerDisabledByDefault(t *testing.T) {
	_, srv := newTestApi(t)
	resp, _ := get(t, srv.URL+"/prof")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebsocketPushesStatus(t *testing.T) {
	a, srv := newTestApi(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = ws.Close() }()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	var status Status
	require.NoError(t, json.Unmarshal(msg, &status))
	assert.Len(t, status.Backings, 2)
	assert.Equal(t, 2, status.Stats.Backings)

	assert.Eventually(t, func() bool {
		return a.Stats.Snapshot().WsClients == 1
	}, time.Second, 10*time.Millisecond)
}
