package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

var (
	textureUploadCounter atomic.Uint64
	presentCounter       atomic.Uint64
	paintCounter         atomic.Uint64
)

// RecordUpload counts bytes sent from host memory to textures.
func RecordUpload(n int) {
	textureUploadCounter.Add(uint64(n))
}

func RecordPaint() {
	paintCounter.Add(1)
}

func RecordPresent() {
	presentCounter.Add(1)
}

type Stats struct {
	TextureUpload      uint64  `json:"texture_upload"`
	TextureUploadAvgGb float64 `json:"texture_upload_avg_gb"`
	Uptime             float64 `json:"uptime"`
	FPS                uint64  `json:"fps"`
	Paints             uint64  `json:"paints"`
	Presents           uint64  `json:"presents"`
	Backings           int     `json:"backings"`
	WsClients          int     `json:"ws_clients"`

	mu           sync.Mutex
	lastPresents uint64
	frameTimer   time.Time
	start        time.Time
}

func New() *Stats {
	s := &Stats{}
	s.start = time.Now()
	s.frameTimer = s.start
	return s
}

// Update refreshes the snapshot. FPS is recomputed at most once a second.
func (s *Stats) Update() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Presents = presentCounter.Load()
	if elapsed := time.Since(s.frameTimer); elapsed > 1*time.Second {
		s.FPS = uint64(float64(s.Presents-s.lastPresents) / elapsed.Seconds())
		s.lastPresents = s.Presents
		s.frameTimer = time.Now()
	}

	s.Uptime = float64(time.Since(s.start).Nanoseconds()) / 1e9
	s.Paints = paintCounter.Load()
	s.TextureUpload = textureUploadCounter.Load()
	s.TextureUploadAvgGb = float64(s.TextureUpload) / (s.Uptime * 1024 * 1024 * 1024)
}

// Snapshot returns a copy safe to serialise while Update runs elsewhere.
func (s *Stats) Snapshot() Stats {
	s.Update()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		TextureUpload:      s.TextureUpload,
		TextureUploadAvgGb: s.TextureUploadAvgGb,
		Uptime:             s.Uptime,
		FPS:                s.FPS,
		Paints:             s.Paints,
		Presents:           s.Presents,
		Backings:           s.Backings,
		WsClients:          s.WsClients,
	}
}

func (s *Stats) SetBackings(n int) {
	s.mu.Lock()
	s.Backings = n
	s.mu.Unlock()
}

func (s *Stats) SetWsClients(n int) {
	s.mu.Lock()
	s.WsClients = n
	s.mu.Unlock()
}
