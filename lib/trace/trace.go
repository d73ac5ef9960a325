// Package trace records the inputs of window backings to a msgpack stream
// and plays them back, so that rendering problems can be reproduced
// without the remote end.
package trace

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fosdem/glbacking/lib/encdec"
	"github.com/fosdem/glbacking/lib/overlay"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	magic   = "glbacking-trace"
	version = 1
)

type Kind uint8

const (
	KindPaint Kind = iota + 1
	KindScroll
	KindResize
	KindCursor
	KindPointer
)

func (k Kind) String() string {
	switch k {
	case KindPaint:
		return "paint"
	case KindScroll:
		return "scroll"
	case KindResize:
		return "resize"
	case KindCursor:
		return "cursor"
	case KindPointer:
		return "pointer"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

type header struct {
	Magic   string    `msgpack:"magic"`
	Version int       `msgpack:"version"`
	Started time.Time `msgpack:"started"`
}

// Event is one recorded call. Only the fields of its kind are set.
type Event struct {
	Kind Kind   `msgpack:"kind"`
	WID  uint64 `msgpack:"wid"`
	// At is the time since the recording started.
	At time.Duration `msgpack:"at"`

	Update     *encdec.Update    `msgpack:"update,omitempty"`
	Scroll     []encdec.ScrollOp `msgpack:"scroll,omitempty"`
	Flush      int               `msgpack:"flush,omitempty"`
	RenderSize image.Point       `msgpack:"render_size,omitempty"`
	Size       image.Point       `msgpack:"size,omitempty"`
	Cursor     *overlay.Cursor   `msgpack:"cursor,omitempty"`
	Pointer    image.Point       `msgpack:"pointer,omitempty"`
}

// Recorder writes every traced call to a stream. It is safe for
// concurrent use; a write error stops the recording and is returned by
// Close.
type Recorder struct {
	log *slog.Logger

	mu    sync.Mutex
	out   io.WriteCloser
	buf   *bufio.Writer
	enc   *msgpack.Encoder
	start time.Time
	err   error
}

func NewRecorder(out io.WriteCloser, log *slog.Logger) (*Recorder, error) {
	if log == nil {
		log = slog.Default()
	}
	r := &Recorder{
		log:   log.With(slog.String("module", "trace")),
		out:   out,
		buf:   bufio.NewWriter(out),
		start: time.Now(),
	}
	r.enc = msgpack.NewEncoder(r.buf)
	err := r.enc.Encode(&header{Magic: magic, Version: version, Started: r.start})
	if err != nil {
		return nil, fmt.Errorf("could not write trace header: %w", err)
	}
	return r, nil
}

// Create starts a recording in a new file.
func Create(path string, log *slog.Logger) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create trace: %w", err)
	}
	r, err := NewRecorder(f, log)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.log.Info("recording", slog.String("file", path))
	return r, nil
}

func (r *Recorder) record(e *Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	e.At = time.Since(r.start)
	if err := r.enc.Encode(e); err != nil {
		r.err = err
		r.log.Error("recording stopped", slog.Any("error", err))
	}
}

func (r *Recorder) TracePaint(wid uint64, u *encdec.Update) {
	r.record(&Event{Kind: KindPaint, WID: wid, Update: u})
}

func (r *Recorder) TraceScroll(wid uint64, ops []encdec.ScrollOp, flush int) {
	r.record(&Event{Kind: KindScroll, WID: wid, Scroll: ops, Flush: flush})
}

func (r *Recorder) TraceResize(wid uint64, renderSize, size image.Point) {
	r.record(&Event{Kind: KindResize, WID: wid, RenderSize: renderSize, Size: size})
}

func (r *Recorder) TraceCursor(wid uint64, c *overlay.Cursor) {
	r.record(&Event{Kind: KindCursor, WID: wid, Cursor: c})
}

func (r *Recorder) TracePointer(wid uint64, pos image.Point) {
	r.record(&Event{Kind: KindPointer, WID: wid, Pointer: pos})
}

// Close flushes and closes the stream.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.err
	if err == nil {
		err = r.buf.Flush()
	}
	r.err = errors.New("recorder closed")
	if cerr := r.out.Close(); err == nil {
		err = cerr
	}
	return err
}

type Reader struct {
	dec     *msgpack.Decoder
	Started time.Time
}

// NewReader checks the stream header.
func NewReader(in io.Reader) (*Reader, error) {
	dec := msgpack.NewDecoder(bufio.NewReader(in))
	var h header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("could not read trace header: %w", err)
	}
	if h.Magic != magic {
		return nil, fmt.Errorf("not a trace file")
	}
	if h.Version != version {
		return nil, fmt.Errorf("unsupported trace version %d", h.Version)
	}
	return &Reader{dec: dec, Started: h.Started}, nil
}

// Next returns the next event, or io.EOF at the end of the stream.
func (r *Reader) Next() (*Event, error) {
	var e Event
	if err := r.dec.Decode(&e); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("could not read trace event: %w", err)
	}
	return &e, nil
}
