package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State is the recording pipeline's client-side state.
type State string

const (
	// StateIdle: recorder constructed, capture not started.
	StateIdle State = "idle"
	// StateCapturing: chunks are being buffered from the capture source.
	StateCapturing State = "capturing"
	// StateStopped: capture ended, artifact not yet finalized.
	StateStopped State = "stopped"
	// StateUploading: artifact handed to the sink.
	StateUploading State = "uploading"
	// StateUploaded: terminal, artifact landed in the blob store.
	StateUploaded State = "uploaded"
	// StateUploadFailed: sink rejected the artifact.
	StateUploadFailed State = "upload_failed"
	// StateLocalFallback: terminal, artifact handed back to the user.
	StateLocalFallback State = "local_fallback"
)

// ErrInvalidState indicates an operation that is illegal in the current state.
var ErrInvalidState = errors.New("invalid recorder state")

// ChunkInterval is the fixed time-slice granularity the source must honour.
const ChunkInterval = time.Second

// Source delivers time-sliced chunks of the capture stream. Next returns
// io.EOF when the stream ends, including the user revoking permission.
type Source interface {
	Next(ctx context.Context) ([]byte, error)
}

// Sink is the upload destination, keyed by meeting.
type Sink interface {
	Put(ctx context.Context, meetingID uint, data []byte, mimeType string) (string, error)
}

// Fallback receives the concatenated artifact when the upload fails.
type Fallback func(artifact []byte, mimeType string)

// Result reports the terminal outcome of a capture session.
type Result struct {
	State     State
	URL       string
	MimeType  string
	SizeBytes int64
}

// Config assembles a Recorder.
type Config struct {
	MeetingID uint
	MimeType  string
	Source    Source
	Sink      Sink
	Fallback  Fallback
	// IdleTimeout bounds how long the recorder waits for the next chunk
	// before treating the session as abandoned. Zero means no timeout.
	IdleTimeout time.Duration
	Logger      zerolog.Logger
}

// Recorder buffers capture chunks and drives them through the
// upload-or-fallback sink once stopped.
type Recorder struct {
	cfg    Config
	logger zerolog.Logger

	mu     sync.Mutex
	state  State
	chunks [][]byte

	cancel   context.CancelFunc
	pumpDone chan struct{}
}

// NewRecorder constructs a Recorder in the idle state.
func NewRecorder(cfg Config) (*Recorder, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("capture source is required")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("upload sink is required")
	}
	if cfg.MimeType == "" {
		cfg.MimeType = GenericContainer
	}

	return &Recorder{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "capture_recorder").Uint("meeting_id", cfg.MeetingID).Logger(),
		state:  StateIdle,
	}, nil
}

// State returns the recorder's current state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start begins buffering chunks from the source. Legal only from idle; the
// caller is responsible for starting capture only once the owning meeting
// is running.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidState, r.state)
	}
	r.state = StateCapturing
	pumpCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.pumpDone = make(chan struct{})
	r.mu.Unlock()

	go r.pump(pumpCtx)

	return nil
}

func (r *Recorder) pump(ctx context.Context) {
	defer close(r.pumpDone)

	for {
		chunkCtx := ctx
		var cancel context.CancelFunc
		if r.cfg.IdleTimeout > 0 {
			chunkCtx, cancel = context.WithTimeout(ctx, r.cfg.IdleTimeout)
		}

		chunk, err := r.cfg.Source.Next(chunkCtx)
		if cancel != nil {
			cancel()
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				r.logger.Debug().Msg("capture stream ended")
			} else if errors.Is(err, context.DeadlineExceeded) {
				r.logger.Warn().Msg("capture session abandoned, disposing with buffered chunks")
			} else if !errors.Is(err, context.Canceled) {
				r.logger.Warn().Err(err).Msg("capture stream error, proceeding with buffered chunks")
			}
			r.transitionStopped()
			return
		}

		r.mu.Lock()
		if r.state != StateCapturing {
			r.mu.Unlock()
			return
		}
		if len(chunk) > 0 {
			r.chunks = append(r.chunks, chunk)
		}
		r.mu.Unlock()
	}
}

func (r *Recorder) transitionStopped() {
	r.mu.Lock()
	if r.state == StateCapturing {
		r.state = StateStopped
	}
	r.mu.Unlock()
}

// Stop ends capture and waits for the pump to drain. Idempotent once
// stopped; illegal before Start.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	switch r.state {
	case StateIdle:
		r.mu.Unlock()
		return fmt.Errorf("%w: stop from %s", ErrInvalidState, StateIdle)
	case StateCapturing:
		r.state = StateStopped
	}
	cancel := r.cancel
	done := r.pumpDone
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	return nil
}

// Finalize concatenates the buffered chunks and attempts the upload. On
// sink failure the artifact goes to the fallback and the session ends in
// local_fallback: a degraded outcome, not an error. Legal only from stopped.
func (r *Recorder) Finalize(ctx context.Context) (Result, error) {
	r.mu.Lock()
	if r.state != StateStopped {
		state := r.state
		r.mu.Unlock()
		return Result{}, fmt.Errorf("%w: finalize from %s", ErrInvalidState, state)
	}
	r.state = StateUploading
	artifact := bytes.Join(r.chunks, nil)
	r.chunks = nil
	r.mu.Unlock()

	result := Result{
		MimeType:  r.cfg.MimeType,
		SizeBytes: int64(len(artifact)),
	}

	url, err := r.cfg.Sink.Put(ctx, r.cfg.MeetingID, artifact, r.cfg.MimeType)
	if err != nil {
		r.logger.Warn().Err(err).Msg("upload failed, falling back to local artifact")
		r.mu.Lock()
		r.state = StateUploadFailed
		r.mu.Unlock()

		if r.cfg.Fallback != nil {
			r.cfg.Fallback(artifact, r.cfg.MimeType)
		}

		r.mu.Lock()
		r.state = StateLocalFallback
		r.mu.Unlock()

		result.State = StateLocalFallback
		return result, nil
	}

	r.mu.Lock()
	r.state = StateUploaded
	r.mu.Unlock()

	result.State = StateUploaded
	result.URL = url

	return result, nil
}
