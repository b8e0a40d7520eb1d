package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// chanSource delivers chunks pushed by the test and EOF once closed.
type chanSource struct {
	chunks chan []byte
}

func newChanSource() *chanSource {
	return &chanSource{chunks: make(chan []byte, 16)}
}

func (s *chanSource) Next(ctx context.Context) ([]byte, error) {
	select {
	case chunk, ok := <-s.chunks:
		if !ok {
			return nil, io.EOF
		}
		return chunk, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type memSink struct {
	mu     sync.Mutex
	err    error
	puts   int
	lastID uint
	data   []byte
}

func (s *memSink) Put(ctx context.Context, meetingID uint, data []byte, mimeType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	s.lastID = meetingID
	s.data = append([]byte(nil), data...)
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("https://cdn.example.com/meeting-%d.webm", meetingID), nil
}

func TestRecorderUploadsConcatenatedChunks(t *testing.T) {
	source := newChanSource()
	sink := &memSink{}
	recorder, err := NewRecorder(Config{MeetingID: 3, Source: source, Sink: sink, Logger: testLogger()})
	require.NoError(t, err)
	require.Equal(t, StateIdle, recorder.State())

	require.NoError(t, recorder.Start(context.Background()))
	source.chunks <- []byte("first-")
	source.chunks <- []byte("second-")
	source.chunks <- []byte("third")
	close(source.chunks)

	// The pump drains the stream before the EOF moves it to stopped.
	require.Eventually(t, func() bool {
		return recorder.State() == StateStopped
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, recorder.Stop())

	result, err := recorder.Finalize(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateUploaded, result.State)
	require.Equal(t, int64(len("first-second-third")), result.SizeBytes)
	require.NotEmpty(t, result.URL)
	require.Equal(t, []byte("first-second-third"), sink.data)
	require.Equal(t, uint(3), sink.lastID)
	require.Equal(t, GenericContainer, result.MimeType)
}

func TestRecorderFallsBackWhenSinkFails(t *testing.T) {
	source := newChanSource()
	sink := &memSink{err: errors.New("storage offline")}

	var fallbackArtifact []byte
	recorder, err := NewRecorder(Config{
		MeetingID: 3,
		MimeType:  "video/webm;codecs=vp9,opus",
		Source:    source,
		Sink:      sink,
		Fallback: func(artifact []byte, mimeType string) {
			fallbackArtifact = append([]byte(nil), artifact...)
		},
		Logger: testLogger(),
	})
	require.NoError(t, err)

	require.NoError(t, recorder.Start(context.Background()))
	source.chunks <- []byte("payload")
	close(source.chunks)
	require.Eventually(t, func() bool {
		return recorder.State() == StateStopped
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, recorder.Stop())

	// Sink failure is a degraded outcome, not an error.
	result, err := recorder.Finalize(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateLocalFallback, result.State)
	require.Empty(t, result.URL)
	require.Equal(t, []byte("payload"), fallbackArtifact)
	require.Equal(t, StateLocalFallback, recorder.State())
}

func TestRecorderStateMachineGuards(t *testing.T) {
	source := newChanSource()
	recorder, err := NewRecorder(Config{MeetingID: 3, Source: source, Sink: &memSink{}, Logger: testLogger()})
	require.NoError(t, err)

	// Stop and Finalize are illegal before Start.
	require.ErrorIs(t, recorder.Stop(), ErrInvalidState)
	_, err = recorder.Finalize(context.Background())
	require.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, recorder.Start(context.Background()))
	require.ErrorIs(t, recorder.Start(context.Background()), ErrInvalidState)

	close(source.chunks)
	require.NoError(t, recorder.Stop())
	require.NoError(t, recorder.Stop())

	_, err = recorder.Finalize(context.Background())
	require.NoError(t, err)

	// Terminal states reject everything.
	require.ErrorIs(t, recorder.Start(context.Background()), ErrInvalidState)
	_, err = recorder.Finalize(context.Background())
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestRecorderIdleTimeoutDisposesSession(t *testing.T) {
	source := newChanSource()
	recorder, err := NewRecorder(Config{
		MeetingID:   3,
		Source:      source,
		Sink:        &memSink{},
		IdleTimeout: 20 * time.Millisecond,
		Logger:      testLogger(),
	})
	require.NoError(t, err)

	require.NoError(t, recorder.Start(context.Background()))
	source.chunks <- []byte("only chunk")

	// No further chunks arrive; the pump gives up on its own.
	require.Eventually(t, func() bool {
		return recorder.State() == StateStopped
	}, time.Second, 5*time.Millisecond)

	result, err := recorder.Finalize(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateUploaded, result.State)
	require.Equal(t, int64(len("only chunk")), result.SizeBytes)
}

func TestRecorderRequiresSourceAndSink(t *testing.T) {
	_, err := NewRecorder(Config{Sink: &memSink{}, Logger: testLogger()})
	require.Error(t, err)

	_, err = NewRecorder(Config{Source: newChanSource(), Logger: testLogger()})
	require.Error(t, err)
}

func TestNegotiateMimeTypePrefersVP9(t *testing.T) {
	mime, err := NegotiateMimeType(func(mimeType string) bool { return true })
	require.NoError(t, err)
	require.Equal(t, "video/webm;codecs=vp9,opus", mime)
}

func TestNegotiateMimeTypeFallsThroughPreferenceOrder(t *testing.T) {
	mime, err := NegotiateMimeType(func(mimeType string) bool {
		return mimeType == "video/webm;codecs=h264,opus" || mimeType == GenericContainer
	})
	require.NoError(t, err)
	require.Equal(t, "video/webm;codecs=h264,opus", mime)

	mime, err = NegotiateMimeType(func(mimeType string) bool { return mimeType == GenericContainer })
	require.NoError(t, err)
	require.Equal(t, GenericContainer, mime)
}

func TestNegotiateMimeTypeNoSupport(t *testing.T) {
	_, err := NegotiateMimeType(func(mimeType string) bool { return false })
	require.ErrorIs(t, err, ErrNoSupportedCodec)
}

func TestSupervisorRetriesUntilSuccess(t *testing.T) {
	supervisor := NewSupervisor(SupervisorConfig{
		MaxAttempts:    5,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Logger:         testLogger(),
	})

	attempts := 0
	err := supervisor.Connect(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestSupervisorReportsFailureAfterCeiling(t *testing.T) {
	supervisor := NewSupervisor(SupervisorConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Logger:         testLogger(),
	})

	attempts := 0
	dialErr := errors.New("refused")
	err := supervisor.Connect(context.Background(), func(ctx context.Context) error {
		attempts++
		return dialErr
	})
	require.ErrorIs(t, err, ErrConnectionFailed)
	require.ErrorIs(t, err, dialErr)
	require.Equal(t, 3, attempts)
}

func TestSupervisorHonoursContext(t *testing.T) {
	supervisor := NewSupervisor(SupervisorConfig{
		MaxAttempts:    10,
		InitialBackoff: time.Hour,
		Logger:         testLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := supervisor.Connect(ctx, func(ctx context.Context) error {
		return errors.New("refused")
	})
	require.ErrorIs(t, err, context.Canceled)
}
