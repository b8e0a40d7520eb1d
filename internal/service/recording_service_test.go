package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hireloop/interview-api/internal/models"
)

type fakeBlobStore struct {
	putErr error
	puts   int
}

func (f *fakeBlobStore) Put(ctx context.Context, meetingID uint, data []byte, mimeType string) (string, error) {
	f.puts++
	if f.putErr != nil {
		return "", f.putErr
	}
	return fmt.Sprintf("https://cdn.example.com/meeting-%d.webm", meetingID), nil
}

// webmPayload carries a minimal EBML header so MIME sniffing sees video/webm.
func webmPayload(size int) []byte {
	data := append([]byte{0x1A, 0x45, 0xDF, 0xA3, 0x42, 0x82, 0x84}, []byte("webm")...)
	for len(data) < size {
		data = append(data, 0x00)
	}
	return data
}

func multipartRecording(t *testing.T, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "recording.webm")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(64 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	return form.File["file"][0]
}

func TestRecordingStoreUploads(t *testing.T) {
	meetings := newFakeMeetingRepo(models.Meeting{ID: 3, Status: models.MeetingStatusDone})
	recordings := &fakeRecordingRepo{}
	store := &fakeBlobStore{}
	audit := &fakeAudit{}
	svc := NewRecordingService(recordings, meetings, store, audit, 1, testLogger())

	resp, err := svc.Store(context.Background(), 3, multipartRecording(t, webmPayload(1024)), Actor{ID: 11, Role: "hr"})
	require.NoError(t, err)
	require.Equal(t, models.RecordingUploaded, resp.Outcome)
	require.Equal(t, "video/webm", resp.MimeType)
	require.NotNil(t, resp.URL)
	require.Equal(t, 1, store.puts)

	meeting, err := meetings.GetByID(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, meeting.RecordingURL)
	require.Equal(t, *resp.URL, *meeting.RecordingURL)
	require.Len(t, audit.entries, 1)
	require.Equal(t, "recording.stored", audit.entries[0].Action)
}

func TestRecordingStoreIsWriteOnce(t *testing.T) {
	meetings := newFakeMeetingRepo(models.Meeting{ID: 3, Status: models.MeetingStatusDone})
	recordings := &fakeRecordingRepo{}
	svc := NewRecordingService(recordings, meetings, &fakeBlobStore{}, &fakeAudit{}, 1, testLogger())

	_, err := svc.Store(context.Background(), 3, multipartRecording(t, webmPayload(1024)), Actor{ID: 11, Role: "hr"})
	require.NoError(t, err)

	_, err = svc.Store(context.Background(), 3, multipartRecording(t, webmPayload(2048)), Actor{ID: 11, Role: "hr"})
	require.ErrorIs(t, err, ErrRecordingExists)
}

func TestRecordingStoreFallsBackOnUploadFailure(t *testing.T) {
	meetings := newFakeMeetingRepo(models.Meeting{ID: 3, Status: models.MeetingStatusDone})
	recordings := &fakeRecordingRepo{}
	store := &fakeBlobStore{putErr: errors.New("cloudinary unavailable")}
	svc := NewRecordingService(recordings, meetings, store, &fakeAudit{}, 1, testLogger())

	// Upstream failure is a degraded success, not an error.
	resp, err := svc.Store(context.Background(), 3, multipartRecording(t, webmPayload(1024)), Actor{ID: 11, Role: "hr"})
	require.NoError(t, err)
	require.Equal(t, models.RecordingFallbackLocal, resp.Outcome)
	require.Nil(t, resp.URL)

	// The meeting keeps no link to a recording that never landed upstream.
	meeting, err := meetings.GetByID(context.Background(), 3)
	require.NoError(t, err)
	require.Nil(t, meeting.RecordingURL)

	// The write-once row still counts.
	_, err = svc.Store(context.Background(), 3, multipartRecording(t, webmPayload(1024)), Actor{ID: 11, Role: "hr"})
	require.ErrorIs(t, err, ErrRecordingExists)
}

func TestRecordingStoreRejectsOversizedPayload(t *testing.T) {
	meetings := newFakeMeetingRepo(models.Meeting{ID: 3, Status: models.MeetingStatusDone})
	svc := NewRecordingService(&fakeRecordingRepo{}, meetings, &fakeBlobStore{}, &fakeAudit{}, 1, testLogger())

	_, err := svc.Store(context.Background(), 3, multipartRecording(t, webmPayload(2*1024*1024)), Actor{ID: 11, Role: "hr"})
	require.ErrorIs(t, err, ErrRecordingTooLarge)
}

func TestRecordingStoreRejectsDisallowedType(t *testing.T) {
	meetings := newFakeMeetingRepo(models.Meeting{ID: 3, Status: models.MeetingStatusDone})
	store := &fakeBlobStore{}
	svc := NewRecordingService(&fakeRecordingRepo{}, meetings, store, &fakeAudit{}, 1, testLogger())

	_, err := svc.Store(context.Background(), 3, multipartRecording(t, []byte("plain text, not a media container")), Actor{ID: 11, Role: "hr"})
	require.ErrorIs(t, err, ErrRecordingTypeNotAllowed)
	require.Zero(t, store.puts)
}

func TestRecordingStoreRequiresDoneMeeting(t *testing.T) {
	meetings := newFakeMeetingRepo(models.Meeting{ID: 3, Status: models.MeetingStatusRunning})
	svc := NewRecordingService(&fakeRecordingRepo{}, meetings, &fakeBlobStore{}, &fakeAudit{}, 1, testLogger())

	_, err := svc.Store(context.Background(), 3, multipartRecording(t, webmPayload(1024)), Actor{ID: 11, Role: "hr"})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRecordingGet(t *testing.T) {
	meetings := newFakeMeetingRepo(models.Meeting{ID: 3, Status: models.MeetingStatusDone})
	recordings := &fakeRecordingRepo{}
	svc := NewRecordingService(recordings, meetings, &fakeBlobStore{}, &fakeAudit{}, 1, testLogger())

	_, err := svc.Get(context.Background(), 3)
	require.ErrorIs(t, err, ErrRecordingNotFound)

	stored, err := svc.Store(context.Background(), 3, multipartRecording(t, webmPayload(1024)), Actor{ID: 11, Role: "hr"})
	require.NoError(t, err)

	fetched, err := svc.Get(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, stored.Outcome, fetched.Outcome)
	require.Equal(t, stored.SizeBytes, fetched.SizeBytes)
}
