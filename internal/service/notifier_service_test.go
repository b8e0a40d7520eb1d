package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hireloop/interview-api/internal/dto"
	"github.com/hireloop/interview-api/internal/models"
)

type fakeNotificationRepo struct {
	mu     sync.Mutex
	nextID uint
	items  []models.Notification
}

func (r *fakeNotificationRepo) Create(_ context.Context, notification *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	notification.ID = r.nextID
	notification.CreatedAt = time.Now()
	r.items = append(r.items, *notification)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(_ context.Context, userID string, _, _ int) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, item := range r.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id uint, userID string) (models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id && r.items[i].UserID == userID {
			r.items[i].Read = true
			return r.items[i], nil
		}
	}
	return models.Notification{}, gorm.ErrRecordNotFound
}

func newRedisForTest(t *testing.T) *redis.Client {
	t.Helper()
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNotifierPublishPersistsAndBroadcasts(t *testing.T) {
	repo := &fakeNotificationRepo{}
	client := newRedisForTest(t)
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewNotifierService(repo, client, "test:interview", nil, validate, testLogger())

	ctx := context.Background()
	sub := client.Subscribe(ctx, "test:interview:notifications")
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	resp, err := svc.Publish(ctx, dto.NotificationCreateRequest{
		UserID:  "7",
		Type:    models.NotificationInvitationIssued,
		Message: "interview scheduled",
	})
	require.NoError(t, err)
	require.Equal(t, "7", resp.UserID)
	require.Len(t, repo.items, 1)

	msgCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(msgCtx)
	require.NoError(t, err)

	var event struct {
		Notification dto.NotificationResponse `json:"notification"`
	}
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
	require.Equal(t, resp.ID, event.Notification.ID)
	require.Equal(t, models.NotificationInvitationIssued, event.Notification.Type)
}

func TestNotifierPublishSanitizesMarkup(t *testing.T) {
	repo := &fakeNotificationRepo{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewNotifierService(repo, nil, "", nil, validate, testLogger())

	resp, err := svc.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:  "7",
		Type:    models.NotificationApplicationAdvanced,
		Message: `<b>application</b> advanced<script>alert(1)</script>`,
	})
	require.NoError(t, err)
	require.Equal(t, "application advanced", resp.Message)

	_, err = svc.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:  "7",
		Type:    models.NotificationApplicationAdvanced,
		Message: `<script>alert(1)</script>`,
	})
	require.Error(t, err)
	require.Len(t, repo.items, 1)
}

func TestNotifierMarkReadScopedToUser(t *testing.T) {
	repo := &fakeNotificationRepo{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewNotifierService(repo, nil, "", nil, validate, testLogger())

	created, err := svc.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:  "7",
		Type:    models.NotificationApplicationCancelled,
		Message: "application closed",
	})
	require.NoError(t, err)

	_, err = svc.MarkRead(context.Background(), created.ID, "99")
	require.Error(t, err)

	read, err := svc.MarkRead(context.Background(), created.ID, "7")
	require.NoError(t, err)
	require.True(t, read.Read)
}
