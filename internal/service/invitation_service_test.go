package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/hireloop/interview-api/internal/dto"
	"github.com/hireloop/interview-api/internal/models"
)

const inviteToken = "0d1f4c9aa2b34e6f8d7c5b3a19283746"

func pendingInvitedMeeting(rejections int) models.Meeting {
	return models.Meeting{
		ID:               1,
		JobApplicationID: 2,
		CandidateUserID:  7,
		Status:           models.MeetingStatusPending,
		InvitationStatus: models.InvitationSent,
		RejectionCount:   rejections,
		ResponseToken:    inviteToken,
	}
}

func newInvitationService(meetings *fakeMeetingRepo, applications *fakeApplicationRepo, notifier *fakeNotifier, audit *fakeAudit) InvitationService {
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewInvitationService(meetings, applications, notifier, audit, nil, validate, testLogger())
}

func TestInvitationVerifyResolvesToken(t *testing.T) {
	meetings := newFakeMeetingRepo(pendingInvitedMeeting(1))
	svc := newInvitationService(meetings, newFakeApplicationRepo(), &fakeNotifier{}, &fakeAudit{})

	view, err := svc.Verify(context.Background(), inviteToken)
	require.NoError(t, err)
	require.Equal(t, models.InvitationSent, view.InvitationStatus)
	require.Equal(t, 1, view.RejectionCount)
	require.Equal(t, uint(1), view.Meeting.ID)
}

func TestInvitationVerifyUnknownToken(t *testing.T) {
	meetings := newFakeMeetingRepo(pendingInvitedMeeting(0))
	svc := newInvitationService(meetings, newFakeApplicationRepo(), &fakeNotifier{}, &fakeAudit{})

	_, err := svc.Verify(context.Background(), "ffffffffffffffffffffffffffffffff")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestInvitationAcceptConfirms(t *testing.T) {
	meetings := newFakeMeetingRepo(pendingInvitedMeeting(0))
	audit := &fakeAudit{}
	svc := newInvitationService(meetings, newFakeApplicationRepo(), &fakeNotifier{}, audit)

	resp, err := svc.Respond(context.Background(), dto.InvitationRespondRequest{Token: inviteToken, Action: ActionAccept})
	require.NoError(t, err)
	require.True(t, resp.Mutated)
	require.Equal(t, models.InvitationConfirmed, resp.InvitationStatus)
	require.Nil(t, resp.RemainingChances)
	require.False(t, resp.ApplicationCancelled)

	meeting, err := meetings.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, models.MeetingStatusPending, meeting.Status)
	require.Len(t, audit.entries, 1)
	require.Equal(t, "invitation.accepted", audit.entries[0].Action)
}

func TestInvitationRespondIsIdempotent(t *testing.T) {
	meetings := newFakeMeetingRepo(pendingInvitedMeeting(0))
	svc := newInvitationService(meetings, newFakeApplicationRepo(), &fakeNotifier{}, &fakeAudit{})

	first, err := svc.Respond(context.Background(), dto.InvitationRespondRequest{Token: inviteToken, Action: ActionAccept})
	require.NoError(t, err)
	require.True(t, first.Mutated)

	// Replays echo the authoritative state without erroring or mutating,
	// regardless of which action the stale page re-sends.
	for _, action := range []string{ActionAccept, ActionReject} {
		replay, err := svc.Respond(context.Background(), dto.InvitationRespondRequest{Token: inviteToken, Action: action})
		require.NoError(t, err)
		require.False(t, replay.Mutated)
		require.Equal(t, models.InvitationConfirmed, replay.InvitationStatus)
	}

	meeting, err := meetings.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Zero(t, meeting.RejectionCount)
}

func TestInvitationRejectBelowCeiling(t *testing.T) {
	meetings := newFakeMeetingRepo(pendingInvitedMeeting(0))
	notifier := &fakeNotifier{}
	svc := newInvitationService(meetings, newFakeApplicationRepo(), notifier, &fakeAudit{})

	resp, err := svc.Respond(context.Background(), dto.InvitationRespondRequest{Token: inviteToken, Action: ActionReject, Reason: "conflict with exams"})
	require.NoError(t, err)
	require.True(t, resp.Mutated)
	require.Equal(t, models.InvitationRescheduleRequested, resp.InvitationStatus)
	require.NotNil(t, resp.RemainingChances)
	require.Equal(t, 2, *resp.RemainingChances)
	require.False(t, resp.ApplicationCancelled)
	require.Zero(t, notifier.cancelled)

	// The rejected meeting stays pending for audit until HR reschedules.
	meeting, err := meetings.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, models.MeetingStatusPending, meeting.Status)
	require.Equal(t, 1, meeting.RejectionCount)
}

func TestInvitationThirdRejectCascadeCancels(t *testing.T) {
	meetings := newFakeMeetingRepo(pendingInvitedMeeting(2))
	applications := newFakeApplicationRepo(models.JobApplication{ID: 2, JobPostingID: 9, Status: models.ApplicationStatusInterviewing})
	notifier := &fakeNotifier{}
	audit := &fakeAudit{}
	svc := newInvitationService(meetings, applications, notifier, audit)

	resp, err := svc.Respond(context.Background(), dto.InvitationRespondRequest{Token: inviteToken, Action: ActionReject})
	require.NoError(t, err)
	require.True(t, resp.Mutated)
	require.Equal(t, models.InvitationCancelled, resp.InvitationStatus)
	require.True(t, resp.ApplicationCancelled)
	require.Nil(t, resp.RemainingChances)

	meeting, err := meetings.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, models.MeetingStatusCancelled, meeting.Status)
	require.Equal(t, 3, meeting.RejectionCount)

	application, err := applications.GetByID(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusRejected, application.Status)
	require.Equal(t, 1, notifier.cancelled)
	require.Len(t, audit.entries, 1)
	require.Equal(t, "invitation.cancelled", audit.entries[0].Action)
}

func TestIssueTokenRebindsMeeting(t *testing.T) {
	meetings := newFakeMeetingRepo(pendingInvitedMeeting(0))
	svc := newInvitationService(meetings, newFakeApplicationRepo(), &fakeNotifier{}, &fakeAudit{})

	token, err := svc.IssueToken(context.Background(), 1)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(token), 32)

	meeting, err := meetings.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, token, meeting.ResponseToken)

	// Old token no longer resolves.
	_, err = svc.Verify(context.Background(), inviteToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}
