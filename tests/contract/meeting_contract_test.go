package contract_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hireloop/interview-api/internal/dto"
	"github.com/hireloop/interview-api/internal/handler"
	"github.com/hireloop/interview-api/internal/models"
	"github.com/hireloop/interview-api/internal/service"
)

type stubMeetingService struct {
	meeting dto.MeetingResponse
}

func (s stubMeetingService) Schedule(context.Context, dto.MeetingScheduleRequest, service.Actor) (dto.MeetingResponse, error) {
	return s.meeting, nil
}

func (s stubMeetingService) Start(context.Context, uint, service.Actor) (dto.MeetingResponse, error) {
	return s.meeting, nil
}

func (s stubMeetingService) Cancel(context.Context, uint, service.Actor) (dto.MeetingResponse, error) {
	return s.meeting, nil
}

func (s stubMeetingService) Finish(context.Context, uint, service.Actor) (dto.MeetingResponse, error) {
	return s.meeting, nil
}

func (s stubMeetingService) Get(context.Context, uint) (dto.MeetingResponse, error) {
	return s.meeting, nil
}

func (s stubMeetingService) List(context.Context, dto.MeetingFilter) ([]dto.MeetingResponse, error) {
	return []dto.MeetingResponse{s.meeting}, nil
}

func (s stubMeetingService) Resolve(context.Context, uint) (models.Meeting, error) {
	return models.Meeting{}, nil
}

type stubGradingService struct{}

func (stubGradingService) SubmitEvaluation(context.Context, uint, dto.EvaluationSubmitRequest, service.Actor) (dto.MeetingResponse, error) {
	return dto.MeetingResponse{}, nil
}

func (stubGradingService) StartTest(context.Context, dto.StartTestRequest) (dto.SubmissionResponse, error) {
	return dto.SubmissionResponse{}, nil
}

func (stubGradingService) UpsertAnswer(context.Context, uint, dto.AnswerUpsertRequest, uint) (dto.SubmissionResponse, error) {
	return dto.SubmissionResponse{}, nil
}

func (stubGradingService) SubmitTest(context.Context, uint, uint) (dto.SubmissionResponse, error) {
	return dto.SubmissionResponse{}, nil
}

func (stubGradingService) AutoGrade(context.Context, uint, service.Actor) (dto.SubmissionResponse, error) {
	return dto.SubmissionResponse{}, nil
}

func (stubGradingService) OverrideAnswerScore(context.Context, uint, dto.AnswerOverrideRequest, service.Actor) (dto.AnswerResponse, error) {
	return dto.AnswerResponse{}, nil
}

func (stubGradingService) FinalizeGrading(context.Context, uint, service.Actor) (dto.SubmissionResponse, error) {
	return dto.SubmissionResponse{}, nil
}

func (stubGradingService) GetSubmission(context.Context, uint) (dto.SubmissionResponse, error) {
	return dto.SubmissionResponse{}, nil
}

func TestMeetingResponseContract(t *testing.T) {
	schema := compileSchema(t, "meeting.schema.json")

	score := 82.5
	feedback := "solid architecture discussion"
	meetings := stubMeetingService{meeting: dto.MeetingResponse{
		ID:               7,
		RoomName:         "room-9-1-1700000000000000000-ab12cd34",
		JobApplicationID: 2,
		InterviewRoundID: 5,
		CandidateUserID:  7,
		Status:           models.MeetingStatusDone,
		ScheduledAt:      time.Now().UTC(),
		InvitationStatus: models.InvitationConfirmed,
		RejectionCount:   1,
		Score:            &score,
		Feedback:         &feedback,
		EvaluationLocked: true,
		Round:            dto.RoundLite{ID: 5, RoundNumber: 1, Title: "Technical screen", Duration: 45},
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}}

	meetingHandler := handler.NewMeetingHandler(meetings, stubGradingService{}, zerolog.Nop())

	app := fiber.New()
	meetingHandler.Register(app.Group("/api/v1/meetings"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/meetings/7", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	validateBody(t, schema, resp)
}
