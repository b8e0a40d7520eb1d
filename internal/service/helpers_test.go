package service

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/hireloop/interview-api/internal/models"
	"github.com/hireloop/interview-api/internal/repository"
	"github.com/hireloop/interview-api/pkg/oracle"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

type fakeMeetingRepo struct {
	mu       sync.Mutex
	meetings map[uint]models.Meeting
	nextID   uint
	updates  int
	// onFindBlocking widens the lookup-to-create window for race tests.
	onFindBlocking func()
}

func newFakeMeetingRepo(meetings ...models.Meeting) *fakeMeetingRepo {
	repo := &fakeMeetingRepo{meetings: make(map[uint]models.Meeting), nextID: 1}
	for _, meeting := range meetings {
		if meeting.ID >= repo.nextID {
			repo.nextID = meeting.ID + 1
		}
		repo.meetings[meeting.ID] = meeting
	}
	return repo
}

func (f *fakeMeetingRepo) List(ctx context.Context, filter repository.MeetingFilter) ([]models.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []models.Meeting
	for _, meeting := range f.meetings {
		result = append(result, meeting)
	}
	return result, nil
}

func (f *fakeMeetingRepo) GetByID(ctx context.Context, id uint) (models.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	meeting, ok := f.meetings[id]
	if !ok {
		return models.Meeting{}, gorm.ErrRecordNotFound
	}
	return meeting, nil
}

func (f *fakeMeetingRepo) GetByToken(ctx context.Context, token string) (models.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, meeting := range f.meetings {
		if meeting.ResponseToken == token {
			return meeting, nil
		}
	}
	return models.Meeting{}, gorm.ErrRecordNotFound
}

func (f *fakeMeetingRepo) FindBlocking(ctx context.Context, applicationID, roundID uint) (models.Meeting, error) {
	if f.onFindBlocking != nil {
		f.onFindBlocking()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, meeting := range f.meetings {
		if meeting.JobApplicationID == applicationID && meeting.InterviewRoundID == roundID && meeting.BlocksScheduling() {
			return meeting, nil
		}
	}
	return models.Meeting{}, gorm.ErrRecordNotFound
}

func (f *fakeMeetingRepo) Create(ctx context.Context, meeting *models.Meeting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	meeting.ID = f.nextID
	f.nextID++
	f.meetings[meeting.ID] = *meeting
	return nil
}

func (f *fakeMeetingRepo) Update(ctx context.Context, meeting *models.Meeting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	f.meetings[meeting.ID] = *meeting
	return nil
}

type fakeApplicationRepo struct {
	mu           sync.Mutex
	applications map[uint]models.JobApplication
	statusCalls  []string
}

func newFakeApplicationRepo(applications ...models.JobApplication) *fakeApplicationRepo {
	repo := &fakeApplicationRepo{applications: make(map[uint]models.JobApplication)}
	for _, application := range applications {
		repo.applications[application.ID] = application
	}
	return repo
}

func (f *fakeApplicationRepo) GetByID(ctx context.Context, id uint) (models.JobApplication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	application, ok := f.applications[id]
	if !ok {
		return models.JobApplication{}, gorm.ErrRecordNotFound
	}
	return application, nil
}

func (f *fakeApplicationRepo) SetStatus(ctx context.Context, id uint, status string) (models.JobApplication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	application, ok := f.applications[id]
	if !ok {
		return models.JobApplication{}, gorm.ErrRecordNotFound
	}
	if application.Status != status {
		application.Status = status
		f.applications[id] = application
		f.statusCalls = append(f.statusCalls, status)
	}
	return application, nil
}

type fakeRoundRepo struct {
	rounds       map[uint]models.InterviewRound
	meetingCount int64
}

func newFakeRoundRepo(rounds ...models.InterviewRound) *fakeRoundRepo {
	repo := &fakeRoundRepo{rounds: make(map[uint]models.InterviewRound)}
	for _, round := range rounds {
		repo.rounds[round.ID] = round
	}
	return repo
}

func (f *fakeRoundRepo) ListByPosting(ctx context.Context, jobPostingID uint) ([]models.InterviewRound, error) {
	var result []models.InterviewRound
	for _, round := range f.rounds {
		if round.JobPostingID == jobPostingID {
			result = append(result, round)
		}
	}
	return result, nil
}

func (f *fakeRoundRepo) GetByID(ctx context.Context, id uint) (models.InterviewRound, error) {
	round, ok := f.rounds[id]
	if !ok {
		return models.InterviewRound{}, gorm.ErrRecordNotFound
	}
	return round, nil
}

func (f *fakeRoundRepo) Create(ctx context.Context, round *models.InterviewRound) error {
	round.ID = uint(len(f.rounds) + 1)
	f.rounds[round.ID] = *round
	return nil
}

func (f *fakeRoundRepo) Update(ctx context.Context, round *models.InterviewRound) error {
	f.rounds[round.ID] = *round
	return nil
}

func (f *fakeRoundRepo) CountMeetings(ctx context.Context, roundID uint) (int64, error) {
	return f.meetingCount, nil
}

type fakeSubmissionRepo struct {
	mu         sync.Mutex
	submission models.TestSubmission
	graded     []models.TestSubmission
	updates    int
	histories  int
}

func (f *fakeSubmissionRepo) GetByID(ctx context.Context, id uint) (models.TestSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submission.ID != id {
		return models.TestSubmission{}, gorm.ErrRecordNotFound
	}
	return f.submission, nil
}

func (f *fakeSubmissionRepo) GetByTestAndUser(ctx context.Context, testID, userID uint) (models.TestSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submission.ScreeningTestID == testID && f.submission.UserID == userID && f.submission.ID != 0 {
		return f.submission, nil
	}
	return models.TestSubmission{}, gorm.ErrRecordNotFound
}

func (f *fakeSubmissionRepo) Create(ctx context.Context, submission *models.TestSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	submission.ID = 1
	for i := range submission.Answers {
		submission.Answers[i].ID = uint(i + 1)
		submission.Answers[i].TestSubmissionID = submission.ID
	}
	f.submission = *submission
	return nil
}

func (f *fakeSubmissionRepo) Update(ctx context.Context, submission *models.TestSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	answers := f.submission.Answers
	f.submission = *submission
	f.submission.Answers = answers
	return nil
}

func (f *fakeSubmissionRepo) GetAnswer(ctx context.Context, id uint) (models.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, answer := range f.submission.Answers {
		if answer.ID == id {
			return answer, nil
		}
	}
	return models.Answer{}, gorm.ErrRecordNotFound
}

func (f *fakeSubmissionRepo) SaveAnswer(ctx context.Context, answer *models.Answer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.submission.Answers {
		if f.submission.Answers[i].ID == answer.ID {
			f.submission.Answers[i] = *answer
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeSubmissionRepo) CreateGradeHistory(ctx context.Context, history *models.AnswerGradeHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories++
	return nil
}

func (f *fakeSubmissionRepo) ListGradedByPosting(ctx context.Context, jobPostingID uint, descending bool) ([]models.TestSubmission, error) {
	return f.graded, nil
}

type fakeTestRepo struct {
	test models.ScreeningTest
}

func (f *fakeTestRepo) GetByID(ctx context.Context, id uint) (models.ScreeningTest, error) {
	if f.test.ID != id {
		return models.ScreeningTest{}, gorm.ErrRecordNotFound
	}
	return f.test, nil
}

func (f *fakeTestRepo) ListByPosting(ctx context.Context, jobPostingID uint) ([]models.ScreeningTest, error) {
	return []models.ScreeningTest{f.test}, nil
}

func (f *fakeTestRepo) Create(ctx context.Context, test *models.ScreeningTest) error {
	f.test = *test
	return nil
}

type fakeHistoryRepo struct {
	entries []models.EvaluationHistory
}

func (f *fakeHistoryRepo) Create(ctx context.Context, history *models.EvaluationHistory) error {
	f.entries = append(f.entries, *history)
	return nil
}

func (f *fakeHistoryRepo) ListByMeeting(ctx context.Context, meetingID uint) ([]models.EvaluationHistory, error) {
	return f.entries, nil
}

type fakeRecordingRepo struct {
	recording *models.Recording
}

func (f *fakeRecordingRepo) GetByMeeting(ctx context.Context, meetingID uint) (models.Recording, error) {
	if f.recording == nil || f.recording.MeetingID != meetingID {
		return models.Recording{}, gorm.ErrRecordNotFound
	}
	return *f.recording, nil
}

func (f *fakeRecordingRepo) Create(ctx context.Context, recording *models.Recording) error {
	recording.ID = 1
	f.recording = recording
	return nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	issued    int
	advanced  int
	cancelled int
}

func (f *fakeNotifier) InvitationIssued(ctx context.Context, meeting models.Meeting, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued++
}

func (f *fakeNotifier) ApplicationAdvanced(ctx context.Context, application models.JobApplication) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advanced++
}

func (f *fakeNotifier) ApplicationCancelled(ctx context.Context, application models.JobApplication) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled++
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (f *fakeAudit) Record(ctx context.Context, entry AuditEntry) (models.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return models.AuditLog{}, nil
}

type fakeScorer struct {
	mu    sync.Mutex
	calls int
	score func(oracle.ScoreRequest) (oracle.ScoreResult, error)
}

func (f *fakeScorer) Score(ctx context.Context, req oracle.ScoreRequest) (oracle.ScoreResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.score != nil {
		return f.score(req)
	}
	return oracle.ScoreResult{}, nil
}

type fakeTokenIssuer struct {
	token string
	calls int
	err   error
}

func (f *fakeTokenIssuer) IssueToken(ctx context.Context, meetingID uint) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.token != "" {
		return f.token, nil
	}
	return "tok-issued", nil
}
