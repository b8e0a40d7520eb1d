package service

import "errors"

// State-machine and validation errors surfaced synchronously to callers.
var (
	// ErrInvalidTransition indicates an illegal state-machine move; never retried.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrDuplicateMeeting indicates a non-cancelled meeting already occupies the (application, round) pair.
	ErrDuplicateMeeting = errors.New("meeting already exists for application and round")
	// ErrCandidateNotEligible indicates the application is not in a round-eligible status.
	ErrCandidateNotEligible = errors.New("candidate not eligible for this round")
	// ErrInvalidToken indicates an unknown invitation token.
	ErrInvalidToken = errors.New("invalid invitation token")
	// ErrAlreadyEvaluated indicates the meeting evaluation is locked.
	ErrAlreadyEvaluated = errors.New("meeting already evaluated")
	// ErrSubmissionFinalized indicates the submission is graded and locked against overrides.
	ErrSubmissionFinalized = errors.New("submission grading is finalized")
	// ErrAlreadyFinalized indicates FinalizeGrading was called twice.
	ErrAlreadyFinalized = errors.New("grading already finalized")
	// ErrSubmissionNotGradable indicates grading was attempted before the candidate handed in.
	ErrSubmissionNotGradable = errors.New("submission not yet handed in")
	// ErrRecordingExists indicates a recording outcome is already stored for the meeting.
	ErrRecordingExists = errors.New("recording already stored for meeting")
	// ErrRoundFrozen indicates a structural edit on a round already referenced by meetings.
	ErrRoundFrozen = errors.New("round is referenced by meetings and cannot be restructured")
)

// Not-found sentinels per aggregate.
var (
	ErrMeetingNotFound     = errors.New("meeting not found")
	ErrApplicationNotFound = errors.New("job application not found")
	ErrRoundNotFound       = errors.New("interview round not found")
	ErrTestNotFound        = errors.New("screening test not found")
	ErrSubmissionNotFound  = errors.New("test submission not found")
	ErrAnswerNotFound      = errors.New("answer not found")
	ErrRecordingNotFound   = errors.New("recording not found")
)
