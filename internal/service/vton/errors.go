package vton

import "fmt"

// Stage identifies the pipeline stage a failure came from.
type Stage string

const (
	StageFetchPerson Stage = "fetch_person_image"
	StageFetchCloth  Stage = "fetch_cloth_image"
	StageInference   Stage = "inference"
	StageSerialize   Stage = "serialize"
	StagePublish     Stage = "publish"
)

// StageError wraps a pipeline failure with the stage it occurred in, so the
// worker and the API can branch on the stage instead of string-matching.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Message returns the client-facing description of the failure.
func (e *StageError) Message() string {
	switch e.Stage {
	case StageFetchPerson:
		return "Unexpected error downloading person_image_url"
	case StageFetchCloth:
		return "Unexpected error downloading cloth_image_url"
	case StageInference:
		return "Unexpected error occurred during generating image"
	case StageSerialize:
		return "Unexpected error occurred during transform image output"
	case StagePublish:
		return "Unexpected error occurred during uploading image"
	default:
		return "Unexpected error occurred"
	}
}

func stageErr(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
