package model

import "time"

// Status is a job lifecycle state. Transitions are linear and irreversible:
// pending -> processing -> completed | failed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Cloth types accepted by the try-on model.
const (
	ClothTypeUpper   = "upper"
	ClothTypeLower   = "lower"
	ClothTypeOverall = "overall"
)

// Show types controlling how the output image is composed.
const (
	ShowTypeResultOnly      = "result only"
	ShowTypeInputResult     = "input & result"
	ShowTypeInputMaskResult = "input & mask & result"
)

// Descriptor describes one try-on generation request. It is immutable once
// enqueued; the worker only reads it.
type Descriptor struct {
	ID                string  `json:"id"`
	PersonImageURL    string  `json:"person_image_url"`
	ClothImageURL     string  `json:"cloth_image_url"`
	ClothType         string  `json:"cloth_type"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	Seed              int     `json:"seed"` // -1 means unseeded
	ShowType          string  `json:"show_type"`
}

// Job is the durable record kept in the job store. It is the only place a
// client can observe a queued job's outcome.
type Job struct {
	ID           string    `json:"id"`
	Status       Status    `json:"status"`
	VTONImageURL string    `json:"vton_image_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
