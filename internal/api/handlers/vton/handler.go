package vton

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/vtonlab/vton-service/internal/api/respond"
	"github.com/vtonlab/vton-service/internal/model"
	"github.com/vtonlab/vton-service/internal/repository/job"
	vtonsvc "github.com/vtonlab/vton-service/internal/service/vton"
)

// service defines the interface for try-on operations.
type service interface {
	TryOn(ctx context.Context, d model.Descriptor) (string, error)
	Enqueue(ctx context.Context, d model.Descriptor) error
	Job(ctx context.Context, id string) (model.Job, error)
}

// Handler provides HTTP handlers for the try-on endpoints.
// It depends on a service interface to perform the business logic.
type Handler struct {
	service service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(s service) *Handler {
	return &Handler{service: s}
}

// TryOnRequest is the JSON body for both the synchronous and the queued
// try-on endpoints: the job descriptor fields, minus the id.
type TryOnRequest struct {
	PersonImageURL    string  `json:"person_image_url"`
	ClothImageURL     string  `json:"cloth_image_url"`
	ClothType         string  `json:"cloth_type"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	Seed              int     `json:"seed"`
	ShowType          string  `json:"show_type"`
}

func (r TryOnRequest) descriptor(id string) model.Descriptor {
	return model.Descriptor{
		ID:                id,
		PersonImageURL:    r.PersonImageURL,
		ClothImageURL:     r.ClothImageURL,
		ClothType:         r.ClothType,
		NumInferenceSteps: r.NumInferenceSteps,
		GuidanceScale:     r.GuidanceScale,
		Seed:              r.Seed,
		ShowType:          r.ShowType,
	}
}

// Root returns the welcome payload, echoing the optional query parameter.
func (h *Handler) Root(c *ginext.Context) {
	respond.JSON(c, http.StatusOK, "Welcome to the VTON API", map[string]interface{}{
		"query": c.Query("query"),
	})
}

// TryOn handles the synchronous try-on request: validate, run the full
// pipeline inline, and return the published result URL. Every failure maps
// to a 4xx with a human-readable message; nothing may crash the process.
func (h *Handler) TryOn(c *ginext.Context) {
	var req TryOnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Logger.Err(err).Msg("failed to bind try-on request")
		respond.Fail(c, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	d := req.descriptor("")
	if err := d.Validate(); err != nil {
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	url, err := h.service.TryOn(c.Request.Context(), d)
	if err != nil {
		zlog.Logger.Err(err).Msg("try-on pipeline failed")

		var serr *vtonsvc.StageError
		if errors.As(err, &serr) {
			respond.Fail(c, http.StatusBadRequest, errors.New(serr.Message()))
			return
		}

		respond.Fail(c, http.StatusBadRequest, errors.New("Unexpected error occurred"))
		return
	}

	respond.OK(c, map[string]interface{}{"url": url})
}

// EnqueueJob admits a try-on job to the queue: validate, mint an id, create
// the pending record, push the descriptor. The client polls for the result.
func (h *Handler) EnqueueJob(c *ginext.Context) {
	var req TryOnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Logger.Err(err).Msg("failed to bind enqueue request")
		respond.Fail(c, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	d := req.descriptor(uuid.NewString())
	if err := d.Validate(); err != nil {
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	if err := h.service.Enqueue(c.Request.Context(), d); err != nil {
		zlog.Logger.Err(err).Str("job_id", d.ID).Msg("failed to enqueue job")
		respond.Fail(c, http.StatusInternalServerError, errors.New("failed to enqueue job"))
		return
	}

	respond.Created(c, map[string]interface{}{
		"id":     d.ID,
		"status": model.StatusPending,
	})
}

// GetJob returns the stored record for a job id, for result polling.
func (h *Handler) GetJob(c *ginext.Context) {
	id := c.Param("id")
	if id == "" {
		respond.Fail(c, http.StatusBadRequest, errors.New("missing id"))
		return
	}

	j, err := h.service.Job(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			respond.Fail(c, http.StatusNotFound, errors.New("job not found"))
			return
		}

		zlog.Logger.Err(err).Str("job_id", id).Msg("failed to get job")
		respond.Fail(c, http.StatusInternalServerError, errors.New("failed to get job"))
		return
	}

	respond.OK(c, j)
}
