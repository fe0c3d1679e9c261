// Package worker advances dequeued jobs through their lifecycle:
// processing, then exactly one of completed or failed. A crash between the
// processing write and the terminal write leaves the job stuck in
// processing; there is no reclaim or dead-letter handling.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/vtonlab/vton-service/internal/model"
	"github.com/vtonlab/vton-service/internal/service/vton"
)

// pipeline runs the try-on pipeline for one descriptor.
type pipeline interface {
	TryOn(ctx context.Context, d model.Descriptor) (string, error)
}

// store writes job status transitions.
type store interface {
	Update(ctx context.Context, id string, status model.Status, resultURL string) error
}

// Worker handles one queue entry at a time. It is the sole writer of
// processing and terminal statuses for the jobs it dequeues.
type Worker struct {
	pipeline pipeline
	store    store
}

// New creates a Worker with the given pipeline and job store.
func New(p pipeline, s store) *Worker {
	return &Worker{pipeline: p, store: s}
}

// Handle processes a single dequeued entry. A returned error means the
// entry could not be handled at all (malformed payload, status write
// failure, panic); job-level failures are absorbed here as a failed status
// write and a nil return, so the consumer loop just moves on either way.
func (w *Worker) Handle(ctx context.Context, msg kafka.Message) (err error) {
	// A single bad entry must never take the loop down.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing entry: %v", r)
		}
	}()

	var d model.Descriptor
	if err := json.Unmarshal(msg.Value, &d); err != nil {
		// No id, so no status can be written for this entry.
		return fmt.Errorf("unmarshal descriptor: %w", err)
	}
	if d.ID == "" {
		return errors.New("descriptor has no job id")
	}

	log := zlog.Logger.With().Str("job_id", d.ID).Logger()

	if verr := d.Validate(); verr != nil {
		log.Warn().Err(verr).Msg("descriptor failed validation")
		w.fail(ctx, d.ID)
		return nil
	}

	// First durable marker of work started.
	if err := w.store.Update(ctx, d.ID, model.StatusProcessing, ""); err != nil {
		return fmt.Errorf("mark job %s processing: %w", d.ID, err)
	}

	url, perr := w.pipeline.TryOn(ctx, d)
	if perr != nil {
		var serr *vton.StageError
		if errors.As(perr, &serr) {
			log.Warn().Err(serr.Err).Str("stage", string(serr.Stage)).Msg("pipeline stage failed")
		} else {
			log.Warn().Err(perr).Msg("pipeline failed")
		}

		w.fail(ctx, d.ID)
		return nil
	}

	if err := w.store.Update(ctx, d.ID, model.StatusCompleted, url); err != nil {
		// Known gap: the result is published but its URL is unrecorded.
		log.Error().Err(err).Str("url", url).Msg("result generated but completed status write failed")
		return nil
	}

	log.Info().Str("url", url).Msg("job completed")

	return nil
}

// fail writes the failed terminal status. A store failure here is logged
// and dropped: there is nothing left to roll back.
func (w *Worker) fail(ctx context.Context, id string) {
	if err := w.store.Update(ctx, id, model.StatusFailed, ""); err != nil {
		zlog.Logger.Err(err).Str("job_id", id).Msg("failed status write failed")
	}
}
