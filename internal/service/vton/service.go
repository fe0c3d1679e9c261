package vton

import (
	"context"
	"fmt"
	"os"

	"github.com/wb-go/wbf/zlog"

	"github.com/vtonlab/vton-service/internal/compose"
	"github.com/vtonlab/vton-service/internal/inference"
	"github.com/vtonlab/vton-service/internal/model"
)

// fetcher downloads a remote image to a local temp file owned by the caller.
type fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// invoker runs the try-on model; calls are serialized on the accelerator.
type invoker interface {
	Infer(ctx context.Context, req inference.Request) (*inference.Result, error)
}

// publisher uploads generated image bytes and returns a durable URL.
type publisher interface {
	Upload(ctx context.Context, data []byte) (string, error)
}

// repository persists job records.
type repository interface {
	Insert(ctx context.Context, id string, status model.Status, resultURL string) error
	Update(ctx context.Context, id string, status model.Status, resultURL string) error
	Get(ctx context.Context, id string) (model.Job, error)
}

// producer pushes validated descriptors onto the job queue.
type producer interface {
	Produce(ctx context.Context, d model.Descriptor) error
}

// Service runs the try-on pipeline and manages job records. The worker loop
// and the synchronous API both go through it, so accelerator serialization
// and resource cleanup live in exactly one place.
type Service struct {
	fetcher   fetcher
	invoker   invoker
	publisher publisher
	repo      repository
	producer  producer
}

// NewService creates a Service with the given collaborators.
func NewService(f fetcher, i invoker, p publisher, r repository, pr producer) *Service {
	return &Service{
		fetcher:   f,
		invoker:   i,
		publisher: p,
		repo:      r,
		producer:  pr,
	}
}

// TryOn executes the full pipeline for an already-validated descriptor:
// fetch both images, invoke the model, compose and encode the output, and
// publish it. Returns the published result URL.
//
// Both fetched temp files are released exactly once on every exit path.
// Errors are *StageError values naming the stage that failed.
func (s *Service) TryOn(ctx context.Context, d model.Descriptor) (string, error) {
	personPath, err := s.fetcher.Fetch(ctx, d.PersonImageURL)
	if err != nil {
		return "", stageErr(StageFetchPerson, err)
	}
	defer s.release(personPath)

	clothPath, err := s.fetcher.Fetch(ctx, d.ClothImageURL)
	if err != nil {
		return "", stageErr(StageFetchCloth, err)
	}
	defer s.release(clothPath)

	res, err := s.invoker.Infer(ctx, inference.Request{
		PersonImagePath:   personPath,
		ClothImagePath:    clothPath,
		ClothType:         d.ClothType,
		NumInferenceSteps: d.NumInferenceSteps,
		GuidanceScale:     d.GuidanceScale,
		Seed:              d.Seed,
	})
	if err != nil {
		return "", stageErr(StageInference, err)
	}

	out, err := compose.Output(res.Result, res.Person, res.Cloth, res.Mask, d.ShowType)
	if err != nil {
		return "", stageErr(StageSerialize, err)
	}

	data, err := compose.EncodePNG(out)
	if err != nil {
		return "", stageErr(StageSerialize, err)
	}

	url, err := s.publisher.Upload(ctx, data)
	if err != nil {
		return "", stageErr(StagePublish, err)
	}

	return url, nil
}

// Enqueue admits a validated descriptor to the queue: the job record is
// created first, then the descriptor is pushed. If the push fails, the
// record is marked failed so the client never polls a ghost job.
func (s *Service) Enqueue(ctx context.Context, d model.Descriptor) error {
	if err := s.repo.Insert(ctx, d.ID, model.StatusPending, ""); err != nil {
		return fmt.Errorf("insert job %s: %w", d.ID, err)
	}

	if err := s.producer.Produce(ctx, d); err != nil {
		if uerr := s.repo.Update(ctx, d.ID, model.StatusFailed, ""); uerr != nil {
			zlog.Logger.Err(uerr).Str("job_id", d.ID).Msg("failed to mark unqueued job failed")
		}

		return fmt.Errorf("enqueue job %s: %w", d.ID, err)
	}

	return nil
}

// Job returns the stored record for a job id.
func (s *Service) Job(ctx context.Context, id string) (model.Job, error) {
	return s.repo.Get(ctx, id)
}

// release deletes a fetched temp file. Failure to delete is logged and
// swallowed; it must not change the job's outcome.
func (s *Service) release(path string) {
	if err := os.Remove(path); err != nil {
		zlog.Logger.Err(err).Str("path", path).Msg("failed to remove temp file")
	}
}
