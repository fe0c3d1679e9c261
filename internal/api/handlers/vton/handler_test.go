package vton_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	handler "github.com/vtonlab/vton-service/internal/api/handlers/vton"
	"github.com/vtonlab/vton-service/internal/api/router"
	"github.com/vtonlab/vton-service/internal/model"
	"github.com/vtonlab/vton-service/internal/repository/job"
	vtonsvc "github.com/vtonlab/vton-service/internal/service/vton"
)

type fakeService struct {
	tryOnURL string
	tryOnErr error

	enqueueErr error
	enqueued   []model.Descriptor

	job    model.Job
	jobErr error
}

func (s *fakeService) TryOn(_ context.Context, d model.Descriptor) (string, error) {
	if s.tryOnErr != nil {
		return "", s.tryOnErr
	}
	return s.tryOnURL, nil
}

func (s *fakeService) Enqueue(_ context.Context, d model.Descriptor) error {
	if s.enqueueErr != nil {
		return s.enqueueErr
	}
	s.enqueued = append(s.enqueued, d)
	return nil
}

func (s *fakeService) Job(_ context.Context, id string) (model.Job, error) {
	if s.jobErr != nil {
		return model.Job{}, s.jobErr
	}
	return s.job, nil
}

type envelope struct {
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func doRequest(t *testing.T, svc *fakeService, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.Setup(handler.NewHandler(svc)).ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil && w.Body.Len() > 0 {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}

	return w, env
}

func tryOnBody() map[string]interface{} {
	return map[string]interface{}{
		"person_image_url":    "https://x/p.jpg",
		"cloth_image_url":     "https://x/c.jpg",
		"cloth_type":          "upper",
		"num_inference_steps": 30,
		"guidance_scale":      2.5,
		"seed":                42,
		"show_type":           "result only",
	}
}

func TestRoot_EchoesQuery(t *testing.T) {
	w, env := doRequest(t, &fakeService{}, http.MethodGet, "/?query=hello", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if env.Message != "Welcome to the VTON API" {
		t.Fatalf("message = %q", env.Message)
	}
	if env.Data["query"] != "hello" {
		t.Fatalf("query echo = %v", env.Data["query"])
	}
}

func TestTryOn_Success(t *testing.T) {
	svc := &fakeService{tryOnURL: "https://cdn/out.png"}

	w, env := doRequest(t, svc, http.MethodPost, "/vton", tryOnBody())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if env.Message != "success" {
		t.Fatalf("message = %q", env.Message)
	}
	if env.Data["url"] != "https://cdn/out.png" {
		t.Fatalf("url = %v", env.Data["url"])
	}
}

func TestTryOn_ValidationFailure(t *testing.T) {
	body := tryOnBody()
	body["num_inference_steps"] = 5

	w, env := doRequest(t, &fakeService{}, http.MethodPost, "/vton", body)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if env.Message != "num_inference_steps must be between 10 and 100" {
		t.Fatalf("message = %q", env.Message)
	}
	if env.Data != nil {
		t.Fatal("error envelope must not carry data")
	}
}

func TestTryOn_StageFailureMapsToMessage(t *testing.T) {
	svc := &fakeService{tryOnErr: &vtonsvc.StageError{
		Stage: vtonsvc.StageFetchCloth,
		Err:   errors.New("404"),
	}}

	w, env := doRequest(t, svc, http.MethodPost, "/vton", tryOnBody())

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if env.Message != "Unexpected error downloading cloth_image_url" {
		t.Fatalf("message = %q", env.Message)
	}
}

func TestTryOn_MalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/vton", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()

	router.Setup(handler.NewHandler(&fakeService{})).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestEnqueueJob_MintsIDAndReturnsPending(t *testing.T) {
	svc := &fakeService{}

	w, env := doRequest(t, svc, http.MethodPost, "/vton/jobs", tryOnBody())

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if env.Data["status"] != string(model.StatusPending) {
		t.Fatalf("status field = %v", env.Data["status"])
	}

	id, _ := env.Data["id"].(string)
	if id == "" {
		t.Fatal("expected a minted job id")
	}
	if len(svc.enqueued) != 1 || svc.enqueued[0].ID != id {
		t.Fatalf("enqueued descriptor mismatch: %+v", svc.enqueued)
	}
}

func TestEnqueueJob_ValidationFailureNotEnqueued(t *testing.T) {
	svc := &fakeService{}
	body := tryOnBody()
	body["cloth_type"] = "hat"

	w, env := doRequest(t, svc, http.MethodPost, "/vton/jobs", body)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if env.Message != "cloth_type must be one of 'upper', 'lower', 'overall'" {
		t.Fatalf("message = %q", env.Message)
	}
	if len(svc.enqueued) != 0 {
		t.Fatal("invalid descriptor must not be admitted to the queue")
	}
}

func TestGetJob_ReturnsRecord(t *testing.T) {
	svc := &fakeService{job: model.Job{
		ID:           "j1",
		Status:       model.StatusCompleted,
		VTONImageURL: "https://cdn/out.png",
	}}

	w, env := doRequest(t, svc, http.MethodGet, "/vton/jobs/j1", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if env.Data["status"] != string(model.StatusCompleted) {
		t.Fatalf("status = %v", env.Data["status"])
	}
	if env.Data["vton_image_url"] != "https://cdn/out.png" {
		t.Fatalf("url = %v", env.Data["vton_image_url"])
	}
}

func TestGetJob_NotFound(t *testing.T) {
	svc := &fakeService{jobErr: job.ErrJobNotFound}

	w, env := doRequest(t, svc, http.MethodGet, "/vton/jobs/nope", nil)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if env.Message != "job not found" {
		t.Fatalf("message = %q", env.Message)
	}
}
