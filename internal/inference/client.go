// Package inference is the boundary to the out-of-process try-on model
// runner. The runner owns the diffusion pipeline and its pose/segmentation
// models; this client only ships images and parameters across HTTP and
// decodes what comes back.
package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// Request carries one try-on invocation. Image inputs are local file paths
// owned by the caller.
type Request struct {
	PersonImagePath   string
	ClothImagePath    string
	ClothType         string
	NumInferenceSteps int
	GuidanceScale     float64
	Seed              int
}

// Result holds the decoded runner output. Besides the generated image, the
// runner returns its normalized renditions of the inputs and the predicted
// mask, which the output composer needs for the richer show types.
type Result struct {
	Result image.Image // generated try-on image
	Person image.Image // person image as normalized by the runner
	Cloth  image.Image // cloth image as normalized by the runner
	Mask   image.Image // predicted try-on mask, grayscale
}

// runnerResponse is the runner's wire format: base64-encoded PNGs.
type runnerResponse struct {
	Result string `json:"result"`
	Person string `json:"person"`
	Cloth  string `json:"cloth"`
	Mask   string `json:"mask"`
}

// Client invokes the model runner. Calls are serialized through a
// process-wide mutex: the runner drives a single accelerator that must not
// see concurrent invocations, so the worker and the synchronous API share
// one Client and take turns.
type Client struct {
	baseURL string
	client  *http.Client

	mu sync.Mutex // guards the accelerator; one inference in flight at a time
}

// New creates a Client for the runner at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Infer runs one try-on generation. It blocks while another invocation is
// in flight and for the full duration of the model run; there is no
// cancellation once the runner has been called.
func (c *Client) Infer(ctx context.Context, req Request) (*Result, error) {
	body, contentType, err := encodeRequest(req)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/infer", body)
	if err != nil {
		return nil, fmt.Errorf("build runner request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call runner: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("runner returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var rr runnerResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("decode runner response: %w", err)
	}

	return decodeResult(rr)
}

// encodeRequest builds the multipart form the runner expects: both image
// files plus the generation parameters as plain fields.
func encodeRequest(req Request) (*bytes.Buffer, string, error) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)

	for field, path := range map[string]string{
		"person_image": req.PersonImagePath,
		"cloth_image":  req.ClothImagePath,
	} {
		if err := attachFile(w, field, path); err != nil {
			return nil, "", err
		}
	}

	fields := map[string]string{
		"cloth_type":          req.ClothType,
		"num_inference_steps": strconv.Itoa(req.NumInferenceSteps),
		"guidance_scale":      strconv.FormatFloat(req.GuidanceScale, 'f', -1, 64),
		"seed":                strconv.Itoa(req.Seed),
	}
	for field, value := range fields {
		if err := w.WriteField(field, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", field, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}

	return buf, w.FormDataContentType(), nil
}

func attachFile(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()

	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("create form file %s: %w", field, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copy %s: %w", field, err)
	}

	return nil
}

func decodeResult(rr runnerResponse) (*Result, error) {
	res := &Result{}

	parts := []struct {
		name    string
		encoded string
		dst     *image.Image
	}{
		{"result", rr.Result, &res.Result},
		{"person", rr.Person, &res.Person},
		{"cloth", rr.Cloth, &res.Cloth},
		{"mask", rr.Mask, &res.Mask},
	}

	for _, p := range parts {
		if p.encoded == "" {
			return nil, fmt.Errorf("runner response missing %s image", p.name)
		}

		raw, err := base64.StdEncoding.DecodeString(p.encoded)
		if err != nil {
			return nil, fmt.Errorf("decode %s image: %w", p.name, err)
		}

		img, err := imaging.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decode %s image: %w", p.name, err)
		}

		*p.dst = img
	}

	return res, nil
}
