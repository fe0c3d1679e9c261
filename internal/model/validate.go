package model

import (
	"fmt"
	"net/url"
)

// ValidationError reports which descriptor field failed validation and why.
// Reason is a complete human-readable message suitable for an API response.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Validate checks the descriptor's fields in a fixed order, short-circuiting
// on the first failure. It is a pure function: no network, no filesystem.
// The job id is not part of the check; queue entries without an id are
// rejected earlier, and the synchronous API has none.
func (d Descriptor) Validate() error {
	if d.PersonImageURL == "" {
		return invalid("person_image_url", "person_image_url is required")
	}
	if d.ClothImageURL == "" {
		return invalid("cloth_image_url", "cloth_image_url is required")
	}
	if d.ClothType == "" {
		return invalid("cloth_type", "cloth_type is required")
	}
	if d.ShowType == "" {
		return invalid("show_type", "show_type is required")
	}

	if !isAbsoluteURL(d.PersonImageURL) {
		return invalid("person_image_url", "person_image_url is not valid")
	}
	if !isAbsoluteURL(d.ClothImageURL) {
		return invalid("cloth_image_url", "cloth_image_url is not valid")
	}

	switch d.ClothType {
	case ClothTypeUpper, ClothTypeLower, ClothTypeOverall:
	default:
		return invalid("cloth_type", "cloth_type must be one of 'upper', 'lower', 'overall'")
	}

	if d.NumInferenceSteps < 10 || d.NumInferenceSteps > 100 {
		return invalid("num_inference_steps", "num_inference_steps must be between 10 and 100")
	}
	if d.GuidanceScale < 0.1 || d.GuidanceScale > 7.5 {
		return invalid("guidance_scale", "guidance_scale must be between 0.1 and 7.5")
	}
	if d.Seed < -1 || d.Seed > 1000 {
		return invalid("seed", "seed must be between -1 and 1000")
	}

	switch d.ShowType {
	case ShowTypeResultOnly, ShowTypeInputResult, ShowTypeInputMaskResult:
	default:
		return invalid("show_type", fmt.Sprintf(
			"show_type must be one of '%s', '%s', '%s'",
			ShowTypeResultOnly, ShowTypeInputResult, ShowTypeInputMaskResult,
		))
	}

	return nil
}

// isAbsoluteURL reports whether s parses as an absolute http(s) URL with a host.
func isAbsoluteURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
