package models

import (
	"errors"
	"testing"
)

func TestValidateRejectsEmptyPrompt(t *testing.T) {
	for _, prompt := range []string{"", "   ", "\n\t"} {
		req := &GenerationRequest{Prompt: prompt}
		err := req.Validate()
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("prompt %q: got %v, want ValidationError", prompt, err)
		}
		if validationErr.Field != "prompt" {
			t.Errorf("prompt %q: field = %q", prompt, validationErr.Field)
		}
	}
}

func TestValidateRejectsUnknownContentType(t *testing.T) {
	req := &GenerationRequest{Prompt: "topic", ContentType: "press_release"}
	var validationErr *ValidationError
	if err := req.Validate(); !errors.As(err, &validationErr) {
		t.Fatalf("got %v, want ValidationError", err)
	}
}

func TestValidateRejectsNegativeMaxLength(t *testing.T) {
	req := &GenerationRequest{Prompt: "topic", MaxLength: -1}
	var validationErr *ValidationError
	if err := req.Validate(); !errors.As(err, &validationErr) {
		t.Fatalf("got %v, want ValidationError", err)
	}
}

func TestValidateAcceptsWellFormedRequest(t *testing.T) {
	req := &GenerationRequest{
		Prompt:      "solar trends",
		ContentType: ContentTypeBlogPost,
		MaxLength:   500,
		Platform:    PlatformLinkedIn,
		UseRAG:      true,
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestContentTypeValid(t *testing.T) {
	for _, ct := range []ContentType{ContentTypeBlogPost, ContentTypeSocialMedia, ContentTypeEmailNewsletter, ContentTypeProductDescription, ContentTypeLandingPage} {
		if !ct.Valid() {
			t.Errorf("%s should be valid", ct)
		}
	}
	if ContentType("podcast").Valid() {
		t.Error("unknown content type reported valid")
	}
}

func TestGenerationFailedErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := &GenerationFailedError{Stage: "generation", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("Unwrap does not expose the cause")
	}
}
