package generator

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"ai-slovo/internal/domain/entity"
	"ai-slovo/internal/resilience/retry"
)

// transientStatusWords are gRPC-style status names found in Google API errors.
var transientStatusWords = []string{"resource_exhausted", "unavailable", "deadline_exceeded"}

// classify wraps err in an *entity.BackendError whose kind is derived from
// the SDK error type when one is recognised.
func classify(backend string, err error) error {
	if err == nil {
		return nil
	}
	var be *entity.BackendError
	if errors.As(err, &be) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return entity.NewBackendError(backend, entity.FailureOther, err)
	}

	var (
		apiErr    *openai.APIError
		reqErr    *openai.RequestError
		claudeErr *anthropic.Error
		httpErr   *retry.HTTPError
		googleErr genai.APIError
	)
	switch {
	case errors.As(err, &apiErr):
		return entity.NewBackendError(backend, entity.ClassifyStatus(apiErr.HTTPStatusCode, apiErr.Message), err)
	case errors.As(err, &reqErr):
		return entity.NewBackendError(backend, entity.ClassifyStatus(reqErr.HTTPStatusCode, reqErr.Error()), err)
	case errors.As(err, &claudeErr):
		return entity.NewBackendError(backend, entity.ClassifyStatus(claudeErr.StatusCode, claudeErr.Error()), err)
	case errors.As(err, &googleErr):
		return entity.NewBackendError(backend, entity.ClassifyStatus(googleErr.Code, googleErr.Message), err)
	case errors.As(err, &httpErr):
		return entity.NewBackendError(backend, entity.ClassifyStatus(httpErr.StatusCode, httpErr.Message), err)
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientStatusWords {
		if strings.Contains(msg, m) {
			return entity.NewBackendError(backend, entity.FailureTransient, err)
		}
	}
	return entity.NewBackendError(backend, "", err)
}
