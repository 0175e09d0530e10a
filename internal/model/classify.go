// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"context"
	"errors"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Classify maps a backend error to a failure kind. Typed errors are checked
// first, then HTTP and gRPC status carriers, then context errors.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureNone
	}

	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return ClassifyStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return ClassifyStatus(reqErr.HTTPStatusCode)
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return ClassifyStatus(gErr.Code)
	}

	if st, ok := status.FromError(err); ok {
		return classifyCode(st.Code())
	}
	return FailureUnknown
}

// ClassifyStatus maps an HTTP status code to a failure kind.
func ClassifyStatus(code int) FailureKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return FailureAuth
	case http.StatusTooManyRequests:
		return FailureQuota
	case http.StatusBadRequest, http.StatusNotFound, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return FailureMalformed
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return FailureTimeout
	default:
		return FailureUnknown
	}
}

func classifyCode(c codes.Code) FailureKind {
	switch c {
	case codes.Unauthenticated, codes.PermissionDenied:
		return FailureAuth
	case codes.ResourceExhausted:
		return FailureQuota
	case codes.InvalidArgument, codes.NotFound, codes.FailedPrecondition, codes.OutOfRange:
		return FailureMalformed
	case codes.DeadlineExceeded:
		return FailureTimeout
	default:
		return FailureUnknown
	}
}
