// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeRetrievalLimitInvalid  Code = "retrieval.limit.invalid_argument"
	CodeRetrievalWeightInvalid Code = "retrieval.weight.invalid_argument"
	CodeRetrievalQueryInvalid  Code = "retrieval.query.invalid_argument"
	CodeRetrievalTimeout       Code = "retrieval.call.timeout"
	CodeRetrievalBranchFailure Code = "retrieval.branch.failure"

	CodeEmbedInputInvalid     Code = "embed.input.invalid_input"
	CodeEmbedModelUnavailable Code = "embed.model.unavailable"
	CodeEmbedModalityUnknown  Code = "embed.registry.not_found"
	CodeEmbedUpstreamFailure  Code = "embed.upstream.failure"

	CodeStoreCollectionNotFound Code = "store.collection.not_found"
	CodeStoreIndexInconsistent  Code = "store.index.inconsistent"
	CodeStoreDimensionMismatch  Code = "store.vector.dimension_mismatch"
	CodeStoreSearchInvalid      Code = "store.search.invalid_argument"
	CodeStoreDatabaseFailure    Code = "store.database.failure"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeIngestCatalogFailure  Code = "ingest.catalog.failure"
	CodeIngestImageUnfetched  Code = "ingest.image.not_found"
	CodeIngestImageUndecoded  Code = "ingest.image.invalid_input"
	CodeIngestPipelineFailure Code = "ingest.pipeline.failure"

	CodeServerRequestInvalid  Code = "server.request.invalid_argument"
	CodeServerEntityNotFound  Code = "server.entity.not_found"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"

	CodeCLISetupFailure Code = "cli.setup.failure"
	CodeCLIInputInvalid Code = "cli.input.invalid_argument"

	CodeSecretInvalidInput   Code = "secret.input.invalid_argument"
	CodeSecretNotFound       Code = "secret.get.not_found"
	CodeSecretStoreFailure   Code = "secret.store.failure"
	CodeSecretResolveFailure Code = "secret.resolve.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldModality(value string) Attr {
	return Field("modality", value)
}

func FieldCollection(value string) Attr {
	return Field("collection", value)
}

func FieldArtworkID(value string) Attr {
	return Field("artwork_id", value)
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldModel(value string) Attr {
	return Field("model", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsInvalidArgument reports a caller bug: bad limit, bad weight, empty query.
// These are never retried.
func IsInvalidArgument(err error) bool {
	return reason(CodeOf(err)) == "invalid_argument"
}

// IsInvalidInput reports unembeddable input (empty text, undecodable image).
func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid_input" || r == "invalid_format" || r == "invalid_value"
}

// IsModelUnavailable reports that an embedding model could not be loaded or
// reached. Setup problem, surfaced to the operator rather than retried.
func IsModelUnavailable(err error) bool {
	return reason(CodeOf(err)) == "unavailable"
}

// IsCollectionNotFound reports a search against a collection that was never
// built.
func IsCollectionNotFound(err error) bool {
	return HasCode(err, CodeStoreCollectionNotFound)
}

// IsInconsistentIndex reports a data-integrity defect in the offline index
// build: an indexed id with no metadata. Always fatal, never swallowed.
func IsInconsistentIndex(err error) bool {
	return reason(CodeOf(err)) == "inconsistent"
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err) || IsCollectionNotFound(err):
		return http.StatusNotFound
	case IsInvalidArgument(err) || IsInvalidInput(err):
		return http.StatusBadRequest
	case IsTimeout(err):
		return http.StatusGatewayTimeout
	case IsModelUnavailable(err) || IsUpstreamFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
