package api

import (
	"errors"
	"net/http"

	"github.com/dansasser/mcg-agent/pkg/governance"
	"github.com/dansasser/mcg-agent/pkg/provider"
)

// statusForError maps the error taxonomy onto HTTP statuses: access and
// budget violations are 403, a required-but-unavailable transformer is 503,
// provider failures are 502.
func statusForError(err error) (int, string) {
	var transformerErr *governance.TransformerRequiredError
	if errors.As(err, &transformerErr) {
		return http.StatusServiceUnavailable, "transformer_required"
	}

	var limitErr *governance.APICallLimitError
	if errors.As(err, &limitErr) {
		return http.StatusForbidden, limitErr.Kind
	}
	var corpusErr *governance.CorpusAccessError
	if errors.As(err, &corpusErr) {
		return http.StatusForbidden, corpusErr.Kind
	}
	var retrievalErr *governance.RetrievalAccessError
	if errors.As(err, &retrievalErr) {
		return http.StatusForbidden, retrievalErr.Kind
	}
	var violationErr *governance.ViolationError
	if errors.As(err, &violationErr) {
		return http.StatusForbidden, violationErr.Kind
	}

	var providerErr *provider.Error
	if errors.As(err, &providerErr) {
		return http.StatusBadGateway, "provider_error"
	}

	return http.StatusInternalServerError, "internal_error"
}
