package httpadapter

import (
	"net/http"

	"github.com/Shiroi-Max/koala-route/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrGuideNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrScenarioNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
