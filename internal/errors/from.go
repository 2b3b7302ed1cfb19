package errors

import (
	stderrors "errors"

	"github.com/contentanonymity/backend/internal/repository"
)

// FromError converts a lower-layer error into an APIError.
// resource names the thing being looked up, e.g. "article".
func FromError(err error, resource string) *APIError {
	var apiErr *APIError
	switch {
	case err == nil:
		return nil
	case stderrors.As(err, &apiErr):
		return apiErr
	case stderrors.Is(err, repository.ErrNotFound):
		return NotFound(resource)
	case stderrors.Is(err, repository.ErrDuplicate):
		return Conflict(resource)
	case stderrors.Is(err, repository.ErrInvalidInput):
		return BadRequest(err.Error())
	default:
		return InternalError("failed to process " + resource).WithDetails(err.Error())
	}
}
