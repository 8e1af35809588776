package validation

import (
	"strings"

	"enma/internal/domain"
)

// MetricRequest checks the fields a metric query cannot be built without.
// Time bounds are passed to the provider as given.
func MetricRequest(req *domain.MetricRequest) error {
	if strings.TrimSpace(req.Data.ApplicationName) == "" {
		return ErrEmptyApplicationName
	}
	return nil
}
