package validator

import (
	"fmt"
	"strconv"
)

// ValidateStrStatusCode checks that status is a numeric HTTP status code.
func ValidateStrStatusCode(status string) error {
	code, err := strconv.Atoi(status)
	if err != nil {
		return fmt.Errorf("status code %q is not numeric: %w", status, err)
	}
	if code < 100 || code > 599 {
		return fmt.Errorf("status code %d is out of the HTTP range", code)
	}
	return nil
}
