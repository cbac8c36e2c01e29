package errors_test

import (
	"fmt"

	"github.com/agentstation/docsync/pkg/errors"
)

// Example_transient shows how a caller separates retried failures from
// permanent rejections.
func Example_transient() {
	errs := []error{
		errors.NewRateLimitedError("documents.create", 3),
		errors.NewAPIError("documents.create", 400, "invalid title"),
	}

	for _, err := range errs {
		if errors.IsTransient(err) {
			fmt.Println("transient: re-run may succeed")
			continue
		}
		fmt.Println("permanent:", err)
	}

	// Output:
	// transient: re-run may succeed
	// permanent: API error 400 from documents.create: invalid title
}
