package pathutil_test

import (
	"fmt"

	"publish-notifier/internal/handler/http/pathutil"
)

func ExampleNormalizePath() {
	fmt.Println(pathutil.NormalizePath("/destinations/7c9e6679-7425-40de-944b-e07fc1f90ae7"))
	fmt.Println(pathutil.NormalizePath("/destinations/f47ac10b-58cc-4372-a567-0e02b2c3d479"))
	fmt.Println(pathutil.NormalizePath("/health"))

	// Output:
	// /destinations/:id
	// /destinations/:id
	// /health
}
