package tjctl

import (
	"io"
	"os"
)

// Indirection layer to allow stubbing in tests.
var (
	fnWaitHTTP = waitHTTP

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)
