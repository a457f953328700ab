package report

import (
	"fmt"
	"io"

	gateway "github.com/awakeconnect/awake/apigateway"
	"github.com/awakeconnect/awake/apperr"
)

// AuthCheck loads the auth middleware the way the server does and reports whether
// the JWT secret passed validation. It returns the process exit code.
func AuthCheck(getenv func(string) string, stdout, stderr io.Writer) int {
	fmt.Fprintf(stdout, "Loading auth middleware with %s from .env...\n", gateway.SecretEnv)

	if _, err := gateway.NewFromEnv(getenv); err != nil {
		fmt.Fprintln(stderr, "Failed to load auth middleware:")
		fmt.Fprintln(stderr, apperr.Message(err))
		return apperr.ExitCode(err)
	}

	fmt.Fprintln(stdout, "Auth middleware loaded successfully!")
	fmt.Fprintf(stdout, "%s validation is working correctly\n", gateway.SecretEnv)
	return apperr.ExitOK
}
