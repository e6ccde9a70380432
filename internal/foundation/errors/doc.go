// Package errors provides the classified error primitives used across PageBuilder.
//
// A ClassifiedError carries a category, a severity, a retry hint and structured
// context. Errors are built with the fluent ErrorBuilder:
//
//	err := errors.RemoteError("graphql response contained errors").
//		WithContext("operation", "GetPageBySlug").
//		WithCause(cause).
//		Build()
//
// HTTPErrorAdapter and CLIErrorAdapter turn classified errors into status codes,
// JSON payloads and process exit codes.
package errors
