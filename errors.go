package linkforty

import "github.com/LinkForty/linkforty-go/internal/sdkerr"

// Error is the tagged error type returned by all SDK operations.
type Error = sdkerr.Error

// Code identifies the failure class of an Error.
type Code = sdkerr.Code

// Error codes surfaced to the embedding application.
const (
	CodeNotInitialized       = sdkerr.CodeNotInitialized
	CodeAlreadyInitialized   = sdkerr.CodeAlreadyInitialized
	CodeInvalidConfiguration = sdkerr.CodeInvalidConfiguration
	CodeNetworkError         = sdkerr.CodeNetworkError
	CodeInvalidResponse      = sdkerr.CodeInvalidResponse
	CodeDecodingError        = sdkerr.CodeDecodingError
	CodeInvalidEventData     = sdkerr.CodeInvalidEventData
	CodeInvalidDeepLinkURL   = sdkerr.CodeInvalidDeepLinkURL
	CodeMissingAPIKey        = sdkerr.CodeMissingAPIKey
)

// IsCode reports whether err is (or wraps) an SDK error with the given
// code.
func IsCode(err error, code Code) bool {
	return sdkerr.IsCode(err, code)
}
