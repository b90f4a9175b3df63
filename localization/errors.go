package localization

import "github.com/pitabwire/nils/errortype"

// Resolution failures shared by every adapter variant.
//
//nolint:gochecknoglobals // error types are registered once at init
var (
	ResourceNotFound   = errortype.Define("NILS-100", "The resource '%s' could not be found for locale '%s'.")
	ResourceUnreadable = errortype.Define("NILS-101", "The resource '%s' could not be read: %s")
	MissingKey         = errortype.Define("NILS-102", "No value for key '%s' in locale '%s'.")
	AdapterClosed      = errortype.Define("NILS-103", "The adapter for locale '%s' is closed.")
	InvalidSource      = errortype.Define("NILS-104", "The resource location '%s' is invalid: %s")
)
