package database

import "github.com/pitabwire/nils/errortype"

// Failures raised while connecting to or reading from the translations store.
//
//nolint:gochecknoglobals // error types are registered once at init
var (
	MissingDriver            = errortype.Define("NILS-250", "The database driver name is invalid.")
	IncompleteConnectionData = errortype.Define("NILS-251", "The connection data is incomplete: %s")
	SQLException             = errortype.Define("NILS-252", "An SQLException occurred: %s")
)
