package molstage

import _ "embed"

// Version is the released version of the module.
//
//go:embed VERSION
var Version string
