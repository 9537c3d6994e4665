// Package configs provides the embedded configuration template for
// repograph.
//
// The template is embedded at build time with //go:embed so it ships
// inside the binary. `repograph init` writes it to ./repograph.yaml;
// internal/config then applies it as an overlay under the environment
// variables.
package configs

import _ "embed"

// OverlayTemplate is the commented repograph.yaml starting point
// written by `repograph init`.
//
//go:embed repograph.example.yaml
var OverlayTemplate string
