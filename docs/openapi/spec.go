// Package openapi embeds the HTTP API description for runtime distribution.
package openapi

import _ "embed"

//go:embed openapi.yaml
var apiSpec []byte

// Spec returns a copy of the embedded OpenAPI YAML.
func Spec() []byte {
	return append([]byte(nil), apiSpec...)
}
