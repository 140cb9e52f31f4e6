package joule

import _ "embed"

// Version is the release of the Joule agent.
//
//go:embed VERSION
var Version string

// OpenAPISpec is the HTTP contract served by the HTTP adapter.
//
//go:embed api/openapi.yaml
var OpenAPISpec []byte
