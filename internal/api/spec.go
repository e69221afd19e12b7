package api

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openapiSpec []byte

// GetSwagger parses and validates the embedded OpenAPI document.
func GetSwagger() (*openapi3.T, error) {
	spec, err := openapi3.NewLoader().LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("parsing embedded openapi spec: %w", err)
	}
	if err := spec.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validating embedded openapi spec: %w", err)
	}
	return spec, nil
}
