// Package docs serves the OpenAPI description of the API to the swagger UI.
package docs

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/swaggo/swag"
	"gopkg.in/yaml.v3"
)

//go:embed swagger.yaml
var swaggerYAML []byte

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Inkwell API",
	Description:      "Blogging platform API: accounts, posts, comments and likes.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  mustJSON(swaggerYAML),
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

// Raw returns the YAML source of the API description.
func Raw() []byte {
	return swaggerYAML
}

// mustJSON converts the embedded YAML to the JSON document swag serves.
func mustJSON(src []byte) string {
	var doc map[string]any
	if err := yaml.Unmarshal(src, &doc); err != nil {
		panic(fmt.Sprintf("docs: invalid swagger.yaml: %v", err))
	}
	out, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("docs: swagger.yaml is not JSON-compatible: %v", err))
	}
	return string(out)
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
