// Package docs embeds the OpenAPI description of the relay API.
package docs

import (
	_ "embed"

	"github.com/ghodss/yaml"
	"github.com/swaggo/swag"
)

//go:embed swagger.yaml
var specYAML []byte

// JSON returns the embedded spec converted to JSON.
func JSON() ([]byte, error) {
	return yaml.YAMLToJSON(specYAML)
}

type spec struct{}

func (spec) ReadDoc() string {
	out, err := JSON()
	if err != nil {
		return "{}"
	}
	return string(out)
}

func init() {
	swag.Register(swag.Name, spec{})
}
