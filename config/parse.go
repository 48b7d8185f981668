package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/prsense/ghingest/helpers"
)

// SourceConfig is implemented by every row source config struct.
type SourceConfig interface {
	Identifier() string
	Validate() error
}

// SourceConfigData carries the undecoded HCL body of one source block.
type SourceConfigData struct {
	Type string
	Body hcl.Body
}

// ParseFile loads and validates the root config file.
func ParseFile(path string) (*Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(contents, path)
}

// Parse decodes root config HCL.
func Parse(contents []byte, filename string) (*Config, error) {
	file, diags := hclsyntax.ParseConfig(contents, filename, hcl.Pos{Line: 1, Column: 1})
	if diags != nil && diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config %s: %s", filename, diags)
	}

	var c Config
	if diags := gohcl.DecodeBody(file.Body, newEvalContext(), &c); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config %s: %s", filename, diags)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// DecodeSource decodes a source block body into the target source config
// struct and validates it. A nil body yields a validated empty config -
// this is the config that will be used so it must be valid.
func DecodeSource[T SourceConfig](data *SourceConfigData) (T, error) {
	target := helpers.InstanceOf[T]()

	if data != nil && data.Type != "" && data.Type != target.Identifier() {
		return target, fmt.Errorf("invalid source config type %q: expected %q", data.Type, target.Identifier())
	}

	if data != nil && data.Body != nil {
		if diags := gohcl.DecodeBody(data.Body, newEvalContext(), target); diags.HasErrors() {
			return target, fmt.Errorf("failed to decode %s source config: %s", target.Identifier(), diags)
		}
	}

	if err := target.Validate(); err != nil {
		return target, fmt.Errorf("invalid %s source config: %w", target.Identifier(), err)
	}
	return target, nil
}

func newEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: make(map[string]cty.Value),
		Functions: make(map[string]function.Function),
	}
}
