package registry

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/appforge/flowcore/pkg/runfail"
)

// ValidateConfig checks a node's config against the registered
// factory's JSON schema. Factories without a schema accept anything.
func (r *Registry) ValidateConfig(label string, config map[string]any) error {
	factory, ok := r.factories[label]
	if !ok {
		return fmt.Errorf("block type %q not registered", label)
	}

	schema := factory.Schema()
	if len(schema) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate config for %q: %w", label, err)
	}

	if !result.Valid() {
		detail := ""
		for _, desc := range result.Errors() {
			detail += desc.String() + "; "
		}

		return runfail.New(runfail.CodeInvalidConfig, fmt.Sprintf("config for %q invalid: %s", label, detail))
	}

	return nil
}
