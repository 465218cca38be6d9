package tool

import (
	"context"
	"fmt"

	"github.com/odvcencio/wayfarer/pkg/tool/external"
)

// externalToolAdapter bridges a manifest-discovered external.ExternalTool
// (a subprocess-backed plugin described by a tool.yaml) into the Tool
// contract every built-in and MCP tool satisfies, converting its
// {success, data, error} result into the {ok, output} Envelope the
// Tool-Call Processor expects from every registered tool (spec §4.3).
type externalToolAdapter struct {
	inner *external.ExternalTool
}

func (a *externalToolAdapter) Name() string        { return a.inner.Name() }
func (a *externalToolAdapter) Description() string { return a.inner.Description() }

func (a *externalToolAdapter) Parameters() ParameterSchema {
	p := a.inner.Parameters()
	props := make(map[string]PropertySchema, len(p.Properties))
	for name, prop := range p.Properties {
		props[name] = PropertySchema{Type: prop.Type, Description: prop.Description}
	}
	return ParameterSchema{Type: p.Type, Properties: props, Required: p.Required}
}

// Invoke runs the plugin executable. The external package manages its own
// timeout derived from the manifest; ctx is not consulted, so a cancelled
// ctx does not stop a process that is already running.
func (a *externalToolAdapter) Invoke(ctx context.Context, args map[string]any) Envelope {
	result, err := a.inner.Execute(args)
	if err != nil {
		return Fail(fmt.Sprintf("external tool %s: %v", a.inner.Name(), err))
	}
	if !result.Success {
		return Fail(result.Error)
	}
	return Ok(result.Data)
}
