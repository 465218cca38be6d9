package tool

import (
	"github.com/odvcencio/wayfarer/pkg/browser"
	"github.com/odvcencio/wayfarer/pkg/model"
)

// BuiltinTools returns the tools that need no external dependency to
// construct: the control-flow primitives every strategy relies on
// regardless of which browser runtime or model provider a run is wired to.
// Tools that need a *browser.Manager, a model.ModelClient, or a provider
// (navigation, interaction, validator, classifier, search, human input,
// result) are registered separately by RegisterDomainTools once those
// dependencies exist, since NewRegistry() has no way to construct them.
func BuiltinTools() []Tool {
	return []Tool{
		&DoneTool{},
		&RequirePlanningTool{},
		&TodoManagerTool{},
	}
}

// Deps bundles the run-scoped dependencies that the browser- and
// model-backed tools need. Any field left nil simply means that tool rejects
// calls with Fail("... not configured") rather than panicking, so callers
// can wire a partial set (e.g. no WebSearchProvider for an offline run).
type Deps struct {
	Manager        *browser.Manager
	Client         model.ModelClient
	HumanInput     HumanInputProvider
	WebSearch      WebSearchProvider
	DefaultSession browser.SessionConfig
}

// RegisterDomainTools registers every dependency-bearing tool against deps
// into r. Call this once an ExecutionContext's browser.Manager and
// model.ModelClient are constructed, after NewRegistry() has already
// registered the builtins.
func RegisterDomainTools(r *Registry, deps Deps) {
	if r == nil {
		return
	}
	r.Register(&NavigationTool{Manager: deps.Manager, DefaultConfig: deps.DefaultSession})
	r.Register(&InteractionTool{Manager: deps.Manager})
	r.Register(&ScrollTool{Manager: deps.Manager})
	r.Register(&TabOperationsTool{Manager: deps.Manager})
	r.Register(&ScreenshotTool{Manager: deps.Manager})
	r.Register(&RefreshBrowserStateTool{Manager: deps.Manager})
	r.Register(&ExtractTool{Manager: deps.Manager})

	r.Register(&ClassificationTool{Client: deps.Client})
	r.Register(&PlannerTool{Client: deps.Client})
	r.Register(&ValidatorTool{Client: deps.Client})
	r.Register(&ResultTool{Client: deps.Client})

	r.Register(&HumanInputTool{Provider: deps.HumanInput})
	r.Register(&SearchTool{Provider: deps.WebSearch})
}
