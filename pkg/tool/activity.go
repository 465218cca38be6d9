package tool

import (
	"fmt"
	"strings"
	"time"
)

// ActivityGroupingConfig holds configuration for activity grouping
type ActivityGroupingConfig struct {
	WindowSeconds int // Time window for grouping (default: 30)
	Enabled       bool
}

// DefaultActivityGroupingConfig returns sensible defaults
func DefaultActivityGroupingConfig() ActivityGroupingConfig {
	return ActivityGroupingConfig{
		WindowSeconds: 30,
		Enabled:       true,
	}
}

// ActivityGroup represents a group of related tool calls
type ActivityGroup struct {
	Category  Category   // Category of tools in this group
	StartTime time.Time  // When first tool was called
	EndTime   time.Time  // When last tool was completed
	ToolCalls []ToolCall // Individual tool calls in this group
	Summary   string     // Human-readable summary
}

// ToolCall represents a single tool invocation with timing
type ToolCall struct {
	Tool      Tool
	Params    map[string]any
	Result    Envelope
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Metadata  ToolMetadata
}

// ActivityTracker tracks tool calls and groups them for display, e.g. to
// narrate "navigated to example.com, then clicked Submit" instead of one
// line per low-level tool call.
type ActivityTracker struct {
	config ActivityGroupingConfig
	calls  []ToolCall
	groups []ActivityGroup
}

// NewActivityTracker creates a new activity tracker
func NewActivityTracker(config ActivityGroupingConfig) *ActivityTracker {
	return &ActivityTracker{
		config: config,
		calls:  []ToolCall{},
		groups: []ActivityGroup{},
	}
}

// RecordCall records a tool call for potential grouping
func (t *ActivityTracker) RecordCall(tool Tool, params map[string]any, result Envelope, startTime, endTime time.Time) {
	call := ToolCall{
		Tool:      tool,
		Params:    params,
		Result:    result,
		StartTime: startTime,
		EndTime:   endTime,
		Duration:  endTime.Sub(startTime),
		Metadata:  GetMetadata(tool),
	}

	t.calls = append(t.calls, call)

	if t.config.Enabled {
		t.tryGroup(call)
	}
}

// tryGroup attempts to add a call to an existing group or creates a new group
func (t *ActivityTracker) tryGroup(call ToolCall) {
	windowDuration := time.Duration(t.config.WindowSeconds) * time.Second

	if len(t.groups) > 0 {
		lastGroup := &t.groups[len(t.groups)-1]

		if lastGroup.Category == call.Metadata.Category &&
			call.StartTime.Sub(lastGroup.EndTime) <= windowDuration {
			lastGroup.ToolCalls = append(lastGroup.ToolCalls, call)
			lastGroup.EndTime = call.EndTime
			lastGroup.Summary = t.generateGroupSummary(lastGroup)
			return
		}
	}

	group := ActivityGroup{
		Category:  call.Metadata.Category,
		StartTime: call.StartTime,
		EndTime:   call.EndTime,
		ToolCalls: []ToolCall{call},
	}
	group.Summary = t.generateGroupSummary(&group)
	t.groups = append(t.groups, group)
}

// GetGroups returns all activity groups
func (t *ActivityTracker) GetGroups() []ActivityGroup {
	return t.groups
}

// GetLatestGroup returns the most recent activity group
func (t *ActivityTracker) GetLatestGroup() *ActivityGroup {
	if len(t.groups) == 0 {
		return nil
	}
	return &t.groups[len(t.groups)-1]
}

// generateGroupSummary creates a human-readable summary for a group
func (t *ActivityTracker) generateGroupSummary(group *ActivityGroup) string {
	if len(group.ToolCalls) == 0 {
		return ""
	}

	if len(group.ToolCalls) == 1 {
		call := group.ToolCalls[0]
		return t.formatSingleCall(call)
	}

	switch group.Category {
	case CategoryNavigation:
		return t.summarizeNavigationActivity(group)
	case CategoryInteraction:
		return t.summarizeInteractionActivity(group)
	case CategoryExtraction:
		return t.summarizeExtractionActivity(group)
	case CategoryValidation:
		return t.summarizeValidationActivity(group)
	default:
		return t.summarizeGenericActivity(group)
	}
}

// formatSingleCall formats a single tool call
func (t *ActivityTracker) formatSingleCall(call ToolCall) string {
	summary := call.Metadata.Summary
	summary = replacePlaceholders(summary, call.Params, call.Result)
	return summary
}

// summarizeNavigationActivity creates a summary for navigation/tab operations
func (t *ActivityTracker) summarizeNavigationActivity(group *ActivityGroup) string {
	urls := []string{}

	for _, call := range group.ToolCalls {
		if url, ok := call.Params["url"].(string); ok {
			urls = append(urls, url)
		}
	}

	if len(urls) == 1 {
		return fmt.Sprintf("Navigated to %s", urls[0])
	}
	return fmt.Sprintf("Navigated through %d pages", len(group.ToolCalls))
}

// summarizeInteractionActivity creates a summary for click/type/scroll operations
func (t *ActivityTracker) summarizeInteractionActivity(group *ActivityGroup) string {
	actions := 0
	for range group.ToolCalls {
		actions++
	}
	return fmt.Sprintf("Performed %d page interactions", actions)
}

// summarizeExtractionActivity creates a summary for extract/search operations
func (t *ActivityTracker) summarizeExtractionActivity(group *ActivityGroup) string {
	queries := []string{}

	for _, call := range group.ToolCalls {
		if q, ok := call.Params["query"].(string); ok {
			queries = append(queries, q)
		}
	}

	if len(queries) == 1 {
		return fmt.Sprintf("Extracted content matching '%s'", queries[0])
	}
	return fmt.Sprintf("Extracted content across %d requests", len(group.ToolCalls))
}

// summarizeValidationActivity creates a summary for validator/classification operations
func (t *ActivityTracker) summarizeValidationActivity(group *ActivityGroup) string {
	passed := 0
	failed := 0

	for _, call := range group.ToolCalls {
		if call.Result.OK {
			passed++
		} else {
			failed++
		}
	}

	if failed == 0 {
		return fmt.Sprintf("Ran %d validation checks (all passed)", passed+failed)
	}
	return fmt.Sprintf("Ran %d validation checks (%d passed, %d failed)", passed+failed, passed, failed)
}

// summarizeGenericActivity creates summary for other operations
func (t *ActivityTracker) summarizeGenericActivity(group *ActivityGroup) string {
	if len(group.ToolCalls) == 1 {
		return t.formatSingleCall(group.ToolCalls[0])
	}
	return fmt.Sprintf("%d %s operations", len(group.ToolCalls), group.Category)
}

// Helper functions

// replacePlaceholders replaces placeholders in summary templates
func replacePlaceholders(template string, params map[string]any, result Envelope) string {
	s := template

	for key, value := range params {
		placeholder := fmt.Sprintf("{%s}", key)
		s = strings.ReplaceAll(s, placeholder, fmt.Sprintf("%v", value))
	}

	if data, ok := result.Output.(map[string]any); ok {
		for key, value := range data {
			placeholder := fmt.Sprintf("{%s}", key)
			s = strings.ReplaceAll(s, placeholder, fmt.Sprintf("%v", value))
		}
	}

	return s
}

// shortPath returns a shortened version of a slash-delimited path or URL
func shortPath(path string) string {
	rest := path
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	parts := strings.Split(rest, "/")
	if len(parts) > 2 {
		return fmt.Sprintf(".../%s", parts[len(parts)-1])
	}
	return path
}

// FormatActivityLog formats an activity group for display
func FormatActivityLog(group *ActivityGroup) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s\n", group.StartTime.Format("15:04:05"), formatCategoryTitle(group.Category)))

	for _, call := range group.ToolCalls {
		b.WriteString(fmt.Sprintf("├─ %s", call.Tool.Name()))

		keyParams := extractKeyParams(call.Params)
		if keyParams != "" {
			b.WriteString(fmt.Sprintf(" %s", keyParams))
		}

		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("└─ Summary: %s\n", group.Summary))

	return b.String()
}

// formatCategoryTitle formats a category name for display
func formatCategoryTitle(cat Category) string {
	s := string(cat)
	return strings.ToUpper(s[:1]) + s[1:] + " Operations"
}

// extractKeyParams extracts key parameters for display
func extractKeyParams(params map[string]any) string {
	parts := []string{}

	if url, ok := params["url"].(string); ok {
		parts = append(parts, shortPath(url))
	}

	if query, ok := params["query"].(string); ok {
		parts = append(parts, fmt.Sprintf("'%s'", query))
	}

	if selector, ok := params["selector"].(string); ok {
		if len(selector) > 50 {
			selector = selector[:47] + "..."
		}
		parts = append(parts, selector)
	}

	return strings.Join(parts, " ")
}
