package tool

import (
	"fmt"
	"net/url"
	"strings"
)

// Validator checks a parameter value.
type Validator func(value any) error

// ValidationRule defines a validation rule for a tool parameter.
type ValidationRule struct {
	Tool     string
	Param    string
	Validate Validator
}

// ValidationConfig collects validation rules.
type ValidationConfig struct {
	Rules []ValidationRule
}

// Validation applies configured validation rules before executing tools.
func Validation(cfg ValidationConfig, onError func(tool, param, msg string)) Middleware {
	return func(next Executor) Executor {
		return func(ctx *ExecutionContext) Envelope {
			if ctx == nil || len(cfg.Rules) == 0 {
				return next(ctx)
			}
			toolName := strings.TrimSpace(ctx.ToolName)
			params := ctx.Params
			for _, rule := range cfg.Rules {
				if rule.Validate == nil {
					continue
				}
				if !validationRuleApplies(rule.Tool, toolName) {
					continue
				}
				param := strings.TrimSpace(rule.Param)
				if param == "" || params == nil {
					continue
				}
				value, ok := params[param]
				if !ok {
					continue
				}
				if err := rule.Validate(value); err != nil {
					msg := strings.TrimSpace(err.Error())
					if msg == "" {
						msg = "validation failed"
					}
					if onError != nil {
						onError(toolName, param, msg)
					}
					if ctx.Metadata == nil {
						ctx.Metadata = map[string]any{}
					}
					ctx.Metadata["validation_error"] = map[string]any{
						"tool":    toolName,
						"param":   param,
						"message": msg,
					}
					return Fail(fmt.Sprintf("validation failed: %s", msg))
				}
			}
			return next(ctx)
		}
	}
}

// ValidateNonEmpty ensures a parameter is non-empty.
func ValidateNonEmpty() Validator {
	return func(value any) error {
		switch v := value.(type) {
		case nil:
			return fmt.Errorf("value required")
		case string:
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("value required")
			}
		case []string:
			if len(v) == 0 {
				return fmt.Errorf("value required")
			}
		case []any:
			if len(v) == 0 {
				return fmt.Errorf("value required")
			}
		}
		return nil
	}
}

// ValidateURL ensures a parameter is a well-formed absolute http(s) URL, for
// the url arguments of navigation_tool and tab_operations_tool.
func ValidateURL() Validator {
	return func(value any) error {
		raw, ok := value.(string)
		if !ok {
			return fmt.Errorf("url must be a string")
		}
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return fmt.Errorf("url required")
		}
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return fmt.Errorf("invalid url: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("url must use http or https")
		}
		if parsed.Host == "" {
			return fmt.Errorf("url must include a host")
		}
		return nil
	}
}

func validationRuleApplies(ruleTool, toolName string) bool {
	ruleTool = strings.TrimSpace(ruleTool)
	if ruleTool == "" || ruleTool == "*" {
		return true
	}
	return strings.EqualFold(ruleTool, toolName)
}
