package launchconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Variable pattern matches ${...} expressions
var variablePattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveVariables replaces all ${...} variables in the given text.
func ResolveVariables(text string, ctx *ResolutionContext) (string, error) {
	if ctx == nil {
		ctx = &ResolutionContext{}
	}

	var lastErr error
	result := variablePattern.ReplaceAllStringFunc(text, func(match string) string {
		// Extract the variable expression (without ${ and })
		expr := match[2 : len(match)-1]

		resolved, err := resolveVariable(expr, ctx)
		if err != nil {
			lastErr = err
			return match // Keep original if error
		}
		return resolved
	})

	return result, lastErr
}

// resolveVariable resolves a single variable expression.
func resolveVariable(expr string, ctx *ResolutionContext) (string, error) {
	switch {
	case expr == "workspaceFolder":
		return ctx.WorkspaceFolder, nil

	case expr == "workspaceFolderBasename":
		return filepath.Base(ctx.WorkspaceFolder), nil

	case expr == "userHome":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home: %w", err)
		}
		return home, nil

	case expr == "cwd":
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get cwd: %w", err)
		}
		return cwd, nil

	case expr == "pathSeparator":
		return string(os.PathSeparator), nil

	case strings.HasPrefix(expr, "env:"):
		// ${env:VAR_NAME}
		varName := strings.TrimPrefix(expr, "env:")
		if ctx.EnvOverrides != nil {
			if val, ok := ctx.EnvOverrides[varName]; ok {
				return val, nil
			}
		}
		return os.Getenv(varName), nil

	default:
		return "", fmt.Errorf("unsupported variable: ${%s}", expr)
	}
}

// resolveStringSlice resolves variables in each element of a slice.
func resolveStringSlice(values []string, ctx *ResolutionContext) ([]string, error) {
	if values == nil {
		return nil, nil
	}
	result := make([]string, len(values))
	for i, v := range values {
		resolved, err := ResolveVariables(v, ctx)
		if err != nil {
			return nil, err
		}
		result[i] = resolved
	}
	return result, nil
}

// resolveStringMap resolves variables in each value of a map.
func resolveStringMap(values map[string]string, ctx *ResolutionContext) (map[string]string, error) {
	if values == nil {
		return nil, nil
	}
	result := make(map[string]string, len(values))
	for k, v := range values {
		resolved, err := ResolveVariables(v, ctx)
		if err != nil {
			return nil, err
		}
		result[k] = resolved
	}
	return result, nil
}

// resolveValue resolves variables in a value of any type.
func resolveValue(v interface{}, ctx *ResolutionContext) (interface{}, error) {
	switch val := v.(type) {
	case string:
		return ResolveVariables(val, ctx)
	case []interface{}:
		result := make([]interface{}, len(val))
		for i, item := range val {
			resolved, err := resolveValue(item, ctx)
			if err != nil {
				return nil, err
			}
			result[i] = resolved
		}
		return result, nil
	case map[string]interface{}:
		result := make(map[string]interface{}, len(val))
		for k, item := range val {
			resolved, err := resolveValue(item, ctx)
			if err != nil {
				return nil, err
			}
			result[k] = resolved
		}
		return result, nil
	default:
		// Non-string types pass through unchanged (numbers, bools, nil)
		return v, nil
	}
}

// ResolveConfiguration resolves all variables in a configuration, returning
// a new configuration with every ${...} expression substituted.
func ResolveConfiguration(cfg *DebugConfiguration, ctx *ResolutionContext) (*DebugConfiguration, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}
	if ctx == nil {
		ctx = &ResolutionContext{}
	}

	resolved := &DebugConfiguration{
		Type:        cfg.Type,
		Request:     cfg.Request,
		Name:        cfg.Name,
		StopOnEntry: cfg.StopOnEntry,
		Port:        cfg.Port,
		ProcessID:   cfg.ProcessID,
	}

	var err error
	if resolved.Program, err = ResolveVariables(cfg.Program, ctx); err != nil {
		return nil, fmt.Errorf("failed to resolve program: %w", err)
	}
	if resolved.Cwd, err = ResolveVariables(cfg.Cwd, ctx); err != nil {
		return nil, fmt.Errorf("failed to resolve cwd: %w", err)
	}
	if resolved.Console, err = ResolveVariables(cfg.Console, ctx); err != nil {
		return nil, fmt.Errorf("failed to resolve console: %w", err)
	}
	if resolved.Host, err = ResolveVariables(cfg.Host, ctx); err != nil {
		return nil, fmt.Errorf("failed to resolve host: %w", err)
	}
	if resolved.Module, err = ResolveVariables(cfg.Module, ctx); err != nil {
		return nil, fmt.Errorf("failed to resolve module: %w", err)
	}
	if resolved.Args, err = resolveStringSlice(cfg.Args, ctx); err != nil {
		return nil, fmt.Errorf("failed to resolve args: %w", err)
	}
	if resolved.Env, err = resolveStringMap(cfg.Env, ctx); err != nil {
		return nil, fmt.Errorf("failed to resolve env: %w", err)
	}

	if cfg.Extra != nil {
		resolved.Extra = make(map[string]interface{}, len(cfg.Extra))
		for k, v := range cfg.Extra {
			rv, err := resolveValue(v, ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve extra[%s]: %w", k, err)
			}
			resolved.Extra[k] = rv
		}
	}

	return resolved, nil
}

// StartBody converts a resolved configuration to the map posted to the host
// when starting a debug session. The host passes it to the matching debug
// adapter unchanged, so unknown fields ride along through Extra.
func (c *DebugConfiguration) StartBody() map[string]interface{} {
	body := map[string]interface{}{
		"type":    c.Type,
		"request": c.Request,
		"name":    c.Name,
	}

	if c.Program != "" {
		body["program"] = c.Program
	}
	if len(c.Args) > 0 {
		body["args"] = c.Args
	}
	if c.Cwd != "" {
		body["cwd"] = c.Cwd
	}
	if c.Env != nil {
		body["env"] = c.Env
	}
	if c.StopOnEntry {
		body["stopOnEntry"] = c.StopOnEntry
	}
	if c.Console != "" {
		body["console"] = c.Console
	}
	if c.Module != "" {
		body["module"] = c.Module
	}
	if c.Host != "" {
		body["host"] = c.Host
	}
	if c.Port != 0 {
		body["port"] = c.Port
	}
	if c.ProcessID != 0 {
		body["processId"] = c.ProcessID
	}

	for k, v := range c.Extra {
		body[k] = v
	}

	return body
}
