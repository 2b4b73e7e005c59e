package launchconfig

import (
	stderrors "errors"
	"strings"

	"idebridge/internal/errors"
	"idebridge/pkg/types"
)

// Source exposes a workspace's launch configurations to the debug
// controller. launch.json is re-read on every call so edits made in the
// editor take effect without restarting the bridge.
type Source struct {
	workspaceRoot string
}

// NewSource creates a Source rooted at the workspace directory.
func NewSource(workspaceRoot string) *Source {
	return &Source{workspaceRoot: workspaceRoot}
}

// load discovers and parses launch.json. A missing file is not an error,
// it reads as zero configurations; a malformed file is.
func (s *Source) load() (*LaunchJSON, string, error) {
	lj, path, err := LoadAndDiscover(s.workspaceRoot)
	if err != nil {
		if stderrors.Is(err, ErrNotFound) {
			return &LaunchJSON{}, "", nil
		}
		return nil, "", errors.ConfigInvalid("launch.json", err.Error())
	}
	return lj, path, nil
}

// Configurations lists the workspace's launch configurations.
func (s *Source) Configurations() ([]types.ConfigurationInfo, error) {
	lj, _, err := s.load()
	if err != nil {
		return nil, err
	}
	return ListConfigurations(lj), nil
}

// StartBody selects a configuration, resolves its ${...} variables and
// returns the payload to post to the host. An empty name picks the sole
// configuration and reports defaulted=true; with several configurations
// the caller must name one, ambiguity is never defaulted away.
func (s *Source) StartBody(name string) (map[string]interface{}, types.ConfigurationInfo, bool, error) {
	var none types.ConfigurationInfo

	lj, ljPath, err := s.load()
	if err != nil {
		return nil, none, false, err
	}
	if len(lj.Configurations) == 0 {
		return nil, none, false, errors.Validation(
			"no launch configurations found in the workspace",
			"Create .vscode/launch.json with at least one configuration, then retry.",
		)
	}

	var cfg *DebugConfiguration
	defaulted := false
	if name == "" {
		if len(lj.Configurations) > 1 {
			names := ListConfigurationNames(lj)
			return nil, none, false, errors.Validation(
				"several launch configurations exist; name the one to start",
				"Available configurations: "+strings.Join(names, ", "),
			).WithDetails("available", names)
		}
		cfg = &lj.Configurations[0]
		defaulted = true
	} else {
		cfg, err = FindConfiguration(lj, name)
		if err != nil {
			return nil, none, false, errors.ConfigNotFound(name, ListConfigurationNames(lj))
		}
	}

	if err := ValidateConfiguration(cfg); err != nil {
		return nil, none, false, errors.ConfigInvalid(cfg.Name, err.Error())
	}

	rctx := &ResolutionContext{WorkspaceFolder: GetWorkspaceFolder(ljPath)}
	resolved, err := ResolveConfiguration(cfg, rctx)
	if err != nil {
		return nil, none, false, errors.ConfigInvalid(cfg.Name, err.Error())
	}

	info := types.ConfigurationInfo{
		Name:    resolved.Name,
		Type:    resolved.Type,
		Request: resolved.Request,
	}
	return resolved.StartBody(), info, defaulted, nil
}
