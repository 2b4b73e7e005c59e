// Package launchconfig provides support for VS Code launch.json debug configurations.
package launchconfig

import (
	"encoding/json"
)

// LaunchJSON represents a VS Code launch.json file structure.
type LaunchJSON struct {
	Version        string               `json:"version"`
	Configurations []DebugConfiguration `json:"configurations"`
}

// DebugConfiguration represents a single debug configuration in launch.json.
// Only the fields the bridge itself interprets are typed; everything else is
// carried through Extra untouched, because the host's debug adapters own the
// semantics of language-specific fields.
type DebugConfiguration struct {
	// Required fields
	Type    string `json:"type"`    // e.g., "python", "go", "node"
	Request string `json:"request"` // "launch" or "attach"
	Name    string `json:"name"`    // Human-readable name

	// Common optional fields
	Program     string            `json:"program,omitempty"`
	Args        []string          `json:"args,omitempty"`
	Cwd         string            `json:"cwd,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	StopOnEntry bool              `json:"stopOnEntry,omitempty"`
	Console     string            `json:"console,omitempty"`
	Module      string            `json:"module,omitempty"`

	// Attach-specific fields
	Port      int    `json:"port,omitempty"`
	Host      string `json:"host,omitempty"`
	ProcessID int    `json:"processId,omitempty"`

	// All other properties not explicitly defined (language-specific extras)
	Extra map[string]interface{} `json:"-"`
}

// ResolutionContext provides context for variable resolution.
type ResolutionContext struct {
	WorkspaceFolder string            // Root folder of the workspace
	EnvOverrides    map[string]string // Override environment variables
}

// UnmarshalJSON implements custom unmarshaling to capture unknown fields.
func (c *DebugConfiguration) UnmarshalJSON(data []byte) error {
	// First unmarshal into a map to capture all fields
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	// Define known fields for type aliasing trick
	type Alias DebugConfiguration
	var alias Alias

	// Unmarshal into the alias (handles known fields)
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	*c = DebugConfiguration(alias)

	// Known fields to exclude from Extra
	knownFields := map[string]bool{
		"type": true, "request": true, "name": true,
		"program": true, "args": true, "cwd": true, "env": true,
		"stopOnEntry": true, "console": true, "module": true,
		"port": true, "host": true, "processId": true,
	}

	// Capture unknown fields into Extra
	c.Extra = make(map[string]interface{})
	for key, value := range raw {
		if !knownFields[key] {
			var v interface{}
			if err := json.Unmarshal(value, &v); err != nil {
				return err
			}
			c.Extra[key] = v
		}
	}

	return nil
}

// MarshalJSON implements custom marshaling to include Extra fields.
func (c DebugConfiguration) MarshalJSON() ([]byte, error) {
	type Alias DebugConfiguration
	alias := Alias(c)

	// Marshal the known fields
	data, err := json.Marshal(alias)
	if err != nil {
		return nil, err
	}

	// If no extra fields, return as-is
	if len(c.Extra) == 0 {
		return data, nil
	}

	// Merge extra fields
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	for k, v := range c.Extra {
		m[k] = v
	}

	return json.Marshal(m)
}

// IsLaunchRequest returns true if this is a launch configuration (not attach).
func (c *DebugConfiguration) IsLaunchRequest() bool {
	return c.Request == "launch"
}

// IsAttachRequest returns true if this is an attach configuration.
func (c *DebugConfiguration) IsAttachRequest() bool {
	return c.Request == "attach"
}
