package launchconfig

import (
	"encoding/json"
	"testing"
)

// TestDebugConfiguration_ExtraFields verifies unknown launch.json fields
// survive an unmarshal/marshal round trip through Extra.
func TestDebugConfiguration_ExtraFields(t *testing.T) {
	raw := `{
		"type": "python",
		"request": "launch",
		"name": "Run API Server",
		"program": "/ws/src/main.py",
		"justMyCode": false,
		"django": true,
		"pathMappings": [{"localRoot": "/ws", "remoteRoot": "/app"}]
	}`

	var cfg DebugConfiguration
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if cfg.Program != "/ws/src/main.py" {
		t.Errorf("known field lost: %s", cfg.Program)
	}
	if cfg.Extra["justMyCode"] != false {
		t.Errorf("expected justMyCode captured in Extra, got %v", cfg.Extra)
	}
	if cfg.Extra["django"] != true {
		t.Errorf("expected django captured in Extra, got %v", cfg.Extra)
	}
	if _, ok := cfg.Extra["program"]; ok {
		t.Error("known field leaked into Extra")
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var round map[string]interface{}
	if err := json.Unmarshal(data, &round); err != nil {
		t.Fatalf("re-unmarshal failed: %v", err)
	}
	if round["justMyCode"] != false {
		t.Errorf("extra field lost on marshal: %v", round)
	}
	if round["program"] != "/ws/src/main.py" {
		t.Errorf("known field lost on marshal: %v", round)
	}
}

// TestDebugConfiguration_RequestPredicates verifies the launch/attach
// predicates.
func TestDebugConfiguration_RequestPredicates(t *testing.T) {
	launch := DebugConfiguration{Request: "launch"}
	attach := DebugConfiguration{Request: "attach"}

	if !launch.IsLaunchRequest() || launch.IsAttachRequest() {
		t.Error("launch predicates wrong")
	}
	if !attach.IsAttachRequest() || attach.IsLaunchRequest() {
		t.Error("attach predicates wrong")
	}
}
