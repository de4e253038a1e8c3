package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iamtommetcalfe/encom-smart-home/internal/domain"
)

func TestSplitGoveeDeviceID(t *testing.T) {
	tests := []struct {
		name      string
		composite string
		device    string
		model     string
		wantErr   bool
	}{
		{"mac style id", "AA:BB:CC:H6159", "AA:BB:CC", "H6159", false},
		{"full mac", "14:E8:D6:AA:BB:CC:DD:EE:H6159", "14:E8:D6:AA:BB:CC:DD:EE", "H6159", false},
		{"single pair", "dev:H5081", "dev", "H5081", false},
		{"no separator", "H6159", "", "", true},
		{"empty device", ":H6159", "", "", true},
		{"empty model", "AA:BB:", "", "", true},
		{"empty input", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device, model, err := SplitGoveeDeviceID(tt.composite)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SplitGoveeDeviceID(%q) err = %v, wantErr = %v", tt.composite, err, tt.wantErr)
			}
			if device != tt.device || model != tt.model {
				t.Errorf("SplitGoveeDeviceID(%q) = (%q, %q), want (%q, %q)",
					tt.composite, device, model, tt.device, tt.model)
			}
		})
	}
}

func TestGoveeJoinSplitRoundTrip(t *testing.T) {
	composite := JoinGoveeDeviceID("14:E8:D6:AA:BB:CC", "H6159")
	device, model, err := SplitGoveeDeviceID(composite)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if device != "14:E8:D6:AA:BB:CC" || model != "H6159" {
		t.Errorf("round trip got (%q, %q)", device, model)
	}
}

func TestGoveeConnect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Govee-API-Key") != "valid-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"devices": []any{}}})
	}))
	defer server.Close()

	tests := []struct {
		name        string
		credentials map[string]any
		want        bool
	}{
		{"valid key", map[string]any{"api_key": "valid-key"}, true},
		{"rejected key", map[string]any{"api_key": "wrong"}, false},
		{"missing key", map[string]any{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGoveeAdapterWithURL(server.URL)
			if got := g.Connect(context.Background(), tt.credentials); got != tt.want {
				t.Errorf("Connect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func goveeTestServer(t *testing.T, controlBodies *[]map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/devices", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"devices": []map[string]any{
					{
						"device":     "14:E8:D6:AA:BB:CC",
						"model":      "H6159",
						"deviceName": "Living Room Lamp",
						// mixed command shapes, both occur in the wild
						"supportCmds": []any{"turn", "brightness", map[string]any{"name": "color"}},
					},
					{
						"device":      "AB:CD:EF:00:11:22",
						"model":       "H5081",
						"deviceName":  "Desk Plug",
						"supportCmds": []any{"turn"},
					},
				},
			},
		})
	})

	mux.HandleFunc("/devices/state", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("device") == "" || r.URL.Query().Get("model") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"properties": []map[string]any{
					{"online": true},
					{"name": "powerState", "value": "on"},
					{"name": "brightness", "value": 75},
				},
			},
		})
	})

	mux.HandleFunc("/devices/control", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if controlBodies != nil {
			*controlBodies = append(*controlBodies, body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 200})
	})

	return httptest.NewServer(mux)
}

func TestGoveeGetDevices(t *testing.T) {
	server := goveeTestServer(t, nil)
	defer server.Close()

	g := NewGoveeAdapterWithURL(server.URL)
	if !g.Connect(context.Background(), map[string]any{"api_key": "k"}) {
		t.Fatal("connect failed")
	}

	devices := g.GetDevices(context.Background())
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}

	lamp := devices[0]
	if lamp.DeviceID != "14:E8:D6:AA:BB:CC:H6159" {
		t.Errorf("composite id = %q", lamp.DeviceID)
	}
	if lamp.DeviceType != domain.DeviceTypeLight {
		t.Errorf("lamp type = %q, want light", lamp.DeviceType)
	}
	wantCaps := []string{domain.CapabilityOnOff, domain.CapabilityBrightness, domain.CapabilityColor}
	if len(lamp.Capabilities) != len(wantCaps) {
		t.Fatalf("lamp capabilities = %v, want %v", lamp.Capabilities, wantCaps)
	}
	for i, c := range wantCaps {
		if lamp.Capabilities[i] != c {
			t.Errorf("capability[%d] = %q, want %q", i, lamp.Capabilities[i], c)
		}
	}
	if !lamp.LastState.Power {
		t.Error("lamp power should be on")
	}
	if lamp.Room != nil {
		t.Error("govee devices should have no room")
	}

	plug := devices[1]
	if plug.DeviceType != domain.DeviceTypeSwitch {
		t.Errorf("plug type = %q, want switch", plug.DeviceType)
	}
}

func TestGoveeGetDeviceState(t *testing.T) {
	server := goveeTestServer(t, nil)
	defer server.Close()

	g := NewGoveeAdapterWithURL(server.URL)
	g.apiKey = "k"

	state := g.GetDeviceState(context.Background(), "14:E8:D6:AA:BB:CC:H6159")
	if !state.Power {
		t.Error("power should be on for powerState=on")
	}
	if state.Brightness == nil || *state.Brightness != 75 {
		t.Errorf("brightness = %v, want 75", state.Brightness)
	}
	if state.Temperature != nil {
		t.Error("temperature should be unset")
	}

	// invalid composite id fails without a request
	if got := g.GetDeviceState(context.Background(), "H6159"); got.Power {
		t.Error("invalid id should yield zero state")
	}
}

func TestGoveeSetDeviceStateSingleCommand(t *testing.T) {
	on := true
	brightness := 40
	tests := []struct {
		name     string
		patch    domain.StatePatch
		wantSent bool
		wantCmd  string
		wantVal  any
	}{
		{"power wins over everything", domain.StatePatch{Power: &on, Brightness: &brightness, Color: map[string]any{"r": 255.0}}, true, "turn", "on"},
		{"brightness wins over color", domain.StatePatch{Brightness: &brightness, Color: map[string]any{"r": 255.0}}, true, "brightness", float64(40)},
		{"color alone", domain.StatePatch{Color: map[string]any{"r": 255.0}}, true, "color", nil},
		{"empty patch", domain.StatePatch{}, false, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var bodies []map[string]any
			server := goveeTestServer(t, &bodies)
			defer server.Close()

			g := NewGoveeAdapterWithURL(server.URL)
			g.apiKey = "k"

			got := g.SetDeviceState(context.Background(), "AA:BB:CC:H6159", tt.patch)
			if got != tt.wantSent {
				t.Fatalf("SetDeviceState() = %v, want %v", got, tt.wantSent)
			}
			if !tt.wantSent {
				if len(bodies) != 0 {
					t.Fatalf("expected no vendor call, got %d", len(bodies))
				}
				return
			}
			if len(bodies) != 1 {
				t.Fatalf("expected exactly one command request, got %d", len(bodies))
			}
			cmd, _ := bodies[0]["cmd"].(map[string]any)
			if cmd["name"] != tt.wantCmd {
				t.Errorf("command name = %v, want %v", cmd["name"], tt.wantCmd)
			}
			if tt.wantVal != nil && cmd["value"] != tt.wantVal {
				t.Errorf("command value = %v, want %v", cmd["value"], tt.wantVal)
			}
			if bodies[0]["device"] != "AA:BB:CC" || bodies[0]["model"] != "H6159" {
				t.Errorf("command addressed to (%v, %v)", bodies[0]["device"], bodies[0]["model"])
			}
		})
	}
}
