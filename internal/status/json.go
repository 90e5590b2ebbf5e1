package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Ready         bool         `json:"ready"`
	Range         RangeJSON    `json:"range"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// RangeJSON is the latest reading.
type RangeJSON struct {
	DistanceCM int    `json:"distance_cm"`
	Band       string `json:"band"`
	Alert      bool   `json:"alert"`
	Echo       bool   `json:"echo"`
	OutOfRange bool   `json:"out_of_range"`
	Ticks      uint32 `json:"ticks"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Cycles        int    `json:"cycles"`
	NoEcho        int    `json:"no_echo"`
	Alerts        int    `json:"alerts"`
	BandChanges   int    `json:"band_changes"`
	SpuriousEdges uint64 `json:"spurious_edges"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	IntervalMs    int64   `json:"interval_ms"`
	EchoTimeoutMs int64   `json:"echo_timeout_ms"`
	Retries       int     `json:"retries"`
	FlashMs       int64   `json:"flash_ms"`
	HeartbeatMs   int64   `json:"heartbeat_ms"`
	K             float64 `json:"ticks_per_cm"`
	Bias          int     `json:"bias_cm"`
	MaxCM         int     `json:"max_cm"`
	AlertEnter    int     `json:"alert_enter_cm"`
	AlertExit     int     `json:"alert_exit_cm"`
	Broker        string  `json:"broker"`
	HTTPPort      string  `json:"http_port"`
}

func buildInner(snap Snapshot) StatusInner {
	band := string(snap.Band)
	if band == "" {
		band = "UNKNOWN"
	}

	inner := StatusInner{
		Ready: snap.Ready,
		Range: RangeJSON{
			DistanceCM: snap.Sample.CM,
			Band:       band,
			Alert:      snap.Alert,
			Echo:       snap.Sample.Echo,
			OutOfRange: snap.Sample.OutOfRange,
			Ticks:      snap.Sample.Ticks,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Cycles:        snap.Counts.Cycles,
			NoEcho:        snap.Counts.NoEcho,
			Alerts:        snap.Counts.Alerts,
			BandChanges:   snap.Counts.BandChanges,
			SpuriousEdges: snap.Spurious,
		},
		Config: ConfigJSON{
			IntervalMs:    snap.Config.IntervalMs,
			EchoTimeoutMs: snap.Config.EchoTimeoutMs,
			Retries:       snap.Config.Retries,
			FlashMs:       snap.Config.FlashMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			K:             snap.Config.K,
			Bias:          snap.Config.Bias,
			MaxCM:         snap.Config.MaxCM,
			AlertEnter:    snap.Config.AlertEnter,
			AlertExit:     snap.Config.AlertExit,
			Broker:        snap.Config.Broker,
			HTTPPort:      snap.Config.HTTPPort,
		},
	}
	if !snap.LastReading.IsZero() {
		inner.Range.Timestamp = snap.LastReading.UTC().Format(time.RFC3339)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
