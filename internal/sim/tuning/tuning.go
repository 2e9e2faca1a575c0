package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	// Possession.
	RebindDelayMS int    `yaml:"rebind_delay_ms"`
	ObserverLabel string `yaml:"observer_label"`
	ObjectiveID   string `yaml:"objective_id"`
	BriefingKey   string `yaml:"briefing_key"`

	NodeSearchRadius int `yaml:"node_search_radius"`

	Alerts Alerts `yaml:"alerts"`

	CoreTotalHealth    float64 `yaml:"core_total_health"`
	BaselineAlertLevel string  `yaml:"baseline_alert_level"`
}

// Alerts scales raw values into the bounded ranges shown to the observer.
type Alerts struct {
	ResourceDivisor float64 `yaml:"resource_divisor"`
	ResourceMax     int     `yaml:"resource_max"`
	HealthDivisor   float64 `yaml:"health_divisor"`
	HealthMax       int     `yaml:"health_max"`
}

func Defaults() Tuning {
	t := Tuning{}
	t.applyDefaults()
	return t
}

func (t *Tuning) applyDefaults() {
	if t.TickRateHz <= 0 {
		t.TickRateHz = 10
	}
	if t.RebindDelayMS <= 0 {
		t.RebindDelayMS = 1000
	}
	if t.ObserverLabel == "" {
		t.ObserverLabel = "Blob Player"
	}
	if t.ObjectiveID == "" {
		t.ObjectiveID = "BlobCaptureObjective"
	}
	if t.BriefingKey == "" {
		t.BriefingKey = "blob-role-greeting"
	}
	if t.NodeSearchRadius <= 0 {
		t.NodeSearchRadius = 3
	}
	if t.Alerts.ResourceDivisor <= 0 {
		t.Alerts.ResourceDivisor = 10
	}
	if t.Alerts.ResourceMax <= 0 {
		t.Alerts.ResourceMax = 16
	}
	if t.Alerts.HealthDivisor <= 0 {
		t.Alerts.HealthDivisor = 10
	}
	if t.Alerts.HealthMax <= 0 {
		t.Alerts.HealthMax = 20
	}
	if t.CoreTotalHealth <= 0 {
		t.CoreTotalHealth = 200
	}
	if t.BaselineAlertLevel == "" {
		t.BaselineAlertLevel = "green"
	}
}

// RebindDelayTicks converts the rebind delay to whole ticks (at least one).
func (t Tuning) RebindDelayTicks() uint64 {
	hz := t.TickRateHz
	if hz <= 0 {
		hz = 10
	}
	ticks := uint64(t.RebindDelayMS) * uint64(hz) / 1000
	if ticks == 0 {
		ticks = 1
	}
	return ticks
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.applyDefaults()
	return t, nil
}
