package world

import "blobcraft.ai/internal/sim/tuning"

type WorldConfig struct {
	ID     string
	Tuning tuning.Tuning

	// Buffered request slots between other goroutines and the loop.
	RequestQueue int
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "blob-1"
	}
	def := tuning.Defaults()
	t := &c.Tuning
	if t.TickRateHz <= 0 {
		t.TickRateHz = def.TickRateHz
	}
	if t.RebindDelayMS <= 0 {
		t.RebindDelayMS = def.RebindDelayMS
	}
	if t.ObserverLabel == "" {
		t.ObserverLabel = def.ObserverLabel
	}
	if t.ObjectiveID == "" {
		t.ObjectiveID = def.ObjectiveID
	}
	if t.BriefingKey == "" {
		t.BriefingKey = def.BriefingKey
	}
	if t.NodeSearchRadius <= 0 {
		t.NodeSearchRadius = def.NodeSearchRadius
	}
	if t.Alerts.ResourceDivisor <= 0 || t.Alerts.ResourceMax <= 0 {
		t.Alerts.ResourceDivisor, t.Alerts.ResourceMax = def.Alerts.ResourceDivisor, def.Alerts.ResourceMax
	}
	if t.Alerts.HealthDivisor <= 0 || t.Alerts.HealthMax <= 0 {
		t.Alerts.HealthDivisor, t.Alerts.HealthMax = def.Alerts.HealthDivisor, def.Alerts.HealthMax
	}
	if t.CoreTotalHealth <= 0 {
		t.CoreTotalHealth = def.CoreTotalHealth
	}
	if t.BaselineAlertLevel == "" {
		t.BaselineAlertLevel = def.BaselineAlertLevel
	}
	if c.RequestQueue <= 0 {
		c.RequestQueue = 64
	}
}
