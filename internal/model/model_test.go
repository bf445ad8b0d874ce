package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const planYAML = `
version: 1.0.0
plan:
  name: my-plan
  location: Home
  refresh_time: "00:30"
  refresh_zone: America/Chicago
  groups:
    - name: evening
      devices:
        - room: Living Room
          device: Lamp
        - room: Den
          device: Smart Strip
          component: leftOutlet
      triggers:
        - days: [weekday]
          on_time: sunset
          off_time: "22:45"
          variation: "+/- 30 minutes"
        - days: [weekend]
          on_time: "19:30"
          off_time: midnight
          variation: disabled
`

func loadDocument(t *testing.T) *PlanDocument {
	t.Helper()
	var doc PlanDocument
	require.NoError(t, yaml.Unmarshal([]byte(planYAML), &doc))
	return &doc
}

func TestValidateDocument(t *testing.T) {
	doc := loadDocument(t)
	require.NoError(t, doc.Validate())

	assert.Equal(t, "my-plan", doc.Plan.Name)
	assert.Equal(t, "America/Chicago", doc.Plan.RefreshZone)
	assert.Equal(t, "Living Room", doc.Plan.Groups[0].Devices[0].Room)
	assert.Equal(t, "main", doc.Plan.Groups[0].Devices[0].ComponentOrDefault())
	assert.Equal(t, "leftOutlet", doc.Plan.Groups[0].Devices[1].ComponentOrDefault())
}

func TestValidateNormalizesTriggers(t *testing.T) {
	doc := loadDocument(t)
	trigger := &doc.Plan.Groups[0].Triggers[0]
	trigger.Days = []string{" WEEKDAY ", "Sunday"}
	trigger.OnTime = " Sunset "
	trigger.Variation = ""

	require.NoError(t, doc.Validate())
	assert.Equal(t, []string{"weekday", "sunday"}, trigger.Days)
	assert.Equal(t, "sunset", trigger.OnTime)
	assert.Equal(t, "disabled", trigger.Variation)
}

func TestValidateDefaultsRefreshZone(t *testing.T) {
	doc := loadDocument(t)
	doc.Plan.RefreshZone = ""
	require.NoError(t, doc.Validate())
	assert.Equal(t, "UTC", doc.Plan.RefreshZone)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PlanDocument)
	}{
		{"bad version", func(d *PlanDocument) { d.Version = "not-a-version" }},
		{"version below range", func(d *PlanDocument) { d.Version = "0.9.0" }},
		{"version above range", func(d *PlanDocument) { d.Version = "2.0.0" }},
		{"uppercase plan name", func(d *PlanDocument) { d.Plan.Name = "My-Plan" }},
		{"empty plan name", func(d *PlanDocument) { d.Plan.Name = "" }},
		{"long plan name", func(d *PlanDocument) {
			d.Plan.Name = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
		}},
		{"missing location", func(d *PlanDocument) { d.Plan.Location = "" }},
		{"bad refresh time", func(d *PlanDocument) { d.Plan.RefreshTime = "8:30" }},
		{"bad time zone", func(d *PlanDocument) { d.Plan.RefreshZone = "Mars/Olympus" }},
		{"bad group name", func(d *PlanDocument) { d.Plan.Groups[0].Name = "Evening Lights" }},
		{"device missing room", func(d *PlanDocument) { d.Plan.Groups[0].Devices[0].Room = "" }},
		{"trigger without days", func(d *PlanDocument) { d.Plan.Groups[0].Triggers[0].Days = nil }},
		{"bad trigger day", func(d *PlanDocument) { d.Plan.Groups[0].Triggers[0].Days = []string{"blursday"} }},
		{"bad on time", func(d *PlanDocument) { d.Plan.Groups[0].Triggers[0].OnTime = "dawn" }},
		{"bad off time", func(d *PlanDocument) { d.Plan.Groups[0].Triggers[0].OffTime = "25:00" }},
		{"bad variation", func(d *PlanDocument) { d.Plan.Groups[0].Triggers[0].Variation = "sometimes" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := loadDocument(t)
			tt.mutate(doc)
			err := doc.Validate()
			var invalid *InvalidPlanError
			assert.ErrorAs(t, err, &invalid)
		})
	}
}

func TestValidateVersionRange(t *testing.T) {
	for _, version := range []string{"1.0.0", "1.0.7", "1.1.0"} {
		assert.NoError(t, validateVersion(version), version)
	}
	for _, version := range []string{"0.9.9", "1.1.1", "1.2.0", "1.0", "1.0.0.0", "one.two.three", ""} {
		assert.Error(t, validateVersion(version), version)
	}
}

func TestDevices(t *testing.T) {
	doc := loadDocument(t)
	doc.Plan.Groups = append(doc.Plan.Groups, DeviceGroup{
		Name:    "porch",
		Devices: []Device{{Room: "Outside", Device: "Porch Light"}},
	})

	assert.Len(t, doc.Devices(""), 3)
	assert.Len(t, doc.Devices("evening"), 2)
	assert.Len(t, doc.Devices("porch"), 1)
	assert.Empty(t, doc.Devices("no-such-group"))
}
