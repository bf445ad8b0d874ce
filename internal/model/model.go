// Package model defines the vacation plan data model shared by the store,
// the engine and the REST API. Plan documents are authored in YAML and
// travel over the API as JSON, so every field carries both tags.
package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// OnlyAccount is the key under which the single provider account is stored.
const OnlyAccount = "default"

// RulePrefix namespaces every remote rule this system owns.
const RulePrefix = "vplan"

// DefaultComponent is the device component commands are sent to when a
// plan does not name one.
const DefaultComponent = "main"

var (
	nameRegex = regexp.MustCompile(`^[a-z0-9-]+$`)
	dayRegex  = regexp.MustCompile(
		`^(all|every|weekday(s)?|weekend(s)?|sun(day)?|mon(day)?|tue(sday)?|wed(nesday)?|thu(rsday)?|fri(day)?|sat(urday)?)$`)
	timeRegex      = regexp.MustCompile(`^(sunrise|sunset|midnight|noon|\d{2}:\d{2})$`)
	variationRegex = regexp.MustCompile(`^(disabled|none|([+]/-|[+]|-) (\d+) (hour(s)?|minute(s)?|second(s)?))$`)
	simpleRegex    = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// SwitchState is the state of a switch-capable device.
type SwitchState string

const (
	SwitchOn  SwitchState = "on"
	SwitchOff SwitchState = "off"
)

// Account holds the provider PAT token. At most one exists system-wide.
type Account struct {
	PatToken string `yaml:"pat_token" json:"pat_token"`
}

// Device identifies a switch at the provider by its human-readable names.
// Room and device names are opaque and never trimmed: they must match the
// provider's naming exactly.
type Device struct {
	Room      string `yaml:"room" json:"room"`
	Device    string `yaml:"device" json:"device"`
	Component string `yaml:"component,omitempty" json:"component,omitempty"`
}

// ComponentOrDefault returns the device component, defaulting to "main".
func (d Device) ComponentOrDefault() string {
	if d.Component == "" {
		return DefaultComponent
	}
	return d.Component
}

// Trigger turns a group of devices on and off by day and time of day.
type Trigger struct {
	Days      []string `yaml:"days" json:"days"`
	OnTime    string   `yaml:"on_time" json:"on_time"`
	OffTime   string   `yaml:"off_time" json:"off_time"`
	Variation string   `yaml:"variation" json:"variation"`
}

// DeviceGroup is a set of devices controlled by the same triggers. It is
// also the unit that a test operation toggles together.
type DeviceGroup struct {
	Name     string    `yaml:"name" json:"name"`
	Devices  []Device  `yaml:"devices" json:"devices"`
	Triggers []Trigger `yaml:"triggers" json:"triggers"`
}

// Plan is a vacation lighting plan.
type Plan struct {
	Name        string        `yaml:"name" json:"name"`
	Location    string        `yaml:"location" json:"location"`
	RefreshTime string        `yaml:"refresh_time" json:"refresh_time"`
	RefreshZone string        `yaml:"refresh_zone,omitempty" json:"refresh_zone,omitempty"`
	Groups      []DeviceGroup `yaml:"groups" json:"groups"`
}

// PlanDocument is the versioned wrapper around a plan, as authored on disk.
type PlanDocument struct {
	Version string `yaml:"version" json:"version"`
	Plan    Plan   `yaml:"plan" json:"plan"`
}

// Status is the enabled/disabled state of a plan.
type Status struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// InvalidPlanError indicates that a plan is malformed or references
// devices or rooms the provider does not know about.
type InvalidPlanError struct {
	Message string
}

func (e *InvalidPlanError) Error() string { return e.Message }

// Invalid builds an InvalidPlanError with a formatted message.
func Invalid(format string, args ...any) error {
	return &InvalidPlanError{Message: fmt.Sprintf(format, args...)}
}

// Devices returns the devices in a plan, optionally filtered by group name.
// An empty group name matches every group.
func (d *PlanDocument) Devices(groupName string) []Device {
	var result []Device
	for _, group := range d.Plan.Groups {
		if groupName == "" || group.Name == groupName {
			result = append(result, group.Devices...)
		}
	}
	return result
}

// Validate normalizes the document in place and checks every field against
// the plan schema. Trigger tokens are lowercased and trimmed; room and
// device names are left untouched.
func (d *PlanDocument) Validate() error {
	if err := validateVersion(d.Version); err != nil {
		return err
	}
	p := &d.Plan
	p.Name = strings.TrimSpace(p.Name)
	if err := validateName("plan name", p.Name); err != nil {
		return err
	}
	if p.Location == "" {
		return Invalid("plan %s: location is required", p.Name)
	}
	p.RefreshTime = strings.TrimSpace(p.RefreshTime)
	if !simpleRegex.MatchString(p.RefreshTime) {
		return Invalid("plan %s: invalid refresh time %q", p.Name, p.RefreshTime)
	}
	if p.RefreshZone == "" {
		p.RefreshZone = "UTC"
	}
	if _, err := time.LoadLocation(p.RefreshZone); err != nil {
		return Invalid("plan %s: invalid time zone %q", p.Name, p.RefreshZone)
	}
	for g := range p.Groups {
		if err := validateGroup(&p.Groups[g]); err != nil {
			return err
		}
	}
	return nil
}

func validateGroup(group *DeviceGroup) error {
	group.Name = strings.TrimSpace(group.Name)
	if err := validateName("group name", group.Name); err != nil {
		return err
	}
	for _, device := range group.Devices {
		if device.Room == "" || device.Device == "" {
			return Invalid("group %s: device needs both room and device names", group.Name)
		}
	}
	for t := range group.Triggers {
		if err := validateTrigger(group.Name, &group.Triggers[t]); err != nil {
			return err
		}
	}
	return nil
}

func validateTrigger(groupName string, trigger *Trigger) error {
	if len(trigger.Days) == 0 {
		return Invalid("group %s: trigger needs at least one day", groupName)
	}
	for i, day := range trigger.Days {
		day = strings.ToLower(strings.TrimSpace(day))
		if !dayRegex.MatchString(day) {
			return Invalid("group %s: invalid trigger day %q", groupName, trigger.Days[i])
		}
		trigger.Days[i] = day
	}
	trigger.OnTime = strings.ToLower(strings.TrimSpace(trigger.OnTime))
	if !timeRegex.MatchString(trigger.OnTime) {
		return Invalid("group %s: invalid on time %q", groupName, trigger.OnTime)
	}
	trigger.OffTime = strings.ToLower(strings.TrimSpace(trigger.OffTime))
	if !timeRegex.MatchString(trigger.OffTime) {
		return Invalid("group %s: invalid off time %q", groupName, trigger.OffTime)
	}
	trigger.Variation = strings.ToLower(strings.TrimSpace(trigger.Variation))
	if trigger.Variation == "" {
		trigger.Variation = "disabled"
	}
	if !variationRegex.MatchString(trigger.Variation) {
		return Invalid("group %s: invalid variation %q", groupName, trigger.Variation)
	}
	return nil
}

func validateName(what, name string) error {
	if name == "" || len(name) > 50 || !nameRegex.MatchString(name) {
		return Invalid("invalid %s %q: expected 1-50 characters matching [a-z0-9-]", what, name)
	}
	return nil
}
