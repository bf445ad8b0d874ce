package smartthings

// Wire models for the subset of the provider API this system touches.
// Every list endpoint is paginated server-side; we ask for the maximum
// page size and take the first page (home-scale device counts fit).

// Location is a provider location summary.
type Location struct {
	LocationID string `json:"locationId"`
	Name       string `json:"name"`
}

// Room is a provider room within a location.
type Room struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

// DeviceItem is a provider device summary. Users see the label when one
// is set, otherwise the name.
type DeviceItem struct {
	DeviceID string `json:"deviceId"`
	Name     string `json:"name"`
	Label    string `json:"label"`
	RoomID   string `json:"roomId"`
}

// DisplayName returns the name a user sees for the device.
func (d DeviceItem) DisplayName() string {
	if d.Label != "" {
		return d.Label
	}
	return d.Name
}

type locationsPage struct {
	Items []Location `json:"items"`
}

type roomsPage struct {
	Items []Room `json:"items"`
}

type devicesPage struct {
	Items []DeviceItem `json:"items"`
}

type rulesPage struct {
	Items []Rule `json:"items"`
}

// Rule is a provider automation rule. The id is assigned by the provider
// on creation and empty on rules we are about to create.
type Rule struct {
	ID      string       `json:"id,omitempty"`
	Name    string       `json:"name"`
	Actions []RuleAction `json:"actions"`
}

// RuleAction is one action within a rule. Exactly one variant is set.
type RuleAction struct {
	Every   *EveryAction   `json:"every,omitempty"`
	Command *CommandAction `json:"command,omitempty"`
}

// EveryAction fires nested actions on a recurring schedule.
type EveryAction struct {
	Specific SpecificTime `json:"specific"`
	Actions  []RuleAction `json:"actions"`
}

// SpecificTime is a schedule clause relative to a named anchor.
type SpecificTime struct {
	DaysOfWeek []Day     `json:"daysOfWeek,omitempty"`
	Reference  Anchor    `json:"reference"`
	Offset     *Interval `json:"offset,omitempty"`
}

// Interval is a provider duration value.
type Interval struct {
	Value IntegerValue `json:"value"`
	Unit  string       `json:"unit"`
}

// IntegerValue wraps an integer the way the provider expects.
type IntegerValue struct {
	Integer int `json:"integer"`
}

// CommandAction sends commands to a set of devices.
type CommandAction struct {
	Devices  []string        `json:"devices"`
	Commands []DeviceCommand `json:"commands"`
}

// DeviceCommand is a single capability command.
type DeviceCommand struct {
	Component  string `json:"component"`
	Capability string `json:"capability"`
	Command    string `json:"command"`
}

type commandsRequest struct {
	Commands []DeviceCommand `json:"commands"`
}

type switchStatus struct {
	Switch struct {
		Value string `json:"value"`
	} `json:"switch"`
}
