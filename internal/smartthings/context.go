package smartthings

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/pronovic/vplan/internal/model"
)

// LocationContext maps the human-readable names a plan is written in to
// the provider ids the API wants, and indexes the remote rules this
// system owns. Plans name rooms and devices; the API is structured
// around opaque ids and offers no lookup by name, so the full listing is
// fetched up front. A context is scoped to a single reconciliation or
// toggle run and is never shared between runs.
type LocationContext struct {
	client   *Client
	location string

	locationID   string
	roomByID     map[string]string
	roomByName   map[string]string
	deviceByID   map[string]model.Device
	deviceByName map[string]string

	// Remote rules namespaced under RulePrefix, id -> name.
	managedRules map[string]string
}

// NewLocationContext resolves a location name and loads its rooms,
// switch-capable devices, and the managed subset of its rules.
func (c *Client) NewLocationContext(ctx context.Context, location string) (*LocationContext, error) {
	lctx := &LocationContext{
		client:       c,
		location:     location,
		roomByID:     make(map[string]string),
		roomByName:   make(map[string]string),
		deviceByID:   make(map[string]model.Device),
		deviceByName: make(map[string]string),
		managedRules: make(map[string]string),
	}

	locations, err := c.Locations(ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range locations {
		if item.Name == location {
			lctx.locationID = item.LocationID
		}
	}
	if lctx.locationID == "" {
		return nil, &ClientError{Message: "configured location not found: " + location}
	}
	log.Debug().Str("location", location).Str("location_id", lctx.locationID).Msg("Resolved location")

	rooms, err := c.Rooms(ctx, lctx.locationID)
	if err != nil {
		return nil, err
	}
	for _, room := range rooms {
		lctx.roomByID[room.RoomID] = room.Name
		lctx.roomByName[room.Name] = room.RoomID
	}

	devices, err := c.Devices(ctx, lctx.locationID)
	if err != nil {
		return nil, err
	}
	for _, item := range devices {
		device := model.Device{Room: lctx.roomByID[item.RoomID], Device: item.DisplayName()}
		lctx.deviceByID[item.DeviceID] = device
		lctx.deviceByName[deviceKey(device)] = item.DeviceID
	}

	rules, err := c.Rules(ctx, lctx.locationID)
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		if strings.HasPrefix(rule.Name, model.RulePrefix+"/") {
			lctx.managedRules[rule.ID] = rule.Name
		}
	}

	log.Info().
		Str("location", location).
		Int("rooms", len(rooms)).
		Int("devices", len(devices)).
		Int("managed_rules", len(lctx.managedRules)).
		Msg("Location context loaded")
	return lctx, nil
}

// LocationID returns the provider id of the resolved location.
func (l *LocationContext) LocationID() string { return l.locationID }

// DeviceID resolves a plan device to its provider id. A device the
// provider does not know about, typically renamed or deleted since the
// plan was written, yields an InvalidPlanError.
func (l *LocationContext) DeviceID(device model.Device) (string, error) {
	id, ok := l.deviceByName[deviceKey(device)]
	if !ok {
		return "", model.Invalid("device not found at location %s: %s/%s", l.location, device.Room, device.Device)
	}
	return id, nil
}

// ManagedRuleIDs returns the ids of remote rules owned by a plan.
func (l *LocationContext) ManagedRuleIDs(planName string) []string {
	prefix := planRulePrefix(planName)
	var ids []string
	for id, name := range l.managedRules {
		if strings.HasPrefix(name, prefix) {
			ids = append(ids, id)
		}
	}
	return ids
}

// ReplaceManagedRules swaps a plan's entries in the managed-rule cache
// for the given set. This is purely a cache update, not a remote call.
func (l *LocationContext) ReplaceManagedRules(planName string, rules []Rule) {
	prefix := planRulePrefix(planName)
	for id, name := range l.managedRules {
		if strings.HasPrefix(name, prefix) {
			delete(l.managedRules, id)
		}
	}
	for _, rule := range rules {
		l.managedRules[rule.ID] = rule.Name
	}
}

func deviceKey(device model.Device) string {
	return device.Room + "/" + device.Device
}

func planRulePrefix(planName string) string {
	return model.RulePrefix + "/" + planName + "/"
}
