package smartthings

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/pronovic/vplan/internal/model"
)

// ResolvedDevice pairs a provider device id with the component the
// switch command targets.
type ResolvedDevice struct {
	ID        string
	Component string
}

// BuildRule composes one provider rule: a schedule clause derived from
// the trigger time and days, wrapping a switch command to every device.
func BuildRule(name string, devices []ResolvedDevice, days []Day, spec TimeSpec, state model.SwitchState) Rule {
	schedule := SpecificTime{DaysOfWeek: days, Reference: spec.Anchor}
	if spec.Offset != nil {
		schedule.Offset = &Interval{Value: IntegerValue{Integer: *spec.Offset}, Unit: "Minute"}
	}
	return Rule{
		Name: name,
		Actions: []RuleAction{{
			Every: &EveryAction{
				Specific: schedule,
				Actions:  commandActions(devices, state),
			},
		}},
	}
}

// commandActions groups devices by component so each command clause
// carries a single component.
func commandActions(devices []ResolvedDevice, state model.SwitchState) []RuleAction {
	var components []string
	byComponent := make(map[string][]string)
	for _, device := range devices {
		if _, ok := byComponent[device.Component]; !ok {
			components = append(components, device.Component)
		}
		byComponent[device.Component] = append(byComponent[device.Component], device.ID)
	}
	var actions []RuleAction
	for _, component := range components {
		actions = append(actions, RuleAction{
			Command: &CommandAction{
				Devices: byComponent[component],
				Commands: []DeviceCommand{{
					Component:  component,
					Capability: "switch",
					Command:    string(state),
				}},
			},
		})
	}
	return actions
}

// BuildTriggerRules produces the two rules for one trigger: <name>/on
// and <name>/off. Variation is rolled independently for the on and off
// times, fresh on every call.
func BuildTriggerRules(name string, devices []ResolvedDevice, trigger model.Trigger) ([]Rule, error) {
	days, err := ParseDays(trigger.Days)
	if err != nil {
		return nil, err
	}

	onVariation, err := ParseVariation(trigger.Variation)
	if err != nil {
		return nil, err
	}
	onTime, err := ParseTriggerTime(trigger.OnTime, onVariation)
	if err != nil {
		return nil, err
	}

	offVariation, err := ParseVariation(trigger.Variation)
	if err != nil {
		return nil, err
	}
	offTime, err := ParseTriggerTime(trigger.OffTime, offVariation)
	if err != nil {
		return nil, err
	}

	return []Rule{
		BuildRule(name+"/on", devices, days, onTime, model.SwitchOn),
		BuildRule(name+"/off", devices, days, offTime, model.SwitchOff),
	}, nil
}

// BuildGroupRules resolves each device in a group once, then emits the
// trigger rules for every trigger, numbering triggers by position.
func BuildGroupRules(lctx *LocationContext, planName string, group model.DeviceGroup) ([]Rule, error) {
	devices := make([]ResolvedDevice, 0, len(group.Devices))
	for _, device := range group.Devices {
		id, err := lctx.DeviceID(device)
		if err != nil {
			return nil, err
		}
		devices = append(devices, ResolvedDevice{ID: id, Component: device.ComponentOrDefault()})
	}
	var rules []Rule
	for index, trigger := range group.Triggers {
		name := fmt.Sprintf("%s/%s/%s/trigger[%d]", model.RulePrefix, planName, group.Name, index)
		triggerRules, err := BuildTriggerRules(name, devices, trigger)
		if err != nil {
			return nil, err
		}
		rules = append(rules, triggerRules...)
	}
	return rules, nil
}

// BuildPlanRules builds the complete target rule set for a plan. The
// generated names, vplan/<plan>/<group>/trigger[<i>]/{on,off}, are both
// how ownership of remote rules is recognized and how a human can audit
// what a rule does.
func BuildPlanRules(lctx *LocationContext, plan *model.Plan) ([]Rule, error) {
	var rules []Rule
	for _, group := range plan.Groups {
		groupRules, err := BuildGroupRules(lctx, plan.Name, group)
		if err != nil {
			return nil, err
		}
		rules = append(rules, groupRules...)
	}
	return rules, nil
}

// ReplaceRules converges the remote rule set for a plan: delete every
// currently managed rule id, create the target set, then update the
// context's managed-rule cache to reflect exactly the new set. An empty
// target set clears the plan's rules.
func ReplaceRules(ctx context.Context, lctx *LocationContext, planName string, rules []Rule) error {
	for _, ruleID := range lctx.ManagedRuleIDs(planName) {
		if err := lctx.client.DeleteRule(ctx, lctx.locationID, ruleID); err != nil {
			return fmt.Errorf("delete rule %s: %w", ruleID, err)
		}
	}

	created := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		result, err := lctx.client.CreateRule(ctx, lctx.locationID, rule)
		if err != nil {
			return fmt.Errorf("create rule %s: %w", rule.Name, err)
		}
		created = append(created, result)
	}

	lctx.ReplaceManagedRules(planName, created)
	log.Info().
		Str("plan", planName).
		Str("location", lctx.location).
		Int("rules", len(created)).
		Msg("Replaced managed rules")
	return nil
}
