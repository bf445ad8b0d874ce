package smartthings

import (
	"context"

	"github.com/pronovic/vplan/internal/model"
)

// SetSwitch switches a plan device on or off through the resolver.
func SetSwitch(ctx context.Context, lctx *LocationContext, device model.Device, state model.SwitchState) error {
	id, err := lctx.DeviceID(device)
	if err != nil {
		return err
	}
	return lctx.client.ExecuteSwitch(ctx, id, device.ComponentOrDefault(), state)
}

// CheckSwitch reads the current state of a plan device.
func CheckSwitch(ctx context.Context, lctx *LocationContext, device model.Device) (model.SwitchState, error) {
	id, err := lctx.DeviceID(device)
	if err != nil {
		return "", err
	}
	return lctx.client.SwitchStatus(ctx, id, device.ComponentOrDefault())
}
