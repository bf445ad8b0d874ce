package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pronovic/vplan/internal/model"
)

var planToggles int

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage vacation lighting plans",
}

var planListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored plan names",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		var names []string
		if err := newAPIClient().get("/plan", &names); err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var planShowCmd = &cobra.Command{
	Use:   "show <plan>",
	Short: "Show a plan definition as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var doc model.PlanDocument
		if err := newAPIClient().get("/plan/"+url.PathEscape(args[0]), &doc); err != nil {
			return err
		}
		encoded, err := yaml.Marshal(&doc)
		if err != nil {
			return err
		}
		fmt.Print(string(encoded))
		return nil
	},
}

// loadPlanFile reads and locally validates a YAML plan document, so
// obvious mistakes are reported without a round trip to the engine.
func loadPlanFile(path string) (*model.PlanDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc model.PlanDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed plan document %s: %w", path, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

var planCreateCmd = &cobra.Command{
	Use:   "create <file.yaml>",
	Short: "Create a plan from a YAML document",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		doc, err := loadPlanFile(args[0])
		if err != nil {
			return err
		}
		return newAPIClient().send(http.MethodPost, "/plan", doc)
	},
}

var planUpdateCmd = &cobra.Command{
	Use:   "update <file.yaml>",
	Short: "Update an existing plan from a YAML document",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		doc, err := loadPlanFile(args[0])
		if err != nil {
			return err
		}
		return newAPIClient().send(http.MethodPut, "/plan", doc)
	},
}

var planDeleteCmd = &cobra.Command{
	Use:   "delete <plan>",
	Short: "Delete a plan and clear its remote rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return newAPIClient().send(http.MethodDelete, "/plan/"+url.PathEscape(args[0]), nil)
	},
}

var planStatusCmd = &cobra.Command{
	Use:   "status <plan>",
	Short: "Show whether a plan is enabled",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var status model.Status
		if err := newAPIClient().get("/plan/"+url.PathEscape(args[0])+"/status", &status); err != nil {
			return err
		}
		if status.Enabled {
			fmt.Println("enabled")
		} else {
			fmt.Println("disabled")
		}
		return nil
	},
}

func setEnabled(planName string, enabled bool) error {
	path := "/plan/" + url.PathEscape(planName) + "/status"
	return newAPIClient().send(http.MethodPut, path, model.Status{Enabled: enabled})
}

var planEnableCmd = &cobra.Command{
	Use:   "enable <plan>",
	Short: "Enable a plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return setEnabled(args[0], true)
	},
}

var planDisableCmd = &cobra.Command{
	Use:   "disable <plan>",
	Short: "Disable a plan and clear its remote rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return setEnabled(args[0], false)
	},
}

var planRefreshCmd = &cobra.Command{
	Use:   "refresh <plan>",
	Short: "Queue an immediate refresh of a plan's remote rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return newAPIClient().send(http.MethodPost, "/plan/"+url.PathEscape(args[0])+"/refresh", nil)
	},
}

var planTestGroupCmd = &cobra.Command{
	Use:   "test-group <plan> <group>",
	Short: "Toggle every device in a group to verify wiring",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		path := fmt.Sprintf("/plan/%s/test/group/%s?toggles=%d",
			url.PathEscape(args[0]), url.PathEscape(args[1]), planToggles)
		return newAPIClient().send(http.MethodPost, path, nil)
	},
}

var planTestDeviceCmd = &cobra.Command{
	Use:   "test-device <plan> <room> <device>",
	Short: "Toggle a single device to verify wiring",
	Args:  cobra.ExactArgs(3),
	RunE: func(_ *cobra.Command, args []string) error {
		path := fmt.Sprintf("/plan/%s/test/device/%s/%s?toggles=%d",
			url.PathEscape(args[0]), url.PathEscape(args[1]), url.PathEscape(args[2]), planToggles)
		return newAPIClient().send(http.MethodPost, path, nil)
	},
}

func init() {
	planTestGroupCmd.Flags().IntVar(&planToggles, "toggles", 2, "Number of on/off cycles")
	planTestDeviceCmd.Flags().IntVar(&planToggles, "toggles", 2, "Number of on/off cycles")

	planCmd.AddCommand(planListCmd)
	planCmd.AddCommand(planShowCmd)
	planCmd.AddCommand(planCreateCmd)
	planCmd.AddCommand(planUpdateCmd)
	planCmd.AddCommand(planDeleteCmd)
	planCmd.AddCommand(planStatusCmd)
	planCmd.AddCommand(planEnableCmd)
	planCmd.AddCommand(planDisableCmd)
	planCmd.AddCommand(planRefreshCmd)
	planCmd.AddCommand(planTestGroupCmd)
	planCmd.AddCommand(planTestDeviceCmd)
}
