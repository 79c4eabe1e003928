package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/lumify/internal/tooltip"
)

// placeCmd represents the place command
var placeCmd = &cobra.Command{
	Use:   "place <geometry.json|->",
	Short: "Compute a citation tooltip placement from measured boxes",
	Long: `Place runs the tooltip reset and measurement steps for one hover. The
input holds the tooltip, chip, container and optional modal boxes measured
after the reset style was applied:

  {"tooltip": {...}, "chip": {...}, "container": {...}, "modal": {...}}

Each box has left, top, right and bottom in viewport pixels.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var g tooltip.Geometry
		if err := readJSON(args[0], cmd.InOrStdin(), &g); err != nil {
			return err
		}

		positioner := tooltip.NewPositionerFromConfig(cfg.Tooltip)
		placement, err := positioner.MeasureAndPlace(positioner.Reset(), g)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), placement)
	},
}

func init() {
	rootCmd.AddCommand(placeCmd)
}
