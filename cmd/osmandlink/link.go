package main

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"osmandlink/pkg/link"
)

var (
	linkStyle string
	linkZoom  int
)

var linkCmd = &cobra.Command{
	Use:   "link LAT LON",
	Short: "Print the OsmAnd link for a coordinate pair",
	Example: `  osmandlink link 40.7128 -74.0060
  osmandlink link --style go --zoom 15 -- 51.5 -0.12`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, err := strconv.ParseFloat(args[0], 64)
		if err != nil || lat < -90 || lat > 90 {
			return fmt.Errorf("invalid latitude %q", args[0])
		}
		lon, err := strconv.ParseFloat(args[1], 64)
		if err != nil || lon < -180 || lon > 180 {
			return fmt.Errorf("invalid longitude %q", args[1])
		}

		b := appCfg.Builder()
		if linkStyle != "" {
			if b.Style, err = link.ParseStyle(linkStyle); err != nil {
				return err
			}
		}
		if linkZoom > 0 {
			b.Zoom = linkZoom
		}

		fmt.Fprintln(cmd.OutOrStdout(), b.Build(orb.Point{lon, lat}))
		return nil
	},
}

func init() {
	linkCmd.Flags().StringVar(&linkStyle, "style", "", `link style, "map" or "go" (default from config)`)
	linkCmd.Flags().IntVar(&linkZoom, "zoom", 0, "zoom level (default from config)")
}
