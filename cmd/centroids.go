package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/crime-map/internal/geo"
)

var centroidsCmd = &cobra.Command{
	Use:   "centroids",
	Short: "Print the centroid of every area in the dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ds, err := loadDataset(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return writeCentroids(cmd.OutOrStdout(), ds.Centroids)
	},
}

func writeCentroids(w io.Writer, c geo.Centroids) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AREA\tLAT\tLON")
	for _, area := range c.Areas() {
		p, _ := c.Lookup(area)
		fmt.Fprintf(tw, "%d\t%.6f\t%.6f\n", area, p.Lat, p.Lon)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(centroidsCmd)
}
