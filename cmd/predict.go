package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/crime-map/internal/app"
	"github.com/sells-group/crime-map/internal/predict"
	"github.com/sells-group/crime-map/internal/session"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Run one prediction and print the area and its centroid",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		dateStr, _ := cmd.Flags().GetString("date")
		date := time.Now()
		if dateStr != "" {
			d, err := time.Parse("2006-01-02", dateStr)
			if err != nil {
				return eris.Wrapf(err, "parse --date %q", dateStr)
			}
			date = d
		}

		var in predict.Input
		in.Hour, _ = cmd.Flags().GetInt("hour")
		in.CrimeCode, _ = cmd.Flags().GetInt("crime")
		in.PremisesCode, _ = cmd.Flags().GetInt("premises")
		in.WeaponCode, _ = cmd.Flags().GetInt("weapon")
		in.VictAge, _ = cmd.Flags().GetInt("age")
		in.VictSex, _ = cmd.Flags().GetInt("sex")
		in.Status, _ = cmd.Flags().GetString("status")

		ds, err := loadDataset(ctx, cfg)
		if err != nil {
			return err
		}

		st := session.NewMemory(0)
		svc := app.New(newPredictor(cfg.Model), ds.Centroids, ds.Book, st, cfg.Server.Variant)
		sess, err := svc.Session(ctx, "")
		if err != nil {
			return err
		}

		out, err := svc.Predict(ctx, sess.ID, predict.NewQuery(date, in))
		if err != nil {
			return err
		}
		return printOutcome(cmd.OutOrStdout(), out)
	},
}

// printOutcome writes the area and coordinate lines of a prediction.
func printOutcome(w io.Writer, out *app.Outcome) error {
	lat, lon := "None", "None"
	if out.Resolved {
		lat = strconv.FormatFloat(out.Point.Lat, 'f', -1, 64)
		lon = strconv.FormatFloat(out.Point.Lon, 'f', -1, 64)
	}
	_, err := fmt.Fprintf(w, "Predicted AREA: %d\nCoordinates: Latitude %s, Longitude %s\n", out.Area, lat, lon)
	return err
}

func init() {
	f := predictCmd.Flags()
	f.String("date", "", "incident date YYYY-MM-DD (default today)")
	f.Int("hour", 0, "hour of day 0-23")
	f.Int("crime", 0, "crime code")
	f.Int("premises", 0, "premises code")
	f.Int("weapon", 0, "weapon used code")
	f.Int("age", 30, "victim age")
	f.Int("sex", predict.SexMale, "victim sex (1 male, 2 female)")
	f.String("status", predict.StatusActive, "case status (A or I)")
	rootCmd.AddCommand(predictCmd)
}
