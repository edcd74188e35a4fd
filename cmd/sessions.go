package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/crime-map/internal/config"
	"github.com/sells-group/crime-map/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage stored prediction sessions",
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired sessions and their results",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return pruneSessions(cmd.Context(), cmd.OutOrStdout(), cfg.Session)
	},
}

// pruneSessions deletes expired sessions from the configured store. Stores
// that live only inside this process are rejected.
func pruneSessions(ctx context.Context, w io.Writer, c config.SessionConfig) error {
	if !session.Persistent(c.Driver, c.DatabaseURL) {
		return eris.Errorf("prune sessions: driver %q with database %q does not persist sessions", c.Driver, c.DatabaseURL)
	}

	st, err := initStore(ctx, c)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	n, err := st.DeleteExpired(ctx)
	if err != nil {
		return eris.Wrap(err, "prune sessions")
	}
	fmt.Fprintf(w, "Deleted %d expired session(s)\n", n)
	return nil
}

func init() {
	sessionsCmd.AddCommand(sessionsPruneCmd)
	rootCmd.AddCommand(sessionsCmd)
}
