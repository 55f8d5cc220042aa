package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kasuganosora/codepals/game/session"
	"github.com/kasuganosora/codepals/save"
)

type statusReport struct {
	PlayerID   string                  `json:"player_id"`
	Save       save.Info               `json:"save"`
	Snapshot   session.Snapshot        `json:"snapshot"`
	Companions []session.CompanionView `json:"companions"`
}

func newStatusCmd(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the saved game without changing it",
		Long:  "status reads the saved game as it is stored. Idle time is not credited; that happens when serve loads it.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := wireApp(root.configPath, root.verbose)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			report, err := loadStatus(cmd.Context(), a)
			if errors.Is(err, save.ErrNoSave) {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "no saved game")
				return err
			}
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return renderStatus(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the status as JSON")
	return cmd
}

func loadStatus(ctx context.Context, a *app) (*statusReport, error) {
	info, err := a.gateway.Info(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := a.gateway.Load(ctx)
	if err != nil {
		return nil, err
	}
	coord := session.NewCoordinator(sess, a.now, nil, a.logger)
	report := &statusReport{
		PlayerID:   sess.Player.PlayerID,
		Save:       info,
		Snapshot:   coord.Snapshot(),
		Companions: []session.CompanionView{},
	}
	for _, c := range sess.Companions() {
		report.Companions = append(report.Companions, session.ViewOf(c))
	}
	return report, nil
}

func renderStatus(w io.Writer, r *statusReport) error {
	var b strings.Builder
	snap := r.Snapshot
	fmt.Fprintf(&b, "player:      %s\n", r.PlayerID)
	fmt.Fprintf(&b, "last saved:  %s\n", r.Save.LastSaved)
	fmt.Fprintf(&b, "zone:        %s\n", snap.CurrentZone)
	fmt.Fprintf(&b, "balance:     %d (generated %d)\n", snap.Balance, snap.TotalGenerated)
	fmt.Fprintf(&b, "companions:  %d (%d species)\n", snap.CompanionCount, snap.UniqueSpecies)
	fmt.Fprintf(&b, "activity:    %d lines, %d files, %d commits\n", snap.LinesWritten, snap.FilesCreated, snap.Commits)
	for _, c := range r.Companions {
		marker := " "
		if c.Active {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %-12s lv %-3d %-8s %d/%d exp\n",
			marker, c.Name, c.Level, c.Mood, c.Experience, c.ExperienceToNext)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
