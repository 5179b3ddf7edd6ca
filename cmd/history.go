package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/shared"
)

// attemptJSON is the exported shape of a recorded attempt.
type attemptJSON struct {
	ID           string    `json:"id"`
	Sequence     int       `json:"sequence"`
	SessionID    string    `json:"session_id"`
	Description  string    `json:"description"`
	Level        string    `json:"level"`
	Outcome      string    `json:"outcome"`
	CourseID     string    `json:"course_id,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toAttemptJSON(a *models.Attempt) attemptJSON {
	return attemptJSON{
		ID:           a.ID(),
		Sequence:     a.Sequence(),
		SessionID:    a.SessionID(),
		Description:  a.Description(),
		Level:        a.Level().String(),
		Outcome:      string(a.Outcome()),
		CourseID:     a.CourseID(),
		ErrorMessage: a.ErrorMessage(),
		CreatedAt:    a.CreatedAt(),
	}
}

func parseOutcome(s string) (models.Outcome, error) {
	switch o := models.Outcome(s); o {
	case "", models.OutcomeSuccess, models.OutcomeError, models.OutcomeAbandoned:
		return o, nil
	default:
		return "", fmt.Errorf("%w: unknown outcome %q", shared.ErrInvalidInput, s)
	}
}

// HistoryList prints recorded creation attempts, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	outcome, err := parseOutcome(cmd.String("outcome"))
	if err != nil {
		return err
	}

	db, repo, err := r.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	attempts, err := repo.List(map[string]any{
		"outcome": string(outcome),
		"limit":   cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]attemptJSON, 0, len(attempts))
		for _, a := range attempts {
			out = append(out, toAttemptJSON(a))
		}
		return r.writeJSON(out, true)
	}

	if len(attempts) == 0 {
		return r.writePlain("No attempts recorded\n")
	}

	w := tabwriter.NewWriter(r.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tWHEN\tLEVEL\tOUTCOME\tCOURSE\tDESCRIPTION")
	for _, a := range attempts {
		course := a.CourseID()
		if course == "" {
			course = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			a.Sequence(),
			a.CreatedAt().Local().Format("2006-01-02 15:04"),
			a.Level(),
			a.Outcome(),
			course,
			truncate(a.Description(), 48),
		)
	}
	return w.Flush()
}

// HistoryClear deletes every recorded attempt.
func (r *Runner) HistoryClear(ctx context.Context, cmd *cli.Command) error {
	db, repo, err := r.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := repo.DeleteAll()
	if err != nil {
		return err
	}
	r.logger.Info("cleared attempt history", "count", n)
	return r.writePlain("✓ Removed %d attempts\n", n)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
