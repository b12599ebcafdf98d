package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/faceclock/faceclock/internal/recognize"
)

var matchCmd = &cobra.Command{
	Use:   "match <probe.json>",
	Short: "Match a probe embedding against the enrolled faces",
	Long: `Match a probe embedding against the enrolled faces.
The probe file holds a JSON array of floats or a {"embedding": [...]}
object. Prints the matched employee, confidence and tier without
recording any attendance event.`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading probe file: %w", err)
	}

	var probe []float32
	if err := json.Unmarshal(data, &probe); err != nil {
		var wrapped struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return fmt.Errorf("parsing probe file: %w", err)
		}
		probe = wrapped.Embedding
	}

	ctx := context.Background()
	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.matches.Reload(ctx, d.embeddings); err != nil {
		return fmt.Errorf("loading embeddings: %w", err)
	}
	fmt.Printf("Matching against %d embeddings...\n", d.matches.Count())

	matchCtx, cancel := context.WithTimeout(ctx, d.cfg.Embedding.MatchTimeout)
	defer cancel()

	match, err := d.matches.FindBestMatch(matchCtx, probe)
	switch {
	case errors.Is(err, recognize.ErrNoFacesEnrolled):
		return errors.New("no faces enrolled yet")
	case errors.Is(err, recognize.ErrNotRecognized):
		return errors.New("face not recognized")
	case errors.Is(err, recognize.ErrLowConfidence):
		return errors.New("match confidence too low")
	case err != nil:
		return fmt.Errorf("matching: %w", err)
	}

	employee, err := d.directory.GetEmployee(ctx, match.EmployeeID)
	name := match.EmployeeID
	if err == nil && employee != nil {
		name = employee.FullName
	}

	fmt.Printf("Matched: %s (%s)\n", name, match.EmployeeID)
	fmt.Printf("  Confidence: %.3f (%s)\n", match.Confidence, match.Tier)
	fmt.Printf("  Distance:   %.4f\n", match.Distance)
	fmt.Printf("  Embedding:  %d, captured %s\n", match.EmbeddingID, match.CapturedAt.Format("2006-01-02"))
	return nil
}
