package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/faceclock/faceclock/internal/assist"
	"github.com/faceclock/faceclock/internal/database"
	"github.com/faceclock/faceclock/internal/recognize"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <employee-id> <capture.json>",
	Short: "Enroll a face capture for an employee",
	Long: `Enroll a face capture for an employee.
The capture file holds the embedding vector and the face-detection
result as JSON. The capture must pass the quality gate before the
embedding is stored; a failing capture prints the warnings and exits
non-zero.`,
	Args: cobra.ExactArgs(2),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Bool("force", false, "Store the embedding even if the quality gate fails")
	enrollCmd.Flags().String("photo", "", "Proof photo to thumbnail next to the capture file")
}

// captureFile is the on-disk format produced by the capture tooling.
type captureFile struct {
	Embedding []float32                 `json:"embedding"`
	Detection recognize.DetectionResult `json:"detection"`
}

func runEnroll(cmd *cobra.Command, args []string) error {
	employeeID := args[0]
	force := mustGetBool(cmd, "force")

	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("reading capture file: %w", err)
	}
	var capture captureFile
	if err := json.Unmarshal(data, &capture); err != nil {
		return fmt.Errorf("parsing capture file: %w", err)
	}

	ctx := context.Background()
	d, err := openDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	if len(capture.Embedding) != d.cfg.Embedding.Dim {
		return fmt.Errorf("embedding has dimension %d, deployment uses %d",
			len(capture.Embedding), d.cfg.Embedding.Dim)
	}

	employee, err := d.directory.GetEmployee(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("looking up employee: %w", err)
	}
	if employee == nil {
		return fmt.Errorf("employee %s not found in HRIS", employeeID)
	}
	if !employee.Active {
		return fmt.Errorf("employee %s is deactivated", employeeID)
	}

	report := recognize.NewQualityScorer().Score(&capture.Detection)
	fmt.Printf("Quality score: %d/100\n", report.Score)
	for _, warning := range report.Warnings {
		fmt.Printf("  warning: %s\n", warning)
	}
	if !report.IsGoodQuality && !force {
		return fmt.Errorf("capture quality too low (use --force to store anyway)")
	}

	emb := database.StoredEmbedding{
		EmployeeID: employeeID,
		Embedding:  capture.Embedding,
		Model:      d.cfg.Embedding.Model,
		Dim:        d.cfg.Embedding.Dim,
		Quality:    report.Score,
		CapturedAt: time.Now(),
	}
	if err := d.embeddings.SaveEmbedding(ctx, &emb); err != nil {
		return fmt.Errorf("storing embedding: %w", err)
	}

	if photo := mustGetString(cmd, "photo"); photo != "" {
		if err := writeProofThumbnail(photo, args[1]); err != nil {
			fmt.Printf("Warning: proof thumbnail not written: %v\n", err)
		}
	}

	fmt.Printf("Enrolled embedding %d for %s (%s)\n", emb.ID, employee.FullName, employeeID)
	return nil
}

// writeProofThumbnail stores a resized proof photo next to the capture
// file, for the audit trail of who was standing in front of the camera.
func writeProofThumbnail(photoPath, capturePath string) error {
	data, err := os.ReadFile(photoPath)
	if err != nil {
		return fmt.Errorf("reading photo: %w", err)
	}
	thumb, err := assist.ResizeImage(data, proofThumbnailSize)
	if err != nil {
		return fmt.Errorf("resizing photo: %w", err)
	}
	out := strings.TrimSuffix(capturePath, filepath.Ext(capturePath)) + "_proof.jpg"
	if err := os.WriteFile(out, thumb, 0o644); err != nil {
		return fmt.Errorf("writing thumbnail: %w", err)
	}
	fmt.Printf("Proof thumbnail written to %s\n", out)
	return nil
}

// proofThumbnailSize bounds the longer edge of stored proof photos.
const proofThumbnailSize = 512
