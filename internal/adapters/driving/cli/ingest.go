package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driving"
)

var (
	ingestUser    string
	ingestGlobal  bool
	ingestDisease string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a medical document",
	Long: `Extracts, chunks and indexes a document.

With --user the file is a personal medical record and is only retrieved
for that user. With --global the file is a reference document shared by
every user and must name the disease it covers.

Supported formats: PDF (requires pdftotext), DOCX, Markdown and plain text.

Examples:
  pulseiq ingest --user alice labs-2024.pdf
  pulseiq ingest --global --disease "Type 2 Diabetes" diabetes-guide.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestUser, "user", "u", "", "user whose record this is")
	ingestCmd.Flags().BoolVarP(&ingestGlobal, "global", "g", false, "ingest as a shared reference document")
	ingestCmd.Flags().StringVarP(&ingestDisease, "disease", "d", "", "disease covered by a global document")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if (ingestUser == "") == !ingestGlobal {
		return errors.New("exactly one of --user or --global is required")
	}
	if ingestGlobal && ingestDisease == "" {
		return errors.New("--disease is required with --global")
	}

	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	raw := &domain.RawDocument{
		FileName: filepath.Base(path),
		Content:  content,
	}

	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	var result *driving.IngestResult
	if ingestGlobal {
		result, err = svc.Ingestion.IngestGlobalDocument(cmd.Context(), ingestDisease, raw)
	} else {
		result, err = svc.Ingestion.IngestUserRecord(cmd.Context(), ingestUser, raw)
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Ingested %s into %s: %d chunks (document %s)\n",
		raw.FileName, result.Scope, result.ChunksAdded, result.DocumentID)
	return nil
}
