package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"crptapi/internal/crpt"
	"crptapi/internal/models"
	"crptapi/internal/version"
)

// batchFile is the YAML layout read by the batch command. Relative file
// paths are resolved against the batch file's directory.
type batchFile struct {
	Documents []batchEntry `yaml:"documents"`
}

type batchEntry struct {
	Format              string `yaml:"format"`
	ProductGroup        string `yaml:"product_group"`
	ProductDocument     string `yaml:"product_document"`
	ProductDocumentFile string `yaml:"product_document_file"`
	Signature           string `yaml:"signature"`
	SignatureFile       string `yaml:"signature_file"`
}

type batchItem struct {
	doc       models.Document
	signature string
}

// batchResult is the outcome of one batch entry.
type batchResult struct {
	Index      int    `json:"index"`
	DocumentID string `json:"document_id,omitempty"`
	Error      string `json:"error,omitempty"`
	Status     int    `json:"status,omitempty"`
}

func newBatchCommand(opts *options, ver version.Info) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Create every document listed in a YAML batch file",
		Long: `Create every document listed in a YAML batch file.

Workers share the client, so the configured rate limit applies to the whole
batch and at most one handshake runs at a time. A failing document does not
stop the others; the command fails if any document failed.`,
		Example: `  documents:
    - format: CSV
      product_group: clothes
      product_document_file: goods.csv
      signature_file: goods.csv.sig`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if concurrency < 1 {
				return errors.New("concurrency must be at least 1")
			}

			items, err := readBatchFile(args[0])
			if err != nil {
				return err
			}

			rt, err := opts.bootstrap(ver)
			if err != nil {
				return err
			}
			defer rt.Close()

			startedAt := time.Now()
			results, failed, interrupted := runBatch(cmd.Context(), rt, items, concurrency)
			rt.logger.Info("Batch finished",
				"documents", len(items),
				"failed", failed,
				"duration", time.Since(startedAt).Round(time.Millisecond),
			)

			if err := printResult(cmd.OutOrStdout(), opts.output, results, func() string {
				return renderBatch(results)
			}); err != nil {
				return err
			}
			if interrupted != nil {
				return interrupted
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed", failed, len(items))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "number of concurrent workers")
	return cmd
}

// runBatch submits items with at most concurrency calls in flight. Results
// are returned in input order. An interruption stops scheduling further
// documents and is returned as the last value.
func runBatch(ctx context.Context, rt *runtime, items []batchItem, concurrency int) ([]batchResult, int, error) {
	results := make([]batchResult, len(items))
	for i := range results {
		results[i].Index = i
	}
	var failed atomic.Int32

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, item := range items {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// g.Go may have waited for a free worker; leave the item skipped
			// if the batch was interrupted meanwhile.
			if ctx.Err() != nil {
				return nil
			}
			res := batchResult{Index: i}
			id, err := rt.client.CreateDocument(ctx, item.doc, item.signature)
			if err != nil {
				failed.Add(1)
				res.Error = err.Error()
				if code := crpt.StatusCode(err); code != crpt.NoStatus {
					res.Status = code
				}
				results[i] = res
				// Only an interrupted caller stops the batch.
				if crpt.IsKind(err, crpt.KindInterrupted) {
					return err
				}
				return nil
			}

			res.DocumentID = id.Value
			results[i] = res
			if err := rt.journal.SaveDocument(ctx, models.NewDocumentRecord(id.Value, item.doc)); err != nil {
				rt.logger.Warn("Document created but not journaled", "document_id", id.Value, "error", err)
			}
			return nil
		})
	}
	err := g.Wait()

	return results, int(failed.Load()), err
}

func renderBatch(results []batchResult) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Result", "Detail"})

	created := 0
	for _, res := range results {
		switch {
		case res.DocumentID != "":
			created++
			t.AppendRow(table.Row{res.Index + 1, "created", res.DocumentID})
		case res.Error != "":
			t.AppendRow(table.Row{res.Index + 1, "failed", res.Error})
		default:
			t.AppendRow(table.Row{res.Index + 1, "skipped", ""})
		}
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d/%d created", created, len(results))})
	return t.Render()
}

func readBatchFile(path string) ([]batchItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var file batchFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse batch file: %w", err)
	}
	if len(file.Documents) == 0 {
		return nil, errors.New("no documents found in batch file")
	}

	dir := filepath.Dir(path)
	items := make([]batchItem, 0, len(file.Documents))
	for i, entry := range file.Documents {
		item, err := entry.resolve(dir)
		if err != nil {
			return nil, fmt.Errorf("document #%d: %w", i+1, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (e batchEntry) resolve(dir string) (batchItem, error) {
	name := e.Format
	if name == "" {
		name = models.FormatManual.Format
	}
	format, err := models.ParseDocumentFormat(name)
	if err != nil {
		return batchItem{}, err
	}
	if e.ProductDocumentFile == "-" || e.SignatureFile == "-" {
		return batchItem{}, errors.New("batch entries cannot read stdin")
	}

	body, err := readSource(e.ProductDocument, relativeTo(dir, e.ProductDocumentFile), nil)
	if err != nil {
		return batchItem{}, fmt.Errorf("product document: %w", err)
	}
	sig, err := readSource(e.Signature, relativeTo(dir, e.SignatureFile), nil)
	if err != nil {
		return batchItem{}, fmt.Errorf("signature: %w", err)
	}
	if strings.TrimSpace(sig) == "" {
		return batchItem{}, errors.New("signature is required")
	}

	doc := models.Document{Format: format, ProductGroup: e.ProductGroup, ProductDocument: body}
	if err := doc.Validate(); err != nil {
		return batchItem{}, err
	}
	return batchItem{doc: doc, signature: sig}, nil
}

func relativeTo(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
