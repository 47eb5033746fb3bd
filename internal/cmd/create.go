package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"crptapi/internal/models"
	"crptapi/internal/version"
)

func newCreateCommand(opts *options, ver version.Info) *cobra.Command {
	var (
		format        string
		group         string
		document      string
		documentFile  string
		signature     string
		signatureFile string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an introduction-into-circulation document",
		Example: `  crptapi create --group clothes --format csv --document-file goods.csv --signature-file goods.sig
  cat goods.json | crptapi create --group shoes --document-file - --signature "$(cat goods.sig)"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			docFormat, err := models.ParseDocumentFormat(format)
			if err != nil {
				return err
			}
			if documentFile == "-" && signatureFile == "-" {
				return errors.New("only one of --document-file and --signature-file can read stdin")
			}
			body, err := readSource(document, documentFile, cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("product document: %w", err)
			}
			sig, err := readSource(signature, signatureFile, cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("signature: %w", err)
			}
			if strings.TrimSpace(sig) == "" {
				return errors.New("a signature is required (--signature or --signature-file)")
			}

			doc := models.Document{Format: docFormat, ProductGroup: group, ProductDocument: body}
			if err := doc.Validate(); err != nil {
				return err
			}

			rt, err := opts.bootstrap(ver)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			id, err := rt.client.CreateDocument(ctx, doc, sig)
			if err != nil {
				return err
			}

			rec := models.NewDocumentRecord(id.Value, doc)
			if err := rt.journal.SaveDocument(ctx, rec); err != nil {
				rt.logger.Warn("Document created but not journaled", "document_id", id.Value, "error", err)
			}

			return printResult(cmd.OutOrStdout(), opts.output, rec, func() string {
				return "Document created: " + id.Value
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", models.FormatManual.Format, "document format: MANUAL, CSV, XML")
	cmd.Flags().StringVarP(&group, "group", "g", "", "product group (clothes, shoes, tobacco, ...)")
	cmd.Flags().StringVar(&document, "document", "", "product document body")
	cmd.Flags().StringVar(&documentFile, "document-file", "", "read the product document from a file (- for stdin)")
	cmd.Flags().StringVar(&signature, "signature", "", "detached signature of the document")
	cmd.Flags().StringVar(&signatureFile, "signature-file", "", "read the signature from a file (- for stdin)")
	_ = cmd.MarkFlagRequired("group")

	return cmd
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
