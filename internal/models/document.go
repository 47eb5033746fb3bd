// Package models - documents submitted to the national labelling system.
//
// Only the "introduction into circulation of goods produced in Russia"
// document is supported. Its body (ProductDocument) is built by the caller
// and passed through untouched, together with a detached signature.
package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DocumentFormat pairs the body encoding with the document type code the API
// expects for that encoding.
type DocumentFormat struct {
	Format string `yaml:"format" json:"format"`
	Type   string `yaml:"type" json:"type"`
}

// Introduction document formats.
var (
	FormatManual = DocumentFormat{Format: "MANUAL", Type: "LP_INTRODUCE_GOODS"}
	FormatCSV    = DocumentFormat{Format: "CSV", Type: "LP_INTRODUCE_GOODS_CSV"}
	FormatXML    = DocumentFormat{Format: "XML", Type: "LP_INTRODUCE_GOODS_XML"}
)

var documentFormats = []DocumentFormat{FormatManual, FormatCSV, FormatXML}

// ParseDocumentFormat resolves a format name (MANUAL, CSV, XML) case-insensitively.
func ParseDocumentFormat(name string) (DocumentFormat, error) {
	for _, f := range documentFormats {
		if strings.EqualFold(f.Format, strings.TrimSpace(name)) {
			return f, nil
		}
	}
	return DocumentFormat{}, fmt.Errorf("unknown document format: %q", name)
}

func (f DocumentFormat) String() string {
	return f.Format + "/" + f.Type
}

// Product groups
const (
	ProductGroupClothes     = "clothes"
	ProductGroupShoes       = "shoes"
	ProductGroupTobacco     = "tobacco"
	ProductGroupPerfumery   = "perfumery"
	ProductGroupTires       = "tires"
	ProductGroupElectronics = "electronics"
	ProductGroupPharma      = "pharma"
	ProductGroupMilk        = "milk"
	ProductGroupBicycles    = "bicycles"
	ProductGroupWheelchairs = "wheelchairs"
)

// ProductGroups lists every product group the API accepts.
var ProductGroups = []string{
	ProductGroupClothes,
	ProductGroupShoes,
	ProductGroupTobacco,
	ProductGroupPerfumery,
	ProductGroupTires,
	ProductGroupElectronics,
	ProductGroupPharma,
	ProductGroupMilk,
	ProductGroupBicycles,
	ProductGroupWheelchairs,
}

// ErrInvalidDocument is wrapped by every Document validation failure.
var ErrInvalidDocument = errors.New("invalid document")

// Document is an introduction-into-circulation document.
type Document struct {
	Format          DocumentFormat `yaml:"format" json:"format"`
	ProductGroup    string         `yaml:"product_group" json:"product_group"`
	ProductDocument string         `yaml:"product_document" json:"product_document"`
}

func (d *Document) Validate() error {
	if !slices.Contains(documentFormats, d.Format) {
		return fmt.Errorf("%w: unknown format %s", ErrInvalidDocument, d.Format)
	}
	if !slices.Contains(ProductGroups, d.ProductGroup) {
		return fmt.Errorf("%w: unknown product group %q", ErrInvalidDocument, d.ProductGroup)
	}
	if d.ProductDocument == "" {
		return fmt.Errorf("%w: product document is empty", ErrInvalidDocument)
	}
	return nil
}

// CreateDocumentRequest is the wire body of the document creation call.
type CreateDocumentRequest struct {
	DocumentFormat  string `json:"document_format"`
	ProductDocument string `json:"product_document"`
	ProductGroup    string `json:"product_group"`
	Type            string `json:"type"`
	Signature       string `json:"signature"`
}

// NewCreateDocumentRequest prepares the wire body for doc.
func NewCreateDocumentRequest(doc Document, signature string) CreateDocumentRequest {
	return CreateDocumentRequest{
		DocumentFormat:  doc.Format.Format,
		ProductDocument: doc.ProductDocument,
		ProductGroup:    doc.ProductGroup,
		Type:            doc.Format.Type,
		Signature:       signature,
	}
}

// DocumentID is returned by the API for a created document.
type DocumentID struct {
	Value string `json:"value"`
}

// DocumentRecord is a journal entry for a document this client created.
type DocumentRecord struct {
	ID           string    `json:"id"`
	Format       string    `json:"format"`
	Type         string    `json:"type"`
	ProductGroup string    `json:"product_group"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewDocumentRecord builds a journal entry for a created document.
func NewDocumentRecord(id string, doc Document) *DocumentRecord {
	return &DocumentRecord{
		ID:           id,
		Format:       doc.Format.Format,
		Type:         doc.Format.Type,
		ProductGroup: doc.ProductGroup,
		CreatedAt:    time.Now().UTC(),
	}
}
