// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package render turns structured documents into finished PDF artifacts:
// page layout, classification banners, watermarking, and encryption.
package render

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"anubis-dossier/internal/images"
	"anubis-dossier/internal/paths"
	"anubis-dossier/internal/record"
)

// A4 portrait layout in points, origin at the upper left.
const (
	pageWidth  = 595.0
	pageHeight = 842.0

	marginLeft   = 56.0
	bodyTop      = 72.0
	bodyLeading  = 12.0
	linesPerPage = 58
	wrapColumns  = 92

	bannerFontSize = 11
	bodyFontSize   = 9

	imageFrameWidth = 460.0
)

// PDFRenderer assembles structured documents into PDF bytes.
type PDFRenderer struct {
	tempDir string
	conf    *model.Configuration
}

// NewPDFRenderer creates a renderer. Embedded images are staged in tempDir;
// an empty tempDir uses the platform temporary directory.
func NewPDFRenderer(tempDir string) *PDFRenderer {
	if tempDir == "" {
		tempDir = paths.GetTempDir()
	}
	return &PDFRenderer{
		tempDir: tempDir,
		conf:    model.NewDefaultConfiguration(),
	}
}

// Render produces the PDF artifact for a structured document and its
// sanitized images. Every page carries the classification banner top and
// bottom and the diagonal marking watermark.
func (r *PDFRenderer) Render(doc *record.StructuredDocument, imgs []record.ImageAsset) (*record.RenderedArtifact, error) {
	pages, cleanup, err := r.buildPages(doc, imgs)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return nil, &Error{Op: "layout", Message: "building page description", Cause: err}
	}

	desc := createDoc{
		Paper:  "A4",
		Origin: "upperLeft",
		Pages:  pages,
	}
	descJSON, err := json.Marshal(desc)
	if err != nil {
		return nil, &Error{Op: "layout", Message: "encoding page description", Cause: err}
	}

	var created bytes.Buffer
	if err := api.Create(nil, bytes.NewReader(descJSON), &created, r.conf); err != nil {
		return nil, &Error{Op: "create", Message: "assembling PDF pages", Cause: err}
	}

	stamped, err := r.applyWatermark(created.Bytes(), doc.Watermark)
	if err != nil {
		return nil, err
	}

	ctx, err := api.ReadContext(bytes.NewReader(stamped), r.conf)
	if err != nil {
		return nil, &Error{Op: "validate", Message: "reading assembled PDF", Cause: err}
	}

	sum := sha256.Sum256(stamped)
	return &record.RenderedArtifact{
		Data:   stamped,
		SHA256: hex.EncodeToString(sum[:]),
		Pages:  ctx.PageCount,
	}, nil
}

// applyWatermark stamps the diagonal marking watermark on every page.
func (r *PDFRenderer) applyWatermark(data []byte, text string) ([]byte, error) {
	wm, err := api.TextWatermark(text, "font:Helvetica, points:22, op:.12, rot:45, fillcolor:#606060", true, false, types.POINTS)
	if err != nil {
		return nil, &Error{Op: "watermark", Message: "building watermark", Cause: err}
	}

	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(data), &out, nil, wm, r.conf); err != nil {
		return nil, &Error{Op: "watermark", Message: "stamping watermark", Cause: err}
	}
	return out.Bytes(), nil
}

// buildPages lays out the document body and image plates into page
// descriptions. The returned cleanup removes staged image files and must be
// called even on error.
func (r *PDFRenderer) buildPages(doc *record.StructuredDocument, imgs []record.ImageAsset) (map[string]createPage, func(), error) {
	lines := bodyLines(doc)
	chunks := paginate(lines, linesPerPage)
	if len(chunks) == 0 {
		chunks = [][]string{{""}}
	}

	pages := make(map[string]createPage, len(chunks)+len(imgs))
	for i, chunk := range chunks {
		pages[strconv.Itoa(i+1)] = textPage(doc, chunk)
	}

	var staged []string
	cleanup := func() {
		for _, p := range staged {
			os.Remove(p)
		}
	}

	pageNum := len(chunks)
	for i, img := range imgs {
		path, err := r.stageImage(img)
		if err != nil {
			return pages, cleanup, err
		}
		staged = append(staged, path)

		pageNum++
		pages[strconv.Itoa(pageNum)] = imagePage(doc, fmt.Sprintf("EXHIBIT %d — %s", i+1, img.Name), path)
	}

	return pages, cleanup, nil
}

// stageImage writes sanitized image bytes to a temp file so the page
// description can reference it by path.
func (r *PDFRenderer) stageImage(img record.ImageAsset) (string, error) {
	format := images.DetectFormat(img.Data)
	if format == images.FormatUnknown {
		return "", &Error{Op: "stage", Message: "unrecognized image payload for " + img.Name}
	}

	f, err := os.CreateTemp(r.tempDir, "dossier-img-*"+formatExtension(format))
	if err != nil {
		return "", &Error{Op: "stage", Message: "creating temp image file", Cause: err}
	}
	if _, err := f.Write(img.Data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", &Error{Op: "stage", Message: "writing temp image file", Cause: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", &Error{Op: "stage", Message: "closing temp image file", Cause: err}
	}
	return filepath.Clean(f.Name()), nil
}

func formatExtension(f images.Format) string {
	switch f {
	case images.FormatJPEG:
		return ".jpg"
	case images.FormatPNG:
		return ".png"
	case images.FormatWebP:
		return ".webp"
	}
	return ".bin"
}

// textPage builds one body page with banners top and bottom.
func textPage(doc *record.StructuredDocument, lines []string) createPage {
	return createPage{
		Content: createContent{
			Text: []textElement{
				bannerElement(doc, 30),
				{
					Value:    strings.Join(lines, "\n"),
					Font:     fontSpec{Name: "Courier", Size: bodyFontSize},
					Position: [2]float64{marginLeft, bodyTop},
				},
				bannerElement(doc, pageHeight-24),
			},
		},
	}
}

// imagePage builds one exhibit page: banners, caption, and the image plate.
func imagePage(doc *record.StructuredDocument, caption, imgPath string) createPage {
	return createPage{
		Content: createContent{
			Text: []textElement{
				bannerElement(doc, 30),
				{
					Value:    caption,
					Font:     fontSpec{Name: "Helvetica-Bold", Size: 10},
					Position: [2]float64{marginLeft, bodyTop},
				},
				bannerElement(doc, pageHeight-24),
			},
			Image: []imageElement{
				{
					Src:      imgPath,
					Position: [2]float64{(pageWidth - imageFrameWidth) / 2, bodyTop + 30},
					Width:    imageFrameWidth,
				},
			},
		},
	}
}

func bannerElement(doc *record.StructuredDocument, y float64) textElement {
	banner := doc.Banner
	if doc.CaveatLine != "" {
		banner = banner + " // " + doc.CaveatLine
	}
	return textElement{
		Value:     banner,
		Font:      fontSpec{Name: "Helvetica-Bold", Size: bannerFontSize},
		Position:  [2]float64{marginLeft, y},
		FillColor: "#8B0000",
	}
}

// bodyLines renders the document into wrapped text lines: cover block,
// enrichment summary, then every section in canonical order.
func bodyLines(doc *record.StructuredDocument) []string {
	var lines []string
	add := func(s string) {
		lines = append(lines, wrap(s, wrapColumns)...)
	}

	add("INTELLIGENCE DOSSIER")
	add("CONTROL NUMBER: " + doc.ControlNumber)
	add("RECORD: " + doc.RecordID)
	add("SUBJECT: " + doc.TargetName)
	if len(doc.Aliases) > 0 {
		add("ALIASES: " + strings.Join(doc.Aliases, "; "))
	}
	add("")
	add(doc.Declassification)
	add(doc.Distribution)
	add("")

	for _, section := range doc.Sections {
		add(strings.ToUpper(section.Title))
		add(strings.Repeat("-", len(section.Title)))
		for _, bodyLine := range strings.Split(section.Body, "\n") {
			add(bodyLine)
		}
		add("")
	}

	if doc.RedactionCount > 0 {
		add(fmt.Sprintf("This document contains %d redacted passage(s).", doc.RedactionCount))
	}
	return lines
}

// paginate splits lines into per-page chunks.
func paginate(lines []string, perPage int) [][]string {
	var chunks [][]string
	for len(lines) > 0 {
		n := perPage
		if n > len(lines) {
			n = len(lines)
		}
		chunks = append(chunks, lines[:n])
		lines = lines[n:]
	}
	return chunks
}

// wrap breaks a line at word boundaries to fit the body column width.
func wrap(s string, width int) []string {
	if len(s) <= width {
		return []string{s}
	}

	var out []string
	words := strings.Fields(s)
	var current strings.Builder
	for _, word := range words {
		if current.Len() > 0 && current.Len()+1+len(word) > width {
			out = append(out, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		out = append(out, current.String())
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}

// pdfcpu create JSON page description structures.

type createDoc struct {
	Paper  string                `json:"paper"`
	Origin string                `json:"origin"`
	Pages  map[string]createPage `json:"pages"`
}

type createPage struct {
	Content createContent `json:"content"`
}

type createContent struct {
	Text  []textElement  `json:"text,omitempty"`
	Image []imageElement `json:"image,omitempty"`
}

type textElement struct {
	Value     string     `json:"value"`
	Font      fontSpec   `json:"font"`
	Position  [2]float64 `json:"position"`
	FillColor string     `json:"fillColor,omitempty"`
}

type fontSpec struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type imageElement struct {
	Src      string     `json:"src"`
	Position [2]float64 `json:"position"`
	Width    float64    `json:"width,omitempty"`
}
