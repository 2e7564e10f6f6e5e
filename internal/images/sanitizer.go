// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package images sanitizes image attachments before they are embedded in a
// dossier. Sanitization is container-level: metadata segments are removed
// from the file structure without re-encoding pixel data, and the output is
// re-parsed to confirm that zero metadata segments remain.
package images

import (
	"bytes"
	"fmt"

	"github.com/rwcarlsen/goexif/exif"

	"anubis-dossier/internal/record"
)

// DefaultMaxBytes is the default payload size ceiling.
const DefaultMaxBytes = 50 * 1024 * 1024

// Format is a supported image container format.
type Format int

const (
	FormatUnknown Format = iota
	FormatJPEG
	FormatPNG
	FormatWebP
)

// String returns the canonical MIME type for the format.
func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	default:
		return "unknown"
	}
}

// ErrorKind classifies an image processing failure.
type ErrorKind int

const (
	ErrBadSignature ErrorKind = iota
	ErrMIMEMismatch
	ErrTooLarge
	ErrMalformed
	ErrResidualMetadata
)

// String returns the error kind label.
func (k ErrorKind) String() string {
	switch k {
	case ErrBadSignature:
		return "bad_signature"
	case ErrMIMEMismatch:
		return "mime_mismatch"
	case ErrTooLarge:
		return "too_large"
	case ErrMalformed:
		return "malformed"
	case ErrResidualMetadata:
		return "residual_metadata"
	default:
		return "unknown"
	}
}

// ProcessingError reports why an image was rejected. The failed image is
// excluded from the document; the pipeline run continues.
type ProcessingError struct {
	Name    string
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("image %q rejected (%s): %s: %v", e.Name, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("image %q rejected (%s): %s", e.Name, e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ProcessingError) Unwrap() error { return e.Cause }

// Recoverable reports whether the caller may continue without this image.
// Image rejections never abort a run; the image is excluded and the
// exclusion is audited.
func (e *ProcessingError) Recoverable() bool { return true }

// Sanitizer strips metadata from image payloads and enforces format and
// size constraints.
type Sanitizer struct {
	maxBytes      int64
	stripMetadata bool
}

// NewSanitizer creates a Sanitizer with the given size ceiling. A
// non-positive ceiling falls back to DefaultMaxBytes. stripMetadata is the
// EXIF-stripping configuration switch; when disabled, images still go
// through signature and size checks but metadata segments are left alone.
func NewSanitizer(maxBytes int64, stripMetadata bool) *Sanitizer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Sanitizer{maxBytes: maxBytes, stripMetadata: stripMetadata}
}

// DetectFormat identifies the container format from the byte signature.
func DetectFormat(data []byte) Format {
	switch {
	case len(data) >= 3 && bytes.Equal(data[:3], []byte{0xFF, 0xD8, 0xFF}):
		return FormatJPEG
	case len(data) >= 8 && bytes.Equal(data[:8], pngSignature):
		return FormatPNG
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return FormatWebP
	default:
		return FormatUnknown
	}
}

// Sanitize verifies the asset's signature, declared type, and size, strips
// every metadata segment, and re-parses the output to confirm none remain.
// On any failure the original asset is unusable and a ProcessingError is
// returned.
func (s *Sanitizer) Sanitize(asset record.ImageAsset) (record.ImageAsset, error) {
	format := DetectFormat(asset.Data)
	if format == FormatUnknown {
		return record.ImageAsset{}, &ProcessingError{
			Name: asset.Name, Kind: ErrBadSignature,
			Message: "byte signature does not match any allowed format",
		}
	}
	if asset.DeclaredMIME != "" && asset.DeclaredMIME != format.String() {
		return record.ImageAsset{}, &ProcessingError{
			Name: asset.Name, Kind: ErrMIMEMismatch,
			Message: fmt.Sprintf("declared type %s but signature is %s", asset.DeclaredMIME, format),
		}
	}
	if int64(len(asset.Data)) > s.maxBytes {
		return record.ImageAsset{}, &ProcessingError{
			Name: asset.Name, Kind: ErrTooLarge,
			Message: fmt.Sprintf("payload is %d bytes, ceiling is %d", len(asset.Data), s.maxBytes),
		}
	}

	out := asset.Data
	if s.stripMetadata {
		var err error
		switch format {
		case FormatJPEG:
			out, err = stripJPEG(asset.Data)
		case FormatPNG:
			out, err = stripPNG(asset.Data)
		case FormatWebP:
			out, err = stripWebP(asset.Data)
		}
		if err != nil {
			return record.ImageAsset{}, &ProcessingError{
				Name: asset.Name, Kind: ErrMalformed,
				Message: "metadata strip failed", Cause: err,
			}
		}

		// Re-parse the stripped output. A non-zero count here means the
		// strip was incomplete and the image must not be embedded.
		if err := s.verifyClean(format, out); err != nil {
			return record.ImageAsset{}, &ProcessingError{
				Name: asset.Name, Kind: ErrResidualMetadata,
				Message: "sanitized output still carries metadata", Cause: err,
			}
		}
	}

	return record.ImageAsset{
		Name:         asset.Name,
		DeclaredMIME: format.String(),
		Data:         out,
	}, nil
}

// SanitizeAll processes each asset independently. Failed images are
// dropped; their errors are returned alongside the survivors so the caller
// can audit every exclusion.
func (s *Sanitizer) SanitizeAll(assets []record.ImageAsset) ([]record.ImageAsset, []error) {
	var clean []record.ImageAsset
	var errs []error
	for _, asset := range assets {
		sanitized, err := s.Sanitize(asset)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		clean = append(clean, sanitized)
	}
	return clean, errs
}

// verifyClean confirms the sanitized bytes carry zero metadata segments,
// both by the package's own segment scan and, for JPEG, by an independent
// EXIF decode that must find nothing.
func (s *Sanitizer) verifyClean(format Format, data []byte) error {
	count, err := CountMetadataSegments(format, data)
	if err != nil {
		return err
	}
	if count != 0 {
		return fmt.Errorf("%d metadata segments remain after strip", count)
	}
	if format == FormatJPEG {
		if _, err := exif.Decode(bytes.NewReader(data)); err == nil {
			return fmt.Errorf("EXIF block still decodable after strip")
		}
	}
	return nil
}

// CountMetadataSegments re-parses data and counts the metadata segments
// present for the given format.
func CountMetadataSegments(format Format, data []byte) (int, error) {
	switch format {
	case FormatJPEG:
		return countJPEGMetadata(data)
	case FormatPNG:
		return countPNGMetadata(data)
	case FormatWebP:
		return countWebPMetadata(data)
	default:
		return 0, fmt.Errorf("unsupported format")
	}
}
