// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package images

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// PNG chunk types that carry descriptive metadata. Everything else
// (IHDR, PLTE, IDAT, tRNS, gAMA, ...) is structural or visual and is kept.
var pngMetadataChunks = map[string]bool{
	"tEXt": true,
	"zTXt": true,
	"iTXt": true,
	"tIME": true,
	"eXIf": true,
}

// WebP chunks that carry descriptive metadata.
var webpMetadataChunks = map[string]bool{
	"EXIF": true,
	"XMP ": true,
}

// isJPEGMetadataMarker reports whether a JPEG marker byte identifies a
// metadata segment. APP1 through APP15 hold EXIF, XMP, IPTC, and Photoshop
// resources; COM holds free-form comments. APP0 (JFIF header) is structural
// and is kept.
func isJPEGMetadataMarker(marker byte) bool {
	return (marker >= 0xE1 && marker <= 0xEF) || marker == 0xFE
}

// stripJPEG removes every metadata segment from a JPEG payload. Pixel data
// is copied verbatim, so the strip never alters image content.
func stripJPEG(data []byte) ([]byte, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, fmt.Errorf("missing SOI marker")
	}

	out := make([]byte, 0, len(data))
	out = append(out, 0xFF, 0xD8)
	pos := 2

	for pos < len(data) {
		if data[pos] != 0xFF {
			return nil, fmt.Errorf("expected marker at offset %d", pos)
		}
		if pos+1 >= len(data) {
			return nil, fmt.Errorf("truncated marker at offset %d", pos)
		}
		marker := data[pos+1]

		// EOI: copy and finish.
		if marker == 0xD9 {
			out = append(out, 0xFF, 0xD9)
			return out, nil
		}

		// SOS: from here the entropy-coded stream runs to EOI. Copy the
		// remainder verbatim; metadata segments cannot occur inside it.
		if marker == 0xDA {
			out = append(out, data[pos:]...)
			return out, nil
		}

		// Standalone markers without a length field.
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			out = append(out, 0xFF, marker)
			pos += 2
			continue
		}

		if pos+4 > len(data) {
			return nil, fmt.Errorf("truncated segment header at offset %d", pos)
		}
		segLen := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if segLen < 2 || pos+2+segLen > len(data) {
			return nil, fmt.Errorf("invalid segment length at offset %d", pos)
		}

		if !isJPEGMetadataMarker(marker) {
			out = append(out, data[pos:pos+2+segLen]...)
		}
		pos += 2 + segLen
	}

	return nil, fmt.Errorf("unexpected end of data before SOS")
}

// countJPEGMetadata counts metadata segments in a JPEG payload.
func countJPEGMetadata(data []byte) (int, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return 0, fmt.Errorf("missing SOI marker")
	}
	count := 0
	pos := 2
	for pos+1 < len(data) {
		if data[pos] != 0xFF {
			return 0, fmt.Errorf("expected marker at offset %d", pos)
		}
		marker := data[pos+1]
		if marker == 0xD9 || marker == 0xDA {
			return count, nil
		}
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			pos += 2
			continue
		}
		if pos+4 > len(data) {
			return 0, fmt.Errorf("truncated segment header at offset %d", pos)
		}
		segLen := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if segLen < 2 || pos+2+segLen > len(data) {
			return 0, fmt.Errorf("invalid segment length at offset %d", pos)
		}
		if isJPEGMetadataMarker(marker) {
			count++
		}
		pos += 2 + segLen
	}
	return count, nil
}

// stripPNG removes metadata chunks from a PNG payload. Chunk CRCs are
// preserved untouched because kept chunks are copied whole.
func stripPNG(data []byte) ([]byte, error) {
	if len(data) < len(pngSignature) || !bytes.Equal(data[:len(pngSignature)], pngSignature) {
		return nil, fmt.Errorf("missing PNG signature")
	}

	out := make([]byte, 0, len(data))
	out = append(out, pngSignature...)
	pos := len(pngSignature)

	for pos < len(data) {
		if pos+8 > len(data) {
			return nil, fmt.Errorf("truncated chunk header at offset %d", pos)
		}
		chunkLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		chunkType := string(data[pos+4 : pos+8])
		total := 8 + chunkLen + 4 // header + data + CRC
		if pos+total > len(data) {
			return nil, fmt.Errorf("truncated %s chunk at offset %d", chunkType, pos)
		}

		if !pngMetadataChunks[chunkType] {
			out = append(out, data[pos:pos+total]...)
		}
		pos += total

		if chunkType == "IEND" {
			return out, nil
		}
	}
	return nil, fmt.Errorf("missing IEND chunk")
}

// countPNGMetadata counts metadata chunks in a PNG payload.
func countPNGMetadata(data []byte) (int, error) {
	if len(data) < len(pngSignature) || !bytes.Equal(data[:len(pngSignature)], pngSignature) {
		return 0, fmt.Errorf("missing PNG signature")
	}
	count := 0
	pos := len(pngSignature)
	for pos < len(data) {
		if pos+8 > len(data) {
			return 0, fmt.Errorf("truncated chunk header at offset %d", pos)
		}
		chunkLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		chunkType := string(data[pos+4 : pos+8])
		total := 8 + chunkLen + 4
		if pos+total > len(data) {
			return 0, fmt.Errorf("truncated %s chunk at offset %d", chunkType, pos)
		}
		if pngMetadataChunks[chunkType] {
			count++
		}
		pos += total
		if chunkType == "IEND" {
			return count, nil
		}
	}
	return 0, fmt.Errorf("missing IEND chunk")
}

// stripWebP removes EXIF and XMP chunks from a WebP payload, rewrites the
// RIFF size, and clears the corresponding feature bits in the VP8X header
// when present.
func stripWebP(data []byte) ([]byte, error) {
	if len(data) < 12 || !bytes.Equal(data[:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WEBP")) {
		return nil, fmt.Errorf("missing RIFF/WEBP header")
	}

	out := make([]byte, 0, len(data))
	out = append(out, data[:12]...)
	pos := 12

	for pos < len(data) {
		if pos+8 > len(data) {
			return nil, fmt.Errorf("truncated chunk header at offset %d", pos)
		}
		chunkType := string(data[pos : pos+4])
		chunkLen := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		padded := chunkLen + chunkLen%2
		if pos+8+padded > len(data) {
			return nil, fmt.Errorf("truncated %s chunk at offset %d", chunkType, pos)
		}

		if !webpMetadataChunks[chunkType] {
			chunk := data[pos : pos+8+padded]
			if chunkType == "VP8X" && chunkLen >= 1 {
				// Clear the EXIF (0x08) and XMP (0x04) feature flags so the
				// header stays consistent with the removed chunks.
				chunk = append([]byte(nil), chunk...)
				chunk[8] &^= 0x08 | 0x04
			}
			out = append(out, chunk...)
		}
		pos += 8 + padded
	}

	// Rewrite the RIFF size to cover the rewritten payload.
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))
	return out, nil
}

// countWebPMetadata counts metadata chunks in a WebP payload.
func countWebPMetadata(data []byte) (int, error) {
	if len(data) < 12 || !bytes.Equal(data[:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WEBP")) {
		return 0, fmt.Errorf("missing RIFF/WEBP header")
	}
	count := 0
	pos := 12
	for pos < len(data) {
		if pos+8 > len(data) {
			return 0, fmt.Errorf("truncated chunk header at offset %d", pos)
		}
		chunkType := string(data[pos : pos+4])
		chunkLen := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		padded := chunkLen + chunkLen%2
		if pos+8+padded > len(data) {
			return 0, fmt.Errorf("truncated %s chunk at offset %d", chunkType, pos)
		}
		if webpMetadataChunks[chunkType] {
			count++
		}
		pos += 8 + padded
	}
	return count, nil
}
