// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractText pulls the plain text out of a rendered, unencrypted PDF.
// Used to verify that no redacted content leaked into the artifact.
func ExtractText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &Error{Op: "inspect", Message: "opening PDF", Cause: err}
	}

	var out strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not fail inspection.
			continue
		}
		out.WriteString(text)
		out.WriteString("\n")
	}
	return out.String(), nil
}

// ContainsText reports whether the artifact's extracted text contains the
// given needle. Whitespace differences from layout are ignored.
func ContainsText(data []byte, needle string) (bool, error) {
	text, err := ExtractText(data)
	if err != nil {
		return false, err
	}
	return strings.Contains(collapseSpace(text), collapseSpace(needle)), nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
