// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
)

// System renders CLI help with consistent coloring.
type System struct {
	noColor bool
	colors  map[string]*color.Color
}

// NewSystem creates a new help system
func NewSystem(noColor bool) *System {
	if noColor {
		color.NoColor = true
	}

	return &System{
		noColor: noColor,
		colors: map[string]*color.Color{
			"title":   color.New(color.FgWhite, color.Bold),
			"header":  color.New(color.FgBlue, color.Bold),
			"example": color.New(color.FgMagenta),
			"warning": color.New(color.FgYellow),
		},
	}
}

// ShowGeneralHelp displays general help information
func (h *System) ShowGeneralHelp() {
	h.colors["title"].Println("Anubis Dossier - Document Assembly & Security Enforcement")
	fmt.Println("=========================================================")
	fmt.Println()
	h.colors["header"].Println("USAGE:")
	fmt.Println("  anubis-dossier --record <path-to-record> [options]")
	fmt.Println("  anubis-dossier [options] <record>...")
	fmt.Println("  anubis-dossier --inspect <path-to-pdf>")
	fmt.Println()

	h.colors["header"].Println("OPTIONS:")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  --record\t<path>\tPath to an intelligence record file (YAML); may be repeated via positional arguments")
	fmt.Fprintln(w, "  --config\t<path>\tPath to configuration file (YAML)")
	fmt.Fprintln(w, "  --output\t<path>\tDirectory where assembled dossiers are written (default: ./dossiers)")
	fmt.Fprintln(w, "  --audit-log\t<path>\tPath to the audit trail file (JSON lines)")
	fmt.Fprintln(w, "  --encrypt\t\tEncrypt assembled dossiers (prompts for a password if none is configured)")
	fmt.Fprintln(w, "  --inspect\t<path>\tExtract and print text from an assembled dossier, then exit")
	fmt.Fprintln(w, "  --verbose\t\tDisplay per-stage progress and audit events on stderr")
	fmt.Fprintln(w, "  --quiet\t\tSuppress progress output (useful for scripts and CI/CD)")
	fmt.Fprintln(w, "  --no-color\t\tDisable colored output")
	fmt.Fprintln(w, "  --version\t\tShow version information")
	fmt.Fprintln(w, "  --help\t\tShow this help message")
	w.Flush()

	fmt.Println()
	h.colors["header"].Println("EXAMPLES:")
	fmt.Println("  Basic Usage:")
	h.colors["example"].Println("    anubis-dossier --record incident-0042.yaml")
	h.colors["example"].Println("    anubis-dossier --record incident-0042.yaml --output ./dossiers --verbose")
	fmt.Println("  Batch Assembly:")
	h.colors["example"].Println("    anubis-dossier --config anubis.yaml records/*.yaml")
	fmt.Println("  Encryption and Audit:")
	h.colors["example"].Println("    anubis-dossier --record incident-0042.yaml --encrypt --audit-log audit.jsonl")
	fmt.Println("  Inspection:")
	h.colors["example"].Println("    anubis-dossier --inspect dossiers/INC-2026-0042-1a2b3c4d.pdf")

	fmt.Println()
	h.colors["header"].Println("CONFIGURATION:")
	fmt.Println("  Default config: ~/.anubis-dossier/config.yaml")
	fmt.Println("  Project config: anubis.yaml or .anubis-dossier.yaml (in current directory)")
	fmt.Println("  Environment: ANUBIS_CONFIG_DIR - Override config directory")
}
