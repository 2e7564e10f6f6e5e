// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"anubis-dossier/internal/audit"
	"anubis-dossier/internal/config"
	"anubis-dossier/internal/help"
	"anubis-dossier/internal/pipeline"
	"anubis-dossier/internal/record"
	"anubis-dossier/internal/render"
	"anubis-dossier/internal/security"
	"anubis-dossier/internal/version"
)

func main() {
	recordFile := flag.String("record", "", "Path to a record file (YAML); additional record files may follow as positional arguments")
	configFile := flag.String("config", "", "Path to configuration file (YAML)")
	outputDir := flag.String("output", "", "Directory where assembled dossiers are written (overrides config)")
	auditLog := flag.String("audit-log", "", "Path to append the audit trail (JSON lines); empty writes to stderr in verbose mode")
	encrypt := flag.Bool("encrypt", false, "Encrypt assembled documents (prompts for a password if none is configured)")
	inspectFile := flag.String("inspect", "", "Extract and print the plain text of an assembled PDF, then exit")
	verbose := flag.Bool("verbose", false, "Display per-stage detail for each record")
	quiet := flag.Bool("quiet", false, "Suppress progress output (useful for scripts and CI/CD)")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Usage = func() {
		help.NewSystem(*noColor).ShowGeneralHelp()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	if *noColor {
		color.NoColor = true
	}

	if *inspectFile != "" {
		if err := runInspect(*inspectFile); err != nil {
			fatal(err)
		}
		return
	}

	recordPaths := collectRecordPaths(*recordFile, flag.Args())
	if len(recordPaths) == 0 {
		fmt.Fprintln(os.Stderr, "no record files given; use -record or positional arguments")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfigOrDefault(*configFile)
	if err != nil {
		fatal(err)
	}
	applyFlagOverrides(cfg, *outputDir, *encrypt, *verbose)

	password := security.NewSecret(cfg.Security.UserPassword)
	if cfg.Security.EncryptionEnabled && !password.IsSet() {
		pw, err := promptPassword()
		if err != nil {
			fatal(fmt.Errorf("reading password: %w", err))
		}
		password = security.NewSecret(pw)
	}
	cfg.Security.UserPassword = password.String()
	defer password.Clear()
	if err := config.ValidateConfig(cfg); err != nil {
		fatal(err)
	}

	auditWriter, closeAudit, err := openAuditWriter(cfg, *auditLog, *verbose)
	if err != nil {
		fatal(err)
	}
	defer closeAudit()

	recorder := audit.NewRecorder(auditWriter)
	p := pipeline.New(cfg, recorder)

	records, err := loadRecords(recordPaths)
	if err != nil {
		fatal(err)
	}

	results := p.BatchRun(records)
	failed := reportResults(results, *verbose, *quiet)
	if err := recorder.Err(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: audit trail incomplete: %v\n", err)
		os.Exit(1)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// collectRecordPaths merges the -record flag with positional arguments.
func collectRecordPaths(recordFlag string, args []string) []string {
	var paths []string
	if recordFlag != "" {
		paths = append(paths, recordFlag)
	}
	paths = append(paths, args...)
	return paths
}

func applyFlagOverrides(cfg *config.Config, outputDir string, encrypt, verbose bool) {
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if encrypt {
		cfg.Security.EncryptionEnabled = true
	}
	if verbose {
		cfg.Defaults.Verbose = true
	}
}

// promptPassword reads the document password without echo when attached to
// a terminal, falling back to a plain line read otherwise.
func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Document password: ")
	if term.IsTerminal(int(os.Stdin.Fd())) {
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	var pw string
	if _, err := fmt.Fscanln(os.Stdin, &pw); err != nil {
		return "", err
	}
	return pw, nil
}

// openAuditWriter resolves the audit sink: an explicit log file, the
// configured audit file, stderr when verbose, or disabled.
func openAuditWriter(cfg *config.Config, auditLog string, verbose bool) (io.Writer, func(), error) {
	path := auditLog
	if path == "" {
		path = cfg.Output.AuditFile
	}
	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, nil, fmt.Errorf("opening audit log: %w", err)
		}
		return f, func() { f.Close() }, nil
	}
	if verbose && cfg.Defaults.Audit {
		return os.Stderr, func() {}, nil
	}
	return nil, func() {}, nil
}

func loadRecords(paths []string) ([]*record.IntelligenceRecord, error) {
	records := make([]*record.IntelligenceRecord, 0, len(paths))
	for _, path := range paths {
		rec, err := record.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// reportResults prints a per-record line and a summary, returning the
// number of failed records.
func reportResults(results []*pipeline.Result, verbose, quiet bool) int {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			if !quiet {
				red.Fprintf(os.Stderr, "FAILED  %s: %v\n", res.RecordID, res.Err)
			}
			continue
		}
		if !quiet {
			green.Fprintf(os.Stdout, "OK      %s -> %s\n", res.RecordID, res.ArtifactPath)
			if verbose && res.Document != nil {
				fmt.Printf("        banner=%s pages=%d redactions=%d images=%d\n",
					res.Document.Banner, res.Artifact.Pages, res.Document.RedactionCount, res.Document.ImageCount)
			}
		}
		for _, imgErr := range res.ImageErrors {
			if !quiet {
				yellow.Fprintf(os.Stderr, "WARN    %s: %v\n", res.RecordID, imgErr)
			}
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Printf("%d record(s) processed, %d failed\n", len(results), failed)
	}
	return failed
}

// runInspect extracts the plain text of an assembled PDF for leak review.
func runInspect(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	text, err := render.ExtractText(data)
	if err != nil {
		return err
	}
	fmt.Println(strings.TrimSpace(text))
	return nil
}

func fatal(err error) {
	color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
