package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Format names a tool output format.
type Format string

const (
	FormatGolangci Format = "golangci-json"
	FormatRuff     Format = "ruff-json"
	FormatESLint   Format = "eslint-json"
	FormatGNU      Format = "gnu"
)

// Formats lists every supported format.
var Formats = []Format{FormatGolangci, FormatRuff, FormatESLint, FormatGNU}

// Finding is one diagnostic as reported by a tool, before it is bound to
// file content.
type Finding struct {
	File     string
	Line     int
	Message  string
	Severity string
}

// Parser turns raw tool output into findings, in the tool's order.
type Parser func(output []byte) ([]Finding, error)

// ParserFor returns the parser for format.
func ParserFor(format Format) (Parser, error) {
	switch format {
	case FormatGolangci:
		return parseGolangci, nil
	case FormatRuff:
		return parseRuff, nil
	case FormatESLint:
		return parseESLint, nil
	case FormatGNU:
		return parseGNU, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

type golangciReport struct {
	Issues []struct {
		FromLinter string `json:"FromLinter"`
		Text       string `json:"Text"`
		Severity   string `json:"Severity"`
		Pos        struct {
			Filename string `json:"Filename"`
			Line     int    `json:"Line"`
		} `json:"Pos"`
	} `json:"Issues"`
}

func parseGolangci(output []byte) ([]Finding, error) {
	output = bytes.TrimSpace(output)
	if len(output) == 0 {
		return nil, nil
	}
	var report golangciReport
	if err := json.Unmarshal(output, &report); err != nil {
		return nil, fmt.Errorf("golangci-lint output: %w", err)
	}
	findings := make([]Finding, 0, len(report.Issues))
	for _, is := range report.Issues {
		msg := is.Text
		if is.FromLinter != "" {
			msg = fmt.Sprintf("%s (%s)", is.Text, is.FromLinter)
		}
		findings = append(findings, Finding{
			File:     is.Pos.Filename,
			Line:     is.Pos.Line,
			Message:  msg,
			Severity: is.Severity,
		})
	}
	return findings, nil
}

type ruffDiagnostic struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Location struct {
		Row int `json:"row"`
	} `json:"location"`
}

func parseRuff(output []byte) ([]Finding, error) {
	output = bytes.TrimSpace(output)
	if len(output) == 0 {
		return nil, nil
	}
	var diags []ruffDiagnostic
	if err := json.Unmarshal(output, &diags); err != nil {
		return nil, fmt.Errorf("ruff output: %w", err)
	}
	findings := make([]Finding, 0, len(diags))
	for _, d := range diags {
		msg := d.Message
		if d.Code != "" {
			msg = d.Code + " " + d.Message
		}
		findings = append(findings, Finding{File: d.Filename, Line: d.Location.Row, Message: msg})
	}
	return findings, nil
}

type eslintFile struct {
	FilePath string `json:"filePath"`
	Messages []struct {
		RuleID   string `json:"ruleId"`
		Severity int    `json:"severity"`
		Message  string `json:"message"`
		Line     int    `json:"line"`
	} `json:"messages"`
}

func parseESLint(output []byte) ([]Finding, error) {
	output = bytes.TrimSpace(output)
	if len(output) == 0 {
		return nil, nil
	}
	var files []eslintFile
	if err := json.Unmarshal(output, &files); err != nil {
		return nil, fmt.Errorf("eslint output: %w", err)
	}
	var findings []Finding
	for _, f := range files {
		for _, m := range f.Messages {
			msg := m.Message
			if m.RuleID != "" {
				msg = fmt.Sprintf("%s (%s)", m.Message, m.RuleID)
			}
			sev := "warning"
			if m.Severity >= 2 {
				sev = "error"
			}
			findings = append(findings, Finding{File: f.FilePath, Line: m.Line, Message: msg, Severity: sev})
		}
	}
	return findings, nil
}

// gnuLine matches "file:line[:col]: [severity:] message" as printed by gcc,
// go vet, mypy and flake8.
var gnuLine = regexp.MustCompile(`^([^:\s][^:]*):(\d+)(?::\d+)?:\s*(?:(error|warning|note|info):\s*)?(.+)$`)

func parseGNU(output []byte) ([]Finding, error) {
	var findings []Finding
	sc := bufio.NewScanner(bytes.NewReader(output))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		m := gnuLine.FindStringSubmatch(strings.TrimRight(sc.Text(), "\r"))
		if m == nil {
			continue
		}
		line, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		findings = append(findings, Finding{
			File:     m[1],
			Line:     line,
			Message:  strings.TrimSpace(m[4]),
			Severity: m[3],
		})
	}
	return findings, sc.Err()
}
