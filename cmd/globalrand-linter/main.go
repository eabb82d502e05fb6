package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/wfshape/wfshape/pkg/linter/globalrand"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("globalrand-linter", flag.ContinueOnError)
	fs.SetOutput(stderr)
	rootDir := fs.String("dir", ".", "Root directory to scan")
	outputFormat := fs.String("format", "text", "Output format (text, json)")
	configFile := fs.String("config", "", "Path to a YAML configuration file")
	skipTests := fs.Bool("skip-tests", false, "Do not lint _test.go files")
	silentMode := fs.Bool("silent", false, "Only output if issues are found")
	exitWithCode := fs.Bool("exit-code", true, "Exit with non-zero code if issues found")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	config := globalrand.NewDefaultConfig()
	if *configFile != "" {
		var err error
		if config, err = loadConfigFromFile(*configFile); err != nil {
			fmt.Fprintf(stderr, "Error loading config: %v\n", err)
			return 1
		}
	}
	if *skipTests {
		config.SkipTests = true
	}

	absRootDir, err := filepath.Abs(*rootDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error resolving path: %v\n", err)
		return 1
	}
	if !*silentMode {
		fmt.Fprintf(stdout, "Scanning directory: %s\n", absRootDir)
	}

	issues, err := globalrand.LintProject(absRootDir, config)
	if err != nil {
		fmt.Fprintf(stderr, "Error during linting: %v\n", err)
		return 1
	}

	if len(issues) == 0 {
		if !*silentMode {
			fmt.Fprintln(stdout, "No issues found.")
		}
		return 0
	}

	if *outputFormat == "json" {
		if err := outputJSON(stdout, issues); err != nil {
			fmt.Fprintf(stderr, "Error marshaling to JSON: %v\n", err)
			return 1
		}
	} else {
		outputText(stdout, absRootDir, issues)
	}
	if *exitWithCode {
		return 1
	}
	return 0
}

func outputText(out io.Writer, root string, issues []globalrand.Issue) {
	fmt.Fprintf(out, "Found %d issues:\n\n", len(issues))
	for i, issue := range issues {
		relativePath, err := filepath.Rel(root, issue.File)
		if err != nil {
			relativePath = issue.File
		}
		fmt.Fprintf(out, "%d) %s:%d:%d: %s\n", i+1, relativePath, issue.Line, issue.Column, issue.Message)
	}
	fmt.Fprintln(out, "\nRandomized steps must draw from the seeded generator built by pkg/rng.")
}

func outputJSON(out io.Writer, issues []globalrand.Issue) error {
	type jsonOutput struct {
		Issues []globalrand.Issue `json:"issues"`
		Total  int                `json:"total_issues"`
	}
	data, err := json.MarshalIndent(jsonOutput{Issues: issues, Total: len(issues)}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func loadConfigFromFile(filePath string) (*globalrand.Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	config := globalrand.NewDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	return config, nil
}
