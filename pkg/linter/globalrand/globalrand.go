// Package globalrand reports uses of the process-wide math/rand generator.
// Experiments must draw from an explicitly seeded *rand.Rand so that a run
// can be reproduced from its logged seed.
package globalrand

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Issue is one reported use of the global generator.
type Issue struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

// ExemptFile excludes a file, matched by path suffix.
type ExemptFile struct {
	Path   string `yaml:"path" json:"path"`
	Reason string `yaml:"reason" json:"reason"`
}

// Config controls which files are linted.
type Config struct {
	ExemptFiles       []ExemptFile `yaml:"exempt_files"`
	ExemptDirectories []string     `yaml:"exempt_directories"`
	// SkipTests excludes _test.go files.
	SkipTests bool `yaml:"skip_tests"`
}

// NewDefaultConfig lints every file, tests included.
func NewDefaultConfig() *Config {
	return &Config{}
}

var randPackages = map[string]bool{
	"math/rand":    true,
	"math/rand/v2": true,
}

// constructors build an explicit generator and are always allowed.
var constructors = map[string]bool{
	"New":        true,
	"NewSource":  true,
	"NewPCG":     true,
	"NewChaCha8": true,
	"NewZipf":    true,
	"Rand":       true,
	"Source":     true,
	"PCG":        true,
	"ChaCha8":    true,
	"Zipf":       true,
}

// LintProject walks rootDir and lints every Go file. Directories whose
// names start with "." or "_", and testdata and vendor directories, are
// skipped the way the go tool skips them.
func LintProject(rootDir string, config *Config) ([]Issue, error) {
	if config == nil {
		config = NewDefaultConfig()
	}

	var issues []Issue
	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != rootDir && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			for _, exemptDir := range config.ExemptDirectories {
				if path == filepath.Join(rootDir, exemptDir) {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		if config.SkipTests && strings.HasSuffix(path, "_test.go") {
			return nil
		}
		for _, exempt := range config.ExemptFiles {
			if exempt.Path != "" && strings.HasSuffix(path, exempt.Path) {
				return nil
			}
		}

		fileIssues, err := LintFile(path)
		if err != nil {
			return fmt.Errorf("error linting file %s: %w", path, err)
		}
		issues = append(issues, fileIssues...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}
	return issues, nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "testdata" || name == "vendor"
}

// LintFile parses a single Go file and reports its issues.
func LintFile(filePath string) ([]Issue, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, filePath, nil, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("error parsing file: %w", err)
	}
	return lint(fset, filePath, node), nil
}

// LintSource is LintFile over in-memory source.
func LintSource(filename string, src []byte) ([]Issue, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, filename, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("error parsing file: %w", err)
	}
	return lint(fset, filename, node), nil
}

func lint(fset *token.FileSet, filePath string, node *ast.File) []Issue {
	var issues []Issue
	report := func(pos token.Pos, msg string) {
		p := fset.Position(pos)
		issues = append(issues, Issue{File: filePath, Line: p.Line, Column: p.Column, Message: msg})
	}

	// Local names under which a rand package is visible in this file.
	names := map[string]string{}
	for _, imp := range node.Imports {
		importPath, err := strconv.Unquote(imp.Path.Value)
		if err != nil || !randPackages[importPath] {
			continue
		}
		switch {
		case imp.Name == nil:
			names["rand"] = importPath
		case imp.Name.Name == ".":
			report(imp.Pos(), fmt.Sprintf("dot import of %s exposes the global generator; import it by name", importPath))
		case imp.Name.Name == "_":
		default:
			names[imp.Name.Name] = importPath
		}
	}
	if len(names) == 0 {
		return issues
	}

	ast.Inspect(node, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		pkg, ok := sel.X.(*ast.Ident)
		if !ok {
			return true
		}
		importPath, ok := names[pkg.Name]
		if !ok || constructors[sel.Sel.Name] {
			return true
		}
		report(sel.Pos(), fmt.Sprintf("%s.%s uses the global generator of %s; pass a seeded *rand.Rand instead", pkg.Name, sel.Sel.Name, importPath))
		return true
	})

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Line != issues[j].Line {
			return issues[i].Line < issues[j].Line
		}
		return issues[i].Column < issues[j].Column
	})
	return issues
}
