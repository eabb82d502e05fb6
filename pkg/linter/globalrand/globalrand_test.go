package globalrand

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLintSource(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		issues int
		lines  []int
	}{
		{
			name: "seeded generator",
			src: `package p
import "math/rand/v2"
func f(r *rand.Rand) int { return r.IntN(3) }
var g = rand.New(rand.NewPCG(1, 2))
`,
			issues: 0,
		},
		{
			name: "global calls",
			src: `package p
import "math/rand/v2"
func f() int { return rand.IntN(3) }
func g() { rand.Shuffle(2, func(i, j int) {}) }
`,
			issues: 2,
			lines:  []int{3, 4},
		},
		{
			name: "aliased import",
			src: `package p
import mr "math/rand"
func f() float64 { return mr.Float64() }
`,
			issues: 1,
			lines:  []int{3},
		},
		{
			name: "dot import",
			src: `package p
import . "math/rand"
func f() int { return Intn(3) }
`,
			issues: 1,
			lines:  []int{2},
		},
		{
			name: "crypto rand is fine",
			src: `package p
import "crypto/rand"
func f(b []byte) { rand.Read(b) }
`,
			issues: 0,
		},
		{
			name: "blank import",
			src: `package p
import _ "math/rand"
`,
			issues: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues, err := LintSource("p.go", []byte(tt.src))
			require.NoError(t, err)
			require.Len(t, issues, tt.issues)
			for i, line := range tt.lines {
				assert.Equal(t, line, issues[i].Line)
				assert.Equal(t, "p.go", issues[i].File)
			}
		})
	}
}

func TestLintSourceParseError(t *testing.T) {
	_, err := LintSource("bad.go", []byte("package"))
	assert.Error(t, err)
}

func TestLintProject(t *testing.T) {
	root := t.TempDir()
	write := func(rel, src string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
	bad := "package p\nimport \"math/rand/v2\"\nvar x = rand.Int()\n"
	write("core/a.go", bad)
	write("core/a_test.go", bad)
	write("_examples/b.go", bad)
	write("vendor/c.go", bad)
	write("legacy/d.go", bad)
	write("core/notes.txt", bad)

	issues, err := LintProject(root, nil)
	require.NoError(t, err)
	assert.Len(t, issues, 3)

	issues, err = LintProject(root, &Config{
		SkipTests:         true,
		ExemptDirectories: []string{"legacy"},
	})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, filepath.Join(root, "core", "a.go"), issues[0].File)

	issues, err = LintProject(root, &Config{
		SkipTests:   true,
		ExemptFiles: []ExemptFile{{Path: "core/a.go", Reason: "fixture"}, {Path: "legacy/d.go"}},
	})
	require.NoError(t, err)
	assert.Empty(t, issues)
}
