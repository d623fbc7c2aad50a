package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/tyemirov/htree/internal/types"
)

const cliSampleDocument = `"@name": Sam
group_1:
  x:
    "@dataset": {dtype: float64, shape: [5, 3]}
  y: 7
z: [1, 2, 3]
`

type commandHarness struct {
	stdout bytes.Buffer
	copier recordingCopier
}

func (harness *commandHarness) run(t *testing.T, arguments ...string) error {
	t.Helper()
	dependencies := applicationDependencies{
		logger:   zap.NewNop(),
		logLevel: zap.NewAtomicLevel(),
		stdout:   &harness.stdout,
		copier:   &harness.copier,
	}
	command := createRootCommand(dependencies)
	command.SetErr(&bytes.Buffer{})
	normalized := normalizeBooleanFlagArguments(command, arguments)
	if normalized == nil {
		normalized = []string{}
	}
	command.SetArgs(normalized)
	return command.Execute()
}

// isolateConfiguration points the home directory and the working directory at empty
// temporary directories so no developer configuration leaks into a test.
func isolateConfiguration(t *testing.T) string {
	t.Helper()
	homeDirectory := t.TempDir()
	t.Setenv("HOME", homeDirectory)
	t.Setenv("USERPROFILE", homeDirectory)
	workingDirectory := t.TempDir()
	originalDirectory, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(workingDirectory); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(originalDirectory)
	})
	return workingDirectory
}

func writeSampleDocument(t *testing.T, directory string) string {
	t.Helper()
	path := filepath.ToSlash(filepath.Join(directory, "data.yaml"))
	if err := os.WriteFile(path, []byte(cliSampleDocument), 0o600); err != nil {
		t.Fatalf("write document: %v", err)
	}
	return path
}

func TestRootCommandRendersStores(t *testing.T) {
	workingDirectory := isolateConfiguration(t)
	documentPath := writeSampleDocument(t, workingDirectory)

	testCases := []struct {
		name      string
		arguments []string
		expected  []string
	}{
		{
			name:      "plain",
			arguments: []string{documentPath},
			expected: []string{
				documentPath,
				"├── group_1",
				"│   ├── x",
				"│   └── y",
				"└── z",
			},
		},
		{
			name:      "verbose_with_yes_literal",
			arguments: []string{"-v", "yes", documentPath},
			expected: []string{
				documentPath + "  (2 objects, 1 attribute)",
				"├── group_1  (2 objects)",
				"│   ├── x  (5, 3), float64",
				"│   └── y  scalar, int64",
				"└── z  (3,), int64",
				"",
				"1 group, 3 datasets",
			},
		},
		{
			name:      "subtree_with_attributes",
			arguments: []string{"--attributes", documentPath + "/group_1"},
			expected: []string{
				documentPath + "/group_1",
				"├── x",
				"└── y",
			},
		},
		{
			name:      "groups_and_root_attributes",
			arguments: []string{"-g", "-a", documentPath},
			expected: []string{
				documentPath,
				"└── name",
				"├── group_1",
			},
		},
		{
			name:      "two_inputs",
			arguments: []string{"-L", "1", documentPath, documentPath + "/group_1"},
			expected: []string{
				documentPath,
				"├── group_1",
				"└── z",
				"",
				documentPath + "/group_1",
				"├── x",
				"└── y",
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			harness := &commandHarness{}
			if err := harness.run(t, testCase.arguments...); err != nil {
				t.Fatalf("execute: %v", err)
			}
			expected := strings.Join(testCase.expected, "\n") + "\n"
			if harness.stdout.String() != expected {
				t.Fatalf("expected\n%s\ngot\n%s", expected, harness.stdout.String())
			}
			if len(harness.copier.copied) != 0 {
				t.Fatalf("clipboard must stay untouched without --copy")
			}
		})
	}
}

func TestRootCommandStopsAtFirstFailedInput(t *testing.T) {
	workingDirectory := isolateConfiguration(t)
	documentPath := writeSampleDocument(t, workingDirectory)

	harness := &commandHarness{}
	err := harness.run(t, documentPath+"/group_1", documentPath+"/missing", documentPath)
	if !errors.Is(err, types.ErrNodeNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if !strings.Contains(err.Error(), documentPath+"/missing") {
		t.Fatalf("expected failing argument in %q", err.Error())
	}
	expected := documentPath + "/group_1\n├── x\n└── y\n\n"
	if harness.stdout.String() != expected {
		t.Fatalf("expected only the first tree, got %q", harness.stdout.String())
	}
}

func TestRootCommandAppliesConfigurationAndFlags(t *testing.T) {
	workingDirectory := isolateConfiguration(t)
	documentPath := writeSampleDocument(t, workingDirectory)
	configuration := "tree:\n  groups: true\n  clipboard: true\n  color: never\n"
	if err := os.WriteFile(filepath.Join(workingDirectory, ".htree.yaml"), []byte(configuration), 0o600); err != nil {
		t.Fatalf("write configuration: %v", err)
	}

	harness := &commandHarness{}
	if err := harness.run(t, documentPath); err != nil {
		t.Fatalf("execute: %v", err)
	}
	groupsOnly := documentPath + "\n├── group_1\n"
	if harness.stdout.String() != groupsOnly {
		t.Fatalf("expected configured groups-only output, got %q", harness.stdout.String())
	}
	if len(harness.copier.copied) != 1 || harness.copier.copied[0] != groupsOnly {
		t.Fatalf("expected configured clipboard copy, got %q", harness.copier.copied)
	}

	flagged := &commandHarness{}
	if err := flagged.run(t, "--groups=false", "--copy", "no", documentPath+"/group_1"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if flagged.stdout.String() != documentPath+"/group_1\n├── x\n└── y\n" {
		t.Fatalf("expected flags to override configuration, got %q", flagged.stdout.String())
	}
	if len(flagged.copier.copied) != 0 {
		t.Fatalf("expected --copy no to disable the configured copy")
	}
}

func TestRootCommandColorsOnDemand(t *testing.T) {
	workingDirectory := isolateConfiguration(t)
	documentPath := writeSampleDocument(t, workingDirectory)

	harness := &commandHarness{}
	if err := harness.run(t, "--color", "always", "--copy", documentPath+"/group_1"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(harness.stdout.String(), "\x1b[") {
		t.Fatalf("expected escape sequences in %q", harness.stdout.String())
	}
	if len(harness.copier.copied) != 1 || strings.Contains(harness.copier.copied[0], "\x1b[") {
		t.Fatalf("expected uncolored clipboard copy, got %q", harness.copier.copied)
	}
}

func TestRootCommandRejectsInvalidInvocations(t *testing.T) {
	workingDirectory := isolateConfiguration(t)
	documentPath := writeSampleDocument(t, workingDirectory)

	testCases := []struct {
		name          string
		arguments     []string
		expectedError error
	}{
		{name: "no_arguments", arguments: nil, expectedError: errMissingArguments},
		{name: "negative_level", arguments: []string{"-L", "-1", documentPath}, expectedError: types.ErrInvalidOptions},
		{name: "missing_store", arguments: []string{filepath.ToSlash(filepath.Join(workingDirectory, "absent.yaml"))}, expectedError: types.ErrNodeNotFound},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			harness := &commandHarness{}
			if err := harness.run(t, testCase.arguments...); !errors.Is(err, testCase.expectedError) {
				t.Fatalf("expected %v, got %v", testCase.expectedError, err)
			}
			if harness.stdout.Len() != 0 {
				t.Fatalf("expected no output, got %q", harness.stdout.String())
			}
		})
	}

	harness := &commandHarness{}
	if err := harness.run(t, "--color", "rainbow", documentPath); err == nil {
		t.Fatalf("expected invalid color error")
	}
}

func TestRootCommandPrintsVersion(t *testing.T) {
	isolateConfiguration(t)

	harness := &commandHarness{}
	if err := harness.run(t, "--version"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(harness.stdout.String(), "htree version: ") {
		t.Fatalf("unexpected version output %q", harness.stdout.String())
	}
}

func TestInitCommandWritesConfiguration(t *testing.T) {
	workingDirectory := isolateConfiguration(t)

	harness := &commandHarness{}
	if err := harness.run(t, "init"); err != nil {
		t.Fatalf("execute init: %v", err)
	}
	if _, err := os.Stat(filepath.Join(workingDirectory, ".htree.yaml")); err != nil {
		t.Fatalf("expected local configuration: %v", err)
	}
	if err := harness.run(t, "init"); err == nil {
		t.Fatalf("expected refusal to overwrite without --force")
	}
	if err := harness.run(t, "init", "--force"); err != nil {
		t.Fatalf("forced init: %v", err)
	}
}
