package cli

import (
	"errors"
	"io"
	"testing"

	"github.com/spf13/cobra"

	"github.com/tyemirov/htree/internal/services/clipboard"
)

func TestRegisterCopyFlagParsesValues(t *testing.T) {
	testCases := []struct {
		name        string
		arguments   []string
		expected    bool
		expectError bool
	}{
		{
			name:        "defaults_to_false",
			arguments:   []string{},
			expected:    false,
			expectError: false,
		},
		{
			name:        "sets_true_without_value",
			arguments:   []string{"--copy"},
			expected:    true,
			expectError: false,
		},
		{
			name:        "sets_false_with_equals",
			arguments:   []string{"--copy=false"},
			expected:    false,
			expectError: false,
		},
		{
			name:        "sets_false_with_no",
			arguments:   []string{"--copy", "no"},
			expected:    false,
			expectError: false,
		},
		{
			name:        "keeps_store_argument_positional",
			arguments:   []string{"--copy", "data.yaml"},
			expected:    true,
			expectError: false,
		},
		{
			name:        "rejects_invalid_text",
			arguments:   []string{"--copy=maybe"},
			expected:    false,
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			var flagValue bool
			command := &cobra.Command{Use: "copy-flag"}
			command.Flags().SetOutput(io.Discard)
			registerCopyFlag(command.Flags(), &flagValue)
			parseErr := command.ParseFlags(normalizeBooleanFlagArguments(command, testCase.arguments))
			if testCase.expectError {
				if parseErr == nil {
					t.Fatalf("expected error for arguments %v", testCase.arguments)
				}
				return
			}
			if parseErr != nil {
				t.Fatalf("unexpected parse error: %v", parseErr)
			}
			if flagValue != testCase.expected {
				t.Fatalf("expected value %t, got %t", testCase.expected, flagValue)
			}
		})
	}
}

type recordingCopier struct {
	copied []string
}

func (copier *recordingCopier) Copy(text string) error {
	copier.copied = append(copier.copied, text)
	return nil
}

func TestCopyRenderedOutputStripsColor(t *testing.T) {
	t.Parallel()

	copier := &recordingCopier{}
	if err := copyRenderedOutput(copier, "\x1b[32mgroup_1\x1b[0m\n"); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if len(copier.copied) != 1 || copier.copied[0] != "group_1\n" {
		t.Fatalf("unexpected copied text %q", copier.copied)
	}
	if err := copyRenderedOutput(nil, "x"); !errors.Is(err, clipboard.ErrUnavailable) {
		t.Fatalf("expected unavailable clipboard, got %v", err)
	}
}

