package utils

import (
	"runtime/debug"
	"testing"
)

func TestRevisionFromSettings(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		settings []debug.BuildSetting
		expected string
	}{
		{name: "no_revision", settings: nil, expected: ""},
		{
			name:     "clean",
			settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789abcdef0123"}, {Key: "vcs.modified", Value: "false"}},
			expected: "0123456789ab",
		},
		{
			name:     "modified_short",
			settings: []debug.BuildSetting{{Key: "vcs.modified", Value: "true"}, {Key: "vcs.revision", Value: "abc"}},
			expected: "abc-dirty",
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			if actual := revisionFromSettings(testCase.settings); actual != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, actual)
			}
		})
	}
}

func TestGetApplicationVersionPrefersLinkedVersion(t *testing.T) {
	original := Version
	Version = "v9.9.9"
	defer func() { Version = original }()
	if actual := GetApplicationVersion(); actual != "v9.9.9" {
		t.Fatalf("expected linked version, got %q", actual)
	}
}
