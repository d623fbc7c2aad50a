// Package clipboard copies rendered trees to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
)

// ErrUnavailable reports that no clipboard utility is present on this system.
var ErrUnavailable = errors.New("system clipboard is unavailable")

const errorCopyFormat = "copying %d lines to clipboard: %w"

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct {
	unsupported bool
	write       func(string) error
}

// NewService constructs a Service backed by the system clipboard.
func NewService() *Service {
	return &Service{unsupported: clipboard.Unsupported, write: clipboard.WriteAll}
}

// NewServiceWithWriter constructs a Service that hands text to write.
func NewServiceWithWriter(write func(string) error) *Service {
	return &Service{write: write}
}

// Copy writes text to the clipboard without its trailing newline.
func (service *Service) Copy(text string) error {
	trimmed := strings.TrimRight(text, "\n")
	lineCount := strings.Count(trimmed, "\n") + 1
	if service.unsupported {
		return fmt.Errorf(errorCopyFormat, lineCount, ErrUnavailable)
	}
	if err := service.write(trimmed); err != nil {
		return fmt.Errorf(errorCopyFormat, lineCount, err)
	}
	return nil
}

var _ Copier = (*Service)(nil)
