// Package output writes rendered tree lines to terminals, buffers and the clipboard.
package output

import (
	"bufio"
	"io"
	"regexp"
)

const lineTerminator = "\n"

// ansiEscapePattern matches terminal color escape sequences.
var ansiEscapePattern = regexp.MustCompile(`(?:\x1B[@-_]|[\x80-\x9F])[0-?]*[ -/]*[@-~]`)

// WriterSink writes each line followed by a newline to an underlying writer.
type WriterSink struct {
	writer *bufio.Writer
}

// NewWriterSink wraps writer. Call Flush once rendering completes.
func NewWriterSink(writer io.Writer) *WriterSink {
	return &WriterSink{writer: bufio.NewWriter(writer)}
}

// WriteLine appends line to the output.
func (sink *WriterSink) WriteLine(line string) error {
	if _, err := sink.writer.WriteString(line); err != nil {
		return err
	}
	_, err := sink.writer.WriteString(lineTerminator)
	return err
}

// Flush pushes buffered lines to the underlying writer.
func (sink *WriterSink) Flush() error {
	return sink.writer.Flush()
}

// StripANSI removes color escape sequences from text.
func StripANSI(text string) string {
	return ansiEscapePattern.ReplaceAllString(text, "")
}
