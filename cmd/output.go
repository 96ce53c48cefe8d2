package cmd

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/cli/go-gh/v2/pkg/term"

	"github.com/kyleking/askdb/internal/formatter"
)

// terminal reports whether out is an interactive terminal, and its width
func terminal(out io.Writer) (bool, int) {
	if out != os.Stdout {
		return false, 0
	}

	t := term.FromEnv()
	if !t.IsTerminalOutput() {
		return false, 0
	}

	width, _, err := t.Size()
	if err != nil {
		width = 0
	}

	return true, width
}

func newFormatter(out io.Writer) *formatter.Formatter {
	isTTY, width := terminal(out)
	return formatter.NewFormatter(out, isTTY, width)
}

// startSpinner shows progress on stderr while a question is answered. It
// returns the function that stops it.
func startSpinner(out io.Writer, format formatter.OutputFormat) func() {
	if format == formatter.FormatJSON {
		return func() {}
	}

	if isTTY, _ := terminal(out); !isTTY {
		return func() {}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " Generating SQL..."
	s.Start()

	return s.Stop
}

func outputFormat(asJSON bool) formatter.OutputFormat {
	if asJSON {
		return formatter.FormatJSON
	}

	return formatter.FormatTable
}
