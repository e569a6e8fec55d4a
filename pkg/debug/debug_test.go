package debug

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestPrintfRespectsVerbose(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer func() { Verbose = false; SetLevel(logrus.InfoLevel) }()

	Verbose = false
	SetLevel(logrus.InfoLevel)
	Printf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("output while not verbose: %q", buf.String())
	}

	Verbose = true
	Printf("shown %d", 2)
	if !strings.Contains(buf.String(), "shown 2") {
		t.Errorf("missing debug output: %q", buf.String())
	}
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	Logger().WithField("msg_id", 7).Warn("dropped")
	out := buf.String()
	if !strings.Contains(out, "msg_id=7") || !strings.Contains(out, "dropped") {
		t.Errorf("unexpected record: %q", out)
	}
}
