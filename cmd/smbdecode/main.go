package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mjwhitta/cli"

	"github.com/ineffectivecoder/smbwire/pkg/debug"
	"github.com/ineffectivecoder/smbwire/pkg/smb"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

func main() {
	var (
		binary  bool
		hops    int
		showRaw bool
		verbose bool
	)

	cli.Align = true
	cli.Banner = "smbdecode [OPTIONS] <capture>..."
	cli.Info("Decode captured SMB1/SMB2 messages. Hex input holds one message per line; '-' reads stdin.")
	cli.Authors = []string{"smbwire authors"}

	cli.Flag(&binary, "b", "binary", false, "Input is a raw binary message, optionally NetBIOS framed")
	cli.Flag(&hops, "m", "max-hops", types.DefaultMaxContextHops, "Create context chain limit")
	cli.Flag(&showRaw, "r", "raw", false, "Hex dump each decoded element")
	cli.Flag(&verbose, "v", "verbose", false, "Print full body fields")
	cli.Parse()

	debug.Verbose = verbose
	if cli.NArg() == 0 {
		cli.Usage(1)
	}

	dec := smb.Decoder{MaxContextHops: hops}
	failed := false
	for _, name := range cli.Args() {
		data, err := readInput(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			failed = true
			continue
		}
		frames, err := splitInput(data, binary)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			failed = true
			continue
		}
		for i, frame := range frames {
			fmt.Printf("=== %s #%d (%d bytes) ===\n", name, i+1, len(frame))
			if err := printFrame(os.Stdout, dec, frame, verbose, showRaw); err != nil {
				fmt.Printf("  error: %v\n", err)
				failed = true
			}
			fmt.Println()
		}
	}
	if failed {
		os.Exit(1)
	}
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

// splitInput turns file contents into frames. Hex input ignores blank lines,
// '#' comments and whitespace inside a line.
func splitInput(data []byte, binary bool) ([][]byte, error) {
	if binary {
		return [][]byte{stripNetBIOS(data)}, nil
	}

	var frames [][]byte
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 32*1024*1024)
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.Join(strings.Fields(line), "")
		if line == "" {
			continue
		}
		b, err := hex.DecodeString(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		frames = append(frames, stripNetBIOS(b))
	}
	return frames, sc.Err()
}

// stripNetBIOS drops a 4-byte session message header when its length field
// matches the rest of b.
func stripNetBIOS(b []byte) []byte {
	if len(b) < 8 || b[0] != 0 {
		return b
	}
	n := int(b[1])<<16 | int(b[2])<<8 | int(b[3])
	if n == len(b)-4 {
		return b[4:]
	}
	return b
}

func printFrame(w io.Writer, dec smb.Decoder, frame []byte, verbose, showRaw bool) error {
	msgs, err := dec.DecodeCompound(frame)
	if err != nil {
		if smb.IsStructural(err) {
			return fmt.Errorf("malformed: %w", err)
		}
		return err
	}
	for i, m := range msgs {
		if len(msgs) > 1 {
			fmt.Fprintf(w, "  -- element %d --\n", i)
		}
		printMessage(w, m, verbose)
		if showRaw {
			for _, line := range strings.Split(strings.TrimRight(hex.Dump(m.Raw), "\n"), "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}
	return nil
}

func printMessage(w io.Writer, m *smb.Message, verbose bool) {
	if m.Version == smb.Version1 {
		h := &m.SMB1.Header
		fmt.Fprintf(w, "  %s\n", h)
		fmt.Fprintf(w, "  blocks: %d\n", len(m.SMB1.Blocks))
		for i, b := range m.SMB1.Blocks {
			fmt.Fprintf(w, "    [%d] words=%d bytes=%d\n", i, len(b.Params), len(b.Data))
		}
		if h.UsesNTStatus() {
			printStatus(w, h.NTStatus())
		}
		return
	}

	h := m.Header
	fmt.Fprintf(w, "  %s\n", h)
	fmt.Fprintf(w, "  body:   %T\n", m.Body)
	if h.IsResponse() {
		printStatus(w, h.Status)
	}
	if verbose {
		fmt.Fprintf(w, "  fields: %+v\n", m.Body)
	}
}

func printStatus(w io.Writer, s types.NTStatus) {
	info := types.LookupStatus(s)
	fmt.Fprintf(w, "  status: %s (0x%08X) %s\n", info.Name, uint32(s), info.Description)
}
