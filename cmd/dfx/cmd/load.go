package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/designformat/pkg/blob"
	"github.com/OpenTraceLab/designformat/pkg/design"
	"github.com/OpenTraceLab/designformat/pkg/schema"
)

// loadProject reads a blob, checking it against the schema first when the
// configuration asks for it.
func loadProject(path string) (*design.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read file at path: %s", path)
	}
	if cfg.Load.ValidateSchema {
		if err := schema.Validate(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	p, err := blob.Unmarshal(data, blob.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.WithField("path", path).Debugf("loaded project %s with %d nodes", p.ID, len(p.Nodes()))
	return p, nil
}

// principalBlock returns the first principal block of p.
func principalBlock(p *design.Project) (*design.Block, error) {
	blocks := p.PrincipalBlocks()
	if len(blocks) == 0 {
		return nil, fmt.Errorf("failed to locate a principal block")
	}
	return blocks[0], nil
}

func parseAddress(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return v, nil
}

// formatOffset renders a signed offset as hex with the sign in front of the
// 0x prefix.
func formatOffset(v int64) string {
	if v < 0 {
		return fmt.Sprintf("-0x%x", uint64(-v))
	}
	return fmt.Sprintf("0x%x", v)
}

// printList writes items separated by spaces or newlines.
func printList(w io.Writer, items []string, spaced bool) {
	sep := "\n"
	if spaced {
		sep = " "
	}
	fmt.Fprintln(w, strings.Join(items, sep))
}

// writeOutput writes data to path, or to w when path is empty or "-".
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := w.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
