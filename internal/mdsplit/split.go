// Package mdsplit cuts a Markdown document into N parts of similar size
// without ever breaking a fenced code block.
package mdsplit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"imperium_gate/internal/domain"
)

var (
	heading = regexp.MustCompile(`^#{1,6}\s`)
	fence   = regexp.MustCompile("^\\s*```")
)

// IndexEntry describes one written part in the index document.
type IndexEntry struct {
	Part       int    `json:"part"`
	File       string `json:"file"`
	ApproxSize int    `json:"approxSize"`
}

// Blocks segments text into paragraphs, headings and fenced code blocks.
// A fence runs until the next fence line (or the end of input) and is kept
// whole; outside fences a heading or a blank line ends the current block.
func Blocks(text string) []string {
	var (
		blocks  []string
		cur     []string
		inFence bool
	)
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r", ""), "\n") {
		if fence.MatchString(line) {
			inFence = !inFence
			cur = append(cur, line)
			continue
		}
		switch {
		case inFence:
			cur = append(cur, line)
		case heading.MatchString(line):
			flush()
			cur = append(cur, line)
		case strings.TrimSpace(line) == "":
			flush()
		default:
			cur = append(cur, line)
		}
	}
	flush()
	return blocks
}

func size(b string) int { return utf8.RuneCountInString(b) }

// Pack distributes blocks over n parts in order. A part is closed once it
// reaches ceil(total/n) characters; the last part takes whatever remains.
// An empty part after the first takes the last block of the part before it,
// as long as that leaves the previous part non-empty.
func Pack(blocks []string, n int) [][]string {
	if n < 1 {
		n = 1
	}
	total := 0
	for _, b := range blocks {
		total += size(b)
	}
	target := (total + n - 1) / n
	if target < 1 {
		target = 1
	}

	parts := make([][]string, n)
	idx, acc := 0, 0
	for _, b := range blocks {
		parts[idx] = append(parts[idx], b)
		acc += size(b)
		if acc >= target && idx < n-1 {
			idx++
			acc = 0
		}
	}

	for i := 1; i < n; i++ {
		prev := parts[i-1]
		if len(parts[i]) > 0 || len(prev) < 2 {
			continue
		}
		parts[i] = []string{prev[len(prev)-1]}
		parts[i-1] = prev[:len(prev)-1]
	}
	return parts
}

// Split is Pack(Blocks(text), n).
func Split(text string, n int) [][]string { return Pack(Blocks(text), n) }

// Render formats one part with its header.
func Render(part []string, i, n int, source string) string {
	body := strings.Join(part, "\n\n")
	return fmt.Sprintf("> Part %d/%d — Source: %s\n> Size: ~%d chars\n\n---\n\n%s\n", i, n, source, partSize(part), body)
}

func partSize(part []string) int {
	s := 0
	for _, b := range part {
		s += size(b)
	}
	return s
}

// WriteParts splits the file at input into n parts under outDir and writes
// <prefix>.part-NN.md files plus <prefix>.chunks.index.json, where prefix is
// the input base name without extension.
func WriteParts(input, outDir string, n int) ([]IndexEntry, error) {
	b, err := os.ReadFile(input)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInputNotFound, input)
		}
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	source := filepath.Base(input)
	prefix := strings.TrimSuffix(source, filepath.Ext(source))
	parts := Split(string(b), n)

	index := make([]IndexEntry, 0, len(parts))
	for i, p := range parts {
		name := fmt.Sprintf("%s.part-%02d.md", prefix, i+1)
		if err := os.WriteFile(filepath.Join(outDir, name), []byte(Render(p, i+1, len(parts), source)), 0o644); err != nil {
			return index, fmt.Errorf("write %s: %w", name, err)
		}
		index = append(index, IndexEntry{Part: i + 1, File: name, ApproxSize: partSize(p)})
	}

	raw, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return index, err
	}
	if err := os.WriteFile(filepath.Join(outDir, prefix+domain.ChunksIndexExt), raw, 0o644); err != nil {
		return index, fmt.Errorf("write index: %w", err)
	}
	return index, nil
}
