// Package sequence reads peptide or protein sequences from FASTA or plain
// one-per-line text.
package sequence

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ChrisMcGann/IsoDecon/pkg/reader"
)

// Record is one sequence with its identifier. Plain-text input uses the
// line number as ID.
type Record struct {
	ID  string
	Seq string
}

// Read parses FASTA when the first non-blank line starts with '>', and one
// sequence per line otherwise. Residues are upper-cased and whitespace and a
// trailing stop ('*') are removed.
func Read(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16<<20)

	var (
		records []Record
		current *Record
		body    strings.Builder
		fasta   bool
		started bool
		lineNum int
	)
	flush := func() {
		if current != nil {
			current.Seq = clean(body.String())
			records = append(records, *current)
			body.Reset()
		}
	}

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if !started {
			started = true
			fasta = strings.HasPrefix(line, ">")
		}
		if !fasta {
			if strings.HasPrefix(line, ">") {
				return nil, fmt.Errorf("line %d: FASTA header in plain sequence list", lineNum)
			}
			records = append(records, Record{ID: fmt.Sprintf("line%d", lineNum), Seq: clean(line)})
			continue
		}
		if strings.HasPrefix(line, ">") {
			flush()
			id, _, _ := strings.Cut(strings.TrimPrefix(line, ">"), " ")
			current = &Record{ID: id}
			continue
		}
		body.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return records, nil
}

// ReadFile reads sequences from path ("-" for stdin, gzip detected).
func ReadFile(path string) ([]Record, error) {
	rc, err := reader.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	records, err := Read(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Sequences returns the bare sequences of records.
func Sequences(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Seq
	}
	return out
}

func clean(s string) string {
	s = strings.ToUpper(strings.Join(strings.Fields(s), ""))
	return strings.TrimSuffix(s, "*")
}
