// Package csvfile reads loan transaction exports in CSV form, either from
// disk or from an uploaded body.
package csvfile

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"riskdash/internal/core"
	"riskdash/internal/dataset"
)

// Parse reads a header row followed by data rows. The delimiter is sniffed
// from the header: semicolon exports are common where comma is the decimal mark.
func Parse(r io.Reader) (core.Table, error) {
	br := bufio.NewReader(r)
	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return core.Table{}, dataset.ErrEmptyHeader
	}
	if err != nil {
		return core.Table{}, fmt.Errorf("read header: %w", err)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return core.Table{}, fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, row)
	}

	tbl, invalid, err := dataset.DecodeRows(header, rows)
	if err != nil {
		return core.Table{}, err
	}
	dataset.LogInvalid("csv", invalid)
	return tbl, nil
}

func sniffDelimiter(br *bufio.Reader) rune {
	line, _ := br.Peek(4096)
	commas, semis := 0, 0
	for _, b := range line {
		if b == '\n' {
			break
		}
		switch b {
		case ',':
			commas++
		case ';':
			semis++
		}
	}
	if semis > commas {
		return ';'
	}
	return ','
}

// File is a Source reading a CSV file on every Load.
type File struct {
	Path string
}

func (f File) Name() string {
	return "csv:" + f.Path
}

func (f File) Load(ctx context.Context) (core.Table, error) {
	if err := ctx.Err(); err != nil {
		return core.Table{}, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return core.Table{}, fmt.Errorf("open dataset: %w", err)
	}
	defer fh.Close()
	tbl, err := Parse(fh)
	if err != nil {
		return core.Table{}, fmt.Errorf("parse %s: %w", f.Path, err)
	}
	return tbl, nil
}
