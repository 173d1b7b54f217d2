package catalog

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

const headerKind = "kind"

// readOptions decodes a gzipped CSV stream of kind,id,name,price records.
// A leading header row and lines starting with # are skipped.
func readOptions(ctx context.Context, r io.Reader) ([]Option, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	reader := csv.NewReader(gzipReader)
	reader.Comment = '#'
	reader.FieldsPerRecord = 4
	reader.TrimLeadingSpace = true

	var options []Option
	for line := 1; ; line++ {
		if line%10_000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog record: %w", err)
		}

		if len(options) == 0 && strings.EqualFold(strings.TrimSpace(record[0]), headerKind) {
			continue
		}

		option, err := parseRecord(record)
		if err != nil {
			row, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", row, err)
		}
		options = append(options, option)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return options, nil
}

func parseRecord(record []string) (Option, error) {
	kind, ok := parseKind(strings.TrimSpace(record[0]))
	if !ok {
		return Option{}, fmt.Errorf("unknown option kind %q", record[0])
	}

	id := strings.TrimSpace(record[1])
	if id == "" {
		return Option{}, fmt.Errorf("option id is required")
	}

	price, err := decimal.NewFromString(strings.TrimSpace(record[3]))
	if err != nil {
		return Option{}, fmt.Errorf("invalid price for %s %q: %w", kind, id, err)
	}
	if price.IsNegative() {
		return Option{}, fmt.Errorf("negative price for %s %q", kind, id)
	}

	return Option{
		Kind:  kind,
		ID:    id,
		Name:  strings.TrimSpace(record[2]),
		Price: price,
	}, nil
}
