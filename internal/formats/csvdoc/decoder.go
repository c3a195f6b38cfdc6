// Package csvdoc decodes CSV payloads. The first row names the fields; a
// header may carry a type suffix, "name:string" or "name:number". Untyped
// fields are strings.
package csvdoc

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driven"
)

// Ensure Decoder implements the interface.
var _ driven.DocumentDecoder = (*Decoder)(nil)

type fieldType int

const (
	typeString fieldType = iota
	typeNumber
)

type field struct {
	name string
	typ  fieldType
}

// Decoder handles the csv payload format.
type Decoder struct{}

// New creates a new CSV decoder.
func New() *Decoder {
	return &Decoder{}
}

// Format returns domain.FormatCSV.
func (d *Decoder) Format() domain.DocumentFormat {
	return domain.FormatCSV
}

// Decode emits one document per data row. Number fields become json.Number
// in JSON number syntax; an empty number field becomes null.
func (d *Decoder) Decode(ctx context.Context, r io.Reader, emit func(domain.Document) error) (int, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return 0, domain.ErrMissingPayload
	}
	if err != nil {
		return 0, fmt.Errorf("%w: header: %v", domain.ErrMalformedPayload, err)
	}
	fields := parseHeader(header)

	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
		}

		doc := make(domain.Document, len(fields))
		for i, f := range fields {
			value, err := f.convert(record[i])
			if err != nil {
				return count, fmt.Errorf("%w: row %d field %q: %v", domain.ErrMalformedPayload, count+1, f.name, err)
			}
			doc[f.name] = value
		}
		if err := emit(doc); err != nil {
			return count, err
		}
		count++
	}
}

func parseHeader(header []string) []field {
	fields := make([]field, len(header))
	for i, h := range header {
		fields[i] = field{name: h, typ: typeString}
		name, typ, ok := cutLast(h, ":")
		if !ok {
			continue
		}
		switch typ {
		case "string":
			fields[i] = field{name: name, typ: typeString}
		case "number":
			fields[i] = field{name: name, typ: typeNumber}
		}
	}
	return fields
}

func (f field) convert(raw string) (any, error) {
	if f.typ == typeString {
		return raw, nil
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	f64, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f64) || math.IsInf(f64, 0) {
		return nil, fmt.Errorf("%q is not a number", raw)
	}
	if json.Valid([]byte(s)) {
		return json.Number(s), nil
	}
	// Forms JSON has no literal for, such as 05, +1, .5 or 0x1p-2.
	return json.Number(strconv.FormatFloat(f64, 'g', -1, 64)), nil
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}
