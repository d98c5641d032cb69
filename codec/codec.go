// Package codec implements compression codec descriptions: parsing,
// canonical rendering, and construction of the underlying compressors.
/*
 * Copyright (c) 2024, ColStore Authors. All rights reserved.
 */
package codec

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Canonical codec names.
const (
	None  = "NONE"
	LZ4   = "LZ4"
	LZ4HC = "LZ4HC"
	ZSTD  = "ZSTD"
	GZIP  = "GZIP"
)

type (
	// Spec is a single codec in a chain, e.g. ZSTD(3) or LZ4.
	Spec struct {
		Name     string
		Level    int
		HasLevel bool
	}
	// Desc is an ordered codec chain as declared in a table schema or
	// recorded for a part. The zero Desc means "codec unspecified" and
	// renders as the empty string.
	Desc struct {
		specs []Spec
	}
)

var ErrBadSpec = errors.New("malformed codec spec")

func NewDesc(specs ...Spec) Desc { return Desc{specs: specs} }

// ParseDesc parses a comma-separated codec chain, e.g. "ZSTD(3), LZ4".
// Names are case-insensitive; an empty string yields the zero Desc.
func ParseDesc(s string) (Desc, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Desc{}, nil
	}
	var d Desc
	for _, tok := range strings.Split(s, ",") {
		spec, err := parseSpec(strings.TrimSpace(tok))
		if err != nil {
			return Desc{}, err
		}
		d.specs = append(d.specs, spec)
	}
	return d, nil
}

func parseSpec(tok string) (spec Spec, err error) {
	if tok == "" {
		return spec, errors.Wrap(ErrBadSpec, "empty codec name")
	}
	open := strings.IndexByte(tok, '(')
	if open < 0 {
		spec.Name = strings.ToUpper(tok)
		return spec, nil
	}
	if !strings.HasSuffix(tok, ")") || open == 0 {
		return spec, errors.Wrapf(ErrBadSpec, "%q", tok)
	}
	spec.Name = strings.ToUpper(tok[:open])
	arg := strings.TrimSpace(tok[open+1 : len(tok)-1])
	if arg == "" {
		return spec, nil
	}
	spec.Level, err = strconv.Atoi(arg)
	if err != nil {
		return spec, errors.Wrapf(ErrBadSpec, "%q: bad level %q", tok, arg)
	}
	spec.HasLevel = true
	return spec, nil
}

// String renders the canonical textual form. Two descriptions are considered
// equal iff their renderings are equal; the zero Desc renders as "".
func (d Desc) String() string {
	if len(d.specs) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, spec := range d.specs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(spec.Name)
		if spec.HasLevel {
			sb.WriteByte('(')
			sb.WriteString(strconv.Itoa(spec.Level))
			sb.WriteByte(')')
		}
	}
	return sb.String()
}

func (d Desc) IsEmpty() bool         { return len(d.specs) == 0 }
func (d Desc) Specs() []Spec         { return d.specs }
func (d Desc) Equal(other Desc) bool { return d.String() == other.String() }

// MarshalJSON/UnmarshalJSON round-trip the canonical rendering, which is the
// form the part catalog persists.
func (d Desc) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Desc) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.Wrap(ErrBadSpec, string(b))
	}
	parsed, err := ParseDesc(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
