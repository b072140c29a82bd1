// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package dump

import (
	"bytes"
	"fmt"

	"github.com/strongdm/go-composefs/tree"
)

// parseUint64 strictly parses an unsigned decimal field: empty or
// non-digit input fails with ErrInvalidInteger rather than silently
// returning zero, per the format's strict-parsing requirement.
func parseUint64(field []byte) (uint64, error) {
	if len(field) == 0 {
		return 0, fmt.Errorf("%w: empty field", ErrInvalidInteger)
	}
	var v uint64
	for _, c := range field {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidInteger, field)
		}
		v = v*10 + uint64(c-'0')
	}
	return v, nil
}

func parseUint32(field []byte) (uint32, error) {
	v, err := parseUint64(field)
	if err != nil {
		return 0, err
	}
	if v > 0xffffffff {
		return 0, fmt.Errorf("%w: %q overflows 32 bits", ErrInvalidInteger, field)
	}
	return uint32(v), nil
}

// hardlinkMarker is the '@' prefix on MODE that flags a record as a
// hardlink rather than a fresh node definition.
const hardlinkMarker = '@'

// parseMode parses the MODE field: an optional leading '@' (hardlink
// flag) followed by an octal file-type+permission value.
func parseMode(field []byte) (mode uint32, isHardlink bool, err error) {
	if len(field) == 0 {
		return 0, false, fmt.Errorf("%w: empty mode field", ErrInvalidInteger)
	}
	if field[0] == hardlinkMarker {
		isHardlink = true
		field = field[1:]
	}
	if len(field) == 0 {
		return 0, false, fmt.Errorf("%w: empty mode field", ErrInvalidInteger)
	}
	var v uint64
	for _, c := range field {
		if c < '0' || c > '7' {
			return 0, false, fmt.Errorf("%w: %q is not valid octal", ErrInvalidInteger, field)
		}
		v = v*8 + uint64(c-'0')
	}
	if v > 0xffffffff {
		return 0, false, fmt.Errorf("%w: %q overflows 32 bits", ErrInvalidInteger, field)
	}
	return uint32(v), isHardlink, nil
}

// parseMtime parses the "<sec>.<nsec>" MTIME field.
func parseMtime(field []byte) (tree.Time, error) {
	dot := bytes.IndexByte(field, '.')
	if dot < 0 {
		return tree.Time{}, fmt.Errorf("%w: missing '.' in %q", ErrInvalidMtime, field)
	}
	sec, err := parseUint64(field[:dot])
	if err != nil {
		return tree.Time{}, fmt.Errorf("%w: seconds: %v", ErrInvalidMtime, err)
	}
	nsec, err := parseUint64(field[dot+1:])
	if err != nil {
		return tree.Time{}, fmt.Errorf("%w: nanoseconds: %v", ErrInvalidMtime, err)
	}
	return tree.Time{Sec: sec, Nsec: nsec}, nil
}

// splitXattr splits a trailing "key=value" field on the first unescaped
// '=' byte. Since Encode escapes literal '=' to "\x3d", any '=' surviving
// in the raw field is the separator, not data; a field with no '=' has an
// empty value.
func splitXattr(field []byte) (key, value []byte) {
	eq := bytes.IndexByte(field, '=')
	if eq < 0 {
		return field, nil
	}
	return field[:eq], field[eq+1:]
}
