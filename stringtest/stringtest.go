// Package stringtest builds expected text for tests that compare whole file
// contents, where the exact bytes (indentation and line endings) matter.
package stringtest

import "strings"

// Input dedents a raw string literal so test inputs can be indented along
// with the surrounding code.
//
// One leading and one trailing newline are dropped, the longest whitespace
// prefix shared by all non-blank lines is removed, and whitespace-only lines
// become empty.
//
// Example:
//
//	src := stringtest.Input(`
//		#!/bin/sh
//		echo hi
//	`) // -> "#!/bin/sh\necho hi\n"
func Input(s string) string {
	s = strings.TrimPrefix(s, "\n")
	s = strings.TrimSuffix(s, "\n")

	lines := strings.Split(s, "\n")
	prefix := commonIndent(lines)

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""

			continue
		}

		lines[i] = strings.TrimPrefix(line, prefix)
	}

	return strings.Join(lines, "\n")
}

func commonIndent(lines []string) string {
	var (
		prefix string
		found  bool
	)

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !found {
			prefix, found = indent, true

			continue
		}

		n := 0
		for n < len(prefix) && n < len(indent) && prefix[n] == indent[n] {
			n++
		}

		prefix = prefix[:n]
	}

	return prefix
}

// JoinLF joins lines with LF line endings.
//
// Example:
//
//	want := stringtest.JoinLF(
//		"# Copyright 2019-2022 Acme",
//		"",
//		"echo hi",
//		"",
//	) // -> "# Copyright 2019-2022 Acme\n\necho hi\n"
func JoinLF(ss ...string) string {
	return strings.Join(ss, "\n")
}

// JoinCRLF joins lines with CRLF line endings. Newlines already inside an
// element are left alone.
func JoinCRLF(ss ...string) string {
	return strings.Join(ss, "\r\n")
}

// CRLF rewrites every LF in s that is not already preceded by CR as CRLF.
func CRLF(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\n", "\r\n")
}
