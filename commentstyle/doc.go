// Package commentstyle maps file types to the comment syntax used to wrap a
// copyright notice.
//
// A [Style] is either a [Line] style, where every line carries a prefix such
// as "#", or a [Block] style, where text sits between delimiters such as
// "/*" and "*/". A [Registry] resolves the style for a path by extension,
// then by exact base name, then by the interpreter named in a shebang.
// Unknown files resolve to nothing: guessing the wrong syntax would corrupt
// source files.
//
// Some constructs must stay at the very top of a file: byte-order marks,
// shebang lines, XML declarations, PHP open tags and encoding pragmas.
// [Matchers] lists them in order and [SkipPreamble] reports where a notice
// may be inserted for a given style.
package commentstyle
