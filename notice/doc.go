// Package notice parses notice templates, renders them in a comment style
// and finds notices that are already present in a file.
//
// A [Template] supports a closed set of placeholders, listed in
// [Placeholders]. Parsing fails on anything else so a typo never ends up in
// a source file.
//
// [Render] wraps an expanded template in a [commentstyle.Style]. A
// [Detector] compiles the same template into line patterns with the years
// left open, so a notice written by an earlier run is found again no matter
// which years it recorded. By default ([MatchMarker]) the detector also
// accepts any comment line holding a copyright marker and a year;
// [MatchTemplate] narrows it to the template alone. In line-comment
// languages that also have block comments, such as Go, a notice inside a
// "/* ... */" block is found and updated in place.
package notice
