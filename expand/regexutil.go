// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import "regexp"

// regexpFindSubmatch returns the [start, end) byte range of expr's first
// (and only meaningful) submatch within s, or nil if it didn't match.
func regexpFindSubmatch(expr, s string) ([]int, error) {
	rx, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	loc := rx.FindStringSubmatchIndex(s)
	if loc == nil || len(loc) < 4 {
		return nil, nil
	}
	return []int{loc[2], loc[3]}, nil
}

// regexpReplaceN replaces the first n matches of expr in s with repl (n <
// 0 means all), backing ${name/pat/repl} and ${name//pat/repl}.
func regexpReplaceN(expr, s, repl string, n int) (string, error) {
	rx, err := regexp.Compile(expr)
	if err != nil {
		return s, nil
	}
	locs := rx.FindAllStringIndex(s, n)
	if len(locs) == 0 {
		return s, nil
	}
	var sb []byte
	last := 0
	for _, loc := range locs {
		sb = append(sb, s[last:loc[0]]...)
		sb = append(sb, repl...)
		last = loc[1]
	}
	sb = append(sb, s[last:]...)
	return string(sb), nil
}

// regexpRuneMatcher compiles expr and returns a predicate over single
// runes, used by ${name^pattern} / ${name,pattern} to restrict which
// characters get case-converted.
func regexpRuneMatcher(expr string) func(rune) bool {
	rx, err := regexp.Compile(expr)
	if err != nil {
		return func(rune) bool { return true }
	}
	return func(r rune) bool {
		return rx.MatchString(string(r))
	}
}
