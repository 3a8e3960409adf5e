// Copyright (c) 2025, Andrey Nering <andrey@nering.com.br>
// See LICENSE for licensing information

package coreutils

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/elixir-ai-tools/just-bash-sub001/interp"
)

func readInputs(argv []string, stdin string, s *interp.State) (string, error) {
	if len(argv) == 0 {
		return stdin, nil
	}
	var b strings.Builder
	for _, name := range argv {
		if name == "-" {
			b.WriteString(stdin)
			continue
		}
		path := s.FS.ResolvePath(s.Cwd, name)
		data, err := s.FS.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		b.Write(data)
	}
	return b.String(), nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	trimmed := strings.TrimSuffix(s, "\n")
	return strings.Split(trimmed, "\n")
}

func cmdEcho(argv []string, stdin string, s *interp.State) result {
	args := argv[1:]
	newline := true
	interpretEscapes := false
	for len(args) > 0 {
		a := args[0]
		if len(a) < 2 || a[0] != '-' {
			break
		}
		valid := true
		for _, c := range a[1:] {
			if c != 'n' && c != 'e' && c != 'E' {
				valid = false
			}
		}
		if !valid {
			break
		}
		for _, c := range a[1:] {
			switch c {
			case 'n':
				newline = false
			case 'e':
				interpretEscapes = true
			}
		}
		args = args[1:]
	}
	out := strings.Join(args, " ")
	if interpretEscapes {
		out = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r", `\\`, `\`).Replace(out)
	}
	if newline {
		out += "\n"
	}
	return result{Stdout: out}
}

func cmdPrintf(argv []string, stdin string, s *interp.State) result {
	if len(argv) < 2 {
		return result{}
	}
	ctx := interp.BuildContext(s)
	out, _, err := ctx.Format(argv[1], argv[2:])
	if err != nil {
		return errResult("printf", err)
	}
	return result{Stdout: out}
}

func cmdCat(argv []string, stdin string, s *interp.State) result {
	fs := newFlagSet("cat")
	_ = fs.BoolP("number", "n", false, "")
	if err := fs.Parse(argv[1:]); err != nil {
		return errResult("cat", err)
	}
	numbered, _ := fs.GetBool("number")
	data, err := readInputs(fs.Args(), stdin, s)
	if err != nil {
		return errResult("cat", err)
	}
	if !numbered {
		return result{Stdout: data}
	}
	lines := splitLines(data)
	var b strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&b, "%6d\t%s\n", i+1, l)
	}
	return result{Stdout: b.String()}
}

func cmdHead(argv []string, stdin string, s *interp.State) result {
	fs := newFlagSet("head")
	n := fs.IntP("lines", "n", 10, "")
	if err := fs.Parse(argv[1:]); err != nil {
		return errResult("head", err)
	}
	data, err := readInputs(fs.Args(), stdin, s)
	if err != nil {
		return errResult("head", err)
	}
	lines := splitLines(data)
	if *n < len(lines) {
		lines = lines[:*n]
	}
	return result{Stdout: joinLines(lines)}
}

func cmdTail(argv []string, stdin string, s *interp.State) result {
	fs := newFlagSet("tail")
	n := fs.IntP("lines", "n", 10, "")
	if err := fs.Parse(argv[1:]); err != nil {
		return errResult("tail", err)
	}
	data, err := readInputs(fs.Args(), stdin, s)
	if err != nil {
		return errResult("tail", err)
	}
	lines := splitLines(data)
	if *n < len(lines) {
		lines = lines[len(lines)-*n:]
	}
	return result{Stdout: joinLines(lines)}
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func cmdWc(argv []string, stdin string, s *interp.State) result {
	fs := newFlagSet("wc")
	lns := fs.BoolP("lines", "l", false, "")
	words := fs.BoolP("words", "w", false, "")
	chars := fs.BoolP("chars", "c", false, "")
	if err := fs.Parse(argv[1:]); err != nil {
		return errResult("wc", err)
	}
	data, err := readInputs(fs.Args(), stdin, s)
	if err != nil {
		return errResult("wc", err)
	}
	nLines := strings.Count(data, "\n")
	nWords := len(strings.Fields(data))
	nChars := len(data)
	if !*lns && !*words && !*chars {
		return result{Stdout: fmt.Sprintf("%7d %7d %7d\n", nLines, nWords, nChars)}
	}
	var parts []string
	if *lns {
		parts = append(parts, strconv.Itoa(nLines))
	}
	if *words {
		parts = append(parts, strconv.Itoa(nWords))
	}
	if *chars {
		parts = append(parts, strconv.Itoa(nChars))
	}
	return result{Stdout: strings.Join(parts, " ") + "\n"}
}

func cmdTr(argv []string, stdin string, s *interp.State) result {
	fs := newFlagSet("tr")
	del := fs.BoolP("delete", "d", false, "")
	squeeze := fs.BoolP("squeeze-repeats", "s", false, "")
	if err := fs.Parse(argv[1:]); err != nil {
		return errResult("tr", err)
	}
	args := fs.Args()
	if len(args) == 0 {
		return result{}
	}
	from := expandTrSet(args[0])
	to := ""
	if len(args) > 1 {
		to = expandTrSet(args[1])
	}
	var b strings.Builder
	var lastWritten rune = -1
	for _, r := range stdin {
		idx := strings.IndexRune(from, r)
		if idx < 0 {
			b.WriteRune(r)
			lastWritten = r
			continue
		}
		if *del && to == "" {
			continue
		}
		out := r
		if to != "" {
			if idx < len(to) {
				out = rune(to[idx])
			} else {
				out = rune(to[len(to)-1])
			}
		}
		if *squeeze && out == lastWritten {
			continue
		}
		b.WriteRune(out)
		lastWritten = out
	}
	return result{Stdout: b.String()}
}

func expandTrSet(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if i+2 < len(runes) && runes[i+1] == '-' {
			for c := runes[i]; c <= runes[i+2]; c++ {
				b.WriteRune(c)
			}
			i += 2
			continue
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

func cmdCut(argv []string, stdin string, s *interp.State) result {
	fs := newFlagSet("cut")
	fields := fs.StringP("fields", "f", "", "")
	delim := fs.StringP("delimiter", "d", "\t", "")
	if err := fs.Parse(argv[1:]); err != nil {
		return errResult("cut", err)
	}
	data, err := readInputs(fs.Args(), stdin, s)
	if err != nil {
		return errResult("cut", err)
	}
	idxs, err := parseFieldList(*fields)
	if err != nil {
		return errResult("cut", err)
	}
	lines := splitLines(data)
	out := make([]string, len(lines))
	for i, line := range lines {
		cols := strings.Split(line, *delim)
		var picked []string
		for _, idx := range idxs {
			if idx >= 1 && idx <= len(cols) {
				picked = append(picked, cols[idx-1])
			}
		}
		out[i] = strings.Join(picked, *delim)
	}
	return result{Stdout: joinLines(out)}
}

func parseFieldList(spec string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(spec, ",") {
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			loN, err := strconv.Atoi(lo)
			if err != nil {
				return nil, err
			}
			hiN, err := strconv.Atoi(hi)
			if err != nil {
				return nil, err
			}
			for i := loN; i <= hiN; i++ {
				out = append(out, i)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func cmdSort(argv []string, stdin string, s *interp.State) result {
	fs := newFlagSet("sort")
	reverse := fs.BoolP("reverse", "r", false, "")
	numeric := fs.BoolP("numeric-sort", "n", false, "")
	unique := fs.BoolP("unique", "u", false, "")
	if err := fs.Parse(argv[1:]); err != nil {
		return errResult("sort", err)
	}
	data, err := readInputs(fs.Args(), stdin, s)
	if err != nil {
		return errResult("sort", err)
	}
	lines := splitLines(data)
	if *numeric {
		sort.SliceStable(lines, func(i, j int) bool {
			a, _ := strconv.ParseFloat(strings.TrimSpace(lines[i]), 64)
			b, _ := strconv.ParseFloat(strings.TrimSpace(lines[j]), 64)
			return a < b
		})
	} else {
		sort.Strings(lines)
	}
	if *reverse {
		for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
			lines[i], lines[j] = lines[j], lines[i]
		}
	}
	if *unique {
		lines = dedupe(lines)
	}
	return result{Stdout: joinLines(lines)}
}

func dedupe(lines []string) []string {
	var out []string
	for i, l := range lines {
		if i == 0 || l != lines[i-1] {
			out = append(out, l)
		}
	}
	return out
}

func cmdUniq(argv []string, stdin string, s *interp.State) result {
	fs := newFlagSet("uniq")
	count := fs.BoolP("count", "c", false, "")
	if err := fs.Parse(argv[1:]); err != nil {
		return errResult("uniq", err)
	}
	data, err := readInputs(fs.Args(), stdin, s)
	if err != nil {
		return errResult("uniq", err)
	}
	lines := splitLines(data)
	var out []string
	i := 0
	for i < len(lines) {
		j := i + 1
		for j < len(lines) && lines[j] == lines[i] {
			j++
		}
		if *count {
			out = append(out, fmt.Sprintf("%4d %s", j-i, lines[i]))
		} else {
			out = append(out, lines[i])
		}
		i = j
	}
	return result{Stdout: joinLines(out)}
}

func cmdRev(argv []string, stdin string, s *interp.State) result {
	data, err := readInputs(argv[1:], stdin, s)
	if err != nil {
		return errResult("rev", err)
	}
	lines := splitLines(data)
	for i, l := range lines {
		runes := []rune(l)
		for a, b := 0, len(runes)-1; a < b; a, b = a+1, b-1 {
			runes[a], runes[b] = runes[b], runes[a]
		}
		lines[i] = string(runes)
	}
	return result{Stdout: joinLines(lines)}
}

func cmdTac(argv []string, stdin string, s *interp.State) result {
	data, err := readInputs(argv[1:], stdin, s)
	if err != nil {
		return errResult("tac", err)
	}
	lines := splitLines(data)
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return result{Stdout: joinLines(lines)}
}

func cmdGrep(argv []string, stdin string, s *interp.State) result {
	fs := newFlagSet("grep")
	invert := fs.BoolP("invert-match", "v", false, "")
	ignoreCase := fs.BoolP("ignore-case", "i", false, "")
	lineNum := fs.BoolP("line-number", "n", false, "")
	countOnly := fs.BoolP("count", "c", false, "")
	fixed := fs.BoolP("fixed-strings", "F", false, "")
	if err := fs.Parse(argv[1:]); err != nil {
		return errResult("grep", err)
	}
	args := fs.Args()
	if len(args) == 0 {
		return result{Exit: 2, Stderr: "grep: missing pattern\n"}
	}
	pat := args[0]
	data, err := readInputs(args[1:], stdin, s)
	if err != nil {
		return errResult("grep", err)
	}
	var re *regexp.Regexp
	if !*fixed {
		expr := pat
		if *ignoreCase {
			expr = "(?i)" + expr
		}
		re, err = regexp.Compile(expr)
		if err != nil {
			return errResult("grep", err)
		}
	}
	lines := splitLines(data)
	var out []string
	matches := 0
	for i, line := range lines {
		var matched bool
		if *fixed {
			haystack, needle := line, pat
			if *ignoreCase {
				haystack, needle = strings.ToLower(haystack), strings.ToLower(needle)
			}
			matched = strings.Contains(haystack, needle)
		} else {
			matched = re.MatchString(line)
		}
		if matched != *invert {
			matches++
			if *lineNum {
				out = append(out, fmt.Sprintf("%d:%s", i+1, line))
			} else {
				out = append(out, line)
			}
		}
	}
	if *countOnly {
		return result{Stdout: strconv.Itoa(matches) + "\n", Exit: boolExit(matches > 0)}
	}
	return result{Stdout: joinLines(out), Exit: boolExit(matches > 0)}
}

func boolExit(ok bool) int {
	if ok {
		return 0
	}
	return 1
}
