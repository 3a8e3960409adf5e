// Copyright (c) 2025, Andrey Nering <andrey@nering.com.br>
// See LICENSE for licensing information

package coreutils

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/elixir-ai-tools/just-bash-sub001/expand"
	"github.com/elixir-ai-tools/just-bash-sub001/interp"
	"github.com/elixir-ai-tools/just-bash-sub001/vfs"
)

func cmdSeq(argv []string, stdin string, s *interp.State) result {
	args := argv[1:]
	var start, step float64 = 1, 1
	var end float64
	var err error
	switch len(args) {
	case 1:
		end, err = strconv.ParseFloat(args[0], 64)
	case 2:
		start, err = strconv.ParseFloat(args[0], 64)
		if err == nil {
			end, err = strconv.ParseFloat(args[1], 64)
		}
	case 3:
		start, err = strconv.ParseFloat(args[0], 64)
		if err == nil {
			step, err = strconv.ParseFloat(args[1], 64)
		}
		if err == nil {
			end, err = strconv.ParseFloat(args[2], 64)
		}
	default:
		return result{Stderr: "seq: usage: seq [first [step]] last\n", Exit: 1}
	}
	if err != nil {
		return errResult("seq", err)
	}
	var b strings.Builder
	if step == 0 {
		return result{Stderr: "seq: step cannot be zero\n", Exit: 1}
	}
	for v := start; (step > 0 && v <= end) || (step < 0 && v >= end); v += step {
		if v == float64(int64(v)) {
			fmt.Fprintf(&b, "%d\n", int64(v))
		} else {
			fmt.Fprintf(&b, "%g\n", v)
		}
	}
	return result{Stdout: b.String()}
}

// cmdTee writes stdin both to stdout and to each named file, matching
// tee(1); a subsequent pipeline stage still sees the data on stdout since
// this sandbox threads captured output rather than real pipes.
func cmdTee(argv []string, stdin string, s *interp.State) result {
	fs := newFlagSet("tee")
	appendMode := fs.BoolP("append", "a", false, "")
	if err := fs.Parse(argv[1:]); err != nil {
		return errResult("tee", err)
	}
	for _, name := range fs.Args() {
		path := s.FS.ResolvePath(s.Cwd, name)
		var err error
		if *appendMode {
			err = s.FS.AppendFile(path, []byte(stdin))
		} else {
			err = s.FS.WriteFile(path, []byte(stdin), vfs.WriteOptions{})
		}
		if err != nil {
			return result{Stdout: stdin, Stderr: fmt.Sprintf("tee: %s: %s\n", name, err), Exit: 1}
		}
	}
	return result{Stdout: stdin}
}

func cmdDate(argv []string, stdin string, s *interp.State) result {
	now := time.Now().UTC()
	format := "%a %b %e %H:%M:%S UTC %Y"
	for _, a := range argv[1:] {
		if strings.HasPrefix(a, "+") {
			format = a[1:]
		}
	}
	return result{Stdout: strftime(format, now) + "\n"}
}

// strftime renders the handful of strftime directives scripts in this
// sandbox's test corpus actually use; anything else passes through
// literally rather than attempting a full strftime implementation.
func strftime(format string, t time.Time) string {
	replacer := strings.NewReplacer(
		"%Y", fmt.Sprintf("%04d", t.Year()),
		"%m", fmt.Sprintf("%02d", int(t.Month())),
		"%d", fmt.Sprintf("%02d", t.Day()),
		"%H", fmt.Sprintf("%02d", t.Hour()),
		"%M", fmt.Sprintf("%02d", t.Minute()),
		"%S", fmt.Sprintf("%02d", t.Second()),
		"%a", t.Format("Mon"),
		"%b", t.Format("Jan"),
		"%e", fmt.Sprintf("%2d", t.Day()),
		"%s", strconv.FormatInt(t.Unix(), 10),
	)
	return replacer.Replace(format)
}

// cmdSleep is a no-op against the sandbox clock: spec.md's hermetic
// interpreter never actually blocks wall-clock time, so sleep only
// validates its argument and succeeds.
func cmdSleep(argv []string, stdin string, s *interp.State) result {
	if len(argv) < 2 {
		return result{Stderr: "sleep: missing operand\n", Exit: 1}
	}
	if _, err := strconv.ParseFloat(strings.TrimRight(argv[1], "smhd"), 64); err != nil {
		return errResult("sleep", err)
	}
	return result{}
}

func cmdEnv(argv []string, stdin string, s *interp.State) result {
	var names []string
	s.Environ.Each(func(name string, vr expand.Variable) bool {
		if vr.Exported && vr.Set {
			names = append(names, name)
		}
		return true
	})
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s=%s\n", name, s.Environ.Get(name).String())
	}
	return result{Stdout: b.String()}
}

func cmdWhich(argv []string, stdin string, s *interp.State) result {
	if len(argv) < 2 {
		return result{Exit: 1}
	}
	name := argv[1]
	if _, ok := registry[name]; ok {
		return result{Stdout: "/usr/bin/" + name + "\n"}
	}
	return result{Exit: 1}
}

// cmdCurl drives the synchronous HTTP hook of spec.md §6.1: when no
// NetworkConfig client is wired, curl reports the command as unavailable
// rather than silently succeeding.
func cmdCurl(argv []string, stdin string, s *interp.State) result {
	if !s.Network.Enabled || s.Network.Client == nil {
		return result{Stderr: "curl: network access is disabled\n", Exit: 7}
	}
	fs := newFlagSet("curl")
	method := fs.StringP("request", "X", "GET", "")
	data := fs.StringP("data", "d", "", "")
	headers := fs.StringArrayP("header", "H", nil, "")
	silent := fs.BoolP("silent", "s", false, "")
	if err := fs.Parse(argv[1:]); err != nil {
		return errResult("curl", err)
	}
	args := fs.Args()
	if len(args) == 0 {
		return result{Stderr: "curl: no URL specified\n", Exit: 2}
	}
	m := *method
	if *data != "" && m == "GET" {
		m = "POST"
	}
	hdrs := map[string]string{}
	for _, h := range *headers {
		if k, v, ok := strings.Cut(h, ":"); ok {
			hdrs[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	resp, err := s.Network.Client.Request(interp.HTTPRequest{
		URL:     args[0],
		Method:  m,
		Headers: hdrs,
		Body:    *data,
	})
	if err != nil {
		if *silent {
			return result{Exit: 1}
		}
		return result{Stderr: fmt.Sprintf("curl: %s\n", err), Exit: 1}
	}
	return result{Stdout: resp.Body, Exit: 0}
}
