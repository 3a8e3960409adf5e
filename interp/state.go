// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

// Package interp implements the tree-walking interpreter (C5) and sandbox
// state (C6) of spec.md §4.5 and §3.3. It is grounded on the coherent v3
// generation of the teacher's interp package (api.go's Runner/RunnerOption
// shape, runner.go's statement/pipeline execution, builtin.go's builtin
// catalogue, handler.go's pluggable-handler idiom) adapted from a
// real-OS-executing interpreter to one that executes purely against the
// vfs and expand packages: no os.Exec, no real file descriptors, no host
// environment.
package interp

import (
	"github.com/elixir-ai-tools/just-bash-sub001/syntax"
	"github.com/elixir-ai-tools/just-bash-sub001/vfs"
)

// HTTPRequest and HTTPResponse are the synchronous request/response shape
// curl drives through the network hook (spec.md §6.1's http_client option).
type HTTPRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    string
}

type HTTPResponse struct {
	Status  int
	Headers map[string]string
	Body    string
}

// HTTPClient is the external collaborator curl calls into; spec.md §1
// keeps its implementation out of scope and only specifies this contract.
type HTTPClient interface {
	Request(req HTTPRequest) (HTTPResponse, error)
}

// NetworkConfig is the sandbox's network posture (spec.md §6.1).
type NetworkConfig struct {
	Enabled bool
	Client  HTTPClient
}

// ShellOptions is the small set of recognized shell options spec.md §3.3
// names: errexit, nounset, pipefail, xtrace. noglob is carried alongside
// them since set -f is a companion option the same builtin (`set`) flips.
type ShellOptions struct {
	Errexit  bool
	Nounset  bool
	Pipefail bool
	Xtrace   bool
	Noglob   bool
}

// funcDef is a registered function: its parsed body.
type funcDef struct {
	Body *syntax.Command
}

// State is the sandbox's value-typed record (spec.md §3.3). Every
// interpreter operation conceptually takes one and returns a new one;
// State.Clone gives callers (and the interpreter's own subshell handling)
// a real, independent copy including the virtual filesystem, matching
// §8.1's P4 subshell-isolation property.
type State struct {
	Environ    *Environ
	Cwd        string
	FS         *vfs.FS
	Functions  map[string]*funcDef
	LastExit   int
	PipeStatus []int
	Positional []string
	Options    ShellOptions
	Network    NetworkConfig
	UserHomes  map[string]string

	lastBgPID int
	aliases   map[string]string
	exitTrap  string
}

// StateOption configures a new State, mirroring the teacher's functional
// RunnerOption idiom (api.go) adapted to value-typed sandbox construction.
type StateOption func(*State)

// WithEnv seeds the initial environment from name=value pairs, all marked
// exported (spec.md §6.1's `env` option).
func WithEnv(pairs map[string]string) StateOption {
	return func(s *State) {
		for k, v := range pairs {
			s.Environ.vars[k] = expandVariableString(v, true)
		}
	}
}

// WithCwd sets the initial working directory (must exist in fs by the
// time Execute runs; NewState does not itself validate this since fs may
// still be seeded after construction via WithFiles).
func WithCwd(path string) StateOption {
	return func(s *State) { s.Cwd = vfs.Normalize(path) }
}

// WithFiles seeds the virtual filesystem's initial contents (spec.md
// §6.3's file-map shapes: string/[]byte/FileSeed/Provider).
func WithFiles(files map[string]any) StateOption {
	return func(s *State) { s.FS.Seed(files) }
}

// WithNetwork configures the curl network hook (spec.md §6.1).
func WithNetwork(enabled bool, client HTTPClient) StateOption {
	return func(s *State) { s.Network = NetworkConfig{Enabled: enabled, Client: client} }
}

// WithUserHomes configures ~user resolution (spec.md §6.1's user_homes).
func WithUserHomes(homes map[string]string) StateOption {
	return func(s *State) { s.UserHomes = homes }
}

// defaultEnv is spec.md §6.1's documented new_state default environment.
func defaultEnv() map[string]string {
	return map[string]string{
		"HOME":  "/home/user",
		"PATH":  "/usr/bin:/bin",
		"USER":  "user",
		"PWD":   "/home/user",
		"SHELL": "/bin/bash",
	}
}

// NewState constructs a sandbox State with spec.md §6.1's documented
// defaults, then applies opts in order.
func NewState(opts ...StateOption) *State {
	s := &State{
		Environ:    newEnviron(),
		Cwd:        "/home/user",
		FS:         vfs.New(),
		Functions:  make(map[string]*funcDef),
		PipeStatus: []int{0},
		UserHomes:  map[string]string{},
	}
	for k, v := range defaultEnv() {
		s.Environ.vars[k] = expandVariableString(v, true)
	}
	s.FS.Mkdir(s.Cwd, true)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Clone returns an independent copy of s: a subsequent write to the clone's
// environment, functions, positional parameters or filesystem never
// affects s, per spec.md §4.5.2's "each pipeline stage is a subshell" and
// §8.1's P4.
func (s *State) Clone() *State {
	cp := *s
	cp.Environ = s.Environ.clone()
	cp.FS = s.FS.Clone()
	cp.Functions = make(map[string]*funcDef, len(s.Functions))
	for k, v := range s.Functions {
		cp.Functions[k] = v
	}
	cp.Positional = append([]string(nil), s.Positional...)
	cp.PipeStatus = append([]int(nil), s.PipeStatus...)
	cp.UserHomes = make(map[string]string, len(s.UserHomes))
	for k, v := range s.UserHomes {
		cp.UserHomes[k] = v
	}
	cp.aliases = nil
	if s.aliases != nil {
		cp.aliases = make(map[string]string, len(s.aliases))
		for k, v := range s.aliases {
			cp.aliases[k] = v
		}
	}
	return &cp
}
