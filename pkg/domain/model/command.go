package model

import "strings"

// Command describes one external process invocation
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env replaces the inherited environment when non-nil
	Env []string
	// Stream copies the process output to the operator while it is captured
	Stream bool
}

// String renders the command line for logs
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// CommandResult holds the captured output of a finished process
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}
