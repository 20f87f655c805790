package importer

import (
	"context"
	"strings"
)

// DefaultCommand is the trigger command recognised when none is configured.
const DefaultCommand = "/zobs"

// ParseTarget returns the second space-separated token of line.
func ParseTarget(line string) (string, error) {
	parts := strings.Split(strings.TrimSpace(line), " ")
	if len(parts) < 2 || parts[1] == "" {
		return "", ErrNoTarget
	}
	return parts[1], nil
}

// Trigger dispatches command lines from a host session to an Importer.
type Trigger struct {
	Command  string
	Importer *Importer
	// OnReport, when set, receives every run's report.
	OnReport func(rep *Report, err error)
}

// Matches reports whether line invokes the trigger command.
func (t *Trigger) Matches(line string) bool {
	fields := strings.Fields(line)
	return len(fields) > 0 && fields[0] == t.command()
}

// Handle runs an import when line invokes the command. Other lines are not
// handled and are left for the host.
func (t *Trigger) Handle(ctx context.Context, line string) (bool, error) {
	if !t.Matches(line) {
		return false, nil
	}
	rep, err := t.Importer.RunTrigger(ctx, line)
	if t.OnReport != nil {
		t.OnReport(rep, err)
	}
	return true, err
}

func (t *Trigger) command() string {
	if t.Command == "" {
		return DefaultCommand
	}
	return t.Command
}
