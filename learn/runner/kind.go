package runner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/airlearn/airlearn/learn"
)

// ActionKind turns one atomic action instance into a process argv.
type ActionKind interface {
	Name() string
	Command(target learn.Target, action learn.AtomicAction, instance int) []string
}

// Placeholders recognized in TemplateKind argv entries.
var validPlaceholders = map[string]bool{
	"target":   true,
	"channel":  true,
	"iface":    true,
	"rate":     true,
	"threads":  true,
	"power":    true,
	"duration": true,
	"instance": true,
}

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// TemplateKind is an ActionKind defined by configuration: an argv template
// whose {placeholder} tokens are filled per worker instance.
type TemplateKind struct {
	Kind string   `yaml:"name"`
	Argv []string `yaml:"argv"`
}

// Name implements ActionKind.
func (k TemplateKind) Name() string { return k.Kind }

// Command implements ActionKind. Instances are numbered from 1.
func (k TemplateKind) Command(target learn.Target, action learn.AtomicAction, instance int) []string {
	r := strings.NewReplacer(
		"{target}", target.ID,
		"{channel}", target.Channel,
		"{iface}", target.Interface,
		"{rate}", strconv.Itoa(action.Levels.Rate),
		"{threads}", strconv.Itoa(action.Levels.Threads),
		"{power}", strconv.Itoa(action.Levels.Power),
		"{duration}", strconv.Itoa(action.Levels.Duration),
		"{instance}", strconv.Itoa(instance),
	)
	out := make([]string, len(k.Argv))
	for i, arg := range k.Argv {
		out[i] = r.Replace(arg)
	}
	return out
}

// Validate returns an error if the kind has no name, no program, or an
// unknown placeholder.
func (k TemplateKind) Validate() error {
	if k.Kind == "" {
		return fmt.Errorf("action kind name must not be empty")
	}
	if len(k.Argv) == 0 || k.Argv[0] == "" {
		return fmt.Errorf("action kind %q: argv must name a program", k.Kind)
	}
	for _, arg := range k.Argv {
		for _, m := range placeholderPattern.FindAllStringSubmatch(arg, -1) {
			if !validPlaceholders[m[1]] {
				return fmt.Errorf("action kind %q: unknown placeholder {%s}", k.Kind, m[1])
			}
		}
	}
	return nil
}
