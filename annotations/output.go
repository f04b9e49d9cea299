package annotations

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

// OutputFormatter formats events for human-readable display.
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
}

// NewOutputFormatter creates a formatter with color support detection.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}

	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isTerminal(f.Fd())
	}

	return &OutputFormatter{
		useColor: useColor,
		writer:   w,
	}
}

// Handle implements the Handler signature - prints events as they occur.
func (f *OutputFormatter) Handle(event Event) {
	output := f.Format(event)
	if output != "" {
		fmt.Fprintln(f.writer, output)
	}
}

// Format converts an event to a human-readable string.
func (f *OutputFormatter) Format(event Event) string {
	latency := f.formatLatency(event.Latency)

	switch event.Name {
	case EngineInvoked:
		return fmt.Sprintf("%s %s %s starting with %s",
			latency,
			f.colorize("===", color.FgYellow),
			event.Data["engine"],
			f.colorizeCount("relations", intData(event, "relations.count")))

	case EngineComplete:
		return fmt.Sprintf("%s %s %s done with %s",
			latency,
			f.colorize("===", color.FgGreen),
			event.Data["engine"],
			f.colorizeCount("tuples", intData(event, "result.size")))

	case YannakakisReduce:
		return fmt.Sprintf("%s SemiJoin(%s with %s) %d -> %d tuples",
			latency,
			event.Data["parent"],
			event.Data["child"],
			intData(event, "before.size"),
			intData(event, "after.size"))

	case YannakakisJoin, JoinHash, JoinNested:
		return fmt.Sprintf("%s Join %d x %d -> %s",
			latency,
			intData(event, "left.size"),
			intData(event, "right.size"),
			f.colorizeCount("tuples", intData(event, "result.size")))

	case GenericJoinExtend:
		return fmt.Sprintf("%s Extend %s with %s",
			latency,
			event.Data["attribute"],
			f.colorizeCount("candidates", intData(event, "candidates.count")))

	case GenericJoinPrune:
		return fmt.Sprintf("%s %s no candidates for %s, pruned",
			latency,
			f.colorize("x", color.FgRed),
			event.Data["attribute"])

	case DecompExpand:
		return fmt.Sprintf("%s Expand component of %s at width %v",
			latency,
			f.colorizeCount("edges", intData(event, "component.size")),
			event.Data["width"])

	case DecompSolution:
		return fmt.Sprintf("%s %s decomposition of width %v with %s",
			latency,
			f.colorize("===", color.FgGreen),
			event.Data["width"],
			f.colorizeCount("bags", intData(event, "bags.count")))

	case DecompCover:
		return fmt.Sprintf("%s Cover of %v: %v (weight %v)",
			latency,
			event.Data["bag"],
			event.Data["cover"],
			event.Data["weight"])

	case JoinTreeBuilt:
		return fmt.Sprintf("%s Join tree built over %s rooted at %s",
			latency,
			f.colorizeCount("relations", intData(event, "relations.count")),
			event.Data["root"])

	default:
		// Generic format for unknown events
		return fmt.Sprintf("%s %s %v", latency, event.Name, event.Data)
	}
}

func intData(event Event, key string) int {
	if v, ok := event.Data[key].(int); ok {
		return v
	}
	return 0
}

// formatLatency formats a duration as [XXXms] or [XXXµs] with color coding.
func (f *OutputFormatter) formatLatency(d time.Duration) string {
	if d < time.Millisecond {
		s := fmt.Sprintf("[%dµs]", d.Microseconds())
		if !f.useColor {
			return s
		}
		return color.GreenString(s)
	}

	ms := float64(d.Microseconds()) / 1000.0
	s := fmt.Sprintf("[%.1fms]", ms)

	if !f.useColor {
		return s
	}

	switch {
	case ms < 50:
		return color.GreenString(s)
	case ms < 200:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

// colorizeCount formats a count with a label, colored by label type.
func (f *OutputFormatter) colorizeCount(label string, count int) string {
	text := fmt.Sprintf("%d %s", count, label)
	if !f.useColor {
		return text
	}

	switch label {
	case "relations", "bags":
		return color.CyanString(text)
	case "tuples", "candidates":
		return color.MagentaString(text)
	case "edges":
		return color.BlueString(text)
	default:
		return text
	}
}

// colorize applies color if enabled.
func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

// ConsoleHandler creates a handler that prints formatted events to stdout.
func ConsoleHandler() Handler {
	formatter := NewOutputFormatter(os.Stdout)
	return formatter.Handle
}

// isTerminal checks if the file descriptor is a terminal.
func isTerminal(fd uintptr) bool {
	return fd == uintptr(1) || fd == uintptr(2) // stdout or stderr
}
