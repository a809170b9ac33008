package logs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/reusee/taiplan/cmds"
	"github.com/reusee/taiplan/modes"
	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

var (
	level    = new(slog.LevelVar)
	jsonFlag = cmds.SwitchDesc("-log-json", "write logs as json lines")
)

func init() {
	for name, l := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		cmds.Define("-log-"+name, cmds.Func(func() {
			level.Set(l)
		}).Desc("set log level to "+name))
	}
}

type Logger = *slog.Logger

// Logger fans records out to the writer and, for production processes logging to stderr, the systemd journal.
// Under a systemd service the journal is the only destination.
func (Module) Logger(
	writer Writer,
	mode modes.Mode,
) Logger {
	var handlers []slog.Handler

	var local slog.Handler
	if !underSystemdService() {
		local = textOrJSON(writer)
		handlers = append(handlers, local)
	}

	if mode == modes.ModeProduction && writer == Writer(os.Stderr) {
		journal, err := newJournalHandler()
		if err == nil {
			handlers = append(handlers, journal)
		} else if local != nil {
			record := slog.NewRecord(time.Now(), slog.LevelDebug, "no systemd journal", 0)
			record.Add("error", err)
			_ = local.Handle(context.Background(), record)
		}
	}

	return slog.New(&Handler{
		Handler: slogmulti.Fanout(handlers...),
	})
}

func textOrJSON(w io.Writer) slog.Handler {
	options := &slog.HandlerOptions{
		Level: level,
	}
	if *jsonFlag {
		return slog.NewJSONHandler(w, options)
	}
	return slog.NewTextHandler(w, options)
}

func newJournalHandler() (slog.Handler, error) {
	return slogjournal.NewHandler(&slogjournal.Options{
		Level:        level,
		ReplaceGroup: journalKey,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			a.Key = journalKey(a.Key)
			return a
		},
	})
}

// journalKey maps an attribute key to the journal field alphabet.
func journalKey(key string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, strings.ToUpper(key))
}

func underSystemdService() bool {
	content, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}
	// hierarchy-ID:controllers:path
	fields := strings.SplitN(strings.TrimSpace(string(content)), ":", 3)
	if len(fields) < 3 {
		return false
	}
	return strings.HasSuffix(path.Dir(fields[2]), ".service")
}
