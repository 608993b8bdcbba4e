package filters

import (
	"io"

	"go.uber.org/zap"

	"github.com/dshills/glintercept/internal/filter"
	"github.com/dshills/glintercept/internal/logging"
)

// Log is the bootstrap filter-set.
type Log struct {
	out      io.Writer
	filename string
	level    string
	logger   *zap.Logger
	closeLog func()
}

// NewLog creates the log filter-set. Without a filename it writes to out.
func NewLog(out io.Writer) *Log {
	return &Log{out: out, level: "info", logger: zap.NewNop()}
}

// Info returns the registration descriptor.
func (l *Log) Info(name string) filter.FilterSetInfo {
	return filter.FilterSetInfo{
		Name:   name,
		Help:   "logs messages from the other filter-sets",
		Plugin: l,
		Variables: []filter.Variable{
			{
				Name:  "filename",
				Help:  "file to write the log to (default stderr)",
				Type:  filter.VarString,
				Value: &l.filename,
			},
			{
				Name:  "level",
				Help:  "minimum level: debug, info, warn or error",
				Type:  filter.VarString,
				Value: &l.level,
				OnSet: func(_ *filter.FilterSet, value any) error {
					_, err := logging.ParseLevel(value.(string))
					return err
				},
			},
		},
	}
}

// Load opens the log destination.
func (l *Log) Load(set *filter.FilterSet) error {
	level, err := logging.ParseLevel(l.level)
	if err != nil {
		return err
	}
	if l.filename == "" {
		l.logger = logging.NewWriter(l.out, level)
		return nil
	}
	logger, closeLog, err := logging.New(logging.Config{Level: level, File: l.filename})
	if err != nil {
		return err
	}
	l.logger = logger
	l.closeLog = closeLog
	return nil
}

// Unload flushes the logger and closes the log file.
func (l *Log) Unload(set *filter.FilterSet) {
	_ = l.logger.Sync()
	if l.closeLog != nil {
		l.closeLog()
		l.closeLog = nil
	}
	l.logger = zap.NewNop()
}

// Logger returns the logger for the named filter-set. Before Load it
// discards everything.
func (l *Log) Logger(filterSet string) *zap.Logger {
	return l.logger.Named(filterSet)
}
