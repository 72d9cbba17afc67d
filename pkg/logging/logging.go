package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/cdnsync/pkg/errors"
	"github.com/sidkik/cdnsync/pkg/version"
)

// FileName is the name of the log file within the synced directory.
const FileName = "cdnsync.log"

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// fileFormatter writes one JSON object per line.
var fileFormatter = &logrus.JSONFormatter{
	FieldMap: logrus.FieldMap{
		logrus.FieldKeyTime:  "timestamp",
		logrus.FieldKeyLevel: "level",
		logrus.FieldKeyMsg:   "message",
	},
}

// FileHook appends log entries to a file, regardless of the verbosity of the
// terminal output.
type FileHook struct {
	levels []logrus.Level

	lock sync.Mutex
	file afero.File
}

// NewFileHook opens the log file in `dir` for appending. Debug entries are
// included.
func NewFileHook(dir string) (*FileHook, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, errors.WithContext(err, "create log directory")
	}

	path := filepath.Join(dir, FileName)
	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.WithContext(err, "open log file")
	}

	return &FileHook{levels: levelsUpTo(logrus.DebugLevel), file: f}, nil
}

// Install adds the hook to `logger`. The logger's level is lowered to Debug so
// that debug entries reach the file, while the logger's output only receives
// entries at or above `terminalLevel`.
func (h *FileHook) Install(logger *logrus.Logger, terminalLevel logrus.Level) {
	logger.AddHook(&writerHook{
		out:       logger.Out,
		formatter: logger.Formatter,
		levels:    levelsUpTo(terminalLevel),
	})
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	logger.AddHook(h)
}

func (h *FileHook) Levels() []logrus.Level {
	return h.levels
}

func (h *FileHook) Fire(entry *logrus.Entry) error {
	data := logrus.Fields{"version": version.Version}
	for k, v := range entry.Data {
		data[k] = v
	}

	// Copy the entry so that the version isn't added to the terminal output.
	entryCopy := *entry
	entryCopy.Data = data

	line, err := fileFormatter.Format(&entryCopy)
	if err != nil {
		return nil
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	h.file.Write(line)

	// Never return an error because doing so causes the error to be printed
	// directly to `stderr`, which messes up the progress output.
	return nil
}

// Close closes the log file.
func (h *FileHook) Close() error {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.file.Close()
}

// writerHook writes entries to `out`. It stands in for the logger's own output
// once the logger's level has been lowered for the file.
type writerHook struct {
	formatter logrus.Formatter
	levels    []logrus.Level

	lock sync.Mutex
	out  io.Writer
}

func (h *writerHook) Levels() []logrus.Level {
	return h.levels
}

func (h *writerHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	_, err = h.out.Write(line)
	return err
}

func levelsUpTo(max logrus.Level) (levels []logrus.Level) {
	for _, level := range logrus.AllLevels {
		if level <= max {
			levels = append(levels, level)
		}
	}
	return levels
}
