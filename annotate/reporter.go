package annotate

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// Reporter is the CI-facing output of a sync run. It pairs an annotation
// logger with the group delimiters that fold per-file output.
type Reporter struct {
	w      io.Writer
	mu     *sync.Mutex
	logger *slog.Logger
}

// NewReporter creates a Reporter writing to w.
func NewReporter(w io.Writer, opts *HandlerOptions) *Reporter {
	mu := &sync.Mutex{}
	return &Reporter{
		w:      w,
		mu:     mu,
		logger: slog.New(newHandler(w, mu, opts)),
	}
}

// Logger returns the underlying annotation logger.
func (r *Reporter) Logger() *slog.Logger {
	return r.logger
}

// Error writes an error annotation, scoped to file when it is not empty.
func (r *Reporter) Error(file, msg string) {
	r.log(slog.LevelError, file, msg)
}

// Warning writes a warning annotation, scoped to file when it is not empty.
func (r *Reporter) Warning(file, msg string) {
	r.log(slog.LevelWarn, file, msg)
}

// Notice writes a notice annotation, scoped to file when it is not empty.
func (r *Reporter) Notice(file, msg string) {
	r.log(LevelNotice, file, msg)
}

// Info writes a plain output line.
func (r *Reporter) Info(msg string) {
	r.log(slog.LevelInfo, "", msg)
}

// Debug writes a debug annotation, shown only when step debugging is on.
func (r *Reporter) Debug(msg string, args ...any) {
	r.logger.Debug(msg, args...)
}

// StartGroup opens a collapsible output group.
func (r *Reporter) StartGroup(title string) {
	r.write("::group::" + escapeData(title) + "\n")
}

// EndGroup closes the current output group.
func (r *Reporter) EndGroup() {
	r.write("::endgroup::\n")
}

func (r *Reporter) log(level slog.Level, file, msg string) {
	if file == "" {
		r.logger.Log(context.Background(), level, msg)
		return
	}
	r.logger.Log(context.Background(), level, msg, slog.String(FileKey, file))
}

func (r *Reporter) write(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = io.WriteString(r.w, s)
}
