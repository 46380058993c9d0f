package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alist-org/arkit/cmd/flags"
	"github.com/alist-org/arkit/internal/bootstrap"
	"github.com/alist-org/arkit/internal/conf"
	"github.com/alist-org/arkit/internal/model"
	"github.com/alist-org/arkit/pkg/archive"
	"github.com/alist-org/arkit/pkg/errs"
	"github.com/alist-org/arkit/pkg/format"
	"github.com/alist-org/arkit/pkg/utils"
	"github.com/pkg/errors"
)

// Init loads config, logging and rate limits. Every command runs it first.
func Init() error {
	if err := bootstrap.InitConfig(flags.ConfigFile); err != nil {
		return err
	}
	bootstrap.InitLog(flags.Debug, flags.LogStd)
	bootstrap.InitStreamLimit()
	return nil
}

func openLibrary() (*archive.Library, error) {
	var opts []archive.LibraryOption
	if dir := conf.Conf.Archive.TempDir; dir != "" {
		opts = append(opts, archive.WithTempDir(dir))
	}
	return archive.Load(opts...)
}

func resolveFormat() (*format.InFormat, error) {
	name := flags.Format
	if name == "" {
		name = conf.Conf.Archive.Format
	}
	if name == "" {
		return format.Auto, nil
	}
	f, ok := format.ByName(name)
	if !ok {
		return nil, errs.Newf(errs.KindUnsupportedFormat, "format", "unknown format %q", name)
	}
	return f, nil
}

// newHandler builds the handler every command shares: format, password,
// threads and overwrite policy from flags and config, and progress on
// stderr when not printing JSON.
func newHandler(opts ...archive.Option) (*archive.Handler, error) {
	f, err := resolveFormat()
	if err != nil {
		return nil, err
	}
	overwrite, err := archive.ParseOverwrite(conf.Conf.Archive.Overwrite)
	if err != nil {
		return nil, err
	}
	base := []archive.Option{
		archive.WithFormat(f),
		archive.WithPassword(flags.Password),
		archive.WithThreads(conf.Conf.Archive.Threads),
		archive.WithOverwrite(overwrite),
	}
	if !flags.JSON {
		base = append(base, progressOptions()...)
	}
	return archive.NewHandler(append(base, opts...)...), nil
}

func progressOptions() []archive.Option {
	var total uint64
	throttle := utils.NewThrottle(500 * time.Millisecond)
	return []archive.Option{
		archive.WithTotal(func(n uint64) { total = n }),
		archive.WithProgress(func(done uint64) bool {
			if total > 0 {
				throttle(func() {
					fmt.Fprintf(os.Stderr, "\r%5.1f%% of %s", float64(done)/float64(total)*100, model.Size(total))
				})
			}
			return true
		}),
	}
}

func printJSON(v any) error {
	data, err := utils.Json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}

func printInfo(format string, args ...any) {
	if !flags.JSON {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// withReader opens the archive at path for the duration of fn.
func withReader(path string, fn func(r *archive.Reader) error, opts ...archive.Option) error {
	lib, err := openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()
	h, err := newHandler(opts...)
	if err != nil {
		return err
	}
	r, err := lib.OpenReader(h, path)
	if err != nil {
		return err
	}
	defer r.Close()
	return fn(r)
}

// withWriter opens path for editing, runs fn and commits the result.
func withWriter(ctx context.Context, path string, fn func(w *archive.Writer) error, opts ...archive.WriterOption) error {
	lib, err := openLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()
	h, err := newHandler()
	if err != nil {
		return err
	}
	w, err := lib.NewWriter(h, path, opts...)
	if err != nil {
		return err
	}
	defer w.Close()
	if err = fn(w); err != nil {
		return err
	}
	if err = w.ApplyChanges(ctx); err != nil {
		return err
	}
	printInfo("\n%s: %d items\n", path, w.ItemsCount())
	return nil
}
