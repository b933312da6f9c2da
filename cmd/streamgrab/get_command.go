package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"streamgrab/internal/downloader"
	"streamgrab/internal/queue"
	"streamgrab/internal/workflow"
)

const getShutdownTimeout = 10 * time.Second

func newGetCommand(ctx *commandContext) *cobra.Command {
	var meta queue.Metadata
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "get <url>...",
		Short: "Download URLs in the foreground without the daemon",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 && (meta.Title != "" || meta.OutputFilename != "") {
				return errors.New("--title and --filename apply to a single URL")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			errOut := cmd.ErrOrStderr()
			var progress *mpb.Progress
			logOut := errOut
			if !noProgress && shouldColorize(errOut) {
				progress = mpb.NewWithContext(signalCtx, mpb.WithOutput(errOut), mpb.WithWidth(40))
				logOut = progress
			}
			logger, err := localLogger(cfg, logOut)
			if err != nil {
				return err
			}

			tracker := newGetTracker(progress)
			orchestrator := queue.New(downloader.NewFromConfig(cfg, logger), queue.Options{
				MaxConcurrent: cfg.Download.MaxConcurrent,
				Logger:        logger,
				Sinks:         []queue.EventSink{tracker},
			})
			for _, rawURL := range args {
				itemMeta := meta
				itemMeta.URL = rawURL
				id := orchestrator.Enqueue(itemMeta)
				item, _ := orchestrator.Get(id)
				tracker.track(id, item.DisplayTitle())
			}

			dispatcher := workflow.NewDispatcher(cfg, orchestrator, logger)
			dispatcher.SetAutoStart(true)
			orchestrator.Subscribe(dispatcher)
			if err := dispatcher.Start(signalCtx); err != nil {
				return err
			}

			interrupted := false
			select {
			case <-tracker.done:
			case <-signalCtx.Done():
				interrupted = true
			}
			dispatcher.Stop()
			shutdownCtx, stop := context.WithTimeout(context.Background(), getShutdownTimeout)
			defer stop()
			_ = orchestrator.Shutdown(shutdownCtx)
			tracker.abortRemaining()
			if progress != nil {
				progress.Wait()
			}

			if interrupted {
				fmt.Fprintln(cmd.OutOrStdout(), "Interrupted; unfinished downloads were discarded")
				return context.Canceled
			}
			return summarizeDownloads(cmd.OutOrStdout(), orchestrator.List())
		},
	}

	cmd.Flags().StringVar(&meta.Title, "title", "", "Title used for the output filename")
	cmd.Flags().StringVarP(&meta.Quality, "quality", "q", "", "Preferred quality (1080p, 720p, best)")
	cmd.Flags().StringVarP(&meta.OutputDir, "output-dir", "o", "", "Directory for the finished file")
	cmd.Flags().StringVar(&meta.OutputFilename, "filename", "", "Output filename (extension is added when missing)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bars")
	return cmd
}

func summarizeDownloads(out io.Writer, items []queue.Item) error {
	failed := 0
	for _, item := range items {
		switch item.Status {
		case queue.StatusCompleted:
			fmt.Fprintf(out, "Saved %s -> %s\n", item.DisplayTitle(), item.FilePath)
		default:
			failed++
			fmt.Fprintf(out, "Failed %s: %s\n", item.DisplayTitle(), dashIfEmpty(item.Error))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(items))
	}
	return nil
}

// getTracker drives one progress bar per item and signals done once every
// tracked item reaches a terminal status. Bars are optional.
type getTracker struct {
	progress *mpb.Progress

	mu       sync.Mutex
	bars     map[string]*mpb.Bar
	pending  map[string]struct{}
	done     chan struct{}
	doneOnce sync.Once
}

var _ queue.EventSink = (*getTracker)(nil)

func newGetTracker(progress *mpb.Progress) *getTracker {
	return &getTracker{
		progress: progress,
		bars:     make(map[string]*mpb.Bar),
		pending:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

func (t *getTracker) track(id, label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[id] = struct{}{}
	if t.progress == nil {
		return
	}
	t.bars[id] = t.progress.AddBar(100,
		mpb.PrependDecorators(decor.Name(truncate(label, 40), decor.WCSyncSpaceR)),
		mpb.AppendDecorators(
			decor.OnAbort(decor.OnComplete(decor.Percentage(decor.WC{W: 6}), "done"), "stopped"),
		),
	)
}

func (t *getTracker) Emit(ev queue.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.pending[ev.ID]; !ok {
		return nil
	}
	bar := t.bars[ev.ID]
	switch ev.Status {
	case queue.StatusDownloading:
		if bar != nil {
			bar.SetCurrent(int64(ev.Progress))
		}
	case queue.StatusCompleted:
		if bar != nil {
			bar.SetCurrent(100)
		}
		t.finishLocked(ev.ID)
	case queue.StatusFailed, queue.StatusCancelled:
		if bar != nil {
			bar.Abort(false)
		}
		t.finishLocked(ev.ID)
	}
	return nil
}

func (t *getTracker) finishLocked(id string) {
	delete(t.pending, id)
	delete(t.bars, id)
	if len(t.pending) == 0 {
		t.doneOnce.Do(func() { close(t.done) })
	}
}

// abortRemaining stops bars of items that never finished so the progress
// container can drain.
func (t *getTracker) abortRemaining() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, bar := range t.bars {
		bar.Abort(false)
		delete(t.bars, id)
	}
}
