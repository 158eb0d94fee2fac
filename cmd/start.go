package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/himansukumarhkr/Click/internal/capture"
	"github.com/himansukumarhkr/Click/internal/clipboard"
	"github.com/himansukumarhkr/Click/internal/config"
	"github.com/himansukumarhkr/Click/internal/metrics"
	"github.com/himansukumarhkr/Click/internal/session"
	"github.com/himansukumarhkr/Click/internal/tui"
)

type startOptions struct {
	dir, name, mode, maxSize string

	logTitle, appendNum, autoCopy bool
	copyFiles, copyImage          bool
	clipHistory, noDate           bool

	grabCmd, source, watch string
	plain, verbose         bool
	metricsFile            string
}

var startOpts startOptions

// overrides turns the flags the user actually set into config overrides.
func (o *startOptions) overrides(cmd *cobra.Command) config.Overrides {
	var ov config.Overrides
	f := cmd.Flags()
	str := func(name string, v *string, dst **string) {
		if f.Changed(name) {
			*dst = v
		}
	}
	flag := func(name string, v *bool, dst **bool) {
		if f.Changed(name) {
			*dst = v
		}
	}
	str("dir", &o.dir, &ov.SaveDir)
	str("name", &o.name, &ov.Filename)
	str("mode", &o.mode, &ov.SaveMode)
	str("max-size", &o.maxSize, &ov.MaxSize)
	flag("log-title", &o.logTitle, &ov.LogTitle)
	flag("append-num", &o.appendNum, &ov.AppendNum)
	flag("auto-copy", &o.autoCopy, &ov.AutoCopy)
	flag("copy-files", &o.copyFiles, &ov.CopyFiles)
	flag("copy-image", &o.copyImage, &ov.CopyImage)
	flag("clip-history", &o.clipHistory, &ov.ClipHistory)
	if f.Changed("no-date") {
		byDate := !o.noDate
		ov.SaveByDate = &byDate
	}
	return ov
}

func (o *startOptions) grabber() capture.Grabber {
	switch {
	case o.source != "":
		return capture.FileGrabber{Path: o.source}
	case o.grabCmd != "":
		return capture.CommandGrabber{Args: capture.ParseCommand(o.grabCmd)}
	}
	if args := capture.DefaultCommand(); args != nil {
		return capture.CommandGrabber{Args: args}
	}
	return nil
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a capture session",
	Long: `Start a capture session and keep it open until you quit.

On a terminal a full-screen view lists the open sessions; press c to capture,
u to undo, n for a new session and ? for every key. With --plain, or when
stdin is not a terminal, one command is read per line:

  c        capture            u        undo
  r        start a new part   a        copy all captures
  m        copy the artifact  n        new session
  p N      pause session N    s N      resume session N
  x N      save and close N   l        list sessions
  q        save and quit      d        discard everything and quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		o := &startOpts
		file := GetSettings()
		cfg := config.Merge(&file, o.overrides(cmd))

		out := &syncWriter{w: cmd.OutOrStdout()}
		errOut := &syncWriter{w: cmd.ErrOrStderr()}

		logger, closeLog := openLogger(o, errOut)
		defer closeLog()

		metrics.Init()
		journal, err := session.NewJournal()
		if err != nil {
			return err
		}
		sweepAtStart(journal, logger.Printf)

		useTUI := !o.plain && term.IsTerminal(os.Stdin.Fd()) && term.IsTerminal(os.Stdout.Fd())

		clipOpts := clipboard.DefaultOptions()
		clipOpts.Image = cfg.CopyImage
		clipOpts.Files = cfg.CopyFiles

		var bridge tui.Bridge
		observer := bridge.Observe
		if !useTUI {
			observer = plainObserver(out, errOut)
		}

		grab := o.grabber()
		if grab == nil {
			fmt.Fprintf(errOut, "warning: %v; use --grab-cmd, --source or --watch\n", capture.ErrNoGrabber)
		}
		deps := session.Deps{
			Grabber:  grab,
			Title:    capture.Foreground(),
			Mirror:   clipboard.New(clipboard.System(), clipOpts, logger),
			Observer: observer,
			Journal:  journal,
			Logger:   logger,
		}
		newSession := func() (*session.Engine, error) {
			return session.New(cfg, deps)
		}

		first, err := newSession()
		if err != nil {
			return fmt.Errorf("starting session: %w", err)
		}
		reg := session.NewRegistry()
		reg.Add(first)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		if o.watch != "" {
			go func() {
				err := capture.Watch(ctx, o.watch, func(p string) {
					if e := reg.Active(); e != nil {
						e.CaptureWith(capture.FileGrabber{Path: p})
					}
				})
				if err != nil {
					fmt.Fprintf(errOut, "warning: watching %s: %v\n", o.watch, err)
				}
			}()
		}

		discard := false
		if useTUI {
			err = tui.Run(reg, &bridge, newSession)
		} else {
			fmt.Fprintf(out, "session 1: %s\n", first.ID())
			discard, err = runPlain(cmd.InOrStdin(), out, errOut, reg, newSession)
		}
		cancel()

		engines := reg.List()
		reg.CloseAll(discard)
		for _, e := range engines {
			if discard {
				fmt.Fprintf(out, "discarded %s\n", e.ID())
			} else {
				fmt.Fprintf(out, "saved %s (%d captures, %s)\n", e.ID(), e.Count(), e.Size())
			}
		}

		if o.metricsFile != "" {
			if werr := metrics.WriteTextfile(o.metricsFile); werr != nil {
				fmt.Fprintf(errOut, "warning: writing metrics: %v\n", werr)
			}
		}
		return err
	},
}

// runPlain reads line commands from in until q, d or end of input. It
// reports whether the user asked to discard everything.
func runPlain(in io.Reader, out, errOut io.Writer, reg *session.Registry, newSession func() (*session.Engine, error)) (bool, error) {
	noActive := func() {
		fmt.Fprintln(errOut, "warning: no active session (n starts one, s N resumes one)")
	}
	route := func(fn func() bool) {
		if !fn() {
			noActive()
		}
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "c", "capture":
			route(reg.Capture)
		case "u", "undo":
			route(reg.Undo)
		case "r", "rotate":
			route(reg.Rotate)
		case "a", "copy-all":
			route(reg.CopyAll)
		case "m", "copy-master":
			route(reg.CopyMasterFile)
		case "n", "new":
			e, err := newSession()
			if err != nil {
				fmt.Fprintf(errOut, "warning: new session: %v\n", err)
				continue
			}
			reg.Add(e)
			fmt.Fprintf(out, "session %d: %s\n", reg.Len(), e.ID())
		case "p", "pause", "s", "resume", "x", "close":
			e, err := sessionArg(reg, fields)
			if err != nil {
				fmt.Fprintf(errOut, "warning: %v\n", err)
				continue
			}
			switch fields[0] {
			case "p", "pause":
				err = reg.Pause(e.ID())
			case "s", "resume":
				err = reg.Resume(e.ID())
			default:
				err = reg.Close(e.ID(), false)
				if err == nil {
					fmt.Fprintf(out, "saved %s (%d captures, %s)\n", e.ID(), e.Count(), e.Size())
				}
			}
			if err != nil {
				fmt.Fprintf(errOut, "warning: %v\n", err)
			}
		case "l", "list":
			listSessions(out, reg)
		case "q", "quit":
			return false, nil
		case "d", "discard":
			return true, nil
		default:
			fmt.Fprintf(errOut, "warning: unknown command %q\n", fields[0])
		}
	}
	return false, scanner.Err()
}

// sessionArg resolves the 1-based session number in fields[1].
func sessionArg(reg *session.Registry, fields []string) (*session.Engine, error) {
	if len(fields) < 2 {
		return nil, fmt.Errorf("%s needs a session number", fields[0])
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("bad session number %q", fields[1])
	}
	return reg.At(n - 1)
}

func listSessions(out io.Writer, reg *session.Registry) {
	active := reg.Active()
	for i, e := range reg.List() {
		mark := " "
		if e == active {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %d  %-7s %-6s %4d  %-10s %s\n",
			mark, i+1, e.Status(), e.Mode(), e.Count(), e.Size(), e.ID())
	}
}

// plainObserver prints engine events one per line. Notify is skipped; the
// update that follows it carries the committed count.
func plainObserver(out, errOut io.Writer) session.Observer {
	return func(ev session.Event) {
		name := filepath.Base(ev.ID)
		switch ev.Kind {
		case session.EventUpdateSession:
			fmt.Fprintf(out, "saved capture %d to %s (%s)\n", ev.Count, name, ev.Size)
		case session.EventUndo:
			fmt.Fprintf(out, "undo: %d captures left in %s (%s)\n", ev.Count, name, ev.Size)
		case session.EventUpdateFilename:
			fmt.Fprintf(out, "continuing in %s\n", ev.NewID)
		case session.EventWarning:
			fmt.Fprintf(errOut, "warning: %s: %s\n", ev.Title, ev.Message)
		case session.EventCopyResult:
			if ev.OK {
				fmt.Fprintf(out, "copied %d item(s) to the clipboard\n", ev.Count)
			} else {
				fmt.Fprintln(errOut, "warning: nothing copied to the clipboard")
			}
		}
	}
}

// openLogger sends engine logs to stderr with --verbose in plain mode and to
// click.log in the data directory otherwise, so the full-screen view owns
// the terminal.
func openLogger(o *startOptions, stderr io.Writer) (*log.Logger, func()) {
	if o.verbose && o.plain {
		return log.New(stderr, "click: ", log.LstdFlags), func() {}
	}
	dir, err := session.DataDir()
	if err == nil {
		err = os.MkdirAll(dir, 0o755)
	}
	if err != nil {
		return log.New(io.Discard, "", 0), func() {}
	}
	f, err := os.OpenFile(filepath.Join(dir, "click.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return log.New(io.Discard, "", 0), func() {}
	}
	return log.New(f, "click: ", log.LstdFlags), func() { f.Close() }
}

// syncWriter serializes writes from the worker goroutines and the command
// loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func init() {
	f := startCmd.Flags()
	f.StringVar(&startOpts.dir, "dir", "", "Base directory for artifacts (default from settings)")
	f.StringVar(&startOpts.name, "name", "", "Artifact name without extension")
	f.StringVar(&startOpts.mode, "mode", "", "Artifact kind: docx or folder")
	f.StringVar(&startOpts.maxSize, "max-size", "", "Start a new document part past this many MB (empty = unlimited)")
	f.BoolVar(&startOpts.logTitle, "log-title", false, "Caption captures with the focused window title")
	f.BoolVar(&startOpts.appendNum, "append-num", true, "Caption captures with their number")
	f.BoolVar(&startOpts.autoCopy, "auto-copy", false, "Copy every capture to the clipboard")
	f.BoolVar(&startOpts.copyFiles, "copy-files", true, "Clipboard copies include the file list")
	f.BoolVar(&startOpts.copyImage, "copy-image", true, "Clipboard copies include the bitmap")
	f.BoolVar(&startOpts.clipHistory, "clip-history", false, "Copy all replays each image for clipboard history")
	f.BoolVar(&startOpts.noDate, "no-date", false, "Do not nest artifacts under a dd-mm-YYYY directory")
	f.StringVar(&startOpts.grabCmd, "grab-cmd", "", "Screenshot command; {out} is replaced by the PNG path to write")
	f.StringVar(&startOpts.source, "source", "", "Capture this image file instead of the screen")
	f.StringVar(&startOpts.watch, "watch", "", "Capture every image that appears in this directory")
	f.BoolVar(&startOpts.plain, "plain", false, "Read line commands from stdin instead of the full-screen view")
	f.BoolVar(&startOpts.verbose, "verbose", false, "Log to stderr (with --plain)")
	f.StringVar(&startOpts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	rootCmd.AddCommand(startCmd)
}
