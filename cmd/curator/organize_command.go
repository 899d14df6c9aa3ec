package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"curator/internal/activity"
	"curator/internal/applock"
	"curator/internal/fsops"
	"curator/internal/history"
	"curator/internal/materializer"
	"curator/internal/notifications"
	"curator/internal/oracle"
	"curator/internal/organize"
	"curator/internal/processor"
	"curator/internal/settings"
)

func newOrganizeCommand(cmdCtx *commandContext) *cobra.Command {
	var approveAll bool

	cmd := &cobra.Command{
		Use:   "organize [folder|file ...]",
		Short: "Request suggestions for watched files and review them",
		Long: `Runs one organization session: every file in the given folders (or the
configured watched folders when none are given) is sent to the suggestion
oracle, then an interactive review prompt lets you approve, reject, or edit
each suggestion. Approved changes are applied when items retire into history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.newLogger()
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			lock, err := applock.Acquire(cfg.Paths.DataDir)
			if err != nil {
				return err
			}
			defer lock.Release()

			archive, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history archive: %w", err)
			}
			defer archive.Close()

			folders, err := cmdCtx.openSettings(logger)
			if err != nil {
				return err
			}
			paths, err := resolveSessionPaths(folders, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(paths) == 0 {
				fmt.Fprintln(out, "No files to organize.")
				return nil
			}

			material := materializer.New(logger)
			notifier := notifications.NewService(cfg)
			store := activity.NewStore(logger,
				activity.WithSettleDelay(cfg.SettleDelay()),
				activity.WithApplier(material),
				activity.WithArchiver(archive),
				activity.WithRetirementHook(organize.RetirementNotifier(notifier, logger)),
			)
			client := oracle.NewClient(oracle.Config{
				APIKey:         cfg.LLM.APIKey,
				BaseURL:        cfg.LLM.BaseURL,
				Model:          cfg.LLM.Model,
				Referer:        cfg.LLM.Referer,
				Title:          cfg.LLM.Title,
				TimeoutSeconds: cfg.LLM.TimeoutSeconds,
				Destinations:   folders.DestinationFolders(),
			})
			runner := organize.New(cfg, store, processor.New(client, logger), material, notifier, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(out, "Organizing %d files...\n", len(paths))
			done := make(chan error, 1)
			go func() {
				done <- runner.Run(ctx, paths)
			}()

			session := &reviewSession{
				store:    store,
				out:      out,
				in:       cmd.InOrStdin(),
				colorize: shouldColorize(os.Stdout),
				settle:   cfg.SettleDelay(),
			}

			if approveAll {
				if err := <-done; err != nil {
					fmt.Fprintf(out, "Processing stopped early: %v\n", err)
				}
				store.ApproveAll()
				session.waitForRetirements(ctx)
				session.printHistory()
				return nil
			}

			session.loop(ctx, done)
			return nil
		},
	}

	cmd.Flags().BoolVar(&approveAll, "approve-all", false, "Approve every suggestion without interactive review")
	return cmd
}

// resolveSessionPaths expands the command arguments into concrete file
// paths, falling back to the configured watched folders.
func resolveSessionPaths(folders *settings.Store, args []string) ([]string, error) {
	if len(args) == 0 {
		return organize.CollectFiles(folders)
	}

	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if info.IsDir() {
			items, err := fsops.ReadFolder(arg)
			if err != nil {
				return nil, err
			}
			for _, item := range items {
				paths = append(paths, item.Path)
			}
			continue
		}
		paths = append(paths, arg)
	}
	return paths, nil
}

type reviewSession struct {
	store    *activity.Store
	out      io.Writer
	in       io.Reader
	colorize bool
	settle   time.Duration
}

func (s *reviewSession) loop(ctx context.Context, done chan error) {
	fmt.Fprintln(s.out, `Type "help" for review commands.`)
	scanner := bufio.NewScanner(s.in)
	processing := true

	for {
		select {
		case err := <-done:
			if processing {
				processing = false
				if err != nil && !errors.Is(err, context.Canceled) {
					fmt.Fprintf(s.out, "Processing stopped early: %v\n", err)
				}
			}
		default:
		}

		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			s.waitForRetirements(ctx)
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "list", "ls":
			s.printQueue()
		case "approve":
			s.terminalAction(fields[1:], s.store.Approve, s.store.ApproveAll)
		case "reject":
			s.terminalAction(fields[1:], s.store.Reject, s.store.RejectAll)
		case "name":
			s.edit(fields[1:], activity.Item.CanEditName, s.store.EditName)
		case "folder":
			s.edit(fields[1:], activity.Item.CanEditFolder, s.store.EditFolder)
		case "open":
			s.openItem(fields[1:])
		case "history":
			s.printHistory()
		case "help":
			s.printHelp()
		case "quit", "exit", "q":
			s.waitForRetirements(ctx)
			return
		default:
			fmt.Fprintf(s.out, "Unknown command %q; type \"help\".\n", fields[0])
		}
	}
}

func (s *reviewSession) printQueue() {
	items := s.store.Queue()
	current, total := s.store.Progress()
	if total > 0 {
		fmt.Fprintf(s.out, "Progress: %d/%d\n", current, total)
	}
	if len(items) == 0 {
		fmt.Fprintln(s.out, "Queue is empty.")
		return
	}

	rows := make([][]string, 0, len(items))
	for i, item := range items {
		suggested := item.FinalName()
		if suggested == "" {
			suggested = "-"
		}
		folder := item.FinalFolder()
		if folder == "" {
			folder = "-"
		}
		note := item.ErrorMessage
		if note == "" && item.UserAction.IsTerminal() {
			note = string(item.UserAction)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			item.OriginalName,
			renderStatus(item.Status, s.colorize),
			suggested,
			folder,
			note,
		})
	}
	fmt.Fprintln(s.out, renderTable(
		[]string{"#", "File", "Status", "Suggested Name", "Suggested Folder", "Note"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	))
}

func (s *reviewSession) printHistory() {
	records := s.store.History()
	if len(records) == 0 {
		fmt.Fprintln(s.out, "History is empty.")
		return
	}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			record.OriginalName,
			record.FinalName,
			record.FinalFolder,
			string(record.Action),
			record.RetiredAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	fmt.Fprintln(s.out, renderTable(
		[]string{"Original", "Final Name", "Final Folder", "Action", "Retired"},
		rows,
		nil,
	))
}

func (s *reviewSession) printHelp() {
	fmt.Fprintln(s.out, `Commands:
  list                 Show the review queue
  approve <#|all>      Approve an item (or everything reviewable)
  reject <#|all>       Reject an item (or everything reviewable)
  name <#> <value>     Override the suggested name
  folder <#> <value>   Override the suggested folder
  open <#>             Open the file with the default application
  history              Show retired items
  quit                 Finish pending retirements and exit`)
}

func (s *reviewSession) terminalAction(args []string, one func(string), all func()) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, "Usage: approve <#|all>")
		return
	}
	if args[0] == "all" {
		all()
		return
	}
	item, ok := s.itemAt(args[0])
	if !ok {
		return
	}
	one(item.ID)
}

func (s *reviewSession) edit(args []string, canEdit func(activity.Item) bool, apply func(id, value string)) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: name <#> <value>")
		return
	}
	item, ok := s.itemAt(args[0])
	if !ok {
		return
	}
	if !canEdit(item) {
		fmt.Fprintln(s.out, "Item can no longer be edited.")
		return
	}
	apply(item.ID, strings.Join(args[1:], " "))
}

func (s *reviewSession) openItem(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, "Usage: open <#>")
		return
	}
	item, ok := s.itemAt(args[0])
	if !ok {
		return
	}
	if err := fsops.OpenFile(item.FilePath); err != nil {
		fmt.Fprintf(s.out, "Open failed: %v\n", err)
	}
}

func (s *reviewSession) itemAt(arg string) (activity.Item, bool) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Fprintf(s.out, "Not an item number: %q\n", arg)
		return activity.Item{}, false
	}
	items := s.store.Queue()
	if index < 1 || index > len(items) {
		fmt.Fprintf(s.out, "No item %d in the queue.\n", index)
		return activity.Item{}, false
	}
	return items[index-1], true
}

// waitForRetirements blocks until every terminally-acted item has settled
// into history, so approved changes land before the process exits.
func (s *reviewSession) waitForRetirements(ctx context.Context) {
	deadline := time.Now().Add(s.settle + 5*time.Second)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return
		}
		pending := false
		for _, item := range s.store.Queue() {
			if item.UserAction.IsTerminal() {
				pending = true
				break
			}
		}
		if !pending {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}
