package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"finchat/controller"
	"finchat/store"
	"finchat/transport"
	"finchat/types"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [chat-id]",
	Short: "Open the interactive chat",
	Long: `Open the interactive chat REPL. With a chat id argument the existing
conversation is loaded; without one, the first message starts a new chat.

In-REPL commands:
  /chats          list your chats
  /new [title]    start a new chat
  /switch <id>    switch to another chat
  /delete <id>    delete a chat
  /status         show connection status
  /quit           exit`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}

		var chatID int64
		if len(args) == 1 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chat id %q", args[0])
			}
			chatID = id
		}

		cfg := app.Config
		factory := transport.NewFactory(cfg.WSBaseURL, app.Sessions, cfg.WSDialTimeout, types.VisualizationOptions{
			IncludeTables:       cfg.IncludeTables,
			IncludeGraphs:       cfg.IncludeGraphs,
			PreferredGraphTypes: cfg.PreferredGraphTypes,
			MaxTables:           cfg.MaxTables,
			MaxGraphs:           cfg.MaxGraphs,
		})
		tr, err := transport.New(factory, cfg.DedupCacheSize, app.Logger)
		if err != nil {
			return err
		}

		st := store.NewStore()
		ctrl := controller.New(app.API, tr, st, app.Sessions, controller.Options{
			SettleDelay:  cfg.SendSettleDelay,
			PendingLimit: cfg.PendingQueueSize,
			WorkspaceID:  workspaceFlag,
		}, app.Logger)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		defer ctrl.Close()

		if err := ctrl.Start(ctx, chatID); err != nil {
			return err
		}
		return runChatREPL(ctx, ctrl, st)
	},
}

func runChatREPL(ctx context.Context, ctrl *controller.Controller, st *store.Store) error {
	r := newRenderer(st)
	ctrl.OnUpdate(r.renderNew)
	r.renderTimeline()
	r.printHint(ctrl.Workspace())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		r.prompt(ctrl.ConnectionStatus(), ctrl.AwaitingReply())
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := handleREPLCommand(ctx, ctrl, st, r, line)
			if err != nil {
				r.printError(err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := ctrl.Send(ctx, line); err != nil {
			r.printError(err)
		}
	}
}

// handleREPLCommand dispatches a /command. Returns true when the REPL
// should exit.
func handleREPLCommand(ctx context.Context, ctrl *controller.Controller, st *store.Store, r *renderer, line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil

	case "/status":
		fmt.Printf("connection: %s\n", ctrl.ConnectionStatus())
		return false, nil

	case "/chats":
		r.printChats(st.State())
		return false, nil

	case "/new":
		title := "New Chat"
		if len(fields) > 1 {
			title = strings.Join(fields[1:], " ")
		}
		chat, err := ctrl.NewChat(ctx, title)
		if err != nil {
			return false, err
		}
		r.reset()
		fmt.Printf("Started chat %d (%s)\n", chat.ID, chat.Title)
		return false, nil

	case "/switch":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: /switch <chat-id>")
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return false, fmt.Errorf("invalid chat id %q", fields[1])
		}
		if err := ctrl.SelectChat(ctx, id); err != nil {
			return false, err
		}
		r.reset()
		r.renderTimeline()
		return false, nil

	case "/delete":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: /delete <chat-id>")
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return false, fmt.Errorf("invalid chat id %q", fields[1])
		}
		if err := ctrl.DeleteChat(ctx, id); err != nil {
			return false, err
		}
		fmt.Printf("Deleted chat %d\n", id)
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
}

// renderer prints timeline updates without reprinting what the user has
// already seen. The controller's update callback runs on the event loop
// goroutine, so printing is serialized with a mutex.
type renderer struct {
	st *store.Store

	mu       sync.Mutex
	rendered int
}

func newRenderer(st *store.Store) *renderer {
	return &renderer{st: st}
}

func (r *renderer) reset() {
	r.mu.Lock()
	r.rendered = 0
	r.mu.Unlock()
}

func (r *renderer) renderTimeline() {
	r.mu.Lock()
	defer r.mu.Unlock()
	state := r.st.State()
	for _, msg := range state.Messages {
		printMessage(msg)
	}
	r.rendered = len(state.Messages)
}

// renderNew prints only messages appended since the last render.
func (r *renderer) renderNew() {
	r.mu.Lock()
	defer r.mu.Unlock()
	messages := r.st.State().Messages
	if len(messages) < r.rendered {
		// Timeline was replaced (temp message superseded); reprint from
		// scratch would be noisy, so just track the new length.
		r.rendered = len(messages)
		return
	}
	for _, msg := range messages[r.rendered:] {
		if msg.IsFromCurrentSession && msg.IsFromUser {
			// The user's own input was already echoed by the terminal.
			continue
		}
		fmt.Println()
		printMessage(msg)
	}
	r.rendered = len(messages)
}

func (r *renderer) prompt(status types.ConnectionStatus, awaiting bool) {
	fmt.Print(promptLabel(status, awaiting))
}

func (r *renderer) printChats(state store.State) {
	if len(state.Chats) == 0 {
		fmt.Println("No chats yet. Type a message to start one.")
		return
	}
	for _, chat := range state.Chats {
		marker := "  "
		if chat.ID == state.CurrentChatID {
			marker = "* "
		}
		fmt.Printf("%s%d  %s\n", marker, chat.ID, chat.Title)
	}
}

func (r *renderer) printHint(workspace string) {
	if workspace != "" {
		fmt.Printf("Workspace %s. Type a message, or /quit to exit.\n", workspace)
	} else {
		fmt.Println("Type a message, or /quit to exit.")
	}
}

func (r *renderer) printError(err error) {
	fmt.Println(errorStyle.Render("error: " + err.Error()))
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
