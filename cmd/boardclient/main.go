package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"eventstorming-sync-server/internal/apiclient"
	"eventstorming-sync-server/internal/board"
	"eventstorming-sync-server/internal/config"
	"eventstorming-sync-server/internal/domain"
	"eventstorming-sync-server/internal/session"
	"eventstorming-sync-server/pkg/logger"

	"go.uber.org/zap"
)

const usage = `commands:
  list                      list boards
  create <name>             create a board
  join <board-id> [user]    join a board
  leave                     leave the board
  show                      print the board
  members                   print who is on the board
  rename <name>             rename the board
  note <type> <x> <y>       add a note (event, command, aggregate, user, policy, readModel, externalSystem, concern)
  text <note-id> <text>     edit a note's text
  move <note-id> <x> <y>    move a note
  resize <note-id> <w> <h>  resize a note
  connect <from> <to>       connect two notes
  select <note-id>...       select notes (no ids clears the selection)
  delete                    delete the selected notes
  copy                      copy the selected notes
  paste <x> <y>             paste the copied notes
  undo | redo               undo or redo your last change
  save                      save now
  quit`

type clipboard struct {
	notes []domain.Note
	conns []domain.Connection
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	serverURL := flag.String("server", cfg.Client.ServerURL, "server base URL")
	userName := flag.String("user", os.Getenv("USER"), "name shown to other participants")
	flag.Parse()

	zapLogger, err := logger.New(cfg.Server.Env, getLogLevel(cfg.Logging.Level))
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := apiclient.New(*serverURL)
	transport := session.NewWSTransport(wsURL(*serverURL), session.DefaultTransportOptions(), zapLogger)
	sess := session.New(transport, api, zapLogger)
	saver := session.NewSaver(sess, api, cfg.Client.SaveInterval, zapLogger)

	sess.OnChange(func(c session.Change) {
		if c.Remote && c.Kind == session.ChangeMembers {
			fmt.Printf("* %d participant(s) on the board\n", len(sess.Members()))
		}
	})

	go transport.Run(ctx, sess)
	saverDone := make(chan struct{})
	go func() {
		saver.Run(ctx)
		close(saverDone)
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Println(usage)
	var clip clipboard

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if quit := run(ctx, line, *userName, api, sess, saver, &clip); quit {
				break loop
			}
		}
	}

	sess.Leave()
	stop()
	<-saverDone
}

func run(ctx context.Context, line, userName string, api *apiclient.Client, sess *session.Session, saver *session.Saver, clip *clipboard) bool {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false
	}

	var err error
	switch args[0] {
	case "quit", "exit":
		return true

	case "list":
		var boards []domain.BoardSummary
		if boards, err = api.ListBoards(ctx); err == nil {
			for _, b := range boards {
				fmt.Printf("%s  %s\n", b.ID, b.Name)
			}
		}

	case "create":
		var b *domain.Board
		if b, err = api.CreateBoard(ctx, strings.Join(args[1:], " ")); err == nil {
			fmt.Printf("created %s\n", b.ID)
		}

	case "join":
		if len(args) < 2 {
			err = fmt.Errorf("usage: join <board-id> [user]")
			break
		}
		name := userName
		if len(args) > 2 {
			name = strings.Join(args[2:], " ")
		}
		if _, err = saver.SaveNow(ctx); err != nil {
			err = fmt.Errorf("board not switched, save failed: %w", err)
			break
		}
		err = sess.Join(ctx, args[1], name)

	case "leave":
		sess.Leave()

	case "show":
		printBoard(sess)

	case "members":
		fmt.Printf("status: %s\n", sess.Status())
		for _, m := range sess.Members() {
			fmt.Printf("  %s (%s)\n", m.UserName, m.ConnectionID)
		}

	case "rename":
		err = sess.Execute(board.RenameBoard{OldName: sess.State().Name, NewName: strings.Join(args[1:], " ")})

	case "note":
		var x, y float64
		if x, y, err = floats(args, 2); err == nil {
			note := board.NewNote(domain.NoteType(args[1]), x, y)
			if err = sess.Execute(board.CreateNote{Note: note}); err == nil {
				fmt.Printf("note %s\n", note.ID)
			}
		}

	case "text":
		if len(args) < 2 {
			err = fmt.Errorf("usage: text <note-id> <text>")
			break
		}
		err = withNote(sess, args[1], func(n domain.Note) board.Command {
			return board.EditNoteText{NoteID: n.ID, FromText: n.Text, ToText: strings.Join(args[2:], " ")}
		})

	case "move":
		var x, y float64
		if x, y, err = floats(args, 2); err == nil {
			err = withNote(sess, args[1], func(n domain.Note) board.Command {
				return board.NewMoveNotes(
					[]domain.NoteMove{{NoteID: n.ID, Coordinates: domain.Coordinates{X: n.X, Y: n.Y}}},
					[]domain.NoteMove{{NoteID: n.ID, Coordinates: domain.Coordinates{X: x, Y: y}}},
				)
			})
		}

	case "resize":
		var w, h float64
		if w, h, err = floats(args, 2); err == nil {
			err = withNote(sess, args[1], func(n domain.Note) board.Command {
				from := n.Size()
				to := domain.ClampInteractiveSize(from, domain.NoteSize{X: n.X, Y: n.Y, Width: w, Height: h})
				return board.ResizeNote{NoteID: n.ID, From: from, To: to}
			})
		}

	case "connect":
		if len(args) != 3 {
			err = fmt.Errorf("usage: connect <from> <to>")
			break
		}
		err = sess.Execute(board.CreateConnection{Connection: domain.Connection{FromNoteID: args[1], ToNoteID: args[2]}})

	case "select":
		sess.View(func(s *board.State) {
			s.Selection().Clear()
			for _, id := range args[1:] {
				if _, ok := s.Note(id); ok {
					s.Selection().SelectNote(id)
				}
			}
		})

	case "delete":
		var cmd board.DeleteNotes
		sess.View(func(s *board.State) {
			cmd = selectedForDelete(s)
		})
		if len(cmd.Notes) == 0 && len(cmd.Connections) == 0 {
			err = fmt.Errorf("nothing selected")
			break
		}
		err = sess.Execute(cmd)

	case "copy":
		sess.View(func(s *board.State) {
			clip.notes, clip.conns = board.CopySelection(s)
		})
		fmt.Printf("copied %d note(s)\n", len(clip.notes))

	case "paste":
		var x, y float64
		if x, y, err = floats(args, 1); err == nil {
			paste := board.NewPaste(clip.notes, clip.conns, domain.Coordinates{X: x, Y: y})
			if len(paste.Notes) == 0 {
				err = fmt.Errorf("clipboard is empty")
				break
			}
			err = sess.Execute(paste)
		}

	case "undo":
		if !sess.Undo() {
			fmt.Println("nothing to undo")
		}

	case "redo":
		if !sess.Redo() {
			fmt.Println("nothing to redo")
		}

	case "save":
		var saved bool
		if saved, err = saver.SaveNow(ctx); err == nil && !saved {
			fmt.Println("nothing to save")
		}

	case "help":
		fmt.Println(usage)

	default:
		err = fmt.Errorf("unknown command %q", args[0])
	}

	if err != nil {
		fmt.Printf("error: %v\n", err)
	}
	return false
}

// selectedForDelete collects the selected notes and every connection that
// would be left without one of its ends.
func selectedForDelete(s *board.State) board.DeleteNotes {
	var notes []domain.Note
	for _, n := range s.Notes() {
		if s.Selection().NoteSelected(n.ID) {
			notes = append(notes, n)
		}
	}

	var conns []domain.Connection
	for _, c := range s.Connections() {
		if s.Selection().ConnectionSelected(c) ||
			s.Selection().NoteSelected(c.FromNoteID) ||
			s.Selection().NoteSelected(c.ToNoteID) {
			conns = append(conns, c)
		}
	}
	return board.NewDeleteNotes(notes, conns)
}

func withNote(sess *session.Session, id string, build func(n domain.Note) board.Command) error {
	var (
		n  domain.Note
		ok bool
	)
	sess.View(func(s *board.State) {
		n, ok = s.Note(id)
	})
	if !ok {
		return fmt.Errorf("no note %s", id)
	}
	return sess.Execute(build(n))
}

// floats parses the two numbers that follow position skip in args.
func floats(args []string, skip int) (float64, float64, error) {
	if len(args) < skip+2 {
		return 0, 0, fmt.Errorf("expected two numbers")
	}
	a, err := strconv.ParseFloat(args[skip], 64)
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.ParseFloat(args[skip+1], 64)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func printBoard(sess *session.Session) {
	sess.View(func(s *board.State) {
		fmt.Printf("%s (%s)\n", s.Name, s.ID)
		for _, n := range s.Notes() {
			mark := " "
			if s.Selection().NoteSelected(n.ID) {
				mark = "*"
			}
			fmt.Printf(" %s %s [%s] %q at (%.0f,%.0f) %.0fx%.0f\n", mark, n.ID, n.Type, n.Text, n.X, n.Y, n.Width, n.Height)
		}
		for _, c := range s.Connections() {
			if s.Drawable(c) {
				fmt.Printf("   %s -> %s\n", c.FromNoteID, c.ToNoteID)
			}
		}
	})
}

func wsURL(serverURL string) string {
	u := strings.TrimRight(serverURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

// getLogLevel keeps the interactive prompt readable unless asked otherwise.
func getLogLevel(level string) string {
	if os.Getenv("LOG_LEVEL") == "" {
		return zap.WarnLevel.String()
	}
	return level
}
