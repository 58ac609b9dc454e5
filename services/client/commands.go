package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/moses-Dera/TaskFlow-sub000/internal/config"
	"github.com/moses-Dera/TaskFlow-sub000/internal/gateway"
	"github.com/moses-Dera/TaskFlow-sub000/internal/model"
)

func loginCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and remember the credential for this profile",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true},
			&cli.StringFlag{Name: "password", EnvVars: []string{"TASKFLOW_PASSWORD"}, Required: true},
		},
		Action: func(c *cli.Context) error {
			e, err := openEnv(c.Context, cfg)
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := e.gw.Login(c.Context, c.String("email"), c.String("password"))
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			ident, err := e.session.SignIn(c.Context, res.Token)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			fmt.Printf("signed in as %s (%s), session expires %s\n", ident.Name, ident.Role, humanize.Time(ident.ExpiresAt))
			return nil
		},
	}
}

func logoutCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Forget the credential for this profile",
		Action: func(c *cli.Context) error {
			e, err := openEnv(c.Context, cfg)
			if err != nil {
				return err
			}
			defer e.Close()
			return e.session.SignOut(c.Context)
		},
	}
}

func whoamiCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in user",
		Action: func(c *cli.Context) error {
			e, err := openEnv(c.Context, cfg)
			if err != nil {
				return err
			}
			defer e.Close()
			ident, err := e.identity()
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s) id=%s profile=%s expires %s\n",
				ident.Name, ident.Role, ident.UserID, cfg.Profile, humanize.Time(ident.ExpiresAt))
			return nil
		},
	}
}

func sendCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Send one message to the group or to a user",
		ArgsUsage: "TEXT",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Usage: "recipient user `ID`; empty sends to the group"},
			&cli.StringFlag{Name: "reply-to", Usage: "message `ID` being answered"},
			&cli.StringSliceFlag{Name: "file", Aliases: []string{"f"}, Usage: "attach `PATH` (repeatable)"},
		},
		Action: func(c *cli.Context) error {
			text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			files := c.StringSlice("file")
			if text == "" && len(files) == 0 {
				return cli.Exit("nothing to send", 2)
			}
			e, err := openEnv(c.Context, cfg)
			if err != nil {
				return err
			}
			defer e.Close()
			if _, err := e.identity(); err != nil {
				return err
			}

			// Every upload has to succeed before the message goes out.
			atts := make([]model.Attachment, 0, len(files))
			for _, path := range files {
				att, err := uploadFile(c, e.gw, path)
				if err != nil {
					return err
				}
				atts = append(atts, att)
			}
			msg, err := e.gw.SendMessage(c.Context, gateway.SendRequest{
				Content:         text,
				RecipientID:     c.String("to"),
				ReplyToID:       c.String("reply-to"),
				Attachments:     atts,
				ClientMessageID: uuid.NewString(),
			})
			if err != nil {
				return fmt.Errorf("send: %w", err)
			}
			fmt.Printf("sent %s\n", msg.ID)
			return nil
		},
	}
}

func uploadFile(c *cli.Context, gw *gateway.Client, path string) (model.Attachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Attachment{}, err
	}
	defer f.Close()
	att, err := gw.UploadAttachment(c.Context, gateway.Upload{FileName: filepath.Base(path), Body: f})
	if err != nil {
		return model.Attachment{}, fmt.Errorf("upload %s: %w", path, err)
	}
	return att, nil
}

func searchCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search messages you can see",
		ArgsUsage: "TEXT",
		Action: func(c *cli.Context) error {
			text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if text == "" {
				return nil
			}
			e, err := openEnv(c.Context, cfg)
			if err != nil {
				return err
			}
			defer e.Close()
			msgs, err := e.gw.SearchMessages(c.Context, text)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			for i := range msgs {
				printMessage(&msgs[i], "")
			}
			fmt.Printf("%s found\n", plural(len(msgs), "message"))
			return nil
		},
	}
}

func notificationsCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:    "notifications",
		Aliases: []string{"n"},
		Usage:   "List notifications",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "read", Usage: "mark notification `ID` read (repeatable)"},
			&cli.BoolFlag{Name: "read-all", Usage: "mark every notification read"},
			&cli.BoolFlag{Name: "unread", Usage: "show unread notifications only"},
		},
		Action: func(c *cli.Context) error {
			e, err := openEnv(c.Context, cfg)
			if err != nil {
				return err
			}
			defer e.Close()

			if c.Bool("read-all") {
				if err := e.gw.MarkAllNotificationsRead(c.Context); err != nil {
					return err
				}
			}
			for _, id := range c.StringSlice("read") {
				if err := e.gw.MarkNotificationRead(c.Context, id); err != nil {
					return fmt.Errorf("mark %s read: %w", id, err)
				}
			}
			items, err := e.gw.ListNotifications(c.Context)
			if err != nil {
				return err
			}
			unread := 0
			for _, n := range items {
				if !n.Read {
					unread++
				} else if c.Bool("unread") {
					continue
				}
				printNotification(n)
			}
			fmt.Printf("%s unread\n", humanize.Comma(int64(unread)))
			return nil
		},
	}
}

func tasksCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "List your tasks or change a task's status",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "set", Usage: "task `ID` to update (with --status)"},
			&cli.StringFlag{Name: "status", Usage: "pending, in-progress or completed"},
		},
		Action: func(c *cli.Context) error {
			e, err := openEnv(c.Context, cfg)
			if err != nil {
				return err
			}
			defer e.Close()

			if id := c.String("set"); id != "" {
				t, err := e.gw.UpdateTaskStatus(c.Context, id, model.TaskStatus(c.String("status")))
				if err != nil {
					return fmt.Errorf("update task %s: %w", id, err)
				}
				printTask(t)
				return nil
			}
			tasks, err := e.gw.ListTasks(c.Context)
			if err != nil {
				return err
			}
			for _, t := range tasks {
				printTask(t)
			}
			return nil
		},
	}
}

func performanceCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "performance",
		Usage: "Show team performance",
		Action: func(c *cli.Context) error {
			e, err := openEnv(c.Context, cfg)
			if err != nil {
				return err
			}
			defer e.Close()
			rows, err := e.gw.ListPerformance(c.Context)
			if err != nil {
				return err
			}
			for _, p := range rows {
				fmt.Printf("%-24s %3d/%-3d done  %5.1f%%  score %s\n",
					p.Name, p.TasksCompleted, p.TasksAssigned, p.CompletionRate, humanize.FtoaWithDigits(p.Score, 2))
			}
			return nil
		},
	}
}

func printMessage(m *model.Message, marker string) {
	var flags []string
	if m.Edited {
		flags = append(flags, "edited")
	}
	if m.Pinned {
		flags = append(flags, "pinned")
	}
	suffix := ""
	if len(flags) > 0 {
		suffix = " (" + strings.Join(flags, ", ") + ")"
	}
	fmt.Printf("%s[%s] %s %s: %s%s\n", marker, humanize.Time(m.CreatedAt), m.ID, senderName(m.Sender), m.Content, suffix)
	for _, a := range m.Attachments {
		fmt.Printf("    + %s (%s, %s)\n", a.FileName, a.MimeType, humanize.Bytes(uint64(max(a.Size, 0))))
	}
	for _, r := range m.Reactions {
		fmt.Printf("    %s x%d\n", r.Emoji, len(r.Users))
	}
}

func senderName(u model.UserRef) string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}

func printNotification(n model.Notification) {
	mark := " "
	if !n.Read {
		mark = "*"
	}
	fmt.Printf("%s %s [%s] %s: %s (%s)\n", mark, n.ID, n.Category, n.Title, n.Message, humanize.Time(n.CreatedAt))
}

func printTask(t model.Task) {
	due := "no due date"
	if t.DueDate != nil {
		due = "due " + humanize.Time(*t.DueDate)
	}
	fmt.Printf("%s  %-12s %s (%s)\n", t.ID, t.Status, t.Title, due)
}

func plural(n int, word string) string {
	return humanize.Comma(int64(n)) + " " + english.PluralWord(n, word, "")
}
