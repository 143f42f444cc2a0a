package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wolfman30/pawcare-booking-chat/internal/action"
	"github.com/wolfman30/pawcare-booking-chat/internal/app/bootstrap"
	appconfig "github.com/wolfman30/pawcare-booking-chat/internal/config"
	"github.com/wolfman30/pawcare-booking-chat/internal/contact"
	"github.com/wolfman30/pawcare-booking-chat/internal/orchestrator"
	"github.com/wolfman30/pawcare-booking-chat/internal/session"
	"github.com/wolfman30/pawcare-booking-chat/internal/webchat"
	"github.com/wolfman30/pawcare-booking-chat/pkg/logging"
)

const chatHelp = `commands:
  <number>           pick an action or toggle a listed option
  /submit            send the current selection
  /cancel            dismiss the open panel
  /date D T TZ       send a date/time, e.g. /date 2024-03-05 14:30 America/New_York
  /reset             start over
  /quit              leave
anything else is sent as a message`

type chatOptions struct {
	webhookURL string
	firstName  string
	lastName   string
	email      string
	action     string
}

func newChatCmd() *cobra.Command {
	cfg := appconfig.Load()
	opts := chatOptions{webhookURL: cfg.BookingWebhookURL}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive booking conversation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.BookingWebhookURL = opts.webhookURL
			return runChat(cmd.Context(), cfg, opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&opts.webhookURL, "webhook-url", opts.webhookURL, "booking workflow webhook URL (env BOOKING_WEBHOOK_URL)")
	cmd.Flags().StringVar(&opts.firstName, "first-name", "", "customer first name")
	cmd.Flags().StringVar(&opts.lastName, "last-name", "", "customer last name")
	cmd.Flags().StringVar(&opts.email, "email", "", "customer email")
	cmd.Flags().StringVar(&opts.action, "action", "", "initial action to send, e.g. new_booking")
	return cmd
}

func runChat(ctx context.Context, cfg *appconfig.Config, opts chatOptions, in io.Reader, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.NewWithWriter(errOut, cfg.LogLevel)
	sender := bootstrap.BuildWebhookClient(cfg, nil, logger)
	orch := bootstrap.ConversationFactory(cfg, bootstrap.Deps{Sender: sender, Logger: logger})()

	info := contact.Info{FirstName: opts.firstName, LastName: opts.lastName, Email: opts.email}
	if err := orch.SetContact(info); err != nil {
		return err
	}

	r := &chatRenderer{out: out}
	r.render(orch.Snapshot())

	if opts.action != "" {
		a, err := action.Parse(opts.action)
		if err != nil {
			return err
		}
		snap, err := orch.ChooseAction(ctx, a)
		if err != nil {
			return err
		}
		r.render(snap)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch line {
		case "/quit":
			return nil
		case "/help":
			fmt.Fprintln(out, chatHelp)
			continue
		}
		snap, err := handleLine(ctx, orch, line)
		if err != nil {
			fmt.Fprintf(out, "! %v\n", err)
			continue
		}
		r.render(snap)
	}
}

func handleLine(ctx context.Context, orch *orchestrator.Orchestrator, line string) (orchestrator.Snapshot, error) {
	snap := orch.Snapshot()
	fields := strings.Fields(line)

	switch fields[0] {
	case "/submit":
		return orch.SubmitSelection(ctx)
	case "/cancel":
		if snap.Panel == session.PanelDateTime {
			return orch.CancelDateTime(), nil
		}
		return orch.CancelSelection(), nil
	case "/reset":
		return orch.Reset(ctx), nil
	case "/date":
		if len(fields) < 4 {
			return snap, fmt.Errorf("usage: /date YYYY-MM-DD HH:MM TIMEZONE")
		}
		req := webchat.DateTimeRequest{Date: fields[1], Time: fields[2], Timezone: strings.Join(fields[3:], " ")}
		sel, err := req.Selection()
		if err != nil {
			return snap, err
		}
		return orch.SubmitDateTime(ctx, sel)
	}

	if n, err := strconv.Atoi(line); err == nil {
		switch {
		case len(snap.Actions) > 0:
			if n < 1 || n > len(snap.Actions) {
				return snap, fmt.Errorf("pick an action between 1 and %d", len(snap.Actions))
			}
			return orch.ChooseAction(ctx, snap.Actions[n-1].Action)
		case snap.Panel == session.PanelSelection:
			if n < 1 || n > len(snap.Options) {
				return snap, fmt.Errorf("pick an option between 1 and %d", len(snap.Options))
			}
			return orch.Click(ctx, snap.Options[n-1].Name)
		}
	}
	return orch.SendText(ctx, line)
}

// chatRenderer prints transcript entries that have not been shown yet followed
// by whatever panel is open.
type chatRenderer struct {
	out     io.Writer
	printed int
}

func (r *chatRenderer) render(snap orchestrator.Snapshot) {
	if len(snap.Transcript) < r.printed {
		fmt.Fprintln(r.out, "-- conversation reset --")
		r.printed = 0
	}
	for _, msg := range snap.Transcript[r.printed:] {
		who := "assistant"
		if msg.FromUser {
			who = "you"
		}
		fmt.Fprintf(r.out, "%s: %s\n", who, msg.Text)
	}
	r.printed = len(snap.Transcript)

	switch {
	case len(snap.Actions) > 0:
		for i, def := range snap.Actions {
			fmt.Fprintf(r.out, "  %d. %s\n", i+1, def.Label)
		}
	case snap.Panel == session.PanelSelection:
		for i, opt := range snap.Options {
			mark := " "
			if opt.Selected || opt.Name == snap.MainService {
				mark = "x"
			}
			line := fmt.Sprintf("  %d. [%s] %s", i+1, mark, opt.Name)
			if opt.Description != "" {
				line += " - " + opt.Description
			}
			fmt.Fprintln(r.out, line)
		}
		if snap.AllowMultiple {
			fmt.Fprintln(r.out, "  (toggle options, then /submit)")
		}
	case snap.Panel == session.PanelDateTime:
		fmt.Fprintln(r.out, "  (send /date YYYY-MM-DD HH:MM TIMEZONE or /cancel)")
	}
}
