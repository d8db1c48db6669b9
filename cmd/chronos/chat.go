package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/MrWong99/chronos/internal/chat"
	"github.com/MrWong99/chronos/internal/observe"
	"github.com/MrWong99/chronos/internal/persona"
)

const chatHelp = `Commands:
  /add NAME        invite another figure (starts a debate)
  /lang CODE       switch the response language (e.g. fr-FR, auto)
  /translate N     show the English text of message N
  /quiz            take a five-question quiz on the conversation
  /summary         summarise what you learned
  /progress        show points and badges
  /clear           start the conversation over
  /figures         list the figures in the conversation
  /quit            leave`

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat FIGURE",
		Short: "Talk to a historical figure in the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runChat,
	}
	cmd.Flags().String("language", "en-US", "response language code or \"auto\"")
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	slog.SetDefault(newLogger(level))

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	language, _ := cmd.Flags().GetString("language")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	metrics := observe.DefaultMetrics()
	st, err := newStack(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	defer st.Close()

	// The terminal has no audio channel: no player is attached, so replies
	// are only printed and no hosted voice is requested.
	deps := st.sessionDeps(cfg, metrics)
	deps.TTS, deps.Translator = nil, nil
	deps.TurnDelay = 0

	out := &termWriter{w: cmd.OutOrStdout()}
	sess, err := chat.NewSession(ctx, "terminal", strings.Join(args, " "), language, deps)
	if err != nil {
		return err
	}
	defer sess.Close()

	sess.Subscribe(func(e chat.Event) {
		switch d := e.Data.(type) {
		case chat.MessageEvent:
			out.println(renderMessage(d.Index, d.Message))
		case chat.TranslationEvent:
			out.println(renderTranslation(d.Text))
		}
	})

	snap := sess.Snapshot()
	out.println(titleStyle.Render("Chronos") + "  type /help for commands")
	for i, m := range snap.Messages {
		out.println(renderMessage(i, m))
	}

	return repl(ctx, sess, bufio.NewScanner(cmd.InOrStdin()), out)
}

// termWriter serialises output from the REPL and the debate goroutines.
type termWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (t *termWriter) println(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, s)
}

func repl(ctx context.Context, sess *chat.Session, in *bufio.Scanner, out *termWriter) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, ok := prompt(in, out, "> ")
		if !ok {
			return in.Err()
		}
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			if err := sess.Say(ctx, line); err != nil {
				out.println(renderError(err))
			}
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		var err error
		switch cmd {
		case "/quit", "/exit":
			return nil
		case "/help":
			out.println(chatHelp)
		case "/add":
			err = sess.AddFigure(ctx, arg)
		case "/lang":
			if err = sess.SetLanguage(arg); err == nil {
				name := persona.LanguageName(arg)
				if arg == persona.LanguageAuto {
					name = "each figure's own language"
				}
				out.println(systemStyle.Render("Language: " + name))
			}
		case "/translate":
			var n int
			if n, err = strconv.Atoi(arg); err == nil {
				_, err = sess.TranslateMessage(ctx, n)
			}
		case "/quiz":
			err = runQuiz(ctx, sess, in, out)
		case "/summary":
			err = printSummary(ctx, sess, out)
		case "/progress":
			p, perr := sess.Progress(ctx)
			if err = perr; err == nil {
				out.println(renderProgress(p))
			}
		case "/clear":
			if err = sess.Clear(); err == nil {
				for i, m := range sess.Snapshot().Messages {
					out.println(renderMessage(i, m))
				}
			}
		case "/figures":
			for _, f := range sess.Figures() {
				out.println(renderField(f.Name, fmt.Sprintf("%s, speaks %s", f.Gender, f.LanguageName)))
			}
		default:
			err = fmt.Errorf("unknown command %s, try /help", cmd)
		}
		if err != nil {
			out.println(renderError(err))
		}
	}
}

func prompt(in *bufio.Scanner, out *termWriter, p string) (string, bool) {
	out.mu.Lock()
	fmt.Fprint(out.w, p)
	out.mu.Unlock()
	if !in.Scan() {
		return "", false
	}
	return strings.TrimSpace(in.Text()), true
}

func runQuiz(ctx context.Context, sess *chat.Session, in *bufio.Scanner, out *termWriter) error {
	out.println(systemStyle.Render("Preparing your quiz..."))
	view, err := sess.StartQuiz(ctx)
	if err != nil {
		return err
	}
	for i, q := range view.Questions {
		out.println(renderQuestion(i, q))
		for {
			line, ok := prompt(in, out, "answer (blank to skip): ")
			if !ok || line == "" {
				break
			}
			n, err := strconv.Atoi(line)
			if err == nil {
				err = sess.AnswerQuiz(i, n-1)
			}
			if err == nil {
				break
			}
			out.println(renderError(errors.New("pick one of the numbered options")))
		}
	}

	res, err := sess.FinishQuiz(ctx)
	if res.Result.Total == 0 {
		return err
	}
	out.println(renderResult(res.Result))
	if err != nil {
		return fmt.Errorf("progress not saved: %w", err)
	}
	out.println(renderField("Total points", strconv.Itoa(res.Progress.Points)))
	return nil
}

func printSummary(ctx context.Context, sess *chat.Session, out *termWriter) error {
	out.println(systemStyle.Render("Summarising..."))
	sum, err := sess.Summary(ctx)
	if err != nil {
		return err
	}
	out.println(renderSummary(sess.Snapshot().Figures[0].Name, sum))
	return nil
}
