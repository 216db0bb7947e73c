package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"gemini-chat-go/internal/config"
	"gemini-chat-go/internal/handler"
	"gemini-chat-go/internal/repository"
	"gemini-chat-go/internal/service"
	"gemini-chat-go/pkg/llm"
	"gemini-chat-go/pkg/log"
	"gemini-chat-go/pkg/token"
)

const chatLongDesc string = `Chat with Gemini in the terminal.

Each line you type is sent together with the whole conversation so far.
History lives in memory and is gone when the command exits.
Type /exit or press Ctrl-D to leave.`

type chatCommander struct {
	configPath *string
}

func newChatCmd(configPath *string) *cobra.Command {
	cmder := &chatCommander{configPath: configPath}

	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with Gemini in the terminal",
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func (c *chatCommander) run(ctx context.Context, in io.Reader, out io.Writer) error {
	if err := config.Init(*c.configPath); err != nil {
		return err
	}
	cfg := config.Conf
	// Keep the terminal for the conversation; log to file only if configured.
	if cfg.Log.OutputPath != "" {
		log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
		defer log.Sync()
	}

	sessions := service.NewSessionService(
		repository.NewMemoryConversationRepository(),
		token.NewJWTManager(token.GenerateRandomString(32), cfg.Session.TTL),
	)
	sess, err := sessions.Start(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sessions.End(context.Background(), sess.ID) }()

	return runREPL(ctx, in, out, service.NewChatService(llm.NewClient(cfg.Gemini)), sess)
}

// runREPL reads one message per line and prints the new part of the transcript after each submit.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, chat service.ChatService, sess *service.Session) error {
	fmt.Fprintln(out, "🤖 Gemini AI Chatbot")
	fmt.Fprintln(out, strings.Repeat("-", 40))

	printed := 0
	printNew := func() error {
		turns, err := sess.Store.All(ctx)
		if err != nil {
			return err
		}
		rendered := handler.RenderTranscript(turns)
		for _, t := range rendered[printed:] {
			fmt.Fprintf(out, "%s: %s\n", t.Label, t.Content)
		}
		printed = len(rendered)
		return nil
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()
		if cmd := strings.TrimSpace(line); cmd == "/exit" || cmd == "/quit" {
			return nil
		}

		if strings.TrimSpace(line) != "" {
			fmt.Fprintln(out, "Gemini AI is generating a response...")
		}
		_, err := chat.Submit(ctx, sess, line)
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			fmt.Fprintln(out, handler.EmptyMessageWarning)
			continue
		case err != nil:
			if perr := printNew(); perr != nil {
				return perr
			}
			_, msg := handler.DescribeError(err)
			fmt.Fprintln(out, msg)
			continue
		}
		if err := printNew(); err != nil {
			return err
		}
	}
}
