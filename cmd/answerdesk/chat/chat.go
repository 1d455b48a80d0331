// Package chatcmder provides the chat command, an interactive REPL against a
// running answerdesk server.
package chatcmder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/answerdesk/api"
	"github.com/papercomputeco/answerdesk/pkg/cliui"
	"github.com/papercomputeco/answerdesk/pkg/config"
	"github.com/papercomputeco/answerdesk/pkg/dotdir"
	"github.com/papercomputeco/answerdesk/pkg/logger"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

type chatCommander struct {
	apiTarget string
	configDir string
	fresh     bool
	raw       bool
	debug     bool

	in      io.Reader
	out     io.Writer
	client  *http.Client
	session *dotdir.ChatSession
	dotdir  *dotdir.Manager
	logger  *zap.Logger
}

const chatLongDesc string = `Start an interactive chat session with a running answerdesk server.

Each message is sent to POST /api/chat. The user id and the session id the
server assigns are saved in .answerdesk/session.json, so the next
"answerdesk chat" resumes the same conversation while it is still live on the
server.

Inside the chat:
  /reset   Clear the conversation on the server and start a new session
  /exit    Quit (Ctrl+D works too)

Examples:
  answerdesk chat
  answerdesk chat --api-target http://support.internal:3000
  answerdesk chat --new`

const chatShortDesc string = "Interactive chat with a running answerdesk server"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{
		in:     os.Stdin,
		out:    os.Stdout,
		dotdir: dotdir.NewManager(),
		client: &http.Client{
			// Provider calls can be slow
			Timeout: 5 * time.Minute,
		},
	}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed(config.FlagAPITarget) {
				cmder.apiTarget = cfg.Client.APITarget
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().BoolVar(&cmder.fresh, "new", false, "Start a new conversation instead of resuming the saved one")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print answers without markdown rendering")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger = logger.NewLoggerWithWriters(c.debug, os.Stderr)
	defer func() { _ = c.logger.Sync() }()

	if err := c.loadSession(); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "  %s %s\n\n",
		cliui.KeyStyle.Render("Server:"),
		cliui.NameStyle.Render(c.apiTarget),
	)
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /reset to start over, /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit":
			fmt.Fprintln(c.out)
			return nil
		case "/reset":
			if err := c.reset(ctx); err != nil {
				fmt.Fprintf(c.out, "  %s %v\n\n", cliui.FailMark, err)
			} else {
				fmt.Fprintf(c.out, "  %s %s\n\n", cliui.SuccessMark, cliui.DimStyle.Render("New conversation"))
			}
			continue
		}

		resp, err := c.send(ctx, input)
		if err != nil {
			fmt.Fprintf(c.out, "  %s %v\n\n", cliui.FailMark, err)
			continue
		}

		c.session.SessionID = resp.SessionID
		c.saveSession()

		answer := resp.Answer
		if !c.raw {
			answer = cliui.Answer(answer)
		}
		fmt.Fprintf(c.out, "%s%s\n\n", assistantPrompt, answer)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// loadSession resumes the saved session, or starts one with a fresh user id.
func (c *chatCommander) loadSession() error {
	if !c.fresh {
		saved, err := c.dotdir.LoadChatSession(c.configDir)
		if err != nil {
			return fmt.Errorf("loading chat session: %w", err)
		}
		if saved != nil && saved.UserID != "" {
			c.session = saved
			fmt.Fprintf(c.out, "\n  %s Resuming as %s\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(saved.UserID),
			)
			return nil
		}
	} else if err := c.dotdir.ClearChatSession(c.configDir); err != nil {
		return fmt.Errorf("clearing chat session: %w", err)
	}

	c.session = &dotdir.ChatSession{UserID: "cli-" + uuid.NewString()[:8]}
	fmt.Fprintf(c.out, "\n  %s New conversation as %s\n",
		cliui.DimStyle.Render("●"),
		cliui.NameStyle.Render(c.session.UserID),
	)
	return nil
}

func (c *chatCommander) saveSession() {
	if err := c.dotdir.SaveChatSession(c.session, c.configDir); err != nil {
		c.logger.Debug("chat session not saved", zap.Error(err))
	}
}

func (c *chatCommander) send(ctx context.Context, question string) (*api.ChatResponse, error) {
	body, err := json.Marshal(api.ChatRequest{
		UserID:    c.session.UserID,
		SessionID: c.session.SessionID,
		Question:  question,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	c.logger.Debug("sending chat request",
		zap.String("api_target", c.apiTarget),
		zap.String("user_id", c.session.UserID),
		zap.String("session_id", c.session.SessionID),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiTarget+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	out := &api.ChatResponse{}
	if err := json.Unmarshal(respBody, out); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return out, nil
}

// reset clears the server-side conversation and forgets the session.
func (c *chatCommander) reset(ctx context.Context) error {
	endpoint := c.apiTarget + "/api/conversations/" + url.PathEscape(c.session.UserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if _, err := c.do(req); err != nil {
		return err
	}

	c.session.SessionID = ""
	c.saveSession()
	return nil
}

func (c *chatCommander) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request to %s: %w", c.apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
