package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcphub/callbacks"
	"github.com/effective-security/mcphub/encoding"
	"github.com/effective-security/mcphub/orchestrator"
	"github.com/effective-security/mcphub/pkg/llms"
	"github.com/effective-security/mcphub/pkg/llmutils"
	"github.com/effective-security/xlog"
)

const (
	cmdExit    = "/exit"
	cmdQuit    = "/quit"
	cmdReset   = "/reset"
	cmdHistory = "/history"
	cmdTools   = "/tools"
)

// chat is the interactive session of the CLI
type chat struct {
	session *orchestrator.Session
	tools   orchestrator.ToolProvider
	format  encoding.Format
	out     io.Writer

	pad        *callbacks.Scratchpad
	transcript io.WriteCloser
}

func newChat(llm llms.Model, tools orchestrator.ToolProvider, f *flags, out, errOut io.Writer) (*chat, error) {
	if _, err := encoding.NewEventEncoder(f.output, io.Discard); err != nil {
		return nil, err
	}

	mode := callbacks.ModeDefault
	if f.verbose {
		mode = callbacks.ModeVerbose
	}

	fanout := callbacks.NewFanout(callbacks.NewPackageLogger(logger))
	if f.verbose {
		fanout.Add(callbacks.NewPrinter(errOut, mode))
	}

	c := &chat{
		tools:  tools,
		format: f.output,
		out:    out,
	}

	if f.transcript != "" {
		file, err := os.OpenFile(f.transcript, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open transcript file")
		}
		c.transcript = file
		c.pad = callbacks.NewScratchpad(mode)
		fanout.Add(c.pad)
	}

	orch := orchestrator.New(llm, tools,
		orchestrator.WithMaxRounds(f.maxRounds),
		orchestrator.WithRequestTimeout(f.timeout),
		orchestrator.WithCallback(fanout),
	)
	c.session = orch.NewSession("", nil)

	logger.KV(xlog.DEBUG,
		"status", "chat_started",
		"chat_id", c.session.ChatID(),
		"provider", llm.GetProviderType(),
		"model", llm.GetName(),
	)
	return c, nil
}

// Ask runs the query and writes the events to the output.
func (c *chat) Ask(ctx context.Context, query string) error {
	enc, err := encoding.NewEventEncoder(c.format, c.out)
	if err != nil {
		return err
	}

	if c.pad != nil {
		runCtx := c.session.Context(ctx)
		c.pad.StartRun(runCtx)
		defer c.endRun(runCtx)
	}

	return encoding.Copy(enc, c.session.Run(ctx, query))
}

func (c *chat) endRun(ctx context.Context) {
	stats, transcript := c.pad.EndRun(ctx)
	if stats == nil {
		return
	}
	if _, err := c.transcript.Write(transcript); err != nil {
		logger.KV(xlog.ERROR, "status", "transcript_write", "err", err.Error())
	}
	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "run_ended",
		"run_id", stats.RunID,
		"duration", stats.Duration,
		"llm_calls", stats.LLMCalls,
		"tool_calls", stats.ToolsCalls,
	)
}

// Loop reads the queries line by line until the input ends,
// or the exit command is entered.
func (c *chat) Loop(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	c.prompt()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
		case cmdExit, cmdQuit:
			return nil
		case cmdReset:
			if err := c.session.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "history is cleared")
		case cmdHistory:
			llmutils.PrintMessages(c.out, c.session.History(ctx))
		case cmdTools:
			if err := c.printTools(ctx); err != nil {
				fmt.Fprintf(c.out, "ERROR: %s\n", err.Error())
			}
		default:
			if err := c.Ask(ctx, line); err != nil {
				return err
			}
		}
		c.prompt()
	}
	return errors.WithStack(scanner.Err())
}

func (c *chat) printTools(ctx context.Context) error {
	list, err := c.tools.ListAllTools(ctx)
	for _, t := range list {
		fmt.Fprintf(c.out, "%s/%s: %s\n", t.Server, t.Name, t.Description)
	}
	return err
}

func (c *chat) prompt() {
	if c.format == encoding.FormatText || c.format == "" {
		fmt.Fprint(c.out, "> ")
	}
}

func (c *chat) Close() {
	if c.transcript != nil {
		_ = c.transcript.Close()
	}
}
