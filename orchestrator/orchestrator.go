package orchestrator

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcphub/chatmodel"
	"github.com/effective-security/mcphub/mcp"
	"github.com/effective-security/mcphub/pkg/llms"
	"github.com/effective-security/mcphub/pkg/llmutils"
	"github.com/effective-security/mcphub/pkg/metricskey"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcphub", "orchestrator")

// ToolProvider is the catalog of tools and the router of tool calls.
type ToolProvider interface {
	// ListAllTools returns the tools of all connected servers.
	// A partial catalog may be returned together with an error.
	ListAllTools(ctx context.Context) ([]mcp.ToolDescriptor, error)
	// CallTool invokes the tool on the server that owns it.
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.ToolResult, error)
}

var _ ToolProvider = (*mcp.Pool)(nil)

// errStopped is returned when the consumer stopped the iteration.
var errStopped = errors.New("consumer stopped")

// Orchestrator runs conversations between the model and the tools.
// The Orchestrator keeps no per-query state, but queries share the tool provider:
// with mcp.Pool, run one query at a time per pool.
type Orchestrator struct {
	llm   llms.Model
	tools ToolProvider
	cfg   *Config
}

// New returns the orchestrator of the model and the tools.
// The tool connections are owned by the caller.
func New(llm llms.Model, tools ToolProvider, opts ...Option) *Orchestrator {
	return &Orchestrator{
		llm:   llm,
		tools: tools,
		cfg:   NewConfig(opts...),
	}
}

// LLM returns the model.
func (o *Orchestrator) LLM() llms.Model {
	return o.llm
}

// Run returns the events of the query.
// The loop runs as the consumer pulls the events, and stops when the
// consumer stops. The options override the options of New for this run.
//
// The sequence always ends with one done event, unless the consumer
// stopped before it.
func (o *Orchestrator) Run(ctx context.Context, query string, opts ...Option) iter.Seq[chatmodel.StreamEvent] {
	cfg := o.cfg.Clone(opts...)
	return func(yield func(chatmodel.StreamEvent) bool) {
		r := &run{
			llm:      o.llm,
			tools:    o.tools,
			cfg:      cfg,
			query:    query,
			yield:    yield,
			provider: o.llm.GetProviderType(),
			model:    o.llm.GetName(),
		}
		r.execute(ctx)
	}
}

// run is the state of one query.
type run struct {
	llm   llms.Model
	tools ToolProvider
	cfg   *Config
	query string
	yield func(chatmodel.StreamEvent) bool

	provider llms.ProviderType
	model    string

	stopped  bool
	toolDefs []llms.Tool
	history  []llms.Message
	answer   []string
	rounds   int
}

func (r *run) emit(ev chatmodel.StreamEvent) bool {
	if r.stopped {
		return false
	}
	if !r.yield(ev) {
		r.stopped = true
	}
	return !r.stopped
}

func (r *run) execute(ctx context.Context) {
	started := time.Now()
	defer metricskey.PerfChatRun.MeasureSince(started, string(r.provider))

	cb := r.cfg.Callback
	if cb != nil {
		cb.OnRunStart(ctx, r.query)
	}

	err := r.loop(ctx)
	if err != nil {
		if cb != nil {
			cb.OnRunError(ctx, r.query, err, r.history)
		}
		if errors.Is(err, errStopped) {
			logger.ContextKV(ctx, xlog.DEBUG,
				"status", "consumer_stopped",
				"chat_id", chatmodel.GetChatID(ctx),
				"rounds", r.rounds)
			return
		}
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "run_failed",
			"chat_id", chatmodel.GetChatID(ctx),
			"provider", r.provider,
			"rounds", r.rounds,
			"err", err.Error())
		if !r.emit(chatmodel.ErrorEvent(err.Error())) {
			return
		}
	} else {
		answer := strings.Join(r.answer, "\n")
		r.save(ctx, answer)
		if cb != nil {
			cb.OnRunEnd(ctx, r.query, answer, r.history)
		}
		logger.ContextKV(ctx, xlog.DEBUG,
			"status", "run_completed",
			"chat_id", chatmodel.GetChatID(ctx),
			"rounds", r.rounds,
			"answer", slices.StringUpto(answer, 64))
	}
	r.emit(chatmodel.DoneEvent())
}

func (r *run) loop(ctx context.Context) error {
	chatCtx := chatmodel.GetChatContext(ctx)
	if r.cfg.Store != nil && chatCtx == nil {
		return errors.WithStack(chatmodel.ErrInvalidChatContext)
	}
	if chatCtx != nil {
		logger.ContextKV(ctx, xlog.DEBUG,
			"status", "run_started",
			"chat_id", chatCtx.GetChatID(),
			"run", chatCtx.NextRun(),
			"provider", r.provider,
			"model", r.model,
			"query", slices.StringUpto(r.query, 64))
	}

	if err := r.loadTools(ctx); err != nil {
		return err
	}

	systemPrompt, err := r.systemPrompt()
	if err != nil {
		return errors.WithMessage(err, "failed to format system prompt")
	}
	r.history = append(r.history, llms.MessageFromTextParts(llms.RoleSystem, systemPrompt))
	if r.cfg.Store != nil {
		prev := r.cfg.Store.Messages(ctx)
		logger.ContextKV(ctx, xlog.DEBUG,
			"chat_id", chatCtx.GetChatID(),
			"message_history", len(prev))
		r.history = append(r.history, prev...)
	}
	r.history = append(r.history, llms.MessageFromTextParts(llms.RoleHuman, r.query))

	callOpts := r.cfg.GetCallOptions(r.toolDefs)
	if err = validateOptions(callOpts); err != nil {
		return err
	}
	forced := r.provider.Supports(llms.CapabilityForcedFinalAnswer)

	for {
		choice, err := r.generate(ctx, callOpts)
		if err != nil {
			return err
		}

		wantsTools := choice.WantsTools()
		final := !wantsTools && !(forced && r.rounds > 0)
		for _, text := range choice.TextParts {
			if !r.emit(chatmodel.TextEvent(text, final)) {
				return errStopped
			}
			if final {
				r.answer = append(r.answer, text)
			}
		}

		if !wantsTools {
			if final {
				return nil
			}
			return r.finalAnswer(ctx)
		}

		if r.rounds >= r.cfg.MaxRounds {
			metricskey.StatsChatRoundsExceeded.IncrCounter(1, string(r.provider))
			logger.ContextKV(ctx, xlog.WARNING,
				"status", "rounds_exceeded",
				"chat_id", chatmodel.GetChatID(ctx),
				"max_rounds", r.cfg.MaxRounds)
			// the tool calls of this response are dropped, the history
			// ends with the results of the previous round
			if !r.emit(chatmodel.ErrorEvent(fmt.Sprintf("the limit of %d tool rounds is exceeded", r.cfg.MaxRounds))) {
				return errStopped
			}
			if forced && r.rounds > 0 {
				return r.finalAnswer(ctx)
			}
			return nil
		}

		r.rounds++
		if err = r.executeToolCalls(ctx, choice); err != nil {
			return err
		}
	}
}

// loadTools fetches the catalog once per query.
// A listing failure is reported and the run continues with the tools listed.
func (r *run) loadTools(ctx context.Context) error {
	catalog, err := r.tools.ListAllTools(ctx)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "list_tools_failed",
			"tools", len(catalog),
			"err", err.Error())
		if !r.emit(chatmodel.ErrorEvent(fmt.Sprintf("failed to list tools: %s", err.Error()))) {
			return errStopped
		}
	}

	r.toolDefs = make([]llms.Tool, 0, len(catalog))
	for _, t := range catalog {
		var params any
		if len(t.InputSchema) > 0 {
			params = t.InputSchema
		}
		r.toolDefs = append(r.toolDefs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	if len(r.toolDefs) > 0 && !r.provider.Supports(llms.CapabilityFunctionCalling) {
		return errors.Newf("provider %s does not support function calling", r.provider)
	}
	return nil
}

func (r *run) systemPrompt() (string, error) {
	names := make([]string, 0, len(r.toolDefs))
	for _, t := range r.toolDefs {
		names = append(names, t.Function.Name)
	}
	input := maps.Clone(r.cfg.PromptInput)
	if input == nil {
		input = map[string]any{}
	}
	input["tools"] = names
	input["date"] = time.Now().Format(time.DateOnly)
	return r.cfg.SystemPrompt.Format(input)
}

// generate sends the history to the model and returns the first choice.
func (r *run) generate(ctx context.Context, callOpts []llms.CallOption) (*llms.ContentChoice, error) {
	cb := r.cfg.Callback
	if cb != nil {
		cb.OnLLMCallStart(ctx, r.llm, r.history)
	}

	provider := string(r.provider)
	bytesSent := llmutils.CountMessagesContentSize(r.history)
	metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(r.history)), provider, r.model)
	metricskey.StatsLLMBytesSent.IncrCounter(float64(bytesSent), provider, r.model)

	callCtx, cancel := withTimeout(ctx, r.cfg.RequestTimeout)
	defer cancel()

	started := time.Now()
	resp, err := r.llm.GenerateContent(callCtx, r.history, callOpts...)
	metricskey.PerfLLMCall.MeasureSince(started, provider, r.model)
	if err == nil && (resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil) {
		err = chatmodel.NewClassified(chatmodel.ErrProvider, "%s: empty response", provider)
	}
	if err != nil {
		metricskey.StatsLLMCallsFailed.IncrCounter(1, provider, r.model)
		err = classifyProviderError(callCtx, err, provider)
		if cb != nil {
			cb.OnLLMCallError(ctx, r.llm, err)
		}
		return nil, err
	}
	metricskey.StatsLLMCallsSucceeded.IncrCounter(1, provider, r.model)

	if cb != nil {
		cb.OnLLMCallEnd(ctx, r.llm, resp)
	}

	bytesReceived := llmutils.CountResponseContentSize(resp)
	metricskey.StatsLLMBytesReceived.IncrCounter(float64(bytesReceived), provider, r.model)
	metricskey.StatsLLMBytesTotal.IncrCounter(float64(bytesSent+bytesReceived), provider, r.model)

	tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
	metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), provider, r.model)
	metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), provider, r.model)
	metricskey.StatsLLMTotalTokens.IncrCounter(float64(tokensTotal), provider, r.model)

	choice := resp.Choices[0]
	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "llm_response",
		"chat_id", chatmodel.GetChatID(ctx),
		"round", r.rounds,
		"stop_reason", choice.StopReason,
		"text_parts", len(choice.TextParts),
		"tool_calls", len(choice.ToolCalls),
		"tokens", tokensTotal)

	return choice, nil
}

// finalAnswer asks the model to answer with tools disabled.
func (r *run) finalAnswer(ctx context.Context) error {
	callOpts := r.cfg.GetFinalCallOptions(r.toolDefs)
	if err := validateOptions(callOpts); err != nil {
		return err
	}

	choice, err := r.generate(ctx, callOpts)
	if err != nil {
		return err
	}
	if len(choice.ToolCalls) > 0 {
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "ignored_tool_calls",
			"chat_id", chatmodel.GetChatID(ctx),
			"tool_calls", len(choice.ToolCalls))
	}
	for _, text := range choice.TextParts {
		if !r.emit(chatmodel.TextEvent(text, true)) {
			return errStopped
		}
		r.answer = append(r.answer, text)
	}
	return nil
}

// executeToolCalls invokes the tools in the order requested and appends
// the assistant turn and one tool result per call to the history.
func (r *run) executeToolCalls(ctx context.Context, choice *llms.ContentChoice) error {
	calls := make([]llms.ToolCall, len(choice.ToolCalls))
	for i, tc := range choice.ToolCalls {
		if tc.ID == "" {
			tc.ID = fmt.Sprintf("call_%d_%d", r.rounds, i)
		}
		if tc.Type == "" {
			tc.Type = "function"
		}
		if tc.FunctionCall == nil {
			tc.FunctionCall = &llms.FunctionCall{}
		}
		calls[i] = tc
	}
	r.history = append(r.history, llms.MessageFromToolCalls(llms.RoleAI, choice.Content, calls...))

	for _, tc := range calls {
		resp, err := r.callTool(ctx, tc)
		if err != nil {
			return err
		}
		r.history = append(r.history, llms.MessageFromToolResponse(llms.RoleTool, resp))
	}
	return nil
}

// callTool invokes one tool. A failed call is reported as an error event
// and answered with a synthesized result, so the model can recover.
// Only errStopped is returned.
func (r *run) callTool(ctx context.Context, tc llms.ToolCall) (llms.ToolCallResponse, error) {
	name := tc.FunctionCall.Name
	input := tc.FunctionCall.Arguments
	resp := llms.ToolCallResponse{
		ToolCallID: tc.ID,
		Name:       name,
	}

	args, err := ParseArguments(name, input)
	if !r.emit(chatmodel.ToolCallEvent(tc.ID, name, input, args)) {
		return resp, errStopped
	}

	cb := r.cfg.Callback
	if cb != nil {
		cb.OnToolStart(ctx, name, input)
	}

	var res *mcp.ToolResult
	if err != nil {
		metricskey.StatsToolArgsParseErrors.IncrCounter(1, name)
	} else {
		started := time.Now()
		callCtx, cancel := withTimeout(ctx, r.cfg.ToolTimeout)
		res, err = r.tools.CallTool(callCtx, name, args)
		if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !chatmodel.IsTimeout(err) {
			err = chatmodel.Classify(err, chatmodel.ErrTimeout, "tool %q timed out", name)
		}
		cancel()
		metricskey.PerfToolCall.MeasureSince(started, name)
	}

	if err != nil {
		if errors.Is(err, chatmodel.ErrUnknownTool) {
			metricskey.StatsToolCallsNotFound.IncrCounter(1, name)
			if cb != nil {
				cb.OnToolNotFound(ctx, name)
			}
		} else {
			metricskey.StatsToolCallsFailed.IncrCounter(1, name)
		}
		if cb != nil {
			cb.OnToolError(ctx, name, input, err)
		}
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_call_failed",
			"chat_id", chatmodel.GetChatID(ctx),
			"tool", name,
			"call_id", tc.ID,
			"err", err.Error())

		if !r.emit(chatmodel.ErrorEvent(fmt.Sprintf("tool %s failed: %s", name, err.Error()))) {
			return resp, errStopped
		}
		resp.Content = fmt.Sprintf("Tool call failed: %s", err.Error())
		resp.IsError = true
		return resp, nil
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, name)
	if cb != nil {
		cb.OnToolEnd(ctx, name, input, res.Text)
	}
	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "tool_call_succeeded",
		"chat_id", chatmodel.GetChatID(ctx),
		"tool", name,
		"call_id", tc.ID,
		"result", slices.StringUpto(res.Text, 64))

	if !r.emit(chatmodel.ToolResultEvent(tc.ID, name, res.Text)) {
		return resp, errStopped
	}
	resp.Content = res.Text
	return resp, nil
}

// save appends the query and the answer to the chat history.
func (r *run) save(ctx context.Context, answer string) {
	if r.cfg.Store == nil {
		return
	}
	msgs := []llms.Message{llms.MessageFromTextParts(llms.RoleHuman, r.query)}
	if answer != "" {
		msgs = append(msgs, llms.MessageFromTextParts(llms.RoleAI, answer))
	}
	if err := r.cfg.Store.Add(ctx, msgs...); err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "failed_to_save_history",
			"chat_id", chatmodel.GetChatID(ctx),
			"err", err.Error())
	}
}

func validateOptions(opts []llms.CallOption) error {
	co := &llms.CallOptions{}
	for _, opt := range opts {
		opt(co)
	}
	return errors.WithMessage(co.Validate(), "invalid call options")
}

func classifyProviderError(ctx context.Context, err error, provider string) error {
	if !errors.Is(err, chatmodel.ErrProvider) {
		err = chatmodel.Classify(err, chatmodel.ErrProvider, "%s: request failed", provider)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, chatmodel.ErrTimeout) {
		err = errors.Mark(err, chatmodel.ErrTimeout)
	}
	return err
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
