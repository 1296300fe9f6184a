package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	StatsChatRoundsExceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_chat_rounds_exceeded",
		Help:         "stats_chat_rounds_exceeded provides total runs stopped by the tool round limit",
		RequiredTags: []string{"provider"},
	}

	StatsLLMBytesReceived = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_received",
		Help:         "stats_llm_bytes_received provides total bytes received from LLM",
		RequiredTags: []string{"provider", "model"},
	}

	StatsLLMBytesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_sent",
		Help:         "stats_llm_bytes_sent provides total bytes sent to LLM",
		RequiredTags: []string{"provider", "model"},
	}

	StatsLLMBytesTotal = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_total",
		Help:         "stats_llm_bytes_total provides total bytes sent and received from LLM",
		RequiredTags: []string{"provider", "model"},
	}

	StatsLLMCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_calls_failed",
		Help:         "stats_llm_calls_failed provides total failed provider calls",
		RequiredTags: []string{"provider", "model"},
	}

	StatsLLMCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_calls_succeeded",
		Help:         "stats_llm_calls_succeeded provides total succeeded provider calls",
		RequiredTags: []string{"provider", "model"},
	}

	StatsLLMInputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_input_tokens",
		Help:         "stats_llm_input_tokens provides total input tokens sent to LLM",
		RequiredTags: []string{"provider", "model"},
	}

	// StatsLLMMessagesSent is base for counter metric for total messages sent to LLM
	StatsLLMMessagesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_messages_sent",
		Help:         "stats_llm_messages_sent provides total messages sent to LLM",
		RequiredTags: []string{"provider", "model"},
	}

	StatsLLMOutputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_output_tokens",
		Help:         "stats_llm_output_tokens provides total output tokens received from LLM",
		RequiredTags: []string{"provider", "model"},
	}

	StatsLLMTotalTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_total_tokens",
		Help:         "stats_llm_total_tokens provides total tokens sent and received from LLM",
		RequiredTags: []string{"provider", "model"},
	}

	StatsServerConnectsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_server_connects_failed",
		Help:         "stats_server_connects_failed provides total failed tool server connects",
		RequiredTags: []string{"server"},
	}

	StatsServerConnectsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_server_connects_succeeded",
		Help:         "stats_server_connects_succeeded provides total succeeded tool server connects",
		RequiredTags: []string{"server"},
	}

	// StatsToolArgsParseErrors is base for counter metric for total tool calls with malformed arguments
	StatsToolArgsParseErrors = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_args_parse_errors",
		Help:         "stats_tool_args_parse_errors provides total tool calls with malformed arguments",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls not found",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}
)

// Perf
var (
	// PerfChatRun is sample metric for duration of a conversation run
	PerfChatRun = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_chat_run",
		Help:         "perf_chat_run provides duration of a conversation run",
		RequiredTags: []string{"provider"},
	}

	PerfLLMCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_llm_call",
		Help:         "perf_llm_call provides duration of a provider call",
		RequiredTags: []string{"provider", "model"},
	}

	PerfServerConnect = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_server_connect",
		Help:         "perf_server_connect provides duration of a tool server connect",
		RequiredTags: []string{"server"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfChatRun,
	&PerfLLMCall,
	&PerfServerConnect,
	&PerfToolCall,
	&StatsChatRoundsExceeded,
	&StatsLLMBytesReceived,
	&StatsLLMBytesSent,
	&StatsLLMBytesTotal,
	&StatsLLMCallsFailed,
	&StatsLLMCallsSucceeded,
	&StatsLLMInputTokens,
	&StatsLLMMessagesSent,
	&StatsLLMOutputTokens,
	&StatsLLMTotalTokens,
	&StatsServerConnectsFailed,
	&StatsServerConnectsSucceeded,
	&StatsToolArgsParseErrors,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsSucceeded,
}
