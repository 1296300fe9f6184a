// Package tools defines the Tool interface for functions served to the model
// by a tool server, and registers them with an MCP server.
package tools
