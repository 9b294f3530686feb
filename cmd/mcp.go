package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mixtape-sh/mixtape/internal/mcpclient"
	"github.com/mixtape-sh/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

// newSessionClient builds a session client from flags and config.
func (r *Runner) newSessionClient(cmd *cli.Command, sessionID string) (*mcpclient.Client, error) {
	endpoint := cmd.String("endpoint")
	if endpoint == "" {
		endpoint = r.config.MCP.BaseURL
	}
	if endpoint == "" {
		return nil, fmt.Errorf("%w: mcp.base_url is not configured", shared.ErrMissingConfig)
	}

	token := cmd.String("token")
	if token == "" {
		token = r.config.Credentials.Spotify.AccessToken
	}
	if token == "" {
		return nil, fmt.Errorf("%w: pass --token or run 'mixtape auth spotify'", shared.ErrMissingCredentials)
	}

	httpClient := r.httpClient
	if timeout := r.config.MCP.TimeoutSeconds; timeout > 0 {
		httpClient = &http.Client{Timeout: time.Duration(timeout) * time.Second}
	}

	return mcpclient.NewClient(mcpclient.ClientOpts{
		Endpoint:   endpoint,
		Credential: token,
		SessionID:  sessionID,
		HTTPClient: httpClient,
		Logger:     r.logger,
	}), nil
}

// MCPInit opens a session and prints the handshake result.
func (r *Runner) MCPInit(ctx context.Context, cmd *cli.Command) error {
	client, err := r.newSessionClient(cmd, "")
	if err != nil {
		return err
	}

	result, err := client.Initialize(ctx)
	if err != nil {
		return err
	}

	r.writePlain("✓ Session established\n")
	r.writePlain("  Server: %s %s\n", result.ServerInfo.Name, result.ServerInfo.Version)
	r.writePlain("  Protocol: %s\n", result.ProtocolVersion)
	if result.Instructions != "" {
		r.writePlain("  Instructions: %s\n", result.Instructions)
	}

	if cmd.Bool("keep") {
		r.writePlain("  Session ID: %s\n", client.SessionID())
		return nil
	}

	client.Close(ctx)
	return nil
}

// MCPTools lists the tools the gateway advertises.
func (r *Runner) MCPTools(ctx context.Context, cmd *cli.Command) error {
	client, err := r.newSessionClient(cmd, "")
	if err != nil {
		return err
	}

	if _, err := client.Initialize(ctx); err != nil {
		return err
	}
	defer client.Close(ctx)

	tools, err := client.ListTools(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tools, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d tools:\n\n", len(tools))
	for i, tool := range tools {
		r.writePlain("%d. %s\n", i+1, tool.Name)
		if tool.Description != "" {
			r.writePlain("   %s\n", tool.Description)
		}
		if len(tool.InputSchema.Required) > 0 {
			r.writePlain("   Required args: %v\n", tool.InputSchema.Required)
		}
		r.writePlain("\n")
	}

	return nil
}

// MCPCall invokes a single tool and prints the result.
func (r *Runner) MCPCall(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: tool name is required", shared.ErrMissingArgument)
	}

	var args any
	if raw := cmd.String("args"); raw != "" {
		var parsed json.RawMessage
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return fmt.Errorf("%w: --args is not valid JSON: %v", shared.ErrInvalidArgument, err)
		}
		args = parsed
	}

	client, err := r.newSessionClient(cmd, "")
	if err != nil {
		return err
	}

	if _, err := client.Initialize(ctx); err != nil {
		return err
	}
	defer client.Close(ctx)

	result, err := client.CallTool(ctx, name, args)
	if err != nil {
		return err
	}

	var decoded any
	if err := json.Unmarshal(result, &decoded); err != nil {
		return r.writePlain("%s\n", result)
	}
	return r.writeJSON(decoded, cmd.Bool("pretty"))
}

// MCPClose closes a previously opened session by id.
func (r *Runner) MCPClose(ctx context.Context, cmd *cli.Command) error {
	sessionID := cmd.String("session")

	client, err := r.newSessionClient(cmd, sessionID)
	if err != nil {
		return err
	}

	client.Close(ctx)
	return r.writePlain("✓ Session %s closed\n", sessionID)
}
