package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/vibe8n/agentloop/internal/agent"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

func NewAskCmd() *cobra.Command {
	var (
		sessionID string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Run one prompt through the agent and print the event trace",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			rt, err := startRuntime(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			resp, err := rt.agent.Chat(cmd.Context(), agent.Request{
				Prompt:    strings.Join(args, " "),
				SessionID: sessionID,
			})
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			return printTrace(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session id echoed in the response (default: random)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the response as JSON")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := jsonAPI.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTrace renders one line per event followed by the final answer.
func printTrace(w io.Writer, resp *agent.Response) error {
	for _, e := range resp.Events {
		var line string
		switch p := e.Payload.(type) {
		case agent.ToolCall:
			line = fmt.Sprintf("[%s] %s %s", e.Kind(), p.Tool, compactArgs(e))
		case agent.ToolResult:
			status := "ok"
			if p.Error {
				status = "error"
			}
			line = fmt.Sprintf("[%s] %s (%s): %s", e.Kind(), p.Tool, status, p.Content)
		default:
			line = fmt.Sprintf("[%s] %s", e.Kind(), e.Content())
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%s\n", resp.Final)
	return err
}

func compactArgs(e agent.Event) string {
	data, err := jsonAPI.Marshal(e.Metadata()["arguments"])
	if err != nil {
		return "{}"
	}
	return string(data)
}
