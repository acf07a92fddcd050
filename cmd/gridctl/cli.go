package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gridd/pkg/types"
)

type client struct {
	base string
	http *http.Client
}

func newClient(base string) *client {
	return &client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *client) get(path string, out any) error {
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func (c *client) do(method, path string, body io.Reader, out any) error {
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode >= 400 {
		var apiErr types.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// buildRootCmd constructs the Cobra command tree.
func buildRootCmd() *cobra.Command {
	defaultAddr := "http://localhost:4444"
	if v := os.Getenv("GRIDD_ADDR"); v != "" {
		if strings.HasPrefix(v, ":") {
			v = "http://localhost" + v
		}
		defaultAddr = v
	}
	var addr string

	root := &cobra.Command{
		Use:           "gridctl",
		Short:         "Admin CLI for a gridd distributor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&addr, "addr", defaultAddr, "Base URL of the gridd HTTP API (defaults GRIDD_ADDR)")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show grid nodes, slots and queue depth",
		RunE: func(cmd *cobra.Command, args []string) error {
			var st types.GridStatus
			if err := newClient(addr).get("/status", &st); err != nil {
				return err
			}
			fmt.Printf("ready=%v queue=%d/%d uptime=%ds\n", st.Ready, st.QueueDepth, st.MaxQueueDepth, st.UptimeSeconds)
			for _, n := range st.Nodes {
				fmt.Printf("node %s %s %s load=%d/%d\n", n.NodeID, n.URI, n.Availability, n.Load, n.MaxSessionCount)
				for _, s := range n.Slots {
					state := "free"
					if s.SessionID != "" {
						state = "session " + string(s.SessionID)
					}
					fmt.Printf("  %s %v %s\n", s.ID, map[string]any(s.Stereotype), state)
				}
			}
			return nil
		},
	}
	root.AddCommand(statusCmd)

	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("session requires a subcommand: ls|new|rm")
		},
	}
	sessionLs := &cobra.Command{
		Use:   "ls",
		Short: "List live sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp types.SessionsResponse
			if err := newClient(addr).get("/session", &resp); err != nil {
				return err
			}
			for _, s := range resp.Sessions {
				fmt.Printf("%s %s %v started=%s\n", s.ID, s.NodeURI, map[string]any(s.Capabilities), s.StartedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	sessionNew := &cobra.Command{
		Use:     "new <browserName>",
		Short:   "Create a session for a browser",
		Example: "  gridctl session new chrome",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _ := json.Marshal(types.NewSessionRequest{
				Capabilities: types.Capabilities{types.CapBrowserName: args[0]},
			})
			var sess types.Session
			if err := newClient(addr).do(http.MethodPost, "/session", strings.NewReader(string(body)), &sess); err != nil {
				return err
			}
			fmt.Printf("%s %s\n", sess.ID, sess.NodeURI)
			return nil
		},
	}
	sessionRm := &cobra.Command{
		Use:   "rm <session-id>",
		Short: "Stop a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(addr).do(http.MethodDelete, "/session/"+args[0], nil, nil)
		},
	}
	sessionCmd.AddCommand(sessionLs, sessionNew, sessionRm)
	root.AddCommand(sessionCmd)

	drainCmd := &cobra.Command{
		Use:   "drain <node-id>",
		Short: "Gracefully drain a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient(addr).do(http.MethodPost, "/node/"+args[0]+"/drain", nil, nil)
		},
	}
	root.AddCommand(drainCmd)

	return root
}
