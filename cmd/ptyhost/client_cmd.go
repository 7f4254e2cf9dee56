package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ptyhost/ptyhost/internal/ipc"
)

// doRequest sends one control request to the running instance and reports
// the structured reply as a CLI result.
func doRequest(req ipc.Request) error {
	cfg := loadConfig()
	c, err := ipc.Dial(cfg.Socket.Path)
	if err != nil {
		return err
	}
	defer c.Close()

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	if !resp.OK {
		return errors.New(resp.Error)
	}
	return nil
}

// sessionArg resolves the session id: explicit argument first, then the
// $PTYHOST_SESSION a hosted shell was seeded with.
func sessionArg(args []string, want int) (string, []string, error) {
	if len(args) > want {
		return args[0], args[1:], nil
	}
	if id := os.Getenv("PTYHOST_SESSION"); id != "" {
		return id, args, nil
	}
	return "", nil, errors.New("no session id given and PTYHOST_SESSION is not set")
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that an instance is alive on the control socket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doRequest(ipc.Request{Cmd: ipc.CmdPing}); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the running instance in place, keeping all shells",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := doRequest(ipc.Request{Cmd: ipc.CmdRestart})
		// On success the server execs a new image and the connection
		// drops without a reply; EOF means the restart went through.
		if err != nil && errors.Is(err, io.EOF) {
			err = nil
		}
		if err != nil {
			return err
		}
		fmt.Println("restarting")
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename [session-id] <title>",
	Short: "Set a session's title",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, rest, err := sessionArg(args, 1)
		if err != nil {
			return err
		}
		return doRequest(ipc.Request{Cmd: ipc.CmdRename, ID: id, Title: rest[0]})
	},
}

var descCmd = &cobra.Command{
	Use:   "desc [session-id] <text>",
	Short: "Set a session's description",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, rest, err := sessionArg(args, 1)
		if err != nil {
			return err
		}
		return doRequest(ipc.Request{Cmd: ipc.CmdSetDescription, ID: id, Text: rest[0]})
	},
}

var iconCmd = &cobra.Command{
	Use:   "icon [session-id] <icon>",
	Short: "Set a session's icon",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, rest, err := sessionArg(args, 1)
		if err != nil {
			return err
		}
		return doRequest(ipc.Request{Cmd: ipc.CmdSetIcon, ID: id, Icon: rest[0]})
	},
}

var notifyCmd = &cobra.Command{
	Use:   "notify [session-id]",
	Short: "Flag a session as having a pending notification",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _, err := sessionArg(args, 0)
		if err != nil {
			return err
		}
		return doRequest(ipc.Request{Cmd: ipc.CmdNotify, ID: id})
	},
}

var moveCmd = &cobra.Command{
	Use:   "move [session-id] <group>",
	Short: "Move a session to a group, creating the group if needed",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, rest, err := sessionArg(args, 1)
		if err != nil {
			return err
		}
		return doRequest(ipc.Request{Cmd: ipc.CmdMoveToGroup, ID: id, Group: rest[0]})
	},
}
