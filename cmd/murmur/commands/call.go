package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mosaicnetworks/murmur/src/config"
	"github.com/mosaicnetworks/murmur/src/murmur"
	"github.com/spf13/cobra"
)

var (
	callListen  = "127.0.0.1:0"
	callTimeout = 5 * time.Second
	callLog     = "warn"
)

// NewCallCmd returns the command that sends a single request to a node of a
// TCP cluster and prints the reply body.
func NewCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call [node-id] [address] [body]",
		Short: "Send a request to a node and print its reply",
		Example: `  murmur call n1 127.0.0.1:1337 '{"type":"echo","echo":"hi"}'
  murmur call n2 127.0.0.1:1338 '{"type":"txn","txn":[["w",1,5],["r",1,null]]}'`,
		Args: cobra.ExactArgs(3),
		RunE: call,
	}

	cmd.Flags().StringVarP(&callListen, "listen", "l", callListen, "Listen IP:Port for replies")
	cmd.Flags().DurationVarP(&callTimeout, "timeout", "t", callTimeout, "Time to wait for the reply")
	cmd.Flags().StringVar(&callLog, "log", callLog, "debug, info, warn, error, fatal, panic")

	return cmd
}

func call(cmd *cobra.Command, args []string) error {
	dest, addr, body := args[0], args[1], json.RawMessage(args[2])

	if !json.Valid(body) {
		return fmt.Errorf("body is not valid JSON: %s", args[2])
	}

	conf := config.NewDefaultConfig()
	conf.LogLevel = callLog

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	reply, err := murmur.Call(ctx, callListen, dest, addr, body, callTimeout, conf.Logger())
	if err != nil {
		return err
	}

	fmt.Println(string(reply.Body))

	return nil
}
