package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/tabclip/internal/ipc"
	"go.klb.dev/tabclip/internal/message"
	"go.klb.dev/tabclip/internal/wire"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon state and connected bridges",
		Long: `Displays the running daemon's surface state (holders, in-flight
create/close) and the browser bridges currently connected to it.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runStatus(v) },
	}

	cmd.Flags().Bool("json", false, "output raw JSON")
	addConfigFlag(cmd)

	return cmd
}

func runStatus(v *viper.Viper) error {
	if !ipc.IsRunning() {
		return fmt.Errorf("no tabclip daemon running (socket %s)", ipc.SocketPath())
	}
	conn, err := ipc.Dial()
	if err != nil {
		return fmt.Errorf("ipc dial: %w", err)
	}
	wc := wire.New(conn, nil)
	defer wc.Close()

	if err := wc.Send(&message.Message{Type: message.TypeStatus, ID: message.NewID()}); err != nil {
		return fmt.Errorf("ipc send: %w", err)
	}
	resp, err := wc.Receive()
	if err != nil {
		return fmt.Errorf("ipc receive: %w", err)
	}
	if resp.Type == message.TypeError {
		return fmt.Errorf("daemon: %s", resp.Error)
	}
	if resp.Status == nil {
		return fmt.Errorf("malformed status response")
	}

	if v.GetBool("json") {
		enc, _ := json.MarshalIndent(resp.Status, "", "  ")
		fmt.Println(string(enc))
		return nil
	}

	printStatus(resp.Status)
	return nil
}

func printStatus(st *message.Status) {
	w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Version:\t%s\n", st.Version)
	fmt.Fprintf(w, "Transport:\tipc (%s)\n", ipc.SocketPath())
	fmt.Fprintf(w, "Surface holders:\t%d\n", st.Surface.Holders)
	if st.Surface.Creating {
		fmt.Fprintf(w, "Surface:\tcreating\n")
	}
	if st.Surface.Closing {
		fmt.Fprintf(w, "Surface:\tclosing\n")
	}
	fmt.Fprintln(w)
	_ = w.Flush()

	if len(st.Bridges) == 0 {
		fmt.Println("No browser bridges connected.")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "SOURCE\tADDR\tCONNECTED\n")
	_, _ = fmt.Fprintf(tw, "------\t----\t---------\n")
	for _, b := range st.Bridges {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Source, b.Addr, b.ConnectedAt)
	}
	_ = tw.Flush()
}
