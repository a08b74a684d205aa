package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <branch>",
		Short: "Start a stopped branch's database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			br, err := a.lifecycle.Start(context.Background(), args[0])
			if err != nil {
				return err
			}
			printResult(br, func() { fmt.Printf("Started branch %q (status %s)\n", br.Name, br.Status) })
			return nil
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <branch>",
		Short: "Stop a branch's database without deleting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			br, err := a.lifecycle.Stop(context.Background(), args[0])
			if err != nil {
				return err
			}
			printResult(br, func() { fmt.Printf("Stopped branch %q (status %s)\n", br.Name, br.Status) })
			return nil
		},
	}
}
