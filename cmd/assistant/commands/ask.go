package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dvloznov/money-assistant/internal/domain"
	"github.com/dvloznov/money-assistant/internal/pipeline"
)

// ask <text...>: interpret one utterance and print the outcome.
func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <text...>",
		Short: "Interpret one natural-language command",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			resp, err := pipe.HandleUtterance(cmd.Context(), pipeline.Request{
				Text:     text,
				ModeFlag: domain.Domain(mode),
			})
			if err != nil {
				printFailure(err)
				return nil
			}
			printResponse(resp)
			return nil
		},
	}
}

func printResponse(resp *pipeline.Response) {
	if resp.Reply != "" {
		fmt.Println(resp.Reply)
	}
	for _, res := range resp.Results {
		if res.OK() {
			fmt.Println("✓", res.Summary)
		} else {
			fmt.Println("✗", failureText(res.Err))
		}
	}
}

// printFailure renders a whole-request rejection as a user answer, not
// a CLI error; a misunderstood sentence is a conversation, not a crash.
func printFailure(err error) {
	fmt.Println("✗", failureText(err))
}

func failureText(err error) string {
	var f *pipeline.Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	return err.Error()
}
