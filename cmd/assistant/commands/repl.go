package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dvloznov/money-assistant/internal/domain"
	"github.com/dvloznov/money-assistant/internal/events"
	"github.com/dvloznov/money-assistant/internal/pipeline"
)

// repl: interactive loop reading one utterance per line.
func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive session; type 'exit' to leave",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Watch refresh signals so mutations made through the API
			// surface mid-session.
			if cfg.AMQPURL != "" {
				client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, log)
				if err != nil {
					log.Warn().Err(err).Msg("AMQP unavailable, refresh watch disabled")
				} else {
					defer client.Close()
					go func() {
						_ = client.ConsumeRefresh(cmd.Context(), func(msg *events.RefreshMessage) error {
							fmt.Printf("\n(dữ liệu %d/%d đã thay đổi: %s)\n> ",
								msg.Month, msg.Year, strings.Join(msg.Scopes, ", "))
							return nil
						})
					}()
				}
			}

			scanner := bufio.NewScanner(os.Stdin)
			fmt.Println("Nhập câu lệnh (exit để thoát):")

			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					continue
				}
				if text == "exit" || text == "quit" || text == "thoát" {
					break
				}

				resp, err := pipe.HandleUtterance(cmd.Context(), pipeline.Request{
					Text:     text,
					ModeFlag: domain.Domain(mode),
				})
				if err != nil {
					printFailure(err)
					continue
				}
				printResponse(resp)
			}
			return scanner.Err()
		},
	}
}
