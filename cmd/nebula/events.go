package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/nebulacloud/console/pkg/events"
	"github.com/nebulacloud/console/pkg/money"
)

var errServiceToken = errors.New("service token required (--service-token or SERVICE_TOKEN)")

// eventsCommand drives the internal endpoints other platform services call.
func eventsCommand() *cli.Command {
	common := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "service-token", EnvVars: []string{"SERVICE_TOKEN"}},
			&cli.StringFlag{Name: "user", Usage: "Target user id", Required: true},
			&cli.StringFlag{Name: "service", Usage: "Originating service type"},
		}
	}
	return &cli.Command{
		Name:  "events",
		Usage: "Emit platform events with a service token",
		Subcommands: []*cli.Command{
			{
				Name:  "notify",
				Usage: "Send a notification to a user",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "message", Required: true},
					&cli.StringFlag{Name: "type", Value: "info"},
					&cli.StringFlag{Name: "resource"},
				}, common()...),
				Action: func(c *cli.Context) error {
					emitter, err := newEmitter(c)
					if err != nil {
						return err
					}
					return emitter.Notify(c.Context, events.Notification{
						UserID:      c.String("user"),
						Title:       c.String("title"),
						Message:     c.String("message"),
						Type:        c.String("type"),
						ServiceType: c.String("service"),
						ResourceID:  c.String("resource"),
					})
				},
			},
			{
				Name:      "usage",
				Usage:     "Debit usage from a user's credits",
				ArgsUsage: "<amount>",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "description"},
				}, common()...),
				Action: func(c *cli.Context) error {
					raw, err := requireArg(c, "amount")
					if err != nil {
						return err
					}
					amount, err := money.Parse(raw)
					if err != nil {
						return err
					}
					emitter, err := newEmitter(c)
					if err != nil {
						return err
					}
					if err := emitter.RecordUsage(c.Context, events.Usage{
						UserID:      c.String("user"),
						Amount:      amount,
						Description: c.String("description"),
						ServiceType: c.String("service"),
					}); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "recorded %s\n", amount)
					return nil
				},
			},
		},
	}
}

func newEmitter(c *cli.Context) (*events.Emitter, error) {
	token := strings.TrimSpace(c.String("service-token"))
	if token == "" {
		return nil, errServiceToken
	}
	_, cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	base := cfg.APIBaseURL
	if api := strings.TrimSpace(c.String("api")); api != "" {
		base = api
	}
	return events.NewEmitter(base, token, nil)
}
