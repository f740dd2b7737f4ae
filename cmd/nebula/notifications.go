package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v2"

	"github.com/nebulacloud/console/internal/aggregate"
	apiclient "github.com/nebulacloud/console/pkg/api/client"
)

func notificationsCommand() *cli.Command {
	byID := func(name, usage string, call func(*cli.Context, cliSession, string) error) *cli.Command {
		return &cli.Command{
			Name:      name,
			Usage:     usage,
			ArgsUsage: "<id>",
			Action: withSession(func(c *cli.Context, s cliSession) error {
				id, err := requireArg(c, "id")
				if err != nil {
					return err
				}
				return call(c, s, id)
			}),
		}
	}
	return &cli.Command{
		Name:  "notifications",
		Usage: "Read and follow account notifications",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List notifications",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "filter", Usage: "all, unread, read, a type or a service", Value: "all"},
					&cli.StringFlag{Name: "search", Aliases: []string{"q"}},
				},
				Action: withSession(func(c *cli.Context, s cliSession) error {
					items, err := s.api.ListNotifications(c.Context, s.token)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%d unread\n", aggregate.UnreadCount(items))
					shown := aggregate.FilterNotifications(items, c.String("filter"), c.String("search"))
					return table(c, "ID\t \tTYPE\tTITLE\tMESSAGE", func(w *tabwriter.Writer) {
						for _, n := range shown {
							marker := "*"
							if n.Read {
								marker = " "
							}
							fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", n.ID, marker, n.Type, n.Title, n.Message)
						}
					})
				}),
			},
			byID("read", "Mark a notification read", func(c *cli.Context, s cliSession, id string) error {
				return s.api.MarkNotificationRead(c.Context, s.token, id)
			}),
			{
				Name:  "read-all",
				Usage: "Mark every notification read",
				Action: withSession(func(c *cli.Context, s cliSession) error {
					n, err := s.api.MarkAllNotificationsRead(c.Context, s.token)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "marked %d read\n", n)
					return nil
				}),
			},
			byID("delete", "Delete a notification", func(c *cli.Context, s cliSession, id string) error {
				return s.api.DeleteNotification(c.Context, s.token, id)
			}),
			{
				Name:  "watch",
				Usage: "Print notifications as they arrive",
				Action: withSession(func(c *cli.Context, s cliSession) error {
					ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
					defer stop()
					return watchNotifications(ctx, s.base, s.token, c.App.Writer)
				}),
			},
		},
	}
}

// streamURL maps the API base URL onto the websocket notification feed.
func streamURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/notifications"
	return u.String(), nil
}

func watchNotifications(ctx context.Context, base, token string, out io.Writer) error {
	target, err := streamURL(base)
	if err != nil {
		return err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return apiclient.APIError{Status: resp.StatusCode, Message: "unauthorized"}
		}
		return fmt.Errorf("connect notification stream: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("notification stream: %w", err)
		}
		var n apiclient.Notification
		if err := json.Unmarshal(payload, &n); err != nil {
			continue
		}
		kind := n.Type
		if kind == "" {
			kind = "info"
		}
		fmt.Fprintf(out, "[%s] %s: %s\n", strings.ToUpper(kind), n.Title, n.Message)
	}
}
