package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	apiclient "github.com/nebulacloud/console/pkg/api/client"
	"github.com/nebulacloud/console/pkg/config"
)

var buildVersion = "dev"

func main() {
	app := &cli.App{
		Name:    "nebula",
		Usage:   "Manage Nebula Cloud resources from the terminal",
		Version: buildVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Usage:   "API base URL (overrides the saved config)",
				EnvVars: []string{"NEBULA_API"},
			},
		},
		Commands: []*cli.Command{
			loginCommand(false),
			loginCommand(true),
			{
				Name:  "logout",
				Usage: "Forget the saved access token",
				Action: func(c *cli.Context) error {
					path, cfg, err := loadConfig()
					if err != nil {
						return err
					}
					cfg.AccessToken = ""
					cfg.Email = ""
					return config.SaveCLIConfig(path, cfg)
				},
			},
			{
				Name:  "whoami",
				Usage: "Show the signed-in account",
				Action: withSession(func(c *cli.Context, s cliSession) error {
					user, err := s.api.Session(c.Context, s.token)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%s (%s)\n", user.Email, user.ID)
					return nil
				}),
			},
			vpsCommand(),
			databaseCommand(),
			bucketCommand(),
			securityCommand(),
			creditsCommand(),
			notificationsCommand(),
			pipelinesCommand(),
			eventsCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loginCommand(signup bool) *cli.Command {
	name, usage := "login", "Sign in and store an access token"
	if signup {
		name, usage = "signup", "Create an account and store an access token"
	}
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "Email address", Required: true},
			&cli.StringFlag{Name: "password", Usage: "Password (supply to avoid prompt)"},
		},
		Action: func(c *cli.Context) error {
			path, cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if api := strings.TrimSpace(c.String("api")); api != "" {
				cfg.APIBaseURL = api
			}
			secret := c.String("password")
			if strings.TrimSpace(secret) == "" {
				fmt.Fprint(c.App.Writer, "Password: ")
				raw, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(c.App.Writer)
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				secret = string(raw)
			}
			client, err := apiclient.New(cfg.APIBaseURL)
			if err != nil {
				return err
			}
			var resp apiclient.LoginResponse
			if signup {
				resp, err = client.Signup(c.Context, c.String("email"), secret)
			} else {
				resp, err = client.Login(c.Context, c.String("email"), secret)
			}
			if err != nil {
				return err
			}
			cfg.AccessToken = resp.Tokens.AccessToken
			cfg.Email = resp.User.Email
			if err := config.SaveCLIConfig(path, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Fprintf(c.App.Writer, "signed in as %s\n", resp.User.Email)
			return nil
		},
	}
}

type cliSession struct {
	api   *apiclient.Client
	token string
	base  string
}

func loadConfig() (string, config.CLIConfig, error) {
	path, err := config.CLIConfigPath()
	if err != nil {
		return "", config.CLIConfig{}, err
	}
	cfg, err := config.LoadCLIConfig(path)
	if err != nil {
		return "", config.CLIConfig{}, fmt.Errorf("load config: %w", err)
	}
	return path, cfg, nil
}

// withSession loads the saved token and API client before running fn.
func withSession(fn func(*cli.Context, cliSession) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		_, cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if strings.TrimSpace(cfg.AccessToken) == "" {
			return errors.New("not logged in; run `nebula login --email you@example.com`")
		}
		base := cfg.APIBaseURL
		if api := strings.TrimSpace(c.String("api")); api != "" {
			base = api
		}
		client, err := apiclient.New(base)
		if err != nil {
			return err
		}
		err = fn(c, cliSession{api: client, token: cfg.AccessToken, base: client.BaseURL()})
		if apiclient.IsUnauthorized(err) {
			return fmt.Errorf("%w (session expired? run `nebula login`)", err)
		}
		return err
	}
}

func table(c *cli.Context, header string, rows func(w *tabwriter.Writer)) error {
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, header)
	rows(w)
	return w.Flush()
}

func requireArg(c *cli.Context, name string) (string, error) {
	v := strings.TrimSpace(c.Args().First())
	if v == "" {
		return "", fmt.Errorf("%s required", name)
	}
	return v, nil
}
