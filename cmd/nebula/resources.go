package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/nebulacloud/console/internal/aggregate"
	"github.com/nebulacloud/console/internal/catalog"
	apiclient "github.com/nebulacloud/console/pkg/api/client"
)

func statusCommand(name, status string, set func(*cli.Context, cliSession, string, string) error) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     fmt.Sprintf("Set status to %s", status),
		ArgsUsage: "<id>",
		Action: withSession(func(c *cli.Context, s cliSession) error {
			id, err := requireArg(c, "id")
			if err != nil {
				return err
			}
			return set(c, s, id, status)
		}),
	}
}

func vpsCommand() *cli.Command {
	setStatus := func(c *cli.Context, s cliSession, id, status string) error {
		vm, err := s.api.SetVPSStatus(c.Context, s.token, id, status)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s is %s\n", vm.Name, vm.Status)
		return nil
	}
	return &cli.Command{
		Name:  "vps",
		Usage: "Manage virtual servers",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List servers",
				Action: withSession(func(c *cli.Context, s cliSession) error {
					items, err := s.api.ListVPS(c.Context, s.token)
					if err != nil {
						return err
					}
					return table(c, "ID\tNAME\tTYPE\tREGION\tSTATUS\tIP\tMONTHLY", func(w *tabwriter.Writer) {
						for _, v := range items {
							fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", v.ID, v.Name, v.InstanceType, v.Region, v.Status, v.IPAddress, v.MonthlyCost)
						}
					})
				}),
			},
			{
				Name:  "create",
				Usage: "Provision a server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "type", Usage: "Instance type", Value: catalog.DefaultInstanceType},
					&cli.StringFlag{Name: "region"},
					&cli.StringFlag{Name: "image", Value: catalog.DefaultImage},
					&cli.IntFlag{Name: "storage", Usage: "Disk size in GB"},
				},
				Action: withSession(func(c *cli.Context, s cliSession) error {
					vm, err := s.api.CreateVPS(c.Context, s.token, apiclient.CreateVPSInput{
						Name:         c.String("name"),
						InstanceType: c.String("type"),
						Region:       c.String("region"),
						Image:        c.String("image"),
						StorageGB:    c.Int("storage"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "created %s (%s) at %s/mo\n", vm.Name, vm.ID, vm.MonthlyCost)
					return nil
				}),
			},
			statusCommand("start", "running", setStatus),
			statusCommand("stop", "stopped", setStatus),
			{
				Name:      "delete",
				Usage:     "Delete a server",
				ArgsUsage: "<id>",
				Action: withSession(func(c *cli.Context, s cliSession) error {
					id, err := requireArg(c, "id")
					if err != nil {
						return err
					}
					return s.api.DeleteVPS(c.Context, s.token, id)
				}),
			},
		},
	}
}

func databaseCommand() *cli.Command {
	setStatus := func(c *cli.Context, s cliSession, id, status string) error {
		db, err := s.api.SetDatabaseStatus(c.Context, s.token, id, status)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s is %s\n", db.Name, db.Status)
		return nil
	}
	return &cli.Command{
		Name:    "db",
		Aliases: []string{"databases"},
		Usage:   "Manage databases",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List databases",
				Action: withSession(func(c *cli.Context, s cliSession) error {
					items, err := s.api.ListDatabases(c.Context, s.token)
					if err != nil {
						return err
					}
					return table(c, "ID\tNAME\tENGINE\tSIZE\tREGION\tSTATUS\tMONTHLY", func(w *tabwriter.Writer) {
						for _, d := range items {
							fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%s\t%s\t%s\n", d.ID, d.Name, d.DatabaseType, d.Version, d.InstanceSize, d.Region, d.Status, d.MonthlyCost)
						}
					})
				}),
			},
			{
				Name:  "create",
				Usage: "Provision a database",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "engine", Value: catalog.DefaultDatabaseType},
					&cli.StringFlag{Name: "version"},
					&cli.StringFlag{Name: "size", Value: catalog.DefaultDatabaseSize},
					&cli.IntFlag{Name: "storage", Usage: "Storage in GB"},
					&cli.StringFlag{Name: "region"},
				},
				Action: withSession(func(c *cli.Context, s cliSession) error {
					db, err := s.api.CreateDatabase(c.Context, s.token, apiclient.CreateDatabaseInput{
						Name:         c.String("name"),
						DatabaseType: c.String("engine"),
						Version:      c.String("version"),
						InstanceSize: c.String("size"),
						StorageGB:    c.Int("storage"),
						Region:       c.String("region"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "created %s (%s) at %s/mo\n", db.Name, db.ID, db.MonthlyCost)
					return nil
				}),
			},
			statusCommand("start", "running", setStatus),
			statusCommand("stop", "stopped", setStatus),
			{
				Name:      "delete",
				Usage:     "Delete a database",
				ArgsUsage: "<id>",
				Action: withSession(func(c *cli.Context, s cliSession) error {
					id, err := requireArg(c, "id")
					if err != nil {
						return err
					}
					return s.api.DeleteDatabase(c.Context, s.token, id)
				}),
			},
		},
	}
}

func bucketCommand() *cli.Command {
	return &cli.Command{
		Name:  "buckets",
		Usage: "Manage storage buckets",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List buckets",
				Action: withSession(func(c *cli.Context, s cliSession) error {
					items, err := s.api.ListBuckets(c.Context, s.token)
					if err != nil {
						return err
					}
					err = table(c, "ID\tNAME\tREGION\tPUBLIC\tFILES\tSIZE", func(w *tabwriter.Writer) {
						for _, b := range items {
							fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\t%s\n", b.ID, b.Name, b.Region, b.PublicAccess, b.FileCount, aggregate.FormatBytes(b.SizeBytes))
						}
					})
					if err != nil {
						return err
					}
					totals := aggregate.BucketTotals(items)
					fmt.Fprintf(c.App.Writer, "\n%d files, %s, %s/mo\n", totals.Files, aggregate.FormatBytes(totals.Bytes), totals.MonthlyCost)
					return nil
				}),
			},
			{
				Name:  "create",
				Usage: "Create a bucket",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "region"},
					&cli.BoolFlag{Name: "public", Usage: "Allow public reads"},
				},
				Action: withSession(func(c *cli.Context, s cliSession) error {
					b, err := s.api.CreateBucket(c.Context, s.token, apiclient.CreateBucketInput{
						Name:         c.String("name"),
						Region:       c.String("region"),
						PublicAccess: c.Bool("public"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "created %s (%s)\n", b.Name, b.ID)
					return nil
				}),
			},
			{
				Name:      "files",
				Usage:     "List the objects in a bucket",
				ArgsUsage: "<id>",
				Action: withSession(func(c *cli.Context, s cliSession) error {
					id, err := requireArg(c, "id")
					if err != nil {
						return err
					}
					files, err := s.api.BucketFiles(c.Context, s.token, id)
					if err != nil {
						return err
					}
					return table(c, "KEY\tSIZE\tTYPE\tMODIFIED", func(w *tabwriter.Writer) {
						for _, f := range files {
							fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Key, aggregate.FormatBytes(f.SizeBytes), f.ContentType, f.LastModified.Format("2006-01-02 15:04"))
						}
					})
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a bucket",
				ArgsUsage: "<id>",
				Action: withSession(func(c *cli.Context, s cliSession) error {
					id, err := requireArg(c, "id")
					if err != nil {
						return err
					}
					return s.api.DeleteBucket(c.Context, s.token, id)
				}),
			},
		},
	}
}

func securityCommand() *cli.Command {
	return &cli.Command{
		Name:  "security",
		Usage: "Manage security groups and rules",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List groups with their rules",
				Action: withSession(func(c *cli.Context, s cliSession) error {
					groups, err := s.api.ListSecurityGroups(c.Context, s.token)
					if err != nil {
						return err
					}
					rules, err := s.api.ListSecurityRules(c.Context, s.token)
					if err != nil {
						return err
					}
					return table(c, "GROUP\tRULE\tTYPE\tPROTO\tPORTS\tSOURCE\t", func(w *tabwriter.Writer) {
						for _, g := range groups {
							fmt.Fprintf(w, "%s (%s)\t\t\t\t\t\t\n", g.Name, g.ID)
							for _, r := range aggregate.RulesForGroup(rules, g.ID) {
								flag := ""
								if aggregate.RuleUnsafe(r) {
									flag = "open to the internet"
								}
								fmt.Fprintf(w, "\t%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.RuleType, r.Protocol, r.PortRange, r.SourceDestination, flag)
							}
						}
					})
				}),
			},
			{
				Name:  "create-group",
				Usage: "Create a security group",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "description"},
				},
				Action: withSession(func(c *cli.Context, s cliSession) error {
					g, err := s.api.CreateSecurityGroup(c.Context, s.token, apiclient.CreateSecurityGroupInput{
						Name:        c.String("name"),
						Description: c.String("description"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "created %s (%s)\n", g.Name, g.ID)
					return nil
				}),
			},
			{
				Name:      "delete-group",
				Usage:     "Delete a group and its rules",
				ArgsUsage: "<id>",
				Action: withSession(func(c *cli.Context, s cliSession) error {
					id, err := requireArg(c, "id")
					if err != nil {
						return err
					}
					return s.api.DeleteSecurityGroup(c.Context, s.token, id)
				}),
			},
			{
				Name:      "add-rule",
				Usage:     "Add a rule to a group",
				ArgsUsage: "<group-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Value: "inbound"},
					&cli.StringFlag{Name: "protocol", Value: "tcp"},
					&cli.StringFlag{Name: "ports", Required: true},
					&cli.StringFlag{Name: "source", Value: "0.0.0.0/0"},
					&cli.StringFlag{Name: "description"},
				},
				Action: withSession(func(c *cli.Context, s cliSession) error {
					groupID, err := requireArg(c, "group id")
					if err != nil {
						return err
					}
					r, err := s.api.CreateSecurityRule(c.Context, s.token, groupID, apiclient.CreateSecurityRuleInput{
						RuleType:          c.String("type"),
						Protocol:          c.String("protocol"),
						PortRange:         c.String("ports"),
						SourceDestination: c.String("source"),
						Description:       c.String("description"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "added rule %s\n", r.ID)
					if aggregate.RuleUnsafe(r) {
						fmt.Fprintln(c.App.ErrWriter, "warning: this rule exposes an administrative port to the internet")
					}
					return nil
				}),
			},
			{
				Name:      "delete-rule",
				Usage:     "Delete a rule",
				ArgsUsage: "<rule-id>",
				Action: withSession(func(c *cli.Context, s cliSession) error {
					id, err := requireArg(c, "rule id")
					if err != nil {
						return err
					}
					return s.api.DeleteSecurityRule(c.Context, s.token, id)
				}),
			},
		},
	}
}

func creditsCommand() *cli.Command {
	return &cli.Command{
		Name:  "credits",
		Usage: "Show the balance or buy credits",
		Action: withSession(func(c *cli.Context, s cliSession) error {
			entries, err := s.api.ListCredits(c.Context, s.token)
			if err != nil {
				return err
			}
			balance := aggregate.CreditBalance(entries)
			fmt.Fprintf(c.App.Writer, "balance: %s (%s)\n", balance, aggregate.BalanceHealth(balance))
			return table(c, "DATE\tTYPE\tAMOUNT\tDESCRIPTION", func(w *tabwriter.Writer) {
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.CreatedAt.Format("2006-01-02"), e.TransactionType, e.Amount, e.Description)
				}
			})
		}),
		Subcommands: []*cli.Command{
			{
				Name:      "buy",
				Usage:     "Purchase credits, e.g. `nebula credits buy 25`",
				ArgsUsage: "<amount>",
				Action: withSession(func(c *cli.Context, s cliSession) error {
					amount, err := requireArg(c, "amount")
					if err != nil {
						return err
					}
					entry, err := s.api.PurchaseCredits(c.Context, s.token, amount)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "added %s\n", entry.Amount)
					return nil
				}),
			},
		},
	}
}

func pipelinesCommand() *cli.Command {
	transition := func(name, usage string, call func(*cli.Context, cliSession, string) (apiclient.Pipeline, error)) *cli.Command {
		return &cli.Command{
			Name:      name,
			Usage:     usage,
			ArgsUsage: "<id>",
			Action: withSession(func(c *cli.Context, s cliSession) error {
				id, err := requireArg(c, "id")
				if err != nil {
					return err
				}
				p, err := call(c, s, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "%s is %s\n", p.Name, p.Status)
				return nil
			}),
		}
	}
	return &cli.Command{
		Name:  "pipelines",
		Usage: "Manage CI/CD pipelines",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List pipelines",
				Action: withSession(func(c *cli.Context, s cliSession) error {
					items, err := s.api.ListPipelines(c.Context, s.token)
					if err != nil {
						return err
					}
					return table(c, "ID\tNAME\tBRANCH\tSTATUS\tREPOSITORY", func(w *tabwriter.Writer) {
						for _, p := range items {
							fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Branch, p.Status, p.RepositoryURL)
						}
					})
				}),
			},
			{
				Name:  "create",
				Usage: "Create a pipeline",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "repo", Required: true},
					&cli.StringFlag{Name: "branch", Value: catalog.DefaultPipelineBranch},
				},
				Action: withSession(func(c *cli.Context, s cliSession) error {
					p, err := s.api.CreatePipeline(c.Context, s.token, apiclient.CreatePipelineInput{
						Name:          c.String("name"),
						RepositoryURL: c.String("repo"),
						Branch:        c.String("branch"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "created %s (%s)\n", p.Name, p.ID)
					return nil
				}),
			},
			transition("run", "Start a run", func(c *cli.Context, s cliSession, id string) (apiclient.Pipeline, error) {
				return s.api.RunPipeline(c.Context, s.token, id)
			}),
			transition("stop", "Cancel the active run", func(c *cli.Context, s cliSession, id string) (apiclient.Pipeline, error) {
				return s.api.StopPipeline(c.Context, s.token, id)
			}),
			{
				Name:      "builds",
				Usage:     "Show build history",
				ArgsUsage: "<id>",
				Action: withSession(func(c *cli.Context, s cliSession) error {
					id, err := requireArg(c, "id")
					if err != nil {
						return err
					}
					builds, err := s.api.PipelineBuilds(c.Context, s.token, id)
					if err != nil {
						return err
					}
					return table(c, "#\tSTATUS\tCOMMIT\tAUTHOR\tDURATION\tMESSAGE", func(w *tabwriter.Writer) {
						for _, b := range builds {
							fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", b.Number, b.Status, b.Commit, b.Author, b.Duration, b.Message)
						}
					})
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a pipeline",
				ArgsUsage: "<id>",
				Action: withSession(func(c *cli.Context, s cliSession) error {
					id, err := requireArg(c, "id")
					if err != nil {
						return err
					}
					return s.api.DeletePipeline(c.Context, s.token, id)
				}),
			},
		},
	}
}
