// Command portalctl is a terminal client for the insurance portal. It keeps
// its login in a token file and sorts and filters fetched rows locally.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/bimerz/portal-service/internal/engine"
	"github.com/bimerz/portal-service/internal/jalali"
	"github.com/bimerz/portal-service/internal/money"
	"github.com/bimerz/portal-service/pkg/client"
)

const nearExpiryDays = 30

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "portalctl:", err)
		if errors.Is(err, client.ErrUnauthorized) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "portalctl",
		Usage: "work with the insurance portal from a terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Value: "http://localhost:8431", EnvVars: []string{"PORTAL_URL"}, Usage: "portal API base URL"},
			&cli.StringFlag{Name: "session", EnvVars: []string{"PORTAL_SESSION"}, Usage: "token file (default ~/.config/portalctl/session.json)"},
			&cli.StringFlag{Name: "tz", Value: "Asia/Tehran", Usage: "zone used to decide today's date"},
		},
		Commands: []*cli.Command{
			loginCommand(),
			verifyCommand(),
			{
				Name:  "logout",
				Usage: "end the session",
				Action: func(c *cli.Context) error {
					api, err := connect(c)
					if err != nil {
						return err
					}
					return api.Logout(c.Context)
				},
			},
			{
				Name:  "whoami",
				Usage: "show the signed-in account",
				Action: func(c *cli.Context) error {
					api, err := connect(c)
					if err != nil {
						return err
					}
					id, err := api.WhoAmI(c.Context)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%s (customer %d, role %s)\n", api.Session().FullName(), id.CustomerID, id.Role)
					return nil
				},
			},
			installmentsCommand(),
			policiesCommand(),
			{
				Name:      "download-policy",
				Usage:     "save a policy document",
				ArgsUsage: "<policy-id>",
				Flags:     []cli.Flag{&cli.StringFlag{Name: "dir", Value: ".", Usage: "target directory"}},
				Action: func(c *cli.Context) error {
					id, err := strconv.ParseInt(c.Args().First(), 10, 64)
					if err != nil {
						return cli.Exit("policy id must be a number", 1)
					}
					api, err := connect(c)
					if err != nil {
						return err
					}
					path, err := api.DownloadPolicy(c.Context, id, c.String("dir"))
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, path)
					return nil
				},
			},
			{
				Name:  "backup",
				Usage: "download the full backup document (admin)",
				Flags: []cli.Flag{&cli.StringFlag{Name: "dir", Value: ".", Usage: "target directory"}},
				Action: func(c *cli.Context) error {
					api, err := connect(c)
					if err != nil {
						return err
					}
					path, err := api.Backup(c.Context, c.String("dir"))
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, path)
					return nil
				},
			},
		},
	}
}

func connect(c *cli.Context) (*client.Client, error) {
	path := c.String("session")
	if path == "" {
		var err error
		if path, err = client.DefaultSessionPath(); err != nil {
			return nil, err
		}
	}
	s := client.NewSession(path)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return client.New(c.String("server"), s), nil
}

func requireSession(api *client.Client) error {
	if !api.Session().SignedIn() {
		return client.ErrNotSignedIn
	}
	return nil
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in with national code and insurance code",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "national-code", Required: true},
			&cli.StringFlag{Name: "insurance-code", Required: true},
			&cli.StringFlag{Name: "code", Usage: "authenticator code, when two-factor is enabled"},
		},
		Action: func(c *cli.Context) error {
			api, err := connect(c)
			if err != nil {
				return err
			}
			res, err := api.Login(c.Context, c.String("national-code"), c.String("insurance-code"))
			if err != nil {
				return err
			}
			if res.RequiresTOTP {
				if c.String("code") == "" {
					fmt.Fprintf(c.App.Writer, "two-factor required; run: portalctl verify-2fa --pending %s --code <code>\n", res.PendingToken)
					return nil
				}
				if res, err = api.Verify2FA(c.Context, res.PendingToken, c.String("code")); err != nil {
					return err
				}
			}
			fmt.Fprintf(c.App.Writer, "signed in as %s (%s)\n", res.FullName, res.Role)
			return nil
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify-2fa",
		Usage: "finish a two-factor login",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "pending", Required: true},
			&cli.StringFlag{Name: "code", Required: true},
		},
		Action: func(c *cli.Context) error {
			api, err := connect(c)
			if err != nil {
				return err
			}
			res, err := api.Verify2FA(c.Context, c.String("pending"), c.String("code"))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "signed in as %s (%s)\n", res.FullName, res.Role)
			return nil
		},
	}
}

func viewFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "search", Aliases: []string{"q"}},
		&cli.StringFlag{Name: "type"},
		&cli.StringFlag{Name: "status"},
		&cli.StringSliceFlag{Name: "sort", Usage: "column to sort by; repeat a column to cycle its mode"},
		&cli.StringFlag{Name: "date", Value: "none", Usage: "newest, oldest or none"},
		&cli.IntFlag{Name: "page", Value: 1},
		&cli.IntFlag{Name: "size", Value: 20, Usage: "rows per page, 0 for all"},
	}
}

func readOptions(c *cli.Context) (listOptions, error) {
	date, err := engine.ParseDateOrder(c.String("date"))
	if err != nil {
		return listOptions{}, err
	}
	return listOptions{Sorts: c.StringSlice("sort"), Date: date, Page: c.Int("page"), Size: c.Int("size")}, nil
}

func location(c *cli.Context) *time.Location { return jalali.LoadLocation(c.String("tz")) }

func installmentsCommand() *cli.Command {
	flags := append(viewFlags(),
		&cli.StringFlag{Name: "min", Usage: "minimum amount"},
		&cli.StringFlag{Name: "max", Usage: "maximum amount"},
	)
	return &cli.Command{
		Name:  "installments",
		Usage: "list installments",
		Flags: flags,
		Action: func(c *cli.Context) error {
			opts, err := readOptions(c)
			if err != nil {
				return err
			}
			crit := engine.InstallmentCriteria{Search: c.String("search"), PolicyType: c.String("type"), Status: c.String("status")}
			if crit.MinAmount, err = amountFlag(c.String("min")); err != nil {
				return err
			}
			if crit.MaxAmount, err = amountFlag(c.String("max")); err != nil {
				return err
			}
			api, err := connect(c)
			if err != nil {
				return err
			}
			if err := requireSession(api); err != nil {
				return err
			}
			rows, err := api.Installments(c.Context)
			if err != nil {
				return err
			}
			page, err := installmentPage(rows, crit, opts, time.Now(), location(c))
			if err != nil {
				return err
			}
			return printInstallments(c.App.Writer, page)
		},
	}
}

func policiesCommand() *cli.Command {
	flags := append(viewFlags(), &cli.StringFlag{Name: "payment-type"})
	return &cli.Command{
		Name:  "policies",
		Usage: "list policies",
		Flags: flags,
		Action: func(c *cli.Context) error {
			opts, err := readOptions(c)
			if err != nil {
				return err
			}
			crit := engine.PolicyCriteria{
				Search:      c.String("search"),
				Type:        c.String("type"),
				Status:      c.String("status"),
				PaymentType: c.String("payment-type"),
			}
			api, err := connect(c)
			if err != nil {
				return err
			}
			if err := requireSession(api); err != nil {
				return err
			}
			rows, err := api.Policies(c.Context)
			if err != nil {
				return err
			}
			page, err := policyPage(rows, crit, opts, time.Now(), location(c), nearExpiryDays)
			if err != nil {
				return err
			}
			return printPolicies(c.App.Writer, page)
		},
	}
}

func amountFlag(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := money.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", raw, err)
	}
	return &n, nil
}

func printInstallments(w io.Writer, p engine.Page[engine.Installment]) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCUSTOMER\tTYPE\t#\tAMOUNT\tDUE\tSTATUS\tDAYS OVERDUE")
	for _, i := range p.Items {
		amount, due := "?", "?"
		if i.AmountOK {
			amount = money.Format(i.Amount)
		}
		if i.DueOK {
			due = i.DueDate.String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\t%d\n",
			i.ID, i.CustomerName, i.PolicyType, i.Number, amount, due, i.Status.Label(), i.DaysOverdue)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "page %d/%d, %d rows\n", p.Page, p.Pages, p.Total)
	return err
}

func printPolicies(w io.Writer, p engine.Page[engine.Policy]) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tCUSTOMER\tTYPE\tSTART\tEND\tPREMIUM\tSTATUS\tPDF")
	for _, r := range p.Items {
		pdf := "-"
		if r.HasPDF {
			pdf = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.PolicyNumber, r.CustomerName, r.Type, r.StartDate, r.EndDate, money.Format(r.Premium), r.Status, pdf)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "page %d/%d, %d rows\n", p.Page, p.Pages, p.Total)
	return err
}
