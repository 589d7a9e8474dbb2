package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/atvirokodosprendimai/notices/internal/adapters/db/gormdb"
	httpadapter "github.com/atvirokodosprendimai/notices/internal/adapters/http"
	rpcadapter "github.com/atvirokodosprendimai/notices/internal/adapters/rpcjson"
	"github.com/atvirokodosprendimai/notices/internal/application"
	"github.com/atvirokodosprendimai/notices/internal/config"
	"github.com/atvirokodosprendimai/notices/internal/platform/logger"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "notices",
		Usage: "Provider maintenance and outage tracking server and CLI",
		Commands: []*cli.Command{
			serverCommand(),
			migrateCommand(),
			usersCommand(),
			authCommand(),
			maintenancesCommand(),
			outagesCommand(),
			impactsCommand(),
			notificationsCommand(),
			icalCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to notices.yaml"}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run the HTTP server and the JSON-RPC socket",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{Name: "addr", Usage: "HTTP listen address (overrides config)"},
			&cli.StringFlag{Name: "rpc-socket", Usage: "JSON-RPC unix socket path (overrides config)"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if addr := c.String("addr"); addr != "" {
				cfg.HTTPAddr = addr
			}
			if socket := c.String("rpc-socket"); socket != "" {
				cfg.RPCSocket = socket
			}
			return runServer(ctx, cfg)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations and exit",
		Flags: []cli.Flag{configFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			db, err := gormdb.Open(cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}
			if err := gormdb.RunMigrations(ctx, db, cfg.Database.Driver); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}

// openService migrates the configured database and returns a service with
// the default roles in place.
func openService(ctx context.Context, cfg config.Config, lg *logger.Logger) (*application.Service, error) {
	db, err := gormdb.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := gormdb.RunMigrations(ctx, db, cfg.Database.Driver); err != nil {
		return nil, err
	}
	service := application.NewService(gormdb.NewRepository(db), application.Options{
		Location:              cfg.Location(),
		AllowList:             cfg.AllowList(),
		EventHistoryDays:      cfg.Plugin.EventHistoryDays,
		ICalPastDaysDefault:   cfg.Plugin.ICalPastDaysDefault,
		ExemptViewPermissions: cfg.ExemptViewPermissions,
		LoginRequired:         cfg.LoginRequired,
		BaseURL:               cfg.BaseURL,
	}, lg)
	if err := service.EnsureDefaultRoles(ctx); err != nil {
		return nil, err
	}
	return service, nil
}

// usersCommand manages accounts directly against the database, so it works
// before any admin exists.
func usersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Manage local accounts (direct database access)",
		Flags: []cli.Flag{configFlag()},
		Commands: []*cli.Command{
			{
				Name: "add",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "role", Value: "viewer", Usage: "admin, operator or viewer"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					service, err := localService(ctx, c)
					if err != nil {
						return err
					}
					u, err := service.CreateUser(ctx, c.String("email"), c.String("password"), c.String("role"))
					if err != nil {
						return err
					}
					fmt.Printf("created user %d (%s) with role %s\n", u.ID, u.Email, c.String("role"))
					return nil
				},
			},
			{
				Name: "list",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "q"},
					&cli.IntFlag{Name: "limit", Value: 100},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					service, err := localService(ctx, c)
					if err != nil {
						return err
					}
					users, err := service.ListUsers(ctx, c.String("q"), int(c.Int("limit")))
					if err != nil {
						return err
					}
					rows := make([][]string, 0, len(users))
					for _, u := range users {
						rows = append(rows, []string{formatID(u.ID), u.Email, formatTime(u.CreatedAt)})
					}
					printTable([]string{"ID", "EMAIL", "CREATED"}, rows)
					return nil
				},
			},
			{
				Name: "roles",
				Action: func(ctx context.Context, c *cli.Command) error {
					service, err := localService(ctx, c)
					if err != nil {
						return err
					}
					roles, err := service.ListRoles(ctx)
					if err != nil {
						return err
					}
					rows := make([][]string, 0, len(roles))
					for _, r := range roles {
						rows = append(rows, []string{formatID(r.ID), r.Key, r.Name})
					}
					printTable([]string{"ID", "KEY", "NAME"}, rows)
					return nil
				},
			},
		},
	}
}

func localService(ctx context.Context, c *cli.Command) (*application.Service, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	return openService(ctx, cfg, logger.Nop())
}

func runServer(ctx context.Context, cfg config.Config) error {
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		return err
	}
	defer lg.Sync()

	service, err := openService(ctx, cfg, lg)
	if err != nil {
		return err
	}
	if cfg.BootstrapAdminEmail != "" {
		if err := service.BootstrapAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
			return err
		}
	}

	router := httpadapter.NewRouter(service, httpadapter.Options{
		BaseURL:              cfg.BaseURL,
		SessionTTL:           cfg.SessionTTL,
		ICalCacheMaxAge:      cfg.Plugin.ICalCacheMaxAge,
		ICalTokenPlaceholder: cfg.Plugin.ICalTokenPlaceholder,
	}, lg)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	rpcSrv, err := rpcadapter.Start(cfg.RPCSocket, service, cfg.Plugin.ICalTokenPlaceholder, lg)
	if err != nil {
		return err
	}
	defer func() {
		_ = rpcSrv.Close()
	}()
	lg.Info("json-rpc listening", "socket", cfg.RPCSocket)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("server listening", "addr", srv.Addr, "timezone", cfg.Location().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Login, whoami and logout",
		Commands: []*cli.Command{
			{
				Name: "login",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "transport", Value: "uds", Usage: "uds or http"},
					&cli.StringFlag{Name: "server", Value: defaultServer},
					&cli.StringFlag{Name: "socket", Value: defaultSocket},
					&cli.StringFlag{Name: "token-name", Value: "cli"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg := cliConfig{
						Transport: strings.ToLower(c.String("transport")),
						Server:    c.String("server"),
						Socket:    c.String("socket"),
					}
					if cfg.Transport != "uds" && cfg.Transport != "http" {
						return fmt.Errorf("unknown transport %q", cfg.Transport)
					}
					var out struct {
						Email string `json:"email"`
						Token string `json:"token"`
					}
					if err := doLogin(ctx, cfg, c.String("email"), c.String("password"), c.String("token-name"), &out); err != nil {
						return err
					}
					if out.Token == "" {
						return errors.New("login response did not include a token")
					}
					cfg.Token = out.Token
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Printf("logged in as %s via %s\n", out.Email, cfg.Transport)
					return nil
				},
			},
			{
				Name:  "whoami",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out whoAmI
					if err := doWhoAmI(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printWhoAmI(out)
					return nil
				},
			},
			{
				Name: "logout",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if errors.Is(err, errNotLoggedIn) {
						fmt.Println("not logged in")
						return nil
					}
					if err != nil {
						return err
					}
					if err := doLogout(ctx, cfg); err != nil {
						return err
					}
					cfg.Token = ""
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Println("logged out")
					return nil
				},
			},
		},
	}
}

func eventListFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "q", Usage: "search name, summary and ticket"},
		&cli.StringSliceFlag{Name: "status", Usage: "filter by status (repeatable)"},
		&cli.StringFlag{Name: "provider", Usage: "provider slug"},
		&cli.BoolFlag{Name: "upcoming", Usage: "only events that have not finished"},
		&cli.IntFlag{Name: "limit", Value: 50},
		&cli.IntFlag{Name: "offset"},
		&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
	}
}

func eventQueryFrom(c *cli.Command) eventQuery {
	return eventQuery{
		Q:        c.String("q"),
		Status:   c.StringSlice("status"),
		Provider: c.String("provider"),
		Upcoming: c.Bool("upcoming"),
		Limit:    int(c.Int("limit")),
		Offset:   int(c.Int("offset")),
	}
}

func maintenancesCommand() *cli.Command {
	return &cli.Command{
		Name:  "maintenances",
		Usage: "Inspect provider maintenances",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Flags: eventListFlags(),
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					out, err := doEventsList(ctx, cfg, maintenanceEvents, eventQueryFrom(c))
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printEvents(out, false)
					return nil
				},
			},
			{
				Name: "show",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					out, err := doMaintenanceShow(ctx, cfg, c.Uint("id"))
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printMaintenanceDetail(out)
					return nil
				},
			},
		},
	}
}

func outagesCommand() *cli.Command {
	return &cli.Command{
		Name:  "outages",
		Usage: "Inspect provider outages",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Flags: eventListFlags(),
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					out, err := doEventsList(ctx, cfg, outageEvents, eventQueryFrom(c))
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printEvents(out, true)
					return nil
				},
			},
		},
	}
}

func impactsCommand() *cli.Command {
	return &cli.Command{
		Name:  "impacts",
		Usage: "Inspect event impacts",
		Commands: []*cli.Command{
			{
				Name: "list",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "event-type", Usage: "notices.maintenance or notices.outage"},
					&cli.UintFlag{Name: "event-id"},
					&cli.StringFlag{Name: "target-type", Usage: "for example circuits.circuit"},
					&cli.UintFlag{Name: "target-id"},
					&cli.IntFlag{Name: "limit", Value: 50},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					out, err := doImpactsList(ctx, cfg, impactQuery{
						EventType:  c.String("event-type"),
						EventID:    c.Uint("event-id"),
						TargetType: c.String("target-type"),
						TargetID:   c.Uint("target-id"),
						Limit:      int(c.Int("limit")),
					})
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printImpacts(out.Results)
					return nil
				},
			},
		},
	}
}

func notificationsCommand() *cli.Command {
	return &cli.Command{
		Name:  "notifications",
		Usage: "Attach provider e-mails to events",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Import a raw .eml message and attach it to an event",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Required: true, Usage: "path to the .eml file, - for stdin"},
					&cli.StringFlag{Name: "event-type", Value: "notices.maintenance"},
					&cli.UintFlag{Name: "event-id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					raw, err := readInput(c.String("file"))
					if err != nil {
						return err
					}
					out, err := doNotificationImport(ctx, cfg, c.String("event-type"), c.Uint("event-id"), raw)
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printImportedNotification(out)
					return nil
				},
			},
		},
	}
}

func icalCommand() *cli.Command {
	return &cli.Command{
		Name:  "ical",
		Usage: "Calendar feed helpers",
		Commands: []*cli.Command{
			{
				Name:  "url",
				Usage: "Print the subscription URL for the maintenance feed",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					u, err := doICalURL(ctx, cfg)
					if err != nil {
						return err
					}
					fmt.Println(u)
					return nil
				},
			},
		},
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
