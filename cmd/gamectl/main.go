// Command gamectl is the operator CLI for the game backend. It talks to the
// database directly through the same services the HTTP endpoint uses, so
// every mutation goes through the same scopes and invariants.
//
// Usage:
//
//	gamectl [-d dsn] version list
//	gamectl [-d dsn] version create -number 1.2.0 -name "Summer Update" [-inactive]
//	gamectl [-d dsn] version activate -id 3
//	gamectl [-d dsn] version rename -id 3 -name "New Name"
//	gamectl [-d dsn] version delete -id 3
//	gamectl [-d dsn] user list
//	gamectl [-d dsn] user add -name alice [-subscription] [-crystal 100]
//	gamectl [-d dsn] user set -id 7 [-crystal 500] [-subscription true]
//	gamectl [-d dsn] user delete -id 7
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/wakeemil/gamebase/internal/logging"
	"github.com/wakeemil/gamebase/internal/server/config"
	"github.com/wakeemil/gamebase/internal/server/db"
	"github.com/wakeemil/gamebase/internal/server/repositories/repomanager"
	"github.com/wakeemil/gamebase/internal/server/repositories/users"
	"github.com/wakeemil/gamebase/internal/server/repositories/versions"
	"github.com/wakeemil/gamebase/internal/server/services"
)

type cli struct {
	users    *services.UserService
	versions *services.VersionService
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadConfig()

	entity, action, rest := commandArgs()
	if entity == "" || action == "" {
		return fmt.Errorf("usage: gamectl [flags] <version|user> <action> [options]")
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	m, err := db.Open(cfg.DatabaseDSN, cfg.PoolConnMaxLifetime, cfg.PoolAcquireTimeout, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	c := &cli{
		users:    services.NewUserService(m, rm, logger),
		versions: services.NewVersionService(m, rm, logger),
	}

	ctx := context.Background()

	switch entity {
	case "version":
		return c.runVersion(ctx, action, rest)
	case "user":
		return c.runUser(ctx, action, rest)
	default:
		return fmt.Errorf("unknown entity %q", entity)
	}
}

// commandArgs extracts the two positional words (entity, action) and the
// option args that follow them, skipping the global config flags.
func commandArgs() (string, string, []string) {
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		if args[i][0] == '-' {
			i++ // skip the flag's value
			continue
		}
		if i+1 < len(args) {
			return args[i], args[i+1], args[i+2:]
		}
		return args[i], "", nil
	}
	return "", "", nil
}

func (c *cli) runVersion(ctx context.Context, action string, args []string) error {
	switch action {
	case "list":
		all, err := c.versions.List(ctx)
		if err != nil {
			return err
		}
		for _, v := range all {
			marker := " "
			if v.IsActive {
				marker = "*"
			}
			fmt.Printf("%s %4d  %-12s %-24s %s\n",
				marker, v.ID, v.VersionNumber, v.VersionName, v.ReleaseDate.Format("2006-01-02 15:04:05"))
		}
		return nil

	case "create":
		fs := flag.NewFlagSet("version create", flag.ExitOnError)
		number := fs.String("number", "", "version number (e.g. 1.2.0)")
		name := fs.String("name", "", "human-readable release name")
		inactive := fs.Bool("inactive", false, "create without activating")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *number == "" || *name == "" {
			return fmt.Errorf("version create: -number and -name are required")
		}
		v, err := c.versions.Create(ctx, *number, *name, !*inactive)
		if err != nil {
			return err
		}
		fmt.Printf("created version %d (%s)\n", v.ID, v.VersionNumber)
		return nil

	case "activate":
		fs := flag.NewFlagSet("version activate", flag.ExitOnError)
		id := fs.Int64("id", 0, "version id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		v, err := c.versions.SetActive(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Printf("version %d (%s) is now active\n", v.ID, v.VersionNumber)
		return nil

	case "rename":
		fs := flag.NewFlagSet("version rename", flag.ExitOnError)
		id := fs.Int64("id", 0, "version id")
		name := fs.String("name", "", "new release name")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *name == "" {
			return fmt.Errorf("version rename: -name is required")
		}
		v, err := c.versions.Update(ctx, *id, versions.Update{VersionName: name})
		if err != nil {
			return err
		}
		fmt.Printf("version %d renamed to %q\n", v.ID, v.VersionName)
		return nil

	case "delete":
		fs := flag.NewFlagSet("version delete", flag.ExitOnError)
		id := fs.Int64("id", 0, "version id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		ok, err := c.versions.Delete(ctx, *id)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("version %d not found\n", *id)
			return nil
		}
		fmt.Printf("version %d deleted\n", *id)
		return nil

	default:
		return fmt.Errorf("unknown version action %q", action)
	}
}

func (c *cli) runUser(ctx context.Context, action string, args []string) error {
	switch action {
	case "list":
		all, err := c.users.List(ctx)
		if err != nil {
			return err
		}
		for _, u := range all {
			sub := " "
			if u.IsSubscription {
				sub = "S"
			}
			fmt.Printf("%4d  %-24s %s crystal=%d created=%s\n",
				u.ID, u.Username, sub, u.Crystal, u.CreatedAt.Format("2006-01-02"))
		}
		return nil

	case "add":
		fs := flag.NewFlagSet("user add", flag.ExitOnError)
		name := fs.String("name", "", "username")
		subscription := fs.Bool("subscription", false, "grant subscription")
		crystal := fs.Int64("crystal", 0, "starting crystal balance")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *name == "" {
			return fmt.Errorf("user add: -name is required")
		}

		password, err := promptPassword()
		if err != nil {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		u, err := c.users.Create(ctx, *name, string(hash), *subscription, *crystal)
		if err != nil {
			return err
		}
		fmt.Printf("created user %d (%s)\n", u.ID, u.Username)
		return nil

	case "set":
		fs := flag.NewFlagSet("user set", flag.ExitOnError)
		id := fs.Int64("id", 0, "user id")
		crystal := fs.Int64("crystal", -1, "new crystal balance")
		subscription := fs.String("subscription", "", "true or false")
		if err := fs.Parse(args); err != nil {
			return err
		}

		var upd users.Update
		if *crystal >= 0 {
			upd.Crystal = crystal
		}
		switch *subscription {
		case "":
		case "true":
			v := true
			upd.IsSubscription = &v
		case "false":
			v := false
			upd.IsSubscription = &v
		default:
			return fmt.Errorf("user set: -subscription must be true or false")
		}

		u, err := c.users.Update(ctx, *id, upd)
		if err != nil {
			return err
		}
		fmt.Printf("user %d updated: subscription=%v crystal=%d\n", u.ID, u.IsSubscription, u.Crystal)
		return nil

	case "delete":
		fs := flag.NewFlagSet("user delete", flag.ExitOnError)
		id := fs.Int64("id", 0, "user id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		ok, err := c.users.Delete(ctx, *id)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("user %d not found\n", *id)
			return nil
		}
		fmt.Printf("user %d deleted\n", *id)
		return nil

	default:
		return fmt.Errorf("unknown user action %q", action)
	}
}

func promptPassword() ([]byte, error) {
	fmt.Println("Enter password")
	return term.ReadPassword(int(os.Stdin.Fd()))
}
