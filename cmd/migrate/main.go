package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/crispyspin/crispyspin-backend/pkg/config"
	"github.com/crispyspin/crispyspin-backend/pkg/db"
	"github.com/crispyspin/crispyspin-backend/pkg/logger"
	"github.com/crispyspin/crispyspin-backend/pkg/migrate"
)

const usage = `usage: migrate [flags] <command>

commands:
  up         apply all pending migrations
  down       roll back the latest migration
  redo       roll back and re-apply the latest migration
  status     list migrations and whether they are applied
  to         migrate up or down to -version
  create     write a new migration named -name into -dir
  validate   check migration files (embedded, or -dir when given)
`

func main() {
	_ = godotenv.Load()

	dir := flag.String("dir", "", "migrations directory on disk (defaults to the embedded set; create uses "+migrate.SourceDir+")")
	name := flag.String("name", "", "migration name for create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for to")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	command := flag.Arg(0)

	switch command {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.SourceDir
		}
		path, err := migrate.CreateSQLMigration(target, *name, time.Now())
		exitOn(err, "create migration")
		fmt.Println("created", path)
		return
	case "validate":
		var source fs.FS = migrate.Migrations()
		if *dir != "" {
			source = os.DirFS(*dir)
		}
		exitOn(migrate.Validate(source), "validate migrations")
		fmt.Println("migrations ok")
		return
	}

	cfg, err := config.LoadForMigrations()
	exitOn(err, "load config")

	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		FilePath:    cfg.App.LogFile,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "command": command})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "migrate.db.connect_failed", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := run(ctx, dbClient, command, *dir, *version); err != nil {
		logg.Error(ctx, "migrate.failed", err)
		dbClient.Close()
		os.Exit(1)
	}
	logg.Info(ctx, "migrate.completed")
}

func run(ctx context.Context, client *db.Client, command, dir, version string) error {
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	var source fs.FS
	if dir != "" {
		source = os.DirFS(dir)
	}
	runner, err := migrate.NewRunner(sqlDB, source)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		applied, err := runner.Up(ctx)
		fmt.Printf("applied %d migration(s)\n", applied)
		return err
	case "down":
		return runner.Down(ctx)
	case "redo":
		return runner.Redo(ctx)
	case "to":
		target, err := strconv.ParseInt(version, 10, 64)
		if err != nil {
			return fmt.Errorf("-version must be YYYYMMDDHHMMSS: %w", err)
		}
		return runner.To(ctx, target)
	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
		for _, st := range statuses {
			applied := "-"
			if !st.AppliedAt.IsZero() {
				applied = st.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", st.Source.Version, st.State, applied, st.Source.Path)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func exitOn(err error, action string) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", action, err)
	os.Exit(1)
}
