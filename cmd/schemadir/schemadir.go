package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/k0kubun/pp/v3"
	"github.com/sqldef/schemadir"
	"github.com/sqldef/schemadir/database"
	"github.com/sqldef/schemadir/layout"
	"github.com/sqldef/schemadir/util"
	"golang.org/x/term"
)

var version string

const (
	commandScript  = "script"
	commandCreate  = "create"
	commandCompare = "compare"
)

type cliOptions struct {
	User     string `short:"U" long:"user" description:"MSSQL user name" value-name:"user_name" default:"sa"`
	Password string `short:"P" long:"password" description:"MSSQL user password, overridden by $MSSQL_PWD" value-name:"password"`
	Host     string `short:"h" long:"host" description:"Host to connect to the MSSQL server" value-name:"host_name" default:"127.0.0.1"`
	Port     uint   `short:"p" long:"port" description:"Port used for the connection" value-name:"port_num" default:"1433"`
	Prompt   bool   `long:"password-prompt" description:"Force MSSQL user password prompt"`
	Config   string `long:"config" description:"YAML file with excluded_categories, data_tables, data_tables_exclude and table_hint" value-name:"config_file"`

	Dir               string        `short:"d" long:"dir" description:"Directory holding the scripts" value-name:"dir" default:"."`
	Exclude           []string      `long:"exclude" description:"Skip a category, can be given multiple times" value-name:"category"`
	DataTables        string        `long:"data-tables" description:"Regexp of tables whose rows are exported" value-name:"pattern"`
	DataTablesExclude string        `long:"data-tables-exclude" description:"Regexp of tables whose rows are not exported" value-name:"pattern"`
	TableHint         string        `long:"table-hint" description:"Table hint used when exporting rows, e.g. NOLOCK" value-name:"hint"`
	Concurrency       int           `long:"concurrency" description:"Tables exported in parallel, negative for no limit" value-name:"num" default:"1"`
	Overwrite         bool          `long:"overwrite" description:"Drop the database first if it already exists"`
	DryRun            bool          `long:"dry-run" description:"Don't run the scripts but just show them"`
	Timeout           time.Duration `long:"timeout" description:"Timeout of each batch, e.g. 30s" value-name:"duration"`
	Script            bool          `long:"script" description:"Print the migration script of compare instead of a summary"`
	Debug             bool          `long:"debug" description:"Dump the whole comparison result of compare"`

	Help    bool `long:"help" description:"Show this help"`
	Version bool `long:"version" description:"Show this version"`
}

type command struct {
	name    string
	configs []database.Config
	options *schemadir.Options
	script  bool
	debug   bool
}

// Return the parsed command with its database configs
func parseOptions(args []string) (*command, error) {
	var opts cliOptions
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[options] script|create db_name\n  schemadir [options] compare source_db target_db"
	args, err := parser.ParseArgs(args)
	if err != nil {
		return nil, err
	}

	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if len(args) == 0 {
		return nil, errors.New("no command is specified")
	}
	cmd := &command{name: args[0], script: opts.Script, debug: opts.Debug}
	names := args[1:]
	switch cmd.name {
	case commandScript, commandCreate:
		if len(names) != 1 {
			return nil, fmt.Errorf("%s expects one database, got %v", cmd.name, names)
		}
	case commandCompare:
		if len(names) != 2 {
			return nil, fmt.Errorf("compare expects a source and a target database, got %v", names)
		}
	default:
		return nil, fmt.Errorf("unknown command '%s'", cmd.name)
	}

	fileConfig, err := database.ParseFileConfig(opts.Config)
	if err != nil {
		return nil, err
	}
	categories, err := layout.NewCategories(append(fileConfig.ExcludedCategories, opts.Exclude...))
	if err != nil {
		return nil, err
	}

	cmd.options = &schemadir.Options{
		Dir:               opts.Dir,
		Categories:        categories,
		DataTables:        firstNonEmpty(opts.DataTables, fileConfig.DataTables),
		DataTablesExclude: firstNonEmpty(opts.DataTablesExclude, fileConfig.DataTablesExclude),
		TableHint:         firstNonEmpty(opts.TableHint, fileConfig.TableHint),
		Concurrency:       opts.Concurrency,
		Overwrite:         opts.Overwrite,
		DryRun:            opts.DryRun,
	}

	password, ok := os.LookupEnv("MSSQL_PWD")
	if !ok {
		password = opts.Password
	}

	if opts.Prompt {
		fmt.Printf("Enter Password: ")
		pass, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return nil, err
		}
		password = string(pass)
	}

	config := database.Config{
		User:     opts.User,
		Password: password,
		Host:     opts.Host,
		Port:     int(opts.Port),
		Timeout:  opts.Timeout,
	}
	for _, name := range names {
		cmd.configs = append(cmd.configs, config.WithDbName(name))
	}
	return cmd, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func run(ctx context.Context, cmd *command) (bool, error) {
	logger := database.StdoutLogger{}
	switch cmd.name {
	case commandScript:
		return true, schemadir.Script(ctx, cmd.configs[0], cmd.options, logger)
	case commandCreate:
		return true, schemadir.Create(ctx, cmd.configs[0], cmd.options, logger)
	default:
		d, err := schemadir.Compare(ctx, cmd.configs[0], cmd.configs[1])
		if err != nil {
			return false, err
		}
		if cmd.debug {
			pp.Println(d)
		}
		if cmd.script {
			fmt.Print(d.Script())
		} else {
			fmt.Print(d.Report())
		}
		return !d.IsDiff(), nil
	}
}

func main() {
	util.InitSlog()

	cmd, err := parseOptions(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	same, err := run(ctx, cmd)
	if err != nil {
		log.Fatal(err)
	}
	if !same {
		os.Exit(1)
	}
}
