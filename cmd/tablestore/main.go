/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Command tablestore inspects tables described in a YAML schema file.
//
//	tablestore -schema tables.yaml -table users count
//	tablestore -schema tables.yaml -table chats -pk c1 -limit 20 -backward query
//	tablestore -schema tables.yaml -table users -pk u1 get
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/suparena/tablestore"
	"github.com/suparena/tablestore/config"
	"github.com/suparena/tablestore/logger"
	"github.com/suparena/tablestore/storagemodels"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	vFlag       = flag.Bool("v", false, "Show version information (short)")
	configDir   = flag.String("config", "", "Directory holding tablestore.yaml and .env")
	schemaFile  = flag.String("schema", "", "YAML table definitions (defaults to schema_file from config)")
	tableFlag   = flag.String("table", "", "Base table name from the schema file")
	pkFlag      = flag.String("pk", "", "Partition key value for get and query")
	skFlag      = flag.String("sk", "", "Sort key value for get")
	indexFlag   = flag.String("index", "", "Secondary index for query and scan")
	limitFlag   = flag.Int("limit", 0, "Maximum items per page")
	backward    = flag.Bool("backward", false, "Query in descending sort key order")
	allFlag     = flag.Bool("all", false, "Follow continuation tokens to the end")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] count|get|scan|query\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *versionFlag || *vFlag {
		info := tablestore.GetVersionInfo()
		fmt.Printf("tablestore version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "tablestore: %v\n", err)
		os.Exit(1)
	}
}

func run(command string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var paths []string
	if *configDir != "" {
		paths = append(paths, *configDir)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		return err
	}

	schema := *schemaFile
	if schema == "" {
		schema = cfg.SchemaFile
	}
	if schema == "" {
		return fmt.Errorf("no schema file given")
	}
	defs, err := storagemodels.LoadTableDefinitionsFile(schema)
	if err != nil {
		return err
	}

	// Logs go to stderr so stdout stays valid JSON.
	log := logger.NewWithOutput(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	storage, err := tablestore.NewStorage(cfg, tablestore.WithLogger(log))
	if err != nil {
		return err
	}

	a := &app{storage: storage, defs: defs, out: os.Stdout}
	return a.run(ctx, command, request{
		table:    *tableFlag,
		pk:       *pkFlag,
		sk:       *skFlag,
		index:    *indexFlag,
		limit:    int32(*limitFlag),
		backward: *backward,
		all:      *allFlag,
	})
}
