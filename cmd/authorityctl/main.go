// Package main implements authorityctl, a command-line client for the
// authority document store: create and inspect authorities and items,
// resolve reference names, walk item hierarchies, and query reference
// tracking.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/c360/authoritystore/authority"
	"github.com/c360/authoritystore/config"
	"github.com/c360/authoritystore/document"
	"github.com/c360/authoritystore/metric"
	"github.com/c360/authoritystore/natsrepo"
	"github.com/c360/authoritystore/refname"
	"github.com/c360/authoritystore/refs"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "authorityctl"
)

func main() {
	if err := run(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		logger.Info("configuration is valid", "path", cliCfg.ConfigPath)
		return nil
	}

	args := flag.Args()
	if len(args) == 0 {
		printDetailedHelp()
		return fmt.Errorf("no command given")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := natsrepo.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	registry := metric.NewRegistry()
	svc := authority.New(cfg, repo, logger, registry.Metrics)

	return dispatch(ctx, svc, args[0], args[1:])
}

func dispatch(ctx context.Context, svc *authority.Service, command string, args []string) error {
	switch command {
	case "create-authority":
		if err := wantArgs(command, args, 2); err != nil {
			return err
		}
		csid, err := svc.CreateAuthority(ctx, namedDoc(args[0], args[1]))
		if err != nil {
			return err
		}
		fmt.Println(csid)
		return nil

	case "get-authority":
		if err := wantArgs(command, args, 1); err != nil {
			return err
		}
		doc, err := svc.GetAuthority(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(doc)

	case "list-authorities":
		list, err := svc.ListAuthorities(ctx, authority.ListQuery{ComputeTotal: true})
		if err != nil {
			return err
		}
		return printJSON(list)

	case "delete-authority":
		if err := wantArgs(command, args, 1); err != nil {
			return err
		}
		return svc.DeleteAuthority(ctx, args[0])

	case "create-item":
		if err := wantArgs(command, args, 3); err != nil {
			return err
		}
		csid, err := svc.CreateItem(ctx, args[0], namedDoc(args[1], args[2]))
		if err != nil {
			return err
		}
		fmt.Println(csid)
		return nil

	case "get-item":
		if err := wantArgs(command, args, 2); err != nil {
			return err
		}
		doc, err := svc.GetItem(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(doc)

	case "list-items":
		if len(args) < 1 {
			return fmt.Errorf("%s: expected <parent-spec> [partial-term]", command)
		}
		q := authority.ItemsQuery{ComputeTotal: true}
		if len(args) > 1 {
			q.PartialTerm = args[1]
		}
		list, err := svc.ListItems(ctx, args[0], q)
		if err != nil {
			return err
		}
		return printJSON(list)

	case "delete-item":
		if err := wantArgs(command, args, 2); err != nil {
			return err
		}
		return svc.DeleteItem(ctx, args[0], args[1])

	case "transition":
		if err := wantArgs(command, args, 3); err != nil {
			return err
		}
		return svc.TransitionItem(ctx, args[0], args[1], args[2])

	case "resolve":
		if err := wantArgs(command, args, 1); err != nil {
			return err
		}
		ref, err := refname.ParseItem(args[0])
		if err != nil {
			return err
		}
		csid, err := svc.Resolver().ResolveItemIdentity(ctx, &ref)
		if err != nil {
			return err
		}
		fmt.Println(csid)
		return nil

	case "hierarchy":
		if len(args) < 2 {
			return fmt.Errorf("%s: expected <parent-spec> <item-spec> [parents]", command)
		}
		direction := ""
		if len(args) > 2 {
			direction = args[2]
		}
		node, err := svc.Hierarchy(ctx, args[0], args[1], direction)
		if err != nil {
			return err
		}
		return printJSON(node)

	case "refs":
		if err := wantArgs(command, args, 2); err != nil {
			return err
		}
		list, err := svc.ReferencingObjects(ctx, args[0], args[1], refs.Query{ComputeTotal: true})
		if err != nil {
			return err
		}
		return printJSON(list)

	case "authority-refs":
		if err := wantArgs(command, args, 2); err != nil {
			return err
		}
		entries, err := svc.AuthorityRefs(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(entries)

	default:
		printDetailedHelp()
		return fmt.Errorf("unknown command %q", command)
	}
}

func namedDoc(shortID, displayName string) *document.Document {
	doc := document.New("")
	doc.Set(document.FieldShortIdentifier, shortID)
	doc.Set(document.FieldDisplayName, displayName)
	return doc
}

func wantArgs(command string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s: expected %d argument(s), got %d", command, n, len(args))
	}
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
