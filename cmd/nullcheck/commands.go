package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jacksonlee411/nullguard/internal/config"
	"github.com/jacksonlee411/nullguard/internal/declare"
	"github.com/jacksonlee411/nullguard/internal/server"
	"github.com/jacksonlee411/nullguard/pkg/nullability"
	"github.com/jacksonlee411/nullguard/pkg/nullability/fields"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errRecordsInvalid = errors.New("one or more records are invalid")

func loadCatalog(path string) (*declare.Catalog, error) {
	d, err := declare.LoadDeclarations(path)
	if err != nil {
		return nil, err
	}
	c, err := declare.NewCatalog(d)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("declarations loaded", zap.String("path", path), zap.Strings("record_types", c.RecordTypes()))
	return c, nil
}

func newLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <declarations.yaml>...",
		Short: "Validate declaration files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				c, err := loadCatalog(path)
				if err != nil {
					return err
				}
				n := 0
				for _, t := range c.RecordTypes() {
					specs, _ := c.Specs(t)
					n += len(specs)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d record types, %d constraints)\n", path, len(c.RecordTypes()), n)
			}
			return nil
		},
	}
}

type evalOptions struct {
	declarations string
	recordType   string
	resolver     string
	missingField string
}

func newEvalCmd() *cobra.Command {
	var opts evalOptions
	cmd := &cobra.Command{
		Use:   "eval --declarations <file> --type <record_type> <record.json>...",
		Short: "Evaluate JSON records against the constraints of a record type",
		Long: `Each record file holds one JSON object, or an array of objects.
A "-" reads from stdin. The exit status is 1 when any record is invalid.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.declarations, "declarations", "", "declarations file")
	cmd.Flags().StringVar(&opts.recordType, "type", "", "record type to evaluate")
	cmd.Flags().StringVar(&opts.resolver, "resolver", string(config.ResolverMap), "field resolver (map|cel)")
	cmd.Flags().StringVar(&opts.missingField, "missing-field", string(fields.MissingFieldFatal), "missing field handling (fatal|absent)")
	_ = cmd.MarkFlagRequired("declarations")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func runEval(cmd *cobra.Command, opts evalOptions, args []string) error {
	settings, err := config.Server{
		DeclarationsPath: opts.declarations,
		Resolver:         opts.resolver,
		MissingField:     opts.missingField,
	}.Settings()
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(opts.declarations)
	if err != nil {
		return err
	}
	specs, ok := catalog.Specs(opts.recordType)
	if !ok {
		return fmt.Errorf("record type %q is not declared in %s", opts.recordType, opts.declarations)
	}
	resolver, err := server.NewResolver(settings.ResolverKind, settings.MissingFieldMode, catalog)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	invalid := 0
	for _, path := range args {
		records, err := readRecords(cmd.InOrStdin(), path)
		if err != nil {
			return err
		}
		for i, record := range records {
			label := path
			if len(records) > 1 {
				label = fmt.Sprintf("%s[%d]", path, i)
			}
			ok, err := evalRecord(out, label, specs, record, resolver)
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			if !ok {
				invalid++
			}
		}
	}
	if invalid > 0 {
		logger.Debug("invalid records", zap.Int("count", invalid))
		return errRecordsInvalid
	}
	return nil
}

func evalRecord(out io.Writer, label string, specs []nullability.Spec, record any, r nullability.Resolver) (bool, error) {
	valid := true
	for _, s := range specs {
		verdict, err := nullability.Evaluate(s, record, r)
		if err != nil {
			return false, err
		}
		name := s.Name()
		if name == "" {
			name = "-"
		}
		line := fmt.Sprintf("%s\t%s\t%s\t%s", label, name, s, verdict)
		if verdict == nullability.Invalid {
			valid = false
			if s.Message() != "" {
				line += "\t" + s.Message()
			}
		}
		fmt.Fprintln(out, line)
	}
	return valid, nil
}

func readRecords(stdin io.Reader, path string) ([]any, error) {
	var b []byte
	var err error
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if list, ok := v.([]any); ok {
		return list, nil
	}
	return []any{v}, nil
}

func connect(ctx context.Context, url string) (*pgx.Conn, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return nil, errors.New("missing --url (or DATABASE_URL)")
	}
	return pgx.Connect(ctx, url)
}

func newMigrateCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the declarations table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			conn, err := connect(ctx, url)
			if err != nil {
				return err
			}
			defer conn.Close(context.Background())
			if err := declare.EnsureSchema(ctx, conn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "[migrate] OK")
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "postgres connection string")
	return cmd
}

func newPushCmd() *cobra.Command {
	var url, tenantID string
	cmd := &cobra.Command{
		Use:   "push --tenant <id> <declarations.yaml>",
		Short: "Upsert every constraint of a declarations file for one tenant in one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := declare.LoadDeclarations(args[0])
			if err != nil {
				return err
			}
			if _, err := declare.NewCatalog(d); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			conn, err := connect(ctx, url)
			if err != nil {
				return err
			}
			defer conn.Close(context.Background())
			return pushDeclarations(ctx, cmd.OutOrStdout(), declare.NewPGStore(conn), tenantID, d)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "postgres connection string")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

type declarationsPutter interface {
	PutDeclarations(ctx context.Context, tenantID string, d declare.Declarations) (int, error)
}

// pushDeclarations writes the whole file in one transaction; a failure
// leaves the tenant's stored constraints as they were.
func pushDeclarations(ctx context.Context, out io.Writer, store declarationsPutter, tenantID string, d declare.Declarations) error {
	n, err := store.PutDeclarations(ctx, tenantID, d)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "[push] OK tenant=%s constraints=%d\n", tenantID, n)
	return nil
}
