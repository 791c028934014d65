package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"library-lending/internal/app"
	"library-lending/internal/core/config"
	"library-lending/internal/core/logger"
	"library-lending/internal/domain"
	"library-lending/internal/policy"
	"library-lending/internal/service"
)

// operator 本地运维命令以管理员身份执行
var operator = policy.Actor{UserID: "cli", Role: domain.RoleAdmin, Authenticated: true}

func main() {
	_ = godotenv.Load()
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:          "library-admin",
		Short:        "Operator tasks for the library lending service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", os.Getenv("CONFIG_PATH"), "config file")

	withApp := func(run func(ctx context.Context, a *app.App, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
			defer cleanup()
			a, err := app.New(cmd.Context(), cfg, log, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()
			return run(cmd.Context(), a, args)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			Args:  cobra.NoArgs,
			RunE: withApp(func(_ context.Context, a *app.App, _ []string) error {
				return a.Migrate()
			}),
		},
		createAdminCmd(withApp),
		importBooksCmd(withApp),
	)
	return root
}

type appRunner func(run func(ctx context.Context, a *app.App, args []string) error) func(*cobra.Command, []string) error

func createAdminCmd(withApp appRunner) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "create-admin <username>",
		Short: "Create an administrator account",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	cmd.RunE = withApp(func(ctx context.Context, a *app.App, args []string) error {
		if password == "" {
			pw, err := promptPassword(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			password = pw
		}
		if len(password) < 8 {
			return errors.New("password must be at least 8 characters")
		}
		u, err := a.Services.Users.Create(ctx, operator, service.NewUser{
			Username: args[0],
			Email:    email,
			Password: password,
			Role:     domain.RoleAdmin,
		})
		if err != nil {
			return err
		}
		a.Log.Info("admin created", zap.String("user_id", u.ID), zap.String("username", u.Username))
		fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", u.Username, u.ID)
		return nil
	})
	return cmd
}

func promptPassword(out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal, pass --password")
	}
	fmt.Fprint(out, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	fmt.Fprint(out, "Repeat: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func importBooksCmd(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "import-books <file.csv>",
		Short: "Import books from a CSV file (title,author,isbn,page_count)",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			rows, err := readBooks(f)
			if err != nil {
				return err
			}
			var created, skipped int
			for _, in := range rows {
				if _, err := a.Services.Books.Create(ctx, operator, in); err != nil {
					var dup *domain.DuplicateError
					if errors.As(err, &dup) {
						skipped++
						continue
					}
					return fmt.Errorf("import %q: %w", in.ISBN, err)
				}
				created++
			}
			a.Log.Info("books imported", zap.Int("created", created), zap.Int("skipped", skipped))
			return nil
		}),
	}
}

// readBooks 首行为表头时跳过
func readBooks(r io.Reader) ([]service.BookInput, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true
	var out []service.BookInput
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && strings.EqualFold(rec[0], "title") {
			continue
		}
		pages, err := strconv.Atoi(rec[3])
		if err != nil || pages <= 0 {
			return nil, fmt.Errorf("line %d: invalid page_count %q", line, rec[3])
		}
		isbn := strings.ReplaceAll(rec[2], "-", "")
		if n := len(isbn); n < 10 || n > 13 {
			return nil, fmt.Errorf("line %d: invalid isbn %q", line, rec[2])
		}
		if rec[0] == "" || rec[1] == "" {
			return nil, fmt.Errorf("line %d: title and author are required", line)
		}
		out = append(out, service.BookInput{Title: rec[0], Author: rec[1], ISBN: isbn, PageCount: pages})
	}
}
