package main

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/pavitra93/food-ordering-admin/shared/config"
	"github.com/pavitra93/food-ordering-admin/shared/importer"
	"github.com/pavitra93/food-ordering-admin/shared/store"
)

// opener connects to the platform database
type opener func() (*gorm.DB, error)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:          "vendorctl",
		Short:        "Operator tasks for the food ordering admin platform",
		SilenceUsage: true,
	}
	root.PersistentFlags().Bool("verbose", false, "log at debug level")
	root.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	}

	root.AddCommand(
		newMigrateCmd(open),
		newImportCmd(open),
		newCreateSuperAdminCmd(open),
	)
	return root
}

func newMigrateCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update every table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			if err := config.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrated")
			return nil
		},
	}
}

func newImportCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk import rows from a local CSV file",
	}
	cmd.AddCommand(newImportMenuItemsCmd(open), newImportEmployeesCmd(open))
	return cmd
}

type importFlags struct {
	file        string
	rejectedOut string
}

func (f *importFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "file", "", "CSV file to import")
	cmd.Flags().StringVar(&f.rejectedOut, "rejected-out", "", "write rejected rows to this CSV file")
	_ = cmd.MarkFlagRequired("file")
}

func newImportMenuItemsCmd(open opener) *cobra.Command {
	var (
		flags      importFlags
		terminalID string
	)
	cmd := &cobra.Command{
		Use:   "menu-items",
		Short: "Import the menu of a terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.Parse(terminalID)
			if err != nil {
				return fmt.Errorf("invalid --terminal: %w", err)
			}
			sheet, err := readSheet(flags.file, importer.MenuItemSchema)
			if err != nil {
				return err
			}
			db, err := open()
			if err != nil {
				return err
			}

			st := store.New(db)
			ctx := cmd.Context()
			if _, err := st.GetTerminal(ctx, id); err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), flags, st.ImportMenuItems(ctx, id, sheet))
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&terminalID, "terminal", "", "terminal id")
	_ = cmd.MarkFlagRequired("terminal")
	return cmd
}

func newImportEmployeesCmd(open opener) *cobra.Command {
	var (
		flags     importFlags
		companyID string
	)
	cmd := &cobra.Command{
		Use:   "employees",
		Short: "Import the employees of a company",
		Long:  "Import the employees of a company. Imported employees have no password; a company admin issues each one a set-password token.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.Parse(companyID)
			if err != nil {
				return fmt.Errorf("invalid --company: %w", err)
			}
			sheet, err := readSheet(flags.file, importer.EmployeeSchema)
			if err != nil {
				return err
			}
			db, err := open()
			if err != nil {
				return err
			}

			st := store.New(db)
			ctx := cmd.Context()
			if _, err := st.GetCompany(ctx, id); err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), flags, st.ImportEmployees(ctx, id, sheet, nil))
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&companyID, "company", "", "company id")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

func newCreateSuperAdminCmd(open opener) *cobra.Command {
	var name, email, mobile, password string
	cmd := &cobra.Command{
		Use:   "create-super-admin",
		Short: "Create a platform super admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("SUPER_ADMIN_PASSWORD")
			}
			db, err := open()
			if err != nil {
				return err
			}

			user, err := store.New(db).CreateSuperAdmin(cmd.Context(), name, email, mobile, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created super admin %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "sign-in email")
	cmd.Flags().StringVar(&mobile, "mobile", "", "10-digit mobile number")
	cmd.Flags().StringVar(&password, "password", "", "password (defaults to $SUPER_ADMIN_PASSWORD)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("mobile")
	return cmd
}

func readSheet(path string, schema importer.Schema) (*importer.Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	return importer.Parse(f, schema)
}

// report prints the import outcome and writes the rejected rows when asked to
func report(out io.Writer, flags importFlags, result *importer.Result) error {
	fmt.Fprintf(out, "Imported %d %s, rejected %d\n", result.Imported, result.Kind, len(result.Rejected))
	for _, row := range result.Rejected {
		fmt.Fprintf(out, "  line %d: %s\n", row.Line, row.Reason)
	}

	if flags.rejectedOut == "" || !result.HasRejections() {
		return nil
	}
	data, err := result.RejectedCSV()
	if err != nil {
		return err
	}
	if err := os.WriteFile(flags.rejectedOut, data, 0o644); err != nil {
		return fmt.Errorf("failed to write rejected rows: %w", err)
	}
	fmt.Fprintf(out, "Rejected rows written to %s\n", flags.rejectedOut)
	return nil
}
