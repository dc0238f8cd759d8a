package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"propdash/internal/auth"
	"propdash/pkg/client"
	"propdash/pkg/model"
)

var (
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and print a session token",
	Long: `Sign in with a username and password. The password is read from stdin
when --password is not given. Export the printed token as PROPDASH_TOKEN.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your listings",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var addFields = &fieldFlags{}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a listing",
	Long:  `Create a listing. Every field except --note is required; new listings start as Available.`,
	Args:  cobra.NoArgs,
	RunE:  runAdd,
}

var editFields = &fieldFlags{}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Replace a listing's fields",
	Long:  `Replace a listing's fields. Fields without a flag keep their current value.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

var statusCmd = &cobra.Command{
	Use:       "status <id> <Available|Rented>",
	Short:     "Mark a listing Available or Rented",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(model.StatusAvailable), string(model.StatusRented)},
	RunE:      runStatus,
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a listing",
	Args:    cobra.ExactArgs(1),
	RunE:    runDelete,
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for the server's user list",
	Long: `Print a bcrypt hash suitable for AUTH_USERS ("username:hash").
The password is read from stdin when not given as an argument.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHashPassword,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password (read from stdin if empty)")
	_ = loginCmd.MarkFlagRequired("username")

	addFields.bind(addCmd)
	editFields.bind(editCmd)
}

// fieldFlags binds one flag per editable listing field.
type fieldFlags struct {
	values model.ListingFields
}

func (f *fieldFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.values.Name, "name", "", "Listing name")
	flags.StringVar(&f.values.Price, "price", "", "Price, free text")
	flags.StringVar(&f.values.Rooms, "rooms", "", "Rooms, free text")
	flags.StringVar(&f.values.Location, "location", "", "Location")
	flags.StringVar(&f.values.City, "city", "", "City")
	flags.StringVar(&f.values.Utilities, "utilities", "", "Utilities")
	flags.StringVar(&f.values.Parking, "parking", "", "Parking")
	flags.StringVar(&f.values.PetPolicy, "pet-policy", "", "Pet policy")
	flags.StringVar(&f.values.Available, "available", "", "Availability date or note")
	flags.StringVar(&f.values.Note, "note", "", "Optional note")
}

// merge returns base with every flag the user set on cmd overriding it.
func (f *fieldFlags) merge(cmd *cobra.Command, base model.ListingFields) model.ListingFields {
	flags := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("name", &base.Name, f.values.Name)
	set("price", &base.Price, f.values.Price)
	set("rooms", &base.Rooms, f.values.Rooms)
	set("location", &base.Location, f.values.Location)
	set("city", &base.City, f.values.City)
	set("utilities", &base.Utilities, f.values.Utilities)
	set("parking", &base.Parking, f.values.Parking)
	set("pet-policy", &base.PetPolicy, f.values.PetPolicy)
	set("available", &base.Available, f.values.Available)
	set("note", &base.Note, f.values.Note)
	return base
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogin(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	password := loginPassword
	if password == "" {
		var err error
		if password, err = readSecret(cmd, "Password: "); err != nil {
			return err
		}
	}

	sess, err := client.NewListingClient(serverURL, "").Login(ctx, loginUsername, password)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Signed in as %s (session expires %s)\n", sess.User.Name, sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "export %s=%s\n", envToken, sess.Token)
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openDashboard(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	printListings(cmd.OutOrStdout(), s.dashboard.Listings())
	return nil
}

func runAdd(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openDashboard(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.dashboard.Add(ctx, addFields.merge(cmd, model.ListingFields{})); err != nil {
		return err
	}
	printListings(cmd.OutOrStdout(), s.dashboard.Listings())
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openDashboard(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	id := args[0]
	var current *model.Listing
	for _, l := range s.dashboard.Listings() {
		if l.ID == id {
			current = &l
			break
		}
	}
	if current == nil {
		return fmt.Errorf("listing %s not found", id)
	}

	if err := s.dashboard.Edit(ctx, id, editFields.merge(cmd, current.Fields())); err != nil {
		return err
	}
	printListings(cmd.OutOrStdout(), s.dashboard.Listings())
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	status := model.Status(args[1])
	if !status.Valid() {
		return fmt.Errorf("status must be either '%s' or '%s'", model.StatusAvailable, model.StatusRented)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openDashboard(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.dashboard.SetStatus(ctx, args[0], status); err != nil {
		return err
	}
	printListings(cmd.OutOrStdout(), s.dashboard.Listings())
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openDashboard(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.dashboard.Delete(ctx, args[0]); err != nil {
		return err
	}
	printListings(cmd.OutOrStdout(), s.dashboard.Listings())
	return nil
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		var err error
		if password, err = readSecret(cmd, "Password: "); err != nil {
			return err
		}
	}
	hash, err := auth.HashPassword(password, auth.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
