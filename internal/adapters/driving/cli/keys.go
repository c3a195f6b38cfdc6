package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driving"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
	Long:  `Create, inspect, update and delete the API keys clients authenticate with.`,
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API key",
	Args:  cobra.NoArgs,
	RunE:  runKeysCreate,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API keys",
	Args:  cobra.NoArgs,
	RunE:  runKeysList,
}

var keysGetCmd = &cobra.Command{
	Use:   "get [key-or-id]",
	Short: "Show an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysGet,
}

var keysUpdateCmd = &cobra.Command{
	Use:   "update [key-or-id]",
	Short: "Update an API key",
	Long:  `Changes only the fields whose flags are given.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysUpdate,
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete [key-or-id]",
	Short: "Delete an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysDelete,
}

var keysAuthorizeCmd = &cobra.Command{
	Use:   "authorize [key] [action] [index]",
	Short: "Check whether a key grants an action",
	Long:  `Verifies the key and checks it grants the action on the index. Omit the index for index-independent actions.`,
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runKeysAuthorize,
}

var (
	keyDescription string
	keyActions     []string
	keyIndexes     []string
	keyExpiresAt   string
	keysJSON       bool
)

func init() {
	for _, c := range []*cobra.Command{keysCreateCmd, keysUpdateCmd} {
		c.Flags().StringVarP(&keyDescription, "description", "d", "", "human readable description")
		c.Flags().StringSliceVarP(&keyActions, "actions", "a", nil, "granted actions, e.g. search,documents.add or *")
		c.Flags().StringSliceVarP(&keyIndexes, "indexes", "i", nil, "indexes the key applies to, or *")
		c.Flags().StringVar(&keyExpiresAt, "expires-at", "", "expiry as RFC 3339 timestamp")
	}
	for _, c := range []*cobra.Command{keysCreateCmd, keysListCmd, keysGetCmd, keysUpdateCmd} {
		c.Flags().BoolVar(&keysJSON, "json", false, "output as JSON")
	}

	keysCmd.AddCommand(keysCreateCmd)
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysGetCmd)
	keysCmd.AddCommand(keysUpdateCmd)
	keysCmd.AddCommand(keysDeleteCmd)
	keysCmd.AddCommand(keysAuthorizeCmd)
	rootCmd.AddCommand(keysCmd)
}

func runKeysCreate(cmd *cobra.Command, _ []string) error {
	if keyService == nil {
		return errors.New("key service not configured")
	}

	expires, err := parseExpiry(keyExpiresAt)
	if err != nil {
		return err
	}

	view, err := keyService.Create(cmd.Context(), driving.KeyRequest{
		Description: keyDescription,
		Actions:     parseActions(keyActions),
		Indexes:     keyIndexes,
		ExpiresAt:   expires,
	})
	if err != nil {
		return fmt.Errorf("failed to create key: %w", err)
	}

	if keysJSON {
		return printJSON(cmd, view)
	}
	printKey(cmd, view)
	return nil
}

func runKeysList(cmd *cobra.Command, _ []string) error {
	if keyService == nil {
		return errors.New("key service not configured")
	}

	views, err := keyService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}

	if keysJSON {
		return printJSON(cmd, views)
	}
	if len(views) == 0 {
		cmd.Println("No keys found.")
		return nil
	}
	for i := range views {
		printKey(cmd, &views[i])
		cmd.Println()
	}
	cmd.Printf("Total: %d keys\n", len(views))
	return nil
}

func runKeysGet(cmd *cobra.Command, args []string) error {
	if keyService == nil {
		return errors.New("key service not configured")
	}

	view, err := keyService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get key: %w", err)
	}

	if keysJSON {
		return printJSON(cmd, view)
	}
	printKey(cmd, view)
	return nil
}

func runKeysUpdate(cmd *cobra.Command, args []string) error {
	if keyService == nil {
		return errors.New("key service not configured")
	}

	var patch driving.KeyPatch
	flags := cmd.Flags()
	if flags.Changed("description") {
		patch.Description = &keyDescription
	}
	if flags.Changed("actions") {
		patch.Actions = parseActions(keyActions)
	}
	if flags.Changed("indexes") {
		patch.Indexes = keyIndexes
	}
	if flags.Changed("expires-at") {
		expires, err := parseExpiry(keyExpiresAt)
		if err != nil {
			return err
		}
		if expires == nil {
			return errors.New("an expiry can be moved but not removed")
		}
		patch.ExpiresAt = expires
	}

	view, err := keyService.Update(cmd.Context(), args[0], patch)
	if err != nil {
		return fmt.Errorf("failed to update key: %w", err)
	}

	if keysJSON {
		return printJSON(cmd, view)
	}
	printKey(cmd, view)
	return nil
}

func runKeysDelete(cmd *cobra.Command, args []string) error {
	if keyService == nil {
		return errors.New("key service not configured")
	}

	if err := keyService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	cmd.Printf("Deleted key %s\n", args[0])
	return nil
}

func runKeysAuthorize(cmd *cobra.Command, args []string) error {
	if keyService == nil {
		return errors.New("key service not configured")
	}

	action := domain.Action(args[1])
	index := ""
	if len(args) == 3 {
		index = args[2]
	}

	key, err := keyService.Authorize(cmd.Context(), args[0], action, index)
	if errors.Is(err, domain.ErrUnauthorized) {
		cmd.Printf("Denied: %v\n", err)
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to authorize: %w", err)
	}
	cmd.Printf("Granted: key %s may %s", key.ID, action)
	if index != "" {
		cmd.Printf(" on %s", index)
	}
	cmd.Println()
	return nil
}
