// backup_tool works with S-List encrypted backups outside the app: decrypt
// one to inspect it, or encrypt a plaintext export back into a backup file.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"syscall"

	"slist/slist"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	password string
	outPath  string
)

var rootCmd = &cobra.Command{
	Use:   "backup_tool",
	Short: "Inspect and produce S-List encrypted backups",
	Long: `backup_tool decrypts S-List backup files to readable JSON and
encrypts plaintext exports back into backups, using the same
password-derived key as the app.`,
	SilenceUsage: true,
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt <backup-file>",
	Short: "Decrypt a backup and print its JSON payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		blob, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read backup: %w", err)
		}
		pw, err := getPassword()
		if err != nil {
			return err
		}

		plaintext, err := slist.Decrypt(slist.DeriveKey(pw), strings.TrimSpace(string(blob)))
		if err != nil {
			return fmt.Errorf("decrypt backup (wrong password or corrupted file?): %w", err)
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, []byte(plaintext), "", "  "); err != nil {
			// Not JSON; emit as-is.
			return writeOutput(cmd, []byte(plaintext))
		}
		pretty.WriteByte('\n')
		return writeOutput(cmd, pretty.Bytes())
	},
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt <json-file>",
	Short: "Encrypt a plaintext JSON export into a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read export: %w", err)
		}
		if !json.Valid(payload) {
			return fmt.Errorf("%s is not valid JSON", args[0])
		}
		pw, err := getPassword()
		if err != nil {
			return err
		}

		blob, err := slist.Encrypt(slist.DeriveKey(pw), string(payload))
		if err != nil {
			return fmt.Errorf("encrypt export: %w", err)
		}
		return writeOutput(cmd, []byte(blob))
	},
}

func getPassword() (string, error) {
	if password != "" {
		return password, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func writeOutput(cmd *cobra.Command, data []byte) error {
	if outPath == "" {
		cmd.OutOrStdout().Write(data)
		return nil
	}
	if err := os.WriteFile(outPath, data, 0o600); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Written to %s\n", outPath)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	rootCmd.PersistentFlags().StringVarP(&outPath, "out", "o", "", "output file (stdout when omitted)")
	rootCmd.AddCommand(decryptCmd, encryptCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
