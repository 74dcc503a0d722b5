package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/ssh/terminal"
)

// genauth is the "passwd-style" operator helper of SPEC_FULL.md's
// supplemented features: it never touches the running service or its
// config, it only prints a bcrypt hash of the entered password. The
// service compares auth.password as plaintext; it does not verify bcrypt
// hashes, so a hash stored there is matched literally. Modeled on
// cmd/altmount/cmd/passwd.go's interactive terminal password prompt.
func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "genauth",
		Short: "Print a bcrypt hash of a password",
		RunE:  runGenAuth,
	})
}

func runGenAuth(cmd *cobra.Command, args []string) error {
	fmt.Print("Enter password to hash: ")
	bytePassword, err := terminal.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("\nfailed to read password: %w", err)
	}
	fmt.Println()

	if len(bytePassword) == 0 {
		return fmt.Errorf("password must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword(bytePassword, bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	fmt.Println(string(hash))
	return nil
}
