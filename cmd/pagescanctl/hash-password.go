package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// hashPasswordCmd represents the hash-password command
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for PAGESCAN_AUTH_PASSWORD_HASH",
	Long: `Print a bcrypt hash suitable for PAGESCAN_AUTH_PASSWORD_HASH.

The password is taken from the first argument, or read as a single line
from stdin when no argument is given.

Example:
  pagescanctl hash-password 'correct horse'
  echo 'correct horse' | pagescanctl hash-password`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var password string
		if len(args) == 1 {
			password = args[0]
		} else {
			line, err := readPasswordLine(cmd.InOrStdin())
			if err != nil {
				fmt.Fprintln(os.Stderr, "Unable to read password:", err)
				os.Exit(1)
			}
			password = line
		}

		cost, _ := cmd.Flags().GetInt("cost")
		hash, err := hashPassword(password, cost)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to hash password:", err)
			os.Exit(1)
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)

	hashPasswordCmd.Flags().Int("cost", bcrypt.DefaultCost, "bcrypt cost factor")
}

func hashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func readPasswordLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
