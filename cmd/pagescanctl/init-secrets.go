package main

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

const (
	generatedPasswordLen = 16
	generatedHashCost    = 12
	jwtSecretBytes       = 64
)

// secrets is one generated set of operator credentials.
type secrets struct {
	Username     string
	Password     string
	PasswordHash string
	JWTSecret    string
}

// initSecretsCmd represents the init-secrets command
var initSecretsCmd = &cobra.Command{
	Use:   "init-secrets",
	Short: "Generate login credentials and a session secret into the env file",
	Long: `Generate a random operator username, password and session signing secret.

The bcrypt hash of the password and the secret are written to the env file
(--env-file, default .env). Existing PAGESCAN_AUTH_USERNAME,
PAGESCAN_AUTH_PASSWORD_HASH and PAGESCAN_JWT_SECRET lines are replaced; all
other lines are kept. The plaintext password is printed once and never stored.

Example:
  pagescanctl init-secrets
  pagescanctl init-secrets --env-file /etc/pagescan.env`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		envFile, _ := cmd.Flags().GetString("env-file")

		s, err := generateSecrets()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to generate secrets:", err)
			os.Exit(1)
		}

		if err := writeSecrets(envFile, s); err != nil {
			fmt.Fprintln(os.Stderr, "Unable to update env file:", err)
			os.Exit(1)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Secrets written to %s\n\n", envFile)
		fmt.Fprintf(out, "Username: %s\n", s.Username)
		fmt.Fprintf(out, "Password: %s\n\n", s.Password)
		fmt.Fprintln(out, "Store the password now. Only its hash is kept.")
	},
}

func init() {
	rootCmd.AddCommand(initSecretsCmd)
}

func generateSecrets() (secrets, error) {
	var s secrets

	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return s, err
	}
	s.Username = "user_" + hex.EncodeToString(suffix)

	password, err := generatePassword(generatedPasswordLen)
	if err != nil {
		return s, err
	}
	s.Password = password

	hash, err := bcrypt.GenerateFromPassword([]byte(password), generatedHashCost)
	if err != nil {
		return s, err
	}
	s.PasswordHash = string(hash)

	secret := make([]byte, jwtSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return s, err
	}
	s.JWTSecret = hex.EncodeToString(secret)

	return s, nil
}

// generatePassword returns n characters drawn from base64 of random bytes
// with the non-alphanumeric symbols removed.
func generatePassword(n int) (string, error) {
	var b strings.Builder
	buf := make([]byte, n)
	for b.Len() < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, c := range base64.StdEncoding.EncodeToString(buf) {
			if c == '+' || c == '/' || c == '=' {
				continue
			}
			b.WriteRune(c)
			if b.Len() == n {
				break
			}
		}
	}
	return b.String(), nil
}

// writeSecrets merges s into the dotenv file at path, creating it if needed.
func writeSecrets(path string, s secrets) error {
	values := map[string]string{
		"PAGESCAN_AUTH_USERNAME":      s.Username,
		"PAGESCAN_AUTH_PASSWORD_HASH": s.PasswordHash,
		"PAGESCAN_JWT_SECRET":         s.JWTSecret,
	}
	order := []string{"PAGESCAN_AUTH_USERNAME", "PAGESCAN_AUTH_PASSWORD_HASH", "PAGESCAN_JWT_SECRET"}

	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	merged, err := mergeEnv(existing, values, order)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	// Reject output the server's loader would not read back identically.
	parsed, err := godotenv.UnmarshalBytes(merged)
	if err != nil {
		return fmt.Errorf("merged env file does not parse: %w", err)
	}
	for k, v := range values {
		if parsed[k] != v {
			return fmt.Errorf("merged env file does not round-trip %s", k)
		}
	}

	return os.WriteFile(path, merged, 0o600)
}

// mergeEnv replaces KEY=... lines for every key in values and appends keys
// that were absent, in order. Values are single-quoted so bcrypt's '$'
// separators are not expanded. A line the scanner cannot read aborts the
// merge so the file is never written back truncated.
func mergeEnv(existing []byte, values map[string]string, order []string) ([]byte, error) {
	seen := make(map[string]bool, len(values))
	var out bytes.Buffer

	sc := bufio.NewScanner(bytes.NewReader(existing))
	for sc.Scan() {
		line := sc.Text()
		if key, ok := envLineKey(line); ok {
			if v, replace := values[key]; replace {
				fmt.Fprintf(&out, "%s='%s'\n", key, v)
				seen[key] = true
				continue
			}
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	for _, key := range order {
		if !seen[key] {
			fmt.Fprintf(&out, "%s='%s'\n", key, values[key])
		}
	}
	return out.Bytes(), nil
}

func envLineKey(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	trimmed = strings.TrimPrefix(trimmed, "export ")
	key, _, ok := strings.Cut(trimmed, "=")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(key), true
}
