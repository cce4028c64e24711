package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"playlog/backend/internal/catalog"
	"playlog/backend/internal/security"
)

// releaseKeySize is the size of generated release keys and session secrets.
const releaseKeySize = 32

func newKeygenCommand() *cobra.Command {
	var (
		name          string
		sessionSecret bool
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a release catalog entry or a session key secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := randomHex(releaseKeySize)
			if err != nil {
				return err
			}
			if sessionSecret {
				fmt.Fprintf(cmd.OutOrStdout(), "SESSION_KEY_SECRET=%s\n", key)
				return nil
			}
			entry := []catalog.Release{{ID: uuid.NewString(), Name: name, Key: key}}
			out, err := yaml.Marshal(map[string][]catalog.Release{"releases": entry})
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Human-readable release name")
	cmd.Flags().BoolVar(&sessionSecret, "session-secret", false, "Print a SESSION_KEY_SECRET value instead")
	return cmd
}

func randomHex(n int) (string, error) {
	if n < security.MinSecretSize {
		n = security.MinSecretSize
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
