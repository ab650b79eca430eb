package main

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/gorilla/securecookie"
	"github.com/spf13/cobra"
)

func newGenKeyCmd() *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "gen-key",
		Short: "Print a random key for session_key or token_secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			if size < 32 {
				return errors.New("--bytes must be at least 32")
			}
			key := securecookie.GenerateRandomKey(size)
			if key == nil {
				return errors.New("random source unavailable")
			}
			fmt.Fprintln(cmd.OutOrStdout(), base64.RawURLEncoding.EncodeToString(key))
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "bytes", 32, "key length in bytes")
	return cmd
}
