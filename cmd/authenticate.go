/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/mood-tools/internal/store"
)

var authenticateCmd = &cobra.Command{
	Use:   "authenticate",
	Short: "Authorizes access to your Spotify listening history.",
	Long: `Opens a local callback server at the redirect URL and prints a Spotify
consent link. The token is stored in the database for later runs. The redirect
URL must be registered in the Spotify app settings.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return requireKeys("spotify_client_id", "spotify_client_secret")
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := authenticateSpotify(cmd); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(authenticateCmd)
}

func authenticateSpotify(cmd *cobra.Command) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := store.New(viper.GetString("database"))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	auth, err := newSpotifyAuthenticator(db, log)
	if err != nil {
		return err
	}
	if err := auth.Login(cmd.Context(), cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Successfully authenticated with Spotify")
	return nil
}
