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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mood-tools",
	Short: "Labels recent listening with weather and a mood",
	Long: `Fetches recently played tracks from Spotify or last.fm, adds tempo from
Deezer and the weather when each track was played, and asks a language model
for one mood label for the batch.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default is $HOME/.mood-tools.yaml)")

	stringFlag := func(name, shorthand, value, usage string) {
		rootCmd.PersistentFlags().StringP(name, shorthand, value, usage)
		viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}

	stringFlag("database", "d", "./mood.db", "Path to the SQLite database")
	stringFlag("timezone", "", "", "IANA timezone for play times (default is local)")
	stringFlag("log_level", "", "info", "Log level: debug, info, warn or error")
	stringFlag("log_format", "", "console", "Log format: console or json")

	stringFlag("spotify_client_id", "", "", "Spotify app client ID")
	stringFlag("spotify_client_secret", "", "", "Spotify app client secret")
	stringFlag("spotify_redirect_url", "", "http://127.0.0.1:8000/callback", "Spotify OAuth redirect URL")

	stringFlag("lastfm_api_key", "", "", "last.fm API key")
	stringFlag("lastfm_secret", "", "", "last.fm secret")
	stringFlag("user", "u", "", "last.fm username to read")

	stringFlag("sendgrid_api_key", "", "", "SendGrid API key")
	stringFlag("from", "", "", "From email address")
}

// initConfig reads in .env, the config file and MOOD_ environment variables.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Error loading .env:", err)
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".mood-tools" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".mood-tools")
	}

	viper.SetEnvPrefix("mood")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// See https://github.com/spf13/viper/pull/852
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		if viper.IsSet(f.Name) && viper.GetString(f.Name) != "" {
			rootCmd.PersistentFlags().Set(f.Name, viper.GetString(f.Name))
		}
	})
}

// requireKeys mirrors cobra's required-flag error for viper-backed settings.
func requireKeys(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if viper.GetString(k) == "" {
			missing = append(missing, fmt.Sprintf("%q", k))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required flag(s) %s not set", strings.Join(missing, ", "))
	}
	return nil
}
