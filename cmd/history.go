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
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/mood-tools/internal/report"
	"github.com/ademuri/mood-tools/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Lists stored runs",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := printHistory(viper.GetString("database"), viper.GetInt("history_count"), os.Stdout); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("count", "n", 20, "Number of runs to list")
	viper.BindPFlag("history_count", historyCmd.Flags().Lookup("count"))
}

func printHistory(dbPath string, n int, out io.Writer) error {
	if n < 1 {
		return fmt.Errorf("count must be positive, got %d", n)
	}
	db, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns(n)
	if err != nil {
		return err
	}
	return report.History(out, runs)
}
