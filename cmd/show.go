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

var showCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Prints a stored run",
	Long:  `Prints a stored run, or the most recent one when no ID is given.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		format, err := report.ParseFormat(viper.GetString("show_format"))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		id := ""
		if len(args) > 0 {
			id = args[0]
		}
		if err := showRun(viper.GetString("database"), id, format, os.Stdout); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringP("format", "f", "table", "Output format: table, yaml or csv")
	viper.BindPFlag("show_format", showCmd.Flags().Lookup("format"))
}

func showRun(dbPath, id string, format report.Format, out io.Writer) error {
	db, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	run, err := loadRun(db, id)
	if err != nil {
		return err
	}
	return report.Render(out, format, report.FromRun(run))
}
