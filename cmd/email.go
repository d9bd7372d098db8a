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
	"io"
	"os"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/mood-tools/internal/report"
	"github.com/ademuri/mood-tools/internal/store"
)

type SendEmailConfig struct {
	DbPath         string
	From           string
	To             string
	RunID          string
	DryRun         bool
	SendgridAPIKey string
}

// mailSender delivers one message.
type mailSender func(apiKey string, message *mail.SGMailV3) error

var emailCmd = &cobra.Command{
	Use:   "email <address> [run-id]",
	Short: "Emails a stored run",
	Long: `Emails the report for a stored run. Defaults to the most recent run.
  Runs are stored with 'analyze --save'.`,
	Args: cobra.RangeArgs(1, 2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := requireKeys("from"); err != nil {
			return err
		}
		if !viper.GetBool("dryRun") {
			return requireKeys("sendgrid_api_key")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		config := SendEmailConfig{
			DbPath:         viper.GetString("database"),
			From:           viper.GetString("from"),
			To:             args[0],
			DryRun:         viper.GetBool("dryRun"),
			SendgridAPIKey: viper.GetString("sendgrid_api_key"),
		}
		if len(args) > 1 {
			config.RunID = args[1]
		}
		if err := sendEmail(config, os.Stdout, sendWithSendgrid); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(emailCmd)

	var dryRun bool
	emailCmd.Flags().BoolVarP(&dryRun, "dry_run", "n", false, "When true, just print instead of emailing")
	viper.BindPFlag("dryRun", emailCmd.Flags().Lookup("dry_run"))
}

func loadRun(db *store.Store, id string) (store.Run, error) {
	var (
		run store.Run
		err error
	)
	if id == "" {
		run, err = db.LatestRun()
	} else {
		run, err = db.GetRun(id)
	}
	if errors.Is(err, store.ErrRunNotFound) {
		if id == "" {
			return store.Run{}, fmt.Errorf("no stored runs, run 'analyze --save' first")
		}
		return store.Run{}, fmt.Errorf("run %q not found", id)
	}
	return run, err
}

func sendEmail(config SendEmailConfig, out io.Writer, send mailSender) error {
	db, err := store.New(config.DbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	run, err := loadRun(db, config.RunID)
	if err != nil {
		return err
	}

	subject, body := report.Email(report.FromRun(run))
	if config.DryRun {
		fmt.Fprintf(out, "Would have sent email: \nsubject: %s\n%s\n", subject, body)
		return nil
	}

	from := mail.NewEmail("mood-tools", config.From)
	to := mail.NewEmail(config.To, config.To)
	message := mail.NewSingleEmail(from, subject, to, subject, body)
	if err := send(config.SendgridAPIKey, message); err != nil {
		return fmt.Errorf("sendEmail: %w", err)
	}
	fmt.Fprintf(out, "Sent run %s to %s\n", run.ID, config.To)
	return nil
}

func sendWithSendgrid(apiKey string, message *mail.SGMailV3) error {
	client := sendgrid.NewSendClient(apiKey)
	resp, err := client.Send(message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
