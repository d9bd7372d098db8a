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
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/mood-tools/internal/mood"
)

var timeOfDayCmd = &cobra.Command{
	Use:   "time-of-day <timestamp...>",
	Short: "Prints the time-of-day bucket for timestamps",
	Long: `Prints morning, afternoon, evening or night for each timestamp, as used
in mood prompts. Timestamps may be RFC 3339, unix seconds, 'YYYY-MM-DDTHH:MM'
or 'HH:MM' (today); the last two are read in --timezone.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := printTimeOfDay(args, viper.GetString("timezone"), time.Now(), os.Stdout); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(timeOfDayCmd)
}

func printTimeOfDay(args []string, timezone string, now time.Time, out io.Writer) error {
	loc, err := loadLocation(timezone)
	if err != nil {
		return err
	}
	for _, arg := range args {
		t, err := parseTimestamp(arg, loc, now)
		if err != nil {
			return err
		}
		// Unix and RFC 3339 inputs are bucketed at the configured timezone.
		t = t.In(loc)
		fmt.Fprintf(out, "%s\t%s\n", t.Format(time.RFC3339), mood.TimeOfDay(t))
	}
	return nil
}
