// Package report renders enrichment runs for terminals, files and email.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/ademuri/mood-tools/internal/enrich"
	"github.com/ademuri/mood-tools/internal/store"
	"github.com/ademuri/mood-tools/internal/weather"
)

type Format string

const (
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatYAML, FormatCSV:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, yaml or csv)", s)
	}
}

// Report is one run plus what is needed to describe it.
type Report struct {
	RunID   string
	Created time.Time
	Source  string
	Units   weather.Units
	Result  enrich.Result
}

// FromRun adapts a stored run.
func FromRun(run store.Run) Report {
	return Report{
		RunID:   run.ID,
		Created: run.Created,
		Source:  run.Source,
		Units:   weather.Units(run.Units),
		Result:  run.Result,
	}
}

var columns = []string{"#", "Track", "Artist", "Played At", "Time of Day", "BPM", "Temperature", "Condition", "Mood"}

// row renders a record with every column present, using the unavailable
// markers for anything unresolved.
func (r Report) row(rec enrich.EnrichedRecord) []string {
	return []string{
		strconv.Itoa(rec.Sequence),
		rec.TrackName,
		rec.ArtistName,
		rec.PlayedAt.Format(time.RFC3339),
		string(rec.TimeOfDay),
		rec.Tempo.String(),
		r.temperature(rec.Temperature),
		rec.Condition.String(),
		moodText(rec.Mood),
	}
}

func (r Report) temperature(f enrich.Field[float64]) string {
	if !f.Available {
		return f.String()
	}
	return f.String() + r.Units.Symbol()
}

// moodText is the mood cell for human-facing output: the label, or why it
// is missing.
func moodText[T fmt.Stringer](f enrich.Field[T]) string {
	if f.Available {
		return f.Value.String()
	}
	if f.Reason != "" {
		return f.Reason
	}
	return enrich.Unavailable
}

func (r Report) summary() string {
	if r.Result.Outcome == enrich.OutcomeEmpty {
		return "No recently played tracks."
	}
	return fmt.Sprintf("Mood: %s (%s, %d tracks)", r.Result.MoodNote(), r.Result.Outcome, len(r.Result.Records))
}

func Render(w io.Writer, format Format, r Report) error {
	switch format {
	case FormatYAML:
		return YAML(w, r)
	case FormatCSV:
		return CSV(w, r)
	default:
		return Table(w, r)
	}
}

func Table(w io.Writer, r Report) error {
	table := tablewriter.NewWriter(w)
	table.Header(columns)
	for _, rec := range r.Result.Records {
		if err := table.Append(r.row(rec)); err != nil {
			return fmt.Errorf("rendering table: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}
	_, err := fmt.Fprintf(w, "%s\n", r.summary())
	return err
}

func CSV(w io.Writer, r Report) error {
	out := csv.NewWriter(w)
	header := []string{"sequence", "track_name", "artist_name", "played_at", "time_of_day", "bpm", "temperature", "condition", "mood", "mood_reason"}
	if err := out.Write(header); err != nil {
		return err
	}
	for _, rec := range r.Result.Records {
		row := r.row(rec)
		// Bare numbers, no unit suffix.
		row[6] = rec.Temperature.String()
		row[8] = rec.Mood.String()
		row = append(row, rec.Mood.Reason)
		if err := out.Write(row); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}

type yamlRecord struct {
	Sequence    int    `yaml:"sequence"`
	Track       string `yaml:"track_name"`
	Artist      string `yaml:"artist_name"`
	PlayedAt    string `yaml:"played_at"`
	TimeOfDay   string `yaml:"time_of_day"`
	BPM         string `yaml:"bpm"`
	Temperature string `yaml:"temperature"`
	Condition   string `yaml:"condition"`
	Mood        string `yaml:"mood"`
	MoodReason  string `yaml:"mood_reason,omitempty"`
}

type yamlReport struct {
	Run     string       `yaml:"run,omitempty"`
	Created string       `yaml:"created,omitempty"`
	Source  string       `yaml:"source,omitempty"`
	Units   string       `yaml:"units,omitempty"`
	Outcome string       `yaml:"outcome"`
	Mood    string       `yaml:"mood"`
	Records []yamlRecord `yaml:"records"`
}

func YAML(w io.Writer, r Report) error {
	doc := yamlReport{
		Run:     r.RunID,
		Source:  r.Source,
		Units:   string(r.Units),
		Outcome: string(r.Result.Outcome),
		Mood:    r.Result.MoodNote(),
		Records: make([]yamlRecord, 0, len(r.Result.Records)),
	}
	if !r.Created.IsZero() {
		doc.Created = r.Created.Format(time.RFC3339)
	}
	for _, rec := range r.Result.Records {
		doc.Records = append(doc.Records, yamlRecord{
			Sequence:    rec.Sequence,
			Track:       rec.TrackName,
			Artist:      rec.ArtistName,
			PlayedAt:    rec.PlayedAt.Format(time.RFC3339),
			TimeOfDay:   string(rec.TimeOfDay),
			BPM:         rec.Tempo.String(),
			Temperature: rec.Temperature.String(),
			Condition:   rec.Condition.String(),
			Mood:        rec.Mood.String(),
			MoodReason:  rec.Mood.Reason,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

const emailStyle = `<style>
td {
  padding: 0.1em 0.2em;
}
table, th, td {
  border: 1px solid black;
  border-collapse: collapse;
}
</style>`

// Email returns a subject and HTML body for r.
func Email(r Report) (subject string, body string) {
	when := r.Created
	if when.IsZero() {
		when = time.Now()
	}
	subject = fmt.Sprintf("Listening mood for %s: %s", when.Format("2006-01-02 15:04"), r.Result.MoodNote())
	if r.Result.Outcome == enrich.OutcomeEmpty {
		subject = fmt.Sprintf("Listening mood for %s", when.Format("2006-01-02 15:04"))
	}

	out := new(bytes.Buffer)
	fmt.Fprintf(out, "<html>\n<head>\n%s\n</head>\n<body>\n", emailStyle)
	fmt.Fprintf(out, "<h2>%s</h2>\n", html.EscapeString(r.summary()))
	if len(r.Result.Records) == 0 {
		out.WriteString("<div>No listens found.</div>\n")
	} else {
		out.WriteString("<table>\n<thead>\n<tr>")
		for _, c := range columns {
			fmt.Fprintf(out, "<th>%s</th>", html.EscapeString(c))
		}
		out.WriteString("</tr>\n</thead>\n<tbody>\n")
		for _, rec := range r.Result.Records {
			out.WriteString("<tr>")
			for _, cell := range r.row(rec) {
				fmt.Fprintf(out, "<td>%s</td>", html.EscapeString(cell))
			}
			out.WriteString("</tr>\n")
		}
		out.WriteString("</tbody>\n</table>\n")
	}
	if r.RunID != "" {
		fmt.Fprintf(out, "<div>Run %s</div>\n", html.EscapeString(r.RunID))
	}
	out.WriteString("</body>\n</html>\n")
	return subject, out.String()
}

// History renders stored run summaries.
func History(w io.Writer, runs []store.RunSummary) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No stored runs.")
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Run", "Created", "Source", "Tracks", "Outcome", "Mood"})
	for _, run := range runs {
		row := []string{
			run.ID,
			run.Created.Local().Format("2006-01-02 15:04"),
			run.Source,
			strconv.Itoa(run.Tracks),
			string(run.Outcome),
			run.Mood,
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("rendering table: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}
	return nil
}
