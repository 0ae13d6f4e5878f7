// package formatter renders the jukebox queue and history in various formats (plain text, CSV, Markdown, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/desertthunder/jukebox/internal/models"
)

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Formats lists every supported format.
var Formats = []Format{FormatText, FormatCSV, FormatMarkdown, FormatJSON}

// ParseFormat accepts a format name, also "md" and "txt".
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatText, FormatCSV, FormatMarkdown, FormatJSON:
		return f, nil
	case "", "txt":
		return FormatText, nil
	case "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown format %q (want one of text, csv, markdown, json)", name)
}

// Queue renders view in format.
func Queue(view *models.QueueView, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return QueueToCSV(view)
	case FormatMarkdown:
		return QueueToMarkdown(view, "Jukebox Queue")
	case FormatJSON:
		return json.MarshalIndent(view, "", "  ")
	default:
		return QueueToText(view)
	}
}

// QueueToCSV converts a queue to CSV with columns: Position, Name, Artist, Album, Duration, URI, Source
func QueueToCSV(view *models.QueueView) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Name", "Artist", "Album", "Duration", "URI", "Source"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range view.Queue {
		record := []string{
			strconv.Itoa(i + 1),
			track.Name,
			track.Artist,
			track.Album,
			FormatDuration(track.DurationMS),
			track.URI,
			string(track.Source),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// QueueToMarkdown converts a queue to a Markdown document headed by title
func QueueToMarkdown(view *models.QueueView, title string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)

	if cur := view.CurrentlyPlaying; cur != nil {
		if cur.Image != nil {
			fmt.Fprintf(&buf, "![Cover](%s)\n\n", *cur.Image)
		}
		fmt.Fprintf(&buf, "**Now playing**: %s - %s\n\n", cur.Artist, cur.Name)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(view.Queue))

	buf.WriteString("## Up Next\n\n")
	for i, track := range view.Queue {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, track.Artist, track.Name, albumPart, FormatDuration(track.DurationMS))
	}

	return buf.Bytes(), nil
}

// QueueToText converts a queue to aligned plain text
func QueueToText(view *models.QueueView) ([]byte, error) {
	var buf bytes.Buffer

	if cur := view.CurrentlyPlaying; cur != nil {
		fmt.Fprintf(&buf, "Now playing: %s - %s\n", cur.Artist, cur.Name)
	} else {
		buf.WriteString("Now playing: nothing\n")
	}
	fmt.Fprintf(&buf, "Up next: %d\n\n", len(view.Queue))

	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	for i, track := range view.Queue {
		fmt.Fprintf(tw, "%d.\t%s\t%s\t%s\t%s\n", i+1, track.Name, track.Artist, FormatDuration(track.DurationMS), sourceLabel(track.Source))
	}
	if err := tw.Flush(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// History renders recent events, newest first, as aligned plain text or JSON
func History(events []models.EventView, format Format) ([]byte, error) {
	if format == FormatJSON {
		return json.MarshalIndent(events, "", "  ")
	}

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	for _, e := range events {
		outcome := "ok"
		if !e.Success {
			outcome = "failed"
		}
		subject := e.TrackName
		if subject == "" {
			subject = e.TrackURI
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.CreatedAt.Local().Format(time.DateTime), e.Kind, outcome, subject, e.Detail)
	}
	if err := tw.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FormatDuration renders milliseconds as m:ss
func FormatDuration(ms int) string {
	if ms <= 0 {
		return "0:00"
	}
	total := ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// WriteExport writes data to path, or to stdout when path is empty.
func WriteExport(data []byte, path string) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func sourceLabel(s models.Source) string {
	switch s {
	case models.SourceQueue:
		return "queued"
	case models.SourcePlaylist:
		return "radio"
	}
	return ""
}
