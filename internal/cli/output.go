package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"project-tracker/internal/domain"
	"project-tracker/internal/errors"
	"project-tracker/internal/partition"
)

// Format selects how listings are written.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

const dateLayout = "2006-01-02"

// ParseFormat validates a --format value. An empty value means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", errors.NewInvalidInputError("format", s, "must be one of table, csv, json")
	}
}

var bucketTitles = map[partition.Name]string{
	partition.BucketAll:             "All tasks",
	partition.BucketAssignedToMe:    "Assigned to me",
	partition.BucketManagedProjects: "Managed projects",
}

func bucketTitle(name partition.Name) string {
	if title, ok := bucketTitles[name]; ok {
		return title
	}
	return string(name)
}

// listing is a header plus rows, written as an aligned table or as CSV.
type listing struct {
	header []string
	rows   [][]string
}

func (l listing) write(w io.Writer, format Format) error {
	switch format {
	case FormatCSV:
		writer := csv.NewWriter(w)
		if err := writer.Write(l.header); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
		if err := writer.WriteAll(l.rows); err != nil {
			return fmt.Errorf("failed to write CSV rows: %w", err)
		}
		return nil
	default:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(l.header, "\t"))
		for _, row := range l.rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		return tw.Flush()
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var taskHeader = []string{"ID", "TITLE", "STATUS", "PRIORITY", "PROJECT", "ASSIGNEE", "MANAGER", "DEADLINE"}

func taskRow(t domain.EnrichedTask) []string {
	return []string{
		strconv.FormatInt(t.ID, 10),
		t.Title,
		string(t.Status),
		string(t.Priority),
		orDash(t.ProjectName),
		orDash(t.AssigneeUsername),
		managerName(t.ProjectManager),
		formatDate(t.Deadline),
	}
}

func managerName(u *domain.User) string {
	if u == nil {
		return "-"
	}
	return u.Username
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatSize renders a byte count for humans.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func statusCounts(counts map[domain.Status]int) string {
	parts := make([]string, 0, len(domain.AllStatuses))
	for _, status := range domain.AllStatuses {
		parts = append(parts, fmt.Sprintf("%s: %d", status, counts[status]))
	}
	return strings.Join(parts, "  ")
}
